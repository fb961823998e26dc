package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	customermodels "onboarding/internal/customer/models"
	customerstore "onboarding/internal/customer/store"
	"onboarding/internal/verification/finalizer"
	"onboarding/internal/verification/models"
	"onboarding/internal/verification/ports/mocks"
	"onboarding/internal/verification/providers"
	objectstore "onboarding/internal/verification/store/object"
	sessionstore "onboarding/internal/verification/store/session"
	id "onboarding/pkg/domain"
	dErrors "onboarding/pkg/domain-errors"
	audit "onboarding/pkg/platform/audit"
	"onboarding/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockExtractor *mocks.MockDocumentExtractor
	mockComparer  *mocks.MockFaceComparer
	mockAuditor   *mocks.MockAuditPort
	sessions      *sessionstore.InMemoryStore
	objects       *objectstore.InMemoryStore
	customers     *customerstore.InMemoryStore
	service       *Service
	now           time.Time
	ctx           context.Context

	eventsMu sync.Mutex
	events   []audit.Event
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockExtractor = mocks.NewMockDocumentExtractor(s.ctrl)
	s.mockComparer = mocks.NewMockFaceComparer(s.ctrl)
	s.mockAuditor = mocks.NewMockAuditPort(s.ctrl)
	s.sessions = sessionstore.New()
	s.objects = objectstore.New()
	s.customers = customerstore.New()
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.events = nil

	s.mockAuditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event audit.Event) error {
			s.eventsMu.Lock()
			defer s.eventsMu.Unlock()
			s.events = append(s.events, event)
			return nil
		}).AnyTimes()

	s.service = s.newService(Config{})
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) newService(cfg Config, opts ...Option) *Service {
	cfg.RetryBaseBackoff = time.Millisecond
	if cfg.MaxSelfieAttempts == 0 {
		cfg.MaxSelfieAttempts = 3
	}
	opts = append([]Option{
		WithConfig(cfg),
		WithAuditor(s.mockAuditor),
		WithCustomerLookup(s.customers),
	}, opts...)
	svc, err := New(s.sessions, s.objects, s.mockExtractor, s.mockComparer, finalizer.New(s.customers), opts...)
	s.Require().NoError(err)
	return svc
}

func pngBytes(shade uint8) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func imageBlob(shade uint8) models.Blob {
	return models.Blob{Data: pngBytes(shade), ContentType: "application/octet-stream", Filename: "image.png"}
}

// requiredOnly carries the six required fields; it scores 5 of 13.
func requiredOnly(number string) models.ExtractedDocument {
	return models.ExtractedDocument{
		FullName:       "Ada Lovelace",
		DateOfBirth:    "1990-12-10",
		DocumentType:   models.DocumentNationalID,
		DocumentNumber: number,
		IssueDate:      "2020-01-01",
		ExpiryDate:     "2030-01-01",
	}
}

// wellFilled leaves only the address state blank; it scores 12 of 13.
func wellFilled(number string) models.ExtractedDocument {
	doc := requiredOnly(number)
	doc.IDNumber = "ID-" + number
	doc.Nationality = "GB"
	doc.Gender = "F"
	doc.Address = models.Address{Street: "12 St James's Square", City: "London", PostalCode: "SW1Y 4JH", Country: "GB"}
	return doc
}

func (s *ServiceSuite) expectExtraction(doc models.ExtractedDocument) {
	s.mockExtractor.EXPECT().ExtractDocument(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []models.Blob) (*models.ExtractedDocument, error) {
			d := doc
			return &d, nil
		})
}

func (s *ServiceSuite) expectComparison(matched bool, score float64) {
	s.mockComparer.EXPECT().CompareFaces(gomock.Any(), gomock.Any(), gomock.Any(), 90.0).
		Return(&models.MatchResult{Matched: matched, Score: score}, nil)
}

func (s *ServiceSuite) documentsVerified(doc models.ExtractedDocument) id.SessionID {
	s.expectExtraction(doc)
	sessionID, _, err := s.service.SubmitDocuments(s.ctx, id.UserID{}, []models.Blob{imageBlob(10), imageBlob(20)})
	s.Require().NoError(err)
	return sessionID
}

func (s *ServiceSuite) faceVerified(doc models.ExtractedDocument, score float64) id.SessionID {
	sessionID := s.documentsVerified(doc)
	s.expectComparison(true, score)
	_, err := s.service.SubmitSelfie(s.ctx, sessionID, imageBlob(30))
	s.Require().NoError(err)
	return sessionID
}

func (s *ServiceSuite) stage(sessionID id.SessionID) models.Stage {
	st, err := s.service.GetStatus(s.ctx, sessionID)
	s.Require().NoError(err)
	return st.Stage
}

func (s *ServiceSuite) profile(email string) models.UserProfile {
	return models.UserProfile{Email: email, Phone: "+447700900123", AcceptedTerms: true}
}

func (s *ServiceSuite) auditActions() []string {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	actions := make([]string, 0, len(s.events))
	for _, e := range s.events {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *ServiceSuite) TestSubmitDocuments() {
	s.Run("complete document opens a documents_verified session", func() {
		doc := wellFilled("A-100")
		doc.Gender = ""
		s.expectExtraction(doc)

		sessionID, extracted, err := s.service.SubmitDocuments(s.ctx, id.UserID{}, []models.Blob{imageBlob(1)})
		s.Require().NoError(err)
		s.InDelta(0.85, extracted.Confidence, 0.01)

		st, err := s.service.GetStatus(s.ctx, sessionID)
		s.Require().NoError(err)
		s.Equal(models.StageDocumentsVerified, st.Stage)
		s.False(st.HasSelfie)
		s.Equal(s.now.Add(30*time.Minute), st.ExpiresAt)
		s.Contains(s.auditActions(), string(audit.EventDocumentsVerified))
	})

	s.Run("front and back are stored", func() {
		before := s.objects.Len()
		s.documentsVerified(wellFilled("A-101"))
		s.Equal(before+2, s.objects.Len())
	})

	s.Run("no images is a validation error", func() {
		_, _, err := s.service.SubmitDocuments(s.ctx, id.UserID{}, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("more than two images is a validation error", func() {
		_, _, err := s.service.SubmitDocuments(s.ctx, id.UserID{}, []models.Blob{imageBlob(1), imageBlob(2), imageBlob(3)})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("non-image bytes are rejected before upload", func() {
		before := s.objects.Len()
		_, _, err := s.service.SubmitDocuments(s.ctx, id.UserID{}, []models.Blob{{Data: []byte("%PDF-1.7 not an image")}})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(before, s.objects.Len())
	})

	s.Run("oversized image is rejected", func() {
		svc := s.newService(Config{MaxImageBytes: 16})
		_, _, err := svc.SubmitDocuments(s.ctx, id.UserID{}, []models.Blob{imageBlob(1)})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing required fields name every field and create no session", func() {
		before := s.objects.Len()
		doc := requiredOnly("A-102")
		doc.DateOfBirth = ""
		doc.ExpiryDate = ""
		s.expectExtraction(doc)

		sessionID, _, err := s.service.SubmitDocuments(s.ctx, id.UserID{}, []models.Blob{imageBlob(40)})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.ElementsMatch([]string{"date_of_birth", "expiry_date"}, dErrors.Reasons(err))
		s.True(sessionID.IsNil())
		s.Equal(before, s.objects.Len(), "images of a rejected submission are cleaned up")
	})

	s.Run("document already registered is a conflict", func() {
		s.Require().NoError(s.customers.Create(s.ctx, &customermodels.Customer{
			ID:             id.NewCustomerID(),
			Email:          "existing@example.com",
			DocumentNumber: "A-103",
		}))
		s.expectExtraction(wellFilled("A-103"))

		_, _, err := s.service.SubmitDocuments(s.ctx, id.UserID{}, []models.Blob{imageBlob(41)})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestExtractionRetries() {
	outage := providers.NewProviderError(providers.ErrorProviderOutage, "document-extractor", "503", nil)

	s.Run("transient failures are retried", func() {
		doc := wellFilled("R-1")
		gomock.InOrder(
			s.mockExtractor.EXPECT().ExtractDocument(gomock.Any(), gomock.Any()).Return(nil, outage),
			s.mockExtractor.EXPECT().ExtractDocument(gomock.Any(), gomock.Any()).Return(nil, outage),
			s.mockExtractor.EXPECT().ExtractDocument(gomock.Any(), gomock.Any()).Return(&doc, nil),
		)
		_, _, err := s.service.SubmitDocuments(s.ctx, id.UserID{}, []models.Blob{imageBlob(50)})
		s.NoError(err)
	})

	s.Run("retries are bounded", func() {
		s.mockExtractor.EXPECT().ExtractDocument(gomock.Any(), gomock.Any()).Return(nil, outage).Times(3)
		_, _, err := s.service.SubmitDocuments(s.ctx, id.UserID{}, []models.Blob{imageBlob(51)})
		s.True(dErrors.HasCode(err, dErrors.CodeExtractionFailed))
		s.True(errors.Is(err, outage))
	})

	s.Run("unreadable documents are not retried", func() {
		badData := providers.NewProviderError(providers.ErrorBadData, "document-extractor", "no fields", nil)
		s.mockExtractor.EXPECT().ExtractDocument(gomock.Any(), gomock.Any()).Return(nil, badData).Times(1)
		_, _, err := s.service.SubmitDocuments(s.ctx, id.UserID{}, []models.Blob{imageBlob(52)})
		s.True(dErrors.HasCode(err, dErrors.CodeExtractionFailed))
	})
}

func (s *ServiceSuite) TestUploadFailureCleansUp() {
	mockObjects := mocks.NewMockObjectStore(s.ctrl)
	svc, err := New(s.sessions, mockObjects, s.mockExtractor, s.mockComparer, finalizer.New(s.customers),
		WithConfig(Config{RetryBaseBackoff: time.Millisecond}))
	s.Require().NoError(err)

	front, back := imageBlob(60), imageBlob(61)
	mockObjects.EXPECT().Put(gomock.Any(), gomock.Any(), "image/png").DoAndReturn(
		func(_ context.Context, data []byte, _ string) (string, error) {
			if bytes.Equal(data, front.Data) {
				return "img-front", nil
			}
			return "", errors.New("upload failed")
		}).Times(2)
	mockObjects.EXPECT().Delete(gomock.Any(), "img-front").Return(nil)

	_, _, err = svc.SubmitDocuments(s.ctx, id.UserID{}, []models.Blob{front, back})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestSubmitSelfie() {
	s.Run("passing match advances to face_verified", func() {
		sessionID := s.documentsVerified(wellFilled("S-1"))
		s.expectComparison(true, 95.0)

		result, err := s.service.SubmitSelfie(s.ctx, sessionID, imageBlob(70))
		s.Require().NoError(err)
		s.True(result.Matched)
		s.Equal(95.0, result.Score)

		st, err := s.service.GetStatus(s.ctx, sessionID)
		s.Require().NoError(err)
		s.Equal(models.StageFaceVerified, st.Stage)
		s.True(st.HasSelfie)
		s.Equal(95.0, *st.MatchScore)
	})

	s.Run("rejected match keeps the session and a later pass succeeds", func() {
		sessionID := s.documentsVerified(wellFilled("S-2"))
		s.expectComparison(false, 60.0)

		result, err := s.service.SubmitSelfie(s.ctx, sessionID, imageBlob(71))
		s.True(dErrors.HasCode(err, dErrors.CodeMatchRejected))
		s.Require().NotNil(result)
		s.Equal(60.0, result.Score)
		s.Equal(models.StageDocumentsVerified, s.stage(sessionID))

		s.expectComparison(true, 93.0)
		_, err = s.service.SubmitSelfie(s.ctx, sessionID, imageBlob(72))
		s.Require().NoError(err)
		s.Equal(models.StageFaceVerified, s.stage(sessionID))
	})

	s.Run("provider match below threshold is rejected", func() {
		sessionID := s.documentsVerified(wellFilled("S-3"))
		s.expectComparison(true, 89.9)

		result, err := s.service.SubmitSelfie(s.ctx, sessionID, imageBlob(73))
		s.True(dErrors.HasCode(err, dErrors.CodeMatchRejected))
		s.False(result.Matched)
		s.Equal(models.StageDocumentsVerified, s.stage(sessionID))
	})

	s.Run("too many rejections fail the session", func() {
		sessionID := s.documentsVerified(wellFilled("S-4"))
		s.mockComparer.EXPECT().CompareFaces(gomock.Any(), gomock.Any(), gomock.Any(), 90.0).
			Return(&models.MatchResult{Matched: false, Score: 40}, nil).Times(3)

		for i := 0; i < 3; i++ {
			_, err := s.service.SubmitSelfie(s.ctx, sessionID, imageBlob(uint8(80+i)))
			s.True(dErrors.HasCode(err, dErrors.CodeMatchRejected))
		}
		s.Equal(models.StageFailed, s.stage(sessionID))
		s.Contains(s.auditActions(), string(audit.EventSessionFailed))

		_, err := s.service.SubmitSelfie(s.ctx, sessionID, imageBlob(90))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("comparison outage is retried then surfaced", func() {
		sessionID := s.documentsVerified(wellFilled("S-5"))
		timeout := providers.NewProviderError(providers.ErrorTimeout, "face-comparer", "timed out", nil)
		s.mockComparer.EXPECT().CompareFaces(gomock.Any(), gomock.Any(), gomock.Any(), 90.0).
			Return(nil, timeout).Times(3)

		_, err := s.service.SubmitSelfie(s.ctx, sessionID, imageBlob(91))
		s.True(dErrors.HasCode(err, dErrors.CodeComparisonFailed))
		s.Equal(models.StageDocumentsVerified, s.stage(sessionID))
	})

	s.Run("compares against the first document image", func() {
		s.expectExtraction(wellFilled("S-6"))
		front := imageBlob(92)
		sessionID, _, err := s.service.SubmitDocuments(s.ctx, id.UserID{}, []models.Blob{front, imageBlob(93)})
		s.Require().NoError(err)

		sess, err := s.sessions.FindByID(s.ctx, sessionID)
		s.Require().NoError(err)
		stored, err := s.objects.Get(s.ctx, sess.DocumentImageKeys[0])
		s.Require().NoError(err)
		s.Equal(front.Data, stored)

		s.mockComparer.EXPECT().CompareFaces(gomock.Any(), sess.DocumentImageKeys[0], gomock.Any(), 90.0).
			Return(&models.MatchResult{Matched: true, Score: 99}, nil)
		_, err = s.service.SubmitSelfie(s.ctx, sessionID, imageBlob(94))
		s.NoError(err)
	})

	s.Run("unknown session is not found", func() {
		_, err := s.service.SubmitSelfie(s.ctx, id.NewSessionID(), imageBlob(95))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("face_verified session does not accept another selfie", func() {
		sessionID := s.faceVerified(wellFilled("S-7"), 97)
		_, err := s.service.SubmitSelfie(s.ctx, sessionID, imageBlob(96))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestCompleteRegistration() {
	s.Run("low extraction confidence is rejected with reasons", func() {
		sessionID := s.faceVerified(requiredOnly("C-1"), 95.0)

		_, err := s.service.CompleteRegistration(s.ctx, sessionID, s.profile("low@example.com"))
		s.True(dErrors.HasCode(err, dErrors.CodeRegistrationRejected))
		s.Contains(dErrors.Reasons(err), "extraction confidence below threshold")
		s.Equal(models.StageFaceVerified, s.stage(sessionID))
		s.Equal(0, s.customers.Count())
	})

	s.Run("approved registration creates one customer and hides the session", func() {
		sessionID := s.faceVerified(wellFilled("C-2"), 95.0)
		before := s.customers.Count()

		customerID, err := s.service.CompleteRegistration(s.ctx, sessionID, s.profile("ada@example.com"))
		s.Require().NoError(err)
		s.False(customerID.IsNil())
		s.Equal(before+1, s.customers.Count())

		c, err := s.customers.FindByID(s.ctx, customerID)
		s.Require().NoError(err)
		s.Equal("C-2", c.DocumentNumber)
		s.Equal(95.0, c.MatchScore)
		s.InDelta(12.0/13.0, c.ExtractionConfidence, 1e-9)

		_, err = s.service.GetStatus(s.ctx, sessionID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(s.auditActions(), string(audit.EventRegistrationCompleted))

		_, err = s.service.CompleteRegistration(s.ctx, sessionID, s.profile("ada@example.com"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "unexpected error: %v", err)
		s.Equal(before+1, s.customers.Count())

		err = s.service.Abandon(s.ctx, sessionID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "unexpected error: %v", err)
		_, err = s.objects.Get(s.ctx, c.SelfieImageKey)
		s.NoError(err, "customer images outlive the session")
	})

	s.Run("repeat registration after the lease ends is still refused", func() {
		sessionID := s.faceVerified(wellFilled("C-7"), 95.0)
		_, err := s.service.CompleteRegistration(s.ctx, sessionID, s.profile("lease@example.com"))
		s.Require().NoError(err)

		later := requestcontext.WithTime(context.Background(), s.now.Add(5*time.Minute))
		_, err = s.service.CompleteRegistration(later, sessionID, s.profile("lease@example.com"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "unexpected error: %v", err)
	})

	s.Run("registration before face match is an invalid state", func() {
		sessionID := s.documentsVerified(wellFilled("C-3"))
		_, err := s.service.CompleteRegistration(s.ctx, sessionID, s.profile("early@example.com"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Equal(models.StageDocumentsVerified, s.stage(sessionID))
	})

	s.Run("invalid profile is a validation error", func() {
		sessionID := s.faceVerified(wellFilled("C-4"), 95.0)
		p := s.profile("not-an-email")
		_, err := s.service.CompleteRegistration(s.ctx, sessionID, p)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		p = s.profile("terms@example.com")
		p.AcceptedTerms = false
		_, err = s.service.CompleteRegistration(s.ctx, sessionID, p)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate email surfaces a conflict and releases the session", func() {
		first := s.faceVerified(wellFilled("C-5"), 95.0)
		_, err := s.service.CompleteRegistration(s.ctx, first, s.profile("taken@example.com"))
		s.Require().NoError(err)

		second := s.faceVerified(wellFilled("C-6"), 95.0)
		_, err = s.service.CompleteRegistration(s.ctx, second, s.profile("taken@example.com"))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(models.StageFaceVerified, s.stage(second))

		_, err = s.service.CompleteRegistration(s.ctx, second, s.profile("other@example.com"))
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestConcurrentRegistrationCreatesOneCustomer() {
	sessionID := s.faceVerified(wellFilled("P-1"), 95.0)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.CompleteRegistration(s.ctx, sessionID, s.profile("race@example.com"))
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "unexpected error: %v", err)
		}()
	}
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(1, s.customers.Count())
}

func (s *ServiceSuite) TestStageOrdering() {
	sessionID := s.documentsVerified(wellFilled("O-1"))
	stages := []models.Stage{s.stage(sessionID)}

	_, err := s.service.CompleteRegistration(s.ctx, sessionID, s.profile("order@example.com"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	stages = append(stages, s.stage(sessionID))

	s.expectComparison(true, 91)
	_, err = s.service.SubmitSelfie(s.ctx, sessionID, imageBlob(100))
	s.Require().NoError(err)
	stages = append(stages, s.stage(sessionID))

	for i := 1; i < len(stages); i++ {
		s.GreaterOrEqual(stages[i].Rank(), stages[i-1].Rank())
		s.LessOrEqual(stages[i].Rank()-stages[i-1].Rank(), 1, "no stage is skipped")
	}
	s.Equal(models.StageFaceVerified, stages[len(stages)-1])
}

func (s *ServiceSuite) TestExpiry() {
	s.Run("session past its TTL is unreachable even when face_verified", func() {
		sessionID := s.faceVerified(wellFilled("E-1"), 95.0)
		later := requestcontext.WithTime(context.Background(), s.now.Add(31*time.Minute))

		_, err := s.service.GetStatus(later, sessionID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		_, err = s.service.CompleteRegistration(later, sessionID, s.profile("late@example.com"))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(0, s.customers.Count())
	})

	s.Run("sweep marks stale sessions expired", func() {
		fresh := s.documentsVerified(wellFilled("E-2"))

		n, err := s.service.ExpireStaleSessions(s.ctx, s.now.Add(31*time.Minute))
		s.Require().NoError(err)
		s.GreaterOrEqual(n, 1)
		s.Contains(s.auditActions(), string(audit.EventSessionExpired))

		_, err = s.service.GetStatus(s.ctx, fresh)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "expired sessions stay unreachable")

		n, err = s.service.ExpireStaleSessions(s.ctx, s.now.Add(31*time.Minute))
		s.Require().NoError(err)
		s.Equal(0, n)
	})
}

func (s *ServiceSuite) TestAbandon() {
	s.Run("abandoning deletes the session and its images", func() {
		sessionID := s.faceVerified(wellFilled("X-1"), 95.0)
		s.Require().Equal(3, s.objects.Len())

		s.Require().NoError(s.service.Abandon(s.ctx, sessionID))
		s.Equal(0, s.objects.Len())

		_, err := s.service.GetStatus(s.ctx, sessionID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(s.auditActions(), string(audit.EventSessionAbandoned))
	})

	s.Run("unknown session is not found", func() {
		err := s.service.Abandon(s.ctx, id.NewSessionID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestSessionsNeverShareImages() {
	s.Run("a rejected resubmission of the same images leaves the first session intact", func() {
		first := s.documentsVerified(wellFilled("K-1"))
		sess, err := s.sessions.FindByID(s.ctx, first)
		s.Require().NoError(err)

		doc := requiredOnly("K-1")
		doc.FullName = ""
		s.expectExtraction(doc)
		_, _, err = s.service.SubmitDocuments(s.ctx, id.UserID{}, []models.Blob{imageBlob(10), imageBlob(20)})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		for _, key := range sess.DocumentImageKeys {
			_, err := s.objects.Get(s.ctx, key)
			s.NoError(err, "image %s was removed", key)
		}
		s.mockComparer.EXPECT().CompareFaces(gomock.Any(), sess.DocumentImageKeys[0], gomock.Any(), 90.0).
			Return(&models.MatchResult{Matched: true, Score: 96}, nil)
		_, err = s.service.SubmitSelfie(s.ctx, first, imageBlob(30))
		s.NoError(err)
	})

	s.Run("abandoning one session keeps identical images of another", func() {
		kept := s.faceVerified(wellFilled("K-2"), 95.0)
		dropped := s.faceVerified(wellFilled("K-3"), 95.0)
		sess, err := s.sessions.FindByID(s.ctx, kept)
		s.Require().NoError(err)

		s.Require().NoError(s.service.Abandon(s.ctx, dropped))

		keys := append(append([]string(nil), sess.DocumentImageKeys...), sess.Biometric.SelfieImageKey)
		for _, key := range keys {
			_, err := s.objects.Get(s.ctx, key)
			s.NoError(err, "image %s was removed", key)
		}
	})

	s.Run("a discarded selfie keeps the identical selfie of another session", func() {
		kept := s.faceVerified(wellFilled("K-4"), 95.0)
		sess, err := s.sessions.FindByID(s.ctx, kept)
		s.Require().NoError(err)

		other := s.documentsVerified(wellFilled("K-5"))
		s.expectComparison(false, 50)
		_, err = s.service.SubmitSelfie(s.ctx, other, imageBlob(30))
		s.True(dErrors.HasCode(err, dErrors.CodeMatchRejected))

		_, err = s.objects.Get(s.ctx, sess.Biometric.SelfieImageKey)
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestSessionOwnership() {
	owner := id.UserID(uuid.New())
	ownerCtx := requestcontext.WithUserID(s.ctx, owner)
	otherCtx := requestcontext.WithUserID(s.ctx, id.UserID(uuid.New()))

	openSession := func(number string) id.SessionID {
		s.expectExtraction(wellFilled(number))
		sessionID, _, err := s.service.SubmitDocuments(ownerCtx, owner, []models.Blob{imageBlob(10)})
		s.Require().NoError(err)
		return sessionID
	}

	s.Run("another user cannot read the session", func() {
		sessionID := openSession("W-1")

		_, err := s.service.GetStatus(otherCtx, sessionID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		st, err := s.service.GetStatus(ownerCtx, sessionID)
		s.Require().NoError(err)
		s.Equal(models.StageDocumentsVerified, st.Stage)

		_, err = s.service.GetStatus(s.ctx, sessionID)
		s.NoError(err, "anonymous callers are not checked")
	})

	s.Run("another user cannot submit a selfie", func() {
		sessionID := openSession("W-2")

		_, err := s.service.SubmitSelfie(otherCtx, sessionID, imageBlob(30))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(models.StageDocumentsVerified, s.stage(sessionID))
	})

	s.Run("another user cannot register or abandon", func() {
		sessionID := openSession("W-3")
		s.expectComparison(true, 96)
		_, err := s.service.SubmitSelfie(ownerCtx, sessionID, imageBlob(30))
		s.Require().NoError(err)
		before := s.customers.Count()

		_, err = s.service.CompleteRegistration(otherCtx, sessionID, s.profile("intruder@example.com"))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(before, s.customers.Count())

		err = s.service.Abandon(otherCtx, sessionID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(models.StageFaceVerified, s.stage(sessionID))

		_, err = s.service.CompleteRegistration(ownerCtx, sessionID, s.profile("owner@example.com"))
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestNewRejectsLeaseNotLongerThanCallTimeout() {
	for _, lease := range []time.Duration{10 * time.Second, 30 * time.Second} {
		_, err := New(s.sessions, s.objects, s.mockExtractor, s.mockComparer, finalizer.New(s.customers),
			WithConfig(Config{FinalizeLease: lease, ExternalCallTimeout: 30 * time.Second}))
		s.Error(err, "lease %s", lease)
	}

	_, err := New(s.sessions, s.objects, s.mockExtractor, s.mockComparer, finalizer.New(s.customers),
		WithConfig(Config{FinalizeLease: 31 * time.Second, ExternalCallTimeout: 30 * time.Second}))
	s.NoError(err)
}

type countingExpirer struct {
	mu    sync.Mutex
	calls int
}

func (c *countingExpirer) ExpireStaleSessions(context.Context, time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 1, nil
}

func (c *countingExpirer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestSweeperRunsUntilCancelled(t *testing.T) {
	expirer := &countingExpirer{}
	sweeper := NewSweeper(expirer, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for expirer.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not tick")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
}

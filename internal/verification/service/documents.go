package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"onboarding/internal/verification/models"
	"onboarding/internal/verification/providers"
	"onboarding/internal/verification/scoring"
	id "onboarding/pkg/domain"
	dErrors "onboarding/pkg/domain-errors"
	audit "onboarding/pkg/platform/audit"
	"onboarding/pkg/requestcontext"
)

const (
	opSubmitDocuments = "submit_documents"
	providerExtractor = "document-extractor"
)

// SubmitDocuments stores the document images, extracts and validates the
// identity data and opens a session at documents_verified. No session exists
// unless every step succeeds; images stored for a failed submission are
// deleted best-effort.
func (s *Service) SubmitDocuments(ctx context.Context, userID id.UserID, images []models.Blob) (sessionID id.SessionID, doc *models.ExtractedDocument, err error) {
	ctx, span := s.startSpan(ctx, opSubmitDocuments, id.SessionID{})
	defer func() { s.finish(span, opSubmitDocuments, err) }()

	if len(images) == 0 {
		return id.SessionID{}, nil, dErrors.New(dErrors.CodeValidation, "at least one document image is required")
	}
	if len(images) > s.cfg.MaxDocuments {
		return id.SessionID{}, nil, dErrors.Newf(dErrors.CodeValidation, "at most %d document images are accepted", s.cfg.MaxDocuments)
	}
	checked := make([]models.Blob, len(images))
	for i, img := range images {
		checked[i], err = s.checkImage(fmt.Sprintf("document %d", i+1), img)
		if err != nil {
			return id.SessionID{}, nil, err
		}
	}

	keys, err := s.storeImages(ctx, checked)
	if err != nil {
		return id.SessionID{}, nil, err
	}

	sess, err := s.openSession(ctx, userID, checked, keys)
	if err != nil {
		s.deleteImages(ctx, keys...)
		return id.SessionID{}, nil, err
	}

	s.metrics.IncrementTransition(string(models.StageDocumentsVerified))
	s.logAudit(ctx, audit.EventDocumentsVerified, sess.ID,
		"stage", string(sess.Stage),
		"document_type", string(sess.Document.DocumentType),
	)
	out := *sess.Document
	return sess.ID, &out, nil
}

// storeImages uploads all images in parallel. On any failure the uploads that
// did complete are deleted and the first error is returned.
func (s *Service) storeImages(ctx context.Context, images []models.Blob) ([]string, error) {
	keys := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.cfg.ExternalCallTimeout)
			defer cancel()
			key, err := s.objects.Put(callCtx, img.Data, img.ContentType)
			if err != nil {
				return fmt.Errorf("store document image %d: %w", i+1, err)
			}
			keys[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.deleteImages(ctx, keys...)
		s.logger.ErrorContext(ctx, "failed to store document images", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store document images")
	}
	return keys, nil
}

func (s *Service) openSession(ctx context.Context, userID id.UserID, images []models.Blob, keys []string) (*models.Session, error) {
	doc, err := s.extract(ctx, images)
	if err != nil {
		return nil, err
	}

	if err := doc.Validate(); err != nil {
		s.logAudit(ctx, audit.EventDocumentsRejected, id.SessionID{}, "reason", "missing or invalid fields")
		return nil, err
	}

	if s.customers != nil {
		exists, err := s.customers.ExistsByDocumentNumber(ctx, doc.DocumentNumber)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check document number")
		}
		if exists {
			s.logAudit(ctx, audit.EventDocumentsRejected, id.SessionID{}, "reason", "document already registered")
			return nil, dErrors.New(dErrors.CodeConflict, "document is already registered")
		}
	}

	doc.Confidence = scoring.Score(*doc)

	now := requestcontext.Now(ctx)
	sess := &models.Session{
		ID:                id.NewSessionID(),
		Stage:             models.StageDocumentsVerified,
		UserID:            userID,
		Document:          doc,
		DocumentImageKeys: keys,
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		s.logger.ErrorContext(ctx, "failed to create session", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}
	return sess, nil
}

func (s *Service) extract(ctx context.Context, images []models.Blob) (*models.ExtractedDocument, error) {
	var doc *models.ExtractedDocument
	err := s.callProvider(ctx, providerExtractor, func(ctx context.Context) error {
		var err error
		doc, err = s.extractor.ExtractDocument(ctx, images)
		return err
	})
	if err == nil && doc == nil {
		err = providers.NewProviderError(providers.ErrorBadData, providerExtractor, "no document returned", nil)
	}
	if err != nil {
		category := providers.GetCategory(err)
		s.logger.ErrorContext(ctx, "document extraction failed",
			"error", err,
			"category", string(category),
		)
		s.logAudit(ctx, audit.EventDocumentsRejected, id.SessionID{}, "reason", string(category))
		return nil, dErrors.Wrap(err, dErrors.CodeExtractionFailed, "document extraction failed")
	}
	return doc, nil
}

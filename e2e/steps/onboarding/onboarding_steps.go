//go:build e2e

package onboarding

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/url"

	"github.com/cucumber/godog"

	"onboarding/internal/verification/models"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	SetDocument(doc models.ExtractedDocument)
	SetSimilarity(similarity float64)
	FailExtractions(n int)
	CustomerCount() int
	SessionID() string
	SetSessionID(sessionID string)
	PostMultipart(path string, files map[string][]byte) error
	PostForm(path string, values url.Values) error
	GET(path string) error
	DELETE(path string) error
	StatusCode() int
	ResponseField(field string) (any, error)
}

// RegisterSteps registers onboarding flow step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &onboardingSteps{tc: tc}

	// Provider setup
	ctx.Step(`^the document reader returns a well filled national id "([^"]*)"$`, steps.readerReturnsWellFilled)
	ctx.Step(`^the document reader returns a sparse national id "([^"]*)"$`, steps.readerReturnsSparse)
	ctx.Step(`^the document reader fails (\d+) times? before answering$`, steps.readerFails)
	ctx.Step(`^the face matcher reports similarity (\d+(?:\.\d+)?)$`, steps.matcherReports)

	// Flow
	ctx.Step(`^I submit the front and back of my document$`, steps.submitDocuments)
	ctx.Step(`^I submit a selfie$`, steps.submitSelfie)
	ctx.Step(`^I complete registration with email "([^"]*)"$`, steps.completeRegistration)
	ctx.Step(`^I abandon the session$`, steps.abandon)
	ctx.Step(`^I request the session status$`, steps.requestStatus)

	// Assertions
	ctx.Step(`^the session stage should be "([^"]*)"$`, steps.sessionStageShouldBe)
	ctx.Step(`^the session should no longer exist$`, steps.sessionShouldNotExist)
	ctx.Step(`^(\d+) customers? should exist$`, steps.customersShouldExist)
}

type onboardingSteps struct {
	tc TestContext
}

func requiredFields(number string) models.ExtractedDocument {
	return models.ExtractedDocument{
		FullName:       "Ada Lovelace",
		DateOfBirth:    "1990-12-10",
		DocumentType:   models.DocumentNationalID,
		DocumentNumber: number,
		IssueDate:      "2020-01-01",
		ExpiryDate:     "2030-01-01",
	}
}

func (s *onboardingSteps) readerReturnsWellFilled(number string) error {
	doc := requiredFields(number)
	doc.IDNumber = "ID-" + number
	doc.Nationality = "GB"
	doc.Gender = "F"
	doc.Address = models.Address{Street: "12 St James's Square", City: "London", PostalCode: "SW1Y 4JH", Country: "GB"}
	s.tc.SetDocument(doc)
	return nil
}

func (s *onboardingSteps) readerReturnsSparse(number string) error {
	s.tc.SetDocument(requiredFields(number))
	return nil
}

func (s *onboardingSteps) readerFails(n int) error {
	s.tc.FailExtractions(n)
	return nil
}

func (s *onboardingSteps) matcherReports(similarity float64) error {
	s.tc.SetSimilarity(similarity)
	return nil
}

func (s *onboardingSteps) submitDocuments() error {
	err := s.tc.PostMultipart("/onboarding/documents", map[string][]byte{
		"front": pngImage(40),
		"back":  pngImage(80),
	})
	if err != nil {
		return err
	}
	if s.tc.StatusCode() == 201 {
		v, err := s.tc.ResponseField("session_id")
		if err != nil {
			return err
		}
		s.tc.SetSessionID(fmt.Sprint(v))
	}
	return nil
}

func (s *onboardingSteps) sessionPath() (string, error) {
	if s.tc.SessionID() == "" {
		return "", fmt.Errorf("no session has been opened")
	}
	return "/onboarding/sessions/" + s.tc.SessionID(), nil
}

func (s *onboardingSteps) submitSelfie() error {
	path, err := s.sessionPath()
	if err != nil {
		return err
	}
	return s.tc.PostMultipart(path+"/selfie", map[string][]byte{"selfie": pngImage(120)})
}

func (s *onboardingSteps) completeRegistration(email string) error {
	path, err := s.sessionPath()
	if err != nil {
		return err
	}
	return s.tc.PostForm(path+"/register", url.Values{
		"email":          {email},
		"phone":          {"+447700900123"},
		"first_name":     {"Ada"},
		"last_name":      {"Lovelace"},
		"accepted_terms": {"true"},
	})
}

func (s *onboardingSteps) abandon() error {
	path, err := s.sessionPath()
	if err != nil {
		return err
	}
	return s.tc.DELETE(path)
}

func (s *onboardingSteps) requestStatus() error {
	path, err := s.sessionPath()
	if err != nil {
		return err
	}
	return s.tc.GET(path)
}

func (s *onboardingSteps) sessionStageShouldBe(stage string) error {
	if err := s.requestStatus(); err != nil {
		return err
	}
	if s.tc.StatusCode() != 200 {
		return fmt.Errorf("status lookup returned %d", s.tc.StatusCode())
	}
	v, err := s.tc.ResponseField("stage")
	if err != nil {
		return err
	}
	if v != stage {
		return fmt.Errorf("expected stage %q, got %v", stage, v)
	}
	return nil
}

func (s *onboardingSteps) sessionShouldNotExist() error {
	if err := s.requestStatus(); err != nil {
		return err
	}
	if s.tc.StatusCode() != 404 {
		return fmt.Errorf("expected 404 for the session, got %d", s.tc.StatusCode())
	}
	return nil
}

func (s *onboardingSteps) customersShouldExist(n int) error {
	if got := s.tc.CustomerCount(); got != n {
		return fmt.Errorf("expected %d customers, got %d", n, got)
	}
	return nil
}

// pngImage returns a small solid PNG; distinct shades give distinct object keys.
func pngImage(shade uint8) []byte {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	img.Set(0, 0, color.Gray{Y: shade + 1})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

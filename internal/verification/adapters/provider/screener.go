package provider

import (
	"context"
	"encoding/json"
	"strings"

	"onboarding/internal/verification/models"
	"onboarding/internal/verification/scoring"
)

const (
	amlScreenerID   = "aml-screener"
	creditCheckerID = "credit-checker"
)

// Screener implements ports.ScreeningPort against two providers: a
// watchlist screen and a credit bureau. Each has its own breaker.
type Screener struct {
	aml    *client
	credit *client
}

func NewScreener(aml, credit Config, opts ...Option) *Screener {
	return &Screener{
		aml:    newClient(amlScreenerID, aml, opts...),
		credit: newClient(creditCheckerID, credit, opts...),
	}
}

type amlRequest struct {
	Name          string `json:"name"`
	DateOfBirth   string `json:"date_of_birth"`
	Nationality   string `json:"nationality,omitempty"`
	SearchProfile string `json:"search_profile"`
}

type amlResponse struct {
	Matches     []json.RawMessage `json:"matches"`
	RiskLevel   string            `json:"risk_level"`
	ScreeningID string            `json:"screening_id"`
}

// ScreenAML is cleared when the provider reports no matches.
func (s *Screener) ScreenAML(ctx context.Context, subject models.ScreeningSubject) (*models.AMLResult, error) {
	var resp amlResponse
	err := s.aml.post(ctx, "/v1/screenings", amlRequest{
		Name:          subject.FullName,
		DateOfBirth:   subject.DateOfBirth,
		Nationality:   subject.Nationality,
		SearchProfile: "KYC_STANDARD",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.ScreeningID == "" {
		return nil, contractError(amlScreenerID, "response has no screening id")
	}

	result := &models.AMLResult{
		Status:      models.AMLCleared,
		RiskLevel:   riskLevel(resp.RiskLevel),
		Matches:     len(resp.Matches),
		ScreeningID: resp.ScreeningID,
	}
	if result.Matches > 0 {
		result.Status = models.AMLFlagged
	}
	return result, nil
}

type creditApplicant struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	DateOfBirth    string `json:"date_of_birth"`
	DocumentNumber string `json:"document_number"`
}

type creditRequest struct {
	Applicant          creditApplicant `json:"applicant"`
	PermissiblePurpose string          `json:"permissible_purpose"`
}

type creditResponse struct {
	CreditScore   *int              `json:"credit_score"`
	PublicRecords []json.RawMessage `json:"public_records"`
	ReportID      string            `json:"report_id"`
}

// CheckCredit classifies the bureau's score. A report without a score is a
// contract mismatch.
func (s *Screener) CheckCredit(ctx context.Context, subject models.ScreeningSubject) (*models.CreditResult, error) {
	var resp creditResponse
	err := s.credit.post(ctx, "/v1/credit/reports", creditRequest{
		Applicant: creditApplicant{
			FirstName:      subject.FirstName,
			LastName:       subject.LastName,
			DateOfBirth:    subject.DateOfBirth,
			DocumentNumber: subject.DocumentNumber,
		},
		PermissiblePurpose: "ACCOUNT_REVIEW",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.CreditScore == nil {
		return nil, contractError(creditCheckerID, "response has no credit score")
	}
	return &models.CreditResult{
		Status:          scoring.ClassifyCredit(*resp.CreditScore, len(resp.PublicRecords)),
		Score:           *resp.CreditScore,
		DerogatoryMarks: len(resp.PublicRecords),
		ReportID:        resp.ReportID,
	}, nil
}

func riskLevel(raw string) models.RiskLevel {
	switch level := models.RiskLevel(strings.ToLower(strings.TrimSpace(raw))); level {
	case models.RiskLow, models.RiskMedium, models.RiskHigh:
		return level
	default:
		return models.RiskUnknown
	}
}

package models

import "time"

// AMLStatus is the outcome of a sanctions and watchlist screen.
type AMLStatus string

const (
	AMLCleared AMLStatus = "cleared"
	AMLFlagged AMLStatus = "flagged"
)

// CreditStatus buckets a credit report.
type CreditStatus string

const (
	CreditPositive CreditStatus = "positive"
	CreditCaution  CreditStatus = "caution"
	CreditNegative CreditStatus = "negative"
)

// RiskLevel is reported by the AML provider and derived from the risk score.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// ScreeningSubject is the identity sent to the screening providers.
type ScreeningSubject struct {
	FullName       string
	FirstName      string
	LastName       string
	DateOfBirth    string
	Nationality    string
	DocumentNumber string
}

// AMLResult is a single watchlist screen. Status is flagged whenever the
// provider reported at least one match.
type AMLResult struct {
	Status      AMLStatus
	RiskLevel   RiskLevel
	Matches     int
	ScreeningID string
}

// CreditResult is a single credit report.
type CreditResult struct {
	Status          CreditStatus
	Score           int
	DerogatoryMarks int
	ReportID        string
}

// ScreeningAssessment combines both checks into the customer's standing.
type ScreeningAssessment struct {
	AMLStatus    AMLStatus
	CreditStatus CreditStatus
	RiskScore    int
	RiskLevel    RiskLevel
	Outcome      ScreeningOutcome
	ScreenedAt   time.Time
}

// ScreeningOutcome is what the assessment means for the account.
type ScreeningOutcome string

const (
	OutcomeActive        ScreeningOutcome = "active"
	OutcomePendingReview ScreeningOutcome = "pending_review"
	OutcomeRejected      ScreeningOutcome = "rejected"
)

package models

import (
	"strings"
	"time"

	id "onboarding/pkg/domain"
)

// Customer is the account created once a verification session is approved.
// Identity fields come from the extracted document; contact fields from the
// registration profile.
type Customer struct {
	ID          id.CustomerID
	Email       string
	Phone       string
	FirstName   string
	LastName    string
	FullName    string
	DateOfBirth string
	Nationality string

	DocumentType      string
	DocumentNumber    string
	DocumentExpiry    string
	DocumentImageKeys []string
	SelfieImageKey    string

	ExtractionConfidence float64
	MatchScore           float64
	VerifiedAt           time.Time
	CreatedAt            time.Time

	Status    Status
	Screening *Screening
}

// Status is the account standing. New customers wait for background
// screening before they become active.
type Status string

const (
	StatusPendingScreening Status = "pending_screening"
	StatusActive           Status = "active"
	StatusPendingReview    Status = "pending_review"
	StatusRejected         Status = "rejected"
)

// Screening records the AML and credit checks run after registration.
type Screening struct {
	AMLStatus    string
	ScreeningID  string
	CreditStatus string
	CreditScore  int
	RiskScore    int
	RiskLevel    string
	ScreenedAt   time.Time
}

// NormalizedEmail is the form used for uniqueness checks.
func (c *Customer) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(c.Email))
}

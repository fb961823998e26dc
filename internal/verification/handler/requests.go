package handler

import (
	"strings"

	"onboarding/internal/verification/models"
	id "onboarding/pkg/domain"
	dErrors "onboarding/pkg/domain-errors"
)

type registerRequest struct {
	Email         string `schema:"email"`
	Phone         string `schema:"phone"`
	FirstName     string `schema:"first_name"`
	LastName      string `schema:"last_name"`
	AcceptedTerms bool   `schema:"accepted_terms"`
}

// Validate checks presence only; the service validates formats.
func (r *registerRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	return nil
}

func (r *registerRequest) toProfile() models.UserProfile {
	return models.UserProfile{
		Email:         r.Email,
		Phone:         r.Phone,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		AcceptedTerms: r.AcceptedTerms,
	}
}

type submitDocumentsResponse struct {
	SessionID id.SessionID              `json:"session_id"`
	Document  *models.ExtractedDocument `json:"document"`
}

type selfieResponse struct {
	Matched bool    `json:"matched"`
	Score   float64 `json:"score"`
}

type selfieRejectedResponse struct {
	Error            string  `json:"error"`
	ErrorDescription string  `json:"error_description"`
	Matched          bool    `json:"matched"`
	Score            float64 `json:"score"`
}

type registerResponse struct {
	CustomerID id.CustomerID `json:"customer_id"`
}

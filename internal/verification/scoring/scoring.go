// Package scoring computes the extraction confidence of a document and the
// risk decision taken before a customer record is created. Everything here is
// pure: identical inputs always produce identical outputs.
package scoring

import (
	"strings"
	"time"

	"github.com/creasty/defaults"

	"onboarding/internal/verification/models"
)

const (
	ReasonLowConfidence = "extraction confidence below threshold"
	ReasonLowMatchScore = "face match score below threshold"
)

// Score is the fraction of scoreable fields that are non-blank. Callers
// validate required fields first; the value is still defined otherwise.
func Score(doc models.ExtractedDocument) float64 {
	fields := scoreableFields(doc)
	filled := 0
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			filled++
		}
	}
	return float64(filled) / float64(len(fields))
}

// scoreableFields are the textual fields a reader can return. Document type
// is excluded because the extractor always classifies the document.
func scoreableFields(doc models.ExtractedDocument) []string {
	return []string{
		doc.FullName,
		doc.DateOfBirth,
		doc.IssueDate,
		doc.ExpiryDate,
		doc.DocumentNumber,
		doc.IDNumber,
		doc.Nationality,
		doc.Gender,
		doc.Address.Street,
		doc.Address.City,
		doc.Address.State,
		doc.Address.PostalCode,
		doc.Address.Country,
	}
}

// Policy holds the acceptance thresholds for registration.
type Policy struct {
	MinExtractionConfidence float64 `default:"0.7"`
	MinMatchScore           float64 `default:"90"`
}

// NewPolicy fills unset thresholds with their defaults.
func NewPolicy(p Policy) (Policy, error) {
	if err := defaults.Set(&p); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Evaluate lists every failing criterion; the decision is approved only when
// none fail.
func (p Policy) Evaluate(confidence, matchScore float64, now time.Time) models.RiskDecision {
	var reasons []string
	if confidence < p.MinExtractionConfidence {
		reasons = append(reasons, ReasonLowConfidence)
	}
	if matchScore < p.MinMatchScore {
		reasons = append(reasons, ReasonLowMatchScore)
	}
	return models.RiskDecision{
		Approved:             len(reasons) == 0,
		Reasons:              reasons,
		ExtractionConfidence: confidence,
		MatchScore:           matchScore,
		EvaluatedAt:          now,
	}
}

package scoring

import (
	"time"

	"onboarding/internal/verification/models"
)

const (
	maxRiskScore = 100

	penaltyAMLFlagged     = 40
	penaltyAMLHighRisk    = 20
	penaltyCreditNegative = 30
	penaltyCreditCaution  = 15

	minLowRiskScore    = 80
	minMediumRiskScore = 60
	minRetainedScore   = 50

	minPositiveCreditScore = 700
	minCautionCreditScore  = 600
)

// ClassifyCredit buckets a credit score. Any derogatory public record makes
// the report negative regardless of the score.
func ClassifyCredit(score, derogatoryMarks int) models.CreditStatus {
	switch {
	case derogatoryMarks > 0:
		return models.CreditNegative
	case score >= minPositiveCreditScore:
		return models.CreditPositive
	case score >= minCautionCreditScore:
		return models.CreditCaution
	default:
		return models.CreditNegative
	}
}

// RiskScore starts at 100 and subtracts a penalty per adverse finding,
// clamped to [0,100].
func RiskScore(aml models.AMLResult, credit models.CreditResult) int {
	score := maxRiskScore
	if aml.Status == models.AMLFlagged {
		score -= penaltyAMLFlagged
		if aml.RiskLevel == models.RiskHigh {
			score -= penaltyAMLHighRisk
		}
	}
	switch credit.Status {
	case models.CreditNegative:
		score -= penaltyCreditNegative
	case models.CreditCaution:
		score -= penaltyCreditCaution
	}
	return max(0, min(maxRiskScore, score))
}

func RiskLevelFor(score int) models.RiskLevel {
	switch {
	case score >= minLowRiskScore:
		return models.RiskLow
	case score >= minMediumRiskScore:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

// Assess turns both screening results into the customer's standing. A flagged
// screen with a score under 50 is rejected; any other score under 60 goes to
// manual review.
func Assess(aml models.AMLResult, credit models.CreditResult, now time.Time) models.ScreeningAssessment {
	score := RiskScore(aml, credit)
	outcome := models.OutcomeActive
	switch {
	case aml.Status == models.AMLFlagged && score < minRetainedScore:
		outcome = models.OutcomeRejected
	case score < minMediumRiskScore:
		outcome = models.OutcomePendingReview
	}
	return models.ScreeningAssessment{
		AMLStatus:    aml.Status,
		CreditStatus: credit.Status,
		RiskScore:    score,
		RiskLevel:    RiskLevelFor(score),
		Outcome:      outcome,
		ScreenedAt:   now,
	}
}

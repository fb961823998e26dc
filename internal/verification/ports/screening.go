package ports

//go:generate mockgen -source=screening.go -destination=mocks/screening-mocks.go -package=mocks

import (
	"context"

	"onboarding/internal/verification/models"
)

// ScreeningPort runs the post-registration background checks. Failures are
// returned as *providers.ProviderError, like the verification providers.
type ScreeningPort interface {
	ScreenAML(ctx context.Context, subject models.ScreeningSubject) (*models.AMLResult, error)
	CheckCredit(ctx context.Context, subject models.ScreeningSubject) (*models.CreditResult, error)
}

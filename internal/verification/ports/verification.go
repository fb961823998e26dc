package ports

//go:generate mockgen -source=verification.go -destination=mocks/verification-mocks.go -package=mocks

import (
	"context"

	"onboarding/internal/verification/models"
)

// DocumentExtractor reads structured identity data from document images.
// Failures are returned as *providers.ProviderError so the orchestrator can
// tell transient faults from unreadable input. A readable document with no
// recognisable fields is a bad_data failure, not an empty result.
type DocumentExtractor interface {
	ExtractDocument(ctx context.Context, images []models.Blob) (*models.ExtractedDocument, error)
}

// FaceComparer compares the face in the stored source image against the face
// in the stored target image. Score is the best similarity found, on a 0-100
// scale; Matched is Score >= threshold.
type FaceComparer interface {
	CompareFaces(ctx context.Context, sourceKey, targetKey string, threshold float64) (*models.MatchResult, error)
}

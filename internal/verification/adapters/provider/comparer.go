package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"onboarding/internal/verification/models"
	"onboarding/internal/verification/ports"
	"onboarding/internal/verification/providers"
	"onboarding/pkg/platform/sentinel"
)

const comparerID = "face-comparer"

// Comparer implements ports.FaceComparer. Images are loaded from the object
// store by key and sent inline.
type Comparer struct {
	c       *client
	objects ports.ObjectStore
}

func NewComparer(cfg Config, objects ports.ObjectStore, opts ...Option) *Comparer {
	return &Comparer{c: newClient(comparerID, cfg, opts...), objects: objects}
}

type compareRequest struct {
	Source              string  `json:"source_image"`
	Target              string  `json:"target_image"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

type faceMatch struct {
	Similarity float64 `json:"similarity"`
}

type compareResponse struct {
	FaceMatches    []faceMatch `json:"face_matches"`
	UnmatchedFaces int         `json:"unmatched_faces"`
	NoFaceDetected bool        `json:"no_face_detected"`
}

// CompareFaces returns the best similarity found. No face in either image is
// a non-match with score 0, not an error.
func (c *Comparer) CompareFaces(ctx context.Context, sourceKey, targetKey string, threshold float64) (*models.MatchResult, error) {
	source, err := c.load(ctx, sourceKey)
	if err != nil {
		return nil, err
	}
	target, err := c.load(ctx, targetKey)
	if err != nil {
		return nil, err
	}

	var resp compareResponse
	err = c.c.post(ctx, "/v1/faces/compare", compareRequest{
		Source:              base64.StdEncoding.EncodeToString(source),
		Target:              base64.StdEncoding.EncodeToString(target),
		SimilarityThreshold: threshold,
	}, &resp)
	if err != nil {
		return nil, err
	}

	result := &models.MatchResult{SourceKey: sourceKey, TargetKey: targetKey}
	if resp.NoFaceDetected {
		return result, nil
	}
	for _, m := range resp.FaceMatches {
		if m.Similarity < 0 || m.Similarity > 100 {
			return nil, contractError(comparerID, "similarity %.2f outside 0-100", m.Similarity)
		}
		if m.Similarity > result.Score {
			result.Score = m.Similarity
		}
	}
	result.Matched = len(resp.FaceMatches) > 0 && result.Score >= threshold
	return result, nil
}

func (c *Comparer) load(ctx context.Context, key string) ([]byte, error) {
	data, err := c.objects.Get(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, providers.NewProviderError(providers.ErrorNotFound, comparerID, fmt.Sprintf("image %s not found", key), err)
	}
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorProviderOutage, comparerID, fmt.Sprintf("load image %s", key), err)
	}
	if len(data) == 0 {
		return nil, providers.NewProviderError(providers.ErrorBadData, comparerID, fmt.Sprintf("image %s is empty", key), nil)
	}
	return data, nil
}

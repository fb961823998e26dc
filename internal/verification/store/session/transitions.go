package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"onboarding/internal/verification/models"
	id "onboarding/pkg/domain"
	"onboarding/pkg/platform/sentinel"
)

// ErrMatchRejected reports a comparison that ran but did not match. The
// attempt is counted and the session stays at documents_verified.
var ErrMatchRejected = errors.New("face match rejected")

// Error Contract:
// All store methods follow this error pattern:
// - ErrNotFound when the session does not exist, and from FindByID for a
//   registered session; Execute still hands registered sessions to validate
//   until their TTL passes, so a repeated registration is a stage error
// - ErrExpired when the session outlived its TTL or was swept
// - ErrInvalidState when a transition is attempted from the wrong stage
// - ErrConflict when Create collides with an existing id
// - validate errors from Execute are returned unchanged

type executor interface {
	Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error)
}

func requireStage(s *models.Session, want models.Stage) error {
	if s.Stage != want {
		return fmt.Errorf("session is %s, want %s: %w", s.Stage, want, sentinel.ErrInvalidState)
	}
	return nil
}

func advanceToFaceVerified(ctx context.Context, ex executor, sessionID id.SessionID, match models.MatchResult, selfieKey string) error {
	_, err := ex.Execute(ctx, sessionID,
		func(s *models.Session) error {
			return requireStage(s, models.StageDocumentsVerified)
		},
		func(s *models.Session) {
			s.SelfieAttempts++
			if !match.Matched {
				return
			}
			s.Stage = models.StageFaceVerified
			s.Biometric = &models.Biometric{
				SelfieImageKey: selfieKey,
				MatchScore:     match.Score,
				Matched:        true,
			}
		},
	)
	if err != nil {
		return err
	}
	if !match.Matched {
		return ErrMatchRejected
	}
	return nil
}

func advanceToRegistered(ctx context.Context, ex executor, sessionID id.SessionID, decision models.RiskDecision) error {
	_, err := ex.Execute(ctx, sessionID,
		func(s *models.Session) error {
			if err := requireStage(s, models.StageFaceVerified); err != nil {
				return err
			}
			if !decision.Approved {
				return fmt.Errorf("registration not approved: %w", sentinel.ErrInvalidState)
			}
			return nil
		},
		func(s *models.Session) {
			d := decision
			s.Stage = models.StageRegistered
			s.Decision = &d
			s.FinalizingUntil = time.Time{}
		},
	)
	return err
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"onboarding/internal/verification/models"
	id "onboarding/pkg/domain"
	dErrors "onboarding/pkg/domain-errors"
	audit "onboarding/pkg/platform/audit"
	"onboarding/pkg/platform/sentinel"
	"onboarding/pkg/requestcontext"
)

const (
	opGetStatus = "get_status"
	opAbandon   = "abandon"
)

// GetStatus returns the read model of a live session.
func (s *Service) GetStatus(ctx context.Context, sessionID id.SessionID) (status *models.Status, err error) {
	ctx, span := s.startSpan(ctx, opGetStatus, sessionID)
	defer func() { s.finish(span, opGetStatus, err) }()

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return models.NewStatus(sess), nil
}

// Abandon ends a session at the customer's request and deletes its images.
// Registered sessions and sessions being finalized cannot be abandoned.
func (s *Service) Abandon(ctx context.Context, sessionID id.SessionID) (err error) {
	ctx, span := s.startSpan(ctx, opAbandon, sessionID)
	defer func() { s.finish(span, opAbandon, err) }()

	now := requestcontext.Now(ctx)
	sess, err := s.sessions.Execute(ctx, sessionID,
		func(sess *models.Session) error {
			if err := authorize(ctx, sess); err != nil {
				return err
			}
			if sess.Stage == models.StageRegistered {
				return dErrors.New(dErrors.CodeInvalidState, "session is already registered")
			}
			if sess.IsFinalizing(now) {
				return dErrors.New(dErrors.CodeInvalidState, "registration in progress")
			}
			return nil
		},
		func(sess *models.Session) {
			sess.Stage = models.StageFailed
		},
	)
	if err != nil {
		return translateStoreError(err, "failed to abandon session")
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete abandoned session", "error", err, "session_id", sessionID.String())
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete session")
	}

	keys := append([]string(nil), sess.DocumentImageKeys...)
	if sess.Biometric != nil {
		keys = append(keys, sess.Biometric.SelfieImageKey)
	}
	s.deleteImages(ctx, keys...)
	s.logAudit(ctx, audit.EventSessionAbandoned, sessionID, "stage", string(models.StageFailed))
	return nil
}

// ExpireStaleSessions marks every session whose TTL passed before now as
// expired and returns how many were marked. Sessions that were deleted or
// registered in the meantime are skipped.
func (s *Service) ExpireStaleSessions(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.sessions.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	var (
		expired int
		errs    error
	)
	for _, sessionID := range ids {
		err := s.sessions.MarkExpired(ctx, sessionID, now)
		switch {
		case err == nil:
			expired++
			s.logAudit(requestcontext.WithTime(ctx, now), audit.EventSessionExpired, sessionID,
				"stage", string(models.StageExpired),
			)
		case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrInvalidState):
		default:
			errs = multierr.Append(errs, fmt.Errorf("expire session %s: %w", sessionID, err))
		}
	}
	s.metrics.AddExpired(expired)
	return expired, errs
}

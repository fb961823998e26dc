package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"onboarding/internal/verification/finalizer"
	"onboarding/internal/verification/models"
	id "onboarding/pkg/domain"
	dErrors "onboarding/pkg/domain-errors"
	audit "onboarding/pkg/platform/audit"
	"onboarding/pkg/platform/sentinel"
	"onboarding/pkg/requestcontext"
)

const opCompleteRegistration = "complete_registration"

// CompleteRegistration evaluates the risk policy and creates the customer.
// The session is claimed for FinalizeLease before the finalizer runs, so
// concurrent calls for one session cannot both create a customer. On success
// the session moves to registered and stays behind, hidden from GetStatus,
// until its TTL so a repeated call is refused as invalid_state.
func (s *Service) CompleteRegistration(ctx context.Context, sessionID id.SessionID, profile models.UserProfile) (customerID id.CustomerID, err error) {
	ctx, span := s.startSpan(ctx, opCompleteRegistration, sessionID)
	defer func() { s.finish(span, opCompleteRegistration, err) }()

	if err := profile.Validate(); err != nil {
		return id.CustomerID{}, err
	}

	now := requestcontext.Now(ctx)
	sess, err := s.claim(ctx, sessionID, now)
	if err != nil {
		return id.CustomerID{}, err
	}

	decision := s.policy.Evaluate(sess.Document.Confidence, sess.Biometric.MatchScore, now)
	s.metrics.IncrementDecision(decision.Approved)
	if !decision.Approved {
		s.release(ctx, sessionID)
		s.logAudit(ctx, audit.EventRegistrationRejected, sessionID,
			"stage", string(sess.Stage),
			"decision", "rejected",
			"reason", strings.Join(decision.Reasons, "; "),
		)
		return id.CustomerID{}, dErrors.WithReasons(dErrors.CodeRegistrationRejected, "registration rejected by risk policy", decision.Reasons)
	}

	finalizeCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalCallTimeout)
	customerID, err = s.finalizer.Finalize(finalizeCtx, finalizer.Request{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Profile:   profile,
		Document:  *sess.Document,
		ImageKeys: sess.DocumentImageKeys,
		Biometric: *sess.Biometric,
		Decision:  decision,
	})
	cancel()
	if err != nil {
		s.release(ctx, sessionID)
		if errors.Is(err, sentinel.ErrConflict) {
			return id.CustomerID{}, dErrors.Wrap(err, dErrors.CodeConflict, "customer already exists")
		}
		s.logger.ErrorContext(ctx, "failed to create customer", "error", err, "session_id", sessionID.String())
		return id.CustomerID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create customer")
	}

	// The customer exists from here on; store failures are logged, not
	// returned, so the caller never retries into a second customer.
	if err := s.sessions.AdvanceToRegistered(ctx, sessionID, decision); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark session registered",
			"error", err,
			"session_id", sessionID.String(),
			"customer_id", customerID.String(),
		)
		// The claim still blocks a second registration until the lease ends;
		// dropping the session blocks it for good.
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete registered session",
				"error", err,
				"session_id", sessionID.String(),
			)
		}
	} else {
		s.metrics.IncrementTransition(string(models.StageRegistered))
	}
	s.logAudit(ctx, audit.EventRegistrationCompleted, sessionID,
		"stage", string(models.StageRegistered),
		"decision", "approved",
		"customer_id", customerID.String(),
	)
	s.enqueueScreening(ctx, customerID)
	return customerID, nil
}

// claim marks the session as finalizing until now+FinalizeLease. Only a
// face_verified session without a live claim can be claimed.
func (s *Service) claim(ctx context.Context, sessionID id.SessionID, now time.Time) (*models.Session, error) {
	sess, err := s.sessions.Execute(ctx, sessionID,
		func(sess *models.Session) error {
			if err := authorize(ctx, sess); err != nil {
				return err
			}
			if sess.Stage != models.StageFaceVerified {
				return dErrors.Newf(dErrors.CodeInvalidState, "registration not allowed for a %s session", sess.Stage)
			}
			if sess.IsFinalizing(now) {
				return dErrors.New(dErrors.CodeInvalidState, "registration already in progress")
			}
			return nil
		},
		func(sess *models.Session) {
			sess.FinalizingUntil = now.Add(s.cfg.FinalizeLease)
		},
	)
	if err != nil {
		return nil, translateStoreError(err, "failed to claim session")
	}
	return sess, nil
}

// release drops the finalizing claim after a rejected or failed registration.
func (s *Service) release(ctx context.Context, sessionID id.SessionID) {
	_, err := s.sessions.Execute(ctx, sessionID,
		func(*models.Session) error { return nil },
		func(sess *models.Session) {
			sess.FinalizingUntil = time.Time{}
		},
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to release registration claim",
			"error", err,
			"session_id", sessionID.String(),
		)
	}
}

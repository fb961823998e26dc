package service

import (
	"context"
	"errors"

	"onboarding/internal/verification/models"
	"onboarding/internal/verification/providers"
	sessionstore "onboarding/internal/verification/store/session"
	id "onboarding/pkg/domain"
	dErrors "onboarding/pkg/domain-errors"
	audit "onboarding/pkg/platform/audit"
)

const (
	opSubmitSelfie   = "submit_selfie"
	providerComparer = "face-comparer"
)

// SubmitSelfie compares the selfie against the first document image. A
// rejected match returns the result together with CodeMatchRejected and
// leaves the session at documents_verified, until MaxSelfieAttempts
// rejections fail the session.
func (s *Service) SubmitSelfie(ctx context.Context, sessionID id.SessionID, selfie models.Blob) (result *models.MatchResult, err error) {
	ctx, span := s.startSpan(ctx, opSubmitSelfie, sessionID)
	defer func() { s.finish(span, opSubmitSelfie, err) }()

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Stage != models.StageDocumentsVerified {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "selfie not accepted for a %s session", sess.Stage)
	}
	if len(sess.DocumentImageKeys) == 0 {
		return nil, dErrors.New(dErrors.CodeInternal, "session has no document image")
	}
	selfie, err = s.checkImage("selfie", selfie)
	if err != nil {
		return nil, err
	}

	putCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalCallTimeout)
	selfieKey, err := s.objects.Put(putCtx, selfie.Data, selfie.ContentType)
	cancel()
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to store selfie", "error", err, "session_id", sessionID.String())
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store selfie")
	}
	discardSelfie := func() { s.deleteImages(ctx, selfieKey) }

	result, err = s.compare(ctx, sessionID, sess.DocumentImageKeys[0], selfieKey)
	if err != nil {
		discardSelfie()
		return nil, err
	}

	err = s.sessions.AdvanceToFaceVerified(ctx, sessionID, *result, selfieKey)
	switch {
	case err == nil:
		s.metrics.IncrementTransition(string(models.StageFaceVerified))
		s.logAudit(ctx, audit.EventSelfieMatched, sessionID, "stage", string(models.StageFaceVerified))
		return result, nil
	case errors.Is(err, sessionstore.ErrMatchRejected):
		discardSelfie()
		s.logAudit(ctx, audit.EventSelfieRejected, sessionID,
			"stage", string(models.StageDocumentsVerified),
			"reason", "face does not match document",
		)
		if failed := s.failIfExhausted(ctx, sessionID); failed {
			return result, dErrors.New(dErrors.CodeMatchRejected, "too many selfie attempts, session failed")
		}
		return result, dErrors.New(dErrors.CodeMatchRejected, "face does not match document")
	default:
		discardSelfie()
		return nil, translateStoreError(err, "failed to record face match")
	}
}

// compare calls the face comparer with retries. A provider claiming a match
// below the configured threshold is treated as a rejection.
func (s *Service) compare(ctx context.Context, sessionID id.SessionID, sourceKey, targetKey string) (*models.MatchResult, error) {
	var res *models.MatchResult
	err := s.callProvider(ctx, providerComparer, func(ctx context.Context) error {
		var err error
		res, err = s.comparer.CompareFaces(ctx, sourceKey, targetKey, s.cfg.SimilarityThreshold)
		return err
	})
	if err == nil && res == nil {
		err = providers.NewProviderError(providers.ErrorContractMismatch, providerComparer, "no comparison result returned", nil)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "face comparison failed",
			"error", err,
			"category", string(providers.GetCategory(err)),
			"session_id", sessionID.String(),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeComparisonFailed, "face comparison failed")
	}
	return &models.MatchResult{
		Matched:   res.Matched && res.Score >= s.cfg.SimilarityThreshold,
		Score:     res.Score,
		SourceKey: sourceKey,
		TargetKey: targetKey,
	}, nil
}

// failIfExhausted moves the session to failed once the rejected attempts
// reach the limit. It reports whether the session failed.
func (s *Service) failIfExhausted(ctx context.Context, sessionID id.SessionID) bool {
	_, err := s.sessions.Execute(ctx, sessionID,
		func(sess *models.Session) error {
			if sess.Stage != models.StageDocumentsVerified || sess.SelfieAttempts < s.cfg.MaxSelfieAttempts {
				return errAttemptsRemain
			}
			return nil
		},
		func(sess *models.Session) {
			sess.Stage = models.StageFailed
		},
	)
	if errors.Is(err, errAttemptsRemain) {
		return false
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to check selfie attempts", "error", err, "session_id", sessionID.String())
		return false
	}
	s.metrics.IncrementTransition(string(models.StageFailed))
	s.logAudit(ctx, audit.EventSessionFailed, sessionID,
		"stage", string(models.StageFailed),
		"reason", "too many selfie attempts",
	)
	return true
}

var errAttemptsRemain = errors.New("selfie attempts remain")

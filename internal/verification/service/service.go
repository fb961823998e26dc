// Package service runs the onboarding verification workflow: documents, then
// face match, then registration. It owns stage ordering, retries against the
// external providers and the single customer creation per session.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creasty/defaults"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"onboarding/internal/verification/finalizer"
	"onboarding/internal/verification/metrics"
	"onboarding/internal/verification/models"
	"onboarding/internal/verification/ports"
	"onboarding/internal/verification/scoring"
	"onboarding/pkg/attrs"
	id "onboarding/pkg/domain"
	dErrors "onboarding/pkg/domain-errors"
	audit "onboarding/pkg/platform/audit"
	"onboarding/pkg/platform/sentinel"
	"onboarding/pkg/requestcontext"
)

// SessionStore persists sessions. Implementations serialize mutations per
// session id and return sentinel errors (see store/session).
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error)
	AdvanceToFaceVerified(ctx context.Context, sessionID id.SessionID, match models.MatchResult, selfieKey string) error
	AdvanceToRegistered(ctx context.Context, sessionID id.SessionID, decision models.RiskDecision) error
	Delete(ctx context.Context, sessionID id.SessionID) error
	ListExpired(ctx context.Context, now time.Time) ([]id.SessionID, error)
	MarkExpired(ctx context.Context, sessionID id.SessionID, now time.Time) error
}

type Finalizer interface {
	Finalize(ctx context.Context, req finalizer.Request) (id.CustomerID, error)
}

// CustomerLookup answers whether a document was already used to register.
type CustomerLookup interface {
	ExistsByDocumentNumber(ctx context.Context, number string) (bool, error)
}

// Config holds the workflow limits. Zero values take the defaults below.
type Config struct {
	SimilarityThreshold     float64       `default:"90"`
	MinExtractionConfidence float64       `default:"0.7"`
	MaxDocuments            int           `default:"2"`
	MaxImageBytes           int64         `default:"10485760"`
	MaxSelfieAttempts       int           `default:"5"`
	SessionTTL              time.Duration `default:"30m"`
	ExternalCallTimeout     time.Duration `default:"30s"`
	MaxRetries              uint64        `default:"2"`
	RetryBaseBackoff        time.Duration `default:"100ms"`
	FinalizeLease           time.Duration `default:"2m"`
	ScreeningQueueSize      int           `default:"256"`
}

// Service orchestrates the verification workflow.
type Service struct {
	sessions  SessionStore
	objects   ports.ObjectStore
	extractor ports.DocumentExtractor
	comparer  ports.FaceComparer
	finalizer Finalizer
	customers CustomerLookup
	policy    scoring.Policy
	cfg       Config
	auditor   ports.AuditPort
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer

	screener    ports.ScreeningPort
	screenings  ScreeningRecorder
	screenQueue chan id.CustomerID
}

type Option func(*Service)

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditor(auditor ports.AuditPort) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithCustomerLookup enables rejection of documents that already belong to a customer.
func WithCustomerLookup(customers CustomerLookup) Option {
	return func(s *Service) {
		s.customers = customers
	}
}

// WithScreening enables the AML and credit checks run after registration.
// RunScreening must be started for queued customers to be screened.
func WithScreening(screener ports.ScreeningPort, customers ScreeningRecorder) Option {
	return func(s *Service) {
		s.screener = screener
		s.screenings = customers
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service.
func New(
	sessions SessionStore,
	objects ports.ObjectStore,
	extractor ports.DocumentExtractor,
	comparer ports.FaceComparer,
	fin Finalizer,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		sessions:  sessions,
		objects:   objects,
		extractor: extractor,
		comparer:  comparer,
		finalizer: fin,
		logger:    slog.Default(),
		tracer:    otel.Tracer("onboarding/verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := defaults.Set(&s.cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if s.cfg.SimilarityThreshold < 0 || s.cfg.SimilarityThreshold > 100 {
		return nil, fmt.Errorf("similarity threshold %.2f outside [0,100]", s.cfg.SimilarityThreshold)
	}
	if s.cfg.FinalizeLease <= s.cfg.ExternalCallTimeout {
		return nil, fmt.Errorf("finalize lease %s must exceed external call timeout %s", s.cfg.FinalizeLease, s.cfg.ExternalCallTimeout)
	}
	policy, err := scoring.NewPolicy(scoring.Policy{
		MinExtractionConfidence: s.cfg.MinExtractionConfidence,
		MinMatchScore:           s.cfg.SimilarityThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("build risk policy: %w", err)
	}
	s.policy = policy
	if s.screener != nil && s.screenings != nil {
		s.screenQueue = make(chan id.CustomerID, s.cfg.ScreeningQueueSize)
	}
	return s, nil
}

// loadSession reads a session, folding expiry into not-found.
func (s *Service) loadSession(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load session")
	}
	if err := authorize(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// authorize hides a session from an authenticated caller who does not own it.
// Anonymous callers and sessions opened anonymously are not checked.
func authorize(ctx context.Context, sess *models.Session) error {
	caller := requestcontext.UserID(ctx)
	if caller.IsNil() || sess.UserID.IsNil() || caller == sess.UserID {
		return nil
	}
	return dErrors.New(dErrors.CodeNotFound, "session not found")
}

// translateStoreError maps store sentinels onto domain codes. Domain errors
// raised inside Execute callbacks pass through unchanged.
func translateStoreError(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired):
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "session is not in the required stage")
	case errors.Is(err, sentinel.ErrBusy):
		return dErrors.Wrap(err, dErrors.CodeConflict, "session is being modified, retry")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func (s *Service) startSpan(ctx context.Context, operation string, sessionID id.SessionID) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "verification."+operation)
	if !sessionID.IsNil() {
		span.SetAttributes(attribute.String("session.id", sessionID.String()))
	}
	return ctx, span
}

// finish closes the span and counts the operation outcome.
func (s *Service) finish(span trace.Span, operation string, err error) {
	result := "ok"
	if err != nil {
		result = string(dErrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	span.End()
	s.metrics.IncrementOutcome(operation, result)
}

// logAudit writes an audit log line and emits the event. Recognised
// attributes: stage, reason, decision, customer_id.
func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, sessionID id.SessionID, attributes ...any) {
	subject := ""
	if !sessionID.IsNil() {
		subject = sessionID.String()
	}
	s.emitAudit(ctx, event, subject, attrs.Set(attributes).With("session_id", subject))
}

// logCustomerAudit is logAudit for events that happen after the session is
// gone; the customer is the subject.
func (s *Service) logCustomerAudit(ctx context.Context, event audit.AuditEvent, customerID id.CustomerID, attributes ...any) {
	s.emitAudit(ctx, event, customerID.String(), attrs.Set(attributes).With("customer_id", customerID))
}

func (s *Service) emitAudit(ctx context.Context, event audit.AuditEvent, subject string, set attrs.Set) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		set = set.With("request_id", requestID)
	}
	s.logger.InfoContext(ctx, string(event), set.With("event", string(event)).With("log_type", "audit")...)

	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Category:   event.Category(),
		Timestamp:  requestcontext.Now(ctx),
		UserID:     requestcontext.UserID(ctx),
		Subject:    subject,
		Action:     string(event),
		Stage:      set.String("stage"),
		Decision:   set.String("decision"),
		Reason:     set.String("reason"),
		CustomerID: set.String("customer_id"),
		RequestID:  requestID,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"event", string(event),
			"subject", subject,
		)
	}
}

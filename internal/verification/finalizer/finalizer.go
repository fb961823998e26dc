// Package finalizer turns an approved verification session into a customer
// record. It is not idempotent; the orchestrator guarantees a single call per
// session.
package finalizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	customermodels "onboarding/internal/customer/models"
	"onboarding/internal/verification/models"
	id "onboarding/pkg/domain"
	audit "onboarding/pkg/platform/audit"
	txcontext "onboarding/pkg/platform/tx"
	"onboarding/pkg/requestcontext"
)

// CustomerRepository is the customer persistence the finalizer writes to.
type CustomerRepository interface {
	Create(ctx context.Context, customer *customermodels.Customer) error
}

// Request is everything a completed session contributes to the customer.
type Request struct {
	SessionID id.SessionID
	UserID    id.UserID
	Profile   models.UserProfile
	Document  models.ExtractedDocument
	ImageKeys []string
	Biometric models.Biometric
	Decision  models.RiskDecision
}

type Finalizer struct {
	customers CustomerRepository
	tx        txcontext.Runner
	journal   audit.Store
	logger    *slog.Logger
}

type Option func(*Finalizer)

// WithTxRunner runs the insert and the journal entry in one unit of work.
func WithTxRunner(r txcontext.Runner) Option {
	return func(f *Finalizer) {
		if r != nil {
			f.tx = r
		}
	}
}

// WithJournal records a customer_created entry alongside the insert.
func WithJournal(store audit.Store) Option {
	return func(f *Finalizer) {
		f.journal = store
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Finalizer) {
		f.logger = logger
	}
}

func New(customers CustomerRepository, opts ...Option) *Finalizer {
	f := &Finalizer{
		customers: customers,
		tx:        txcontext.NopRunner{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize creates the customer. Repository errors are returned unchanged so
// the caller can tell a duplicate (sentinel.ErrConflict) from an outage.
func (f *Finalizer) Finalize(ctx context.Context, req Request) (id.CustomerID, error) {
	customer := BuildCustomer(req, requestcontext.Now(ctx))

	err := f.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := f.customers.Create(ctx, customer); err != nil {
			return err
		}
		if f.journal == nil {
			return nil
		}
		if err := f.journal.Append(ctx, audit.Event{
			Category:   audit.EventCustomerCreated.Category(),
			Timestamp:  customer.CreatedAt,
			UserID:     req.UserID,
			Subject:    req.SessionID.String(),
			Action:     string(audit.EventCustomerCreated),
			Stage:      string(models.StageRegistered),
			Decision:   "approved",
			CustomerID: customer.ID.String(),
			RequestID:  requestcontext.RequestID(ctx),
		}); err != nil {
			return fmt.Errorf("journal customer creation: %w", err)
		}
		return nil
	})
	if err != nil {
		return id.CustomerID{}, err
	}

	f.logger.InfoContext(ctx, "customer created",
		"customer_id", customer.ID.String(),
		"session_id", req.SessionID.String(),
		"document_type", customer.DocumentType,
	)
	return customer.ID, nil
}

// BuildCustomer maps a finalization request onto a new customer record.
// Profile names override the names read from the document.
func BuildCustomer(req Request, now time.Time) *customermodels.Customer {
	first, last := req.Document.SplitName()
	if req.Profile.FirstName != "" {
		first = req.Profile.FirstName
	}
	if req.Profile.LastName != "" {
		last = req.Profile.LastName
	}
	return &customermodels.Customer{
		ID:                   id.NewCustomerID(),
		Email:                req.Profile.Email,
		Phone:                req.Profile.Phone,
		FirstName:            first,
		LastName:             last,
		FullName:             req.Document.FullName,
		DateOfBirth:          req.Document.DateOfBirth,
		Nationality:          req.Document.Nationality,
		DocumentType:         string(req.Document.DocumentType),
		DocumentNumber:       req.Document.DocumentNumber,
		DocumentExpiry:       req.Document.ExpiryDate,
		DocumentImageKeys:    append([]string(nil), req.ImageKeys...),
		SelfieImageKey:       req.Biometric.SelfieImageKey,
		ExtractionConfidence: req.Decision.ExtractionConfidence,
		MatchScore:           req.Decision.MatchScore,
		VerifiedAt:           req.Decision.EvaluatedAt,
		CreatedAt:            now,
		Status:               customermodels.StatusPendingScreening,
	}
}

package service

import (
	"context"
	"errors"
	"fmt"

	customermodels "onboarding/internal/customer/models"
	"onboarding/internal/verification/models"
	"onboarding/internal/verification/providers"
	"onboarding/internal/verification/scoring"
	id "onboarding/pkg/domain"
	dErrors "onboarding/pkg/domain-errors"
	audit "onboarding/pkg/platform/audit"
	"onboarding/pkg/platform/sentinel"
	"onboarding/pkg/requestcontext"
)

const (
	opScreenCustomer = "screen_customer"

	providerAML    = "aml-screener"
	providerCredit = "credit-checker"
)

// ScreeningRecorder reads customers and stores their screening result.
type ScreeningRecorder interface {
	FindByID(ctx context.Context, customerID id.CustomerID) (*customermodels.Customer, error)
	RecordScreening(ctx context.Context, customerID id.CustomerID, status customermodels.Status, screening customermodels.Screening) error
}

// enqueueScreening hands a new customer to the screening worker. A full
// queue leaves the customer pending_screening and is logged.
func (s *Service) enqueueScreening(ctx context.Context, customerID id.CustomerID) {
	if s.screenQueue == nil {
		return
	}
	select {
	case s.screenQueue <- customerID:
	default:
		s.logger.WarnContext(ctx, "screening queue full, customer left pending",
			"customer_id", customerID.String(),
		)
	}
}

// RunScreening drains the screening queue until ctx is cancelled. A failed
// screen is logged and audited; the customer stays pending_screening.
func (s *Service) RunScreening(ctx context.Context) error {
	for {
		select {
		case customerID := <-s.screenQueue:
			if _, err := s.ScreenCustomer(ctx, customerID); err != nil {
				s.logger.ErrorContext(ctx, "customer screening failed",
					"error", err,
					"customer_id", customerID.String(),
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ScreenCustomer runs the AML screen and the credit check for a customer,
// scores them and records the result and the resulting account status.
func (s *Service) ScreenCustomer(ctx context.Context, customerID id.CustomerID) (assessment *models.ScreeningAssessment, err error) {
	ctx, span := s.startSpan(ctx, opScreenCustomer, id.SessionID{})
	defer func() { s.finish(span, opScreenCustomer, err) }()

	if s.screener == nil || s.screenings == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "screening is not configured")
	}

	customer, err := s.screenings.FindByID(ctx, customerID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "customer not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load customer")
	}
	subject := models.ScreeningSubject{
		FullName:       customer.FullName,
		FirstName:      customer.FirstName,
		LastName:       customer.LastName,
		DateOfBirth:    customer.DateOfBirth,
		Nationality:    customer.Nationality,
		DocumentNumber: customer.DocumentNumber,
	}

	var aml *models.AMLResult
	err = s.callProvider(ctx, providerAML, func(ctx context.Context) error {
		var err error
		aml, err = s.screener.ScreenAML(ctx, subject)
		return err
	})
	if err == nil && aml == nil {
		err = providers.NewProviderError(providers.ErrorContractMismatch, providerAML, "no screening result returned", nil)
	}
	if err != nil {
		return nil, s.screeningFailed(ctx, customerID, providerAML, err)
	}

	var credit *models.CreditResult
	err = s.callProvider(ctx, providerCredit, func(ctx context.Context) error {
		var err error
		credit, err = s.screener.CheckCredit(ctx, subject)
		return err
	})
	if err == nil && credit == nil {
		err = providers.NewProviderError(providers.ErrorContractMismatch, providerCredit, "no credit report returned", nil)
	}
	if err != nil {
		return nil, s.screeningFailed(ctx, customerID, providerCredit, err)
	}

	result := scoring.Assess(*aml, *credit, requestcontext.Now(ctx))
	status := customerStatus(result.Outcome)
	err = s.screenings.RecordScreening(ctx, customerID, status, customermodels.Screening{
		AMLStatus:    string(result.AMLStatus),
		ScreeningID:  aml.ScreeningID,
		CreditStatus: string(result.CreditStatus),
		CreditScore:  credit.Score,
		RiskScore:    result.RiskScore,
		RiskLevel:    string(result.RiskLevel),
		ScreenedAt:   result.ScreenedAt,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record screening", "error", err, "customer_id", customerID.String())
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record screening")
	}

	s.metrics.IncrementScreening(string(result.Outcome))
	s.logCustomerAudit(ctx, audit.EventCustomerScreened, customerID,
		"decision", string(status),
		"reason", fmt.Sprintf("aml %s, credit %s, risk score %d (%s)", result.AMLStatus, result.CreditStatus, result.RiskScore, result.RiskLevel),
	)
	return &result, nil
}

func (s *Service) screeningFailed(ctx context.Context, customerID id.CustomerID, provider string, err error) error {
	category := providers.GetCategory(err)
	s.metrics.IncrementScreening("failed")
	s.logCustomerAudit(ctx, audit.EventScreeningFailed, customerID,
		"reason", provider+": "+string(category),
	)
	return dErrors.Wrap(err, dErrors.CodeInternal, provider+" check failed")
}

func customerStatus(outcome models.ScreeningOutcome) customermodels.Status {
	switch outcome {
	case models.OutcomeActive:
		return customermodels.StatusActive
	case models.OutcomeRejected:
		return customermodels.StatusRejected
	default:
		return customermodels.StatusPendingReview
	}
}

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	customermodels "onboarding/internal/customer/models"
	"onboarding/internal/verification/models"
	"onboarding/internal/verification/ports/mocks"
	"onboarding/internal/verification/providers"
	id "onboarding/pkg/domain"
	dErrors "onboarding/pkg/domain-errors"
	audit "onboarding/pkg/platform/audit"
)

func (s *ServiceSuite) withScreening(cfg Config) *mocks.MockScreeningPort {
	screener := mocks.NewMockScreeningPort(s.ctrl)
	s.service = s.newService(cfg, WithScreening(screener, s.customers))
	return screener
}

func (s *ServiceSuite) registered(number, email string) id.CustomerID {
	sessionID := s.faceVerified(wellFilled(number), 95.0)
	customerID, err := s.service.CompleteRegistration(s.ctx, sessionID, s.profile(email))
	s.Require().NoError(err)
	return customerID
}

func (s *ServiceSuite) auditEvent(action audit.AuditEvent) (audit.Event, bool) {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	for _, e := range s.events {
		if e.Action == string(action) {
			return e, true
		}
	}
	return audit.Event{}, false
}

func (s *ServiceSuite) TestScreenCustomer() {
	s.Run("clean checks activate the customer", func() {
		screener := s.withScreening(Config{})
		customerID := s.registered("AML-1", "clean@example.com")
		s.Len(s.service.screenQueue, 1)

		c, err := s.customers.FindByID(s.ctx, customerID)
		s.Require().NoError(err)
		s.Equal(customermodels.StatusPendingScreening, c.Status)

		screener.EXPECT().ScreenAML(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, subject models.ScreeningSubject) (*models.AMLResult, error) {
				s.Equal("Ada Lovelace", subject.FullName)
				s.Equal("GB", subject.Nationality)
				return &models.AMLResult{Status: models.AMLCleared, RiskLevel: models.RiskLow, ScreeningID: "scr-1"}, nil
			})
		screener.EXPECT().CheckCredit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, subject models.ScreeningSubject) (*models.CreditResult, error) {
				s.Equal("AML-1", subject.DocumentNumber)
				return &models.CreditResult{Status: models.CreditCaution, Score: 640}, nil
			})

		assessment, err := s.service.ScreenCustomer(s.ctx, customerID)
		s.Require().NoError(err)
		s.Equal(85, assessment.RiskScore)
		s.Equal(models.OutcomeActive, assessment.Outcome)

		c, err = s.customers.FindByID(s.ctx, customerID)
		s.Require().NoError(err)
		s.Equal(customermodels.StatusActive, c.Status)
		s.Equal(&customermodels.Screening{
			AMLStatus:    "cleared",
			ScreeningID:  "scr-1",
			CreditStatus: "caution",
			CreditScore:  640,
			RiskScore:    85,
			RiskLevel:    "low",
			ScreenedAt:   s.now,
		}, c.Screening)

		event, ok := s.auditEvent(audit.EventCustomerScreened)
		s.Require().True(ok)
		s.Equal(customerID.String(), event.Subject)
		s.Equal(customerID.String(), event.CustomerID)
		s.Equal(string(customermodels.StatusActive), event.Decision)
		s.Equal(audit.CategoryCompliance, event.Category)
	})

	s.Run("flagged high risk customer is rejected", func() {
		screener := s.withScreening(Config{})
		customerID := s.registered("AML-2", "flagged@example.com")

		screener.EXPECT().ScreenAML(gomock.Any(), gomock.Any()).
			Return(&models.AMLResult{Status: models.AMLFlagged, RiskLevel: models.RiskHigh, Matches: 2, ScreeningID: "scr-2"}, nil)
		screener.EXPECT().CheckCredit(gomock.Any(), gomock.Any()).
			Return(&models.CreditResult{Status: models.CreditPositive, Score: 760}, nil)

		_, err := s.service.ScreenCustomer(s.ctx, customerID)
		s.Require().NoError(err)

		c, err := s.customers.FindByID(s.ctx, customerID)
		s.Require().NoError(err)
		s.Equal(customermodels.StatusRejected, c.Status)
		s.Equal(40, c.Screening.RiskScore)
		s.Equal("high", c.Screening.RiskLevel)
	})

	s.Run("provider outage is retried then leaves the customer pending", func() {
		screener := s.withScreening(Config{})
		customerID := s.registered("AML-3", "outage@example.com")
		outage := providers.NewProviderError(providers.ErrorProviderOutage, "aml-screener", "503", nil)

		screener.EXPECT().ScreenAML(gomock.Any(), gomock.Any()).Return(nil, outage).Times(3)

		_, err := s.service.ScreenCustomer(s.ctx, customerID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.True(errors.Is(err, outage))

		c, err := s.customers.FindByID(s.ctx, customerID)
		s.Require().NoError(err)
		s.Equal(customermodels.StatusPendingScreening, c.Status)
		s.Nil(c.Screening)
		s.Contains(s.auditActions(), string(audit.EventScreeningFailed))
	})

	s.Run("unknown customer is not found", func() {
		s.withScreening(Config{})
		_, err := s.service.ScreenCustomer(s.ctx, id.NewCustomerID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("without screening nothing is queued", func() {
		s.service = s.newService(Config{})
		s.registered("AML-4", "unscreened@example.com")
		s.Nil(s.service.screenQueue)

		_, err := s.service.ScreenCustomer(s.ctx, id.NewCustomerID())
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("full queue leaves the customer pending", func() {
		s.withScreening(Config{ScreeningQueueSize: 1})
		s.registered("AML-5", "first@example.com")
		second := s.registered("AML-6", "second@example.com")
		s.Len(s.service.screenQueue, 1)

		c, err := s.customers.FindByID(s.ctx, second)
		s.Require().NoError(err)
		s.Equal(customermodels.StatusPendingScreening, c.Status)
	})
}

func (s *ServiceSuite) TestRunScreeningDrainsQueue() {
	screener := s.withScreening(Config{})
	customerID := s.registered("AML-7", "queued@example.com")

	screener.EXPECT().ScreenAML(gomock.Any(), gomock.Any()).
		Return(&models.AMLResult{Status: models.AMLCleared, RiskLevel: models.RiskLow, ScreeningID: "scr-7"}, nil)
	screener.EXPECT().CheckCredit(gomock.Any(), gomock.Any()).
		Return(&models.CreditResult{Status: models.CreditPositive, Score: 720}, nil)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.service.RunScreening(ctx) }()

	s.Eventually(func() bool {
		c, err := s.customers.FindByID(s.ctx, customerID)
		return err == nil && c.Status == customermodels.StatusActive
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	s.ErrorIs(<-done, context.Canceled)
}

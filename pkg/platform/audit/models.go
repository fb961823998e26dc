package audit

import (
	"context"
	"time"

	id "onboarding/pkg/domain"
)

// EventCategory classifies audit events for routing and retention.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: customer
	// creation and the risk decision behind it.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers rejections and anything an investigator would pull
	// when reviewing a fraudulent onboarding attempt.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine stage progress.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the verification workflow on every session transition.
// Subject is the session id, or the customer id for post-registration
// screening; CustomerID is set once a customer exists.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	UserID     id.UserID
	Subject    string
	Action     string
	Stage      string
	Decision   string
	Reason     string
	CustomerID string
	RequestID  string
}

type AuditEvent string

const (
	EventDocumentsVerified     AuditEvent = "documents_verified"
	EventDocumentsRejected     AuditEvent = "documents_rejected"
	EventSelfieMatched         AuditEvent = "selfie_matched"
	EventSelfieRejected        AuditEvent = "selfie_rejected"
	EventSessionFailed         AuditEvent = "session_failed"
	EventRegistrationRejected  AuditEvent = "registration_rejected"
	EventRegistrationCompleted AuditEvent = "registration_completed"
	EventCustomerCreated       AuditEvent = "customer_created"
	EventSessionAbandoned      AuditEvent = "session_abandoned"
	EventSessionExpired        AuditEvent = "session_expired"
	EventCustomerScreened      AuditEvent = "customer_screened"
	EventScreeningFailed       AuditEvent = "screening_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRegistrationCompleted: CategoryCompliance,
	EventRegistrationRejected:  CategoryCompliance,
	EventCustomerCreated:       CategoryCompliance,
	EventCustomerScreened:      CategoryCompliance,

	EventDocumentsRejected: CategorySecurity,
	EventSelfieRejected:    CategorySecurity,
	EventSessionFailed:     CategorySecurity,

	EventDocumentsVerified: CategoryOperations,
	EventSelfieMatched:     CategoryOperations,
	EventSessionAbandoned:  CategoryOperations,
	EventSessionExpired:    CategoryOperations,
	EventScreeningFailed:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

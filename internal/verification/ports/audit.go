package ports

//go:generate mockgen -source=audit.go -destination=mocks/audit-mocks.go -package=mocks

import (
	"context"

	"onboarding/pkg/platform/audit"
)

// AuditPort emits audit events. Defined here to keep the service independent
// of the publisher implementation.
type AuditPort interface {
	Emit(ctx context.Context, event audit.Event) error
}

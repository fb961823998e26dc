package sentinel

import "errors"

// Infrastructure facts returned by stores and adapters, optionally wrapped.
// Services translate them into pkg/domain-errors codes; handlers never see them.
//
//   - ErrNotFound: no such session, customer or object
//   - ErrConflict: a unique key (email, document number) is already taken
//   - ErrExpired: the session outlived its TTL
//   - ErrInvalidState: the session is at the wrong stage for the mutation
//   - ErrBusy: the session is claimed by another in-flight operation
//   - ErrUnavailable: a backing service is temporarily unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrBusy         = errors.New("busy")
	ErrUnavailable  = errors.New("unavailable")
)

package testutil

import (
	"net/http"

	id "onboarding/pkg/domain"
	"onboarding/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context the way the auth middleware
// would. Invalid IDs are ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsed, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
	}
	return req
}

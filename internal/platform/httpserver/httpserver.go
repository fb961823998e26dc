package httpserver

import (
	"net/http"
	"time"

	"onboarding/internal/platform/config"
)

// New builds the HTTP server. Write timeout covers multipart uploads plus the
// external extraction call behind them.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

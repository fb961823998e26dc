package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	jwttoken "onboarding/internal/jwt_token"
	"onboarding/internal/platform/config"
	"onboarding/internal/platform/metrics"
	ratelimitmetrics "onboarding/internal/ratelimit/metrics"
	ratelimit "onboarding/internal/ratelimit/middleware"
	ratelimitmodels "onboarding/internal/ratelimit/models"
	"onboarding/internal/verification/handler"
	"onboarding/pkg/platform/httputil"
	"onboarding/pkg/platform/middleware/auth"
)

func newRouter(cfg *config.Config, a *app, in *infra, reg *prometheus.Registry, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(metrics.New(reg).Middleware)

	r.Get("/health", healthHandler(in))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	var validator auth.JWTValidator
	if cfg.Server.JWTSigningKey != "" {
		validator = jwttoken.NewJWTServiceAdapter(
			jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer),
		)
	} else {
		log.Warn("JWT_SIGNING_KEY not set, onboarding endpoints are unauthenticated")
	}
	limiter := ratelimit.New(a.buckets,
		map[ratelimitmodels.EndpointClass]ratelimitmodels.Limit{
			ratelimitmodels.ClassUpload: {Requests: cfg.RateLimit.UploadRequests, Window: cfg.RateLimit.Window},
			ratelimitmodels.ClassRead:   {Requests: cfg.RateLimit.ReadRequests, Window: cfg.RateLimit.Window},
		},
		log,
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
		ratelimit.WithMetrics(ratelimitmetrics.New(reg)),
	)
	handler.New(a.service, log, validator, cfg.Verification.MaxImageBytes,
		handler.WithRateLimiter(limiter),
	).Register(r)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func healthHandler(in *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if in.redis != nil {
			status["redis"] = "ok"
			if err := in.redis.Health(ctx); err != nil {
				status["redis"], status["status"], code = err.Error(), "degraded", http.StatusServiceUnavailable
			}
		}
		if in.db != nil {
			status["postgres"] = "ok"
			if err := in.db.PingContext(ctx); err != nil {
				status["postgres"], status["status"], code = err.Error(), "degraded", http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, code, status)
	}
}

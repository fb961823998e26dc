package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	ratelimitmodels "onboarding/internal/ratelimit/models"
	"onboarding/internal/verification/models"
	id "onboarding/pkg/domain"
	dErrors "onboarding/pkg/domain-errors"
	"onboarding/pkg/platform/httputil"
	"onboarding/pkg/platform/middleware/auth"
	"onboarding/pkg/platform/middleware/metadata"
	"onboarding/pkg/platform/middleware/requesttime"
	"onboarding/pkg/requestcontext"
)

// Service defines the verification operations exposed over HTTP.
type Service interface {
	SubmitDocuments(ctx context.Context, userID id.UserID, images []models.Blob) (id.SessionID, *models.ExtractedDocument, error)
	SubmitSelfie(ctx context.Context, sessionID id.SessionID, selfie models.Blob) (*models.MatchResult, error)
	CompleteRegistration(ctx context.Context, sessionID id.SessionID, profile models.UserProfile) (id.CustomerID, error)
	GetStatus(ctx context.Context, sessionID id.SessionID) (*models.Status, error)
	Abandon(ctx context.Context, sessionID id.SessionID) error
}

// RateLimiter returns middleware limiting one class of endpoints.
type RateLimiter interface {
	RateLimit(class ratelimitmodels.EndpointClass) func(http.Handler) http.Handler
}

// Handler serves the onboarding endpoints.
type Handler struct {
	service       Service
	logger        *slog.Logger
	jwtValidator  auth.JWTValidator
	limiter       RateLimiter
	maxImageBytes int64
}

type Option func(*Handler)

func WithRateLimiter(limiter RateLimiter) Option {
	return func(h *Handler) {
		h.limiter = limiter
	}
}

// New creates a Handler. A nil validator disables authentication.
func New(service Service, logger *slog.Logger, jwtValidator auth.JWTValidator, maxImageBytes int64, opts ...Option) *Handler {
	h := &Handler{
		service:       service,
		logger:        logger,
		jwtValidator:  jwtValidator,
		maxImageBytes: maxImageBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the onboarding routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/onboarding", func(r chi.Router) {
		r.Use(chimw.Recoverer)
		r.Use(metadata.ClientMetadata)
		r.Use(requesttime.Middleware)
		r.Use(auth.RequireAuth(h.jwtValidator, h.logger))

		upload := h.limit(ratelimitmodels.ClassUpload)
		read := h.limit(ratelimitmodels.ClassRead)

		r.With(upload).Post("/documents", h.handleSubmitDocuments)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.With(read).Get("/", h.handleGetStatus)
			r.With(read).Delete("/", h.handleAbandon)
			r.With(upload).Post("/selfie", h.handleSubmitSelfie)
			r.With(upload).Post("/register", h.handleCompleteRegistration)
		})
	})
}

func (h *Handler) limit(class ratelimitmodels.EndpointClass) func(http.Handler) http.Handler {
	if h.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return h.limiter.RateLimit(class)
}

func (h *Handler) handleSubmitDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !h.parseMultipart(w, r, 2) {
		return
	}
	front, err := h.readImage(r, "front")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	images := []models.Blob{*front}
	back, err := h.readImage(r, "back")
	switch {
	case err == nil:
		images = append(images, *back)
	case !errors.Is(err, http.ErrMissingFile):
		httputil.WriteError(w, err)
		return
	}

	sessionID, doc, err := h.service.SubmitDocuments(ctx, requestcontext.UserID(ctx), images)
	if err != nil {
		h.logger.WarnContext(ctx, "document submission failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, submitDocumentsResponse{SessionID: sessionID, Document: doc})
}

func (h *Handler) handleSubmitSelfie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if !h.parseMultipart(w, r, 1) {
		return
	}
	selfie, err := h.readImage(r, "selfie")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.SubmitSelfie(ctx, sessionID, *selfie)
	if err != nil {
		h.logger.WarnContext(ctx, "selfie submission failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID.String(),
			"error", err,
		)
		if dErrors.HasCode(err, dErrors.CodeMatchRejected) && result != nil {
			de, _ := dErrors.As(err)
			httputil.WriteJSON(w, http.StatusUnprocessableEntity, selfieRejectedResponse{
				Error:            string(dErrors.CodeMatchRejected),
				ErrorDescription: de.Message,
				Matched:          false,
				Score:            result.Score,
			})
			return
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, selfieResponse{Matched: result.Matched, Score: result.Score})
}

func (h *Handler) handleCompleteRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeForm[registerRequest](w, r, h.logger)
	if !ok {
		return
	}

	customerID, err := h.service.CompleteRegistration(ctx, sessionID, req.toProfile())
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, registerResponse{CustomerID: customerID})
}

func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	status, err := h.service.GetStatus(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) handleAbandon(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.service.Abandon(r.Context(), sessionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (id.SessionID, bool) {
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid session id"))
		return id.SessionID{}, false
	}
	return sessionID, true
}

// parseMultipart bounds the body to files images plus form overhead.
func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request, files int64) bool {
	const overhead = 64 << 10
	r.Body = http.MaxBytesReader(w, r.Body, files*h.maxImageBytes+overhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "upload too large"))
			return false
		}
		h.logger.WarnContext(r.Context(), "failed to parse multipart form", "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart body"))
		return false
	}
	return true
}

// readImage reads one uploaded file. A missing field returns http.ErrMissingFile
// wrapped in a validation error.
func (h *Handler) readImage(r *http.Request, field string) (*models.Blob, error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, field+" image is required")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid "+field+" upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxImageBytes+1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read "+field+" upload")
	}
	return &models.Blob{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}, nil
}

package service

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	_ "golang.org/x/image/webp"

	"onboarding/internal/verification/models"
	"onboarding/internal/verification/providers"
	dErrors "onboarding/pkg/domain-errors"
)

var allowedImageFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// checkImage enforces the size limit and sniffs the content type from the
// image header. The declared type of the upload is ignored.
func (s *Service) checkImage(name string, blob models.Blob) (models.Blob, error) {
	if len(blob.Data) == 0 {
		return blob, dErrors.Newf(dErrors.CodeValidation, "%s image is empty", name)
	}
	if int64(len(blob.Data)) > s.cfg.MaxImageBytes {
		return blob, dErrors.Newf(dErrors.CodeValidation, "%s image exceeds %d bytes", name, s.cfg.MaxImageBytes)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(blob.Data))
	if err != nil {
		return blob, dErrors.Newf(dErrors.CodeValidation, "%s image is not a supported image type", name)
	}
	contentType, ok := allowedImageFormats[format]
	if !ok {
		return blob, dErrors.Newf(dErrors.CodeValidation, "%s image type %q is not allowed", name, format)
	}
	blob.ContentType = contentType
	return blob, nil
}

// callProvider runs fn with a per-attempt timeout, retrying retryable
// provider errors with exponential backoff up to MaxRetries extra attempts.
func (s *Service) callProvider(ctx context.Context, provider string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(s.cfg.MaxRetries, retry.NewExponential(s.cfg.RetryBaseBackoff))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if attempt > 0 {
			s.metrics.IncrementRetry(provider)
		}
		attempt++

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalCallTimeout)
		defer cancel()
		start := time.Now()
		err := fn(callCtx)
		s.metrics.ObserveProviderLatency(provider, time.Since(start))
		if err != nil && providers.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// deleteImages removes stored images best-effort. Failures are logged, never returned.
func (s *Service) deleteImages(ctx context.Context, keys ...string) {
	var errs error
	for _, key := range keys {
		if key == "" {
			continue
		}
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalCallTimeout)
		errs = multierr.Append(errs, s.objects.Delete(callCtx, key))
		cancel()
	}
	if errs != nil {
		s.logger.WarnContext(ctx, "image cleanup incomplete",
			"error", errs,
			"failed", len(multierr.Errors(errs)),
		)
	}
}

// Package provider calls the external document-extraction and face-comparison
// services over HTTP. Every call carries its own timeout and goes through a
// circuit breaker; failures come back as *providers.ProviderError.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"onboarding/internal/verification/providers"
	"onboarding/pkg/platform/circuit"
)

const maxErrorBody = 512

// Config holds the connection settings shared by both adapters.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type client struct {
	id      string
	cfg     Config
	http    *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// Option configures an adapter.
type Option func(*client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *client) {
		if b != nil {
			cl.breaker = b
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

func newClient(providerID string, cfg Config, opts ...Option) *client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &client{
		id:      providerID,
		cfg:     cfg,
		http:    &http.Client{},
		breaker: circuit.New(providerID),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// post sends body as JSON and decodes a 2xx response into out.
func (c *client) post(ctx context.Context, path string, body, out any) error {
	if !c.breaker.Allow() {
		return providers.NewProviderError(providers.ErrorProviderOutage, c.id, "circuit open", providers.ErrCircuitOpen)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return providers.NewProviderError(providers.ErrorInternal, c.id, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return providers.NewProviderError(providers.ErrorInternal, c.id, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		perr := providers.FromTransport(c.id, err)
		c.record(ctx, perr)
		return perr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		perr := providers.FromStatus(c.id, resp.StatusCode, strings.TrimSpace(string(raw)))
		c.record(ctx, perr)
		return perr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		perr := providers.NewProviderError(providers.ErrorContractMismatch, c.id, "decode response", err)
		c.record(ctx, perr)
		return perr
	}
	c.record(ctx, nil)
	return nil
}

// record feeds the breaker. Only transient faults count against the provider;
// a rejected input says nothing about its health.
func (c *client) record(ctx context.Context, err error) {
	var perr *providers.ProviderError
	if err != nil && errors.As(err, &perr) && perr.Retryable {
		_, change := c.breaker.RecordFailure()
		if change.Opened {
			c.logger.WarnContext(ctx, "provider circuit opened",
				"provider", c.id,
				"error", err,
			)
		}
		return
	}
	_, change := c.breaker.RecordSuccess()
	if change.Closed {
		c.logger.InfoContext(ctx, "provider circuit closed", "provider", c.id)
	}
}

func contractError(providerID, format string, args ...any) *providers.ProviderError {
	return providers.NewProviderError(providers.ErrorContractMismatch, providerID, fmt.Sprintf(format, args...), nil)
}

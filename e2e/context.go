//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	customerstore "onboarding/internal/customer/store"
	"onboarding/internal/verification/adapters/provider"
	"onboarding/internal/verification/finalizer"
	"onboarding/internal/verification/handler"
	"onboarding/internal/verification/models"
	"onboarding/internal/verification/service"
	objectstore "onboarding/internal/verification/store/object"
	sessionstore "onboarding/internal/verification/store/session"
)

// TestContext runs the onboarding API in process against fake providers and
// remembers the last response.
type TestContext struct {
	server    *httptest.Server
	extractor *httptest.Server
	matcher   *httptest.Server
	customers *customerstore.InMemoryStore

	mu              sync.Mutex
	document        *models.ExtractedDocument
	similarity      float64
	extractFailures int

	sessionID  string
	lastStatus int
	lastBody   []byte
}

func newTestContext() (*TestContext, error) {
	tc := &TestContext{}
	tc.extractor = httptest.NewServer(http.HandlerFunc(tc.serveExtraction))
	tc.matcher = httptest.NewServer(http.HandlerFunc(tc.serveComparison))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	providerCfg := func(baseURL string) provider.Config {
		return provider.Config{BaseURL: baseURL, Timeout: 5 * time.Second}
	}
	objects := objectstore.New()
	tc.customers = customerstore.New()

	svc, err := service.New(
		sessionstore.New(),
		objects,
		provider.NewExtractor(providerCfg(tc.extractor.URL), provider.WithLogger(logger)),
		provider.NewComparer(providerCfg(tc.matcher.URL), objects, provider.WithLogger(logger)),
		finalizer.New(tc.customers, finalizer.WithLogger(logger)),
		service.WithConfig(service.Config{
			MaxSelfieAttempts: 2,
			RetryBaseBackoff:  time.Millisecond,
		}),
		service.WithLogger(logger),
		service.WithCustomerLookup(tc.customers),
	)
	if err != nil {
		tc.Close()
		return nil, err
	}

	router := chi.NewRouter()
	handler.New(svc, logger, nil, 10<<20).Register(router)
	tc.server = httptest.NewServer(router)
	return tc, nil
}

func (tc *TestContext) Close() {
	for _, srv := range []*httptest.Server{tc.server, tc.extractor, tc.matcher} {
		if srv != nil {
			srv.Close()
		}
	}
}

func (tc *TestContext) serveExtraction(w http.ResponseWriter, _ *http.Request) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.extractFailures > 0 {
		tc.extractFailures--
		http.Error(w, "reader unavailable", http.StatusServiceUnavailable)
		return
	}
	if tc.document == nil {
		http.Error(w, "no document configured", http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"document": tc.document})
}

func (tc *TestContext) serveComparison(w http.ResponseWriter, _ *http.Request) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"face_matches": []map[string]float64{{"similarity": tc.similarity}},
	})
}

func (tc *TestContext) SetDocument(doc models.ExtractedDocument) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.document = &doc
}

func (tc *TestContext) SetSimilarity(similarity float64) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.similarity = similarity
}

func (tc *TestContext) FailExtractions(n int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.extractFailures = n
}

func (tc *TestContext) CustomerCount() int {
	return tc.customers.Count()
}

func (tc *TestContext) SessionID() string {
	return tc.sessionID
}

func (tc *TestContext) SetSessionID(sessionID string) {
	tc.sessionID = sessionID
}

func (tc *TestContext) PostMultipart(path string, files map[string][]byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, data := range files {
		part, err := mw.CreateFormFile(field, field+".png")
		if err != nil {
			return err
		}
		if _, err := part.Write(data); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return tc.do(http.MethodPost, path, mw.FormDataContentType(), &body)
}

func (tc *TestContext) PostForm(path string, values url.Values) error {
	return tc.do(http.MethodPost, path, "application/x-www-form-urlencoded", strings.NewReader(values.Encode()))
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, "", nil)
}

func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, "", nil)
}

func (tc *TestContext) do(method, path, contentType string, body io.Reader) error {
	req, err := http.NewRequest(method, tc.server.URL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := tc.server.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) StatusCode() int {
	return tc.lastStatus
}

// ResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w (%s)", err, tc.lastBody)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", field, tc.lastBody)
	}
	return v, nil
}

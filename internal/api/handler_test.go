package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	platformerrors "github.com/jmgilman/go/errors"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/box-estimator/internal/cache"
	"github.com/eugenenazirov/box-estimator/internal/estimator"
	"github.com/eugenenazirov/box-estimator/internal/logging"
	"github.com/eugenenazirov/box-estimator/internal/packing"
	"github.com/eugenenazirov/box-estimator/internal/storage"
)

type stubPacker struct {
	mu       sync.Mutex
	decision packing.Decision
	err      error
	calls    int
}

func (s *stubPacker) Pack(_ context.Context, _ []packing.Box, _ []packing.Item) (packing.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.decision, s.err
}

func (s *stubPacker) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type brokenCatalog struct{}

func (brokenCatalog) ListBoxes(context.Context) ([]packing.Box, error) {
	return nil, errors.New("connection refused")
}

func setupTestRouter(t *testing.T, p *stubPacker) http.Handler {
	t.Helper()

	catalog, err := storage.NewMemoryCatalog(storage.DefaultBoxes())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return newRouterFor(t, catalog, p)
}

func newRouterFor(t *testing.T, catalog storage.Catalog, p *stubPacker) http.Handler {
	t.Helper()

	logger := zaptest.NewLogger(t)
	svc := estimator.New(catalog, cache.NewMemory(), p, logger)
	clock := func() time.Time { return time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC) }
	handler := NewHandler(svc, WithClock(clock), WithHandlerLogger(logger))
	return NewRouter(handler, logger, WithLogging(false), WithRateLimit(0, 0))
}

func postPack(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/pack", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Message
}

func TestWriteInternalErrorHidesDetails(t *testing.T) {
	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logging.WithRequestID(req.Context(), "abc"))
	writeInternalError(resp, zaptest.NewLogger(t), req, errors.New("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "boom") {
		t.Fatalf("internal error detail leaked: %s", resp.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := setupTestRouter(t, &stubPacker{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected ok status, got %q", resp.Status)
	}
	if !resp.Timestamp.Equal(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", resp.Timestamp)
	}
}

func TestListBoxesEndpoint(t *testing.T) {
	router := setupTestRouter(t, &stubPacker{})

	req := httptest.NewRequest(http.MethodGet, "/api/boxes", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp boxesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode boxes: %v", err)
	}
	if len(resp.Boxes) != 5 {
		t.Fatalf("expected 5 boxes, got %d", len(resp.Boxes))
	}
	for i, b := range resp.Boxes {
		if b.ID != int64(i+1) {
			t.Fatalf("expected ids in order, got %d at %d", b.ID, i)
		}
	}
}

func TestPackEndpointExternalThenCache(t *testing.T) {
	p := &stubPacker{decision: packing.FitsInBox(3)}
	router := setupTestRouter(t, p)
	body := `{"products":[{"width":5,"height":12,"length":7,"weight":2}]}`

	first := postPack(t, router, body)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
	}
	if got := first.Header().Get(SourceHeader); got != string(estimator.SourceExternal) {
		t.Fatalf("expected external source, got %q", got)
	}
	if got := strings.TrimSpace(first.Body.String()); got != `{"box_id":3}` {
		t.Fatalf("unexpected body %s", got)
	}

	// Same cart, rotated item: served from cache.
	second := postPack(t, router, `{"products":[{"width":12,"height":7,"length":5,"weight":2}]}`)
	if got := second.Header().Get(SourceHeader); got != string(estimator.SourceCache) {
		t.Fatalf("expected cache source, got %q", got)
	}
	if got := strings.TrimSpace(second.Body.String()); got != `{"box_id":3}` {
		t.Fatalf("unexpected body %s", got)
	}
	if p.Calls() != 1 {
		t.Fatalf("expected one packer call, got %d", p.Calls())
	}
}

func TestPackEndpointNoFit(t *testing.T) {
	router := setupTestRouter(t, &stubPacker{decision: packing.NoFit})

	rec := postPack(t, router, `{"products":[{"width":100,"height":100,"length":100,"weight":1}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"box_id":false}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestPackEndpointFallsBackWhenPackerFails(t *testing.T) {
	p := &stubPacker{err: platformerrors.New(platformerrors.CodeTimeout, "packing service timed out")}
	router := setupTestRouter(t, p)
	body := `{"products":[{"width":5,"height":5,"length":5,"weight":1}]}`

	for i := 0; i < 2; i++ {
		rec := postPack(t, router, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := rec.Header().Get(SourceHeader); got != string(estimator.SourceFallback) {
			t.Fatalf("expected fallback source, got %q", got)
		}
		if got := strings.TrimSpace(rec.Body.String()); got != `{"box_id":1}` {
			t.Fatalf("unexpected body %s", got)
		}
	}
	if p.Calls() != 2 {
		t.Fatalf("fallback decisions must not be cached; expected 2 packer calls, got %d", p.Calls())
	}
}

func TestPackEndpointCatalogFailure(t *testing.T) {
	p := &stubPacker{decision: packing.FitsInBox(1)}
	router := newRouterFor(t, brokenCatalog{}, p)

	rec := postPack(t, router, `{"products":[{"width":1,"height":1,"length":1,"weight":1}]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := decodeMessage(t, rec); msg != "Backend configuration not available" {
		t.Fatalf("unexpected message %q", msg)
	}
	if p.Calls() != 0 {
		t.Fatalf("packer must not be called without a catalog")
	}
}

func TestPackEndpointRejectsInvalidBodies(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		body    string
		message string
	}{
		{name: "invalid json", body: `{"products":`, message: "Unable to parse the request body as JSON"},
		{name: "empty body", body: ``, message: "Unable to parse the request body as JSON"},
		{name: "empty products", body: `{"products":[]}`, message: "Input contains no items"},
		{name: "missing products", body: `{}`, message: "products: missing required array"},
		{name: "missing field", body: `{"products":[{"width":1,"height":1,"length":1}]}`, message: "products[0].weight: missing required number"},
		{name: "negative value", body: `{"products":[{"width":1,"height":1,"length":1,"weight":1},{"width":1,"height":1,"length":1,"weight":-2}]}`, message: "products[1].weight: must be a non-negative number"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := &stubPacker{decision: packing.FitsInBox(1)}
			router := setupTestRouter(t, p)

			rec := postPack(t, router, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if msg := decodeMessage(t, rec); msg != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, msg)
			}
			if p.Calls() != 0 {
				t.Fatalf("packer must not be called for invalid input")
			}
		})
	}
}

func TestPackEndpointRejectsOversizedBody(t *testing.T) {
	router := setupTestRouter(t, &stubPacker{})

	body := bytes.Repeat([]byte(" "), maxRequestBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/api/pack", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestPackEndpointRejectsWrongMethod(t *testing.T) {
	router := setupTestRouter(t, &stubPacker{})

	req := httptest.NewRequest(http.MethodGet, "/api/pack", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestPackEndpointRejectsUnreadableBody(t *testing.T) {
	p := &stubPacker{decision: packing.FitsInBox(1)}
	router := setupTestRouter(t, p)

	req := httptest.NewRequest(http.MethodPost, "/api/pack", failingReader{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeMessage(t, rec); msg != "Unable to read full body contents of the request" {
		t.Fatalf("unexpected message %q", msg)
	}
	if p.Calls() != 0 {
		t.Fatalf("packer must not be called for an unreadable body")
	}
}

func TestPackEndpointIgnoresJSONFormatting(t *testing.T) {
	p := &stubPacker{decision: packing.FitsInBox(2)}
	router := setupTestRouter(t, p)

	bodies := []string{
		`{"products":[{"width":0,"height":1,"length":2,"weight":3},{"width":4,"height":5,"length":6,"weight":7}]}`,
		"{\n  \"products\" : [\n    { \"weight\": 7, \"length\": 6, \"height\": 5, \"width\": 4 },\n    { \"length\": 2, \"weight\": 3, \"width\": 0, \"height\": 1 }\n  ]\n}\n",
		`{"products":[{"width":-0,"height":1.0,"length":2e0,"weight":3.00},{"width":6,"height":4,"length":5,"weight":7}]}`,
		`{"products":[{"width":1,"height":2,"length":-0.0,"weight":3},{"width":5.0,"height":6,"length":4,"weight":70e-1}]}`,
	}

	for i, body := range bodies {
		rec := postPack(t, router, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("body %d: expected 200, got %d: %s", i, rec.Code, rec.Body.String())
		}
		if got := strings.TrimSpace(rec.Body.String()); got != `{"box_id":2}` {
			t.Fatalf("body %d: unexpected response %s", i, got)
		}
	}
	if p.Calls() != 1 {
		t.Fatalf("expected reformatted carts to share one cache entry, got %d packer calls", p.Calls())
	}
}

package mid

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/WessleyAI/wessley-coverage/pkg/metrics"
	"golang.org/x/time/rate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChainOrder(t *testing.T) {
	var order []int
	mw := func(n int) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, n)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, 0)
	}), mw(1), mw(2), mw(3))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if len(order) != 4 || order[0] != 1 || order[1] != 2 || order[2] != 3 || order[3] != 0 {
		t.Fatalf("expected [1,2,3,0], got %v", order)
	}
}

func TestChainNoMiddleware(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
}

func TestLoggerRecordsRouteAndStatus(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/grids/{id}/coverage", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := Logger(log)(mux)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/grids/abc/coverage", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "status=204") {
		t.Fatalf("expected status in log, got %s", out)
	}
	if !strings.Contains(out, "/api/grids/{id}/coverage") {
		t.Fatalf("expected route pattern in log, got %s", out)
	}
}

func TestStatusWriterDefaultsAndFirstWriteWins(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := wrap(rec)
	sw.Write([]byte("hi"))
	sw.WriteHeader(http.StatusBadRequest)
	if sw.status != http.StatusOK {
		t.Fatalf("expected 200 after implicit write, got %d", sw.status)
	}
	if wrap(sw) != sw {
		t.Fatal("expected wrap to reuse an existing statusWriter")
	}
}

func TestRecoverCatchesPanic(t *testing.T) {
	h := Recover(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Fatalf("expected JSON error body, got %s", rec.Body.String())
	}
}

func TestRecoverNoPanic(t *testing.T) {
	h := Recover(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := CORS("https://example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
		t.Fatal("missing CORS origin header")
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Fatal("expected DELETE to be allowed")
	}
}

func TestOTelPassesThrough(t *testing.T) {
	h := OTel("coverage-test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	reg := metrics.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {})
	h := Metrics(reg)(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/health", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nowhere", nil))

	ok := reg.Counter(metrics.WithLabels("coverage_http_requests_total", "route", "GET /api/health", "status", "200"), "")
	if ok.Value() != 1 {
		t.Fatalf("expected 1 health request, got %d", ok.Value())
	}
	miss := reg.Counter(metrics.WithLabels("coverage_http_requests_total", "route", "unmatched", "status", "404"), "")
	if miss.Value() != 1 {
		t.Fatalf("expected 1 unmatched request, got %d", miss.Value())
	}
	if !strings.Contains(reg.Render(), "coverage_http_request_duration_seconds_count") {
		t.Fatal("expected latency histogram in output")
	}
}

func byHeader(r *http.Request) string { return r.Header.Get("X-Grid") }

func TestRateLimit(t *testing.T) {
	lims := NewLimiters(rate.Limit(0.0001), 2)
	h := RateLimit(lims, byHeader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(key string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/", nil)
		req.Header.Set("X-Grid", key)
		h.ServeHTTP(rec, req)
		return rec
	}

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = do("a").Code
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent {
		t.Fatalf("expected burst of 2 to pass, got %v", codes)
	}
	rec := do("a")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After after burst, got %d", rec.Code)
	}

	// Buckets are per key.
	if code := do("b").Code; code != http.StatusNoContent {
		t.Fatalf("expected other key unaffected, got %d", code)
	}
	if lims.Len() != 2 {
		t.Fatalf("expected 2 buckets, got %d", lims.Len())
	}
}

func TestLimitersForgetAndPrune(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	lims := NewLimiters(rate.Limit(0.0001), 1)
	lims.now = func() time.Time { return now }

	lims.Allow("old")
	now = now.Add(time.Hour)
	lims.Allow("fresh")
	lims.Allow("gone")
	lims.Forget("gone")

	if n := lims.Prune(30 * time.Minute); n != 1 {
		t.Fatalf("expected 1 pruned, got %d", n)
	}
	if lims.Len() != 1 {
		t.Fatalf("expected only the fresh bucket, got %d", lims.Len())
	}
	// A forgotten key starts with a full bucket again.
	if !lims.Allow("gone") {
		t.Fatal("expected fresh bucket after Forget")
	}
}

func TestRateLimitNilDisabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := RateLimit(nil, byHeader)(next)
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
}

// internal/api/server_test.go
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/replay/internal/backtest"
	"github.com/newthinker/replay/internal/metrics"
	"github.com/newthinker/replay/internal/storage/memory"
	"go.uber.org/zap"
)

const crossoverBody = `{
	"symbol": "BTC",
	"strategy": {"kind": "crossover", "crossover": {"short_window": 2, "long_window": 4}},
	"initial_capital": 1000,
	"prices": [
		{"time": "2024-01-01T00:00:00Z", "price": 100},
		{"time": "2024-01-02T00:00:00Z", "price": 98},
		{"time": "2024-01-03T00:00:00Z", "price": 96},
		{"time": "2024-01-04T00:00:00Z", "price": 94},
		{"time": "2024-01-05T00:00:00Z", "price": 92},
		{"time": "2024-01-06T00:00:00Z", "price": 100},
		{"time": "2024-01-07T00:00:00Z", "price": 104},
		{"time": "2024-01-08T00:00:00Z", "price": 106},
		{"time": "2024-01-09T00:00:00Z", "price": 104},
		{"time": "2024-01-10T00:00:00Z", "price": 96},
		{"time": "2024-01-11T00:00:00Z", "price": 94},
		{"time": "2024-01-12T00:00:00Z", "price": 92}
	]
}`

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	reg := metrics.NewRegistry()
	store := memory.NewStore(10, time.Hour)
	deps := Dependencies{
		Backtester: backtest.New(nil, backtest.WithRecorder(reg), backtest.WithArchiver(store)),
		Results:    store,
		Metrics:    reg,
	}

	srv, err := NewServer(Config{
		Host:        "localhost",
		Port:        0,
		APIKey:      apiKey,
		MetricsPath: "/metrics",
	}, deps, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func do(srv *Server, method, path, body, key string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, "test-key")

	w := do(srv, "GET", "/api/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestServer_RequiresBacktester(t *testing.T) {
	if _, err := NewServer(Config{}, Dependencies{}, nil); err == nil {
		t.Error("expected error without backtester")
	}
}

func TestServer_APIAuth_Required(t *testing.T) {
	srv := newTestServer(t, "test-key")

	w := do(srv, "POST", "/api/v1/backtests", crossoverBody, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}
}

func TestServer_APIAuth_Disabled(t *testing.T) {
	srv := newTestServer(t, "")

	w := do(srv, "POST", "/api/v1/backtests", crossoverBody, "")
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201 with disabled auth, got %d: %s", w.Code, w.Body.String())
	}
}

func TestServer_BacktestRoundTrip(t *testing.T) {
	srv := newTestServer(t, "test-key")

	w := do(srv, "POST", "/api/v1/backtests", crossoverBody, "test-key")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		Data backtest.Result `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Data.TradeCount != 2 {
		t.Errorf("expected 2 trades, got %d", created.Data.TradeCount)
	}
	if created.Data.FinalValue != 960 {
		t.Errorf("expected final value 960, got %v", created.Data.FinalValue)
	}

	w = do(srv, "GET", "/api/v1/backtests/"+created.Data.ID, "", "test-key")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = do(srv, "GET", "/api/v1/backtests/"+created.Data.ID+"/trades.csv", "", "test-key")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for csv, got %d", w.Code)
	}

	w = do(srv, "GET", "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`replay_backtests_total{status="complete",strategy="crossover"} 1`,
		`replay_trades_total{kind="buy",strategy="crossover"} 1`,
		`http_requests_total{method="POST",path="POST /api/v1/backtests",status="2xx"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestServer_UnknownResult(t *testing.T) {
	srv := newTestServer(t, "")

	w := do(srv, "GET", "/api/v1/backtests/missing", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestServer_ListAndDelete(t *testing.T) {
	srv := newTestServer(t, "test-key")

	w := do(srv, "POST", "/api/v1/backtests", crossoverBody, "test-key")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		Data backtest.Result `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id := created.Data.ID

	w = do(srv, "GET", "/api/v1/backtests?symbol="+created.Data.Symbol, "", "test-key")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for list, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), id) {
		t.Errorf("list should contain %s: %s", id, w.Body.String())
	}

	if w = do(srv, "DELETE", "/api/v1/backtests/"+id, "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 deleting without key, got %d", w.Code)
	}
	if w = do(srv, "DELETE", "/api/v1/backtests/"+id, "", "test-key"); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	if w = do(srv, "GET", "/api/v1/backtests/"+id, "", "test-key"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

package httpapi

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"crypto-backtest-lab/internal/backtest"
	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/policy"
	"crypto-backtest-lab/internal/reporting"
	"crypto-backtest-lab/internal/simenv"
	"crypto-backtest-lab/internal/storage/memory"
)

func newTestServer(t *testing.T, barCount int) *httptest.Server {
	t.Helper()

	store := memory.NewBarStore()
	if barCount > 0 {
		bars := make([]*domain.Bar, barCount)
		for i := range bars {
			bars[i] = &domain.Bar{
				Symbol:   "BTC/USD",
				OpenTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
				Open:     100, High: 101, Low: 99, Close: 100,
				Volume: 1,
			}
		}
		if err := store.InsertBulk(context.Background(), bars); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}

	logger := log.New(os.Stderr, "[httpapi-test] ", log.LstdFlags)
	svc := backtest.NewService(
		store,
		func(bars []domain.Bar, initialBalance float64) backtest.Environment {
			return simenv.New(bars, simenv.Config{InitialBalance: initialBalance})
		},
		func(bars []domain.Bar) backtest.Policy {
			return policy.NewRandomPolicy(1)
		},
		reporting.NewWriter(t.TempDir()),
		logger,
		backtest.Config{},
	)

	ts := httptest.NewServer(NewServer(store, svc, logger).Routes())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, 0)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", body["status"])
	}
}

func TestCryptocurrenciesEndpoint(t *testing.T) {
	ts := newTestServer(t, 10)

	resp, err := http.Get(ts.URL + "/api/cryptocurrencies")
	if err != nil {
		t.Fatalf("GET /api/cryptocurrencies: %v", err)
	}
	defer resp.Body.Close()

	var body map[string][]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body["cryptocurrencies"]) != 1 || body["cryptocurrencies"][0] != "BTC/USD" {
		t.Errorf("Unexpected symbols: %v", body["cryptocurrencies"])
	}
}

func TestTimeRangeEndpoint(t *testing.T) {
	ts := newTestServer(t, 10)

	resp, err := http.Post(ts.URL+"/api/timerange", "application/json",
		strings.NewReader(`{"crypto":"BTC/USD"}`))
	if err != nil {
		t.Fatalf("POST /api/timerange: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Crypto       string `json:"crypto"`
		MinTimestamp string `json:"min_timestamp"`
		MaxTimestamp string `json:"max_timestamp"`
		TotalRows    int    `json:"total_rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.MinTimestamp != "2024-01-01 00:00:00" || body.TotalRows != 10 {
		t.Errorf("Unexpected time range: %+v", body)
	}
}

func TestTimeRangeErrors(t *testing.T) {
	ts := newTestServer(t, 10)

	resp, err := http.Post(ts.URL+"/api/timerange", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST /api/timerange: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing crypto, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/timerange", "application/json",
		strings.NewReader(`{"crypto":"DOGE/USD"}`))
	if err != nil {
		t.Fatalf("POST /api/timerange: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown symbol, got %d", resp.StatusCode)
	}
}

// sseEvents splits an SSE body into its decoded JSON payloads.
func sseEvents(t *testing.T, body []byte) []map[string]any {
	t.Helper()

	var events []map[string]any
	for _, line := range strings.Split(string(body), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("decode sse event %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestBacktestStreamEndpoint(t *testing.T) {
	ts := newTestServer(t, 150)

	reqBody := `{"crypto":"BTC/USD","start_time":"2024-01-01 00:00:00","end_time":"2024-01-01 03:00:00"}`
	resp, err := http.Post(ts.URL+"/api/backtest/stream", "application/json", strings.NewReader(reqBody))
	if err != nil {
		t.Fatalf("POST /api/backtest/stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %q", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	events := sseEvents(t, body)
	if len(events) < 3 {
		t.Fatalf("Expected several events, got %d", len(events))
	}
	if events[0]["type"] != "info" {
		t.Errorf("Expected leading info event, got %v", events[0])
	}
	last := events[len(events)-1]
	if last["type"] != "complete" {
		t.Fatalf("Expected terminal complete event, got %v", last)
	}
	results, ok := last["results"].(map[string]any)
	if !ok || results["symbol"] != "BTC/USD" {
		t.Errorf("Unexpected results payload: %v", last["results"])
	}
}

func TestBacktestStreamValidationError(t *testing.T) {
	ts := newTestServer(t, 150)

	resp, err := http.Post(ts.URL+"/api/backtest/stream", "application/json",
		strings.NewReader(`{"crypto":""}`))
	if err != nil {
		t.Fatalf("POST /api/backtest/stream: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	events := sseEvents(t, body)
	if len(events) != 1 || events[0]["type"] != "error" {
		t.Fatalf("Expected single error event, got %v", events)
	}
	if events[0]["message"] != "Missing required parameters" {
		t.Errorf("Unexpected message: %v", events[0]["message"])
	}
}

func TestBacktestWebSocket(t *testing.T) {
	ts := newTestServer(t, 150)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/backtest/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	req := runRequest{
		Crypto:    "BTC/USD",
		StartTime: "2024-01-01 00:00:00",
		EndTime:   "2024-01-01 03:00:00",
	}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var last map[string]any
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var ev map[string]any
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		last = ev
	}

	if last == nil || last["type"] != "complete" {
		t.Fatalf("Expected terminal complete event, got %v", last)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, 0)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/health", bytes.NewReader(nil))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /api/health: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Missing CORS header")
	}
}

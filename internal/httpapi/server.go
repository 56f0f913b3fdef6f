// Package httpapi exposes the backtest service over HTTP: JSON endpoints
// for data discovery, an SSE stream and a WebSocket stream for live runs,
// and the Prometheus metrics endpoint.
package httpapi

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"crypto-backtest-lab/internal/backtest"
	"crypto-backtest-lab/internal/observability"
	"crypto-backtest-lab/internal/storage"
)

// timeLayout is the timestamp format of API requests and responses.
const timeLayout = "2006-01-02 15:04:05"

// Server routes HTTP requests to the backtest service.
type Server struct {
	store    storage.BarStore
	svc      *backtest.Service
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewServer creates an HTTP API server.
func NewServer(store storage.BarStore, svc *backtest.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		store:  store,
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			// The UI is served from a different origin in development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes returns the handler with all endpoints registered.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/cryptocurrencies", s.handleCryptocurrencies)
	mux.HandleFunc("/api/timerange", s.handleTimeRange)
	mux.HandleFunc("/api/backtest/stream", s.handleBacktestStream)
	mux.HandleFunc("/api/backtest/ws", s.handleBacktestWS)
	mux.Handle("/metrics", observability.Handler())

	return corsMiddleware(mux)
}

// runRequest is the body of stream and websocket run requests.
type runRequest struct {
	Crypto    string `json:"crypto"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (r runRequest) toBacktest() backtest.RunRequest {
	req := backtest.RunRequest{Symbol: r.Crypto}
	if t, err := time.ParseInLocation(timeLayout, r.StartTime, time.UTC); err == nil {
		req.Start = t
	}
	if t, err := time.ParseInLocation(timeLayout, r.EndTime, time.UTC); err == nil {
		req.End = t
	}
	return req
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Backend is running",
	})
}

func (s *Server) handleCryptocurrencies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	symbols, err := s.store.ListSymbols(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if symbols == nil {
		symbols = []string{}
	}

	writeJSON(w, http.StatusOK, map[string][]string{"cryptocurrencies": symbols})
}

func (s *Server) handleTimeRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Crypto string `json:"crypto"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Crypto == "" {
		writeError(w, http.StatusBadRequest, "Cryptocurrency not specified")
		return
	}

	tr, err := s.store.GetTimeRange(r.Context(), body.Crypto)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("No data found for %s", body.Crypto))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"crypto":        body.Crypto,
		"min_timestamp": tr.Start.UTC().Format(timeLayout),
		"max_timestamp": tr.End.UTC().Format(timeLayout),
		"total_rows":    tr.Rows,
	})
}

// handleBacktestStream runs a backtest, streaming progress as server-sent
// events. Terminal failures surface as error events inside the stream, not
// as HTTP status codes.
func (s *Server) handleBacktestStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body runRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	emitter := &sseEmitter{w: w, flusher: flusher}
	if _, err := s.svc.Run(r.Context(), body.toBacktest(), emitter); err != nil {
		// Already reported on the stream.
		s.logger.Printf("stream run: %v", err)
	}
}

// handleBacktestWS runs a backtest over a WebSocket. The client sends one
// run request and receives the same event sequence as the SSE stream.
func (s *Server) handleBacktestWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	var body runRequest
	if err := conn.ReadJSON(&body); err != nil {
		s.logger.Printf("websocket read request: %v", err)
		return
	}

	emitter := &wsEmitter{conn: conn}
	if _, err := s.svc.Run(r.Context(), body.toBacktest(), emitter); err != nil {
		s.logger.Printf("websocket run: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

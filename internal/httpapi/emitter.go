package httpapi

import (
	"fmt"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"crypto-backtest-lab/internal/stream"
)

// sseEmitter writes events as server-sent events, flushing after each one
// so the client sees progress immediately.
type sseEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

var _ stream.Emitter = (*sseEmitter)(nil)

func (e *sseEmitter) Emit(event stream.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write sse event: %w", err)
	}
	e.flusher.Flush()
	return nil
}

// wsEmitter writes events as WebSocket text messages.
type wsEmitter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

var _ stream.Emitter = (*wsEmitter)(nil)

func (e *wsEmitter) Emit(event stream.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write websocket event: %w", err)
	}
	return nil
}

package stream

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestWriterEmitter_NewlineDelimitedTaggedRecords(t *testing.T) {
	var buf bytes.Buffer
	em := NewWriterEmitter(&buf)

	if err := em.Emit(NewInfo("Loading data...")); err != nil {
		t.Fatalf("emit info: %v", err)
	}
	if err := em.Emit(NewInit(250)); err != nil {
		t.Fatalf("emit init: %v", err)
	}
	if err := em.Emit(NewStep(10, 250, 10100, 10000, 0.5, "2024-03-01 10:00:00")); err != nil {
		t.Fatalf("emit step: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 NDJSON lines, got %d: %q", len(lines), buf.String())
	}

	// Every record is a tagged object with a "type" discriminator.
	var tagged struct {
		Type string `json:"type"`
	}
	wantTypes := []string{TypeInfo, TypeInit, TypeStep}
	for i, line := range lines {
		if err := json.Unmarshal([]byte(line), &tagged); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
		if tagged.Type != wantTypes[i] {
			t.Errorf("line %d: expected type %q, got %q", i, wantTypes[i], tagged.Type)
		}
	}
}

func TestStepEvent_PnLDerivedFromBalances(t *testing.T) {
	ev := NewStep(20, 100, 9950, 10000, -0.1, "2024-03-01 11:00:00")
	if ev.PnL != -50 {
		t.Errorf("expected pnl -50, got %f", ev.PnL)
	}
}

func TestErrorEvent_TraceOmittedWhenEmpty(t *testing.T) {
	data, err := json.Marshal(NewError("boom", ""))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "trace") {
		t.Errorf("expected empty trace to be omitted, got %s", data)
	}

	data, err = json.Marshal(NewError("boom", "stack"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"trace":"stack"`) {
		t.Errorf("expected trace field, got %s", data)
	}
}

func TestCollectEmitter_PreservesOrder(t *testing.T) {
	em := NewCollectEmitter()
	_ = em.Emit(NewInfo("a"))
	_ = em.Emit(NewWarning("b"))
	_ = em.Emit(NewComplete(Results{Symbol: "XRPJPY"}))

	events := em.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	want := []string{TypeInfo, TypeWarning, TypeComplete}
	for i, ev := range events {
		if ev.EventType() != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], ev.EventType())
		}
	}
}

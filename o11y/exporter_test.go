package o11y

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockExporter records calls and optionally returns an error.
type mockExporter struct {
	calls []OperationData
	err   error
}

func (m *mockExporter) ExportOperation(_ context.Context, data OperationData) error {
	m.calls = append(m.calls, data)
	return m.err
}

func TestTraceExporter(t *testing.T) {
	t.Run("mock exporter records call", func(t *testing.T) {
		exp := &mockExporter{}
		data := OperationData{
			Operation: "execute",
			Strategy:  "dense",
			QueryID:   "q-1",
			HitCount:  10,
			Duration:  500 * time.Millisecond,
			Metadata:  map[string]any{"trace_id": "abc123"},
		}

		err := exp.ExportOperation(context.Background(), data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(exp.calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(exp.calls))
		}
		if exp.calls[0].Operation != "execute" {
			t.Errorf("expected operation 'execute', got %q", exp.calls[0].Operation)
		}
		if exp.calls[0].HitCount != 10 {
			t.Errorf("expected 10 hits, got %d", exp.calls[0].HitCount)
		}
	})

	t.Run("exporter error propagates", func(t *testing.T) {
		exp := &mockExporter{err: errors.New("export failed")}
		err := exp.ExportOperation(context.Background(), OperationData{})
		if err == nil {
			t.Fatal("expected error")
		}
		if err.Error() != "export failed" {
			t.Errorf("expected 'export failed', got %q", err.Error())
		}
	})
}

func TestMultiExporter(t *testing.T) {
	t.Run("fans out to all exporters", func(t *testing.T) {
		exp1 := &mockExporter{}
		exp2 := &mockExporter{}
		multi := NewMultiExporter(exp1, exp2)

		data := OperationData{Operation: "fuse", Strategy: "sparse"}
		err := multi.ExportOperation(context.Background(), data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(exp1.calls) != 1 {
			t.Errorf("exp1: expected 1 call, got %d", len(exp1.calls))
		}
		if len(exp2.calls) != 1 {
			t.Errorf("exp2: expected 1 call, got %d", len(exp2.calls))
		}
	})

	t.Run("returns first error but calls all", func(t *testing.T) {
		exp1 := &mockExporter{err: errors.New("first failed")}
		exp2 := &mockExporter{}
		exp3 := &mockExporter{err: errors.New("third failed")}
		multi := NewMultiExporter(exp1, exp2, exp3)

		err := multi.ExportOperation(context.Background(), OperationData{})
		if err == nil {
			t.Fatal("expected error")
		}
		if err.Error() != "first failed" {
			t.Errorf("expected 'first failed', got %q", err.Error())
		}
		// All exporters should have been called.
		if len(exp1.calls) != 1 {
			t.Error("exp1 should have been called")
		}
		if len(exp2.calls) != 1 {
			t.Error("exp2 should have been called")
		}
		if len(exp3.calls) != 1 {
			t.Error("exp3 should have been called")
		}
	})

	t.Run("empty multi exporter succeeds", func(t *testing.T) {
		multi := NewMultiExporter()
		err := multi.ExportOperation(context.Background(), OperationData{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestOperationDataFields(t *testing.T) {
	data := OperationData{
		Operation: "rerank",
		Strategy:  "graph",
		QueryID:   "q-9",
		HitCount:  100,
		Duration:  time.Second,
		Error:     "backend unavailable",
		Metadata:  map[string]any{"session_id": "s123"},
	}

	if data.Operation != "rerank" {
		t.Errorf("unexpected operation: %s", data.Operation)
	}
	if data.Error != "backend unavailable" {
		t.Errorf("unexpected error: %s", data.Error)
	}
	if data.Duration != time.Second {
		t.Errorf("unexpected duration: %v", data.Duration)
	}
}

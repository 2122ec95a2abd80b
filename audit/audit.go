// Package audit defines the AuditSink collaborator that the orchestrator
// uses to record append-only, reproducibility-relevant events, and provides
// a logging-backed implementation plus a fan-out sink for wiring more than
// one.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/coreason/retrieval-engine/o11y"
)

// Event names emitted by ExecuteSystematic.
const (
	EventSystematicSearchStart    = "SYSTEMATIC_SEARCH_START"
	EventSystematicSearchComplete = "SYSTEMATIC_SEARCH_COMPLETE"
)

// Sink consumes structured audit events. Log is synchronous; a failing sink
// must have its error propagated by the caller, not swallowed, since
// auditing is mandatory for the systematic execution mode.
type Sink interface {
	Log(ctx context.Context, eventName string, payload map[string]any) error
}

// LoggingSink records every event through an o11y.Logger. It never fails,
// making it safe to compose as the last sink in a MultiSink chain.
type LoggingSink struct {
	logger *o11y.Logger
}

// NewLoggingSink returns a LoggingSink writing through logger.
func NewLoggingSink(logger *o11y.Logger) *LoggingSink {
	return &LoggingSink{logger: logger}
}

func (s *LoggingSink) Log(ctx context.Context, eventName string, payload map[string]any) error {
	args := make([]any, 0, len(payload)*2+4)
	args = append(args, "event_id", uuid.NewString(), "event", eventName)
	for k, v := range payload {
		args = append(args, k, v)
	}
	s.logger.Info(ctx, "audit event", args...)
	return nil
}

// MultiSink fans an event out to every member sink, in order, stopping at
// and returning the first error. Sinks after the failing one do not see the
// event for that call.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink returns a MultiSink over sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Log(ctx context.Context, eventName string, payload map[string]any) error {
	for _, s := range m.sinks {
		if err := s.Log(ctx, eventName, payload); err != nil {
			return err
		}
	}
	return nil
}

// ProvenanceHash computes the hex SHA-256 digest over queryText and
// docIDsInOrder, the final hit order after all pipeline stages. The digest
// input is queryText || "[" || comma-joined ids || "]", so an empty id list
// still yields a stable, well-defined hash.
func ProvenanceHash(queryText string, docIDsInOrder []string) string {
	var b strings.Builder
	b.WriteString(queryText)
	b.WriteString("[")
	b.WriteString(strings.Join(docIDsInOrder, ","))
	b.WriteString("]")

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

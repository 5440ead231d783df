package engine

import (
	"context"

	"github.com/emiliopalmerini/devwatch/internal/telemetry"
)

// SinkRecord is the unit handed to a storage sink after each mutation: the
// raw envelope plus a snapshot of the mutated session, when one was touched.
type SinkRecord struct {
	Kind     telemetry.Kind
	Envelope *telemetry.Envelope
	Session  *Session
}

// Sink receives aggregates for persistence. Store is fire-and-forget: the
// engine calls it from a dedicated notifier goroutine and never blocks
// ingestion on it, and implementations must absorb their own failures rather
// than propagate them.
type Sink interface {
	Store(ctx context.Context, rec SinkRecord)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Store(context.Context, SinkRecord) {}

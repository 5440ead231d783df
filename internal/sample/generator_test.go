package sample

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/emiliopalmerini/devwatch/internal/engine"
	"github.com/emiliopalmerini/devwatch/internal/telemetry"
)

var genTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestGenerator(seed int64) *Generator {
	return New(seed, WithClock(func() time.Time { return genTime }))
}

func TestSession_EnvelopesCarrySessionID(t *testing.T) {
	gen := newTestGenerator(1)
	session := gen.Session()

	if session.SessionID == "" {
		t.Fatal("empty session id")
	}
	if len(session.Envelopes) == 0 {
		t.Fatal("no envelopes generated")
	}
	for i, env := range session.Envelopes {
		if env.SessionID() != session.SessionID {
			t.Errorf("envelope %d session id = %q, want %q",
				i, env.SessionID(), session.SessionID)
		}
	}
}

func TestSession_IngestsCleanly(t *testing.T) {
	gen := newTestGenerator(2)
	eng := engine.New(slog.New(slog.NewTextHandler(io.Discard, nil)))

	session := gen.Session()
	for _, env := range session.Envelopes {
		if outcome := eng.Ingest(env); outcome.Status != engine.StatusOK {
			t.Errorf("envelope degraded: %s (kind %s)", outcome.Reason, env.Kind)
		}
	}

	got, err := eng.Session(session.SessionID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if got.TotalInteractions == 0 {
		t.Error("expected interactions from generated stream")
	}
	if got.TotalTokens == 0 {
		t.Error("expected token totals from generated stream")
	}
	if len(got.ModelsUsed()) == 0 {
		t.Error("expected model names from generated stream")
	}
	if _, ok := got.Attributes["total_cost_usd"]; !ok {
		t.Error("expected cumulative cost attribute")
	}
}

func TestSession_Deterministic(t *testing.T) {
	first := newTestGenerator(7).Session()
	second := newTestGenerator(7).Session()

	if first.SessionID != second.SessionID {
		t.Errorf("session ids differ: %q vs %q", first.SessionID, second.SessionID)
	}
	if len(first.Envelopes) != len(second.Envelopes) {
		t.Errorf("envelope counts differ: %d vs %d",
			len(first.Envelopes), len(second.Envelopes))
	}
}

func TestSessions_Count(t *testing.T) {
	sessions := newTestGenerator(3).Sessions(5)
	if len(sessions) != 5 {
		t.Fatalf("got %d sessions, want 5", len(sessions))
	}
	seen := make(map[string]bool)
	for _, s := range sessions {
		if seen[s.SessionID] {
			t.Errorf("duplicate session id %q", s.SessionID)
		}
		seen[s.SessionID] = true
	}
}

func TestSession_SpanEnvelopesAreAIExchanges(t *testing.T) {
	session := newTestGenerator(4).Session()
	var spans int
	for _, env := range session.Envelopes {
		if env.Kind != telemetry.KindSpan {
			continue
		}
		spans++
		if env.Span.Name != "ai_interaction" {
			t.Errorf("span name = %q", env.Span.Name)
		}
		if env.Span.DurationMS <= 0 {
			t.Error("span missing duration")
		}
	}
	if spans == 0 {
		t.Error("expected span envelopes")
	}
}

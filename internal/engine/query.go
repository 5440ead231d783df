package engine

import (
	"fmt"
	"time"

	"github.com/emiliopalmerini/devwatch/internal/telemetry"
)

// Stats is the aggregate statistics snapshot, recomputed on every call.
type Stats struct {
	TotalSessions     int   `json:"total_sessions"`
	ActiveSessions    int   `json:"active_sessions"`
	TotalInteractions int64 `json:"total_interactions"`
	TotalTokens       int64 `json:"total_tokens"`
	TotalEvents       int64 `json:"total_events"`
}

// SessionSummary condenses one session for list views.
type SessionSummary struct {
	SessionID            string     `json:"session_id"`
	StartTime            time.Time  `json:"start_time"`
	EndTime              *time.Time `json:"end_time,omitempty"`
	DurationMinutes      *float64   `json:"duration_minutes,omitempty"`
	TotalInteractions    int64      `json:"total_interactions"`
	TotalTokens          int64      `json:"total_tokens"`
	AvgTokensInteraction float64    `json:"average_tokens_per_interaction"`
	ModelsUsed           []string   `json:"models_used"`
}

// Sessions returns deep copies of all sessions in discovery order. Readers
// never observe later engine mutations through the returned values.
func (e *Engine) Sessions() []*Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Session, 0, len(e.sessionOrder))
	for _, id := range e.sessionOrder {
		out = append(out, copySession(e.sessions[id]))
	}
	return out
}

// Session returns a deep copy of one session, or ErrSessionNotFound.
func (e *Engine) Session(sessionID string) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	session, found := e.sessions[sessionID]
	if !found {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionNotFound)
	}
	return copySession(session), nil
}

// ActiveSessions returns deep copies of sessions with no end time.
func (e *Engine) ActiveSessions() []*Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*Session
	for _, id := range e.sessionOrder {
		if session := e.sessions[id]; session.Active() {
			out = append(out, copySession(session))
		}
	}
	return out
}

// Summaries returns a summary per session in discovery order.
func (e *Engine) Summaries() []SessionSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]SessionSummary, 0, len(e.sessionOrder))
	for _, id := range e.sessionOrder {
		out = append(out, summarize(e.sessions[id]))
	}
	return out
}

// Stats recomputes the statistics snapshot from current state.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Stats{
		TotalSessions: len(e.sessions),
		TotalEvents:   e.eventCount,
	}
	for _, session := range e.sessions {
		if session.Active() {
			stats.ActiveSessions++
		}
		stats.TotalInteractions += session.TotalInteractions
		stats.TotalTokens += session.TotalTokens
	}
	return stats
}

// Events returns the retained raw-event history, newest first, at most limit
// entries (limit <= 0 means all retained). Envelopes are immutable after
// ingest, so sharing them is safe.
func (e *Engine) Events(limit int) []*telemetry.Envelope {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*telemetry.Envelope, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, e.history[i])
	}
	return out
}

func summarize(s *Session) SessionSummary {
	summary := SessionSummary{
		SessionID:            s.SessionID,
		StartTime:            s.StartTime,
		TotalInteractions:    s.TotalInteractions,
		TotalTokens:          s.TotalTokens,
		AvgTokensInteraction: s.AverageTokensPerInteraction(),
		ModelsUsed:           s.ModelsUsed(),
	}
	if s.EndTime != nil {
		t := *s.EndTime
		summary.EndTime = &t
	}
	if s.DurationMS != nil {
		minutes := *s.DurationMS / (1000 * 60)
		summary.DurationMinutes = &minutes
	}
	return summary
}

func copySession(s *Session) *Session {
	out := &Session{
		SessionID:           s.SessionID,
		StartTime:           s.StartTime,
		TotalInteractions:   s.TotalInteractions,
		TotalTokens:         s.TotalTokens,
		TotalRequestTokens:  s.TotalRequestTokens,
		TotalResponseTokens: s.TotalResponseTokens,
		Attributes:          copyAttrMap(s.Attributes),
		logsTrimmed:         s.logsTrimmed,
	}
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	if s.DurationMS != nil {
		d := *s.DurationMS
		out.DurationMS = &d
	}
	out.Interactions = make([]*Interaction, 0, len(s.Interactions))
	for _, in := range s.Interactions {
		out.Interactions = append(out.Interactions, copyInteraction(in))
	}
	out.RecentLogs = make([]LogEntry, len(s.RecentLogs))
	copy(out.RecentLogs, s.RecentLogs)
	return out
}

func copyInteraction(in *Interaction) *Interaction {
	out := &Interaction{
		InteractionID:  in.InteractionID,
		SessionID:      in.SessionID,
		Timestamp:      in.Timestamp,
		RequestTokens:  in.RequestTokens,
		ResponseTokens: in.ResponseTokens,
		TotalTokens:    in.TotalTokens,
		ModelName:      in.ModelName,
		Attributes:     copyAttrMap(in.Attributes),
	}
	if in.ResponseTimeMS != nil {
		d := *in.ResponseTimeMS
		out.ResponseTimeMS = &d
	}
	return out
}

// copyAttrMap deep-copies an attribute bag: nested maps, slices, and the
// typed tool-decision tally are cloned; scalars are shared as-is.
func copyAttrMap(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = copyAttrValue(v)
	}
	return out
}

func copyAttrValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyAttrMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyAttrValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case *ToolDecisions:
		return val.clone()
	default:
		return v
	}
}

package api

import (
	"time"

	"github.com/emiliopalmerini/devwatch/internal/engine"
)

// sessionView is the JSON shape for a full session.
type sessionView struct {
	SessionID         string            `json:"session_id"`
	StartTime         time.Time         `json:"start_time"`
	EndTime           *time.Time        `json:"end_time,omitempty"`
	DurationMS        *float64          `json:"duration_ms,omitempty"`
	Active            bool              `json:"active"`
	TotalInteractions int64             `json:"total_interactions"`
	TotalTokens       int64             `json:"total_tokens"`
	RequestTokens     int64             `json:"total_request_tokens"`
	ResponseTokens    int64             `json:"total_response_tokens"`
	ModelsUsed        []string          `json:"models_used"`
	Attributes        map[string]any    `json:"attributes"`
	RecentLogs        []logEntryView    `json:"recent_logs"`
	Interactions      []interactionView `json:"interactions"`
}

type interactionView struct {
	InteractionID  string         `json:"interaction_id"`
	SessionID      string         `json:"session_id"`
	Timestamp      time.Time      `json:"timestamp"`
	RequestTokens  int64          `json:"request_tokens"`
	ResponseTokens int64          `json:"response_tokens"`
	TotalTokens    int64          `json:"total_tokens"`
	ModelName      string         `json:"model_name,omitempty"`
	ResponseTimeMS *float64       `json:"response_time_ms,omitempty"`
	Attributes     map[string]any `json:"attributes,omitempty"`
}

type logEntryView struct {
	Timestamp time.Time      `json:"timestamp"`
	Severity  string         `json:"severity"`
	Body      any            `json:"body"`
	Attrs     map[string]any `json:"attributes,omitempty"`
}

func toSessionView(s *engine.Session) sessionView {
	view := sessionView{
		SessionID:         s.SessionID,
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		DurationMS:        s.DurationMS,
		Active:            s.Active(),
		TotalInteractions: s.TotalInteractions,
		TotalTokens:       s.TotalTokens,
		RequestTokens:     s.TotalRequestTokens,
		ResponseTokens:    s.TotalResponseTokens,
		ModelsUsed:        s.ModelsUsed(),
		Attributes:        s.Attributes,
		RecentLogs:        make([]logEntryView, 0, len(s.RecentLogs)),
		Interactions:      make([]interactionView, 0, len(s.Interactions)),
	}
	for _, entry := range s.RecentLogs {
		view.RecentLogs = append(view.RecentLogs, logEntryView{
			Timestamp: entry.Timestamp,
			Severity:  entry.Severity,
			Body:      entry.Body,
			Attrs:     entry.Attrs,
		})
	}
	for _, in := range s.Interactions {
		view.Interactions = append(view.Interactions, toInteractionView(in))
	}
	return view
}

func toInteractionView(in *engine.Interaction) interactionView {
	return interactionView{
		InteractionID:  in.InteractionID,
		SessionID:      in.SessionID,
		Timestamp:      in.Timestamp,
		RequestTokens:  in.RequestTokens,
		ResponseTokens: in.ResponseTokens,
		TotalTokens:    in.TotalTokens,
		ModelName:      in.ModelName,
		ResponseTimeMS: in.ResponseTimeMS,
		Attributes:     in.Attributes,
	}
}

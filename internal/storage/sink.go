package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/emiliopalmerini/devwatch/internal/engine"
	"github.com/emiliopalmerini/devwatch/internal/util"
)

const timeLayout = time.RFC3339Nano

// Sink persists session snapshots as they flow out of the aggregation
// engine. It is write-only from the engine's point of view: failures are
// logged and swallowed so persistence problems never stall ingestion.
type Sink struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSink(db *sql.DB, logger *slog.Logger) *Sink {
	return &Sink{db: db, logger: logger}
}

// Store upserts the touched session and its interactions. Envelopes that did
// not resolve to a session carry no snapshot and are skipped.
func (s *Sink) Store(ctx context.Context, rec engine.SinkRecord) {
	if rec.Session == nil {
		return
	}
	if err := s.upsertSession(ctx, rec.Session); err != nil {
		s.logger.Warn("persist session failed",
			"session_id", rec.Session.SessionID, "error", err)
		return
	}
	for _, in := range rec.Session.Interactions {
		if err := s.upsertInteraction(ctx, in); err != nil {
			s.logger.Warn("persist interaction failed",
				"interaction_id", in.InteractionID, "error", err)
		}
	}
}

func (s *Sink) upsertSession(ctx context.Context, sess *engine.Session) error {
	attrs, err := json.Marshal(sess.Attributes)
	if err != nil {
		return err
	}
	logs, err := json.Marshal(sess.RecentLogs)
	if err != nil {
		return err
	}

	var endTime sql.NullString
	if sess.EndTime != nil {
		endTime = util.NullString(sess.EndTime.Format(timeLayout))
	}
	durationMS := util.NullFloat64(sess.DurationMS)

	_, err = WithRetry(ctx, 2, func() (sql.Result, error) {
		return s.db.ExecContext(ctx, `
			INSERT INTO sessions (
				session_id, start_time, end_time, duration_ms,
				total_interactions, total_tokens,
				total_request_tokens, total_response_tokens,
				attributes, recent_logs, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET
				end_time = excluded.end_time,
				duration_ms = excluded.duration_ms,
				total_interactions = excluded.total_interactions,
				total_tokens = excluded.total_tokens,
				total_request_tokens = excluded.total_request_tokens,
				total_response_tokens = excluded.total_response_tokens,
				attributes = excluded.attributes,
				recent_logs = excluded.recent_logs,
				updated_at = excluded.updated_at`,
			sess.SessionID,
			sess.StartTime.Format(timeLayout),
			endTime,
			durationMS,
			sess.TotalInteractions,
			sess.TotalTokens,
			sess.TotalRequestTokens,
			sess.TotalResponseTokens,
			string(attrs),
			string(logs),
			time.Now().UTC().Format(timeLayout),
		)
	})
	return err
}

func (s *Sink) upsertInteraction(ctx context.Context, in *engine.Interaction) error {
	attrs, err := json.Marshal(in.Attributes)
	if err != nil {
		return err
	}
	responseTime := util.NullFloat64(in.ResponseTimeMS)
	model := util.NullString(in.ModelName)

	_, err = WithRetry(ctx, 2, func() (sql.Result, error) {
		return s.db.ExecContext(ctx, `
			INSERT INTO interactions (
				interaction_id, session_id, timestamp,
				request_tokens, response_tokens, total_tokens,
				model_name, response_time_ms, attributes
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(interaction_id) DO UPDATE SET
				request_tokens = excluded.request_tokens,
				response_tokens = excluded.response_tokens,
				total_tokens = excluded.total_tokens,
				model_name = excluded.model_name,
				response_time_ms = excluded.response_time_ms,
				attributes = excluded.attributes`,
			in.InteractionID,
			in.SessionID,
			in.Timestamp.Format(timeLayout),
			in.RequestTokens,
			in.ResponseTokens,
			in.TotalTokens,
			model,
			responseTime,
			string(attrs),
		)
	})
	return err
}

// UsageRow is one persisted provider-usage aggregate for a single day+model.
type UsageRow struct {
	Provider       string
	UsageDate      string
	Model          string
	Requests       int64
	InputTokens    int64
	OutputTokens   int64
	TotalTokens    int64
	CostUSD        float64
	OrganizationID string
}

// StoreUsage appends provider usage rows collected by a polling cycle.
func (s *Sink) StoreUsage(ctx context.Context, rows []UsageRow) error {
	for _, row := range rows {
		_, err := WithRetry(ctx, 2, func() (sql.Result, error) {
			return s.db.ExecContext(ctx, `
				INSERT INTO provider_usage (
					provider, usage_date, model, requests,
					input_tokens, output_tokens, total_tokens,
					cost_usd, organization_id, collected_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				row.Provider,
				row.UsageDate,
				row.Model,
				row.Requests,
				row.InputTokens,
				row.OutputTokens,
				row.TotalTokens,
				row.CostUSD,
				row.OrganizationID,
				time.Now().UTC().Format(timeLayout),
			)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

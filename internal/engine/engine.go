package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/emiliopalmerini/devwatch/internal/telemetry"
	"github.com/emiliopalmerini/devwatch/internal/util"
)

// Metric names emitted by Claude Code. Dispatch is by exact match;
// unrecognized names are accepted but mutate nothing beyond the session.
const (
	MetricTokenUsage   = "claude_code.token.usage"
	MetricCostUsage    = "claude_code.cost.usage"
	MetricLinesOfCode  = "claude_code.lines_of_code.count"
	MetricToolDecision = "claude_code.code_edit_tool.decision"
	MetricSessionCount = "claude_code.session.count"
	MetricPullRequests = "claude_code.pull_request.count"
	MetricCommits      = "claude_code.commit.count"
)

// Raw-event history bounds, same trim scheme as the session log tail.
const (
	historyMax  = 1000
	historyKeep = 500
)

// sinkQueueSize bounds the records buffered for the sink notifier. When the
// queue is full, records are dropped rather than blocking ingestion.
const sinkQueueSize = 256

// ErrSessionNotFound is returned by lookups and EndSession for unknown ids.
var ErrSessionNotFound = errors.New("session not found")

// Status classifies the result of ingesting one envelope.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
)

// Outcome is the structured result of one Ingest call. Degraded outcomes
// carry the data-quality reason; they never abort ingestion.
type Outcome struct {
	Status Status
	Reason string
}

func ok() Outcome { return Outcome{Status: StatusOK} }

func degraded(format string, args ...any) Outcome {
	return Outcome{Status: StatusDegraded, Reason: fmt.Sprintf(format, args...)}
}

// Engine consumes envelopes and maintains session and interaction aggregates.
// One mutex guards the whole table set; aggregation is cheap per event so
// contention stays short-lived. Sink notification happens outside the lock,
// through a bounded queue drained by a single notifier goroutine.
type Engine struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	sessionOrder []string
	interactions map[string]*Interaction
	history      []*telemetry.Envelope
	eventCount   int64

	sink   Sink
	sinkCh chan SinkRecord
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets the storage sink notified after each mutation.
func WithSink(sink Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an aggregation engine.
func New(logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		sessions:     make(map[string]*Session),
		interactions: make(map[string]*Interaction),
		sink:         NopSink{},
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(e)
	}
	if _, nop := e.sink.(NopSink); !nop && e.sink != nil {
		e.sinkCh = make(chan SinkRecord, sinkQueueSize)
		go e.drainSink()
	}
	return e
}

// Ingest routes one envelope to its kind-specific handler. It never returns
// an error: data-quality gaps degrade to best-effort mutations and are
// reported through the Outcome. Each call runs to completion once started.
func (e *Engine) Ingest(env *telemetry.Envelope) Outcome {
	if env == nil {
		return degraded("nil envelope")
	}

	e.mu.Lock()
	e.eventCount++
	e.history = append(e.history, env)
	if len(e.history) > historyMax {
		trimmed := make([]*telemetry.Envelope, historyKeep)
		copy(trimmed, e.history[len(e.history)-historyKeep:])
		e.history = trimmed
	}

	var outcome Outcome
	var touched *Session
	switch env.Kind {
	case telemetry.KindMetric:
		outcome, touched = e.ingestMetric(env)
	case telemetry.KindSpan:
		outcome, touched = e.ingestSpan(env)
	case telemetry.KindLog:
		outcome, touched = e.ingestLog(env)
	default:
		outcome = degraded("unknown envelope kind %q", env.Kind)
	}

	var snapshot *Session
	if touched != nil {
		snapshot = copySession(touched)
	}
	e.mu.Unlock()

	if outcome.Status == StatusDegraded {
		e.logger.Debug("degraded ingest", "kind", env.Kind, "reason", outcome.Reason)
	}
	e.notifySink(env, snapshot)
	return outcome
}

// notifySink queues the raw envelope and the mutated aggregate snapshot for
// the notifier goroutine. The enqueue never blocks: a full queue means the
// sink has fallen behind and the record is dropped.
func (e *Engine) notifySink(env *telemetry.Envelope, session *Session) {
	if e.sinkCh == nil {
		return
	}
	rec := SinkRecord{
		Kind:     env.Kind,
		Envelope: env,
		Session:  session,
	}
	select {
	case e.sinkCh <- rec:
	default:
		e.logger.Warn("sink queue full, dropping record", "kind", env.Kind)
	}
}

// drainSink is the single notifier goroutine, delivering queued records to
// the sink one at a time. It lives as long as the engine.
func (e *Engine) drainSink() {
	for rec := range e.sinkCh {
		e.deliver(rec)
	}
}

// deliver hands one record to the sink. Sink failures are the sink's problem;
// a panic there must not stop the notifier.
func (e *Engine) deliver(rec SinkRecord) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("storage sink panicked", "panic", r)
		}
	}()
	e.sink.Store(context.Background(), rec)
}

// EndSession sets the session's end time. The engine never infers an end
// from inactivity; this is the explicit external signal.
func (e *Engine) EndSession(sessionID string) error {
	e.mu.Lock()
	session, found := e.sessions[sessionID]
	var snapshot *Session
	if found {
		session.End(e.now())
		snapshot = copySession(session)
	}
	e.mu.Unlock()

	if !found {
		return fmt.Errorf("end session %q: %w", sessionID, ErrSessionNotFound)
	}
	e.notifySink(&telemetry.Envelope{Kind: telemetry.KindMetric, Timestamp: e.now()}, snapshot)
	return nil
}

// ingestMetric handles a metric envelope. Caller holds the lock.
func (e *Engine) ingestMetric(env *telemetry.Envelope) (Outcome, *Session) {
	if env.Metric == nil {
		return degraded("metric envelope without payload"), nil
	}
	sessionID := env.SessionID()
	if sessionID == "" {
		return degraded("metric %q without session id", env.Metric.Name), nil
	}
	session := e.ensureSession(sessionID, env.ResourceAttrs)

	switch env.Metric.Name {
	case MetricTokenUsage:
		return e.applyTokenUsage(session, env), session
	case MetricCostUsage:
		return e.applyCostUsage(session, env), session
	case MetricLinesOfCode:
		return e.applyLinesOfCode(session, env), session
	case MetricToolDecision:
		return e.applyToolDecision(session, env), session
	case MetricSessionCount:
		return e.applySessionCount(session, env), session
	case MetricPullRequests:
		return e.applyCountSum(session, env, "pull_requests_created"), session
	case MetricCommits:
		return e.applyCountSum(session, env, "commits_created"), session
	default:
		return degraded("unhandled metric %q", env.Metric.Name), session
	}
}

// applyTokenUsage groups datapoints by model, accumulates per-type counters,
// and resolves interactions. The interaction id is a composite of session id,
// model, and the envelope's source timestamp in whole seconds: re-emissions
// within the same second merge into one interaction by design.
func (e *Engine) applyTokenUsage(session *Session, env *telemetry.Envelope) Outcome {
	type tokenCounts struct {
		input, output, cacheRead, cacheCreation int64
	}
	perModel := make(map[string]*tokenCounts)
	modelOrder := []string{}

	for _, dp := range env.Metric.Datapoints {
		model := telemetry.AttrString(dp.Attrs, "model")
		if model == "" {
			model = "unknown"
		}
		counts, seen := perModel[model]
		if !seen {
			counts = &tokenCounts{}
			perModel[model] = counts
			modelOrder = append(modelOrder, model)
		}
		value := int64(dp.Value)
		switch telemetry.AttrString(dp.Attrs, "type") {
		case "input":
			counts.input += value
		case "output":
			counts.output += value
		case "cacheRead":
			counts.cacheRead += value
		case "cacheCreation":
			counts.cacheCreation += value
		}
	}

	outcome := ok()
	for _, model := range modelOrder {
		counts := perModel[model]
		if counts.input <= 0 && counts.output <= 0 {
			continue
		}

		interactionID := fmt.Sprintf("%s_%s_%d", session.SessionID, model, env.Timestamp.Unix())
		existing, seen := e.interactions[interactionID]
		if seen {
			existing.addTokens(counts.input, counts.output)
		} else {
			interaction := &Interaction{
				InteractionID: interactionID,
				SessionID:     session.SessionID,
				Timestamp:     env.Timestamp,
				ModelName:     model,
				Attributes: map[string]any{
					"cache_read_tokens":     counts.cacheRead,
					"cache_creation_tokens": counts.cacheCreation,
				},
			}
			interaction.addTokens(counts.input, counts.output)
			for k, v := range env.ResourceAttrs {
				interaction.Attributes[k] = v
			}
			e.interactions[interactionID] = interaction
			session.Interactions = append(session.Interactions, interaction)
		}
		session.recomputeTotals()
	}
	return outcome
}

// applyCostUsage overwrites the session's cumulative cost with the datapoint
// sum: the provider emits running totals, not deltas.
func (e *Engine) applyCostUsage(session *Session, env *telemetry.Envelope) Outcome {
	var total float64
	for _, dp := range env.Metric.Datapoints {
		total += dp.Value
	}
	session.Attributes["total_cost_usd"] = total
	return ok()
}

func (e *Engine) applyLinesOfCode(session *Session, env *telemetry.Envelope) Outcome {
	var added, removed int64
	for _, dp := range env.Metric.Datapoints {
		value := int64(dp.Value)
		switch telemetry.AttrString(dp.Attrs, "type") {
		case "added":
			added += value
		case "removed":
			removed += value
		}
	}

	totalAdded := util.ToInt64(session.Attributes["lines_added"]) + added
	totalRemoved := util.ToInt64(session.Attributes["lines_removed"]) + removed
	session.Attributes["lines_added"] = totalAdded
	session.Attributes["lines_removed"] = totalRemoved
	session.Attributes["lines_net_change"] = totalAdded - totalRemoved
	return ok()
}

func (e *Engine) applyToolDecision(session *Session, env *telemetry.Envelope) Outcome {
	decisions, _ := session.Attributes["tool_decisions"].(*ToolDecisions)
	if decisions == nil {
		decisions = newToolDecisions()
		session.Attributes["tool_decisions"] = decisions
	}

	for _, dp := range env.Metric.Datapoints {
		decision := telemetry.AttrString(dp.Attrs, "decision")
		toolName := telemetry.AttrString(dp.Attrs, "tool_name")
		if toolName == "" {
			toolName = "unknown"
		}
		decisions.record(decision, toolName)
	}
	return ok()
}

// applySessionCount is last-write-wins: the CLI reports its own running count.
func (e *Engine) applySessionCount(session *Session, env *telemetry.Envelope) Outcome {
	for _, dp := range env.Metric.Datapoints {
		session.Attributes["session_count"] = int64(dp.Value)
	}
	return ok()
}

func (e *Engine) applyCountSum(session *Session, env *telemetry.Envelope, key string) Outcome {
	var total int64
	for _, dp := range env.Metric.Datapoints {
		total += int64(dp.Value)
	}
	session.Attributes[key] = util.ToInt64(session.Attributes[key]) + total
	return ok()
}

// ingestSpan handles a trace span. Spans matching the AI-exchange heuristic
// create or update an interaction keyed by span id; duration and model name
// follow overwrite-on-arrival semantics. Caller holds the lock.
func (e *Engine) ingestSpan(env *telemetry.Envelope) (Outcome, *Session) {
	if env.Span == nil {
		return degraded("span envelope without payload"), nil
	}
	sessionID := env.SessionID()
	if sessionID == "" {
		return degraded("span %q without session id", env.Span.Name), nil
	}
	session := e.ensureSession(sessionID, env.ResourceAttrs)

	name := strings.ToLower(env.Span.Name)
	if !strings.Contains(name, "ai_interaction") && !strings.Contains(name, "claude") {
		return ok(), session
	}

	interactionID := env.Span.SpanID
	if interactionID == "" {
		interactionID = fmt.Sprintf("%s_%d", sessionID, env.Timestamp.Unix())
	}

	interaction, seen := e.interactions[interactionID]
	if !seen {
		interaction = &Interaction{
			InteractionID: interactionID,
			SessionID:     sessionID,
			Timestamp:     env.Timestamp,
			Attributes:    map[string]any{},
		}
		for k, v := range env.Span.Attrs {
			interaction.Attributes[k] = v
		}
		e.interactions[interactionID] = interaction
	}

	if env.Span.DurationMS > 0 {
		d := env.Span.DurationMS
		interaction.ResponseTimeMS = &d
	}
	if model := telemetry.AttrString(env.Span.Attrs, "model.name"); model != "" {
		interaction.ModelName = model
	}

	linked := false
	for _, in := range session.Interactions {
		if in.InteractionID == interactionID {
			linked = true
			break
		}
	}
	if !linked {
		session.Interactions = append(session.Interactions, interaction)
	}
	session.recomputeTotals()
	return ok(), session
}

// ingestLog appends to the session's capped log tail. Logs with no
// resolvable session id are dropped without creating a session: unresolvable
// logs must not accumulate unbounded. Caller holds the lock.
func (e *Engine) ingestLog(env *telemetry.Envelope) (Outcome, *Session) {
	if env.Log == nil {
		return degraded("log envelope without payload"), nil
	}
	sessionID := env.SessionID()
	if sessionID == "" {
		return degraded("log without session id"), nil
	}
	session := e.ensureSession(sessionID, env.ResourceAttrs)

	severity := env.Log.SeverityText
	if severity == "" {
		severity = "INFO"
	}
	session.appendLog(LogEntry{
		Timestamp: env.Timestamp,
		Severity:  severity,
		Body:      env.Log.Body,
		Attrs:     env.Log.Attrs,
	})
	return ok(), session
}

// ensureSession creates the session aggregate on first reference. Start time
// is the processing clock, not the event's own timestamp: emitted timestamps
// are not trusted for session-start inference. Caller holds the lock.
func (e *Engine) ensureSession(sessionID string, resourceAttrs map[string]any) *Session {
	if session, seen := e.sessions[sessionID]; seen {
		return session
	}

	attrs := map[string]any{
		"service_name":      resourceAttrs["service.name"],
		"user_email":        resourceAttrs["user.email"],
		"organization_id":   resourceAttrs["organization.id"],
		"user_account_uuid": resourceAttrs["user.account_uuid"],
	}
	for k, v := range resourceAttrs {
		attrs[k] = v
	}

	session := &Session{
		SessionID:  sessionID,
		StartTime:  e.now(),
		Attributes: attrs,
	}
	e.sessions[sessionID] = session
	e.sessionOrder = append(e.sessionOrder, sessionID)
	e.logger.Debug("session created", "session_id", sessionID)
	return session
}

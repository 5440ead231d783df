package sample

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/emiliopalmerini/devwatch/internal/engine"
	"github.com/emiliopalmerini/devwatch/internal/telemetry"
)

var modelNames = []string{
	"claude-3-5-sonnet-20241022",
	"claude-3-5-haiku-20241022",
	"claude-3-opus-20240229",
}

var promptTypes = []string{
	"code_generation",
	"code_explanation",
	"debugging",
	"refactoring",
	"documentation",
	"testing",
	"general",
}

var toolNames = []string{"Edit", "Write", "MultiEdit", "NotebookEdit"}

// Generator produces realistic telemetry envelope streams for demo mode and
// tests, standing in for a live coding assistant.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
	seq int
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func New(seed int64, opts ...Option) *Generator {
	g := &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GeneratedSession is one synthetic session's envelope stream. Ended reports
// whether the caller should close the session after ingesting.
type GeneratedSession struct {
	SessionID string
	Envelopes []*telemetry.Envelope
	Ended     bool
}

// Session generates one synthetic development session: session start, a
// handful of AI exchanges with token, cost, span and log telemetry, plus
// occasional code-edit and git activity.
func (g *Generator) Session() GeneratedSession {
	g.seq++
	sessionID := fmt.Sprintf("demo_%d_%d_%04d", g.now().Unix(), g.seq, g.rng.Intn(10000))
	interactions := 3 + g.rng.Intn(13)

	start := g.now().Add(-time.Duration(5+g.rng.Intn(115)) * time.Minute)
	resourceAttrs := map[string]any{
		telemetry.SessionIDKey: sessionID,
		"service.name":         "claude-code",
		"user.email":           fmt.Sprintf("dev%d@example.com", 1+g.rng.Intn(100)),
	}

	var envs []*telemetry.Envelope
	envs = append(envs, g.metric(engine.MetricSessionCount, start, resourceAttrs,
		datapoint(1, start, nil)))

	ts := start
	var cumulativeCost float64
	for i := 0; i < interactions; i++ {
		ts = ts.Add(time.Duration(1+g.rng.Intn(9))*time.Minute +
			time.Duration(g.rng.Intn(60))*time.Second)
		model := modelNames[g.rng.Intn(len(modelNames))]
		request, response := g.tokenCounts()

		envs = append(envs, g.metric(engine.MetricTokenUsage, ts, resourceAttrs,
			datapoint(float64(request), ts, map[string]any{"model": model, "type": "input"}),
			datapoint(float64(response), ts, map[string]any{"model": model, "type": "output"}),
		))
		if g.rng.Float64() < 0.4 {
			envs = append(envs, g.metric(engine.MetricTokenUsage, ts, resourceAttrs,
				datapoint(float64(g.rng.Intn(2000)), ts,
					map[string]any{"model": model, "type": "cacheRead"})))
		}

		cumulativeCost += float64(request+response) / 1000 * 0.009
		envs = append(envs, g.metric(engine.MetricCostUsage, ts, resourceAttrs,
			datapoint(cumulativeCost, ts, map[string]any{"model": model})))

		envs = append(envs, g.span(sessionID, model, ts, resourceAttrs))

		if g.rng.Float64() < 0.5 {
			envs = append(envs, g.log(ts, resourceAttrs,
				fmt.Sprintf("completed %s request", promptTypes[g.rng.Intn(len(promptTypes))])))
		}
	}

	if g.rng.Float64() < 0.6 {
		added := float64(10 + g.rng.Intn(190))
		removed := float64(g.rng.Intn(80))
		envs = append(envs, g.metric(engine.MetricLinesOfCode, ts, resourceAttrs,
			datapoint(added, ts, map[string]any{"type": "added"}),
			datapoint(removed, ts, map[string]any{"type": "removed"}),
		))
	}
	if g.rng.Float64() < 0.5 {
		decision := "accept"
		if g.rng.Float64() < 0.2 {
			decision = "reject"
		}
		envs = append(envs, g.metric(engine.MetricToolDecision, ts, resourceAttrs,
			datapoint(1, ts, map[string]any{
				"decision":  decision,
				"tool_name": toolNames[g.rng.Intn(len(toolNames))],
			})))
	}
	if g.rng.Float64() < 0.3 {
		envs = append(envs, g.metric(engine.MetricCommits, ts, resourceAttrs,
			datapoint(float64(1+g.rng.Intn(3)), ts, nil)))
	}
	if g.rng.Float64() < 0.15 {
		envs = append(envs, g.metric(engine.MetricPullRequests, ts, resourceAttrs,
			datapoint(1, ts, nil)))
	}

	return GeneratedSession{
		SessionID: sessionID,
		Envelopes: envs,
		Ended:     g.rng.Float64() < 0.7,
	}
}

// Sessions generates n synthetic sessions.
func (g *Generator) Sessions(n int) []GeneratedSession {
	out := make([]GeneratedSession, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.Session())
	}
	return out
}

func (g *Generator) tokenCounts() (request, response int) {
	switch promptTypes[g.rng.Intn(len(promptTypes))] {
	case "code_generation":
		return 100 + g.rng.Intn(400), 200 + g.rng.Intn(800)
	case "code_explanation":
		return 150 + g.rng.Intn(650), 100 + g.rng.Intn(500)
	case "debugging":
		return 200 + g.rng.Intn(400), 150 + g.rng.Intn(250)
	default:
		return 50 + g.rng.Intn(250), 50 + g.rng.Intn(350)
	}
}

func (g *Generator) responseTimeMS(model string) float64 {
	switch {
	case strings.Contains(model, "opus"):
		return float64(2000 + g.rng.Intn(6000))
	case strings.Contains(model, "haiku"):
		return float64(500 + g.rng.Intn(1500))
	default:
		return float64(1000 + g.rng.Intn(3000))
	}
}

func (g *Generator) metric(name string, ts time.Time, resourceAttrs map[string]any, dps ...telemetry.Datapoint) *telemetry.Envelope {
	return &telemetry.Envelope{
		Kind:          telemetry.KindMetric,
		Timestamp:     ts,
		Scope:         "com.anthropic.claude_code",
		ResourceAttrs: cloneMap(resourceAttrs),
		Metric: &telemetry.MetricPayload{
			Name:       name,
			Datapoints: dps,
		},
	}
}

func (g *Generator) span(sessionID, model string, ts time.Time, resourceAttrs map[string]any) *telemetry.Envelope {
	duration := g.responseTimeMS(model)
	return &telemetry.Envelope{
		Kind:          telemetry.KindSpan,
		Timestamp:     ts,
		Scope:         "com.anthropic.claude_code",
		ResourceAttrs: cloneMap(resourceAttrs),
		Span: &telemetry.SpanPayload{
			SpanID:     fmt.Sprintf("%016x", g.rng.Uint64()),
			Name:       "ai_interaction",
			Start:      ts,
			End:        ts.Add(time.Duration(duration) * time.Millisecond),
			DurationMS: duration,
			Attrs:      map[string]any{"model.name": model},
		},
	}
}

func (g *Generator) log(ts time.Time, resourceAttrs map[string]any, body string) *telemetry.Envelope {
	return &telemetry.Envelope{
		Kind:          telemetry.KindLog,
		Timestamp:     ts,
		Scope:         "com.anthropic.claude_code",
		ResourceAttrs: cloneMap(resourceAttrs),
		Log: &telemetry.LogPayload{
			SeverityText: "INFO",
			Body:         body,
			Attrs:        map[string]any{"source": "demo"},
		},
	}
}

func datapoint(value float64, ts time.Time, attrs map[string]any) telemetry.Datapoint {
	return telemetry.Datapoint{Value: value, Time: ts, Attrs: attrs}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}


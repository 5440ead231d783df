package dashboard

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/emiliopalmerini/devwatch/internal/engine"
	"github.com/emiliopalmerini/devwatch/internal/providers"
	"github.com/emiliopalmerini/devwatch/internal/telemetry"
)

var dashTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func seedEngine(t *testing.T, sessionIDs ...string) *engine.Engine {
	t.Helper()
	eng := engine.New(slog.New(slog.NewTextHandler(io.Discard, nil)),
		engine.WithClock(func() time.Time { return dashTime }))
	for _, id := range sessionIDs {
		eng.Ingest(&telemetry.Envelope{
			Kind:      telemetry.KindMetric,
			Timestamp: dashTime,
			ResourceAttrs: map[string]any{
				telemetry.SessionIDKey: id,
			},
			Metric: &telemetry.MetricPayload{
				Name: engine.MetricTokenUsage,
				Datapoints: []telemetry.Datapoint{
					{
						Value: 100,
						Time:  dashTime,
						Attrs: map[string]any{"model": "claude-3-5-sonnet", "type": "input"},
					},
				},
			},
		})
	}
	return eng
}

func newTestApp(t *testing.T, sessionIDs ...string) *App {
	t.Helper()
	eng := seedEngine(t, sessionIDs...)
	manager := providers.NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	app := NewApp(eng, manager)
	app.refresh()
	return app
}

func keyMsg(s string) tea.KeyMsg {
	if len(s) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{}
}

func TestOverview_ShowsStats(t *testing.T) {
	app := newTestApp(t, "S1", "S2")

	view := app.View()
	if !strings.Contains(view, "DEVWATCH") {
		t.Error("expected header in view")
	}
	if !strings.Contains(view, "2") {
		t.Error("expected session count in overview")
	}
	if !strings.Contains(view, "Sessions") {
		t.Error("expected sessions card title")
	}
}

func TestSessions_ListAndCursor(t *testing.T) {
	app := newTestApp(t, "session-aa", "session-bb")
	app.screen = ScreenSessions

	view := app.View()
	if !strings.Contains(view, "session-aa") || !strings.Contains(view, "session-bb") {
		t.Error("expected both sessions listed")
	}

	if app.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", app.cursor)
	}
	app.handleKey(keyMsg("j"))
	if app.cursor != 1 {
		t.Errorf("cursor after j = %d, want 1", app.cursor)
	}
	app.handleKey(keyMsg("j"))
	if app.cursor != 1 {
		t.Errorf("cursor must not pass last row, got %d", app.cursor)
	}
	app.handleKey(keyMsg("k"))
	if app.cursor != 0 {
		t.Errorf("cursor after k = %d, want 0", app.cursor)
	}
}

func TestSessions_EnterOpensDetailEscReturns(t *testing.T) {
	app := newTestApp(t, "S1")
	app.screen = ScreenSessions

	app.handleKey(keyMsg("enter"))
	if app.screen != ScreenDetail {
		t.Fatalf("screen = %v, want detail", app.screen)
	}
	if app.detail == nil || app.detail.SessionID != "S1" {
		t.Fatal("detail session not loaded")
	}

	view := app.View()
	if !strings.Contains(view, "Session S1") {
		t.Error("expected detail title")
	}
	if !strings.Contains(view, "active") {
		t.Error("expected active status")
	}

	app.handleKey(keyMsg("esc"))
	if app.screen != ScreenSessions {
		t.Errorf("screen after esc = %v, want sessions", app.screen)
	}
	if app.detail != nil {
		t.Error("detail should be cleared on esc")
	}
}

func TestScreenSwitching(t *testing.T) {
	app := newTestApp(t, "S1")

	app.handleKey(keyMsg("2"))
	if app.screen != ScreenSessions {
		t.Errorf("screen = %v, want sessions", app.screen)
	}
	app.handleKey(keyMsg("3"))
	if app.screen != ScreenUsage {
		t.Errorf("screen = %v, want usage", app.screen)
	}
	app.handleKey(keyMsg("1"))
	if app.screen != ScreenOverview {
		t.Errorf("screen = %v, want overview", app.screen)
	}
}

func TestQuitKeys(t *testing.T) {
	app := newTestApp(t)
	_, cmd := app.handleKey(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Errorf("expected quit msg, got %T", msg)
	}
}

func TestTick_RefreshesSnapshot(t *testing.T) {
	app := newTestApp(t, "S1")

	seedEngineExtra := func(id string) {
		app.engine.Ingest(&telemetry.Envelope{
			Kind:          telemetry.KindMetric,
			Timestamp:     dashTime,
			ResourceAttrs: map[string]any{telemetry.SessionIDKey: id},
			Metric: &telemetry.MetricPayload{
				Name: engine.MetricSessionCount,
				Datapoints: []telemetry.Datapoint{
					{Value: 1, Time: dashTime},
				},
			},
		})
	}
	seedEngineExtra("S2")

	if app.snap.stats.TotalSessions != 1 {
		t.Fatalf("pre-tick sessions = %d, want 1", app.snap.stats.TotalSessions)
	}
	_, cmd := app.Update(tickMsg(dashTime))
	if cmd == nil {
		t.Error("tick must reschedule itself")
	}
	if app.snap.stats.TotalSessions != 2 {
		t.Errorf("post-tick sessions = %d, want 2", app.snap.stats.TotalSessions)
	}
}

func TestRenderSessions_Empty(t *testing.T) {
	styles := defaultStyles()
	view := renderSessions(styles, nil, 0)
	if !strings.Contains(view, "No sessions yet") {
		t.Error("expected empty-state message")
	}
}

func TestRenderUsage(t *testing.T) {
	styles := defaultStyles()

	view := renderUsage(styles, nil)
	if !strings.Contains(view, "No providers configured") {
		t.Error("expected empty-state message")
	}

	summaries := []providers.UsageSummary{
		{
			Provider:      providers.KindAnthropic,
			PeriodDays:    7,
			TotalCostUSD:  1.23,
			TotalTokens:   4500,
			TotalRequests: 12,
			ByModel: map[string]providers.ModelUsage{
				"claude-3-5-sonnet": {CostUSD: 1.23, Tokens: 4500, Requests: 12},
			},
		},
	}
	view = renderUsage(styles, summaries)
	if !strings.Contains(view, "anthropic") {
		t.Error("expected provider name")
	}
	if !strings.Contains(view, "claude-3-5-sonnet") {
		t.Error("expected model breakdown")
	}
	if !strings.Contains(view, "$1.23") {
		t.Error("expected formatted cost")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"this is far too long", 10, "this is..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

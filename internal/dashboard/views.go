package dashboard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/emiliopalmerini/devwatch/internal/engine"
	"github.com/emiliopalmerini/devwatch/internal/providers"
	"github.com/emiliopalmerini/devwatch/internal/util"
)

const sessionRowsMax = 15

// metricCard is a single KPI tile.
type metricCard struct {
	Title    string
	Value    string
	Subtitle string
}

func (c metricCard) render(styles *Styles, width int) string {
	title := styles.Muted.Render(c.Title)
	value := styles.Value.Render(c.Value)
	subtitle := styles.Muted.Render(c.Subtitle)
	content := lipgloss.JoinVertical(lipgloss.Left, title, value, subtitle)
	return styles.Card.Width(width).Render(content)
}

func renderCards(styles *Styles, cards []metricCard, totalWidth int) string {
	if totalWidth <= 0 {
		totalWidth = 80
	}
	cardWidth := (totalWidth - 4) / 2
	if cardWidth < 20 {
		cardWidth = 20
	}

	var rows []string
	for i := 0; i < len(cards); i += 2 {
		pair := []string{cards[i].render(styles, cardWidth)}
		if i+1 < len(cards) {
			pair = append(pair, cards[i+1].render(styles, cardWidth))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, pair...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderOverview(styles *Styles, snap snapshot, width int) string {
	title := styles.Title.Render("Live Overview")

	cards := []metricCard{
		{
			Title:    "Sessions",
			Value:    fmt.Sprintf("%d", snap.stats.TotalSessions),
			Subtitle: fmt.Sprintf("%d active", snap.stats.ActiveSessions),
		},
		{
			Title:    "Interactions",
			Value:    fmt.Sprintf("%d", snap.stats.TotalInteractions),
			Subtitle: "AI exchanges",
		},
		{
			Title:    "Tokens",
			Value:    util.FormatTokens(snap.stats.TotalTokens),
			Subtitle: "All sessions",
		},
		{
			Title:    "Events",
			Value:    fmt.Sprintf("%d", snap.stats.TotalEvents),
			Subtitle: "Telemetry received",
		},
	}

	help := styles.Help.Render("1/2/3: screens  r: refresh  q: quit")
	return lipgloss.JoinVertical(lipgloss.Left,
		title, "", renderCards(styles, cards, width), "", help)
}

func renderSessions(styles *Styles, summaries []engine.SessionSummary, cursor int) string {
	title := styles.Title.Render(fmt.Sprintf("Sessions (%d)", len(summaries)))

	if len(summaries) == 0 {
		empty := styles.Muted.Render("No sessions yet. Waiting for telemetry...")
		return lipgloss.JoinVertical(lipgloss.Left, title, "", empty)
	}

	header := styles.Muted.Render(fmt.Sprintf("  %-24s %-9s %6s %10s %8s  %s",
		"SESSION", "STARTED", "TURNS", "TOKENS", "STATUS", "MODELS"))

	var rows []string
	limit := min(len(summaries), sessionRowsMax)
	for i := 0; i < limit; i++ {
		s := summaries[i]
		status := "active"
		if s.EndTime != nil {
			status = "ended"
		}
		row := fmt.Sprintf("%-24s %-9s %6d %10s %8s  %s",
			truncate(s.SessionID, 24),
			util.FormatClock(s.StartTime),
			s.TotalInteractions,
			util.FormatTokens(s.TotalTokens),
			status,
			truncate(strings.Join(s.ModelsUsed, ","), 28),
		)
		if i == cursor {
			rows = append(rows, styles.Selected.Render("> "+row))
		} else {
			rows = append(rows, "  "+row)
		}
	}
	if len(summaries) > limit {
		rows = append(rows, styles.Muted.Render(
			fmt.Sprintf("  ... and %d more", len(summaries)-limit)))
	}

	help := styles.Help.Render("j/k: move  enter: detail  r: refresh  q: quit")
	body := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return lipgloss.JoinVertical(lipgloss.Left, title, "", header, body, "", help)
}

func renderDetail(styles *Styles, session *engine.Session) string {
	if session == nil {
		return styles.Muted.Render("No session selected.")
	}

	title := styles.Title.Render("Session " + session.SessionID)

	status := styles.Success.Render("active")
	duration := "-"
	if session.EndTime != nil {
		status = styles.Muted.Render("ended")
		if session.DurationMS != nil {
			duration = util.FormatDuration(*session.DurationMS)
		}
	}

	lines := []string{
		fmt.Sprintf("Status:        %s", status),
		fmt.Sprintf("Started:       %s", util.FormatClock(session.StartTime)),
		fmt.Sprintf("Duration:      %s", duration),
		fmt.Sprintf("Interactions:  %d", session.TotalInteractions),
		fmt.Sprintf("Tokens:        %s (%s in / %s out)",
			util.FormatTokens(session.TotalTokens),
			util.FormatTokens(session.TotalRequestTokens),
			util.FormatTokens(session.TotalResponseTokens)),
		fmt.Sprintf("Models:        %s", strings.Join(session.ModelsUsed(), ", ")),
	}
	if cost := util.ToFloat64(session.Attributes["total_cost_usd"]); cost > 0 {
		lines = append(lines, fmt.Sprintf("Cost:          %s", util.FormatCost(cost)))
	}

	var interactions []string
	if len(session.Interactions) > 0 {
		interactions = append(interactions, "", styles.Bold.Render("Recent interactions"))
		start := max(0, len(session.Interactions)-5)
		for _, in := range session.Interactions[start:] {
			line := fmt.Sprintf("  %s  %-28s %10s",
				util.FormatClock(in.Timestamp),
				truncate(in.ModelName, 28),
				util.FormatTokens(in.TotalTokens))
			if in.ResponseTimeMS != nil {
				line += "  " + util.FormatDuration(*in.ResponseTimeMS)
			}
			interactions = append(interactions, line)
		}
	}

	var logs []string
	if len(session.RecentLogs) > 0 {
		logs = append(logs, "", styles.Bold.Render("Recent logs"))
		start := max(0, len(session.RecentLogs)-5)
		for _, entry := range session.RecentLogs[start:] {
			logs = append(logs, styles.Muted.Render(fmt.Sprintf("  %s [%s] %v",
				util.FormatClock(entry.Timestamp), entry.Severity,
				truncateAny(entry.Body, 60))))
		}
	}

	help := styles.Help.Render("esc: back  r: refresh  q: quit")
	parts := []string{title, ""}
	parts = append(parts, lines...)
	parts = append(parts, interactions...)
	parts = append(parts, logs...)
	parts = append(parts, "", help)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderUsage(styles *Styles, summaries []providers.UsageSummary) string {
	title := styles.Title.Render("Provider Usage (Last 7 Days)")

	if len(summaries) == 0 {
		empty := styles.Muted.Render("No providers configured.")
		return lipgloss.JoinVertical(lipgloss.Left, title, "", empty)
	}

	var sections []string
	for _, summary := range summaries {
		header := styles.Bold.Render(string(summary.Provider))
		totals := fmt.Sprintf("  %s  %s tokens  %d requests",
			util.FormatCost(summary.TotalCostUSD),
			util.FormatTokens(summary.TotalTokens),
			summary.TotalRequests)

		var models []string
		for model, usage := range summary.ByModel {
			models = append(models, fmt.Sprintf("    %-28s %s  %s",
				truncate(model, 28),
				util.FormatCost(usage.CostUSD),
				util.FormatTokens(usage.Tokens)))
		}
		sort.Strings(models)

		section := lipgloss.JoinVertical(lipgloss.Left,
			append([]string{header, totals}, models...)...)
		sections = append(sections, section, "")
	}

	help := styles.Help.Render("r: refresh  q: quit")
	parts := append([]string{title, ""}, sections...)
	parts = append(parts, help)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func truncateAny(v any, n int) string {
	return truncate(fmt.Sprintf("%v", v), n)
}

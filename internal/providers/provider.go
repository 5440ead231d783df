package providers

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Kind identifies an LLM provider.
type Kind string

const (
	KindAnthropic Kind = "anthropic"
	KindOpenAI    Kind = "openai"
)

// UsageRecord is one day of usage for a single model, normalized across
// providers.
type UsageRecord struct {
	Provider       Kind      `json:"provider"`
	Date           time.Time `json:"date"`
	Model          string    `json:"model"`
	Requests       int64     `json:"requests"`
	InputTokens    int64     `json:"input_tokens"`
	OutputTokens   int64     `json:"output_tokens"`
	TotalTokens    int64     `json:"total_tokens"`
	CostUSD        float64   `json:"cost_usd"`
	OrganizationID string    `json:"organization_id,omitempty"`
}

// ModelUsage aggregates usage for one model over a period.
type ModelUsage struct {
	CostUSD  float64 `json:"cost"`
	Tokens   int64   `json:"tokens"`
	Requests int64   `json:"requests"`
}

// DailyUsage aggregates usage for one calendar day over all models.
type DailyUsage struct {
	Date     string  `json:"date"`
	CostUSD  float64 `json:"cost"`
	Tokens   int64   `json:"tokens"`
	Requests int64   `json:"requests"`
}

// UsageSummary rolls a provider's records up over a period.
type UsageSummary struct {
	Provider      Kind                  `json:"provider"`
	PeriodDays    int                   `json:"period_days"`
	TotalCostUSD  float64               `json:"total_cost"`
	TotalTokens   int64                 `json:"total_tokens"`
	TotalRequests int64                 `json:"total_requests"`
	ByModel       map[string]ModelUsage `json:"by_model"`
	Daily         []DailyUsage          `json:"daily_breakdown"`
}

// Provider fetches usage data from one LLM platform.
type Provider interface {
	Kind() Kind
	// Collect fetches usage records for the inclusive date range.
	Collect(ctx context.Context, from, to time.Time) ([]UsageRecord, error)
	// Cost prices a token count for a model.
	Cost(model string, inputTokens, outputTokens int64) float64
	// Models lists the models the provider knows pricing for.
	Models() []string
}

// Summarize rolls records up into a period summary. Records outside the
// cutoff are ignored.
func Summarize(kind Kind, records []UsageRecord, days int, now time.Time) UsageSummary {
	summary := UsageSummary{
		Provider:   kind,
		PeriodDays: days,
		ByModel:    make(map[string]ModelUsage),
		Daily:      []DailyUsage{},
	}

	cutoff := now.AddDate(0, 0, -days)
	daily := make(map[string]*DailyUsage)
	var dayOrder []string

	for _, rec := range records {
		if rec.Provider != kind || rec.Date.Before(cutoff) {
			continue
		}
		summary.TotalCostUSD += rec.CostUSD
		summary.TotalTokens += rec.TotalTokens
		summary.TotalRequests += rec.Requests

		m := summary.ByModel[rec.Model]
		m.CostUSD += rec.CostUSD
		m.Tokens += rec.TotalTokens
		m.Requests += rec.Requests
		summary.ByModel[rec.Model] = m

		day := rec.Date.Format("2006-01-02")
		d, ok := daily[day]
		if !ok {
			d = &DailyUsage{Date: day}
			daily[day] = d
			dayOrder = append(dayOrder, day)
		}
		d.CostUSD += rec.CostUSD
		d.Tokens += rec.TotalTokens
		d.Requests += rec.Requests
	}

	sort.Strings(dayOrder)
	for _, day := range dayOrder {
		summary.Daily = append(summary.Daily, *daily[day])
	}
	return summary
}

// CollectError wraps a provider collection failure with its provider kind.
type CollectError struct {
	Provider Kind
	Err      error
}

func (e *CollectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *CollectError) Unwrap() error { return e.Err }

package providers

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OpenAI reports usage for OpenAI models. Collection synthesizes the same
// deterministic per-day records as the Anthropic provider until the usage
// API is wired up.
type OpenAI struct {
	apiKey string
	orgID  string
	prices *PriceTable
	logger *slog.Logger
}

func NewOpenAI(apiKey, orgID string, logger *slog.Logger) *OpenAI {
	return &OpenAI{
		apiKey: apiKey,
		orgID:  orgID,
		prices: openaiPrices,
		logger: logger,
	}
}

func (o *OpenAI) Kind() Kind { return KindOpenAI }

func (o *OpenAI) Cost(model string, inputTokens, outputTokens int64) float64 {
	return o.prices.Cost(model, inputTokens, outputTokens)
}

func (o *OpenAI) Models() []string { return o.prices.Models() }

func (o *OpenAI) Collect(ctx context.Context, from, to time.Time) ([]UsageRecord, error) {
	if o.apiKey == "" {
		return nil, &CollectError{Provider: KindOpenAI, Err: fmt.Errorf("api key not configured")}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.logger.Debug("collecting openai usage",
		"from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"))

	models := []string{"gpt-4o", "gpt-4o-mini", "gpt-3.5-turbo"}
	records := synthesizeUsage(KindOpenAI, models, o.orgID, from, to, o.prices)
	return records, nil
}

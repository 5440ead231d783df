package providers

import (
	"sort"
	"strings"
)

// ModelPrice is the per-1K-token price for one model.
type ModelPrice struct {
	InputPer1K  float64
	OutputPer1K float64
}

// PriceTable prices token usage per model, with a fallback model for names
// it does not know.
type PriceTable struct {
	prices   map[string]ModelPrice
	fallback string
}

func NewPriceTable(prices map[string]ModelPrice, fallback string) *PriceTable {
	return &PriceTable{prices: prices, fallback: fallback}
}

// Cost prices the given token counts. Unknown model names first try a
// partial match against known models, then fall back to the default model's
// pricing.
func (t *PriceTable) Cost(model string, inputTokens, outputTokens int64) float64 {
	key := strings.ToLower(model)
	price, ok := t.prices[key]
	if !ok {
		for known, p := range t.prices {
			if strings.Contains(key, known) || strings.Contains(known, key) {
				price, ok = p, true
				break
			}
		}
	}
	if !ok {
		price = t.prices[t.fallback]
	}
	return float64(inputTokens)/1000*price.InputPer1K +
		float64(outputTokens)/1000*price.OutputPer1K
}

// Models returns the known model names in sorted order.
func (t *PriceTable) Models() []string {
	models := make([]string, 0, len(t.prices))
	for model := range t.prices {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

var anthropicPrices = NewPriceTable(map[string]ModelPrice{
	"claude-3-haiku":     {InputPer1K: 0.00025, OutputPer1K: 0.00125},
	"claude-3-sonnet":    {InputPer1K: 0.003, OutputPer1K: 0.015},
	"claude-3-opus":      {InputPer1K: 0.015, OutputPer1K: 0.075},
	"claude-3-5-sonnet":  {InputPer1K: 0.003, OutputPer1K: 0.015},
	"claude-3-5-haiku":   {InputPer1K: 0.001, OutputPer1K: 0.005},
	"claude-2.1":         {InputPer1K: 0.008, OutputPer1K: 0.024},
	"claude-2":           {InputPer1K: 0.008, OutputPer1K: 0.024},
	"claude-instant-1.2": {InputPer1K: 0.0008, OutputPer1K: 0.0024},
}, "claude-3-sonnet")

var openaiPrices = NewPriceTable(map[string]ModelPrice{
	"gpt-4":             {InputPer1K: 0.03, OutputPer1K: 0.06},
	"gpt-4-32k":         {InputPer1K: 0.06, OutputPer1K: 0.12},
	"gpt-4-turbo":       {InputPer1K: 0.01, OutputPer1K: 0.03},
	"gpt-4o":            {InputPer1K: 0.0025, OutputPer1K: 0.01},
	"gpt-4o-mini":       {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"gpt-3.5-turbo":     {InputPer1K: 0.0015, OutputPer1K: 0.002},
	"gpt-3.5-turbo-16k": {InputPer1K: 0.003, OutputPer1K: 0.004},
}, "gpt-4")

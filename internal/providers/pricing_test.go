package providers

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPriceTable_Cost(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		input  int64
		output int64
		want   float64
	}{
		{
			name:   "known anthropic model",
			model:  "claude-3-5-sonnet",
			input:  1000,
			output: 1000,
			want:   0.003 + 0.015,
		},
		{
			name:   "partial match on versioned name",
			model:  "claude-3-5-sonnet-20241022",
			input:  1000,
			output: 0,
			want:   0.003,
		},
		{
			name:   "unknown model falls back to claude-3-sonnet",
			model:  "mystery-model",
			input:  2000,
			output: 1000,
			want:   2*0.003 + 0.015,
		},
		{
			name:   "zero tokens cost nothing",
			model:  "claude-3-opus",
			input:  0,
			output: 0,
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := anthropicPrices.Cost(tt.model, tt.input, tt.output)
			if !almostEqual(got, tt.want) {
				t.Errorf("Cost(%q, %d, %d) = %v, want %v",
					tt.model, tt.input, tt.output, got, tt.want)
			}
		})
	}
}

func TestPriceTable_OpenAIFallback(t *testing.T) {
	got := openaiPrices.Cost("some-future-model", 1000, 1000)
	want := 0.03 + 0.06
	if !almostEqual(got, want) {
		t.Errorf("Cost = %v, want gpt-4 fallback %v", got, want)
	}
}

func TestPriceTable_ModelsSorted(t *testing.T) {
	models := anthropicPrices.Models()
	if len(models) == 0 {
		t.Fatal("expected known models")
	}
	for i := 1; i < len(models); i++ {
		if models[i-1] > models[i] {
			t.Errorf("models not sorted: %q before %q", models[i-1], models[i])
		}
	}
}

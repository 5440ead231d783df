package providers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

var managerTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, provs []Provider, opts ...ManagerOption) *Manager {
	t.Helper()
	opts = append(opts, WithManagerClock(func() time.Time { return managerTime }))
	return NewManager(testLogger(), provs, opts...)
}

func TestAnthropic_CollectDeterministic(t *testing.T) {
	p := NewAnthropic("sk-test", "org-1", testLogger())

	from := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	first, err := p.Collect(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	// 3 days x 3 models
	if len(first) != 9 {
		t.Fatalf("expected 9 records, got %d", len(first))
	}
	second, err := p.Collect(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("record %d not stable across collections: %+v vs %+v",
				i, first[i], second[i])
		}
	}
	for _, rec := range first {
		if rec.TotalTokens != rec.InputTokens+rec.OutputTokens {
			t.Errorf("total tokens %d != input %d + output %d",
				rec.TotalTokens, rec.InputTokens, rec.OutputTokens)
		}
		if rec.CostUSD <= 0 {
			t.Errorf("record %s/%s has no cost", rec.Date.Format("2006-01-02"), rec.Model)
		}
		if rec.OrganizationID != "org-1" {
			t.Errorf("organization id = %q, want org-1", rec.OrganizationID)
		}
	}
}

func TestAnthropic_CollectWithoutKeyFails(t *testing.T) {
	p := NewAnthropic("", "", testLogger())
	_, err := p.Collect(context.Background(), managerTime, managerTime)
	if err == nil {
		t.Fatal("expected error without api key")
	}
	var ce *CollectError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CollectError, got %T", err)
	}
	if ce.Provider != KindAnthropic {
		t.Errorf("provider = %q, want anthropic", ce.Provider)
	}
}

func TestManager_CollectMergesRedeliveredDays(t *testing.T) {
	m := newTestManager(t, []Provider{NewOpenAI("sk-test", "", testLogger())})

	if _, err := m.Collect(context.Background(), KindOpenAI, 2); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if _, err := m.Collect(context.Background(), KindOpenAI, 2); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	summary, err := m.Summary(KindOpenAI, 7)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	// 3 days x 3 models, collected twice: same days must reconcile, not
	// double count.
	var wantRequests int64
	records, _ := NewOpenAI("sk-test", "", testLogger()).Collect(
		context.Background(), managerTime.AddDate(0, 0, -2), managerTime)
	for _, rec := range records {
		wantRequests += rec.Requests
	}
	if summary.TotalRequests != wantRequests {
		t.Errorf("total requests = %d, want %d (double counted?)",
			summary.TotalRequests, wantRequests)
	}
}

func TestManager_SummaryGroupsByModelAndDay(t *testing.T) {
	m := newTestManager(t, []Provider{NewAnthropic("sk-test", "", testLogger())})
	if _, err := m.Collect(context.Background(), KindAnthropic, 2); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	summary, err := m.Summary(KindAnthropic, 7)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Provider != KindAnthropic {
		t.Errorf("provider = %q", summary.Provider)
	}
	if len(summary.ByModel) != 3 {
		t.Errorf("expected 3 models, got %d", len(summary.ByModel))
	}
	if len(summary.Daily) != 3 {
		t.Errorf("expected 3 days, got %d", len(summary.Daily))
	}
	for i := 1; i < len(summary.Daily); i++ {
		if summary.Daily[i-1].Date > summary.Daily[i].Date {
			t.Errorf("daily breakdown not sorted: %q before %q",
				summary.Daily[i-1].Date, summary.Daily[i].Date)
		}
	}
}

func TestManager_UnknownProvider(t *testing.T) {
	m := newTestManager(t, nil)
	if _, err := m.Collect(context.Background(), KindAnthropic, 1); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Collect error = %v, want ErrUnknownProvider", err)
	}
	if _, err := m.Summary(KindAnthropic, 7); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Summary error = %v, want ErrUnknownProvider", err)
	}
}

func TestManager_StoreCallbackReceivesBatches(t *testing.T) {
	var stored []UsageRecord
	m := newTestManager(t,
		[]Provider{NewAnthropic("sk-test", "", testLogger())},
		WithStore(func(_ context.Context, records []UsageRecord) {
			stored = append(stored, records...)
		}))

	records, err := m.Collect(context.Background(), KindAnthropic, 1)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(stored) != len(records) {
		t.Errorf("store callback saw %d records, want %d", len(stored), len(records))
	}
}

func TestManager_CollectAllSurvivesFailingProvider(t *testing.T) {
	m := newTestManager(t, []Provider{
		NewAnthropic("", "", testLogger()), // no key, will fail
		NewOpenAI("sk-test", "", testLogger()),
	})

	results := m.CollectAll(context.Background(), 1)
	if len(results[KindAnthropic]) != 0 {
		t.Errorf("failing provider should report empty, got %d records",
			len(results[KindAnthropic]))
	}
	if len(results[KindOpenAI]) == 0 {
		t.Error("healthy provider should still collect")
	}
}

func TestSummarize_IgnoresRecordsOutsidePeriod(t *testing.T) {
	records := []UsageRecord{
		{Provider: KindOpenAI, Date: managerTime.AddDate(0, 0, -1), Model: "gpt-4o", Requests: 2, TotalTokens: 100, CostUSD: 1},
		{Provider: KindOpenAI, Date: managerTime.AddDate(0, 0, -30), Model: "gpt-4o", Requests: 9, TotalTokens: 900, CostUSD: 9},
		{Provider: KindAnthropic, Date: managerTime, Model: "claude-3-opus", Requests: 5, TotalTokens: 500, CostUSD: 5},
	}
	summary := Summarize(KindOpenAI, records, 7, managerTime)
	if summary.TotalRequests != 2 {
		t.Errorf("total requests = %d, want 2", summary.TotalRequests)
	}
	if summary.TotalTokens != 100 {
		t.Errorf("total tokens = %d, want 100", summary.TotalTokens)
	}
}

package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownProvider is returned for kinds no registered provider serves.
var ErrUnknownProvider = fmt.Errorf("unknown provider")

// StoreFunc receives each successful collection batch for persistence.
type StoreFunc func(ctx context.Context, records []UsageRecord)

// Manager owns the registered providers, runs their collection cycles and
// keeps the collected records in memory for querying.
type Manager struct {
	mu        sync.Mutex
	providers map[Kind]Provider
	order     []Kind
	records   map[Kind][]UsageRecord

	store  StoreFunc
	logger *slog.Logger
	now    func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithStore sets the persistence callback invoked after each collection.
func WithStore(store StoreFunc) ManagerOption {
	return func(m *Manager) { m.store = store }
}

// WithManagerClock overrides the clock, for tests.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(logger *slog.Logger, provs []Provider, opts ...ManagerOption) *Manager {
	m := &Manager{
		providers: make(map[Kind]Provider, len(provs)),
		records:   make(map[Kind][]UsageRecord),
		logger:    logger,
		now:       time.Now,
	}
	for _, p := range provs {
		if _, dup := m.providers[p.Kind()]; dup {
			continue
		}
		m.providers[p.Kind()] = p
		m.order = append(m.order, p.Kind())
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Kinds returns the registered provider kinds in registration order.
func (m *Manager) Kinds() []Kind {
	return append([]Kind(nil), m.order...)
}

// Provider returns the registered provider for a kind.
func (m *Manager) Provider(kind Kind) (Provider, bool) {
	p, ok := m.providers[kind]
	return p, ok
}

// Collect runs one collection cycle for a single provider over the lookback
// window and merges the result into the in-memory record set.
func (m *Manager) Collect(ctx context.Context, kind Kind, lookbackDays int) ([]UsageRecord, error) {
	p, ok := m.providers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, kind)
	}

	cycle := uuid.NewString()
	to := m.now()
	from := to.AddDate(0, 0, -lookbackDays)
	records, err := p.Collect(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("collect cycle %s: %w", cycle, err)
	}

	m.mergeRecords(kind, records)
	if m.store != nil && len(records) > 0 {
		m.store(ctx, records)
	}
	m.logger.Info("collected provider usage",
		"cycle", cycle, "provider", kind, "records", len(records))
	return records, nil
}

// CollectAll runs a collection cycle for every provider. Per-provider
// failures are logged and reported as empty result sets so one broken
// provider never blocks the others.
func (m *Manager) CollectAll(ctx context.Context, lookbackDays int) map[Kind][]UsageRecord {
	results := make(map[Kind][]UsageRecord, len(m.order))
	for _, kind := range m.order {
		records, err := m.Collect(ctx, kind, lookbackDays)
		if err != nil {
			m.logger.Warn("provider collection failed", "provider", kind, "error", err)
			results[kind] = []UsageRecord{}
			continue
		}
		results[kind] = records
	}
	return results
}

// Summary rolls one provider's collected records up over the period.
func (m *Manager) Summary(kind Kind, days int) (UsageSummary, error) {
	if _, ok := m.providers[kind]; !ok {
		return UsageSummary{}, fmt.Errorf("%w: %s", ErrUnknownProvider, kind)
	}
	m.mu.Lock()
	records := append([]UsageRecord(nil), m.records[kind]...)
	m.mu.Unlock()
	return Summarize(kind, records, days, m.now()), nil
}

// Summaries rolls every provider's records up over the period.
func (m *Manager) Summaries(days int) []UsageSummary {
	summaries := make([]UsageSummary, 0, len(m.order))
	for _, kind := range m.order {
		summary, err := m.Summary(kind, days)
		if err != nil {
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// Run drives periodic collection until the context is cancelled. One cycle
// runs immediately, then one per interval tick.
func (m *Manager) Run(ctx context.Context, interval time.Duration, lookbackDays int) {
	if len(m.order) == 0 {
		m.logger.Info("no providers configured, usage collection disabled")
		return
	}
	m.logger.Info("starting provider usage collection",
		"providers", len(m.order), "interval", interval)

	m.CollectAll(ctx, lookbackDays)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CollectAll(ctx, lookbackDays)
		}
	}
}

// mergeRecords replaces records by (date, model) identity so a re-collected
// day reconciles instead of double counting.
func (m *Manager) mergeRecords(kind Kind, records []UsageRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKey := make(map[string]UsageRecord, len(m.records[kind])+len(records))
	var keys []string
	add := func(rec UsageRecord) {
		key := rec.Date.Format("2006-01-02") + "_" + rec.Model
		if _, seen := byKey[key]; !seen {
			keys = append(keys, key)
		}
		byKey[key] = rec
	}
	for _, rec := range m.records[kind] {
		add(rec)
	}
	for _, rec := range records {
		add(rec)
	}

	sort.Strings(keys)
	merged := make([]UsageRecord, 0, len(keys))
	for _, key := range keys {
		merged = append(merged, byKey[key])
	}
	m.records[kind] = merged
}

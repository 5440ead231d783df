package engine

import (
	"time"
)

// Log tail bounds: once a session's tail exceeds logTailMax entries it is
// trimmed down to the most recent logTailKeep, and held there from then on.
const (
	logTailMax  = 100
	logTailKeep = 50
)

// Session is the evolving record of one development session. Identity is the
// externally supplied session id; the aggregate is created on first reference
// and mutated by every later event carrying the same id.
type Session struct {
	SessionID  string
	StartTime  time.Time
	EndTime    *time.Time
	DurationMS *float64

	// Derived counters, recomputed as sums over Interactions after every
	// interaction mutation so partial updates can never drift.
	TotalInteractions   int64
	TotalTokens         int64
	TotalRequestTokens  int64
	TotalResponseTokens int64

	// Insertion order is discovery order, not timestamp order.
	Interactions []*Interaction

	// Open attribute bag for free-form facts: cumulative cost, line counts,
	// tool decisions, commit/PR counts, seeded resource attributes.
	Attributes map[string]any

	// Capped log tail, newest retained.
	RecentLogs []LogEntry

	logsTrimmed bool
}

// Active reports whether the session has not been explicitly ended.
func (s *Session) Active() bool {
	return s.EndTime == nil
}

// End marks the session ended at the given time and fixes its duration.
// A second call is a no-op: end time is set exactly once.
func (s *Session) End(at time.Time) {
	if s.EndTime != nil {
		return
	}
	t := at.UTC()
	s.EndTime = &t
	d := float64(t.Sub(s.StartTime)) / float64(time.Millisecond)
	s.DurationMS = &d
}

// AverageTokensPerInteraction returns 0 for sessions with no interactions.
func (s *Session) AverageTokensPerInteraction() float64 {
	if s.TotalInteractions == 0 {
		return 0
	}
	return float64(s.TotalTokens) / float64(s.TotalInteractions)
}

// ModelsUsed returns the distinct model names seen across interactions, in
// first-seen order.
func (s *Session) ModelsUsed() []string {
	var models []string
	seen := make(map[string]bool)
	for _, in := range s.Interactions {
		if in.ModelName == "" || seen[in.ModelName] {
			continue
		}
		seen[in.ModelName] = true
		models = append(models, in.ModelName)
	}
	return models
}

// recomputeTotals re-derives all session counters from owned interactions.
func (s *Session) recomputeTotals() {
	s.TotalInteractions = int64(len(s.Interactions))
	s.TotalTokens = 0
	s.TotalRequestTokens = 0
	s.TotalResponseTokens = 0
	for _, in := range s.Interactions {
		s.TotalTokens += in.TotalTokens
		s.TotalRequestTokens += in.RequestTokens
		s.TotalResponseTokens += in.ResponseTokens
	}
}

// appendLog adds an entry to the capped log tail. The first overflow trims
// the tail down to logTailKeep; once trimmed, it stays at the keep size.
func (s *Session) appendLog(entry LogEntry) {
	s.RecentLogs = append(s.RecentLogs, entry)
	limit := logTailMax
	if s.logsTrimmed {
		limit = logTailKeep
	}
	if len(s.RecentLogs) > limit {
		trimmed := make([]LogEntry, logTailKeep)
		copy(trimmed, s.RecentLogs[len(s.RecentLogs)-logTailKeep:])
		s.RecentLogs = trimmed
		s.logsTrimmed = true
	}
}

// Interaction is the evolving record of one AI request/response exchange.
// Its id is derived from session+model+source-timestamp (or the span id when
// created from a trace), so re-delivered metrics resolve to the same record.
type Interaction struct {
	InteractionID  string
	SessionID      string
	Timestamp      time.Time
	RequestTokens  int64
	ResponseTokens int64
	TotalTokens    int64
	ModelName      string
	ResponseTimeMS *float64
	Attributes     map[string]any
}

// addTokens applies the additive redelivery rule and restores the
// total = request + response invariant.
func (in *Interaction) addTokens(request, response int64) {
	in.RequestTokens += request
	in.ResponseTokens += response
	in.TotalTokens = in.RequestTokens + in.ResponseTokens
}

// LogEntry is one retained log record in a session's tail.
type LogEntry struct {
	Timestamp time.Time
	Severity  string
	Body      any
	Attrs     map[string]any
}

// ToolDecisions tallies accept/reject decisions for code-edit tools.
type ToolDecisions struct {
	Total     int64                 `json:"total"`
	Accepted  int64                 `json:"accepted"`
	Rejected  int64                 `json:"rejected"`
	ToolsUsed []string              `json:"tools_used_list"`
	ByTool    map[string]*ToolTally `json:"decisions_by_tool"`
}

// ToolTally is the accept/reject count for a single tool.
type ToolTally struct {
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
}

func newToolDecisions() *ToolDecisions {
	return &ToolDecisions{
		ToolsUsed: []string{},
		ByTool:    make(map[string]*ToolTally),
	}
}

func (td *ToolDecisions) record(decision, toolName string) {
	td.Total++
	switch decision {
	case "accept":
		td.Accepted++
	case "reject":
		td.Rejected++
	}

	known := false
	for _, name := range td.ToolsUsed {
		if name == toolName {
			known = true
			break
		}
	}
	if !known {
		td.ToolsUsed = append(td.ToolsUsed, toolName)
	}

	tally, ok := td.ByTool[toolName]
	if !ok {
		tally = &ToolTally{}
		td.ByTool[toolName] = tally
	}
	switch decision {
	case "accept":
		tally.Accepted++
	case "reject":
		tally.Rejected++
	}
}

func (td *ToolDecisions) clone() *ToolDecisions {
	out := &ToolDecisions{
		Total:     td.Total,
		Accepted:  td.Accepted,
		Rejected:  td.Rejected,
		ToolsUsed: append([]string(nil), td.ToolsUsed...),
		ByTool:    make(map[string]*ToolTally, len(td.ByTool)),
	}
	for name, tally := range td.ByTool {
		copied := *tally
		out.ByTool[name] = &copied
	}
	return out
}

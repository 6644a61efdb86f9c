package session

import (
	"encoding/json"
	"sync"

	"moviemate/app/service/flow"
	"moviemate/app/service/interpret"
)

// Session is the state of one conversation. Answer, chart and review image
// only change together, through Commit.
type Session struct {
	mu sync.RWMutex

	state        flow.State
	answer       string
	chart        *interpret.Chart
	reviewImage  json.RawMessage
	pendingQuery *string
	version      uint64
}

// Snapshot is a read-only copy of a Session.
type Snapshot struct {
	State        flow.State
	Answer       string
	Chart        *interpret.Chart
	ReviewImage  json.RawMessage
	PendingQuery *string
	Version      uint64
}

func New() *Session {
	return &Session{state: flow.StateStart}
}

func (s *Session) Commit(resp interpret.Response) {
	var (
		answer      string
		chart       *interpret.Chart
		reviewImage json.RawMessage
	)

	switch r := resp.(type) {
	case interpret.TextOnly:
		answer = r.Text
		reviewImage = r.ReviewImage
	case interpret.TextWithChart:
		answer = r.Text
		c := copyChart(r.Chart)
		chart = &c
		reviewImage = r.ReviewImage
	case interpret.Failure:
		answer = r.Reason
	default:
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.answer = answer
	s.chart = chart
	s.reviewImage = reviewImage
	s.version++
}

// Enter records the flow state and the query being answered, if any.
func (s *Session) Enter(state flow.State, pendingQuery *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	if pendingQuery != nil {
		q := *pendingQuery
		s.pendingQuery = &q
	} else {
		s.pendingQuery = nil
	}
}

// Reset clears the session for a new conversation.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = flow.StateStart
	s.answer = ""
	s.chart = nil
	s.reviewImage = nil
	s.pendingQuery = nil
	s.version++
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		State:   s.state,
		Answer:  s.answer,
		Version: s.version,
	}
	if s.chart != nil {
		c := copyChart(*s.chart)
		snap.Chart = &c
	}
	if s.reviewImage != nil {
		snap.ReviewImage = append(json.RawMessage(nil), s.reviewImage...)
	}
	if s.pendingQuery != nil {
		q := *s.pendingQuery
		snap.PendingQuery = &q
	}

	return snap
}

func copyChart(c interpret.Chart) interpret.Chart {
	return interpret.Chart{
		Series: copyMap(c.Series),
		Layout: copyMap(c.Layout),
	}
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}

	return out
}

func copyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return copyMap(v)
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = copyValue(v[i])
		}
		return out
	default:
		return v
	}
}

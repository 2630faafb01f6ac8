package match

import "sync/atomic"

// Metrics counts coordinator activity. A nil *Metrics is a valid no-op.
type Metrics struct {
	Started    atomic.Int64
	Active     atomic.Int64
	Finished   atomic.Int64
	Resigned   atomic.Int64
	Abandoned  atomic.Int64
	Moves      atomic.Int64
	Captures   atomic.Int64
	Promotions atomic.Int64
	Rejected   atomic.Int64
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.Started.Add(1)
	m.Active.Add(1)
}

func (m *Metrics) moved(capture, promote bool) {
	if m == nil {
		return
	}
	m.Moves.Add(1)
	if capture {
		m.Captures.Add(1)
	}
	if promote {
		m.Promotions.Add(1)
	}
}

func (m *Metrics) rejected() {
	if m == nil {
		return
	}
	m.Rejected.Add(1)
}

func (m *Metrics) ended(s Status) {
	if m == nil {
		return
	}
	m.Active.Add(-1)
	switch s {
	case StatusFinished:
		m.Finished.Add(1)
	case StatusResigned:
		m.Resigned.Add(1)
	case StatusAbandoned:
		m.Abandoned.Add(1)
	}
}

// Snapshot returns a read-only copy for HTTP output.
func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return map[string]any{
		"matches_started":   m.Started.Load(),
		"matches_active":    m.Active.Load(),
		"matches_finished":  m.Finished.Load(),
		"matches_resigned":  m.Resigned.Load(),
		"matches_abandoned": m.Abandoned.Load(),
		"moves":             m.Moves.Load(),
		"captures":          m.Captures.Load(),
		"promotions":        m.Promotions.Load(),
		"rejected":          m.Rejected.Load(),
	}
}

package match

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/park285/checkers-server/internal/obslog"
	"go.uber.org/zap"
)

// Manager keeps the live matches and the session -> match index.
type Manager struct {
	notifier  Notifier
	queueSize int
	metrics   *Metrics
	onEnd     func(Summary)

	mu        sync.RWMutex
	matches   map[string]*Match
	bySession map[string]string
	closed    bool
}

type Option func(*Manager)

// WithQueueSize sets the per-match request queue length.
func WithQueueSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.queueSize = n
		}
	}
}

// WithOnEnd registers a hook called once per match after it ends and is unregistered.
// The hook runs on the match goroutine and must not call back into that match.
func WithOnEnd(fn func(Summary)) Option {
	return func(m *Manager) { m.onEnd = fn }
}

func NewManager(n Notifier, opts ...Option) *Manager {
	m := &Manager{
		notifier:  n,
		queueSize: 16,
		metrics:   &Metrics{},
		matches:   make(map[string]*Match),
		bySession: make(map[string]string),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Metrics exposes the shared counters.
func (m *Manager) Metrics() *Metrics { return m.metrics }

// Create registers and starts a match between two distinct sessions.
func (m *Manager) Create(ctx context.Context, p1, p2 Participant) (*Match, error) {
	p1.Session, p2.Session = strings.TrimSpace(p1.Session), strings.TrimSpace(p2.Session)
	if p1.Session == "" || p2.Session == "" || p1.Session == p2.Session {
		return nil, ErrInvalidArgs
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if _, busy := m.bySession[p1.Session]; busy {
		m.mu.Unlock()
		return nil, ErrSessionBusy
	}
	if _, busy := m.bySession[p2.Session]; busy {
		m.mu.Unlock()
		return nil, ErrSessionBusy
	}
	mt := newMatch(uuid.NewString(), p1, p2, m.notifier, m.queueSize, m.metrics, m.release)
	m.matches[mt.id] = mt
	m.bySession[p1.Session] = mt.id
	m.bySession[p2.Session] = mt.id
	m.mu.Unlock()

	if err := mt.Start(ctx); err != nil {
		m.unregister(mt)
		mt.Close()
		return nil, err
	}
	obslog.L().Info("match_create",
		zap.String("match_id", mt.id),
		zap.String("session1", p1.Session),
		zap.String("session2", p2.Session),
	)
	return mt, nil
}

// Get returns the live match with id, or nil.
func (m *Manager) Get(id string) *Match {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.matches[id]
}

// BySession returns the live match session plays in, or nil.
func (m *Manager) BySession(session string) *Match {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.bySession[session]
	if !ok {
		return nil
	}
	return m.matches[id]
}

// List returns summaries of live matches ordered by start time.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	live := make([]*Match, 0, len(m.matches))
	for _, mt := range m.matches {
		live = append(live, mt)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(live))
	for _, mt := range live {
		out = append(out, mt.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Close stops every live match. Later Create calls fail with ErrClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	live := make([]*Match, 0, len(m.matches))
	for _, mt := range m.matches {
		live = append(live, mt)
	}
	m.matches = make(map[string]*Match)
	m.bySession = make(map[string]string)
	m.mu.Unlock()

	for _, mt := range live {
		mt.Close()
	}
}

func (m *Manager) unregister(mt *Match) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.matches[mt.id]; !ok {
		return false
	}
	delete(m.matches, mt.id)
	for _, p := range mt.players {
		if m.bySession[p.Session] == mt.id {
			delete(m.bySession, p.Session)
		}
	}
	return true
}

// release runs on the match goroutine once the match is over.
func (m *Manager) release(mt *Match) {
	if !m.unregister(mt) {
		return
	}
	if m.onEnd != nil {
		m.onEnd(mt.Summary())
	}
	// the goroutine cannot wait on its own exit
	mt.once.Do(func() { close(mt.quit) })
}

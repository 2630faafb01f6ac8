package match

import (
	"context"
	"time"

	"github.com/park285/checkers-server/pkg/checkersdto"
)

// Status represents a match lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusFinished  Status = "FINISHED"
	StatusResigned  Status = "RESIGNED"
	StatusAbandoned Status = "ABANDONED"
)

// Over reports whether the match has ended.
func (s Status) Over() bool {
	return s == StatusFinished || s == StatusResigned || s == StatusAbandoned
}

// Participant is one connected player. Session is the transport-level identity.
type Participant struct {
	Session string `json:"session"`
	Name    string `json:"name"`
}

// Notifier delivers outbound messages to a session. Implementations must not block
// on the match: they queue and return.
type Notifier interface {
	Send(ctx context.Context, session string, msg checkersdto.Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, session string, msg checkersdto.Message) error

func (f NotifierFunc) Send(ctx context.Context, session string, msg checkersdto.Message) error {
	return f(ctx, session, msg)
}

// Summary is a read-only copy of a match for listings.
type Summary struct {
	ID        string            `json:"id"`
	Status    Status            `json:"status"`
	Turn      int               `json:"turn"`
	Player1   Participant       `json:"player1"`
	Player2   Participant       `json:"player2"`
	Winner    int               `json:"winner,omitempty"`
	Moves     int               `json:"moves"`
	Chain     int               `json:"chain"`
	Board     checkersdto.Board `json:"board"`
	StartedAt time.Time         `json:"started_at"`
	EndedAt   time.Time         `json:"ended_at"`
}

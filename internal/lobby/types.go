package lobby

import "time"

// ChannelState represents the lifecycle of a lobby channel.
type ChannelState string

const (
	StateOpen   ChannelState = "OPEN"
	StatePaired ChannelState = "PAIRED"
)

// Member is a waiting player.
type Member struct {
	Session string `json:"session"`
	Name    string `json:"name"`
}

// Channel is stored as JSON in Redis under ck:ch:<code>.
type Channel struct {
	Code      string       `json:"code"`
	State     ChannelState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
	Creator   Member       `json:"creator"`
	Joiner    *Member      `json:"joiner,omitempty"`
}

// Pairing is the result of a successful join, in join order.
type Pairing struct {
	Code   string
	First  Member
	Second Member
}

// MaxNameLen bounds player names in runes.
const MaxNameLen = 24

// Errors
var (
	ErrInvalidArgs     = errf("invalid arguments")
	ErrNameTaken       = errf("name already in use")
	ErrChannelGone     = errf("channel not found or expired")
	ErrFull            = errf("channel already has two participants")
	ErrSelfJoin        = errf("cannot join own channel")
	ErrCreatorHasLobby = errf("session already has an open channel")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

package checkersdto

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrNoType      = errors.New("message type missing")
)

// Envelope is the frame exchanged over the websocket: {"type": "...", "payload": {...}}.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var factories = map[string]func() Message{}

func register(f func() Message) { factories[f().MessageType()] = f }

func init() {
	register(func() Message { return &PlayerJoin{} })
	register(func() Message { return &LobbyMake{} })
	register(func() Message { return &LobbyJoin{} })
	register(func() Message { return &LobbyList{} })
	register(func() Message { return &SelectPiece{} })
	register(func() Message { return &MakeMove{} })
	register(func() Message { return &Resign{} })
	register(func() Message { return &JoinRoom{} })
	register(func() Message { return &RoomJoined{} })
	register(func() Message { return &PlayerJoinResponse{} })
	register(func() Message { return &LobbyMade{} })
	register(func() Message { return &LobbyListing{} })
	register(func() Message { return &BoardReset{} })
	register(func() Message { return &PlayerInfo{} })
	register(func() Message { return &SelectPieceResponse{} })
	register(func() Message { return &MoveResult{} })
	register(func() Message { return &MatchEnd{} })
	register(func() Message { return &Notice{} })
}

// Encode wraps m into an envelope.
func Encode(m Message) (Envelope, error) {
	if m == nil {
		return Envelope{}, ErrNoType
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", m.MessageType(), err)
	}
	return Envelope{Type: m.MessageType(), Payload: raw}, nil
}

// Decode returns a pointer to the concrete message named by env.Type.
// A missing payload decodes to the zero message.
func Decode(env Envelope) (Message, error) {
	if env.Type == "" {
		return nil, ErrNoType
	}
	f, ok := factories[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	m := f()
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return m, nil
	}
	if err := json.Unmarshal(env.Payload, m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return m, nil
}

package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/checkers-server/internal/lobby"
	"github.com/park285/checkers-server/internal/match"
	"github.com/park285/checkers-server/internal/msgcat"
	"github.com/park285/checkers-server/internal/obslog"
	"github.com/park285/checkers-server/pkg/checkersdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type Config struct {
	Lobby          *lobby.Manager
	Catalog        *msgcat.Catalog
	MatchQueueSize int
	SendQueueSize  int
	// OriginPatterns is passed to websocket.Accept; empty means same-origin only.
	OriginPatterns []string
}

// Hub owns the connected sessions and routes their messages.
// It is the match.Notifier for every match it creates.
type Hub struct {
	lobby     *lobby.Manager
	catalog   *msgcat.Catalog
	matches   *match.Manager
	sendQueue int
	origins   []string

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewHub(cfg Config) *Hub {
	h := &Hub{
		lobby:     cfg.Lobby,
		catalog:   cfg.Catalog,
		sendQueue: cfg.SendQueueSize,
		origins:   cfg.OriginPatterns,
		sessions:  make(map[string]*Session),
	}
	h.matches = match.NewManager(h,
		match.WithQueueSize(cfg.MatchQueueSize),
		match.WithOnEnd(h.matchEnded),
	)
	return h
}

// Matches exposes the match registry for the admin API.
func (h *Hub) Matches() *match.Manager { return h.matches }

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Send implements match.Notifier.
func (h *Hub) Send(_ context.Context, session string, msg checkersdto.Message) error {
	h.mu.RLock()
	s := h.sessions[session]
	h.mu.RUnlock()
	if s == nil {
		return ErrNoSession
	}
	return h.deliver(s, msg)
}

func (h *Hub) deliver(s *Session, msg checkersdto.Message) error {
	env, err := checkersdto.Encode(msg)
	if err != nil {
		return err
	}
	err = s.enqueue(env)
	if errors.Is(err, ErrSlowConsumer) {
		obslog.L().Warn("session_slow_consumer", zap.String("session", s.id), zap.String("type", env.Type))
		// closing waits for the close handshake; never do that on the caller's goroutine
		go s.close(websocket.StatusPolicyViolation, "slow consumer")
	}
	return err
}

func (h *Hub) notice(s *Session, key string, data any) {
	_ = h.deliver(s, checkersdto.Notice{Text: h.catalog.Text(key, data)})
}

// ServeHTTP upgrades the request and runs the session until the connection ends.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		OriginPatterns:  h.origins,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	s := newSession(uuid.NewString(), conn, h.sendQueue)
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	obslog.L().Info("session_open", zap.String("session", s.id), zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.writePump(ctx)

	_ = h.deliver(s, checkersdto.RoomJoined{Room: checkersdto.RoomLogin})
	code, reason := h.readLoop(ctx, s)
	h.disconnect(s)
	s.close(code, reason)
}

func (h *Hub) readLoop(ctx context.Context, s *Session) (websocket.StatusCode, string) {
	for {
		var env checkersdto.Envelope
		if err := wsjson.Read(ctx, s.conn, &env); err != nil {
			obslog.L().Debug("session_read_end",
				zap.String("session", s.id),
				zap.Int("status", int(websocket.CloseStatus(err))),
				zap.Error(err),
			)
			return websocket.StatusNormalClosure, ""
		}
		msg, err := checkersdto.Decode(env)
		if err != nil {
			obslog.L().Warn("session_bad_message", zap.String("session", s.id), zap.String("type", env.Type), zap.Error(err))
			if s.Room() == checkersdto.RoomLogin {
				return websocket.StatusPolicyViolation, "login required"
			}
			continue
		}
		if err := h.route(ctx, s, msg); err != nil {
			if errors.Is(err, errProtocol) {
				obslog.L().Warn("session_protocol_violation", zap.String("session", s.id), zap.String("type", env.Type))
				return websocket.StatusPolicyViolation, "login required"
			}
			obslog.L().Debug("session_request_rejected", zap.String("session", s.id), zap.String("type", env.Type), zap.Error(err))
		}
	}
}

func (h *Hub) route(ctx context.Context, s *Session, msg checkersdto.Message) error {
	switch s.Room() {
	case checkersdto.RoomLogin:
		return h.handleLogin(ctx, s, msg)
	case checkersdto.RoomLobby:
		return h.handleLobby(ctx, s, msg)
	case checkersdto.RoomGame:
		return h.handleGame(ctx, s, msg)
	}
	return nil
}

// disconnect tears down everything the session held. The match, if any, is lost by s.
func (h *Hub) disconnect(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if mt := h.matches.BySession(s.id); mt != nil {
		if err := mt.Leave(ctx, s.id); err != nil && !errors.Is(err, match.ErrMatchOver) {
			obslog.L().Warn("session_leave_failed", zap.String("session", s.id), zap.String("match_id", mt.ID()), zap.Error(err))
		}
	}
	if _, err := h.lobby.Abandon(ctx, s.id); err != nil {
		obslog.L().Warn("session_abandon_failed", zap.String("session", s.id), zap.Error(err))
	}
	if name := s.Name(); name != "" {
		if err := h.lobby.ReleaseName(ctx, name, s.id); err != nil {
			obslog.L().Warn("session_release_name_failed", zap.String("session", s.id), zap.Error(err))
		}
	}
	obslog.L().Info("session_close", zap.String("session", s.id), zap.String("name", s.Name()))
}

// matchEnded runs on the match goroutine after the match is unregistered.
func (h *Hub) matchEnded(sum match.Summary) {
	for _, p := range []match.Participant{sum.Player1, sum.Player2} {
		h.mu.RLock()
		s := h.sessions[p.Session]
		h.mu.RUnlock()
		if s == nil {
			continue
		}
		if s.moveRoom(checkersdto.RoomGame, checkersdto.RoomLobby) {
			_ = h.deliver(s, checkersdto.RoomJoined{Room: checkersdto.RoomLobby})
		}
	}
}

// Close disconnects every session and stops all matches.
func (h *Hub) Close() {
	h.matches.Close()
	h.mu.RLock()
	live := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		live = append(live, s)
	}
	h.mu.RUnlock()
	for _, s := range live {
		s.close(websocket.StatusGoingAway, "server shutdown")
	}
}

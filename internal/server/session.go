package server

import (
	"context"
	"sync"
	"time"

	"github.com/park285/checkers-server/internal/obslog"
	"github.com/park285/checkers-server/pkg/checkersdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// Session is one websocket connection. Its room decides which messages it may send.
type Session struct {
	id   string
	conn *websocket.Conn
	send chan checkersdto.Envelope

	closeOnce sync.Once
	done      chan struct{}

	mu   sync.Mutex
	room string
	name string
}

func newSession(id string, conn *websocket.Conn, queue int) *Session {
	if queue <= 0 {
		queue = 64
	}
	return &Session{
		id:   id,
		conn: conn,
		send: make(chan checkersdto.Envelope, queue),
		done: make(chan struct{}),
		room: checkersdto.RoomLogin,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) setRoom(room string) {
	s.mu.Lock()
	s.room = room
	s.mu.Unlock()
}

// moveRoom switches rooms only when the session is currently in from.
func (s *Session) moveRoom(from, to string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room != from {
		return false
	}
	s.room = to
	return true
}

func (s *Session) setName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// enqueue never blocks; a full queue means the client is not reading.
func (s *Session) enqueue(env checkersdto.Envelope) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.send <- env:
		return nil
	default:
		return ErrSlowConsumer
	}
}

func (s *Session) writePump(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case env := <-s.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, s.conn, env)
			cancel()
			if err != nil {
				obslog.L().Warn("session_write_failed", zap.String("session", s.id), zap.String("type", env.Type), zap.Error(err))
				s.close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (s *Session) close(code websocket.StatusCode, reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close(code, reason)
	})
}

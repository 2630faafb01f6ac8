package server

import (
	"context"
	"errors"

	"github.com/park285/checkers-server/internal/lobby"
	"github.com/park285/checkers-server/internal/match"
	"github.com/park285/checkers-server/internal/obslog"
	"github.com/park285/checkers-server/pkg/checkersdto"
	"go.uber.org/zap"
)

func (h *Hub) handleLogin(ctx context.Context, s *Session, msg checkersdto.Message) error {
	join, ok := msg.(*checkersdto.PlayerJoin)
	if !ok {
		return errProtocol
	}
	name, err := h.lobby.ClaimName(ctx, join.Name, s.id)
	if err != nil {
		var reason string
		switch {
		case errors.Is(err, lobby.ErrNameTaken):
			reason = h.catalog.Text("login.name_taken", map[string]any{"Name": join.Name})
		case errors.Is(err, lobby.ErrInvalidArgs):
			reason = h.catalog.Text("login.name_invalid", map[string]any{"Max": lobby.MaxNameLen})
		default:
			obslog.L().Error("login_claim_failed", zap.String("session", s.id), zap.Error(err))
			reason = h.catalog.Text("login.unavailable", nil)
		}
		_ = h.deliver(s, checkersdto.PlayerJoinResponse{Result: checkersdto.JoinDenied, Reason: reason})
		return nil
	}

	s.setName(name)
	s.setRoom(checkersdto.RoomLobby)
	_ = h.deliver(s, checkersdto.PlayerJoinResponse{Result: checkersdto.JoinAccepted})
	_ = h.deliver(s, checkersdto.RoomJoined{Room: checkersdto.RoomLobby})
	obslog.L().Info("player_join", zap.String("session", s.id), zap.String("name", name))
	return nil
}

func (h *Hub) handleLobby(ctx context.Context, s *Session, msg checkersdto.Message) error {
	switch m := msg.(type) {
	case *checkersdto.LobbyMake:
		ch, err := h.lobby.Make(ctx, s.id, s.Name())
		if err != nil {
			h.lobbyError(s, err, "")
			return err
		}
		_ = h.deliver(s, checkersdto.LobbyMade{Code: ch.Code})
		h.notice(s, "lobby.made", map[string]any{"Code": ch.Code})
		return nil

	case *checkersdto.LobbyJoin:
		p, err := h.lobby.Join(ctx, m.Code, s.id, s.Name())
		if errors.Is(err, lobby.ErrCreatorHasLobby) {
			// joining another channel gives up the session's own
			var code string
			if code, err = h.lobby.Abandon(ctx, s.id); err == nil {
				h.notice(s, "lobby.abandoned", map[string]any{"Code": code})
				p, err = h.lobby.Join(ctx, m.Code, s.id, s.Name())
			}
		}
		if err != nil {
			h.lobbyError(s, err, m.Code)
			return err
		}
		return h.startMatch(ctx, p)

	case *checkersdto.LobbyList:
		chans, err := h.lobby.List(ctx)
		if err != nil {
			h.lobbyError(s, err, "")
			return err
		}
		out := checkersdto.LobbyListing{Channels: make([]checkersdto.LobbyChannel, 0, len(chans))}
		for _, c := range chans {
			out.Channels = append(out.Channels, checkersdto.LobbyChannel{Code: c.Code, Creator: c.Creator.Name})
		}
		_ = h.deliver(s, out)
		return nil
	}
	return nil
}

func (h *Hub) lobbyError(s *Session, err error, code string) {
	data := map[string]any{"Code": code}
	switch {
	case errors.Is(err, lobby.ErrFull):
		h.notice(s, "lobby.full", data)
	case errors.Is(err, lobby.ErrChannelGone), errors.Is(err, lobby.ErrInvalidArgs):
		h.notice(s, "lobby.gone", data)
	case errors.Is(err, lobby.ErrSelfJoin):
		h.notice(s, "lobby.self_join", data)
	case errors.Is(err, lobby.ErrCreatorHasLobby):
		h.notice(s, "lobby.has_open", data)
	default:
		obslog.L().Error("lobby_error", zap.String("session", s.id), zap.Error(err))
		h.notice(s, "lobby.unavailable", nil)
	}
}

// startMatch moves both paired sessions into the game room and starts their match.
// A session that is gone or already playing elsewhere cancels the pairing without
// touching its room.
func (h *Hub) startMatch(ctx context.Context, p *lobby.Pairing) error {
	h.mu.RLock()
	first, second := h.sessions[p.First.Session], h.sessions[p.Second.Session]
	h.mu.RUnlock()
	defer func() { _ = h.lobby.Done(ctx, p.Code) }()

	available := func(s *Session) bool { return s != nil && h.matches.BySession(s.id) == nil }
	if !available(first) || !available(second) {
		obslog.L().Warn("match_pairing_stale",
			zap.String("code", p.Code),
			zap.String("first", p.First.Session),
			zap.String("second", p.Second.Session),
		)
		for _, s := range []*Session{first, second} {
			if available(s) {
				h.notice(s, "lobby.gone", map[string]any{"Code": p.Code})
			}
		}
		if first == nil || second == nil {
			return ErrNoSession
		}
		return match.ErrSessionBusy
	}

	for _, s := range []*Session{first, second} {
		s.setRoom(checkersdto.RoomGame)
		_ = h.deliver(s, checkersdto.RoomJoined{Room: checkersdto.RoomGame})
	}
	_, err := h.matches.Create(ctx,
		match.Participant{Session: first.id, Name: p.First.Name},
		match.Participant{Session: second.id, Name: p.Second.Name},
	)
	if err != nil {
		obslog.L().Error("match_create_failed", zap.String("code", p.Code), zap.Error(err))
		for _, s := range []*Session{first, second} {
			if h.matches.BySession(s.id) != nil {
				continue
			}
			if s.moveRoom(checkersdto.RoomGame, checkersdto.RoomLobby) {
				_ = h.deliver(s, checkersdto.RoomJoined{Room: checkersdto.RoomLobby})
			}
		}
		return err
	}
	return nil
}

func (h *Hub) handleGame(ctx context.Context, s *Session, msg checkersdto.Message) error {
	mt := h.matches.BySession(s.id)
	switch m := msg.(type) {
	case *checkersdto.SelectPiece:
		if mt == nil {
			return match.ErrMatchOver
		}
		return mt.Select(ctx, s.id, m.TileIndex)
	case *checkersdto.MakeMove:
		if mt == nil {
			return match.ErrMatchOver
		}
		return mt.Move(ctx, s.id, m.From, m.To)
	case *checkersdto.Resign:
		if mt == nil {
			return match.ErrMatchOver
		}
		return mt.Resign(ctx, s.id)
	case *checkersdto.JoinRoom:
		if m.Room != checkersdto.RoomLobby {
			return nil
		}
		if mt != nil {
			// leaving an active game forfeits it; the end hook moves both players back
			return mt.Leave(ctx, s.id)
		}
		if s.moveRoom(checkersdto.RoomGame, checkersdto.RoomLobby) {
			_ = h.deliver(s, checkersdto.RoomJoined{Room: checkersdto.RoomLobby})
		}
	}
	return nil
}

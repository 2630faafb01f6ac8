package lobby

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/park285/checkers-server/internal/obslog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Manager struct {
	rdb   *redis.Client
	store *Store
}

func NewManager(rdb *redis.Client, ttl time.Duration) *Manager {
	return &Manager{rdb: rdb, store: NewStore(rdb, ttl)}
}

// NormalizeName trims a player name and validates its length.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLen {
		return "", ErrInvalidArgs
	}
	return name, nil
}

// ClaimName reserves name for session. Names compare case-insensitively.
func (m *Manager) ClaimName(ctx context.Context, name, session string) (string, error) {
	name, err := NormalizeName(name)
	if err != nil || strings.TrimSpace(session) == "" {
		return "", ErrInvalidArgs
	}
	ok, err := m.rdb.SetNX(ctx, m.store.keyName(name), session, m.store.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("claim name: %w", err)
	}
	if !ok {
		obslog.L().Info("lobby_name_taken", zap.String("name", name), zap.String("session", session))
		return "", ErrNameTaken
	}
	obslog.L().Info("lobby_name_claim", zap.String("name", name), zap.String("session", session))
	return name, nil
}

// ReleaseName frees name if session still holds it.
func (m *Manager) ReleaseName(ctx context.Context, name, session string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	key := m.store.keyName(name)
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		owner, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		if owner != session {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return err
	}
	return nil
}

// Make opens a channel with session as its first participant.
func (m *Manager) Make(ctx context.Context, session, name string) (*Channel, error) {
	if strings.TrimSpace(session) == "" || strings.TrimSpace(name) == "" {
		return nil, ErrInvalidArgs
	}
	if open, err := m.openChannelOf(ctx, session); err != nil {
		return nil, err
	} else if open != nil {
		return nil, ErrCreatorHasLobby
	}

	for i := 0; i < 5; i++ {
		c, err := codeGen()
		if err != nil {
			return nil, err
		}
		// optimistic: only set if key doesn't exist
		ok, err := m.rdb.SetNX(ctx, m.store.keyMeta(c), []byte("{}"), m.store.ttl).Result()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		ch := &Channel{
			Code:      c,
			State:     StateOpen,
			CreatedAt: time.Now(),
			Creator:   Member{Session: session, Name: name},
		}
		pipe := m.rdb.TxPipeline()
		pipe.RPush(ctx, m.store.keyParticipants(c), session)
		pipe.Set(ctx, m.store.keyOwner(session), c, m.store.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
		if err := m.store.SaveMeta(ctx, ch); err != nil {
			return nil, err
		}
		if err := m.store.AddLobby(ctx, c); err != nil {
			return nil, err
		}
		obslog.L().Info("lobby_make", zap.String("code", c), zap.String("session", session), zap.String("name", name))
		return ch, nil
	}
	return nil, fmt.Errorf("failed to allocate channel code")
}

// Join adds session as the second participant and returns the pairing in join order.
func (m *Manager) Join(ctx context.Context, code, session, name string) (*Pairing, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || strings.TrimSpace(session) == "" {
		return nil, ErrInvalidArgs
	}
	ch, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if ch == nil || ch.Code == "" {
		return nil, ErrChannelGone
	}
	if ch.Creator.Session == session {
		return nil, ErrSelfJoin
	}
	if ch.State != StateOpen {
		return nil, ErrFull
	}
	// a session waits in at most one place; its own open channel must be abandoned first
	if open, err := m.openChannelOf(ctx, session); err != nil {
		return nil, err
	} else if open != nil {
		return nil, ErrCreatorHasLobby
	}

	// WATCH participants to prevent race joins
	partKey := m.store.keyParticipants(code)
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cnt, err := tx.LLen(ctx, partKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if cnt >= 2 {
			return ErrFull
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, partKey, session)
			pipe.Expire(ctx, partKey, m.store.ttl)
			return nil
		})
		return err
	}, partKey)
	if errors.Is(err, redis.TxFailedErr) {
		err = ErrFull
	}
	if err != nil {
		obslog.L().Warn("lobby_join_error", zap.String("code", code), zap.String("session", session), zap.Error(err))
		return nil, err
	}

	ch.State = StatePaired
	ch.Joiner = &Member{Session: session, Name: name}
	if err := m.store.SaveMeta(ctx, ch); err != nil {
		return nil, err
	}
	_ = m.store.RemoveLobby(ctx, code)
	_ = m.rdb.Del(ctx, m.store.keyOwner(ch.Creator.Session)).Err()

	obslog.L().Info("lobby_join",
		zap.String("code", code),
		zap.String("first", ch.Creator.Session),
		zap.String("second", session),
	)
	return &Pairing{Code: code, First: ch.Creator, Second: *ch.Joiner}, nil
}

// List returns open channels, oldest first.
func (m *Manager) List(ctx context.Context) ([]*Channel, error) { return m.store.ListLobby(ctx) }

// Abandon closes the open channel created by session, if any, and returns its code.
func (m *Manager) Abandon(ctx context.Context, session string) (string, error) {
	ch, err := m.openChannelOf(ctx, session)
	if err != nil || ch == nil {
		return "", err
	}
	if err := m.store.DeleteChannel(ctx, ch.Code); err != nil {
		return "", err
	}
	_ = m.rdb.Del(ctx, m.store.keyOwner(session)).Err()
	obslog.L().Info("lobby_abandon", zap.String("code", ch.Code), zap.String("session", session))
	return ch.Code, nil
}

// Done removes a paired channel once its match has been created.
func (m *Manager) Done(ctx context.Context, code string) error {
	return m.store.DeleteChannel(ctx, code)
}

func (m *Manager) openChannelOf(ctx context.Context, session string) (*Channel, error) {
	code, err := m.rdb.Get(ctx, m.store.keyOwner(session)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ch, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if ch == nil || ch.State != StateOpen {
		return nil, nil
	}
	return ch, nil
}

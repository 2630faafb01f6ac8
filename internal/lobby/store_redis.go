package lobby

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) keyMeta(code string) string         { return "ck:ch:" + strings.TrimSpace(code) }
func (s *Store) keyParticipants(code string) string { return s.keyMeta(code) + ":participants" }
func (s *Store) keyOwner(session string) string     { return "ck:owner:" + strings.TrimSpace(session) }
func (s *Store) keyName(name string) string         { return "ck:names:" + strings.ToLower(strings.TrimSpace(name)) }
func (s *Store) keyLobby() string                   { return "ck:lobby" }

func (s *Store) SaveMeta(ctx context.Context, ch *Channel) error {
	raw, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.keyMeta(ch.Code), raw, s.ttl).Err(); err != nil {
		return err
	}
	// ensure TTL on companions
	_ = s.rdb.Expire(ctx, s.keyParticipants(ch.Code), s.ttl).Err()
	return nil
}

func (s *Store) LoadMeta(ctx context.Context, code string) (*Channel, error) {
	raw, err := s.rdb.Get(ctx, s.keyMeta(code)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ch Channel
	if err := json.Unmarshal(raw, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *Store) DeleteChannel(ctx context.Context, code string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.keyMeta(code), s.keyParticipants(code))
	pipe.SRem(ctx, s.keyLobby(), code)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) Participants(ctx context.Context, code string) ([]string, error) {
	return s.rdb.LRange(ctx, s.keyParticipants(code), 0, -1).Result()
}

func (s *Store) AddLobby(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	if err := s.rdb.SAdd(ctx, s.keyLobby(), code).Err(); err != nil {
		return err
	}
	// refresh TTL of the lobby index
	_ = s.rdb.Expire(ctx, s.keyLobby(), s.ttl).Err()
	return nil
}

func (s *Store) RemoveLobby(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	return s.rdb.SRem(ctx, s.keyLobby(), code).Err()
}

// ListLobby returns open channels, oldest first. Expired entries are pruned from the index.
func (s *Store) ListLobby(ctx context.Context) ([]*Channel, error) {
	codes, err := s.rdb.SMembers(ctx, s.keyLobby()).Result()
	if err != nil {
		return nil, err
	}
	var out []*Channel
	for _, c := range codes {
		ch, _ := s.LoadMeta(ctx, c)
		if ch == nil {
			_ = s.RemoveLobby(ctx, c)
			continue
		}
		if ch.State != StateOpen {
			continue
		}
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// codeGen returns `CH-` + 6 upper alnum.
func codeGen() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return fmt.Sprintf("CH-%s", string(b)), nil
}

// ParseRedisURL converts redis://[:pass@]host:port/db into client options.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}

// Dial opens a client for redisURL and checks it with PING.
func Dial(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for lobby")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

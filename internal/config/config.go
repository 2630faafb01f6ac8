package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string
	AdminAddr  string

	RedisURL string

	LobbyTTL       time.Duration
	MatchQueueSize int
	SendQueueSize  int

	MessagesDir string

	// WSOrigins are extra origin patterns accepted on the websocket handshake
	WSOrigins []string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:     ":8080",
		AdminAddr:      ":8081",
		LobbyTTL:       time.Hour,
		MatchQueueSize: 16,
		SendQueueSize:  64,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	// ADMIN_ADDR="" keeps the default; "off" disables the admin listener
	if v := strings.TrimSpace(os.Getenv("ADMIN_ADDR")); v != "" {
		if strings.EqualFold(v, "off") {
			cfg.AdminAddr = ""
		} else {
			cfg.AdminAddr = v
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	for _, o := range strings.Split(os.Getenv("WS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.WSOrigins = append(cfg.WSOrigins, o)
		}
	}

	if v := strings.TrimSpace(os.Getenv("LOBBY_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LobbyTTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("MATCH_QUEUE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MatchQueueSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SEND_QUEUE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SendQueueSize = n
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.ListenAddr == cfg.AdminAddr {
		return nil, errors.New("LISTEN_ADDR and ADMIN_ADDR must differ")
	}

	return cfg, nil
}

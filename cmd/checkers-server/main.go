package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/checkers-server/internal/admin"
	appcfg "github.com/park285/checkers-server/internal/config"
	"github.com/park285/checkers-server/internal/lobby"
	"github.com/park285/checkers-server/internal/msgcat"
	"github.com/park285/checkers-server/internal/obslog"
	"github.com/park285/checkers-server/internal/server"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("msgcat_error", zap.Error(err))
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	rdb, err := lobby.Dial(dialCtx, cfg.RedisURL)
	cancel()
	if err != nil {
		logger.Fatal("redis_error", zap.Error(err))
	}

	hub := server.NewHub(server.Config{
		Lobby:          lobby.NewManager(rdb, cfg.LobbyTTL),
		Catalog:        catalog,
		MatchQueueSize: cfg.MatchQueueSize,
		SendQueueSize:  cfg.SendQueueSize,
		OriginPatterns: cfg.WSOrigins,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("ws_listen", zap.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ws_listen_error", zap.Error(err))
		}
	}()

	var adm *admin.Server
	if cfg.AdminAddr != "" {
		adm = admin.New(hub.Matches(), admin.WithSessionCounter(hub.SessionCount))
		go func() {
			if err := adm.ListenAndServe(cfg.AdminAddr); err != nil {
				logger.Error("admin_listen_error", zap.Error(err))
			}
		}()
	}

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	hub.Close()
	if adm != nil {
		_ = adm.Shutdown()
	}
	_ = rdb.Close()
}

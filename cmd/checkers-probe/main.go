package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/park285/checkers-server/internal/admin"
	"github.com/park285/checkers-server/internal/wsclient"
	"github.com/park285/checkers-server/pkg/checkersdto"
)

// checkers-probe checks a running server: admin health, then a websocket login and lobby listing.
func main() {
	adminURL := os.Getenv("CHECKERS_ADMIN_URL")
	wsURL := os.Getenv("CHECKERS_WS_URL")
	name := os.Getenv("PROBE_NAME")
	if name == "" {
		name = "probe-" + randSuffix(3)
	}

	if adminURL == "" && wsURL == "" {
		log.Fatal("CHECKERS_ADMIN_URL or CHECKERS_WS_URL is required")
	}

	if adminURL != "" {
		client := admin.NewClient(adminURL, admin.WithTimeout(5*time.Second))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		h, err := client.Health(ctx)
		cancel()
		if err != nil {
			log.Printf("/healthz error: %v", err)
		} else {
			log.Printf("/healthz ok: status=%s sessions=%d matches=%d uptime=%.0fs", h.Status, h.Sessions, h.Matches, h.Uptime)
		}
	}

	if wsURL == "" {
		log.Println("CHECKERS_WS_URL not set; skipping WS check")
		return
	}

	ws := wsclient.New(wsURL)
	ws.OnStateChange(func(state wsclient.State) {
		log.Printf("WS state: %s", state)
	})
	done := make(chan struct{})
	var finish sync.Once
	stop := func() { finish.Do(func() { close(done) }) }
	ws.OnMessage(func(msg checkersdto.Message) {
		switch m := msg.(type) {
		case *checkersdto.RoomJoined:
			fmt.Printf("WS room=%s\n", m.Room)
			if m.Room == checkersdto.RoomLobby {
				_ = ws.Send(context.Background(), checkersdto.LobbyList{})
			}
		case *checkersdto.PlayerJoinResponse:
			fmt.Printf("WS login result=%s reason=%q\n", m.Result, m.Reason)
			if m.Result != checkersdto.JoinAccepted {
				stop()
			}
		case *checkersdto.LobbyListing:
			fmt.Printf("WS lobby channels=%d\n", len(m.Channels))
			for _, ch := range m.Channels {
				fmt.Printf("  %s by %s\n", ch.Code, ch.Creator)
			}
			stop()
		default:
			fmt.Printf("WS msg type=%s\n", msg.MessageType())
		}
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}
	if err := ws.Send(cctx, checkersdto.PlayerJoin{Name: name}); err != nil {
		log.Printf("WS send error: %v", err)
	}

	// Observe for a short window
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Println("WS probe timed out")
	}
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer closeCancel()
	_ = ws.Close(closeCtx)
}

func randSuffix(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano()%1_000_000)
	}
	return hex.EncodeToString(b)
}

package admin

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"

	"github.com/park285/checkers-server/internal/match"
	"github.com/park285/checkers-server/internal/obslog"
	"github.com/park285/checkers-server/internal/render"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Health is the /healthz payload.
type Health struct {
	Status   string  `json:"status"`
	Uptime   float64 `json:"uptime_sec"`
	Sessions int     `json:"sessions"`
	Matches  int     `json:"matches"`
}

// Server is the read-only operator API.
type Server struct {
	matches  *match.Manager
	renderer render.BoardRenderer
	sessions func() int
	started  time.Time
	srv      *fasthttp.Server
}

type Option func(*Server)

// WithSessionCounter reports connected sessions in /healthz and /metrics.
func WithSessionCounter(fn func() int) Option {
	return func(s *Server) { s.sessions = fn }
}

// WithRenderer replaces the board renderer.
func WithRenderer(r render.BoardRenderer) Option {
	return func(s *Server) { s.renderer = r }
}

func New(matches *match.Manager, opts ...Option) *Server {
	s := &Server{
		matches:  matches,
		renderer: render.NewPNGRenderer(),
		sessions: func() int { return 0 },
		started:  time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler,
		Name:         "checkers-admin",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	obslog.L().Info("admin_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

// Serve blocks serving ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown() error { return s.srv.Shutdown() }

// Handler routes admin requests.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() && !ctx.IsHead() {
		ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimSuffix(string(ctx.Path()), "/")
	switch {
	case path == "/healthz":
		s.handleHealth(ctx)
	case path == "/metrics":
		s.handleMetrics(ctx)
	case path == "/matches":
		writeJSON(ctx, fasthttp.StatusOK, s.matches.List())
	case strings.HasPrefix(path, "/matches/"):
		rest := strings.TrimPrefix(path, "/matches/")
		id, sub, _ := strings.Cut(rest, "/")
		s.handleMatch(ctx, id, sub)
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, Health{
		Status:   "ok",
		Uptime:   time.Since(s.started).Seconds(),
		Sessions: s.sessions(),
		Matches:  len(s.matches.List()),
	})
}

func (s *Server) handleMetrics(ctx *fasthttp.RequestCtx) {
	m := s.matches.Metrics().Snapshot()
	m["sessions"] = s.sessions()
	writeJSON(ctx, fasthttp.StatusOK, m)
}

func (s *Server) handleMatch(ctx *fasthttp.RequestCtx, id, sub string) {
	mt := s.matches.Get(id)
	if mt == nil {
		writeJSON(ctx, fasthttp.StatusNotFound, map[string]string{"error": "match not found"})
		return
	}
	sum := mt.Summary()
	switch sub {
	case "":
		writeJSON(ctx, fasthttp.StatusOK, sum)
	case "board.png":
		opts := render.Options{SquareSize: ctx.QueryArgs().GetUintOrZero("size")}
		if sum.Chain >= 0 {
			opts.Highlight = []int{sum.Chain}
		}
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		img, err := s.renderer.RenderPNG(rctx, mt.Snapshot(), opts)
		if err != nil {
			obslog.L().Error("admin_render_failed", zap.String("match_id", id), zap.Error(err))
			ctx.Error("render failed", fasthttp.StatusInternalServerError)
			return
		}
		ctx.SetContentType("image/png")
		ctx.SetBody(img)
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		ctx.Error("encode failed", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(raw)
}

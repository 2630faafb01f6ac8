package admin

import (
	"bytes"
	"image/png"
	"context"
	"net"
	"testing"
	"time"

	"github.com/park285/checkers-server/internal/match"
	"github.com/park285/checkers-server/internal/render"
	"github.com/park285/checkers-server/pkg/checkersdto"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTestAdmin(t *testing.T) (*match.Manager, *Client) {
	t.Helper()
	mgr := match.NewManager(match.NotifierFunc(func(context.Context, string, checkersdto.Message) error { return nil }))
	t.Cleanup(mgr.Close)

	srv := New(mgr, WithSessionCounter(func() int { return 2 }))
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	c := NewClient("http://admin", WithRetry(1), WithTimeout(2*time.Second),
		WithDial(func(string) (net.Conn, error) { return ln.Dial() }))
	return mgr, c
}

func TestHealthAndMetrics(t *testing.T) {
	mgr, c := newTestAdmin(t)
	ctx := context.Background()
	if _, err := mgr.Create(ctx, match.Participant{Session: "s1", Name: "alice"}, match.Participant{Session: "s2", Name: "bob"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	h, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "ok" || h.Sessions != 2 || h.Matches != 1 {
		t.Fatalf("unexpected health %+v", h)
	}

	m, err := c.Metrics(ctx)
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if m["matches_started"] != 1 || m["matches_active"] != 1 || m["sessions"] != 2 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestMatchEndpoints(t *testing.T) {
	mgr, c := newTestAdmin(t)
	ctx := context.Background()
	mt, err := mgr.Create(ctx, match.Participant{Session: "s1", Name: "alice"}, match.Participant{Session: "s2", Name: "bob"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mt.Move(ctx, "s1", 18, 27); err != nil {
		t.Fatalf("Move: %v", err)
	}

	list, err := c.Matches(ctx)
	if err != nil || len(list) != 1 || list[0].ID != mt.ID() {
		t.Fatalf("Matches: %v %+v", err, list)
	}

	sum, err := c.Match(ctx, mt.ID())
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if sum.Status != match.StatusActive || sum.Turn != 2 || sum.Moves != 1 || sum.Board[27] != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.Player1.Name != "alice" || sum.Player2.Name != "bob" {
		t.Fatalf("unexpected players %+v %+v", sum.Player1, sum.Player2)
	}

	img, err := c.BoardPNG(ctx, mt.ID())
	if err != nil {
		t.Fatalf("BoardPNG: %v", err)
	}
	if !bytes.HasPrefix(img, []byte("\x89PNG")) {
		t.Fatalf("expected png body, got %d bytes", len(img))
	}

	if _, err := c.Match(ctx, "missing"); err == nil {
		t.Fatalf("expected error for unknown match")
	}
}

func TestRejectsWritesAndUnknownPaths(t *testing.T) {
	srv := New(match.NewManager(nil))
	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{fasthttp.MethodPost, "/matches", fasthttp.StatusMethodNotAllowed},
		{fasthttp.MethodGet, "/nope", fasthttp.StatusNotFound},
		{fasthttp.MethodGet, "/matches/x/other", fasthttp.StatusNotFound},
		{fasthttp.MethodGet, "/healthz/", fasthttp.StatusOK},
	} {
		var ctx fasthttp.RequestCtx
		ctx.Request.Header.SetMethod(tc.method)
		ctx.Request.SetRequestURI(tc.path)
		srv.Handler(&ctx)
		if got := ctx.Response.StatusCode(); got != tc.want {
			t.Fatalf("%s %s: status %d, want %d", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestBoardSizeQueryIsBounded(t *testing.T) {
	mgr := match.NewManager(nil)
	t.Cleanup(mgr.Close)
	mt, err := mgr.Create(context.Background(), match.Participant{Session: "s1", Name: "alice"}, match.Participant{Session: "s2", Name: "bob"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	srv := New(mgr)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/matches/" + mt.ID() + "/board.png?size=1099511627776")
	srv.Handler(&ctx)
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusOK {
		t.Fatalf("status %d, want 200", got)
	}
	img, err := png.Decode(bytes.NewReader(ctx.Response.Body()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w := img.Bounds().Dx(); w > 8*render.MaxSquareSize+64 {
		t.Fatalf("image width %d not bounded", w)
	}
}

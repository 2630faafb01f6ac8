package match

import (
	"context"
	"sync"
	"testing"

	"github.com/park285/checkers-server/internal/checkers"
	"github.com/park285/checkers-server/pkg/checkersdto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	session string
	msg     checkersdto.Message
}

type recorder struct {
	mu   sync.Mutex
	msgs []sent
}

func (r *recorder) Send(_ context.Context, session string, msg checkersdto.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{session: session, msg: msg})
	return nil
}

// take returns everything recorded so far and clears the log.
func (r *recorder) take() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.msgs
	r.msgs = nil
	return out
}

func (r *recorder) types(session string, from []sent) []string {
	var out []string
	for _, s := range from {
		if s.session == session {
			out = append(out, s.msg.MessageType())
		}
	}
	return out
}

var (
	alice = Participant{Session: "s1", Name: "alice"}
	bob   = Participant{Session: "s2", Name: "bob"}
)

func newTestMatch(t *testing.T, opts ...Option) (*Manager, *Match, *recorder) {
	t.Helper()
	rec := &recorder{}
	mgr := NewManager(rec, opts...)
	t.Cleanup(mgr.Close)
	mt, err := mgr.Create(context.Background(), alice, bob)
	require.NoError(t, err)
	return mgr, mt, rec
}

// setBoard swaps in a prepared position; the match goroutine is idle between requests.
func setBoard(t *testing.T, mt *Match, cells map[int]uint8, turn checkers.Player) {
	t.Helper()
	var s checkers.Snapshot
	for i, v := range cells {
		s[i] = v
	}
	b, err := checkers.FromSnapshot(s)
	require.NoError(t, err)
	mt.mu.Lock()
	mt.board = b
	mt.turn = turn
	mt.chain = -1
	mt.mu.Unlock()
}

func TestStartAnnouncesBoardAndPlayers(t *testing.T) {
	_, mt, rec := newTestMatch(t)
	msgs := rec.take()

	for _, s := range []string{"s1", "s2"} {
		assert.Equal(t, []string{"board_reset", "player_info"}, rec.types(s, msgs))
	}
	info, ok := msgs[1].msg.(checkersdto.PlayerInfo)
	require.True(t, ok)
	assert.Equal(t, "alice", info.Name1)
	assert.Equal(t, "bob", info.Name2)

	sum := mt.Summary()
	assert.Equal(t, StatusActive, sum.Status)
	assert.Equal(t, 1, sum.Turn)
	assert.Equal(t, -1, sum.Chain)
	assert.Equal(t, checkersdto.Board(checkers.NewBoard().Snapshot()), sum.Board)
}

func TestStartTwicePanics(t *testing.T) {
	_, mt, _ := newTestMatch(t)
	assert.Panics(t, func() { _ = mt.Start(context.Background()) })
}

func TestSelectRepliesOnlyToRequester(t *testing.T) {
	_, mt, rec := newTestMatch(t)
	rec.take()

	require.NoError(t, mt.Select(context.Background(), "s1", 18))
	msgs := rec.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, "s1", msgs[0].session)
	resp, ok := msgs[0].msg.(checkersdto.SelectPieceResponse)
	require.True(t, ok)
	assert.Equal(t, 18, resp.SelectedIndex)
	assert.ElementsMatch(t, []int{25, 27}, resp.MoveIndexes)
}

func TestRejectionsLeaveNoTrace(t *testing.T) {
	ctx := context.Background()
	_, mt, rec := newTestMatch(t)
	rec.take()
	before := mt.Snapshot()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"stranger", func() error { return mt.Select(ctx, "s9", 18) }, ErrNotParticipant},
		{"out of turn", func() error { return mt.Select(ctx, "s2", 45) }, ErrNotYourTurn},
		{"opponent piece", func() error { return mt.Select(ctx, "s1", 45) }, ErrNotYourPiece},
		{"empty cell", func() error { return mt.Select(ctx, "s1", 27) }, ErrNotYourPiece},
		{"out of range", func() error { return mt.Select(ctx, "s1", 64) }, ErrOutOfRange},
		{"negative", func() error { return mt.Move(ctx, "s1", -1, 9) }, ErrOutOfRange},
		{"destination out of range", func() error { return mt.Move(ctx, "s1", 18, 99) }, ErrOutOfRange},
		{"illegal destination", func() error { return mt.Move(ctx, "s1", 18, 36) }, ErrIllegalMove},
		{"backwards step", func() error { return mt.Move(ctx, "s1", 18, 9) }, ErrIllegalMove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), tt.want)
			assert.Empty(t, rec.take())
			assert.Equal(t, before, mt.Snapshot())
		})
	}
	assert.Equal(t, 1, mt.Summary().Turn)
}

func TestMoveBroadcastsAndPassesTurn(t *testing.T) {
	ctx := context.Background()
	mgr, mt, rec := newTestMatch(t)
	rec.take()

	require.NoError(t, mt.Move(ctx, "s1", 18, 27))
	msgs := rec.take()
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		res, ok := m.msg.(checkersdto.MoveResult)
		require.True(t, ok)
		assert.Equal(t, 1, res.WhoMadeTheMove)
		assert.Equal(t, uint8(0), res.Board[18])
		assert.Equal(t, uint8(1), res.Board[27])
	}
	assert.Equal(t, 2, mt.Summary().Turn)

	assert.ErrorIs(t, mt.Move(ctx, "s1", 27, 36), ErrNotYourTurn)
	require.NoError(t, mt.Move(ctx, "s2", 45, 36))
	assert.Equal(t, 1, mt.Summary().Turn)
	assert.EqualValues(t, 2, mgr.Metrics().Moves.Load())
}

func TestForcedCaptureBlocksOtherPieces(t *testing.T) {
	ctx := context.Background()
	_, mt, rec := newTestMatch(t)
	setBoard(t, mt, map[int]uint8{9: 1, 18: 2, 13: 1}, checkers.Player1)
	rec.take()

	assert.ErrorIs(t, mt.Select(ctx, "s1", 13), ErrForcedCapture)
	assert.ErrorIs(t, mt.Move(ctx, "s1", 13, 20), ErrForcedCapture)
	assert.Empty(t, rec.take())

	require.NoError(t, mt.Select(ctx, "s1", 9))
	msgs := rec.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, []int{27}, msgs[0].msg.(checkersdto.SelectPieceResponse).MoveIndexes)
}

func TestMultiJumpKeepsTurn(t *testing.T) {
	ctx := context.Background()
	_, mt, rec := newTestMatch(t)
	setBoard(t, mt, map[int]uint8{9: 1, 2: 1, 18: 2, 36: 2, 50: 2}, checkers.Player1)
	rec.take()

	require.NoError(t, mt.Move(ctx, "s1", 9, 27))
	sum := mt.Summary()
	assert.Equal(t, 1, sum.Turn)
	assert.Equal(t, 27, sum.Chain)
	assert.Equal(t, uint8(0), sum.Board[18])
	assert.Len(t, rec.take(), 2)

	assert.ErrorIs(t, mt.Select(ctx, "s1", 2), ErrChainPiece)
	assert.ErrorIs(t, mt.Select(ctx, "s2", 50), ErrNotYourTurn)
	assert.ErrorIs(t, mt.Move(ctx, "s1", 27, 34), ErrIllegalMove)

	require.NoError(t, mt.Move(ctx, "s1", 27, 45))
	sum = mt.Summary()
	assert.Equal(t, 2, sum.Turn)
	assert.Equal(t, -1, sum.Chain)
	assert.Equal(t, uint8(0), sum.Board[36])
	assert.Equal(t, uint8(1), sum.Board[45])
	assert.Equal(t, StatusActive, sum.Status)
}

func TestPromotionOnFarRow(t *testing.T) {
	ctx := context.Background()
	_, mt, _ := newTestMatch(t)
	setBoard(t, mt, map[int]uint8{50: 1, 0: 2}, checkers.Player1)

	require.NoError(t, mt.Move(ctx, "s1", 50, 59))
	assert.Equal(t, uint8(3), mt.Snapshot()[59])
	assert.Equal(t, 2, mt.Summary().Turn)
}

// A capture that promotes continues when the new king can capture again,
// even if the man it was could not.
func TestPromotingCaptureContinuesAsKing(t *testing.T) {
	ctx := context.Background()
	_, mt, _ := newTestMatch(t)
	setBoard(t, mt, map[int]uint8{41: 1, 50: 2, 38: 2}, checkers.Player1)

	require.NoError(t, mt.Move(ctx, "s1", 41, 59))
	sum := mt.Summary()
	assert.Equal(t, uint8(3), sum.Board[59])
	assert.Equal(t, uint8(0), sum.Board[50])
	assert.Equal(t, 1, sum.Turn)
	assert.Equal(t, 59, sum.Chain)

	require.NoError(t, mt.Move(ctx, "s1", 59, 31))
	sum = mt.Summary()
	assert.Equal(t, uint8(0), sum.Board[38])
	assert.Equal(t, StatusFinished, sum.Status)
	assert.Equal(t, 1, sum.Winner)
}

func TestCaptureLastPieceWins(t *testing.T) {
	ctx := context.Background()
	var ended []Summary
	mgr, mt, rec := newTestMatch(t, WithOnEnd(func(s Summary) { ended = append(ended, s) }))
	setBoard(t, mt, map[int]uint8{9: 1, 18: 2}, checkers.Player1)
	rec.take()

	require.NoError(t, mt.Move(ctx, "s1", 9, 27))
	msgs := rec.take()
	assert.Equal(t, []string{"move_result", "match_end"}, rec.types("s1", msgs))
	assert.Equal(t, []string{"move_result", "match_end"}, rec.types("s2", msgs))
	for _, m := range msgs {
		if end, ok := m.msg.(checkersdto.MatchEnd); ok {
			want := checkersdto.ResultLose
			if m.session == "s1" {
				want = checkersdto.ResultWin
			}
			assert.Equal(t, want, end.Result)
		}
	}

	require.Len(t, ended, 1)
	assert.Equal(t, StatusFinished, ended[0].Status)
	assert.Equal(t, 1, ended[0].Winner)
	assert.Nil(t, mgr.BySession("s1"))
	assert.Nil(t, mgr.Get(mt.ID()))

	<-mt.Done()
	assert.ErrorIs(t, mt.Move(ctx, "s2", 0, 9), ErrMatchOver)
	assert.EqualValues(t, 1, mgr.Metrics().Finished.Load())
}

func TestResignOutOfTurn(t *testing.T) {
	ctx := context.Background()
	mgr, mt, rec := newTestMatch(t)
	rec.take()

	require.NoError(t, mt.Resign(ctx, "s2"))
	msgs := rec.take()
	require.Len(t, msgs, 2)
	results := map[string]string{}
	for _, m := range msgs {
		results[m.session] = m.msg.(checkersdto.MatchEnd).Result
	}
	assert.Equal(t, map[string]string{"s1": "win", "s2": "lose"}, results)
	assert.Equal(t, StatusResigned, mt.Status())
	assert.EqualValues(t, 1, mgr.Metrics().Resigned.Load())
	assert.EqualValues(t, 0, mgr.Metrics().Active.Load())
}

func TestLeaveAwardsRemainingPlayer(t *testing.T) {
	ctx := context.Background()
	mgr, mt, rec := newTestMatch(t)
	rec.take()

	require.NoError(t, mt.Leave(ctx, "s1"))
	msgs := rec.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, "s2", msgs[0].session)
	assert.Equal(t, checkersdto.MatchEnd{Result: checkersdto.ResultWin}, msgs[0].msg)
	assert.Equal(t, StatusAbandoned, mt.Summary().Status)
	assert.Equal(t, 2, mt.Summary().Winner)
	assert.Nil(t, mgr.BySession("s2"))

	assert.ErrorIs(t, mt.Leave(ctx, "s2"), ErrMatchOver)
}

func TestConcurrentRequestsAreSerialised(t *testing.T) {
	ctx := context.Background()
	_, mt, rec := newTestMatch(t)
	rec.take()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- mt.Select(ctx, "s2", 41)
		}()
		go func() {
			defer wg.Done()
			errs <- mt.Select(ctx, "s1", 16)
		}()
	}
	wg.Wait()
	close(errs)

	var ok, rejected int
	for err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrNotYourTurn)
			rejected++
		}
	}
	assert.Equal(t, 20, ok)
	assert.Equal(t, 20, rejected)
	assert.Len(t, rec.take(), 20)
}

package match

import (
	"context"
	"sync"
	"time"

	"github.com/park285/checkers-server/internal/checkers"
	"github.com/park285/checkers-server/internal/obslog"
	"github.com/park285/checkers-server/pkg/checkersdto"
	"go.uber.org/zap"
)

type requestKind int

const (
	reqStart requestKind = iota
	reqSelect
	reqMove
	reqResign
	reqLeave
)

func (k requestKind) String() string {
	switch k {
	case reqStart:
		return "start"
	case reqSelect:
		return "select"
	case reqMove:
		return "move"
	case reqResign:
		return "resign"
	case reqLeave:
		return "leave"
	}
	return "unknown"
}

type request struct {
	ctx     context.Context
	kind    requestKind
	session string
	index   int
	to      int
	reply   chan error
}

// Match owns one board and serialises every request through its own goroutine.
type Match struct {
	id       string
	players  [2]Participant
	slots    map[string]checkers.Player
	notifier Notifier
	metrics  *Metrics
	onEnd    func(*Match)

	reqs chan request
	quit chan struct{}
	done chan struct{}
	once sync.Once

	mu        sync.RWMutex
	board     *checkers.Board
	turn      checkers.Player
	chain     int
	status    Status
	winner    checkers.Player
	moves     int
	startedAt time.Time
	endedAt   time.Time
	ended     bool
}

func newMatch(id string, p1, p2 Participant, n Notifier, queue int, metrics *Metrics, onEnd func(*Match)) *Match {
	if queue <= 0 {
		queue = 16
	}
	m := &Match{
		id:       id,
		players:  [2]Participant{p1, p2},
		slots:    map[string]checkers.Player{p1.Session: checkers.Player1, p2.Session: checkers.Player2},
		notifier: n,
		metrics:  metrics,
		onEnd:    onEnd,
		reqs:     make(chan request, queue),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		board:    checkers.NewBoard(),
		turn:     checkers.Player1,
		chain:    -1,
		status:   StatusPending,
	}
	go m.run()
	return m
}

// ID returns the match identifier.
func (m *Match) ID() string { return m.id }

// Participants returns both players, slot 1 first.
func (m *Match) Participants() [2]Participant { return m.players }

// Slot reports which side a session plays.
func (m *Match) Slot(session string) (checkers.Player, bool) {
	p, ok := m.slots[session]
	return p, ok
}

// Opponent returns the other participant of session.
func (m *Match) Opponent(session string) (Participant, bool) {
	p, ok := m.slots[session]
	if !ok {
		return Participant{}, false
	}
	return m.players[p.Opponent()-1], true
}

// Done is closed once the match goroutine exits.
func (m *Match) Done() <-chan struct{} { return m.done }

// Start resets the board and announces the pairing to both players.
// Starting a match twice is a programming error and panics.
func (m *Match) Start(ctx context.Context) error {
	err := m.submit(ctx, request{kind: reqStart})
	if err == errAlreadyStarted {
		panic("match: Start called twice on " + m.id)
	}
	return err
}

// Select answers with the legal destinations of the piece at index.
func (m *Match) Select(ctx context.Context, session string, index int) error {
	return m.submit(ctx, request{kind: reqSelect, session: session, index: index})
}

// Move applies a move for session.
func (m *Match) Move(ctx context.Context, session string, from, to int) error {
	return m.submit(ctx, request{kind: reqMove, session: session, index: from, to: to})
}

// Resign ends the match in favour of the opponent.
func (m *Match) Resign(ctx context.Context, session string) error {
	return m.submit(ctx, request{kind: reqResign, session: session})
}

// Leave records a departure; the remaining player wins.
func (m *Match) Leave(ctx context.Context, session string) error {
	return m.submit(ctx, request{kind: reqLeave, session: session})
}

// Close stops the match goroutine. Queued requests fail with ErrMatchOver.
func (m *Match) Close() {
	m.once.Do(func() { close(m.quit) })
	<-m.done
}

// Summary returns a consistent copy of the match state.
func (m *Match) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Summary{
		ID:        m.id,
		Status:    m.status,
		Turn:      int(m.turn),
		Player1:   m.players[0],
		Player2:   m.players[1],
		Winner:    int(m.winner),
		Moves:     m.moves,
		Chain:     m.chain,
		Board:     checkersdto.Board(m.board.Snapshot()),
		StartedAt: m.startedAt,
		EndedAt:   m.endedAt,
	}
	return s
}

// Snapshot returns the current cell encoding.
func (m *Match) Snapshot() checkers.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.board.Snapshot()
}

// Status returns the lifecycle state.
func (m *Match) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Match) submit(ctx context.Context, r request) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r.ctx = ctx
	r.reply = make(chan error, 1)
	select {
	case m.reqs <- r:
	case <-m.done:
		return ErrMatchOver
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-r.reply:
		return err
	case <-m.done:
		// the final request is answered before done closes
		select {
		case err := <-r.reply:
			return err
		default:
			return ErrMatchOver
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Match) run() {
	defer close(m.done)
	for {
		select {
		case <-m.quit:
			return
		case r := <-m.reqs:
			err := m.handle(r)
			if err != nil && err != errAlreadyStarted {
				m.metrics.rejected()
				obslog.L().Warn("match_reject",
					zap.String("match_id", m.id),
					zap.String("session", r.session),
					zap.String("op", r.kind.String()),
					zap.Error(err),
				)
			}
			m.fireEnd()
			r.reply <- err
		}
	}
}

func (m *Match) fireEnd() {
	m.mu.Lock()
	fire := m.status.Over() && !m.ended
	if fire {
		m.ended = true
	}
	m.mu.Unlock()
	if fire && m.onEnd != nil {
		m.onEnd(m)
	}
}

func (m *Match) handle(r request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.kind == reqStart {
		return m.start(r.ctx)
	}
	switch {
	case m.status == StatusPending:
		return ErrNotStarted
	case m.status.Over():
		return ErrMatchOver
	}
	player, ok := m.slots[r.session]
	if !ok {
		return ErrNotParticipant
	}

	switch r.kind {
	case reqSelect:
		return m.selectPiece(r.ctx, r.session, player, r.index)
	case reqMove:
		return m.move(r.ctx, player, r.index, r.to)
	case reqResign:
		m.finish(r.ctx, StatusResigned, player.Opponent())
		m.send(r.ctx, m.players[player-1].Session, checkersdto.MatchEnd{Result: checkersdto.ResultLose})
		m.send(r.ctx, m.players[player.Opponent()-1].Session, checkersdto.MatchEnd{Result: checkersdto.ResultWin})
		return nil
	case reqLeave:
		m.finish(r.ctx, StatusAbandoned, player.Opponent())
		m.send(r.ctx, m.players[player.Opponent()-1].Session, checkersdto.MatchEnd{Result: checkersdto.ResultWin})
		return nil
	}
	return ErrInvalidArgs
}

func (m *Match) start(ctx context.Context) error {
	if m.status != StatusPending {
		return errAlreadyStarted
	}
	m.board.Reset()
	m.turn = checkers.Player1
	m.chain = -1
	m.status = StatusActive
	m.startedAt = time.Now()
	m.metrics.started()

	board := checkersdto.BoardReset{Board: checkersdto.Board(m.board.Snapshot())}
	info := checkersdto.PlayerInfo{Name1: m.players[0].Name, Name2: m.players[1].Name}
	for _, p := range m.players {
		m.send(ctx, p.Session, board)
		m.send(ctx, p.Session, info)
	}
	obslog.L().Info("match_start",
		zap.String("match_id", m.id),
		zap.String("player1", m.players[0].Name),
		zap.String("player2", m.players[1].Name),
	)
	return nil
}

// checkPiece validates that player may act with the piece at index right now.
func (m *Match) checkPiece(player checkers.Player, index int) error {
	if !checkers.InBounds(index) {
		return ErrOutOfRange
	}
	if player != m.turn {
		return ErrNotYourTurn
	}
	if !m.board.At(index).BelongsTo(player) {
		return ErrNotYourPiece
	}
	if m.chain >= 0 {
		if index != m.chain {
			return ErrChainPiece
		}
		return nil
	}
	if !m.board.CanSelect(index, player) {
		return ErrForcedCapture
	}
	return nil
}

func (m *Match) selectPiece(ctx context.Context, session string, player checkers.Player, index int) error {
	if err := m.checkPiece(player, index); err != nil {
		return err
	}
	moves := m.board.PossibleMoves(index, player)
	if moves == nil {
		moves = []int{}
	}
	m.send(ctx, session, checkersdto.SelectPieceResponse{SelectedIndex: index, MoveIndexes: moves})
	return nil
}

func (m *Match) move(ctx context.Context, player checkers.Player, from, to int) error {
	if err := m.checkPiece(player, from); err != nil {
		return err
	}
	if !checkers.InBounds(to) {
		return ErrOutOfRange
	}
	if !m.board.CanMoveTo(from, to, player) {
		return ErrIllegalMove
	}

	captured := m.board.ApplyMove(from, to)
	promoted := false
	if m.board.IsPromotable(to, player) {
		m.board.Promote(to)
		promoted = true
	}
	m.moves++
	m.metrics.moved(captured, promoted)

	if captured && m.board.HasCapture(to, player) {
		m.chain = to
	} else {
		m.chain = -1
		m.turn = player.Opponent()
	}

	result := checkersdto.MoveResult{WhoMadeTheMove: int(player), Board: checkersdto.Board(m.board.Snapshot())}
	for _, p := range m.players {
		m.send(ctx, p.Session, result)
	}
	obslog.L().Info("match_move",
		zap.String("match_id", m.id),
		zap.Int("player", int(player)),
		zap.Int("from", from),
		zap.Int("to", to),
		zap.Bool("capture", captured),
		zap.Bool("promote", promoted),
		zap.Int("chain", m.chain),
	)

	if winner, ok := m.board.Winner(); ok {
		m.finish(ctx, StatusFinished, winner)
		m.send(ctx, m.players[winner-1].Session, checkersdto.MatchEnd{Result: checkersdto.ResultWin})
		m.send(ctx, m.players[winner.Opponent()-1].Session, checkersdto.MatchEnd{Result: checkersdto.ResultLose})
	}
	return nil
}

// finish must be called with mu held.
func (m *Match) finish(ctx context.Context, status Status, winner checkers.Player) {
	m.status = status
	m.winner = winner
	m.chain = -1
	m.endedAt = time.Now()
	m.metrics.ended(status)
	obslog.L().Info("match_end",
		zap.String("match_id", m.id),
		zap.String("status", string(status)),
		zap.Int("winner", int(winner)),
		zap.Int("moves", m.moves),
		zap.Duration("duration", m.endedAt.Sub(m.startedAt)),
	)
}

func (m *Match) send(ctx context.Context, session string, msg checkersdto.Message) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Send(ctx, session, msg); err != nil {
		obslog.L().Warn("match_send_failed",
			zap.String("match_id", m.id),
			zap.String("session", session),
			zap.String("type", msg.MessageType()),
			zap.Error(err),
		)
	}
}

package checkers

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPossibleMoves(t *testing.T) {
	tests := []struct {
		name   string
		cells  map[int]uint8
		index  int
		player Player
		want   []int
	}{
		{
			name:   "man jumps diagonal neighbour",
			cells:  map[int]uint8{9: 1, 18: 2},
			index:  9,
			player: Player1,
			want:   []int{27},
		},
		{
			name:   "own piece blocks, only the free forward step remains",
			cells:  map[int]uint8{9: 1, 18: 1},
			index:  9,
			player: Player1,
			want:   []int{16},
		},
		{
			name:   "player two man steps toward row zero",
			cells:  map[int]uint8{36: 2},
			index:  36,
			player: Player2,
			want:   []int{27, 29},
		},
		{
			name:   "man captures backwards",
			cells:  map[int]uint8{27: 1, 18: 2},
			index:  27,
			player: Player1,
			want:   []int{9},
		},
		{
			name:   "capture landing off the board is no capture",
			cells:  map[int]uint8{14: 1, 23: 2},
			index:  14,
			player: Player1,
			want:   []int{21},
		},
		{
			name:   "man in the corner with a jumped piece on the edge",
			cells:  map[int]uint8{0: 1, 9: 2},
			index:  0,
			player: Player1,
			want:   []int{18},
		},
		{
			name:   "flying king lands anywhere past the jumped piece",
			cells:  map[int]uint8{0: 3, 9: 2},
			index:  0,
			player: Player1,
			want:   []int{18, 27, 36, 45, 54, 63},
		},
		{
			name:   "two pieces in a row block a king",
			cells:  map[int]uint8{0: 3, 9: 2, 18: 2},
			index:  0,
			player: Player1,
			want:   nil,
		},
		{
			name:   "king stops at the second piece after a jump",
			cells:  map[int]uint8{0: 3, 9: 2, 36: 2},
			index:  0,
			player: Player1,
			want:   []int{18, 27},
		},
		{
			name:   "king capturing in one direction drops plain moves elsewhere",
			cells:  map[int]uint8{27: 4, 45: 1},
			index:  27,
			player: Player2,
			want:   []int{54, 63},
		},
		{
			name:   "cell of the opponent yields nothing",
			cells:  map[int]uint8{9: 1},
			index:  9,
			player: Player2,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := place(t, tt.cells)
			got := b.PossibleMoves(tt.index, tt.player)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestKingMovesEveryDirection(t *testing.T) {
	b := place(t, map[int]uint8{27: 3})
	got := b.PossibleMoves(27, Player1)
	assert.ElementsMatch(t, []int{
		18, 9, 0, // top-left
		20, 13, 6, // top-right
		36, 45, 54, 63, // bottom-right
		34, 41, 48, // bottom-left
	}, got)
}

func TestManPlainMovesAreForwardOnly(t *testing.T) {
	b := place(t, map[int]uint8{27: 1, 36: 2})
	b2 := place(t, map[int]uint8{27: 1})

	assert.ElementsMatch(t, []int{34, 36}, b2.PossibleMoves(27, Player1))
	// the capture toward 36 wins over the plain step
	assert.ElementsMatch(t, []int{45}, b.PossibleMoves(27, Player1))
}

func TestHasCapture(t *testing.T) {
	b := place(t, map[int]uint8{9: 1, 18: 2, 13: 1})
	assert.True(t, b.HasCapture(9, Player1))
	assert.False(t, b.HasCapture(13, Player1))
	assert.False(t, b.HasCapture(18, Player1), "not player one's piece")
	assert.False(t, b.HasCapture(9, Player2))

	// player two's man at 18 can jump 9 backwards onto 0
	assert.True(t, b.HasCapture(18, Player2))
}

func TestForcedCapture(t *testing.T) {
	b := place(t, map[int]uint8{9: 1, 18: 2, 13: 1})

	assert.True(t, b.AnyForcedCapture(Player1, 13))
	assert.False(t, b.AnyForcedCapture(Player1, 9))
	assert.True(t, b.AnyForcedCapture(Player1, -1))
	assert.Equal(t, []int{9}, b.CapturingPieces(Player1))

	// 13 has plain moves of its own but may not be selected while 9 must capture
	assert.NotEmpty(t, b.PossibleMoves(13, Player1))
	assert.False(t, b.CanSelect(13, Player1))
	assert.Empty(t, b.LegalMoves(13, Player1))

	assert.True(t, b.CanSelect(9, Player1))
	assert.Equal(t, []int{27}, b.LegalMoves(9, Player1))
}

func TestApplyMove(t *testing.T) {
	t.Run("plain step removes nothing", func(t *testing.T) {
		b := place(t, map[int]uint8{9: 1})
		assert.False(t, b.ApplyMove(9, 18))
		assert.True(t, b.At(9).IsEmpty())
		assert.Equal(t, NewMan(Player1), b.At(18))
	})

	t.Run("jump removes the piece in between", func(t *testing.T) {
		b := place(t, map[int]uint8{9: 1, 18: 2})
		assert.True(t, b.ApplyMove(9, 27))
		assert.True(t, b.At(18).IsEmpty())
		assert.True(t, b.At(9).IsEmpty())
		assert.Equal(t, NewMan(Player1), b.At(27))
		assert.Equal(t, 0, b.Count(Player2))
	})

	t.Run("flying king clears the whole line", func(t *testing.T) {
		b := place(t, map[int]uint8{0: 3, 9: 2})
		assert.True(t, b.ApplyMove(0, 63))
		assert.Equal(t, NewKing(Player1), b.At(63))
		for _, i := range []int{0, 9, 18, 27, 36, 45, 54} {
			assert.Truef(t, b.At(i).IsEmpty(), "cell %d", i)
		}
	})

	t.Run("king jumping backwards", func(t *testing.T) {
		b := place(t, map[int]uint8{27: 3, 13: 2})
		require.Contains(t, b.PossibleMoves(27, Player1), 6)
		assert.True(t, b.ApplyMove(27, 6))
		assert.True(t, b.At(13).IsEmpty())
	})
}

func TestPromotion(t *testing.T) {
	for i := 56; i < 64; i++ {
		b := place(t, map[int]uint8{i: 1})
		assert.Truef(t, b.IsPromotable(i, Player1), "player one on %d", i)
		b.Promote(i)
		assert.Equal(t, NewKing(Player1), b.At(i))
		assert.False(t, b.IsPromotable(i, Player1), "kings are never promoted again")
	}
	for i := 0; i < 8; i++ {
		b := place(t, map[int]uint8{i: 2})
		assert.Truef(t, b.IsPromotable(i, Player2), "player two on %d", i)
		b.Promote(i)
		assert.Equal(t, NewKing(Player2), b.At(i))
	}

	b := place(t, map[int]uint8{1: 1, 62: 2, 27: 1})
	assert.False(t, b.IsPromotable(1, Player1), "own back row")
	assert.False(t, b.IsPromotable(62, Player2), "own back row")
	assert.False(t, b.IsPromotable(27, Player1))
	assert.False(t, b.IsPromotable(1, Player2), "someone else's piece")

	b = place(t, map[int]uint8{60: 3})
	b.Promote(60)
	assert.Equal(t, uint8(3), b.Snapshot()[60])
}

func TestKingDoubleCaptureChain(t *testing.T) {
	b := place(t, map[int]uint8{29: 3, 36: 2, 52: 2})

	require.True(t, b.HasCapture(29, Player1))
	moves := b.PossibleMoves(29, Player1)
	require.Contains(t, moves, 43)

	require.True(t, b.ApplyMove(29, 43))
	assert.True(t, b.At(36).IsEmpty())

	// the landed king still has to capture
	assert.True(t, b.HasCapture(43, Player1))
	assert.Contains(t, b.CapturingPieces(Player1), 43)
	assert.Equal(t, []int{61}, b.PossibleMoves(43, Player1))

	require.True(t, b.ApplyMove(43, 61))
	assert.False(t, b.HasCapture(61, Player1))
	assert.False(t, b.HasPieces(Player2))
}

// Randomised positions checking the distance and direction properties of move generation.
func TestMoveGenerationProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 500; round++ {
		b := randomBoard(rng)
		for i := 0; i < Cells; i++ {
			pc := b.At(i)
			if pc.IsEmpty() {
				continue
			}
			p := pc.Owner
			moves := b.PossibleMoves(i, p)
			capture := b.HasCapture(i, p)
			x, y := XY(i)
			for _, m := range moves {
				require.Truef(t, b.At(m).IsEmpty(), "round %d: %d -> %d lands on a piece\n%s", round, i, m, b)
				mx, my := XY(m)
				dist := abs(mx - x)
				require.Equalf(t, dist, abs(my-y), "round %d: %d -> %d is not diagonal", round, i, m)
				if pc.IsKing() {
					continue
				}
				if capture {
					require.Equalf(t, 2, dist, "round %d: man %d capture lands %d\n%s", round, i, m, b)
					continue
				}
				require.Equalf(t, 1, dist, "round %d: man %d step %d\n%s", round, i, m, b)
				if p == Player1 {
					require.Greater(t, my, y)
				} else {
					require.Less(t, my, y)
				}
			}
			if !capture && b.AnyForcedCapture(p, i) {
				require.Emptyf(t, b.LegalMoves(i, p), "round %d: %d ignores a forced capture\n%s", round, i, b)
			}
		}
	}
}

func randomBoard(rng *rand.Rand) *Board {
	b := NewEmptyBoard()
	for i := 0; i < Cells; i++ {
		if !IsPlayable(i) || rng.Intn(3) != 0 {
			continue
		}
		code := uint8(rng.Intn(4) + 1)
		pc, _ := PieceFromCode(code)
		_ = b.Set(i, pc)
	}
	return b
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

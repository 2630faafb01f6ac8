package checkers

import (
	"fmt"
	"strings"
)

// Snapshot is the 64-cell wire form of a board, row-major, legacy cell values.
type Snapshot [Cells]uint8

// Board holds the cells of one match. It is not safe for concurrent use;
// the owning match serialises access.
type Board struct {
	cells [Cells]Piece
}

// NewBoard returns a board with the starting layout.
func NewBoard() *Board {
	b := &Board{}
	b.Reset()
	return b
}

// NewEmptyBoard returns a board without pieces.
func NewEmptyBoard() *Board { return &Board{} }

// Reset puts men on every dark cell of rows 0-2 (player 1) and rows 5-7 (player 2).
func (b *Board) Reset() {
	for i := 0; i < Cells; i++ {
		b.cells[i] = Empty
		if !IsPlayable(i) {
			continue
		}
		switch row := i / Width; {
		case row <= 2:
			b.cells[i] = NewMan(Player1)
		case row >= 5:
			b.cells[i] = NewMan(Player2)
		}
	}
}

// IsPlayable reports whether index i is on the colour pieces travel on.
func IsPlayable(i int) bool {
	return (i+(i/Width)%2)%2 == 0
}

// InBounds reports whether i addresses a cell.
func InBounds(i int) bool { return i >= 0 && i < Cells }

// XY splits an index into column and row.
func XY(i int) (x, y int) { return i % Width, i / Width }

// Index joins column and row.
func Index(x, y int) int { return y*Width + x }

func inGrid(x, y int) bool { return x >= 0 && x < Width && y >= 0 && y < Height }

// At returns the piece at i, Empty when i is out of range.
func (b *Board) At(i int) Piece {
	if !InBounds(i) {
		return Empty
	}
	return b.cells[i]
}

// Set places pc at i.
func (b *Board) Set(i int, pc Piece) error {
	if !InBounds(i) {
		return fmt.Errorf("%w: %d", ErrOutOfBoard, i)
	}
	b.cells[i] = pc
	return nil
}

// Clone returns an independent copy.
func (b *Board) Clone() *Board {
	c := *b
	return &c
}

// Snapshot encodes the board for the wire.
func (b *Board) Snapshot() Snapshot {
	var s Snapshot
	for i, pc := range b.cells {
		s[i] = pc.Code()
	}
	return s
}

// FromSnapshot decodes a wire board.
func FromSnapshot(s Snapshot) (*Board, error) {
	b := &Board{}
	for i, code := range s {
		pc, err := PieceFromCode(code)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		b.cells[i] = pc
	}
	return b, nil
}

// String renders the board as eight rows of wire values, row 0 first.
func (b *Board) String() string {
	var sb strings.Builder
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if x > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte('0' + b.cells[Index(x, y)].Code())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

package checkers

import "fmt"

const (
	// Width and Height of the playing grid.
	Width  = 8
	Height = 8
	// Cells is the number of cells in a snapshot.
	Cells = Width * Height

	// KingOffset is the distance between a man's wire value and the king of the same owner.
	KingOffset = 2
)

// Player identifies a match slot. Player1 joined first.
type Player uint8

const (
	NoPlayer Player = iota
	Player1
	Player2
)

// Opponent returns the other slot; NoPlayer maps to NoPlayer.
func (p Player) Opponent() Player {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return NoPlayer
	}
}

// Valid reports whether p is one of the two playing slots.
func (p Player) Valid() bool { return p == Player1 || p == Player2 }

// HomeRow is the farthest row for p, where its men are promoted.
func (p Player) HomeRow() int {
	if p == Player1 {
		return Height - 1
	}
	return 0
}

func (p Player) String() string {
	switch p {
	case Player1:
		return "player1"
	case Player2:
		return "player2"
	default:
		return "none"
	}
}

// Rank tells men and kings apart.
type Rank uint8

const (
	NoRank Rank = iota
	Man
	King
)

func (r Rank) String() string {
	switch r {
	case Man:
		return "man"
	case King:
		return "king"
	default:
		return "none"
	}
}

// Piece is the content of one cell. The zero value is an empty cell.
type Piece struct {
	Owner Player
	Rank  Rank
}

// Empty is the content of an unoccupied cell.
var Empty = Piece{}

// NewMan and NewKing build pieces owned by p.
func NewMan(p Player) Piece  { return Piece{Owner: p, Rank: Man} }
func NewKing(p Player) Piece { return Piece{Owner: p, Rank: King} }

func (pc Piece) IsEmpty() bool           { return pc.Owner == NoPlayer }
func (pc Piece) IsKing() bool            { return pc.Rank == King }
func (pc Piece) BelongsTo(p Player) bool { return !pc.IsEmpty() && pc.Owner == p }

// Code returns the wire value: 0 empty, owner number for a man, owner+KingOffset for a king.
func (pc Piece) Code() uint8 {
	if pc.IsEmpty() {
		return 0
	}
	if pc.IsKing() {
		return uint8(pc.Owner) + KingOffset
	}
	return uint8(pc.Owner)
}

// PieceFromCode decodes a wire value; odd values belong to player 1, even ones to player 2.
func PieceFromCode(code uint8) (Piece, error) {
	switch code {
	case 0:
		return Empty, nil
	case 1, 2:
		return NewMan(Player(code)), nil
	case 1 + KingOffset, 2 + KingOffset:
		return NewKing(Player(code - KingOffset)), nil
	default:
		return Empty, fmt.Errorf("%w: %d", ErrInvalidCell, code)
	}
}

func (pc Piece) String() string {
	if pc.IsEmpty() {
		return "empty"
	}
	return pc.Owner.String() + "-" + pc.Rank.String()
}

// Direction is one of the four diagonal unit vectors.
type Direction int

const (
	TopLeft Direction = iota
	TopRight
	BottomRight
	BottomLeft
)

// Directions in scan order.
var Directions = [4]Direction{TopLeft, TopRight, BottomRight, BottomLeft}

var directionDelta = [4][2]int{
	TopLeft:     {-1, -1},
	TopRight:    {1, -1},
	BottomRight: {1, 1},
	BottomLeft:  {-1, 1},
}

// Delta returns the x,y step of d.
func (d Direction) Delta() (dx, dy int) {
	v := directionDelta[d]
	return v[0], v[1]
}

// IsForward reports whether a man of player p may step along d without capturing.
func (d Direction) IsForward(p Player) bool {
	if p == Player1 {
		return d >= BottomRight
	}
	return d <= TopRight
}

func (d Direction) String() string {
	switch d {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomRight:
		return "bottom-right"
	case BottomLeft:
		return "bottom-left"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

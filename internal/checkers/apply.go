package checkers

// ApplyMove moves the piece at from onto the empty cell to and clears every cell on the
// diagonal strictly between them. It reports whether a piece was removed.
// The move must already be validated with PossibleMoves.
func (b *Board) ApplyMove(from, to int) bool {
	b.cells[from], b.cells[to] = b.cells[to], b.cells[from]

	fx, fy := XY(from)
	tx, ty := XY(to)
	dx, dy := sign(tx-fx), sign(ty-fy)
	removed := false
	for x, y := fx+dx, fy+dy; (x != tx || y != ty) && inGrid(x, y); x, y = x+dx, y+dy {
		i := Index(x, y)
		if !b.cells[i].IsEmpty() {
			removed = true
		}
		b.cells[i] = Empty
	}
	return removed
}

// IsPromotable reports whether the piece at index is a man of p standing on p's farthest row.
func (b *Board) IsPromotable(index int, p Player) bool {
	pc := b.At(index)
	if !pc.BelongsTo(p) || pc.IsKing() {
		return false
	}
	_, y := XY(index)
	return y == p.HomeRow()
}

// Promote turns the man at index into a king. Kings and empty cells are left as they are.
func (b *Board) Promote(index int) {
	pc := b.At(index)
	if pc.IsEmpty() || pc.IsKing() {
		return
	}
	b.cells[index] = NewKing(pc.Owner)
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

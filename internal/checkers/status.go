package checkers

// Count returns how many pieces p has on the board.
func (b *Board) Count(p Player) int {
	n := 0
	for _, pc := range b.cells {
		if pc.BelongsTo(p) {
			n++
		}
	}
	return n
}

// HasPieces reports whether p owns at least one piece. A player without pieces has lost.
func (b *Board) HasPieces(p Player) bool {
	for _, pc := range b.cells {
		if pc.BelongsTo(p) {
			return true
		}
	}
	return false
}

// Winner returns the remaining player once the other has no pieces left.
func (b *Board) Winner() (Player, bool) {
	p1, p2 := b.HasPieces(Player1), b.HasPieces(Player2)
	switch {
	case p1 && !p2:
		return Player1, true
	case p2 && !p1:
		return Player2, true
	default:
		return NoPlayer, false
	}
}

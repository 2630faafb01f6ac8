package checkers

// directionScan is the outcome of walking one diagonal from a piece.
type directionScan struct {
	dir        Direction
	candidates []int
	capture    bool
}

// scanDirection walks d from index for player p. A man sees one step, a king the
// whole diagonal. Jumping an opposing piece discards the shorter candidates and
// lets the walk reach one step further; a second piece on the line ends it.
func (b *Board) scanDirection(pc Piece, index int, p Player, d Direction, stopAtCapture bool) directionScan {
	res := directionScan{dir: d}
	reach := 1
	if pc.IsKing() {
		reach = Width
	}
	x, y := XY(index)
	dx, dy := d.Delta()
	passed := false
	for step := 1; step <= reach; step++ {
		cx, cy := x+dx*step, y+dy*step
		if !inGrid(cx, cy) {
			break
		}
		target := Index(cx, cy)
		cell := b.cells[target]
		if cell.IsEmpty() {
			res.candidates = append(res.candidates, target)
			if passed {
				res.capture = true
				if stopAtCapture {
					return res
				}
			}
			continue
		}
		if passed || cell.BelongsTo(p) {
			break
		}
		passed = true
		res.candidates = res.candidates[:0]
		reach++
	}
	return res
}

// PossibleMoves returns the landing cells for the piece at index when moved by p.
// A piece with a capture may only land on capturing diagonals; otherwise a man only
// steps forward. Returns nil when the cell is not p's.
func (b *Board) PossibleMoves(index int, p Player) []int {
	pc := b.At(index)
	if !pc.BelongsTo(p) {
		return nil
	}
	var scans [4]directionScan
	anyCapture := false
	for i, d := range Directions {
		scans[i] = b.scanDirection(pc, index, p, d, false)
		anyCapture = anyCapture || scans[i].capture
	}
	var moves []int
	for _, s := range scans {
		switch {
		case anyCapture && !s.capture:
			continue
		case !anyCapture && !pc.IsKing() && !s.dir.IsForward(p):
			continue
		}
		moves = append(moves, s.candidates...)
	}
	return moves
}

// CanMoveTo reports whether to is among PossibleMoves(from, p).
func (b *Board) CanMoveTo(from, to int, p Player) bool {
	for _, m := range b.PossibleMoves(from, p) {
		if m == to {
			return true
		}
	}
	return false
}

// HasCapture reports whether the piece at index, owned by p, can jump something.
func (b *Board) HasCapture(index int, p Player) bool {
	pc := b.At(index)
	if !pc.BelongsTo(p) {
		return false
	}
	for _, d := range Directions {
		if b.scanDirection(pc, index, p, d, true).capture {
			return true
		}
	}
	return false
}

// AnyForcedCapture reports whether any piece of p other than the one at exclude has a capture.
// Pass -1 to consider every piece.
func (b *Board) AnyForcedCapture(p Player, exclude int) bool {
	for i := range b.cells {
		if i == exclude || !b.cells[i].BelongsTo(p) {
			continue
		}
		if b.HasCapture(i, p) {
			return true
		}
	}
	return false
}

// CapturingPieces lists every cell of p whose piece has a capture.
func (b *Board) CapturingPieces(p Player) []int {
	var out []int
	for i := range b.cells {
		if b.cells[i].BelongsTo(p) && b.HasCapture(i, p) {
			out = append(out, i)
		}
	}
	return out
}

// CanSelect applies the forced-capture rule to a selection: the piece must be p's and
// either capture itself or no other piece of p may be under forced capture.
func (b *Board) CanSelect(index int, p Player) bool {
	if !b.At(index).BelongsTo(p) {
		return false
	}
	return b.HasCapture(index, p) || !b.AnyForcedCapture(p, index)
}

// LegalMoves is PossibleMoves filtered by the forced-capture rule for the whole side.
func (b *Board) LegalMoves(index int, p Player) []int {
	if !b.CanSelect(index, p) {
		return nil
	}
	return b.PossibleMoves(index, p)
}

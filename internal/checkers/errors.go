package checkers

import "errors"

var (
	ErrInvalidCell = errors.New("invalid cell value")
	ErrOutOfBoard  = errors.New("index outside the board")
)

package match

import "errors"

// Rejections. None of them changes state or produces an outbound message.
var (
	ErrNotStarted     = errors.New("match not started")
	ErrMatchOver      = errors.New("match is over")
	ErrNotParticipant = errors.New("session is not part of this match")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrNotYourPiece   = errors.New("not your piece")
	ErrForcedCapture  = errors.New("another piece must capture")
	ErrChainPiece     = errors.New("capture must continue with the same piece")
	ErrIllegalMove    = errors.New("destination is not a legal move")
	ErrOutOfRange     = errors.New("cell index out of range")
)

// Manager errors.
var (
	ErrInvalidArgs = errors.New("invalid arguments")
	ErrSessionBusy = errors.New("session already in a match")
	ErrClosed      = errors.New("match manager closed")
)

var errAlreadyStarted = errors.New("match already in play")

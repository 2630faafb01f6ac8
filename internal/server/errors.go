package server

// Errors
var (
	ErrNoSession     = errf("session not connected")
	ErrSessionClosed = errf("session closed")
	ErrSlowConsumer  = errf("session send queue full")
	errProtocol      = errf("message not allowed in this room")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

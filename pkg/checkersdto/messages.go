package checkersdto

// Board is the 64-cell snapshot: 0 empty, 1/2 men of player 1/2, 3/4 their kings.
type Board [64]uint8

// Message is implemented by every protocol payload.
type Message interface {
	MessageType() string
}

// Room names used by RoomJoined and JoinRoom.
const (
	RoomLogin = "login"
	RoomLobby = "lobby"
	RoomGame  = "game"
)

// JoinResult values.
const (
	JoinAccepted = "accepted"
	JoinDenied   = "denied"
)

// MatchEnd results.
const (
	ResultWin  = "win"
	ResultLose = "lose"
)

// Inbound (client → server)

type PlayerJoin struct {
	Name string `json:"name"`
}

type LobbyMake struct{}

type LobbyJoin struct {
	Code string `json:"code"`
}

type LobbyList struct{}

type SelectPiece struct {
	TileIndex int `json:"tileIndex"`
}

type MakeMove struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type Resign struct{}

type JoinRoom struct {
	Room string `json:"room"`
}

// Outbound (server → client)

type RoomJoined struct {
	Room string `json:"room"`
}

type PlayerJoinResponse struct {
	Result string `json:"result"`
	Reason string `json:"reason,omitempty"`
}

type LobbyMade struct {
	Code string `json:"code"`
}

type LobbyChannel struct {
	Code    string `json:"code"`
	Creator string `json:"creator"`
}

type LobbyListing struct {
	Channels []LobbyChannel `json:"channels"`
}

type BoardReset struct {
	Board Board `json:"board"`
}

type PlayerInfo struct {
	Name1 string `json:"name1"`
	Name2 string `json:"name2"`
}

type SelectPieceResponse struct {
	SelectedIndex int   `json:"selectedIndex"`
	MoveIndexes   []int `json:"moveIndexes"`
}

type MoveResult struct {
	WhoMadeTheMove int   `json:"whoMadeTheMove"`
	Board          Board `json:"board"`
}

type MatchEnd struct {
	Result string `json:"result"`
}

// Notice carries human-readable feedback rendered from the message catalog.
type Notice struct {
	Text string `json:"text"`
}

func (PlayerJoin) MessageType() string          { return "player_join" }
func (LobbyMake) MessageType() string           { return "lobby_make" }
func (LobbyJoin) MessageType() string           { return "lobby_join" }
func (LobbyList) MessageType() string           { return "lobby_list" }
func (SelectPiece) MessageType() string         { return "select_piece" }
func (MakeMove) MessageType() string            { return "make_move" }
func (Resign) MessageType() string              { return "resign" }
func (JoinRoom) MessageType() string            { return "join_room" }
func (RoomJoined) MessageType() string          { return "room_joined" }
func (PlayerJoinResponse) MessageType() string  { return "player_join_response" }
func (LobbyMade) MessageType() string           { return "lobby_made" }
func (LobbyListing) MessageType() string        { return "lobby_listing" }
func (BoardReset) MessageType() string          { return "board_reset" }
func (PlayerInfo) MessageType() string          { return "player_info" }
func (SelectPieceResponse) MessageType() string { return "select_piece_response" }
func (MoveResult) MessageType() string          { return "move_result" }
func (MatchEnd) MessageType() string            { return "match_end" }
func (Notice) MessageType() string              { return "notice" }

package domain

// Inbound message types. Anything else is ignored with a log.
const (
	MsgInit       = "init"
	MsgPlayerMove = "player_move"
	MsgPauseGame  = "pause_game"
	MsgResumeGame = "resume_game"
)

// ClientMessage is the envelope for everything a client sends.
type ClientMessage struct {
	Type      string `json:"type"`
	Token     string `json:"token,omitempty"`
	Direction string `json:"direction,omitempty"` // "up" | "down"
}

// Outbound message types.
const (
	MsgAssignedSide     = "assigned_side"
	MsgStateUpdate      = "state_update"
	MsgCountdown        = "countdown"
	MsgGameStart        = "game_start"
	MsgPaused           = "paused"
	MsgResumed          = "resumed"
	MsgPlayerJoin       = "player_join"
	MsgPlayerDisconnect = "player_disconnect"
	MsgWalkover         = "walkover"
	MsgMatchFinished    = "match_finished"
	MsgTournamentUpdate = "tournament_update"
	MsgError            = "error"
)

type AssignedSideMessage struct {
	Type     string `json:"type"`
	Side     Side   `json:"side"`
	PlayerID int64  `json:"player_id"`
}

type StateUpdateMessage struct {
	Type  string      `json:"type"`
	State *MatchState `json:"state"`
}

type CountdownMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type GameStartMessage struct {
	Type string `json:"type"`
}

type NoticeMessage struct {
	Type    string `json:"type"` // paused | resumed
	Message string `json:"message"`
}

type PlayerJoinMessage struct {
	Type     string `json:"type"`
	PlayerID int64  `json:"player_id"`
	Side     Side   `json:"side"`
}

type PlayerDisconnectMessage struct {
	Type     string `json:"type"`
	PlayerID int64  `json:"player_id"`
}

// MatchResultMessage is sent as "match_finished" or "walkover". The
// FinalAlert is rendered in the recipient's preferred language.
type MatchResultMessage struct {
	Type         string `json:"type"`
	Winner       string `json:"winner"`
	Loser        string `json:"loser"`
	TournamentID *int64 `json:"tournament_id,omitempty"`
	RedirectURL  string `json:"redirect_url"`
	FinalAlert   string `json:"final_alert"`
}

type TournamentUpdateMessage struct {
	Type       string             `json:"type"`
	Tournament TournamentSnapshot `json:"tournament"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

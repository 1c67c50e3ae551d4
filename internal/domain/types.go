package domain

// Side identifies the paddle a player controls.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// MatchStatus represents the lifecycle state of a match
type MatchStatus string

const (
	StatusPending   MatchStatus = "pending"
	StatusOngoing   MatchStatus = "ongoing"
	StatusPaused    MatchStatus = "paused"
	StatusCompleted MatchStatus = "completed"
)

// Field and physics constants. The playing field matches the canvas the
// clients render (800x600); velocities are in pixels per tick at 60 Hz.
const (
	FieldWidth   = 800.0
	FieldHeight  = 600.0
	PaddleWidth  = 10.0
	PaddleHeight = 100.0
	PaddleStep   = 10.0
	BallRadius   = 8.0

	ServeSpeedX = 5.0
	ServeSpeedY = 3.0

	// DeflectFactor scales the extra vertical speed added when the ball
	// hits a paddle away from its center.
	DeflectFactor = 2.5

	ScoreThreshold = 5
	TickRate       = 60

	CountdownSteps = 3

	// TournamentWinPoints is awarded to the winner's participant entry.
	TournamentWinPoints = 3
)

// basic error that can occur
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrRoomFull          Error = "match already has two players"
	ErrNotInMatch        Error = "player is not part of this match"
	ErrMatchNotOngoing   Error = "match is not ongoing"
	ErrIllegalTransition Error = "illegal status transition"
	ErrMatchNotFound     Error = "match not found"
	ErrInvalidDirection  Error = "invalid move direction"
	ErrTooFewEntrants    Error = "tournament needs at least three participants"
)

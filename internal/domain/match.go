package domain

// Paddles holds the vertical offset of each paddle, measured from the top
// of the field. Invariant: 0 <= offset <= FieldHeight - PaddleHeight.
type Paddles struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Ball carries position and velocity in field coordinates.
type Ball struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	SpeedX float64 `json:"speed_x"`
	SpeedY float64 `json:"speed_y"`
}

// Scores are monotonically non-decreasing until finalization.
type Scores struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// MatchState is the full serializable state of one match. It lives in the
// match state store keyed by match id; all mutation goes through a single
// owner per match id, the state itself carries no locking.
type MatchState struct {
	Players        map[int64]Side `json:"players"`
	InitialPlayers []int64        `json:"initial_players"`
	Paddles        Paddles        `json:"paddles"`
	Ball           Ball           `json:"ball"`
	Scores         Scores         `json:"scores"`
	Status         MatchStatus    `json:"status"`
	TournamentID   *int64         `json:"tournament_id,omitempty"`
}

// NewMatchState returns the initial state: paddles centered, ball resting
// at field center, empty roster, pending.
func NewMatchState() *MatchState {
	center := (FieldHeight - PaddleHeight) / 2
	return &MatchState{
		Players:        make(map[int64]Side),
		InitialPlayers: nil,
		Paddles:        Paddles{Left: center, Right: center},
		Ball:           Ball{X: FieldWidth / 2, Y: FieldHeight / 2},
		Scores:         Scores{},
		Status:         StatusPending,
	}
}

// SideOf returns the side held by playerID, if any.
func (s *MatchState) SideOf(playerID int64) (Side, bool) {
	side, ok := s.Players[playerID]
	return side, ok
}

// AssignSide records playerID on the first free side, left before right.
// Returns ErrRoomFull when both sides are taken.
func (s *MatchState) AssignSide(playerID int64) (Side, error) {
	if side, ok := s.Players[playerID]; ok {
		return side, nil
	}
	if len(s.Players) >= 2 {
		return "", ErrRoomFull
	}

	side := SideLeft
	for _, taken := range s.Players {
		if taken == SideLeft {
			side = SideRight
		}
	}
	s.Players[playerID] = side

	for _, id := range s.InitialPlayers {
		if id == playerID {
			return side, nil
		}
	}
	s.InitialPlayers = append(s.InitialPlayers, playerID)
	return side, nil
}

// RemovePlayer drops playerID from the active roster. InitialPlayers is
// kept so a later walkover can still infer the departed loser.
func (s *MatchState) RemovePlayer(playerID int64) {
	delete(s.Players, playerID)
}

// OpponentOf returns the other entry in InitialPlayers, used to determine
// the walkover loser after a departure.
func (s *MatchState) OpponentOf(playerID int64) (int64, bool) {
	for _, id := range s.InitialPlayers {
		if id != playerID {
			return id, true
		}
	}
	return 0, false
}

// PlayerOnSide resolves the player currently holding a side.
func (s *MatchState) PlayerOnSide(side Side) (int64, bool) {
	for id, sd := range s.Players {
		if sd == side {
			return id, true
		}
	}
	return 0, false
}

// MovePaddle adjusts the paddle of playerID by one step and clamps the
// result to the field.
func (s *MatchState) MovePaddle(playerID int64, direction string) error {
	if s.Status != StatusOngoing {
		return ErrMatchNotOngoing
	}
	side, ok := s.Players[playerID]
	if !ok {
		return ErrNotInMatch
	}

	var delta float64
	switch direction {
	case "up":
		delta = -PaddleStep
	case "down":
		delta = PaddleStep
	default:
		return ErrInvalidDirection
	}

	switch side {
	case SideLeft:
		s.Paddles.Left = clampPaddle(s.Paddles.Left + delta)
	case SideRight:
		s.Paddles.Right = clampPaddle(s.Paddles.Right + delta)
	}
	return nil
}

func clampPaddle(offset float64) float64 {
	if offset < 0 {
		return 0
	}
	if max := FieldHeight - PaddleHeight; offset > max {
		return max
	}
	return offset
}

// Serve places the ball at field center moving toward the given side.
// The same velocity is used after every goal so replays are reproducible.
func (s *MatchState) Serve(toward Side) {
	speedX := ServeSpeedX
	if toward == SideLeft {
		speedX = -ServeSpeedX
	}
	s.Ball = Ball{
		X:      FieldWidth / 2,
		Y:      FieldHeight / 2,
		SpeedX: speedX,
		SpeedY: ServeSpeedY,
	}
}

package domain

import "time"

// TournamentStatus follows the original bracket lifecycle.
type TournamentStatus string

const (
	TournamentPlanned   TournamentStatus = "planned"
	TournamentOngoing   TournamentStatus = "ongoing"
	TournamentCompleted TournamentStatus = "completed"
)

type Tournament struct {
	ID        int64
	Name      string
	Status    TournamentStatus
	WinnerID  *int64
	CreatedAt time.Time
}

type TournamentParticipant struct {
	ID        int64
	UserID    int64
	Alias     string
	Points    int
	Abandoned bool
}

// TournamentMatch is the durable record of a bracket match.
type TournamentMatch struct {
	ID           int64
	TournamentID *int64
	Player1ID    int64
	Player2ID    int64
	ScorePlayer1 int
	ScorePlayer2 int
	WinnerID     *int64
	Status       MatchStatus
	IsWinnerByWO bool
	LastMatch    bool
}

// TournamentSnapshot is the lobby-facing view broadcast on every change.
type TournamentSnapshot struct {
	ID                int64            `json:"id"`
	Name              string           `json:"name"`
	Status            TournamentStatus `json:"status"`
	TotalParticipants int              `json:"total_participants"`
	WinnerID          *int64           `json:"winner_id,omitempty"`
	NextMatchID       *int64           `json:"next_match_id,omitempty"`
	Message           string           `json:"message,omitempty"`
}

// BuildRoundRobin pairs every two participants exactly once, preserving
// registration order. The final pair is the bracket's last match.
func BuildRoundRobin(participants []TournamentParticipant) [][2]int64 {
	var pairs [][2]int64
	for i := 0; i < len(participants); i++ {
		for j := i + 1; j < len(participants); j++ {
			pairs = append(pairs, [2]int64{participants[i].UserID, participants[j].UserID})
		}
	}
	return pairs
}

// DetermineWinner picks the participant with the most points. Ties break
// by lowest participant id, which is registration order.
func DetermineWinner(participants []TournamentParticipant) (TournamentParticipant, bool) {
	if len(participants) == 0 {
		return TournamentParticipant{}, false
	}
	winner := participants[0]
	for _, p := range participants[1:] {
		if p.Points > winner.Points || (p.Points == winner.Points && p.ID < winner.ID) {
			winner = p
		}
	}
	return winner, true
}

package match

import (
	"context"
	"time"

	"github.com/pongarena/server/internal/domain"
)

// StateStore is the keyed match state store. It offers no transactional
// semantics; each Room serializes every read-modify-write for its id.
type StateStore interface {
	Get(ctx context.Context, matchID int64) (*domain.MatchState, bool, error)
	Set(ctx context.Context, matchID int64, state *domain.MatchState) error
	Delete(ctx context.Context, matchID int64) error
}

// RecordStore persists finalized outcomes and win/loss counters.
type RecordStore interface {
	SaveMatchResult(matchID, winnerID, loserID int64, scoreWinner, scoreLoser int, isWalkover bool) error
	IncrementWinLoss(winnerID, loserID int64) error
	GetMatch(matchID int64) (*domain.TournamentMatch, error)
}

// TournamentRecords awards bracket points on finalization and flags
// walkover losers.
type TournamentRecords interface {
	AwardTournamentPoints(tournamentID, userID int64, delta int) error
	MarkParticipantAbandoned(tournamentID, userID int64) error
}

// Broadcaster delivers messages to subscribed connections. Delivery is
// best effort; a missed update is covered by the next state_update.
type Broadcaster interface {
	SendToUser(userID int64, payload interface{}) error
	BroadcastMatch(matchID int64, payload interface{})
	MatchMembers(matchID int64) []int64
	DisconnectUser(userID int64, reason string)
}

// Identity resolves display names and preferred languages for outgoing
// messages.
type Identity interface {
	DisplayName(userID int64) string
	Language(userID int64) string
}

// CompletionSignal is handed to the tournament progression controller
// when a bracket match finalizes.
type CompletionSignal struct {
	MatchID      int64
	TournamentID int64
	WinnerID     int64
	LastMatch    bool
}

// Config carries the engine timings. Tests shrink these to keep runs fast.
type Config struct {
	CountdownInterval time.Duration
	TickInterval      time.Duration
	WalkoverGrace     time.Duration
	RedirectURL       string
}

func DefaultConfig() Config {
	return Config{
		CountdownInterval: time.Second,
		TickInterval:      time.Second / domain.TickRate,
		WalkoverGrace:     10 * time.Second,
	}
}

// persistRetries bounds how often a failed durable write is retried
// before the failure is logged as terminal for that match.
const persistRetries = 3

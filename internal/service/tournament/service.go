package tournament

import (
	"context"
	"log"

	"github.com/pongarena/server/internal/domain"
	"github.com/pongarena/server/internal/service/i18n"
	"github.com/pongarena/server/internal/service/match"
)

// BracketStore is the durable bracket state the progression controller
// reads and advances.
type BracketStore interface {
	GetTournament(tournamentID int64) (*domain.Tournament, error)
	GetParticipants(tournamentID int64) ([]domain.TournamentParticipant, error)
	CreateBracketMatches(tournamentID int64, pairs [][2]int64) error
	NextPendingMatch(tournamentID int64) (*domain.TournamentMatch, error)
	MarkMatchOngoing(matchID int64) error
	CompleteTournament(tournamentID, winnerID int64) error
}

// Notifier pushes lobby and per-user tournament updates.
type Notifier interface {
	SendToUser(userID int64, payload interface{}) error
	BroadcastLobby(payload interface{})
	BroadcastTournament(tournamentID int64, payload interface{})
}

// Identity resolves display names and languages for notifications.
type Identity interface {
	DisplayName(userID int64) string
	Language(userID int64) string
}

// Service owns tournament progression: bracket creation, advancing to
// the next pending match after each completion, and closing the
// tournament once the bracket is exhausted.
type Service struct {
	store    BracketStore
	conns    Notifier
	identity Identity
}

func NewService(store BracketStore, conns Notifier, identity Identity) *Service {
	return &Service{store: store, conns: conns, identity: identity}
}

// Run consumes match completion signals until ctx is cancelled. Meant to
// run as a single goroutine so bracket advances stay ordered.
func (s *Service) Run(ctx context.Context, completions <-chan match.CompletionSignal) {
	log.Println("[TOURNAMENT] Progression listener started")
	for {
		select {
		case <-ctx.Done():
			log.Println("[TOURNAMENT] Progression listener stopped")
			return
		case signal, ok := <-completions:
			if !ok {
				return
			}
			s.handleCompletion(signal)
		}
	}
}

func (s *Service) handleCompletion(signal match.CompletionSignal) {
	log.Printf("[TOURNAMENT] Match %d of tournament %d completed, winner=%d last=%v",
		signal.MatchID, signal.TournamentID, signal.WinnerID, signal.LastMatch)

	if signal.LastMatch {
		if err := s.complete(signal.TournamentID); err != nil {
			log.Printf("[TOURNAMENT] Failed to complete tournament %d: %v", signal.TournamentID, err)
		}
		return
	}
	if err := s.advance(signal.TournamentID); err != nil {
		log.Printf("[TOURNAMENT] Failed to advance tournament %d: %v", signal.TournamentID, err)
	}
}

// Start builds the round-robin bracket and promotes its first match.
// Requires at least three registered participants.
func (s *Service) Start(tournamentID int64) error {
	participants, err := s.store.GetParticipants(tournamentID)
	if err != nil {
		return err
	}
	if len(participants) < 3 {
		return domain.ErrTooFewEntrants
	}

	pairs := domain.BuildRoundRobin(participants)
	if err := s.store.CreateBracketMatches(tournamentID, pairs); err != nil {
		return err
	}
	log.Printf("[TOURNAMENT] Tournament %d started with %d participants, %d matches",
		tournamentID, len(participants), len(pairs))

	return s.advance(tournamentID)
}

// advance promotes the lowest-id pending match to ongoing and tells both
// players their match is ready. An exhausted bracket falls through to
// completion.
func (s *Service) advance(tournamentID int64) error {
	next, err := s.store.NextPendingMatch(tournamentID)
	if err != nil {
		return err
	}
	if next == nil {
		return s.complete(tournamentID)
	}

	if err := s.store.MarkMatchOngoing(next.ID); err != nil {
		return err
	}
	log.Printf("[TOURNAMENT] Tournament %d: match %d promoted (%d vs %d)",
		tournamentID, next.ID, next.Player1ID, next.Player2ID)

	for _, playerID := range []int64{next.Player1ID, next.Player2ID} {
		lang := s.identity.Language(playerID)
		s.conns.SendToUser(playerID, domain.TournamentUpdateMessage{
			Type: domain.MsgTournamentUpdate,
			Tournament: domain.TournamentSnapshot{
				ID:          tournamentID,
				Status:      domain.TournamentOngoing,
				NextMatchID: &next.ID,
				Message:     i18n.Translate(lang, i18n.KeyNextMatchReady),
			},
		})
	}

	s.broadcastSnapshot(tournamentID)
	return nil
}

// complete closes the tournament, picking the winner on points with ties
// broken by registration order.
func (s *Service) complete(tournamentID int64) error {
	participants, err := s.store.GetParticipants(tournamentID)
	if err != nil {
		return err
	}
	winner, ok := domain.DetermineWinner(participants)
	if !ok {
		return domain.ErrTooFewEntrants
	}

	if err := s.store.CompleteTournament(tournamentID, winner.UserID); err != nil {
		return err
	}

	t, err := s.store.GetTournament(tournamentID)
	if err != nil {
		return err
	}
	log.Printf("[TOURNAMENT] Tournament %d completed, winner=%d (%d points)",
		tournamentID, winner.UserID, winner.Points)

	winnerName := s.identity.DisplayName(winner.UserID)
	for _, p := range participants {
		lang := s.identity.Language(p.UserID)
		s.conns.SendToUser(p.UserID, domain.TournamentUpdateMessage{
			Type: domain.MsgTournamentUpdate,
			Tournament: domain.TournamentSnapshot{
				ID:                tournamentID,
				Name:              t.Name,
				Status:            domain.TournamentCompleted,
				TotalParticipants: len(participants),
				WinnerID:          &winner.UserID,
				Message:           i18n.Translate(lang, i18n.KeyTournamentCompleted, t.Name, winnerName),
			},
		})
	}

	s.broadcastSnapshot(tournamentID)
	return nil
}

// broadcastSnapshot pushes the current lobby view to the tournament group
// and the global lobby.
func (s *Service) broadcastSnapshot(tournamentID int64) {
	t, err := s.store.GetTournament(tournamentID)
	if err != nil {
		log.Printf("[TOURNAMENT] Failed to load tournament %d for snapshot: %v", tournamentID, err)
		return
	}
	participants, err := s.store.GetParticipants(tournamentID)
	if err != nil {
		log.Printf("[TOURNAMENT] Failed to load participants for tournament %d: %v", tournamentID, err)
		return
	}

	snapshot := domain.TournamentSnapshot{
		ID:                t.ID,
		Name:              t.Name,
		Status:            t.Status,
		TotalParticipants: len(participants),
		WinnerID:          t.WinnerID,
	}
	update := domain.TournamentUpdateMessage{Type: domain.MsgTournamentUpdate, Tournament: snapshot}
	s.conns.BroadcastTournament(tournamentID, update)
	s.conns.BroadcastLobby(update)
}

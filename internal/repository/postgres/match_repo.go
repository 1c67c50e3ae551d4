package postgres

import (
	"database/sql"
	"fmt"

	"github.com/pongarena/server/internal/domain"
)

type MatchRepo struct {
	DB *sql.DB
}

func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{DB: db}
}

// SaveMatchResult writes the finalized outcome for a match. The update is
// idempotent against duplicate finalize calls: a match already marked
// completed is left untouched.
func (r *MatchRepo) SaveMatchResult(matchID, winnerID, loserID int64, scoreWinner, scoreLoser int, isWalkover bool) error {
	scoreP1, scoreP2 := scoreWinner, scoreLoser

	var p1 int64
	err := r.DB.QueryRow(`SELECT player1_id FROM matches WHERE id = $1;`, matchID).Scan(&p1)
	if err == sql.ErrNoRows {
		// Direct matches outside a tournament may have no prior row.
		_, err = r.DB.Exec(`
		INSERT INTO matches (id, player1_id, player2_id, score_player1, score_player2, winner_id, status, is_winner_by_wo, played_at)
		VALUES ($1, $2, $3, $4, $5, $2, 'completed', $6, now())
		ON CONFLICT (id) DO NOTHING;
		`, matchID, winnerID, loserID, scoreWinner, scoreLoser, isWalkover)
		if err != nil {
			return fmt.Errorf("failed to insert match result: %v", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up match %d: %v", matchID, err)
	}

	if p1 != winnerID {
		scoreP1, scoreP2 = scoreLoser, scoreWinner
	}

	_, err = r.DB.Exec(`
	UPDATE matches
	SET score_player1 = $2,
	    score_player2 = $3,
	    winner_id = $4,
	    status = 'completed',
	    is_winner_by_wo = $5,
	    played_at = now(),
	    last_updated = now()
	WHERE id = $1 AND status <> 'completed';
	`, matchID, scoreP1, scoreP2, winnerID, isWalkover)
	if err != nil {
		return fmt.Errorf("failed to save match result: %v", err)
	}
	return nil
}

// IncrementWinLoss bumps both players' counters in one transaction.
func (r *MatchRepo) IncrementWinLoss(winnerID, loserID int64) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE players SET wins = wins + 1 WHERE id = $1;`, winnerID); err != nil {
		return fmt.Errorf("failed to update winner stats: %v", err)
	}
	if _, err := tx.Exec(`UPDATE players SET losses = losses + 1 WHERE id = $1;`, loserID); err != nil {
		return fmt.Errorf("failed to update loser stats: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

// GetMatch returns the durable record for a match id.
func (r *MatchRepo) GetMatch(matchID int64) (*domain.TournamentMatch, error) {
	query := `
	SELECT id, tournament_id, player1_id, player2_id, score_player1, score_player2,
	       winner_id, status, is_winner_by_wo, last_match
	FROM matches
	WHERE id = $1;
	`

	var m domain.TournamentMatch
	var tournamentID, winnerID sql.NullInt64
	err := r.DB.QueryRow(query, matchID).Scan(
		&m.ID,
		&tournamentID,
		&m.Player1ID,
		&m.Player2ID,
		&m.ScorePlayer1,
		&m.ScorePlayer2,
		&winnerID,
		&m.Status,
		&m.IsWinnerByWO,
		&m.LastMatch,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match by ID: %v", err)
	}

	if tournamentID.Valid {
		id := tournamentID.Int64
		m.TournamentID = &id
	}
	if winnerID.Valid {
		id := winnerID.Int64
		m.WinnerID = &id
	}
	return &m, nil
}

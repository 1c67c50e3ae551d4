package postgres

import (
	"database/sql"
	"fmt"

	"github.com/pongarena/server/internal/domain"
)

type TournamentRepo struct {
	DB *sql.DB
}

func NewTournamentRepo(db *sql.DB) *TournamentRepo {
	return &TournamentRepo{DB: db}
}

func (r *TournamentRepo) GetTournament(tournamentID int64) (*domain.Tournament, error) {
	var t domain.Tournament
	var winnerID sql.NullInt64
	err := r.DB.QueryRow(`
	SELECT id, name, status, winner_id, created_at FROM tournaments WHERE id = $1;
	`, tournamentID).Scan(&t.ID, &t.Name, &t.Status, &winnerID, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %v", err)
	}
	if winnerID.Valid {
		id := winnerID.Int64
		t.WinnerID = &id
	}
	return &t, nil
}

// GetParticipants returns participants ordered by registration (id).
func (r *TournamentRepo) GetParticipants(tournamentID int64) ([]domain.TournamentParticipant, error) {
	rows, err := r.DB.Query(`
	SELECT id, user_id, alias, points, abandoned
	FROM tournament_participants
	WHERE tournament_id = $1
	ORDER BY id;
	`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %v", err)
	}
	defer rows.Close()

	var participants []domain.TournamentParticipant
	for rows.Next() {
		var p domain.TournamentParticipant
		if err := rows.Scan(&p.ID, &p.UserID, &p.Alias, &p.Points, &p.Abandoned); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %v", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// AwardTournamentPoints adds delta to the participant entry of userID.
func (r *TournamentRepo) AwardTournamentPoints(tournamentID, userID int64, delta int) error {
	_, err := r.DB.Exec(`
	UPDATE tournament_participants
	SET points = points + $3
	WHERE tournament_id = $1 AND user_id = $2;
	`, tournamentID, userID, delta)
	if err != nil {
		return fmt.Errorf("failed to award tournament points: %v", err)
	}
	return nil
}

// MarkParticipantAbandoned flags a participant who lost by walkover.
func (r *TournamentRepo) MarkParticipantAbandoned(tournamentID, userID int64) error {
	_, err := r.DB.Exec(`
	UPDATE tournament_participants
	SET abandoned = TRUE
	WHERE tournament_id = $1 AND user_id = $2;
	`, tournamentID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark participant abandoned: %v", err)
	}
	return nil
}

// CreateBracketMatches inserts one pending match per pair, flagging the
// final pair as the bracket's last match, and moves the tournament to
// ongoing. One transaction so a failed start leaves nothing behind.
func (r *TournamentRepo) CreateBracketMatches(tournamentID int64, pairs [][2]int64) error {
	if len(pairs) == 0 {
		return fmt.Errorf("no pairs to create for tournament %d", tournamentID)
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	for i, pair := range pairs {
		last := i == len(pairs)-1
		_, err := tx.Exec(`
		INSERT INTO matches (tournament_id, player1_id, player2_id, status, last_match)
		VALUES ($1, $2, $3, 'pending', $4);
		`, tournamentID, pair[0], pair[1], last)
		if err != nil {
			return fmt.Errorf("failed to insert bracket match: %v", err)
		}
	}

	if _, err := tx.Exec(`
	UPDATE tournaments SET status = 'ongoing', updated_at = now() WHERE id = $1;
	`, tournamentID); err != nil {
		return fmt.Errorf("failed to mark tournament ongoing: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

// NextPendingMatch returns the oldest pending match of the tournament,
// nil when the bracket is exhausted.
func (r *TournamentRepo) NextPendingMatch(tournamentID int64) (*domain.TournamentMatch, error) {
	query := `
	SELECT id, tournament_id, player1_id, player2_id, score_player1, score_player2,
	       winner_id, status, is_winner_by_wo, last_match
	FROM matches
	WHERE tournament_id = $1 AND status = 'pending'
	ORDER BY id
	LIMIT 1;
	`

	var m domain.TournamentMatch
	var tid, winnerID sql.NullInt64
	err := r.DB.QueryRow(query, tournamentID).Scan(
		&m.ID, &tid, &m.Player1ID, &m.Player2ID,
		&m.ScorePlayer1, &m.ScorePlayer2, &winnerID,
		&m.Status, &m.IsWinnerByWO, &m.LastMatch,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next pending match: %v", err)
	}

	if tid.Valid {
		id := tid.Int64
		m.TournamentID = &id
	}
	if winnerID.Valid {
		id := winnerID.Int64
		m.WinnerID = &id
	}
	return &m, nil
}

// MarkMatchOngoing promotes a pending match so its players can connect.
func (r *TournamentRepo) MarkMatchOngoing(matchID int64) error {
	_, err := r.DB.Exec(`
	UPDATE matches SET status = 'ongoing', last_updated = now()
	WHERE id = $1 AND status = 'pending';
	`, matchID)
	if err != nil {
		return fmt.Errorf("failed to mark match ongoing: %v", err)
	}
	return nil
}

// CompleteTournament persists the terminal status and winner.
func (r *TournamentRepo) CompleteTournament(tournamentID, winnerID int64) error {
	_, err := r.DB.Exec(`
	UPDATE tournaments
	SET status = 'completed', winner_id = $2, updated_at = now()
	WHERE id = $1 AND status <> 'completed';
	`, tournamentID, winnerID)
	if err != nil {
		return fmt.Errorf("failed to complete tournament: %v", err)
	}
	return nil
}

package postgres

import (
	"database/sql"
	"fmt"
)

type UserRepo struct {
	DB *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// GetDisplayName returns the user's display name, falling back to the
// username when no display name is set.
func (r *UserRepo) GetDisplayName(userID int64) (string, error) {
	var username, displayName string
	err := r.DB.QueryRow(`
	SELECT username, display_name FROM players WHERE id = $1;
	`, userID).Scan(&username, &displayName)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get display name: %v", err)
	}
	if displayName != "" {
		return displayName, nil
	}
	return username, nil
}

// GetLanguage returns the user's preferred language, empty when unset.
func (r *UserRepo) GetLanguage(userID int64) (string, error) {
	var language string
	err := r.DB.QueryRow(`
	SELECT language FROM players WHERE id = $1;
	`, userID).Scan(&language)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get language: %v", err)
	}
	return language, nil
}

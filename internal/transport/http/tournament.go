package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pongarena/server/internal/domain"
	"github.com/pongarena/server/internal/repository/postgres"
	"github.com/pongarena/server/internal/service/tournament"
)

type TournamentHandler struct {
	Service *tournament.Service
	Repo    *postgres.TournamentRepo
}

func NewTournamentHandler(service *tournament.Service, repo *postgres.TournamentRepo) *TournamentHandler {
	return &TournamentHandler{Service: service, Repo: repo}
}

type participantResponse struct {
	UserID    int64  `json:"user_id"`
	Alias     string `json:"alias"`
	Points    int    `json:"points"`
	Abandoned bool   `json:"abandoned"`
}

type tournamentResponse struct {
	ID           int64                 `json:"id"`
	Name         string                `json:"name"`
	Status       string                `json:"status"`
	WinnerID     *int64                `json:"winner_id,omitempty"`
	Participants []participantResponse `json:"participants"`
}

// GetTournament returns one tournament with its standings.
func (h *TournamentHandler) GetTournament(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tournament id"})
		return
	}

	t, err := h.Repo.GetTournament(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tournament"})
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tournament not found"})
		return
	}

	participants, err := h.Repo.GetParticipants(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load participants"})
		return
	}

	response := tournamentResponse{
		ID:           t.ID,
		Name:         t.Name,
		Status:       string(t.Status),
		WinnerID:     t.WinnerID,
		Participants: make([]participantResponse, 0, len(participants)),
	}
	for _, p := range participants {
		response.Participants = append(response.Participants, participantResponse{
			UserID:    p.UserID,
			Alias:     p.Alias,
			Points:    p.Points,
			Abandoned: p.Abandoned,
		})
	}

	c.JSON(http.StatusOK, response)
}

// StartTournament builds the bracket and promotes the first match.
func (h *TournamentHandler) StartTournament(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tournament id"})
		return
	}

	if err := h.Service.Start(id); err != nil {
		if errors.Is(err, domain.ErrTooFewEntrants) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start tournament"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

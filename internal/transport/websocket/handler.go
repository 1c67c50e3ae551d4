package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pongarena/server/internal/domain"
	"github.com/pongarena/server/internal/service/match"
	"github.com/pongarena/server/pkg/auth"
	"github.com/pongarena/server/pkg/uid"
)

const (
	readDeadline = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Handler manages WebSocket dependencies
type Handler struct {
	ConnManager *ConnectionManager
	Hub         *match.Hub
	Upgrader    websocket.Upgrader
}

// NewHandler creates a new WebSocket handler with dependencies
func NewHandler(cm *ConnectionManager, hub *match.Hub) *Handler {
	return &Handler{
		ConnManager: cm,
		Hub:         hub,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleGameWS upgrades a match connection: /ws/game/:match_id
func (h *Handler) HandleGameWS(c *gin.Context) {
	matchID, err := strconv.ParseInt(c.Param("match_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match id"})
		return
	}

	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	h.handleGameConnection(conn, matchID)
}

// HandleTournamentWS upgrades a lobby connection: /ws/tournament with an
// optional ?tournament_id for one bracket's updates.
func (h *Handler) HandleTournamentWS(c *gin.Context) {
	var tournamentID int64
	if raw := c.Query("tournament_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tournament id"})
			return
		}
		tournamentID = id
	}

	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	h.handleLobbyConnection(conn, tournamentID)
}

// awaitInit blocks for the first frame, which must be an init message
// carrying a valid token. Anything else closes the socket.
func (h *Handler) awaitInit(conn *websocket.Conn) (*auth.Claims, bool) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("[WS] Read error during init: %v", err)
		conn.Close()
		return nil, false
	}

	var message domain.ClientMessage
	if err := json.Unmarshal(data, &message); err != nil {
		log.Printf("[WS] Invalid JSON during init: %v", err)
		conn.Close()
		return nil, false
	}

	if message.Type != domain.MsgInit || message.Token == "" {
		log.Println("[WS] Missing initialization or token")
		conn.Close()
		return nil, false
	}

	claims, err := auth.ValidateToken(message.Token)
	if err != nil {
		log.Printf("[WS] Invalid token during init: %v", err)
		conn.WriteJSON(domain.ErrorMessage{Type: domain.MsgError, Message: "Invalid token"})
		conn.Close()
		return nil, false
	}
	return claims, true
}

func (h *Handler) startKeepalive(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for range ticker.C {
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}

// handleGameConnection manages the lifecycle of a single match connection
func (h *Handler) handleGameConnection(conn *websocket.Conn, matchID int64) {
	h.startKeepalive(conn)

	claims, ok := h.awaitInit(conn)
	if !ok {
		return
	}
	userID := claims.UserID
	connID := uid.GenerateConnID()
	log.Printf("[WS] Connection %s initialized for user %s (ID: %d), match %d", connID, claims.Username, userID, matchID)

	h.ConnManager.AddConnection(userID, conn)
	h.ConnManager.Subscribe(MatchGroup(matchID), userID)
	h.ConnManager.Subscribe(UserGroup(userID), userID)

	ctx := context.Background()
	if err := h.Hub.Join(ctx, matchID, userID); err != nil {
		log.Printf("[WS] Join refused for user %d on match %d: %v", userID, matchID, err)
		conn.WriteJSON(domain.ErrorMessage{Type: domain.MsgError, Message: err.Error()})
		h.ConnManager.RemoveConnectionIfMatching(userID, conn)
		return
	}

	// Group cleanup happens inside RemoveConnectionIfMatching so a stale
	// handler can never strip the subscriptions of a connection that
	// replaced it.
	defer func() {
		log.Printf("[WS] Connection %s closed for user %d on match %d", connID, userID, matchID)
		if h.ConnManager.IsCurrentConnection(userID, conn) {
			h.Hub.Leave(ctx, matchID, userID)
		}
		h.ConnManager.RemoveConnectionIfMatching(userID, conn)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] User %d disconnected unexpectedly: %v", userID, err)
			}
			break
		}

		var msg domain.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[WS] Invalid message format from user %d: %v", userID, err)
			continue
		}

		h.processGameMessage(ctx, matchID, userID, msg)
	}
}

// processGameMessage routes specific actions
func (h *Handler) processGameMessage(ctx context.Context, matchID, userID int64, msg domain.ClientMessage) {
	switch msg.Type {
	case domain.MsgPlayerMove:
		if err := h.Hub.PlayerMove(ctx, matchID, userID, msg.Direction); err != nil {
			h.ConnManager.SendToUser(userID, domain.ErrorMessage{Type: domain.MsgError, Message: err.Error()})
		}

	case domain.MsgPauseGame:
		if err := h.Hub.Pause(ctx, matchID); err != nil {
			h.ConnManager.SendToUser(userID, domain.ErrorMessage{Type: domain.MsgError, Message: err.Error()})
		}

	case domain.MsgResumeGame:
		if err := h.Hub.Resume(ctx, matchID); err != nil {
			h.ConnManager.SendToUser(userID, domain.ErrorMessage{Type: domain.MsgError, Message: err.Error()})
		}

	default:
		log.Printf("[WS] Unknown message type %q from user %d", msg.Type, userID)
	}
}

// handleLobbyConnection keeps a lobby socket subscribed to tournament
// updates until the client goes away. Inbound frames beyond init are
// ignored.
func (h *Handler) handleLobbyConnection(conn *websocket.Conn, tournamentID int64) {
	h.startKeepalive(conn)

	claims, ok := h.awaitInit(conn)
	if !ok {
		return
	}
	userID := claims.UserID
	log.Printf("[WS] Lobby connection for user %d (tournament %d)", userID, tournamentID)

	h.ConnManager.AddConnection(userID, conn)
	h.ConnManager.Subscribe(LobbyGroup, userID)
	h.ConnManager.Subscribe(UserGroup(userID), userID)
	if tournamentID != 0 {
		h.ConnManager.Subscribe(TournamentGroup(tournamentID), userID)
	}

	defer h.ConnManager.RemoveConnectionIfMatching(userID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

package websocket

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pongarena/server/internal/domain"
)

// Group names. Matches and the tournament lobby each get a fan-out group;
// every user additionally has a personal group for direct notifications.
func MatchGroup(matchID int64) string { return fmt.Sprintf("match_%d", matchID) }
func UserGroup(userID int64) string   { return fmt.Sprintf("user_%d", userID) }
func TournamentGroup(id int64) string { return fmt.Sprintf("tournament_%d", id) }

const LobbyGroup = "tournaments"

// ConnectionManager handles active WebSocket connections thread-safely
type ConnectionManager struct {
	connections map[int64]*websocket.Conn
	groups      map[string]map[int64]struct{}

	// writeMu ensures only one goroutine writes to a specific socket at a
	// time. conn.WriteJSON is not safe for concurrent use.
	writeMu map[int64]*sync.Mutex

	mu sync.RWMutex // Protects the maps themselves
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[int64]*websocket.Conn),
		groups:      make(map[string]map[int64]struct{}),
		writeMu:     make(map[int64]*sync.Mutex),
	}
}

// AddConnection registers a new connection and initializes its write lock
func (cm *ConnectionManager) AddConnection(userID int64, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	// Close old connection if it exists (single session per user)
	if oldConn, exists := cm.connections[userID]; exists {
		oldConn.Close()
	}

	cm.connections[userID] = conn
	cm.writeMu[userID] = &sync.Mutex{}
}

// RemoveConnection removes a user's connection, its write lock, and every
// group subscription it held.
func (cm *ConnectionManager) RemoveConnection(userID int64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn, exists := cm.connections[userID]; exists {
		conn.Close()
		delete(cm.connections, userID)
		delete(cm.writeMu, userID)
	}
	cm.dropFromGroupsLocked(userID)
}

// RemoveConnectionIfMatching avoids the race where cleanup of an OLD
// connection would otherwise close a NEW one that just replaced it.
func (cm *ConnectionManager) RemoveConnectionIfMatching(userID int64, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if currentConn, exists := cm.connections[userID]; exists && currentConn == conn {
		currentConn.Close()
		delete(cm.connections, userID)
		delete(cm.writeMu, userID)
		cm.dropFromGroupsLocked(userID)
	}
}

func (cm *ConnectionManager) dropFromGroupsLocked(userID int64) {
	for name, members := range cm.groups {
		delete(members, userID)
		if len(members) == 0 {
			delete(cm.groups, name)
		}
	}
}

func (cm *ConnectionManager) IsCurrentConnection(userID int64, conn *websocket.Conn) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	currentConn, exists := cm.connections[userID]
	return exists && currentConn == conn
}

// Subscribe adds userID to a named broadcast group.
func (cm *ConnectionManager) Subscribe(group string, userID int64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	members, ok := cm.groups[group]
	if !ok {
		members = make(map[int64]struct{})
		cm.groups[group] = members
	}
	members[userID] = struct{}{}
}

// Unsubscribe removes userID from a group. Always safe to call, even for
// users or groups that no longer exist.
func (cm *ConnectionManager) Unsubscribe(group string, userID int64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if members, ok := cm.groups[group]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(cm.groups, group)
		}
	}
}

// Members returns the user ids currently subscribed to a group.
func (cm *ConnectionManager) Members(group string) []int64 {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	members := cm.groups[group]
	ids := make([]int64, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// SendToUser sends a JSON message to a specific user. A disconnected user
// is not an error; delivery is best effort.
func (cm *ConnectionManager) SendToUser(userID int64, payload interface{}) error {
	cm.mu.RLock()
	conn, exists := cm.connections[userID]
	mu, muExists := cm.writeMu[userID]
	cm.mu.RUnlock()

	if !exists || !muExists {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(payload)
}

// Broadcast sends a message to every member of a group. Fire-and-forget,
// one goroutine per recipient so a slow socket cannot stall the rest.
func (cm *ConnectionManager) Broadcast(group string, payload interface{}) {
	for _, userID := range cm.Members(group) {
		go func(uid int64) {
			cm.SendToUser(uid, payload)
		}(userID)
	}
}

// BroadcastMatch fans a message out to every subscriber of a match group.
func (cm *ConnectionManager) BroadcastMatch(matchID int64, payload interface{}) {
	cm.Broadcast(MatchGroup(matchID), payload)
}

// MatchMembers returns the user ids subscribed to a match group.
func (cm *ConnectionManager) MatchMembers(matchID int64) []int64 {
	return cm.Members(MatchGroup(matchID))
}

// BroadcastLobby fans a message out to every tournament lobby subscriber.
func (cm *ConnectionManager) BroadcastLobby(payload interface{}) {
	cm.Broadcast(LobbyGroup, payload)
}

// BroadcastTournament fans a message out to one tournament's subscribers.
func (cm *ConnectionManager) BroadcastTournament(tournamentID int64, payload interface{}) {
	cm.Broadcast(TournamentGroup(tournamentID), payload)
}

// DisconnectUser sends a final error message and closes the socket.
func (cm *ConnectionManager) DisconnectUser(userID int64, reason string) {
	_ = cm.SendToUser(userID, domain.ErrorMessage{Type: domain.MsgError, Message: reason})
	cm.RemoveConnection(userID)
}

package match

import (
	"log"
	"sync"
)

// Hub owns one Room per active match id (the single mutation owner the
// state store relies on) and the dependencies every room shares.
type Hub struct {
	rooms map[int64]*Room
	mu    sync.RWMutex

	store       StateStore
	records     RecordStore
	tournaments TournamentRecords
	identity    Identity
	conns       Broadcaster
	completions chan<- CompletionSignal
	cfg         Config
}

func NewHub(store StateStore, records RecordStore, tournaments TournamentRecords, identity Identity, conns Broadcaster, completions chan<- CompletionSignal, cfg Config) *Hub {
	return &Hub{
		rooms:       make(map[int64]*Room),
		store:       store,
		records:     records,
		tournaments: tournaments,
		identity:    identity,
		conns:       conns,
		completions: completions,
		cfg:         cfg,
	}
}

// room returns the Room for matchID, creating it on first reference.
func (h *Hub) room(matchID int64) *Room {
	h.mu.RLock()
	room, exists := h.rooms[matchID]
	h.mu.RUnlock()
	if exists {
		return room
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if room, exists = h.rooms[matchID]; exists {
		return room
	}
	room = newRoom(matchID, h)
	h.rooms[matchID] = room
	return room
}

// lookupRoom returns an existing Room without creating one.
func (h *Hub) lookupRoom(matchID int64) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, exists := h.rooms[matchID]
	return room, exists
}

// roomForJoin returns the live Room for matchID with its mutex held. A
// room caught mid-finalization is dropped so the join restarts on a
// fresh owner instead of writing state nobody tracks.
func (h *Hub) roomForJoin(matchID int64) *Room {
	for {
		r := h.room(matchID)
		r.mu.Lock()
		if !r.finalized {
			return r
		}
		r.mu.Unlock()
		h.removeRoom(matchID, r)
	}
}

// removeRoom drops room from the map only while it still owns the
// match id, so a finalized room cannot evict its replacement.
func (h *Hub) removeRoom(matchID int64, room *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, exists := h.rooms[matchID]; exists && current == room {
		log.Printf("[MATCH] Removing room %d", matchID)
		delete(h.rooms, matchID)
	}
}

// ActiveRooms reports the currently tracked match ids.
func (h *Hub) ActiveRooms() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]int64, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	return ids
}

// HasRoom reports whether a match id currently has an in-process owner.
func (h *Hub) HasRoom(matchID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.rooms[matchID]
	return exists
}

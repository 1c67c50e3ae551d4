package cleanup

import (
	"context"
	"log"
	"time"
)

// StateScanner enumerates and deletes stored match states.
type StateScanner interface {
	ActiveMatchIDs(ctx context.Context) ([]int64, error)
	Delete(ctx context.Context, matchID int64) error
}

// RoomTracker reports which matches have an in-process owner.
type RoomTracker interface {
	HasRoom(matchID int64) bool
}

// Membership reports which users are subscribed to a match.
type Membership interface {
	MatchMembers(matchID int64) []int64
}

// Worker sweeps stored match states that lost their in-process owner,
// typically after a restart, and deletes the ones nobody reconnected to.
type Worker struct {
	states StateScanner
	rooms  RoomTracker
	conns  Membership
}

func NewWorker(states StateScanner, rooms RoomTracker, conns Membership) *Worker {
	return &Worker{states: states, rooms: rooms, conns: conns}
}

// Start initiates the background ticker
func (w *Worker) Start() {
	go w.runCleanup()

	ticker := time.NewTicker(10 * time.Minute)
	go func() {
		for range ticker.C {
			w.runCleanup()
		}
	}()
	log.Println("[CLEANUP] Background worker started")
}

// runCleanup executes the actual cleanup logic
func (w *Worker) runCleanup() {
	log.Println("[CLEANUP] Starting scheduled cleanup task...")
	ctx := context.Background()

	ids, err := w.states.ActiveMatchIDs(ctx)
	if err != nil {
		log.Printf("[CLEANUP] Error scanning match states: %v", err)
		return
	}

	removed := 0
	for _, matchID := range ids {
		if w.rooms.HasRoom(matchID) {
			continue
		}
		if len(w.conns.MatchMembers(matchID)) > 0 {
			continue
		}
		if err := w.states.Delete(ctx, matchID); err != nil {
			log.Printf("[CLEANUP] Error deleting orphaned state for match %d: %v", matchID, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("[CLEANUP] Removed %d orphaned match states", removed)
	}
}

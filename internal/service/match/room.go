package match

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pongarena/server/internal/domain"
	"github.com/pongarena/server/internal/service/i18n"
)

// Room is the single mutation owner for one match id. Every operation
// takes the room mutex, performs the read-modify-write against the state
// store, and releases before any broadcast goes out.
type Room struct {
	matchID int64
	hub     *Hub

	mu          sync.Mutex
	countdownOn bool
	loopStop    chan struct{}
	graceTimer  *time.Timer
	finalized   bool
}

func newRoom(matchID int64, hub *Hub) *Room {
	return &Room{matchID: matchID, hub: hub}
}

// Join registers playerID in the match, restoring their previous side on
// reconnect. The third distinct player is refused with ErrRoomFull.
func (h *Hub) Join(ctx context.Context, matchID, playerID int64) error {
	r := h.roomForJoin(matchID)

	state, err := r.loadOrCreate(ctx)
	if err != nil {
		r.mu.Unlock()
		r.discard(err)
		return domain.ErrMatchNotFound
	}

	side, reconnect := state.SideOf(playerID)
	if !reconnect {
		side, err = state.AssignSide(playerID)
		if err != nil {
			r.mu.Unlock()
			return err
		}
	}

	// A join that restores the full roster cancels a pending walkover.
	resumed := false
	if r.graceTimer != nil && len(state.Players) == 2 {
		r.graceTimer.Stop()
		r.graceTimer = nil
		state.Status = domain.StatusOngoing
		resumed = true
		log.Printf("[MATCH] Walkover cancelled for match %d, player %d rejoined", matchID, playerID)
	}

	startCountdown := len(state.Players) == 2 && state.Status == domain.StatusPending && !r.countdownOn
	if startCountdown {
		r.countdownOn = true
	}

	if err := h.store.Set(ctx, matchID, state); err != nil {
		r.mu.Unlock()
		r.discard(err)
		return domain.ErrMatchNotFound
	}
	snapshot := *state
	r.mu.Unlock()

	log.Printf("[MATCH] Player %d joined match %d as %s (reconnect=%v)", playerID, matchID, side, reconnect)

	h.conns.SendToUser(playerID, domain.AssignedSideMessage{Type: domain.MsgAssignedSide, Side: side, PlayerID: playerID})
	h.conns.BroadcastMatch(matchID, domain.PlayerJoinMessage{Type: domain.MsgPlayerJoin, PlayerID: playerID, Side: side})
	h.conns.BroadcastMatch(matchID, domain.StateUpdateMessage{Type: domain.MsgStateUpdate, State: &snapshot})

	if resumed {
		r.broadcastNotice(domain.MsgResumed, i18n.KeyResumed)
	}
	if startCountdown {
		go r.runCountdown()
	}
	return nil
}

// Leave removes playerID from the roster. The last ongoing opponent gets
// a paused match plus a cancelable walkover grace timer; an empty roster
// deletes the match state entirely.
func (h *Hub) Leave(ctx context.Context, matchID, playerID int64) {
	r, exists := h.lookupRoom(matchID)
	if !exists {
		return
	}

	r.mu.Lock()
	if r.finalized {
		r.mu.Unlock()
		return
	}

	state, found, err := h.store.Get(ctx, matchID)
	if err != nil {
		r.mu.Unlock()
		r.discard(err)
		return
	}
	if !found {
		r.mu.Unlock()
		h.removeRoom(matchID, r)
		return
	}

	state.RemovePlayer(playerID)
	remaining := len(state.Players)

	walkoverPending := false
	switch {
	case remaining == 0:
		log.Printf("[MATCH] Match %d empty, deleting state", matchID)
		if err := h.store.Delete(ctx, matchID); err != nil {
			log.Printf("[MATCH] Failed to delete state for match %d: %v", matchID, err)
		}
		r.stopLoopLocked()
		r.cancelGraceLocked()
		r.mu.Unlock()
		h.removeRoom(matchID, r)
		return

	case remaining == 1 && state.Status == domain.StatusOngoing:
		state.Status = domain.StatusPaused
		walkoverPending = true
		if err := h.store.Set(ctx, matchID, state); err != nil {
			r.mu.Unlock()
			r.discard(err)
			return
		}
		r.startGraceLocked()

	default:
		if err := h.store.Set(ctx, matchID, state); err != nil {
			r.mu.Unlock()
			r.discard(err)
			return
		}
	}
	r.mu.Unlock()

	log.Printf("[MATCH] Player %d left match %d (%d remaining)", playerID, matchID, remaining)
	h.conns.BroadcastMatch(matchID, domain.PlayerDisconnectMessage{Type: domain.MsgPlayerDisconnect, PlayerID: playerID})
	if walkoverPending {
		r.broadcastNotice(domain.MsgPaused, i18n.KeyPaused)
	}
}

// PlayerMove applies one paddle step for playerID, clamped to the field.
// Rejected while the match is not ongoing.
func (h *Hub) PlayerMove(ctx context.Context, matchID, playerID int64, direction string) error {
	r, exists := h.lookupRoom(matchID)
	if !exists {
		return domain.ErrMatchNotFound
	}

	r.mu.Lock()
	state, found, err := h.store.Get(ctx, matchID)
	if err != nil {
		r.mu.Unlock()
		r.discard(err)
		return domain.ErrMatchNotFound
	}
	if !found {
		r.mu.Unlock()
		return domain.ErrMatchNotFound
	}

	if err := state.MovePaddle(playerID, direction); err != nil {
		r.mu.Unlock()
		return err
	}
	if err := h.store.Set(ctx, matchID, state); err != nil {
		r.mu.Unlock()
		r.discard(err)
		return domain.ErrMatchNotFound
	}
	snapshot := *state
	r.mu.Unlock()

	h.conns.BroadcastMatch(matchID, domain.StateUpdateMessage{Type: domain.MsgStateUpdate, State: &snapshot})
	return nil
}

// Pause transitions ongoing -> paused. Anything else is rejected as a
// no-op so clients get a notification rather than a dropped connection.
func (h *Hub) Pause(ctx context.Context, matchID int64) error {
	r, exists := h.lookupRoom(matchID)
	if !exists {
		return domain.ErrMatchNotFound
	}

	r.mu.Lock()
	state, found, err := h.store.Get(ctx, matchID)
	if err != nil {
		r.mu.Unlock()
		r.discard(err)
		return domain.ErrMatchNotFound
	}
	if !found {
		r.mu.Unlock()
		return domain.ErrMatchNotFound
	}

	if state.Status != domain.StatusOngoing {
		r.mu.Unlock()
		return domain.ErrIllegalTransition
	}

	state.Status = domain.StatusPaused
	if err := h.store.Set(ctx, matchID, state); err != nil {
		r.mu.Unlock()
		r.discard(err)
		return domain.ErrMatchNotFound
	}
	r.mu.Unlock()

	r.broadcastNotice(domain.MsgPaused, i18n.KeyPaused)
	return nil
}

// Resume transitions paused -> ongoing. A match waiting out a walkover
// grace period can only resume through the departed player rejoining.
func (h *Hub) Resume(ctx context.Context, matchID int64) error {
	r, exists := h.lookupRoom(matchID)
	if !exists {
		return domain.ErrMatchNotFound
	}

	r.mu.Lock()
	state, found, err := h.store.Get(ctx, matchID)
	if err != nil {
		r.mu.Unlock()
		r.discard(err)
		return domain.ErrMatchNotFound
	}
	if !found {
		r.mu.Unlock()
		return domain.ErrMatchNotFound
	}

	if state.Status != domain.StatusPaused || len(state.Players) < 2 || r.graceTimer != nil {
		r.mu.Unlock()
		return domain.ErrIllegalTransition
	}

	state.Status = domain.StatusOngoing
	if err := h.store.Set(ctx, matchID, state); err != nil {
		r.mu.Unlock()
		r.discard(err)
		return domain.ErrMatchNotFound
	}
	r.mu.Unlock()

	r.broadcastNotice(domain.MsgResumed, i18n.KeyResumed)
	return nil
}

// loadOrCreate reads the state for the room's match id, creating the
// initial state on first reference. A match created from a durable
// bracket record inherits its tournament id.
func (r *Room) loadOrCreate(ctx context.Context) (*domain.MatchState, error) {
	state, found, err := r.hub.store.Get(ctx, r.matchID)
	if err != nil {
		return nil, err
	}
	if found {
		return state, nil
	}

	state = domain.NewMatchState()
	if record, err := r.hub.records.GetMatch(r.matchID); err == nil && record != nil {
		state.TournamentID = record.TournamentID
	}
	return state, nil
}

// startGraceLocked arms the walkover timer. Caller holds r.mu.
func (r *Room) startGraceLocked() {
	r.cancelGraceLocked()
	grace := r.hub.cfg.WalkoverGrace
	log.Printf("[MATCH] Walkover pending for match %d, grace %s", r.matchID, grace)
	r.graceTimer = time.AfterFunc(grace, func() {
		r.hub.FinalizeByWalkover(context.Background(), r.matchID)
	})
}

func (r *Room) cancelGraceLocked() {
	if r.graceTimer != nil {
		r.graceTimer.Stop()
		r.graceTimer = nil
	}
}

func (r *Room) stopLoopLocked() {
	if r.loopStop != nil {
		close(r.loopStop)
		r.loopStop = nil
	}
}

// broadcastNotice sends a localized notice to every match subscriber.
func (r *Room) broadcastNotice(msgType, key string) {
	for _, member := range r.hub.conns.MatchMembers(r.matchID) {
		lang := r.hub.identity.Language(member)
		r.hub.conns.SendToUser(member, domain.NoticeMessage{
			Type:    msgType,
			Message: i18n.Translate(lang, key),
		})
	}
}

// discard handles unreadable or corrupt state: the match is dropped and
// its connections closed, never propagated as a crash.
func (r *Room) discard(cause error) {
	log.Printf("[MATCH] Discarding match %d after state error: %v", r.matchID, cause)

	r.mu.Lock()
	r.finalized = true
	r.stopLoopLocked()
	r.cancelGraceLocked()
	r.mu.Unlock()

	if err := r.hub.store.Delete(context.Background(), r.matchID); err != nil {
		log.Printf("[MATCH] Failed to delete state for match %d: %v", r.matchID, err)
	}
	for _, member := range r.hub.conns.MatchMembers(r.matchID) {
		r.hub.conns.DisconnectUser(member, "match unavailable")
	}
	r.hub.removeRoom(r.matchID, r)
}

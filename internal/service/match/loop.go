package match

import (
	"context"
	"log"
	"time"

	"github.com/pongarena/server/internal/domain"
	"github.com/pongarena/server/internal/service/i18n"
)

// runCountdown drives the pre-game countdown and, if both players are
// still present at zero, serves the ball and starts the tick loop.
func (r *Room) runCountdown() {
	ctx := context.Background()

	for n := domain.CountdownSteps; n >= 1; n-- {
		for _, member := range r.hub.conns.MatchMembers(r.matchID) {
			lang := r.hub.identity.Language(member)
			r.hub.conns.SendToUser(member, domain.CountdownMessage{
				Type:    domain.MsgCountdown,
				Message: i18n.Translate(lang, i18n.KeyCountdown, n),
			})
		}
		time.Sleep(r.hub.cfg.CountdownInterval)
	}

	r.mu.Lock()
	r.countdownOn = false

	state, found, err := r.hub.store.Get(ctx, r.matchID)
	if err != nil {
		r.mu.Unlock()
		r.discard(err)
		return
	}
	// A departure during the countdown aborts the start; the match stays
	// pending until the roster fills again.
	if !found || len(state.Players) < 2 || state.Status != domain.StatusPending {
		r.mu.Unlock()
		return
	}

	state.Status = domain.StatusOngoing
	state.Serve(domain.SideLeft)
	if err := r.hub.store.Set(ctx, r.matchID, state); err != nil {
		r.mu.Unlock()
		r.discard(err)
		return
	}

	if r.loopStop == nil {
		r.loopStop = make(chan struct{})
		go r.runLoop(r.loopStop)
	}
	snapshot := *state
	r.mu.Unlock()

	log.Printf("[MATCH] Match %d started", r.matchID)
	r.hub.conns.BroadcastMatch(r.matchID, domain.GameStartMessage{Type: domain.MsgGameStart})
	r.hub.conns.BroadcastMatch(r.matchID, domain.StateUpdateMessage{Type: domain.MsgStateUpdate, State: &snapshot})
}

// runLoop is the authoritative physics loop. Each tick re-reads the
// stored state so paddle moves applied between ticks are never lost.
func (r *Room) runLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(r.hub.cfg.TickInterval)
	defer ticker.Stop()
	ctx := context.Background()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		r.mu.Lock()
		if r.finalized {
			r.mu.Unlock()
			return
		}

		state, found, err := r.hub.store.Get(ctx, r.matchID)
		if err != nil {
			r.mu.Unlock()
			r.discard(err)
			return
		}
		if !found {
			r.loopStop = nil
			r.mu.Unlock()
			return
		}
		if len(state.Players) == 0 {
			r.loopStop = nil
			if err := r.hub.store.Delete(ctx, r.matchID); err != nil {
				log.Printf("[MATCH] Failed to delete state for match %d: %v", r.matchID, err)
			}
			r.mu.Unlock()
			r.hub.removeRoom(r.matchID, r)
			return
		}
		if state.Status != domain.StatusOngoing {
			r.mu.Unlock()
			continue
		}
		// Partial roster with an ongoing status: the departure was never
		// observed by Leave, so stop simulating.
		if len(state.Players) < 2 {
			state.Status = domain.StatusPaused
			if err := r.hub.store.Set(ctx, r.matchID, state); err != nil {
				r.mu.Unlock()
				r.discard(err)
				return
			}
			r.mu.Unlock()
			r.broadcastNotice(domain.MsgPaused, i18n.KeyPaused)
			continue
		}

		state.StepBall()
		if err := r.hub.store.Set(ctx, r.matchID, state); err != nil {
			r.mu.Unlock()
			r.discard(err)
			return
		}
		reached := state.ReachedThreshold()
		snapshot := *state
		r.mu.Unlock()

		r.hub.conns.BroadcastMatch(r.matchID, domain.StateUpdateMessage{Type: domain.MsgStateUpdate, State: &snapshot})

		if reached {
			r.hub.FinalizeByPoints(ctx, r.matchID)
			return
		}
	}
}

// FinalizeByPoints completes a match whose leading side reached the score
// threshold. Safe to call more than once; later calls are no-ops.
func (h *Hub) FinalizeByPoints(ctx context.Context, matchID int64) {
	h.finalize(ctx, matchID, false)
}

// FinalizeByWalkover completes a match abandoned past the grace period,
// awarding the remaining player a nominal 1-0 win.
func (h *Hub) FinalizeByWalkover(ctx context.Context, matchID int64) {
	h.finalize(ctx, matchID, true)
}

func (h *Hub) finalize(ctx context.Context, matchID int64, walkover bool) {
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
		r.finalized = true
		r.stopLoopLocked()
		r.cancelGraceLocked()
		r.mu.Unlock()
		h.removeRoom(matchID, r)
		return
	}

	var winnerID, loserID int64
	var winnerScore, loserScore int
	if walkover {
		// The grace timer lost a race with a rejoin.
		if len(state.Players) != 1 {
			r.mu.Unlock()
			return
		}
		for id := range state.Players {
			winnerID = id
		}
		opponent, ok := state.OpponentOf(winnerID)
		if !ok {
			log.Printf("[MATCH] Match %d has no opponent on record for walkover, discarding", matchID)
			r.mu.Unlock()
			r.discard(domain.ErrMatchNotFound)
			return
		}
		loserID = opponent
		winnerScore, loserScore = 1, 0
	} else {
		winSide := state.LeadingSide()
		winnerID, _ = state.PlayerOnSide(winSide)
		loserID, _ = state.OpponentOf(winnerID)
		if winSide == domain.SideLeft {
			winnerScore, loserScore = state.Scores.Left, state.Scores.Right
		} else {
			winnerScore, loserScore = state.Scores.Right, state.Scores.Left
		}
	}

	tournamentID := state.TournamentID
	r.finalized = true
	r.stopLoopLocked()
	r.cancelGraceLocked()

	if err := h.store.Delete(ctx, matchID); err != nil {
		log.Printf("[MATCH] Failed to delete state for match %d: %v", matchID, err)
	}
	r.mu.Unlock()

	log.Printf("[MATCH] Match %d finished: winner=%d loser=%d %d-%d walkover=%v",
		matchID, winnerID, loserID, winnerScore, loserScore, walkover)

	h.persistResult(matchID, winnerID, loserID, winnerScore, loserScore, walkover, tournamentID)
	h.broadcastResult(matchID, winnerID, loserID, walkover, tournamentID)
	h.signalCompletion(matchID, winnerID, tournamentID)
	h.removeRoom(matchID, r)
}

// persistResult writes the durable outcome with bounded retries. A
// terminal persistence failure is logged and the result still reaches the
// players; the record can be reconciled offline.
func (h *Hub) persistResult(matchID, winnerID, loserID int64, winnerScore, loserScore int, walkover bool, tournamentID *int64) {
	save := func() error {
		return h.records.SaveMatchResult(matchID, winnerID, loserID, winnerScore, loserScore, walkover)
	}
	if err := withRetries(save); err != nil {
		log.Printf("[MATCH] Failed to persist result for match %d: %v", matchID, err)
		return
	}

	if err := withRetries(func() error { return h.records.IncrementWinLoss(winnerID, loserID) }); err != nil {
		log.Printf("[MATCH] Failed to update win/loss for match %d: %v", matchID, err)
	}

	if tournamentID != nil {
		award := func() error {
			return h.tournaments.AwardTournamentPoints(*tournamentID, winnerID, domain.TournamentWinPoints)
		}
		if err := withRetries(award); err != nil {
			log.Printf("[MATCH] Failed to award tournament points for match %d: %v", matchID, err)
		}
		if walkover {
			abandon := func() error {
				return h.tournaments.MarkParticipantAbandoned(*tournamentID, loserID)
			}
			if err := withRetries(abandon); err != nil {
				log.Printf("[MATCH] Failed to flag abandonment for match %d: %v", matchID, err)
			}
		}
	}
}

func withRetries(op func() error) error {
	var err error
	for attempt := 1; attempt <= persistRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return err
}

// broadcastResult delivers the localized final message to every match
// subscriber, in each recipient's own language.
func (h *Hub) broadcastResult(matchID, winnerID, loserID int64, walkover bool, tournamentID *int64) {
	winnerName := h.identity.DisplayName(winnerID)
	loserName := h.identity.DisplayName(loserID)

	msgType := domain.MsgMatchFinished
	key := i18n.KeyMatchFinished
	if walkover {
		msgType = domain.MsgWalkover
		key = i18n.KeyWalkover
	}

	for _, member := range h.conns.MatchMembers(matchID) {
		lang := h.identity.Language(member)
		h.conns.SendToUser(member, domain.MatchResultMessage{
			Type:         msgType,
			Winner:       winnerName,
			Loser:        loserName,
			TournamentID: tournamentID,
			RedirectURL:  h.cfg.RedirectURL,
			FinalAlert:   i18n.Translate(lang, key, winnerName, loserName),
		})
	}
}

// signalCompletion hands a tournament match result to the progression
// listener. Direct matches produce no signal.
func (h *Hub) signalCompletion(matchID, winnerID int64, tournamentID *int64) {
	if tournamentID == nil || h.completions == nil {
		return
	}

	last := false
	if record, err := h.records.GetMatch(matchID); err == nil && record != nil {
		last = record.LastMatch
	}

	select {
	case h.completions <- CompletionSignal{
		MatchID:      matchID,
		TournamentID: *tournamentID,
		WinnerID:     winnerID,
		LastMatch:    last,
	}:
	default:
		log.Printf("[MATCH] Completion channel full, dropping signal for match %d", matchID)
	}
}

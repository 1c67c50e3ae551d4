package match

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pongarena/server/internal/domain"
)

// memStore is an in-memory StateStore. Values round-trip through JSON so
// tests see the same copy semantics as the real store.
type memStore struct {
	mu     sync.Mutex
	states map[int64][]byte
}

func newMemStore() *memStore {
	return &memStore{states: make(map[int64][]byte)}
}

func (m *memStore) Get(_ context.Context, matchID int64) (*domain.MatchState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.states[matchID]
	if !ok {
		return nil, false, nil
	}
	var state domain.MatchState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, false, err
	}
	return &state, true, nil
}

func (m *memStore) Set(_ context.Context, matchID int64, state *domain.MatchState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[matchID] = raw
	return nil
}

func (m *memStore) Delete(_ context.Context, matchID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, matchID)
	return nil
}

func (m *memStore) has(matchID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.states[matchID]
	return ok
}

type savedResult struct {
	matchID, winnerID, loserID int64
	scoreWinner, scoreLoser    int
	isWalkover                 bool
}

type memRecords struct {
	mu        sync.Mutex
	results   []savedResult
	matches   map[int64]*domain.TournamentMatch
	awards    []int64
	abandoned []int64
}

func newMemRecords() *memRecords {
	return &memRecords{matches: make(map[int64]*domain.TournamentMatch)}
}

func (m *memRecords) SaveMatchResult(matchID, winnerID, loserID int64, scoreWinner, scoreLoser int, isWalkover bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, savedResult{matchID, winnerID, loserID, scoreWinner, scoreLoser, isWalkover})
	return nil
}

func (m *memRecords) IncrementWinLoss(winnerID, loserID int64) error { return nil }

func (m *memRecords) GetMatch(matchID int64) (*domain.TournamentMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matches[matchID], nil
}

func (m *memRecords) AwardTournamentPoints(tournamentID, userID int64, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.awards = append(m.awards, userID)
	return nil
}

func (m *memRecords) MarkParticipantAbandoned(tournamentID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abandoned = append(m.abandoned, userID)
	return nil
}

func (m *memRecords) savedResults() []savedResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]savedResult(nil), m.results...)
}

// memConns records everything a real ConnectionManager would deliver.
type memConns struct {
	mu      sync.Mutex
	members map[int64][]int64
	sent    map[int64][]interface{}
	dropped []int64
}

func newMemConns(matchID int64, members ...int64) *memConns {
	return &memConns{
		members: map[int64][]int64{matchID: members},
		sent:    make(map[int64][]interface{}),
	}
}

func (m *memConns) SendToUser(userID int64, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[userID] = append(m.sent[userID], payload)
	return nil
}

func (m *memConns) BroadcastMatch(matchID int64, payload interface{}) {
	m.mu.Lock()
	members := append([]int64(nil), m.members[matchID]...)
	m.mu.Unlock()
	for _, userID := range members {
		m.SendToUser(userID, payload)
	}
}

func (m *memConns) MatchMembers(matchID int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.members[matchID]...)
}

func (m *memConns) DisconnectUser(userID int64, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, userID)
}

func (m *memConns) messagesOfType(userID int64, msgType string) []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []interface{}
	for _, payload := range m.sent[userID] {
		if typeOf(payload) == msgType {
			out = append(out, payload)
		}
	}
	return out
}

func typeOf(payload interface{}) string {
	switch msg := payload.(type) {
	case domain.AssignedSideMessage:
		return msg.Type
	case domain.StateUpdateMessage:
		return msg.Type
	case domain.CountdownMessage:
		return msg.Type
	case domain.GameStartMessage:
		return msg.Type
	case domain.NoticeMessage:
		return msg.Type
	case domain.PlayerJoinMessage:
		return msg.Type
	case domain.PlayerDisconnectMessage:
		return msg.Type
	case domain.MatchResultMessage:
		return msg.Type
	case domain.ErrorMessage:
		return msg.Type
	default:
		return ""
	}
}

type fakeIdentity struct{}

func (fakeIdentity) DisplayName(userID int64) string { return fmt.Sprintf("player%d", userID) }
func (fakeIdentity) Language(userID int64) string    { return "en" }

func testConfig() Config {
	return Config{
		CountdownInterval: time.Millisecond,
		TickInterval:      2 * time.Millisecond,
		WalkoverGrace:     40 * time.Millisecond,
		RedirectURL:       "/tournaments",
	}
}

func testHub(matchID int64) (*Hub, *memStore, *memRecords, *memConns, chan CompletionSignal) {
	store := newMemStore()
	records := newMemRecords()
	conns := newMemConns(matchID, 1, 2)
	completions := make(chan CompletionSignal, 4)
	hub := NewHub(store, records, records, fakeIdentity{}, conns, completions, testConfig())
	return hub, store, records, conns, completions
}

func stateOf(t *testing.T, store *memStore, matchID int64) *domain.MatchState {
	t.Helper()
	state, found, err := store.Get(context.Background(), matchID)
	require.NoError(t, err)
	require.True(t, found)
	return state
}

func TestJoinAssignsSidesAndRefusesThird(t *testing.T) {
	hub, store, _, conns, _ := testHub(7)
	ctx := context.Background()

	require.NoError(t, hub.Join(ctx, 7, 1))
	state := stateOf(t, store, 7)
	assert.Equal(t, domain.StatusPending, state.Status)

	require.NoError(t, hub.Join(ctx, 7, 2))
	err := hub.Join(ctx, 7, 3)
	assert.ErrorIs(t, err, domain.ErrRoomFull)

	state = stateOf(t, store, 7)
	assert.Equal(t, domain.SideLeft, state.Players[1])
	assert.Equal(t, domain.SideRight, state.Players[2])

	assigned := conns.messagesOfType(1, domain.MsgAssignedSide)
	require.NotEmpty(t, assigned)
	assert.Equal(t, domain.SideLeft, assigned[0].(domain.AssignedSideMessage).Side)
}

func TestSecondJoinStartsCountdownAndGame(t *testing.T) {
	hub, store, _, conns, _ := testHub(7)
	ctx := context.Background()

	require.NoError(t, hub.Join(ctx, 7, 1))
	require.NoError(t, hub.Join(ctx, 7, 2))

	require.Eventually(t, func() bool {
		state, found, _ := store.Get(ctx, 7)
		return found && state.Status == domain.StatusOngoing
	}, time.Second, time.Millisecond, "countdown should flip the match to ongoing")

	assert.Len(t, conns.messagesOfType(1, domain.MsgCountdown), domain.CountdownSteps)
	assert.NotEmpty(t, conns.messagesOfType(2, domain.MsgGameStart))

	state := stateOf(t, store, 7)
	assert.NotZero(t, state.Ball.SpeedX, "ball must be served when the game starts")
}

func TestReconnectRestoresSide(t *testing.T) {
	hub, store, _, _, _ := testHub(7)
	ctx := context.Background()

	require.NoError(t, hub.Join(ctx, 7, 1))
	require.NoError(t, hub.Join(ctx, 7, 2))
	require.Eventually(t, func() bool {
		state, found, _ := store.Get(ctx, 7)
		return found && state.Status == domain.StatusOngoing
	}, time.Second, time.Millisecond)

	hub.Leave(ctx, 7, 1)
	require.NoError(t, hub.Join(ctx, 7, 1))

	state := stateOf(t, store, 7)
	assert.Equal(t, domain.SideLeft, state.Players[1])
	assert.Equal(t, []int64{1, 2}, state.InitialPlayers)
	assert.Equal(t, domain.StatusOngoing, state.Status, "rejoin within grace resumes the match")
}

func TestLeaveDuringGamePausesThenWalkover(t *testing.T) {
	hub, store, records, conns, _ := testHub(7)
	ctx := context.Background()

	require.NoError(t, hub.Join(ctx, 7, 1))
	require.NoError(t, hub.Join(ctx, 7, 2))
	require.Eventually(t, func() bool {
		state, found, _ := store.Get(ctx, 7)
		return found && state.Status == domain.StatusOngoing
	}, time.Second, time.Millisecond)

	hub.Leave(ctx, 7, 2)
	state := stateOf(t, store, 7)
	assert.Equal(t, domain.StatusPaused, state.Status)

	require.Eventually(t, func() bool {
		return len(records.savedResults()) == 1
	}, time.Second, time.Millisecond, "walkover should finalize after the grace period")

	result := records.savedResults()[0]
	assert.Equal(t, int64(1), result.winnerID)
	assert.Equal(t, int64(2), result.loserID)
	assert.Equal(t, 1, result.scoreWinner)
	assert.Equal(t, 0, result.scoreLoser)
	assert.True(t, result.isWalkover)

	assert.False(t, store.has(7), "state must be deleted on finalization")
	assert.False(t, hub.HasRoom(7))

	finals := conns.messagesOfType(1, domain.MsgWalkover)
	require.NotEmpty(t, finals)
	msg := finals[0].(domain.MatchResultMessage)
	assert.Equal(t, "player1", msg.Winner)
	assert.Equal(t, "player2", msg.Loser)
	assert.Contains(t, msg.FinalAlert, "player1")
}

func TestRejoinCancelsWalkover(t *testing.T) {
	hub, store, records, _, _ := testHub(7)
	ctx := context.Background()

	require.NoError(t, hub.Join(ctx, 7, 1))
	require.NoError(t, hub.Join(ctx, 7, 2))
	require.Eventually(t, func() bool {
		state, found, _ := store.Get(ctx, 7)
		return found && state.Status == domain.StatusOngoing
	}, time.Second, time.Millisecond)

	hub.Leave(ctx, 7, 2)
	require.NoError(t, hub.Join(ctx, 7, 2))

	time.Sleep(3 * testConfig().WalkoverGrace)
	assert.Empty(t, records.savedResults(), "no walkover after the player came back")
	assert.True(t, store.has(7))
}

func TestLastLeaveDeletesMatch(t *testing.T) {
	hub, store, _, _, _ := testHub(7)
	ctx := context.Background()

	require.NoError(t, hub.Join(ctx, 7, 1))
	hub.Leave(ctx, 7, 1)

	assert.False(t, store.has(7))
	assert.False(t, hub.HasRoom(7))
}

func TestPlayerMoveOnlyWhileOngoing(t *testing.T) {
	hub, store, _, _, _ := testHub(7)
	ctx := context.Background()

	require.NoError(t, hub.Join(ctx, 7, 1))
	err := hub.PlayerMove(ctx, 7, 1, "up")
	assert.ErrorIs(t, err, domain.ErrMatchNotOngoing)

	require.NoError(t, hub.Join(ctx, 7, 2))
	require.Eventually(t, func() bool {
		state, found, _ := store.Get(ctx, 7)
		return found && state.Status == domain.StatusOngoing
	}, time.Second, time.Millisecond)

	require.NoError(t, hub.PlayerMove(ctx, 7, 1, "down"))
}

func TestPauseResumeTransitions(t *testing.T) {
	hub, store, _, _, _ := testHub(7)
	ctx := context.Background()

	require.NoError(t, hub.Join(ctx, 7, 1))
	assert.ErrorIs(t, hub.Pause(ctx, 7), domain.ErrIllegalTransition, "pending match cannot be paused")

	require.NoError(t, hub.Join(ctx, 7, 2))
	require.Eventually(t, func() bool {
		state, found, _ := store.Get(ctx, 7)
		return found && state.Status == domain.StatusOngoing
	}, time.Second, time.Millisecond)

	require.NoError(t, hub.Pause(ctx, 7))
	assert.Equal(t, domain.StatusPaused, stateOf(t, store, 7).Status)
	assert.ErrorIs(t, hub.Pause(ctx, 7), domain.ErrIllegalTransition)

	require.NoError(t, hub.Resume(ctx, 7))
	assert.Equal(t, domain.StatusOngoing, stateOf(t, store, 7).Status)
	assert.ErrorIs(t, hub.Resume(ctx, 7), domain.ErrIllegalTransition)
}

func TestFinalizeByPointsIdempotent(t *testing.T) {
	hub, store, records, conns, _ := testHub(7)
	ctx := context.Background()

	state := domain.NewMatchState()
	state.Players[1] = domain.SideLeft
	state.Players[2] = domain.SideRight
	state.InitialPlayers = []int64{1, 2}
	state.Status = domain.StatusOngoing
	state.Scores = domain.Scores{Left: domain.ScoreThreshold, Right: 3}
	require.NoError(t, store.Set(ctx, 7, state))

	// Reconnect path creates the room without touching the score.
	require.NoError(t, hub.Join(ctx, 7, 1))

	hub.FinalizeByPoints(ctx, 7)
	hub.FinalizeByPoints(ctx, 7)

	results := records.savedResults()
	require.Len(t, results, 1, "double finalization must persist exactly once")
	assert.Equal(t, int64(1), results[0].winnerID)
	assert.Equal(t, domain.ScoreThreshold, results[0].scoreWinner)
	assert.Equal(t, 3, results[0].scoreLoser)
	assert.False(t, results[0].isWalkover)

	require.NotEmpty(t, conns.messagesOfType(2, domain.MsgMatchFinished))
}

func TestJoinReplacesFinalizedRoom(t *testing.T) {
	hub, store, _, _, _ := testHub(7)
	ctx := context.Background()

	// A join can race finalization and pick up a room that is already on
	// its way out of the hub.
	stale := hub.room(7)
	stale.mu.Lock()
	stale.finalized = true
	stale.mu.Unlock()

	require.NoError(t, hub.Join(ctx, 7, 1))

	current, exists := hub.lookupRoom(7)
	require.True(t, exists, "a joined match must have a tracked owner")
	assert.NotSame(t, stale, current)
	assert.True(t, store.has(7))

	// The finalized room's late removal must not evict the replacement.
	hub.removeRoom(7, stale)
	assert.True(t, hub.HasRoom(7))
	require.NoError(t, hub.Join(ctx, 7, 2))
}

func TestFinalizeSignalsTournamentProgression(t *testing.T) {
	hub, store, records, _, completions := testHub(7)
	ctx := context.Background()

	tournamentID := int64(42)
	records.matches[7] = &domain.TournamentMatch{ID: 7, TournamentID: &tournamentID, LastMatch: true}

	state := domain.NewMatchState()
	state.Players[1] = domain.SideLeft
	state.Players[2] = domain.SideRight
	state.InitialPlayers = []int64{1, 2}
	state.Status = domain.StatusOngoing
	state.Scores = domain.Scores{Left: 1, Right: domain.ScoreThreshold}
	state.TournamentID = &tournamentID
	require.NoError(t, store.Set(ctx, 7, state))

	require.NoError(t, hub.Join(ctx, 7, 2))
	hub.FinalizeByPoints(ctx, 7)

	select {
	case signal := <-completions:
		assert.Equal(t, int64(7), signal.MatchID)
		assert.Equal(t, tournamentID, signal.TournamentID)
		assert.Equal(t, int64(2), signal.WinnerID)
		assert.True(t, signal.LastMatch)
	case <-time.After(time.Second):
		t.Fatal("expected a completion signal")
	}

	records.mu.Lock()
	awarded := append([]int64(nil), records.awards...)
	records.mu.Unlock()
	assert.Equal(t, []int64{2}, awarded, "winner gets tournament points")
}

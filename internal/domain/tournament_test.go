package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participants(userIDs ...int64) []TournamentParticipant {
	out := make([]TournamentParticipant, 0, len(userIDs))
	for i, id := range userIDs {
		out = append(out, TournamentParticipant{ID: int64(i + 1), UserID: id})
	}
	return out
}

func TestBuildRoundRobinThreePlayers(t *testing.T) {
	pairs := BuildRoundRobin(participants(10, 20, 30))

	require.Len(t, pairs, 3)
	assert.Equal(t, [2]int64{10, 20}, pairs[0])
	assert.Equal(t, [2]int64{10, 30}, pairs[1])
	assert.Equal(t, [2]int64{20, 30}, pairs[2])
}

func TestBuildRoundRobinPairCount(t *testing.T) {
	// n participants produce n*(n-1)/2 matches
	assert.Len(t, BuildRoundRobin(participants(1, 2, 3, 4)), 6)
	assert.Len(t, BuildRoundRobin(participants(1, 2, 3, 4, 5)), 10)
	assert.Empty(t, BuildRoundRobin(participants(1)))
}

func TestDetermineWinnerByPoints(t *testing.T) {
	ps := participants(10, 20, 30)
	ps[1].Points = 6
	ps[0].Points = 3

	winner, ok := DetermineWinner(ps)
	require.True(t, ok)
	assert.Equal(t, int64(20), winner.UserID)
}

func TestDetermineWinnerTieBreaksByRegistrationOrder(t *testing.T) {
	ps := participants(10, 20, 30)
	ps[0].Points = 3
	ps[2].Points = 3

	winner, ok := DetermineWinner(ps)
	require.True(t, ok)
	assert.Equal(t, int64(10), winner.UserID, "earliest registered participant wins ties")
}

func TestDetermineWinnerEmpty(t *testing.T) {
	_, ok := DetermineWinner(nil)
	assert.False(t, ok)
}

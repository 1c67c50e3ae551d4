package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsConn upgrades a loopback request and hands back the server side of a
// real websocket connection.
func wsConn(t *testing.T) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return <-accepted
}

func TestGroupNames(t *testing.T) {
	assert.Equal(t, "match_7", MatchGroup(7))
	assert.Equal(t, "user_3", UserGroup(3))
	assert.Equal(t, "tournament_42", TournamentGroup(42))
}

func TestSubscribeAndMembers(t *testing.T) {
	cm := NewConnectionManager()

	cm.Subscribe(MatchGroup(7), 1)
	cm.Subscribe(MatchGroup(7), 2)
	cm.Subscribe(LobbyGroup, 1)

	assert.ElementsMatch(t, []int64{1, 2}, cm.MatchMembers(7))
	assert.ElementsMatch(t, []int64{1}, cm.Members(LobbyGroup))

	cm.Unsubscribe(MatchGroup(7), 1)
	assert.ElementsMatch(t, []int64{2}, cm.MatchMembers(7))

	// safe for unknown groups and users
	cm.Unsubscribe("nope", 9)
	assert.Empty(t, cm.Members("nope"))
}

func TestRemoveConnectionDropsGroupMemberships(t *testing.T) {
	cm := NewConnectionManager()
	cm.Subscribe(MatchGroup(7), 1)
	cm.Subscribe(LobbyGroup, 1)

	cm.RemoveConnection(1)

	assert.Empty(t, cm.MatchMembers(7))
	assert.Empty(t, cm.Members(LobbyGroup))
}

func TestReplacedConnectionKeepsSubscriptions(t *testing.T) {
	cm := NewConnectionManager()

	stale := wsConn(t)
	cm.AddConnection(1, stale)
	cm.Subscribe(MatchGroup(7), 1)
	cm.Subscribe(UserGroup(1), 1)

	// A second socket for the same user replaces the first; its handler
	// re-subscribes before the stale handler has finished cleaning up.
	current := wsConn(t)
	cm.AddConnection(1, current)
	cm.Subscribe(MatchGroup(7), 1)
	cm.Subscribe(UserGroup(1), 1)

	cm.RemoveConnectionIfMatching(1, stale)

	assert.True(t, cm.IsCurrentConnection(1, current))
	assert.ElementsMatch(t, []int64{1}, cm.MatchMembers(7), "stale cleanup must not strip the live connection's groups")
	assert.ElementsMatch(t, []int64{1}, cm.Members(UserGroup(1)))

	// Cleanup by the live connection still drops everything.
	cm.RemoveConnectionIfMatching(1, current)
	assert.Empty(t, cm.MatchMembers(7))
	assert.Empty(t, cm.Members(UserGroup(1)))
}

func TestSendToUserWithoutConnectionIsNotAnError(t *testing.T) {
	cm := NewConnectionManager()
	assert.NoError(t, cm.SendToUser(99, map[string]string{"type": "state_update"}))
}

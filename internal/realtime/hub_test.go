package realtime

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBroadcastDeliversToClubRoom(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	clubID := uuid.New()
	other := uuid.New()

	in := &Client{ID: "a", ClubID: clubID, send: make(chan WSMessage, 4)}
	out := &Client{ID: "b", ClubID: other, send: make(chan WSMessage, 4)}
	hub.Register(in)
	hub.Register(out)

	hub.BroadcastToClub(clubID, EventMemberJoined, map[string]string{"user_id": "u1"})

	require.Len(t, in.send, 1)
	msg := <-in.send
	require.Equal(t, EventMemberJoined, msg.Event)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	require.Equal(t, "u1", payload["user_id"])
	require.Empty(t, out.send)

	hub.Unregister(in)
	require.Equal(t, 0, hub.PresenceCount(clubID))
}

func TestBroadcastFullBufferSkipsClient(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	clubID := uuid.New()

	c := &Client{ID: "a", ClubID: clubID, send: make(chan WSMessage, 1)}
	hub.Register(c)

	hub.BroadcastToClub(clubID, EventPresence, map[string]int{"count": 1})
	hub.BroadcastToClub(clubID, EventPresence, map[string]int{"count": 2})

	require.Len(t, c.send, 1)
}

func TestBroadcastDuringMembershipChurn(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	clubID := uuid.New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			c := &Client{ID: fmt.Sprintf("c%d", i), ClubID: clubID, send: make(chan WSMessage, 1)}
			hub.Register(c)
			hub.Unregister(c)
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
			hub.BroadcastToClub(clubID, EventPresence, map[string]int{"count": hub.PresenceCount(clubID)})
		}
	}
}

package relay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_JoinLeaveRoster(t *testing.T) {
	r := NewRegistry()

	roster := r.Join("n1", "s1", "u1", "Alice")
	require.Len(t, roster, 1)
	require.Equal(t, "u1", roster[0].UserID)

	roster = r.Join("n1", "s2", "u2", "Bob")
	require.Len(t, roster, 2)
	// ordered by join time
	require.Equal(t, "s1", roster[0].SessionID)
	require.Equal(t, "s2", roster[1].SessionID)

	roster, alive := r.Leave("n1", "s1")
	require.True(t, alive)
	require.Len(t, roster, 1)
	require.Equal(t, "s2", roster[0].SessionID)

	// last member out deletes the room
	_, alive = r.Leave("n1", "s2")
	require.False(t, alive)
	require.Zero(t, r.Rooms())
	require.Nil(t, r.Roster("n1"))
}

func TestRegistry_SessionInOneRoomAtATime(t *testing.T) {
	r := NewRegistry()
	r.Join("n1", "s1", "u1", "Alice")
	r.Join("n2", "s1", "u1", "Alice")

	require.Nil(t, r.Roster("n1"), "joining a new room must leave the old one")
	require.Len(t, r.Roster("n2"), 1)
	require.Equal(t, 1, r.Rooms())
}

func TestRegistry_Disconnect(t *testing.T) {
	r := NewRegistry()
	r.Join("n1", "s1", "u1", "Alice")
	r.Join("n1", "s2", "u2", "Bob")

	noteID, roster, wasMember := r.Disconnect("s1")
	require.True(t, wasMember)
	require.Equal(t, "n1", noteID)
	require.Len(t, roster, 1)

	// idempotent, and safe for sessions that never joined
	_, _, wasMember = r.Disconnect("s1")
	require.False(t, wasMember)
	_, _, wasMember = r.Disconnect("never-joined")
	require.False(t, wasMember)

	// last member disconnecting removes the room
	_, roster, wasMember = r.Disconnect("s2")
	require.True(t, wasMember)
	require.Empty(t, roster)
	require.Zero(t, r.Rooms())
}

func TestRegistry_RejoinSameRoomUpdatesIdentity(t *testing.T) {
	r := NewRegistry()
	r.Join("n1", "s1", "u1", "Alice")
	roster := r.Join("n1", "s1", "u1", "Alice (renamed)")
	require.Len(t, roster, 1)
	require.Equal(t, "Alice (renamed)", roster[0].UserName)
}

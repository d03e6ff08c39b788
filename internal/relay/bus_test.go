package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribeRoundtrip(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := NewBus(ctx, redis.NewClient(&redis.Options{Addr: m.Addr()}))
	require.NoError(t, err)
	pub, err := NewBus(ctx, redis.NewClient(&redis.Options{Addr: m.Addr()}))
	require.NoError(t, err)

	got := make(chan BusMessage, 1)
	go sub.Subscribe(ctx, func(msg BusMessage) { got <- msg })

	// give the pattern subscription a moment to register
	time.Sleep(50 * time.Millisecond)

	want := BusMessage{
		Origin: "instance-a",
		Event: Event{
			Type:    EventContentEdit,
			NoteID:  "n1",
			UserID:  "u1",
			Content: json.RawMessage(`{"blocks":[]}`),
		},
	}
	require.NoError(t, pub.Publish(ctx, want))

	select {
	case msg := <-got:
		require.Equal(t, want.Origin, msg.Origin)
		require.Equal(t, EventContentEdit, msg.Event.Type)
		require.Equal(t, "n1", msg.Event.NoteID)
		require.JSONEq(t, string(want.Event.Content), string(msg.Event.Content))
	case <-time.After(2 * time.Second):
		t.Fatal("no bus message received")
	}
}

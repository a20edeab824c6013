package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, buffer int) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(buffer)
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func receive(t *testing.T, sub *Subscription) Message {
	t.Helper()
	select {
	case m, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestHub_DeliversByTopic(t *testing.T) {
	h := startHub(t, 8)
	ctx := context.Background()

	alice, err := h.Subscribe(ctx, "queue_position:alice", "chat_started")
	require.NoError(t, err)
	defer alice.Close()
	bob, err := h.Subscribe(ctx, "queue_position:bob")
	require.NoError(t, err)
	defer bob.Close()

	require.NoError(t, h.Publish(ctx, "queue_position:bob", map[string]int{"position": 1}))
	require.NoError(t, h.Publish(ctx, "chat_started", map[string]string{"chatId": "c1"}))

	m := receive(t, bob)
	assert.Equal(t, "queue_position:bob", m.Topic)
	assert.JSONEq(t, `{"position":1}`, string(m.Payload))

	m = receive(t, alice)
	assert.Equal(t, "chat_started", m.Topic)

	select {
	case m := <-bob.C:
		t.Fatalf("bob got unexpected %s", m.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_CloseStopsDelivery(t *testing.T) {
	h := startHub(t, 8)
	ctx := context.Background()

	sub, err := h.Subscribe(ctx, "t")
	require.NoError(t, err)
	sub.Close()
	sub.Close()

	_, ok := <-sub.C
	assert.False(t, ok)
	require.NoError(t, h.Publish(ctx, "t", json.RawMessage(`{}`)))
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	h := startHub(t, 1)
	ctx := context.Background()

	sub, err := h.Subscribe(ctx, "t")
	require.NoError(t, err)

	require.NoError(t, h.Publish(ctx, "t", 1))
	require.NoError(t, h.Publish(ctx, "t", 2))
	// third publish is processed only after the second, which overflowed
	require.NoError(t, h.Publish(ctx, "t", 3))

	m := <-sub.C
	assert.Equal(t, "1", string(m.Payload))
	_, ok := <-sub.C
	assert.False(t, ok)
}

func TestHub_StoppedHubRejects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(1)
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.ErrorIs(t, h.Publish(context.Background(), "t", 1), ErrHubStopped)
	_, err := h.Subscribe(context.Background(), "t")
	assert.ErrorIs(t, err, ErrHubStopped)
}

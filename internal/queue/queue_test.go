package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, PublishCommit(ctx, q, CommitEvent{ClassID: "c1", Date: "2024-03-01", Entries: 3}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	evt, err := DecodeCommit(receive(t, msgs))
	require.NoError(t, err)
	assert.Equal(t, CommitEvent{ClassID: "c1", Date: "2024-03-01", Entries: 3}, evt)

	cancel()
	for range msgs {
	}
}

func TestInMemoryPublishHonoursContext(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "x"}), context.Canceled)
}

func TestRedisQueueRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewRedisQueue(client, "")
	q.wait = 100 * time.Millisecond
	require.NoError(t, PublishCommit(ctx, q, CommitEvent{ClassID: "c9", Date: "2024-03-02"}))
	require.NoError(t, q.Publish(ctx, Message{Type: "other", Body: []byte("a|b")}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	first := receive(t, msgs)
	evt, err := DecodeCommit(first)
	require.NoError(t, err)
	assert.Equal(t, "c9", evt.ClassID)

	second := receive(t, msgs)
	assert.Equal(t, "other", second.Type)
	assert.Equal(t, "a|b", string(second.Body), "only the first separator splits")
}

func TestDecodeCommitRejects(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{name: "wrong type", msg: Message{Type: "checkin", Body: []byte(`{"class_id":"c"}`)}},
		{name: "bad json", msg: Message{Type: TypeAttendanceCommitted, Body: []byte(`{`)}},
		{name: "no class", msg: Message{Type: TypeAttendanceCommitted, Body: []byte(`{}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommit(tt.msg)
			assert.Error(t, err)
		})
	}
}

func TestDeserializeWithoutSeparator(t *testing.T) {
	msg := deserialize("plain")
	assert.Equal(t, "", msg.Type)
	assert.Equal(t, "plain", string(msg.Body))
}

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	ID    string
	Count int
}

func TestQueuePublishConsume(t *testing.T) {
	queue := NewQueue[testPayload](DefaultConfig())
	ctx := context.Background()

	payload := testPayload{ID: "m-1", Count: 1}
	require.NoError(t, queue.Publish(ctx, &payload))
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, payload, *message.T())

	assert.NoError(t, message.Ack())
	assert.Error(t, message.Ack())
}

func TestQueueNackRequeues(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 1
	config.RetryDelay = 5 * time.Millisecond
	queue := NewQueue[testPayload](config)
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &testPayload{ID: "retry"}))

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	require.NoError(t, message.Nack(nil))

	// The single retry is redelivered after the delay.
	message, err = queue.Consume(ctx)
	require.NoError(t, err)
	require.NoError(t, message.Nack(nil))

	// Retry budget exhausted – nothing is requeued.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, queue.Size())
}

func TestQueuePublishDropsOldestWhenFull(t *testing.T) {
	config := DefaultConfig()
	config.QueueBuffer = 2
	queue := NewQueue[testPayload](config)
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &testPayload{ID: "m-1"}))
	require.NoError(t, queue.Publish(ctx, &testPayload{ID: "m-2"}))

	// Nobody is consuming; publishing into the full buffer returns instead of
	// blocking, at the cost of the oldest message.
	require.NoError(t, queue.Publish(ctx, &testPayload{ID: "m-3"}))
	assert.Equal(t, 2, queue.Size())

	first, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "m-2", first.T().ID)

	second, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "m-3", second.T().ID)
}

func TestQueueContextCancellation(t *testing.T) {
	queue := NewQueue[testPayload](DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, queue.Publish(ctx, &testPayload{ID: "x"}))

	waitCtx, cancelWait := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelWait()
	_, err := queue.Consume(waitCtx)
	assert.Error(t, err)

	// The queue stays usable after cancellation.
	require.NoError(t, queue.Publish(context.Background(), &testPayload{ID: "y"}))
	message, err := queue.Consume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "y", message.T().ID)
}

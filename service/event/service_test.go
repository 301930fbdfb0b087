package event_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nyayaflow/lexflow/service/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stageUpdate struct {
	Output string
}

func TestTypedPublishAndListen(t *testing.T) {
	svc := event.New()

	var mu sync.Mutex
	var typed []string
	var all []string
	done := make(chan struct{}, 2)

	require.NoError(t, event.SetListenerOf[stageUpdate](svc, func(e *event.Event[stageUpdate]) {
		mu.Lock()
		typed = append(typed, e.Data.Output)
		mu.Unlock()
		done <- struct{}{}
	}))
	svc.SetListener(func(e *event.Event[any]) {
		mu.Lock()
		all = append(all, e.Context.EventType)
		mu.Unlock()
		done <- struct{}{}
	})

	publisher, err := event.PublisherOf[stageUpdate](svc)
	require.NoError(t, err)

	evt := event.NewEvent(&event.Context{
		SessionID: "s-1",
		StageID:   "draft",
		EventType: event.TypeStageOutput,
	}, stageUpdate{Output: "draft v1"})
	require.NoError(t, publisher.Publish(context.Background(), evt))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event delivery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"draft v1"}, typed)
	assert.Equal(t, []string{event.TypeStageOutput}, all)
}

func TestPublisherOfReuse(t *testing.T) {
	svc := event.New()
	first, err := event.PublisherOf[stageUpdate](svc)
	require.NoError(t, err)
	second, err := event.PublisherOf[stageUpdate](svc)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NadafAyan/BloodShare/internal/events"
)

type collectingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *collectingSink) handle(_ context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *collectingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestEventRelay_ForwardsPublishedEvents(t *testing.T) {
	sink := &collectingSink{}
	dispatcher := events.NewInMemoryDispatcher()
	relay := NewEventRelay(sink.handle, 8, zap.NewNop())
	relay.Register(dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventDonorRegistered, 1, nil)))
	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventDonorApproved, 1, nil)))

	assert.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestEventRelay_DrainsOnShutdown(t *testing.T) {
	sink := &collectingSink{}
	relay := NewEventRelay(sink.handle, 4, zap.NewNop())
	for i := 0; i < 3; i++ {
		require.NoError(t, relay.enqueue(context.Background(), events.NewEvent(events.EventDonorDeleted, int64(i), nil)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, relay.Run(ctx))
	assert.Equal(t, 3, sink.count())
}

func TestEventRelay_DropsWhenFull(t *testing.T) {
	sink := &collectingSink{}
	relay := NewEventRelay(sink.handle, 1, zap.NewNop())

	require.NoError(t, relay.enqueue(context.Background(), events.NewEvent(events.EventDonorRegistered, 1, nil)))
	require.NoError(t, relay.enqueue(context.Background(), events.NewEvent(events.EventDonorRegistered, 2, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, relay.Run(ctx))
	require.Equal(t, 1, sink.count())
	assert.Equal(t, int64(1), sink.events[0].DonorID)
}

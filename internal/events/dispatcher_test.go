package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_DeliversToSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher()
	var approved, rejected []int64
	d.Subscribe(EventDonorApproved, func(_ context.Context, e Event) error {
		approved = append(approved, e.DonorID)
		return nil
	})
	d.Subscribe(EventDonorRejected, func(_ context.Context, e Event) error {
		rejected = append(rejected, e.DonorID)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), NewEvent(EventDonorApproved, 7, nil)))
	assert.Equal(t, []int64{7}, approved)
	assert.Empty(t, rejected)
}

func TestDispatcher_FailingHandlerDoesNotStopOthers(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	calls := 0
	d.Subscribe(EventDonorRegistered, func(context.Context, Event) error { return boom })
	d.Subscribe(EventDonorRegistered, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventDonorRegistered, 1, nil))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestSubscribeAll(t *testing.T) {
	d := NewInMemoryDispatcher()
	seen := map[EventType]int{}
	SubscribeAll(d, func(_ context.Context, e Event) error {
		seen[e.Type]++
		return nil
	})
	for _, eventType := range AllEventTypes {
		require.NoError(t, d.Publish(context.Background(), NewEvent(eventType, 1, nil)))
	}
	assert.Len(t, seen, len(AllEventTypes))
}

func TestNewEvent(t *testing.T) {
	a := NewEvent(EventDonorDeleted, 3, DonorDeletedPayload{})
	b := NewEvent(EventDonorDeleted, 3, DonorDeletedPayload{})
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
	assert.Equal(t, int64(3), a.DonorID)
}

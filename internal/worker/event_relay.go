package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/NadafAyan/BloodShare/internal/events"
)

const (
	defaultRelayBuffer  = 256
	relayPublishTimeout = 10 * time.Second
)

// EventRelay decouples request handling from a slow sink such as Kafka.
// Events are queued on publish and forwarded by a single goroutine, so a
// sink outage never blocks a registration or decision. When the queue is
// full the event is dropped and logged.
type EventRelay struct {
	sink   events.EventHandler
	queue  chan events.Event
	logger *zap.Logger
}

// NewEventRelay builds a relay with the given queue size.
func NewEventRelay(sink events.EventHandler, buffer int, logger *zap.Logger) *EventRelay {
	if buffer <= 0 {
		buffer = defaultRelayBuffer
	}
	return &EventRelay{
		sink:   sink,
		queue:  make(chan events.Event, buffer),
		logger: logger.Named("relay"),
	}
}

// Register subscribes the relay to every lifecycle event.
func (r *EventRelay) Register(dispatcher events.Dispatcher) {
	events.SubscribeAll(dispatcher, r.enqueue)
}

func (r *EventRelay) enqueue(_ context.Context, event events.Event) error {
	select {
	case r.queue <- event:
	default:
		r.logger.Warn("relay queue full; dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
	return nil
}

// Run forwards queued events until ctx is cancelled, then drains what is
// already queued.
func (r *EventRelay) Run(ctx context.Context) error {
	for {
		select {
		case event := <-r.queue:
			r.forward(event)
		case <-ctx.Done():
			for {
				select {
				case event := <-r.queue:
					r.forward(event)
				default:
					return nil
				}
			}
		}
	}
}

func (r *EventRelay) forward(event events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
	defer cancel()
	if err := r.sink(ctx, event); err != nil {
		r.logger.Error("relay forward failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

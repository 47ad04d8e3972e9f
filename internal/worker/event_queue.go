package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/clube-quinze/club-api/internal/events"
	"github.com/clube-quinze/club-api/internal/observability"
)

// ErrQueueFull is returned by Publish when the queue has no free capacity.
var ErrQueueFull = errors.New("event queue full")

// ErrQueueClosed is returned by Publish after the queue stopped.
var ErrQueueClosed = errors.New("event queue closed")

// EventQueue is an events.Dispatcher that hands events to background workers.
// Subscribers are registered on, and invoked by, the wrapped dispatcher.
type EventQueue struct {
	inner   events.Dispatcher
	queue   chan events.Event
	workers int
	logger  *zap.Logger
	metrics *observability.Metrics

	mu      sync.RWMutex
	closed  bool
	started bool

	// inflight counts accepted events not yet handled, including events
	// handlers publish while the queue drains.
	inflightMu sync.Mutex
	inflight   int
	idle       *sync.Cond
}

// NewEventQueue wraps inner with a bounded buffer of size and the given worker count.
func NewEventQueue(inner events.Dispatcher, size, workers int, logger *zap.Logger, metrics *observability.Metrics) *EventQueue {
	if size <= 0 {
		size = 256
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &EventQueue{
		inner:   inner,
		queue:   make(chan events.Event, size),
		workers: workers,
		logger:  logger,
		metrics: metrics,
	}
	q.idle = sync.NewCond(&q.inflightMu)
	return q
}

// Publish enqueues the event without blocking.
func (q *EventQueue) Publish(_ context.Context, event events.Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.track(1)
	select {
	case q.queue <- event:
		return nil
	default:
		q.track(-1)
		q.metrics.RecordEventDropped()
		q.logger.Warn("event dropped, queue full",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
		return ErrQueueFull
	}
}

// Subscribe registers handler on the wrapped dispatcher.
func (q *EventQueue) Subscribe(eventType events.EventType, handler events.EventHandler) {
	q.inner.Subscribe(eventType, handler)
}

// Run starts the workers and blocks until ctx is done. On shutdown the queue
// stays open until every accepted event is handled, so follow-up events that
// handlers publish are delivered too. Run returns once the queue is idle.
func (q *EventQueue) Run(ctx context.Context) {
	q.mu.Lock()
	if q.started || q.closed {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range q.queue {
				q.deliver(event)
				q.track(-1)
			}
		}()
	}

	<-ctx.Done()
	q.inflightMu.Lock()
	for q.inflight > 0 {
		q.idle.Wait()
	}
	q.inflightMu.Unlock()

	q.mu.Lock()
	q.closed = true
	close(q.queue)
	q.mu.Unlock()
	wg.Wait()
}

// Pending reports the number of queued events.
func (q *EventQueue) Pending() int {
	return len(q.queue)
}

func (q *EventQueue) track(delta int) {
	q.inflightMu.Lock()
	q.inflight += delta
	if q.inflight == 0 {
		q.idle.Broadcast()
	}
	q.inflightMu.Unlock()
}

func (q *EventQueue) deliver(event events.Event) {
	// handlers outlive the request that published the event
	if err := q.inner.Publish(context.Background(), event); err != nil {
		q.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

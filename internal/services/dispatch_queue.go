package services

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
)

// EventHandler evaluates one event. *Dispatcher satisfies it.
type EventHandler interface {
	Dispatch(ctx context.Context, ev Event) error
}

type queuedEvent struct {
	ctx context.Context
	ev  Event
}

// DispatchQueue moves notification work off the request goroutine.
//
// Events are sharded by recipient (Event.TargetID): each worker owns one
// buffered channel, so all events for a recipient are evaluated one at a time
// in emission order. An unfollow can never overtake its follow, nor an unlike
// its like.
//
// Emit blocks only while the recipient's shard is full; it never evaluates
// out of order. After Close, Emit waits for the queued events to drain and
// then evaluates inline, so every event is evaluated exactly once. With zero
// workers the queue is purely synchronous.
type DispatchQueue struct {
	h      EventHandler
	shards []chan queuedEvent
	log    zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatchQueue starts workers goroutines, each draining its own shard of
// the given buffer size.
func NewDispatchQueue(h EventHandler, workers, buffer int, lg zerolog.Logger) *DispatchQueue {
	if workers < 0 {
		workers = 0
	}
	if buffer < 0 {
		buffer = 0
	}
	q := &DispatchQueue{
		h:   h,
		log: lg.With().Str("component", "dispatch_queue").Logger(),
	}
	q.shards = make([]chan queuedEvent, workers)
	for i := range q.shards {
		q.shards[i] = make(chan queuedEvent, buffer)
		q.wg.Add(1)
		go q.work(q.shards[i])
	}
	return q
}

func (q *DispatchQueue) work(ch <-chan queuedEvent) {
	defer q.wg.Done()
	for item := range ch {
		_ = q.h.Dispatch(item.ctx, item.ev)
	}
}

func (q *DispatchQueue) shardFor(recipientID string) chan queuedEvent {
	return q.shards[xxhash.Sum64String(recipientID)%uint64(len(q.shards))]
}

// Emit enqueues ev on its recipient's shard.
func (q *DispatchQueue) Emit(ctx context.Context, ev Event) {
	if len(q.shards) == 0 {
		_ = q.h.Dispatch(ctx, ev)
		return
	}

	item := queuedEvent{ctx: context.WithoutCancel(ctx), ev: ev}
	q.mu.RLock()
	if !q.closed {
		ch := q.shardFor(ev.TargetID)
		select {
		case ch <- item:
		default:
			// Workers keep draining until Close, and Close cannot proceed
			// while the read lock is held, so this send always completes.
			queueOverflow.Inc()
			q.log.Debug().Str("event", string(ev.Type)).Msg("dispatch shard full, waiting")
			ch <- item
		}
		q.mu.RUnlock()
		return
	}
	q.mu.RUnlock()

	q.wg.Wait()
	_ = q.h.Dispatch(ctx, ev)
}

// Close stops accepting events and waits for queued ones to drain, or for
// ctx to expire.
func (q *DispatchQueue) Close(ctx context.Context) error {
	if len(q.shards) == 0 {
		return nil
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for _, ch := range q.shards {
		close(ch)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Emitter = (*DispatchQueue)(nil)

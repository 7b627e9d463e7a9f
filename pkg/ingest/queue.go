// Package ingest carries real-time push events from the ingress transport
// into the cache store. Events are buffered in a bounded in-memory queue;
// a full queue drops the event (the next pull sync repairs the gap).
package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"

	"github.com/cwaldbieser/slack-tui/pkg/remote"
)

// ErrQueueFull is returned by TryEnqueue when the queue is at capacity.
var ErrQueueFull = errors.New("ingest queue full")

// Op is one queued push event. Payload may be backed by a pooled buffer;
// consumers must call Item.Done() when finished.
type Op struct {
	Kind     remote.EventKind
	Channel  string
	TS       string
	Reaction string
	User     string
	// Payload holds the raw message body for message-created events.
	Payload []byte
	// EnqSeq is a monotonic enqueue sequence used for deterministic
	// ordering in logs and tests.
	EnqSeq uint64
}

// Item wraps an Op and owns a pooled buffer if one was used. Consumers
// MUST call Done() exactly once after processing.
type Item struct {
	Op *Op

	buf  *bytebufferpool.ByteBuffer
	once sync.Once
}

// maxPooledBuffer caps the buffer size returned to the pool so a huge
// payload cannot pin resident memory.
const maxPooledBuffer = 256 * 1024

// Done releases pooled resources back to their pools.
func (it *Item) Done() {
	it.once.Do(func() {
		if it.buf != nil {
			if cap(it.buf.B) > maxPooledBuffer {
				it.buf = nil
			} else {
				bytebufferpool.Put(it.buf)
				it.buf = nil
			}
		}
		if it.Op != nil {
			it.Op.Payload = nil
			opPool.Put(it.Op)
			it.Op = nil
		}
		itemPool.Put(it)
	})
}

var opPool = sync.Pool{New: func() any { return &Op{} }}
var itemPool = sync.Pool{New: func() any { return &Item{} }}

// Queue is a bounded queue of push events. It is safe for concurrent
// producers; consumers range over Out() or use RunWorker.
type Queue struct {
	ch       chan *Item
	capacity int
	dropped  uint64
	enqSeq   uint64
}

// NewQueue creates a bounded Queue. A non-positive capacity falls back to
// a sane default.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Queue{ch: make(chan *Item, capacity), capacity: capacity}
}

// Out returns the read-only consumer channel. Do not close it from
// callers.
func (q *Queue) Out() <-chan *Item { return q.ch }

func (q *Queue) wrap(op *Op) *Item {
	newOp := opPool.Get().(*Op)
	*newOp = *op
	newOp.EnqSeq = atomic.AddUint64(&q.enqSeq, 1)

	var bb *bytebufferpool.ByteBuffer
	if len(op.Payload) > 0 {
		bb = bytebufferpool.Get()
		bb.B = append(bb.B[:0], op.Payload...)
		newOp.Payload = bb.B[:len(op.Payload)]
	}
	it := itemPool.Get().(*Item)
	*it = Item{Op: newOp, buf: bb}
	return it
}

func (q *Queue) release(it *Item) {
	atomic.AddUint64(&q.dropped, 1)
	queueDropped.Inc()
	it.Done()
}

// TryEnqueue copies the event into pooled storage and enqueues it without
// blocking. Returns ErrQueueFull when the queue is saturated.
func (q *Queue) TryEnqueue(op *Op) error {
	it := q.wrap(op)
	select {
	case q.ch <- it:
		return nil
	default:
		q.release(it)
		return ErrQueueFull
	}
}

// Enqueue blocks until space is available or ctx is done.
func (q *Queue) Enqueue(ctx context.Context, op *Op) error {
	it := q.wrap(op)
	select {
	case q.ch <- it:
		return nil
	case <-ctx.Done():
		q.release(it)
		return ctx.Err()
	}
}

// EnqueueEvent converts a remote push event and enqueues it without
// blocking.
func (q *Queue) EnqueueEvent(ev remote.Event) error {
	return q.TryEnqueue(&Op{
		Kind:     ev.Kind,
		Channel:  ev.Channel,
		TS:       ev.TS,
		Reaction: ev.Reaction,
		User:     ev.User,
		Payload:  ev.Payload,
	})
}

// RunWorker consumes items until stop is closed or the queue is closed,
// invoking handler for each. Item.Done() is guaranteed even when the
// handler errors.
func (q *Queue) RunWorker(stop <-chan struct{}, handler func(*Op) error) {
	for {
		select {
		case it, ok := <-q.ch:
			if !ok {
				return
			}
			func(it *Item) {
				defer it.Done()
				_ = handler(it.Op)
			}(it)
		case <-stop:
			return
		}
	}
}

// CloseAndDrain closes the queue and releases every remaining item.
func (q *Queue) CloseAndDrain() {
	close(q.ch)
	for it := range q.ch {
		it.Done()
	}
}

// Len returns the number of queued items.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the configured capacity.
func (q *Queue) Cap() int { return q.capacity }

// Dropped returns how many events were dropped on a full queue or
// cancelled enqueue.
func (q *Queue) Dropped() uint64 { return atomic.LoadUint64(&q.dropped) }

package ingest

import (
	"testing"
	"time"

	"github.com/cwaldbieser/slack-tui/pkg/remote"
)

func TestTryEnqueueFullQueueDrops(t *testing.T) {
	q := NewQueue(2)
	op := &Op{Kind: remote.EventMessageCreated, Channel: "C1", Payload: []byte(`{"ts":"1.1"}`)}
	if err := q.TryEnqueue(op); err != nil {
		t.Fatalf("enqueue 1: %v", err)
	}
	if err := q.TryEnqueue(op); err != nil {
		t.Fatalf("enqueue 2: %v", err)
	}
	if err := q.TryEnqueue(op); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if q.Dropped() != 1 {
		t.Fatalf("expected 1 dropped, got %d", q.Dropped())
	}
	if q.Len() != 2 {
		t.Fatalf("expected length 2, got %d", q.Len())
	}
	q.CloseAndDrain()
}

func TestEnqueueCopiesPayload(t *testing.T) {
	q := NewQueue(4)
	payload := []byte(`{"ts":"1.1","text":"original"}`)
	if err := q.TryEnqueue(&Op{Kind: remote.EventMessageCreated, Channel: "C1", Payload: payload}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	// mutate the caller's slice after enqueue
	copy(payload, []byte(`{"ts":"9.9"`))

	it := <-q.Out()
	defer it.Done()
	if string(it.Op.Payload) != `{"ts":"1.1","text":"original"}` {
		t.Fatalf("payload aliased caller memory: %s", it.Op.Payload)
	}
}

func TestRunWorkerProcessesAndStops(t *testing.T) {
	q := NewQueue(8)
	for i := 0; i < 3; i++ {
		if err := q.TryEnqueue(&Op{Kind: remote.EventReactionAdded, Channel: "C1", TS: "1.1", Reaction: "eyes"}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	seen := make(chan *Op, 8)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.RunWorker(stop, func(op *Op) error {
			cp := *op
			seen <- &cp
			return nil
		})
	}()
	for i := 0; i < 3; i++ {
		select {
		case op := <-seen:
			if op.Kind != remote.EventReactionAdded || op.Channel != "C1" {
				t.Fatalf("unexpected op: %+v", op)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not process events")
		}
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

package queue

import (
	"context"
	"testing"

	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/internal/domain/planner"
)

func job(seq int, team string) Job {
	return Job{Seq: seq, Team: planner.Team{ID: model.TeamID(team)}}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job(0, "A")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	j := <-q.Dequeue(ctx)
	if j.Team.ID != "A" || j.Seq != 0 {
		t.Errorf("expected team A, got %v", j.Team.ID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, job(0, "A")) || !q.Enqueue(ctx, job(1, "B")) {
		t.Error("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job(2, "C")) {
		t.Error("expected enqueue to fail when full")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	q.Enqueue(ctx, job(0, "A"))
	q.Enqueue(ctx, job(1, "B"))
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, job(2, "C")) {
		t.Error("expected enqueue to fail after close")
	}

	var got []int
	for j := range q.Dequeue(ctx) {
		got = append(got, j.Seq)
	}
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("expected queued jobs to drain in order, got %v", got)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, job(0, "A")) {
		t.Error("expected enqueue to fail with a cancelled context")
	}
	if q.capacity != DefaultCapacity {
		t.Errorf("expected default capacity, got %d", q.capacity)
	}
}

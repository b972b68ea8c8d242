package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStoreQueuesAreOrderedByCreation(t *testing.T) {
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore()
	ctx := context.Background()

	// Insert out of order; the queue sorts by createdAt.
	store.Insert(ctx, NewChatSession("b", "b", StatusQueued, at.Add(time.Second)))
	store.Insert(ctx, NewChatSession("a", "a", StatusQueued, at))
	store.Insert(ctx, NewChatSession("c", "c", StatusQueued, at.Add(2*time.Second)))

	queue := store.MainQueue()
	if len(queue) != 3 {
		t.Fatalf("queue length: %d", len(queue))
	}
	for i, want := range []string{"a", "b", "c"} {
		if queue[i].ID != want {
			t.Errorf("position %d: got %s, want %s", i, queue[i].ID, want)
		}
	}
}

func TestOverflowMovePreservesQueuePriority(t *testing.T) {
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore()
	ctx := context.Background()

	old := NewChatSession("old", "u1", StatusQueued, at)
	store.Insert(ctx, old)
	store.Insert(ctx, NewChatSession("new", "u2", StatusQueued, at.Add(time.Minute)))

	old.MoveToOverflow()
	// Then a younger session joins overflow directly.
	young := NewChatSession("young", "u3", StatusQueued, at.Add(2*time.Minute))
	young.MoveToOverflow()
	store.Insert(ctx, young)

	if got := store.QueueLength(); got != 1 {
		t.Fatalf("main queue: %d", got)
	}
	ovf := store.OverflowQueue()
	if len(ovf) != 2 || ovf[0].ID != "old" {
		t.Fatalf("overflow queue should lead with the oldest session: %v", ovf)
	}
}

func TestActiveByUserSkipsTerminalSessions(t *testing.T) {
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore()
	ctx := context.Background()

	done := NewChatSession("done", "u1", StatusQueued, at)
	store.Insert(ctx, done)
	done.AssignToAgent("a", at)
	done.RecordPoll(at)
	done.Complete()

	if _, ok := store.ActiveByUser("u1"); ok {
		t.Fatal("completed session is not active")
	}

	live := NewChatSession("live", "u1", StatusQueued, at.Add(time.Second))
	store.Insert(ctx, live)
	got, ok := store.ActiveByUser("u1")
	if !ok || got.ID != "live" {
		t.Fatalf("expected live session, got %v %v", got, ok)
	}
}

func TestTimedOutCoversAssignedAndActiveOnly(t *testing.T) {
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore()
	ctx := context.Background()

	queued := NewChatSession("q", "u1", StatusQueued, at)
	store.Insert(ctx, queued)
	queued.MarkMissedIfStale(at.Add(5 * time.Second))

	assigned := NewChatSession("a", "u2", StatusQueued, at)
	store.Insert(ctx, assigned)
	assigned.AssignToAgent("agent", at)
	assigned.MarkMissedIfStale(at.Add(5 * time.Second))

	out := store.TimedOut()
	if len(out) != 1 || out[0].ID != "a" {
		t.Fatalf("timedOut should list the assigned session only: %v", out)
	}
}

func TestUpdateUnknownSession(t *testing.T) {
	store := NewSessionStore()
	sess := NewChatSession("ghost", "u1", StatusQueued, time.Now())
	if err := store.Update(context.Background(), sess); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

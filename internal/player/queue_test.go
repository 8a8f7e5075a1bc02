package player

import (
	"context"
	"errors"
	"testing"
	"time"
)

func track(title string) *Track {
	return &Track{SourceID: title, Extractor: "test", Title: title, Duration: 3 * time.Minute}
}

func titles(tracks []*Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Title
	}
	return out
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.Push(track("a"), track("b"), track("c"))

	for _, want := range []string{"a", "b", "c"} {
		got := q.PopFront()
		if got == nil || got.Title != want {
			t.Fatalf("PopFront = %v, want %s", got, want)
		}
	}
	if q.PopFront() != nil {
		t.Fatal("PopFront on empty queue should return nil")
	}
}

func TestQueuePopFrontWaitWakesOnPush(t *testing.T) {
	q := NewQueue()

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Push(track("late"))
	}()

	got, err := q.PopFrontWait(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("PopFrontWait: %v", err)
	}
	if got.Title != "late" {
		t.Fatalf("got %q, want late", got.Title)
	}
}

func TestQueuePopFrontWaitTimesOut(t *testing.T) {
	q := NewQueue()
	_, err := q.PopFrontWait(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrIdleTimeout) {
		t.Fatalf("err = %v, want ErrIdleTimeout", err)
	}
}

func TestQueuePopFrontWaitHonorsContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.PopFrontWait(ctx, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestQueueRemoveAt(t *testing.T) {
	q := NewQueue()
	q.Push(track("a"), track("b"), track("c"))

	removed, err := q.RemoveAt(2)
	if err != nil {
		t.Fatalf("RemoveAt: %v", err)
	}
	if removed.Title != "b" {
		t.Fatalf("removed %q, want b", removed.Title)
	}
	got := titles(q.Snapshot())
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("queue after remove = %v", got)
	}

	for _, pos := range []int{0, 3, -1} {
		if _, err := q.RemoveAt(pos); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("RemoveAt(%d) err = %v, want ErrOutOfRange", pos, err)
		}
	}
}

func TestQueueCutFront(t *testing.T) {
	q := NewQueue()
	q.Push(track("a"), track("b"), track("c"), track("d"))

	cut, err := q.CutFront(2)
	if err != nil {
		t.Fatalf("CutFront: %v", err)
	}
	if got := titles(cut); got[0] != "a" || got[1] != "b" {
		t.Fatalf("cut = %v, want [a b]", got)
	}
	if got := titles(q.Snapshot()); got[0] != "c" || got[1] != "d" {
		t.Fatalf("remaining = %v, want [c d]", got)
	}

	if _, err := q.CutFront(10); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("CutFront beyond length err = %v, want ErrOutOfRange", err)
	}
}

func TestQueueShuffleKeepsAllTracks(t *testing.T) {
	q := NewQueue()
	names := []string{"a", "b", "c", "d", "e", "f"}
	for _, n := range names {
		q.Push(track(n))
	}

	q.Shuffle()

	seen := map[string]int{}
	for _, n := range titles(q.Snapshot()) {
		seen[n]++
	}
	if len(seen) != len(names) {
		t.Fatalf("shuffle changed track set: %v", seen)
	}
	for _, n := range names {
		if seen[n] != 1 {
			t.Fatalf("track %q appears %d times after shuffle", n, seen[n])
		}
	}
}

func TestQueueUpcoming(t *testing.T) {
	q := NewQueue()
	q.Push(track("a"), track("b"))

	if got := q.Upcoming(5); len(got) != 2 {
		t.Fatalf("Upcoming(5) len = %d, want 2", len(got))
	}
	if got := q.Upcoming(1); len(got) != 1 || got[0].Title != "a" {
		t.Fatalf("Upcoming(1) = %v", titles(got))
	}
	if q.Len() != 2 {
		t.Fatal("Upcoming must not consume the queue")
	}
}

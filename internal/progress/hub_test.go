package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"scribe/internal/jobs"
)

func statusEvent(jobID string, status jobs.Status, pct int) Event {
	return Event{Type: EventStatus, JobID: jobID, Status: status, Progress: pct}
}

func TestHubAssignsMonotonicSequences(t *testing.T) {
	hub := NewHub(8)

	first := hub.Publish(statusEvent("a", jobs.StatusQueued, 0))
	second := hub.Publish(statusEvent("a", jobs.StatusChunking, 0))
	if first.Sequence != 1 || second.Sequence != 2 {
		t.Fatalf("sequences = %d, %d, want 1, 2", first.Sequence, second.Sequence)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("Publish() left timestamp unset")
	}
}

func TestHubLatestIsLastWriteWins(t *testing.T) {
	hub := NewHub(8)

	hub.Publish(statusEvent("a", jobs.StatusQueued, 0))
	hub.Publish(statusEvent("a", jobs.StatusTranscribing, 40))
	hub.Publish(statusEvent("b", jobs.StatusQueued, 0))

	evt, ok := hub.Latest("a")
	if !ok {
		t.Fatal("Latest(a) missing")
	}
	if evt.Status != jobs.StatusTranscribing || evt.Progress != 40 {
		t.Fatalf("Latest(a) = %+v", evt)
	}

	hub.Forget("a")
	if _, ok := hub.Latest("a"); ok {
		t.Fatal("Latest(a) survived Forget")
	}
}

func TestHubFetchFiltersAndResumes(t *testing.T) {
	hub := NewHub(8)
	ctx := context.Background()

	hub.Publish(statusEvent("a", jobs.StatusQueued, 0))
	hub.Publish(statusEvent("b", jobs.StatusQueued, 0))
	hub.Publish(statusEvent("a", jobs.StatusChunking, 0))

	events, next, err := hub.Fetch(ctx, 0, "a", 0, false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Fetch(job=a) returned %d events, want 2", len(events))
	}
	if next != 3 {
		t.Fatalf("next = %d, want 3", next)
	}

	hub.Publish(statusEvent("a", jobs.StatusTranscribing, 25))
	events, _, err = hub.Fetch(ctx, next, "a", 0, false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(events) != 1 || events[0].Status != jobs.StatusTranscribing {
		t.Fatalf("Fetch(since=%d) = %+v", next, events)
	}
}

func TestHubFetchWaitWakesOnPublish(t *testing.T) {
	hub := NewHub(8)

	done := make(chan []Event, 1)
	go func() {
		events, _, _ := hub.Fetch(context.Background(), 0, "", 0, true)
		done <- events
	}()

	time.Sleep(10 * time.Millisecond)
	hub.Publish(statusEvent("a", jobs.StatusQueued, 0))

	select {
	case events := <-done:
		if len(events) != 1 {
			t.Fatalf("Fetch(wait) returned %d events, want 1", len(events))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch(wait) did not wake on publish")
	}
}

func TestHubFetchWaitHonorsContext(t *testing.T) {
	hub := NewHub(8)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := hub.Fetch(ctx, 0, "", 0, true)
	if err == nil {
		t.Fatal("Fetch(wait) returned nil error after context deadline")
	}
}

func TestHubSubscribePushesMatchingEvents(t *testing.T) {
	hub := NewHub(8)

	all := hub.Subscribe("", 4)
	only := hub.Subscribe("b", 4)
	defer hub.Unsubscribe(all)
	defer hub.Unsubscribe(only)

	hub.Publish(statusEvent("a", jobs.StatusQueued, 0))
	hub.Publish(statusEvent("b", jobs.StatusQueued, 0))

	if evt := <-all.Events(); evt.JobID != "a" {
		t.Fatalf("all subscriber first event = %s, want a", evt.JobID)
	}
	if evt := <-all.Events(); evt.JobID != "b" {
		t.Fatalf("all subscriber second event = %s, want b", evt.JobID)
	}
	if evt := <-only.Events(); evt.JobID != "b" {
		t.Fatalf("filtered subscriber event = %s, want b", evt.JobID)
	}
	select {
	case evt := <-only.Events():
		t.Fatalf("filtered subscriber received extra event %+v", evt)
	default:
	}
}

func TestHubDropsWhenSubscriberIsSlow(t *testing.T) {
	hub := NewHub(16)

	sub := hub.Subscribe("", 1)
	defer hub.Unsubscribe(sub)

	hub.Publish(statusEvent("a", jobs.StatusQueued, 0))
	hub.Publish(statusEvent("a", jobs.StatusChunking, 0))
	hub.Publish(statusEvent("a", jobs.StatusTranscribing, 10))

	if sub.Dropped() != 2 {
		t.Fatalf("Dropped() = %d, want 2", sub.Dropped())
	}
	// The slow consumer still catches up through the buffered history.
	events, _, err := hub.Fetch(context.Background(), 0, "a", 0, false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("history has %d events, want 3", len(events))
	}
}

func TestHubRingEvictsOldest(t *testing.T) {
	hub := NewHub(2)

	hub.Publish(statusEvent("a", jobs.StatusQueued, 0))
	hub.Publish(statusEvent("a", jobs.StatusChunking, 0))
	hub.Publish(statusEvent("a", jobs.StatusTranscribing, 10))

	events, next, err := hub.Fetch(context.Background(), 0, "", 0, false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("buffer holds %d events, want 2", len(events))
	}
	if events[0].Sequence != 2 || next != 3 {
		t.Fatalf("oldest retained seq = %d, next = %d", events[0].Sequence, next)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(8)

	sub := hub.Subscribe("", 1)
	hub.Unsubscribe(sub)
	if _, open := <-sub.Events(); open {
		t.Fatal("channel still open after Unsubscribe")
	}
	// Idempotent.
	hub.Unsubscribe(sub)
}

func TestDeliverAfterUnsubscribeIsNoOp(t *testing.T) {
	hub := NewHub(8)

	// Publish snapshots its targets before delivering, so a subscriber can
	// be unsubscribed between snapshot and delivery. Delivery to a closed
	// subscriber must silently drop the event.
	sub := hub.Subscribe("", 1)
	hub.Unsubscribe(sub)
	sub.deliver(statusEvent("a", jobs.StatusQueued, 0))

	if got := sub.Dropped(); got != 0 {
		t.Fatalf("Dropped() = %d after unsubscribe, want 0", got)
	}
}

func TestHubSurvivesSubscriberChurnDuringPublish(t *testing.T) {
	hub := NewHub(64)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					hub.Publish(statusEvent("a", jobs.StatusTranscribing, 10))
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		subs := make([]*Subscriber, 16)
		for j := range subs {
			subs[j] = hub.Subscribe("", 1)
		}
		for _, sub := range subs {
			hub.Unsubscribe(sub)
		}
	}

	close(stop)
	wg.Wait()
}

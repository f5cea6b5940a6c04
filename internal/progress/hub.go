package progress

import (
	"context"
	"sync"
	"time"

	"scribe/internal/jobs"
)

// EventType distinguishes lifecycle transitions from per-chunk updates.
type EventType string

const (
	// EventStatus marks a job status transition.
	EventStatus EventType = "status"
	// EventChunk marks completion of a single chunk.
	EventChunk EventType = "chunk"
)

// Event is a point-in-time snapshot of a job published to the hub. Every
// event carries the full job state, so a consumer that misses events can
// rebuild its view from the latest one alone.
type Event struct {
	Sequence     uint64      `json:"seq"`
	Timestamp    time.Time   `json:"ts"`
	Type         EventType   `json:"type"`
	JobID        string      `json:"jobId"`
	Status       jobs.Status `json:"status"`
	Progress     int         `json:"progress"`
	CurrentChunk int         `json:"currentChunk,omitempty"`
	TotalChunks  int         `json:"totalChunks,omitempty"`
	ChunkText    string      `json:"chunkText,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// FromJob builds a status event from a job snapshot.
func FromJob(job *jobs.Job, kind EventType) Event {
	return Event{
		Type:         kind,
		JobID:        job.ID,
		Status:       job.Status,
		Progress:     job.Progress,
		CurrentChunk: job.CurrentChunk,
		TotalChunks:  job.TotalChunks,
		Error:        job.ErrorMessage,
	}
}

// Subscriber receives pushed events over a buffered channel. When the
// consumer falls behind, events are dropped rather than blocking the
// publisher; Dropped reports how many.
type Subscriber struct {
	jobID string
	ch    chan Event

	mu      sync.Mutex
	closed  bool
	dropped uint64
}

// Events is the subscriber's delivery channel. It is closed on Unsubscribe.
func (s *Subscriber) Events() <-chan Event { return s.ch }

// Dropped reports how many events were discarded because the channel was full.
func (s *Subscriber) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// deliver sends without blocking. The subscriber mutex covers both the
// closed check and the send, so Unsubscribe can never close the channel
// between them.
func (s *Subscriber) deliver(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- evt:
	default:
		s.dropped++
	}
}

// Hub stores recent progress events, wakes long-poll waiters on publish,
// and fans events out to push subscribers. Delivery to subscribers is
// best effort; the buffered history plus per-job snapshots serve catch-up.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
	latest   map[string]Event
	subs     map[*Subscriber]struct{}
}

// NewHub constructs a hub retaining up to capacity events.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 512
	}
	h := &Hub{
		capacity: capacity,
		latest:   make(map[string]Event),
		subs:     make(map[*Subscriber]struct{}),
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish appends an event, records it as the job's latest snapshot, and
// pushes it to matching subscribers.
func (h *Hub) Publish(evt Event) Event {
	h.mu.Lock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	h.latest[evt.JobID] = evt

	targets := make([]*Subscriber, 0, len(h.subs))
	for sub := range h.subs {
		if sub.jobID == "" || sub.jobID == evt.JobID {
			targets = append(targets, sub)
		}
	}
	h.cond.Broadcast()
	h.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(evt)
	}
	return evt
}

// Latest returns the most recent event published for the job.
func (h *Hub) Latest(jobID string) (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	evt, ok := h.latest[jobID]
	return evt, ok
}

// Forget drops the job's latest snapshot. Called when a job is evicted.
func (h *Hub) Forget(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.latest, jobID)
}

// Subscribe registers a push consumer. An empty jobID receives events for
// every job. buffer bounds the delivery channel; a full channel drops.
func (h *Hub) Subscribe(jobID string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscriber{jobID: jobID, ch: make(chan Event, buffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes the consumer and closes its channel. A Publish that
// already snapshotted the subscriber may still run deliver afterwards; the
// closed flag makes that a no-op instead of a send on a closed channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()

	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
	sub.mu.Unlock()
}

// Fetch returns buffered events with sequence greater than since, oldest
// first, optionally filtered to one job. When wait is true and nothing
// matches, Fetch blocks until a matching event arrives or ctx ends.
func (h *Hub) Fetch(ctx context.Context, since uint64, jobID string, limit int, wait bool) ([]Event, uint64, error) {
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.cond.Broadcast()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		events, next := h.snapshotLocked(since, jobID, limit)
		if len(events) > 0 || !wait {
			return events, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
	}
}

func (h *Hub) snapshotLocked(since uint64, jobID string, limit int) ([]Event, uint64) {
	var out []Event
	for _, evt := range h.buffer {
		if evt.Sequence <= since {
			continue
		}
		if jobID != "" && evt.JobID != jobID {
			continue
		}
		out = append(out, evt)
		if len(out) == limit {
			break
		}
	}
	return out, h.nextSeq
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

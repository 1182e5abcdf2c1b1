// Package bus implements the pipeline's two named channels: an in-memory FIFO
// job queue and a best-effort event pub/sub broker. Both are in-process
// Go-concurrency primitives (buffered channels, fan-out subscriber maps)
// held by the Pipeline value rather than package state, so tests can run
// isolated brokers side by side.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is one queued fetch request.
type Job struct {
	JobID      uuid.UUID
	FeedID     uuid.UUID
	EnqueuedAt time.Time
	URL        string
}

// Jobs is an in-memory FIFO queue of Job descriptors. Pop blocks until a job
// is available or ctx is done.
// Queued jobs do not survive a process restart, and a popped job is never
// redelivered: if its consumer fails before committing, the job is lost.
// Because NextRunAt was already advanced at enqueue time, not at completion,
// that feed is enqueued again only once its advanced NextRunAt comes due.
type Jobs struct {
	ch      chan Job
	pending int64
	mu      sync.Mutex
}

// NewJobs constructs a Jobs queue with the given buffer capacity. Capacity
// only bounds how many jobs can be pending without blocking the producer;
// it does not bound total throughput.
func NewJobs(capacity int) *Jobs {
	return &Jobs{ch: make(chan Job, capacity)}
}

// Push enqueues a job. It blocks if the queue is at capacity, mirroring a
// bounded Redis list under backpressure.
func (j *Jobs) Push(job Job) {
	j.mu.Lock()
	j.pending++
	j.mu.Unlock()
	j.ch <- job
}

// Pop blocks until a job is available or ctx is cancelled. The bool result
// is false only when ctx ended first.
func (j *Jobs) Pop(ctx context.Context) (Job, bool) {
	select {
	case job := <-j.ch:
		j.mu.Lock()
		j.pending--
		j.mu.Unlock()
		return job, true
	case <-ctx.Done():
		return Job{}, false
	}
}

// Pending reports the approximate number of jobs awaiting a Pop, for
// diagnostics and metrics; it is not synchronized with concurrent Pop/Push
// beyond the guarantee that it never goes negative.
func (j *Jobs) Pending() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pending
}

// EventType discriminates the four event shapes the pipeline publishes.
type EventType string

const (
	EventConnected   EventType = "connected"
	EventHeartbeat   EventType = "heartbeat"
	EventFetchStatus EventType = "fetch_status"
	EventNewItems    EventType = "new_items"
)

// Event is the one stable wire shape every event is encoded as: a type
// discriminator, an ISO-8601 UTC timestamp (resolving the "Unix-float vs.
// ISO-8601" Open Question in favor of ISO-8601 uniformly), and a
// type-specific data payload.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// FetchStatusData is the payload of a fetch_status event. Category is set
// only on errors and names the coarse failure class ("transport",
// "http_status", "parse", "db") so subscribers can categorize an outcome
// without string-matching Message.
type FetchStatusData struct {
	FeedID   uuid.UUID `json:"feed_id"`
	Status   string    `json:"status"`
	Category string    `json:"category,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// NewItemsData is the payload of a new_items event.
type NewItemsData struct {
	FeedID uuid.UUID `json:"feed_id"`
	Count  int       `json:"count"`
}

// subscriberBufferSize bounds each subscriber's channel; a full channel
// causes Publish to drop the event for that subscriber rather than block,
// per the "publishers must never block fetch progress on publish failure"
// requirement.
const subscriberBufferSize = 64

// Events is a fan-out publish/subscribe broker. Publish never blocks:
// slow or absent subscribers simply miss events.
type Events struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewEvents constructs an empty event broker.
func NewEvents() *Events {
	return &Events{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function the caller must invoke when done listening.
func (e *Events) Subscribe() (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.next
	e.next++
	ch := make(chan Event, subscriberBufferSize)
	e.subs[id] = ch
	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
	}
}

// Publish fans an event out to every current subscriber, best-effort. A
// subscriber whose buffer is full is skipped for this event rather than
// blocking the publisher; events are best-effort and loss is acceptable.
func (e *Events) Publish(evt Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, sub := range e.subs {
		select {
		case sub <- evt:
		default:
		}
	}
}

// SubscriberCount reports how many active subscribers are attached, for
// diagnostics.
func (e *Events) SubscriberCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

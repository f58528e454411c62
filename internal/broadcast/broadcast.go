// Package broadcast fans journal events and progress updates out to live
// observers. Every publish is delivered once, in order, to each subscriber;
// a slow subscriber never blocks the publisher. Each subscriber owns a
// bounded queue that drops its oldest entries on overflow and reports the
// gap with a lag message before delivery resumes.
package broadcast

import (
	"sync"

	"github.com/ShayCichocki/ralphd/pkg/models"
)

// DefaultQueueSize is the per-subscriber queue bound.
const DefaultQueueSize = 256

// ProgressUpdate carries a progress document snapshot for a thread.
type ProgressUpdate struct {
	ThreadID string
	Content  string
}

// Message is one item delivered to a subscriber. Exactly one of the fields
// is set: a journal event, a progress update, or a lag notice (Dropped > 0)
// reporting how many messages were discarded before the one that follows.
type Message struct {
	Event    *models.Event
	Progress *ProgressUpdate
	Dropped  int
}

// Hub is the fan-out point. The zero value is not usable; construct with New.
type Hub struct {
	mu        sync.Mutex
	subs      map[*subscriber]struct{}
	queueSize int
	closed    bool
}

// New creates a hub whose subscribers buffer up to queueSize messages.
// A non-positive queueSize falls back to DefaultQueueSize.
func New(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		subs:      make(map[*subscriber]struct{}),
		queueSize: queueSize,
	}
}

// Subscribe registers a new observer and returns its delivery channel
// together with an unsubscribe function. Only messages published after the
// call are delivered; there is no backfill. The channel is closed on
// unsubscribe and on hub close.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	s := &subscriber{
		out:  make(chan Message),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		max:  h.queueSize,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(s.out)
		return s.out, func() {}
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go s.pump()

	unsubscribe := func() {
		h.mu.Lock()
		delete(h.subs, s)
		h.mu.Unlock()
		s.stop()
	}
	return s.out, unsubscribe
}

// Publish delivers a journal event to every live subscriber.
func (h *Hub) Publish(ev models.Event) {
	h.publish(Message{Event: &ev})
}

// PublishProgress delivers a progress document snapshot to every live
// subscriber.
func (h *Hub) PublishProgress(threadID, content string) {
	h.publish(Message{Progress: &ProgressUpdate{ThreadID: threadID, Content: content}})
}

func (h *Hub) publish(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		s.enqueue(m)
	}
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close tears down the hub and closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}

// subscriber holds one observer's bounded queue. A dedicated goroutine pumps
// queued messages to the out channel so a stalled reader only ever backs up
// its own queue.
type subscriber struct {
	out  chan Message
	wake chan struct{}
	done chan struct{}

	mu      sync.Mutex
	queue   []Message
	dropped int
	max     int

	once sync.Once
}

func (s *subscriber) enqueue(m Message) {
	s.mu.Lock()
	if len(s.queue) >= s.max {
		// Drop the oldest entry; the queue keeps the newest max messages
		// and the hole is reported before they are delivered.
		s.queue = s.queue[1:]
		s.dropped++
	}
	s.queue = append(s.queue, m)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// next pops the next deliverable message: a pending lag notice first, then
// the queue head.
func (s *subscriber) next() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dropped > 0 {
		m := Message{Dropped: s.dropped}
		s.dropped = 0
		return m, true
	}
	if len(s.queue) > 0 {
		m := s.queue[0]
		s.queue = s.queue[1:]
		return m, true
	}
	return Message{}, false
}

func (s *subscriber) pump() {
	defer close(s.out)
	for {
		m, ok := s.next()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}

		select {
		case s.out <- m:
		case <-s.done:
			return
		}
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

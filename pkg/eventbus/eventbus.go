// Package eventbus is the typed pub/sub Event Bus (C8, spec.md §4.8):
// ordered per-topic delivery to subscribers, with the dispatch adapted from
// the teacher's internal/application/observer package — Register/Unregister
// by name, panic-recovering notification, optional logger — generalized from
// the teacher's single fan-out-everything Notify into one goroutine per
// topic so that delivery within a topic is strictly ordered (spec.md §5:
// "Event bus delivery is in-order within a topic"), which the teacher's
// all-topics-in-one-stream design doesn't need to guarantee.
package eventbus

import (
	"sync"
)

// Topic names the lifecycle channels spec.md §4.8 defines.
type Topic string

const (
	CheckScheduled       Topic = "CheckScheduled"
	CheckStarted         Topic = "CheckStarted"
	CheckCompleted       Topic = "CheckCompleted"
	CheckErrored         Topic = "CheckErrored"
	StateTransition      Topic = "StateTransition"
	HumanInputRequested  Topic = "HumanInputRequested"
	SnapshotSaved        Topic = "SnapshotSaved"
	Shutdown             Topic = "Shutdown"
)

// Envelope wraps a topic's payload as delivered to subscribers.
type Envelope struct {
	Topic   Topic
	Payload any
}

// Handler receives one envelope. Handlers for the same topic are invoked
// sequentially, in publish order; a slow or panicking handler only delays
// or loses its own topic's stream, never another topic's.
type Handler func(Envelope)

const defaultQueueDepth = 256

// subscription is one registered handler plus the unsubscribe token.
type subscription struct {
	id      uint64
	handler Handler
}

// topicWorker owns one topic's ordered delivery queue and subscriber list.
type topicWorker struct {
	mu      sync.Mutex
	subs    []subscription
	queue   chan Envelope
	closeCh chan struct{}
	once    sync.Once
}

func newTopicWorker() *topicWorker {
	w := &topicWorker{
		queue:   make(chan Envelope, defaultQueueDepth),
		closeCh: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *topicWorker) run() {
	for {
		select {
		case env := <-w.queue:
			w.deliver(env)
		case <-w.closeCh:
			return
		}
	}
}

func (w *topicWorker) deliver(env Envelope) {
	w.mu.Lock()
	subsCopy := make([]subscription, len(w.subs))
	copy(subsCopy, w.subs)
	w.mu.Unlock()

	for _, s := range subsCopy {
		w.invoke(s.handler, env)
	}
}

// invoke recovers a panicking handler so it can never take down the
// worker goroutine or block delivery to the next subscriber.
func (w *topicWorker) invoke(h Handler, env Envelope) {
	defer func() { _ = recover() }()
	h(env)
}

func (w *topicWorker) subscribe(h Handler, nextID *uint64, mu *sync.Mutex) uint64 {
	mu.Lock()
	*nextID++
	id := *nextID
	mu.Unlock()

	w.mu.Lock()
	w.subs = append(w.subs, subscription{id: id, handler: h})
	w.mu.Unlock()
	return id
}

func (w *topicWorker) unsubscribe(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, s := range w.subs {
		if s.id == id {
			w.subs = append(w.subs[:i], w.subs[i+1:]...)
			return
		}
	}
}

func (w *topicWorker) publish(env Envelope) {
	// Back-pressure by queue depth, not by dropping (spec.md §9): a full
	// queue blocks the publisher rather than discarding the event.
	w.queue <- env
}

func (w *topicWorker) shutdown() {
	w.once.Do(func() { close(w.closeCh) })
}

// Bus is the process-wide (or per-run) Event Bus.
type Bus struct {
	mu      sync.Mutex
	topics  map[Topic]*topicWorker
	nextID  uint64
	idMu    sync.Mutex
}

// New returns an empty Bus. Workers are created lazily per topic on first
// Subscribe or Publish.
func New() *Bus {
	return &Bus{topics: make(map[Topic]*topicWorker)}
}

func (b *Bus) workerFor(topic Topic) *topicWorker {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.topics[topic]
	if !ok {
		w = newTopicWorker()
		b.topics[topic] = w
	}
	return w
}

// Subscription is an opaque handle returned by Subscribe, passed back to
// Unsubscribe. Unsubscribe is idempotent (spec.md §4.8).
type Subscription struct {
	topic Topic
	id    uint64
}

// Subscribe registers h to receive every envelope published to topic.
func (b *Bus) Subscribe(topic Topic, h Handler) Subscription {
	w := b.workerFor(topic)
	id := w.subscribe(h, &b.nextID, &b.idMu)
	return Subscription{topic: topic, id: id}
}

// Unsubscribe removes a subscription. Safe to call more than once.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	w, ok := b.topics[sub.topic]
	b.mu.Unlock()
	if !ok {
		return
	}
	w.unsubscribe(sub.id)
}

// Publish delivers payload to every current subscriber of topic, in
// publish order relative to other Publish calls on the same topic.
func (b *Bus) Publish(topic Topic, payload any) {
	w := b.workerFor(topic)
	w.publish(Envelope{Topic: topic, Payload: payload})
}

// Close stops every topic worker. A Bus is not reusable after Close.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.topics {
		w.shutdown()
	}
}

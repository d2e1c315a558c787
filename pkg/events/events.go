package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventServerCheckCompleted EventType = "server.check.completed"
	EventServerCheckFailed    EventType = "server.check.failed"
	EventServerUnreachable    EventType = "server.unreachable"
	EventContainerRestarted   EventType = "container.restarted"
	EventDiskUsageHigh        EventType = "disk.usage.high"
	EventTaskFailed           EventType = "task.failed"
)

// Event is something that happened to a managed server
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	ServerID  string
	TeamID    string // empty for events not addressed to a team
	Message   string
	Metadata  map[string]string
}

// Subscriber is a channel that receives events. It is closed by
// Unsubscribe or when the broker stops.
type Subscriber chan *Event

// Filter selects the events a subscriber receives
type Filter func(*Event) bool

// ForTypes accepts events of the given types
func ForTypes(types ...EventType) Filter {
	set := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(e *Event) bool {
		_, ok := set[e.Type]
		return ok
	}
}

// ForTeam accepts events addressed to teamID
func ForTeam(teamID string) Filter {
	return func(e *Event) bool { return e.TeamID == teamID }
}

const (
	brokerBuffer     = 100
	subscriberBuffer = 50
)

// Broker fans published events out to subscribers. A subscriber whose
// buffer is full misses the event; Dropped counts those misses.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber][]Filter
	stopped     bool

	eventCh  chan *Event
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	dropped  atomic.Uint64
}

// NewBroker creates a stopped broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber][]Filter),
		eventCh:     make(chan *Event, brokerBuffer),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start launches the distribution loop
func (b *Broker) Start() {
	if b.started.CompareAndSwap(false, true) {
		go b.run()
	}
}

// Stop ends distribution and closes every subscriber channel. Events still
// buffered are discarded. Safe to call more than once.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		if b.started.Load() {
			<-b.doneCh
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		b.stopped = true
		for sub := range b.subscribers {
			close(sub)
		}
		b.subscribers = nil
	})
}

// Subscribe registers a subscriber receiving events accepted by every filter.
// Subscribing to a stopped broker returns a closed channel.
func (b *Broker) Subscribe(filters ...Filter) Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, subscriberBuffer)
	if b.stopped {
		close(sub)
		return sub
	}
	b.subscribers[sub] = filters
	return sub
}

// Unsubscribe removes sub and closes it. Unknown subscribers are ignored.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// Publish queues event for distribution, filling in ID and Timestamp. It
// blocks while the broker buffer is full and returns immediately once the
// broker is stopped.
func (b *Broker) Publish(event *Event) {
	_ = b.PublishContext(context.Background(), event)
}

// PublishContext is Publish bounded by ctx. It returns ctx.Err() when ctx is
// done before the broker accepts the event.
func (b *Broker) PublishContext(ctx context.Context, event *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
		return nil
	case <-b.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many deliveries were skipped because a subscriber was full
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Broker) run() {
	defer close(b.doneCh)
	for {
		select {
		case event := <-b.eventCh:
			b.deliver(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) deliver(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub, filters := range b.subscribers {
		if !accepts(filters, event) {
			continue
		}
		select {
		case sub <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

func accepts(filters []Filter, event *Event) bool {
	for _, f := range filters {
		if !f(event) {
			return false
		}
	}
	return true
}

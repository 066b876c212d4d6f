package event

import (
	"sync"

	"github.com/google/uuid"
)

// EventType 定义事件类型
type EventType string

const (
	EventTasksSynced       EventType = "tasks_synced"
	EventOptionsSynced     EventType = "options_synced"
	EventConnectionChanged EventType = "connection_changed"
	EventSyncFailed        EventType = "sync_failed"
)

// AllTypes lists every event the session publishes, in a stable order.
var AllTypes = []EventType{
	EventTasksSynced,
	EventOptionsSynced,
	EventConnectionChanged,
	EventSyncFailed,
}

// Event 代表一个会话事件
type Event struct {
	Type    EventType
	Payload interface{}
}

// Handler 处理事件的函数签名
type Handler func(event Event)

// Bus delivers every event to each subscriber of its topic in publish order.
// Publish never blocks on a subscriber.
type Bus interface {
	Subscribe(topic EventType, handler Handler) string // 返回 Subscription ID
	Unsubscribe(topic EventType, subID string)
	Publish(topic EventType, payload interface{})
}

// subscription 有自己的队列和投递协程，慢订阅者只拖慢自己
type subscription struct {
	id      string
	handler Handler

	mu      sync.Mutex
	pending []Event
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newSubscription(handler Handler) *subscription {
	sub := &subscription{
		id:      uuid.NewString(),
		handler: handler,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go sub.run()
	return sub
}

func (s *subscription) enqueue(evt Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, evt)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.pending = nil
	s.mu.Unlock()
	close(s.done)
}

func (s *subscription) run() {
	for {
		select {
		case <-s.wake:
		case <-s.done:
			return
		}
		for {
			s.mu.Lock()
			if s.closed || len(s.pending) == 0 {
				s.mu.Unlock()
				break
			}
			evt := s.pending[0]
			s.pending[0] = Event{}
			s.pending = s.pending[1:]
			s.mu.Unlock()

			s.handler(evt)
		}
	}
}

// InMemoryBus is the in-process Bus.
type InMemoryBus struct {
	mu   sync.RWMutex
	subs map[EventType][]*subscription
}

// GlobalBus 全局单例
var GlobalBus Bus = NewInMemoryBus()

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		subs: make(map[EventType][]*subscription),
	}
}

func (b *InMemoryBus) Subscribe(topic EventType, handler Handler) string {
	sub := newSubscription(handler)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()
	return sub.id
}

// Unsubscribe stops delivery to subID. Events still queued for it are dropped.
func (b *InMemoryBus) Unsubscribe(topic EventType, subID string) {
	b.mu.Lock()
	subs := b.subs[topic]
	for i, sub := range subs {
		if sub.id == subID {
			next := make([]*subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			b.subs[topic] = append(next, subs[i+1:]...)
			b.mu.Unlock()
			sub.close()
			return
		}
	}
	b.mu.Unlock()
}

// Publish queues the event for every current subscriber of topic. Two events published by the same
// goroutine reach each subscriber in that order.
func (b *InMemoryBus) Publish(topic EventType, payload interface{}) {
	evt := Event{Type: topic, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[topic] {
		sub.enqueue(evt)
	}
}

// On subscribes fn to the payloads of topic that have type T. Other payloads are ignored.
func On[T any](b Bus, topic EventType, fn func(T)) string {
	return b.Subscribe(topic, func(e Event) {
		if p, ok := e.Payload.(T); ok {
			fn(p)
		}
	})
}

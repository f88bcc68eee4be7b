package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

const subscriptionBuffer = 16

// stateEvents describe the current daemon state rather than a change. The
// latest one of each is replayed to new subscribers so a client that
// connects late still knows whether a controller is connected, emulation
// is running and which wizard step is active.
var stateEvents = map[string]bool{
	ConnectionState: true,
	EmulationState:  true,
	WizardStep:      true,
}

// Subscription is one subscriber of an EventHub. Events arrive on C in
// publish order. C is closed by Unsubscribe.
type Subscription struct {
	C chan Event

	names   map[string]struct{}
	dropped atomic.Uint64
}

func (s *Subscription) wants(name string) bool {
	if len(s.names) == 0 {
		return true
	}
	_, ok := s.names[name]
	return ok
}

// Dropped returns how many events were discarded because C was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// EventHub fans out daemon events to subscribers. Publish never blocks:
// a subscriber that falls behind loses events.
type EventHub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
	last map[string]Event
}

func NewEventHub() *EventHub {
	return &EventHub{
		subs: make(map[*Subscription]struct{}),
		last: make(map[string]Event),
	}
}

// Subscribe registers a subscriber for names, or for every event if names
// is empty. The latest state events it wants are queued first.
func (h *EventHub) Subscribe(names ...string) *Subscription {
	sub := &Subscription{C: make(chan Event, subscriptionBuffer)}
	if len(names) > 0 {
		sub.names = make(map[string]struct{}, len(names))
		for _, n := range names {
			sub.names[n] = struct{}{}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, name := range []string{ConnectionState, EmulationState, WizardStep} {
		if ev, ok := h.last[name]; ok && sub.wants(name) {
			sub.C <- ev
		}
	}
	h.subs[sub] = struct{}{}
	return sub
}

func (h *EventHub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.C)
	}
	h.mu.Unlock()
}

// Subscribers returns the number of live subscriptions.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Last returns the latest published state event called name.
func (h *EventHub) Last(name string) (Event, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ev, ok := h.last[name]
	return ev, ok
}

func (h *EventHub) Publish(name string, payload any) {
	if h == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).WithField("event", name).Error("failed to marshal event")
		return
	}
	msg := Event{Name: name, Data: b}

	// The write lock keeps the replay in Subscribe ordered before any
	// event published after it.
	h.mu.Lock()
	defer h.mu.Unlock()
	if stateEvents[name] {
		h.last[name] = msg
	}
	for sub := range h.subs {
		if !sub.wants(name) {
			continue
		}
		select {
		case sub.C <- msg:
		default:
			if n := sub.dropped.Add(1); n == 1 || n%100 == 0 {
				logrus.WithFields(logrus.Fields{
					"event":   name,
					"dropped": n,
				}).Debug("event subscriber is slow, dropping events")
			}
		}
	}
}

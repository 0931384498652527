// Package realtime fans out "split changed" events to subscribers.
package realtime

import (
	"log/slog"
	"sync"
	"time"
)

// Event tells a subscriber that a split changed and should be refetched.
type Event struct {
	SplitID string
	Version int64
	Reason  string
	At      time.Time
}

// subscriberBuffer is how many events a slow subscriber may lag behind
// before events are dropped.
const subscriberBuffer = 16

type subscriber struct {
	ch chan Event
}

// Hub keeps one room per split. It implements reconcile.RealtimeRelay.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*subscriber]struct{})}
}

// Subscribe joins the room of a split. The returned cancel function leaves
// the room and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(splitID string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}

	h.mu.Lock()
	room, ok := h.rooms[splitID]
	if !ok {
		room = make(map[*subscriber]struct{})
		h.rooms[splitID] = room
	}
	room[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if room, ok := h.rooms[splitID]; ok {
				delete(room, sub)
				if len(room) == 0 {
					delete(h.rooms, splitID)
				}
			}
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// SplitChanged broadcasts to the split's room without blocking. A subscriber
// whose buffer is full misses the event.
func (h *Hub) SplitChanged(splitID string, version int64, reason string) {
	ev := Event{SplitID: splitID, Version: version, Reason: reason, At: time.Now()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.rooms[splitID] {
		select {
		case sub.ch <- ev:
		default:
			slog.Debug("Dropped realtime event for slow subscriber", "split_id", splitID, "version", version)
		}
	}
}

// Subscribers returns the number of subscribers watching a split.
func (h *Hub) Subscribers(splitID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[splitID])
}

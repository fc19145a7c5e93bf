package server

import (
	"log/slog"
	"sync"

	"github.com/oszuidwest/zwfm-dictation/internal/types"
)

// subscriberBuffer is the per-client queue length for state messages.
// Messages beyond it are dropped.
const subscriberBuffer = 32

// Subscription is one client's view of the hub. State messages are queued
// in order; animation frames are coalesced so only the newest is pending.
type Subscription struct {
	updates chan any
	frames  chan any
	cancel  func()
}

// Updates delivers listen changes and other published messages.
func (s *Subscription) Updates() <-chan any { return s.updates }

// Frames delivers the latest animation frame.
func (s *Subscription) Frames() <-chan any { return s.frames }

// Close unregisters the subscription and closes both channels.
// It is safe to call more than once.
func (s *Subscription) Close() { s.cancel() }

// Hub holds what the page shows and fans it out to connected clients.
// It implements the controller's Display. It is safe for concurrent use.
type Hub struct {
	mu          sync.Mutex
	listen      types.ListenStatus
	subscribers map[*Subscription]struct{}
	onClients   func(n int)
}

// NewHub creates a Hub in the idle state.
func NewHub() *Hub {
	return &Hub{
		listen:      types.ListenStatus{State: "idle"},
		subscribers: make(map[*Subscription]struct{}),
	}
}

// OnClientsChanged registers fn to be called with the subscriber count whenever it changes.
func (h *Hub) OnClientsChanged(fn func(n int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onClients = fn
}

// Listen returns the current listen status.
func (h *Hub) Listen() types.ListenStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.listen
}

// SetStatus replaces the status label text.
func (h *Hub) SetStatus(status string) {
	h.update(func(l *types.ListenStatus) { l.Status = status })
}

// SetTranscript replaces the text area contents.
func (h *Hub) SetTranscript(text string) {
	h.update(func(l *types.ListenStatus) { l.Transcript = text })
}

// SetState records the listen controller state.
func (h *Hub) SetState(state string) {
	h.update(func(l *types.ListenStatus) { l.State = state })
}

func (h *Hub) update(fn func(*types.ListenStatus)) {
	h.mu.Lock()
	fn(&h.listen)
	msg := types.WSListenResponse{Type: "listen", Listen: h.listen}
	h.broadcastLocked(msg)
	h.mu.Unlock()
}

// Publish queues msg for every subscriber without blocking.
func (h *Hub) Publish(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(msg)
}

func (h *Hub) broadcastLocked(msg any) {
	for sub := range h.subscribers {
		select {
		case sub.updates <- msg:
		default:
			// Slow client; it will catch up on the next status message.
		}
	}
}

// PublishFrame replaces any frame a subscriber has not read yet with frame.
func (h *Hub) PublishFrame(frame any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		select {
		case <-sub.frames:
		default:
		}
		// Only this goroutine sends while h.mu is held, so the slot is free.
		sub.frames <- frame
	}
}

// Subscribe registers a client. Close the returned subscription to unregister it.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		updates: make(chan any, subscriberBuffer),
		frames:  make(chan any, 1),
	}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	n, notify := len(h.subscribers), h.onClients
	h.mu.Unlock()

	if notify != nil {
		notify(n)
	}
	slog.Debug("WebSocket client subscribed", "clients", n)

	var once sync.Once
	sub.cancel = func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, sub)
			close(sub.updates)
			close(sub.frames)
			n, notify := len(h.subscribers), h.onClients
			h.mu.Unlock()

			if notify != nil {
				notify(n)
			}
		})
	}
	return sub
}

// Clients returns the number of subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Package realtime fans out state changes to WebSocket subscribers grouped
// by organization. Delivery is best-effort and nothing is replayed.
package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/outager/outager/internal/domain"
)

// Hub errors.
var (
	ErrSubscriberClosed = errors.New("subscriber is closed")
	ErrTooManyGroups    = errors.New("subscribed to too many organizations")
)

// Default hub limits.
const (
	DefaultBufferSize       = 64
	DefaultMaxOrganizations = 16
)

// HubConfig contains hub settings.
type HubConfig struct {
	// BufferSize is the per-subscriber queue length. A subscriber whose
	// queue is full when a message arrives is disconnected.
	BufferSize int
	// MaxOrganizations caps the groups one subscriber may join.
	MaxOrganizations int
}

// Message is the frame delivered to subscribers.
type Message struct {
	Event          domain.RealtimeEvent `json:"event"`
	OrganizationID string               `json:"organization_id"`
	Data           json.RawMessage      `json:"data"`
}

// Subscriber is one connection's view of the hub.
type Subscriber struct {
	id     string
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	groups map[string]struct{} // guarded by Hub.mu
}

// ID returns the subscriber id used in logs.
func (s *Subscriber) ID() string {
	return s.id
}

// Messages returns the queue of encoded frames for this subscriber.
func (s *Subscriber) Messages() <-chan []byte {
	return s.send
}

// Done is closed when the hub drops the subscriber.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Subscriber) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

type group struct {
	mu   sync.Mutex // serializes publishes to the group
	subs map[*Subscriber]struct{}
}

// Hub is the in-process broadcast registry. Group membership changes take
// the write lock; publishes take the read lock plus the group's own lock,
// so publishes to one organization are delivered in call order while
// different organizations proceed in parallel.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]*group

	bufferSize int
	maxGroups  int
	logger     *slog.Logger
}

// NewHub creates a hub.
func NewHub(cfg HubConfig, logger *slog.Logger) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.MaxOrganizations <= 0 {
		cfg.MaxOrganizations = DefaultMaxOrganizations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		groups:     make(map[string]*group),
		bufferSize: cfg.BufferSize,
		maxGroups:  cfg.MaxOrganizations,
		logger:     logger,
	}
}

// NewSubscriber creates a subscriber that belongs to no group yet.
func (h *Hub) NewSubscriber() *Subscriber {
	connectedSubscribers.Inc()
	return &Subscriber{
		id:     uuid.NewString(),
		send:   make(chan []byte, h.bufferSize),
		done:   make(chan struct{}),
		groups: make(map[string]struct{}),
	}
}

// Subscribe adds sub to the group of organizationID. Any id is accepted;
// ids nobody publishes to simply never deliver.
func (h *Hub) Subscribe(sub *Subscriber, organizationID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.closed() {
		return ErrSubscriberClosed
	}
	if _, ok := sub.groups[organizationID]; ok {
		return nil
	}
	if len(sub.groups) >= h.maxGroups {
		return ErrTooManyGroups
	}

	g, ok := h.groups[organizationID]
	if !ok {
		g = &group{subs: make(map[*Subscriber]struct{})}
		h.groups[organizationID] = g
		activeGroups.Inc()
	}
	g.subs[sub] = struct{}{}
	sub.groups[organizationID] = struct{}{}
	return nil
}

// Unsubscribe removes sub from one group.
func (h *Hub) Unsubscribe(sub *Subscriber, organizationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(sub, organizationID)
}

// Remove drops sub from every group and closes it. Safe to call more than once.
func (h *Hub) Remove(sub *Subscriber) {
	h.mu.Lock()
	for organizationID := range sub.groups {
		h.leaveLocked(sub, organizationID)
	}
	wasOpen := !sub.closed()
	sub.close()
	h.mu.Unlock()

	if wasOpen {
		connectedSubscribers.Dec()
	}
}

func (h *Hub) leaveLocked(sub *Subscriber, organizationID string) {
	delete(sub.groups, organizationID)
	g, ok := h.groups[organizationID]
	if !ok {
		return
	}
	delete(g.subs, sub)
	if len(g.subs) == 0 {
		delete(h.groups, organizationID)
		activeGroups.Dec()
	}
}

// Publish delivers payload to every subscriber of organizationID without
// blocking. Subscribers that cannot keep up are disconnected.
func (h *Hub) Publish(organizationID string, event domain.RealtimeEvent, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode realtime payload", "event", event, "error", err)
		return
	}
	frame, err := json.Marshal(Message{Event: event, OrganizationID: organizationID, Data: data})
	if err != nil {
		h.logger.Error("failed to encode realtime message", "event", event, "error", err)
		return
	}
	publishedMessages.WithLabelValues(string(event)).Inc()

	var slow []*Subscriber

	h.mu.RLock()
	if g, ok := h.groups[organizationID]; ok {
		g.mu.Lock()
		for sub := range g.subs {
			select {
			case sub.send <- frame:
				deliveredMessages.Inc()
			default:
				slow = append(slow, sub)
			}
		}
		g.mu.Unlock()
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		droppedSubscribers.Inc()
		h.logger.Warn("dropping slow realtime subscriber",
			"subscriber_id", sub.id,
			"organization_id", organizationID,
			"event", event,
		)
		h.Remove(sub)
	}
}

// SubscriberCount returns the number of subscribers of organizationID.
func (h *Hub) SubscriberCount(organizationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if g, ok := h.groups[organizationID]; ok {
		return len(g.subs)
	}
	return 0
}

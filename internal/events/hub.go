// Package events fans out lightweight change notifications to the clients
// of a room. Notifications never carry game state; a subscriber reacts by
// re-fetching the authoritative snapshot, so lost or duplicate deliveries
// are tolerable.
package events

import (
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Category tags what changed so clients can scope their re-fetch.
type Category string

const (
	CategoryRoomUpdated        Category = "room_updated"
	CategoryRoomDeleted        Category = "room_deleted"
	CategoryMembershipUpdated  Category = "membership_updated"
	CategoryDeckSelected       Category = "deck_selected"
	CategoryMatchStarted       Category = "match_started"
	CategoryMatchStopped       Category = "match_stopped"
	CategoryMatchCompleted     Category = "match_completed"
	CategoryPhaseChanged       Category = "phase_changed"
	CategoryCardMoved          Category = "card_moved"
	CategoryCardTapped         Category = "card_tapped"
	CategoryCardFlipped        Category = "card_flipped"
	CategoryCombatChanged      Category = "combat_changed"
	CategoryBattlefieldUpdated Category = "battlefield_updated"
	CategoryLifeUpdated        Category = "life_updated"
	CategoryPoisonUpdated      Category = "poison_updated"
	CategoryLibraryShuffled    Category = "library_shuffled"
)

// Notification is the wire signal: which room changed and how.
type Notification struct {
	RoomID   string    `json:"room_id"`
	Category Category  `json:"category"`
	At       time.Time `json:"at"`
}

// subscriberBuffer bounds how far a slow client may lag before it starts
// missing notifications and must rely on reconcile-by-refetch.
const subscriberBuffer = 32

// Subscription is one attached client. Notifications arrive on C in the
// order they were published for the room until Unsubscribe or hub close.
type Subscription struct {
	ID            string
	RoomID        string
	ParticipantID string

	C      chan Notification
	hub    *Hub
	once   sync.Once
	closed bool
	mu     sync.Mutex
}

// Unsubscribe detaches the client. Idempotent; other subscribers are
// unaffected and no room or match state changes.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.remove(s)
		s.mu.Lock()
		s.closed = true
		close(s.C)
		s.mu.Unlock()
	})
}

// deliver pushes a notification without ever blocking the publisher.
// A full buffer means the client is too slow; it drops the signal and
// recovers on its next re-fetch.
func (s *Subscription) deliver(n Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.C <- n:
		return true
	default:
		return false
	}
}

// Hub is the per-room publish/subscribe channel. It holds no authoritative
// game state and is injected into every mutator rather than shared as a
// process-wide singleton.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Subscription]struct{}
	nextID int
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe attaches a client to a room's notification stream.
func (h *Hub) Subscribe(roomID, participantID string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		ID:            subID(h.nextID),
		RoomID:        roomID,
		ParticipantID: participantID,
		C:             make(chan Notification, subscriberBuffer),
		hub:           h,
	}

	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.rooms[roomID] = subs
	}
	subs[sub] = struct{}{}

	h.logger.Debug("subscriber attached",
		zap.String("room_id", roomID),
		zap.String("participant_id", participantID),
		zap.Int("room_subscribers", len(subs)),
	)

	return sub
}

// Publish delivers a notification to every current subscriber of the room,
// at most once per subscriber. Best-effort: it never blocks and never
// returns an error to the mutator that published.
func (h *Hub) Publish(roomID string, category Category) {
	n := Notification{RoomID: roomID, Category: category, At: time.Now()}

	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.rooms[roomID]))
	for sub := range h.rooms[roomID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	dropped := 0
	for _, sub := range subs {
		if !sub.deliver(n) {
			dropped++
		}
	}

	if dropped > 0 {
		h.logger.Debug("notifications dropped for slow subscribers",
			zap.String("room_id", roomID),
			zap.String("category", string(category)),
			zap.Int("dropped", dropped),
		)
	}
}

// SubscriberCount returns how many clients are attached to a room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// CloseRoom detaches every subscriber of a room, closing their channels.
// Used when a room is deleted.
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	subs := h.rooms[roomID]
	delete(h.rooms, roomID)
	h.mu.Unlock()

	for sub := range subs {
		sub.once.Do(func() {
			sub.mu.Lock()
			sub.closed = true
			close(sub.C)
			sub.mu.Unlock()
		})
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.rooms[sub.RoomID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.rooms, sub.RoomID)
		}
	}
}

func subID(n int) string {
	return "sub-" + strconv.Itoa(n)
}

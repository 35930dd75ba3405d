// Package room implements the session registry and the membership state
// machine: rooms keyed by id and invite code, participant admission, deck
// binding, and the waiting/in_progress/completed lifecycle.
package room

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spindown/spindown-server-go/internal/errs"
	"github.com/spindown/spindown-server-go/internal/match"
)

// Visibility controls whether a room shows up in public listings.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Bracket is the informational play-style classifier.
type Bracket string

const (
	BracketPrecon    Bracket = "precon"
	BracketCasual    Bracket = "casual"
	BracketOptimized Bracket = "optimized"
	BracketCEDH      Bracket = "cedh"
)

// ValidBracket reports whether b is one of the fixed classifiers.
func ValidBracket(b Bracket) bool {
	switch b {
	case BracketPrecon, BracketCasual, BracketOptimized, BracketCEDH:
		return true
	}
	return false
}

// Status is the room lifecycle tag.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// MemberStatus is the admission state of one membership.
type MemberStatus string

const (
	MemberPending  MemberStatus = "pending"
	MemberAccepted MemberStatus = "accepted"
	MemberRejected MemberStatus = "rejected"
)

// Membership is one participant's admission record within a room.
type Membership struct {
	ID            string
	ParticipantID string
	Name          string
	Status        MemberStatus
	IsHost        bool
	DeckID        string
	JoinedAt      time.Time
}

// Room is one hosted game session. Mutations go through the Manager,
// which serializes them on the room's own mutex so unrelated rooms never
// contend.
type Room struct {
	mu sync.RWMutex

	ID          string
	InviteCode  string
	Name        string
	Description string
	HostID      string
	Visibility  Visibility
	Capacity    int
	Bracket     Bracket
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time

	members     map[string]*Membership // keyed by membership id
	memberOrder []string               // join order
	match       *match.Match
}

func newRoom(hostID, hostName, name, description string, capacity int, bracket Bracket, visibility Visibility, inviteCode string) *Room {
	now := time.Now()
	r := &Room{
		ID:          uuid.New().String(),
		InviteCode:  inviteCode,
		Name:        name,
		Description: description,
		HostID:      hostID,
		Visibility:  visibility,
		Capacity:    capacity,
		Bracket:     bracket,
		Status:      StatusWaiting,
		CreatedAt:   now,
		UpdatedAt:   now,
		members:     make(map[string]*Membership),
	}

	host := &Membership{
		ID:            uuid.New().String(),
		ParticipantID: hostID,
		Name:          hostName,
		Status:        MemberAccepted,
		IsHost:        true,
		JoinedAt:      now,
	}
	r.members[host.ID] = host
	r.memberOrder = append(r.memberOrder, host.ID)

	return r
}

func (r *Room) touch() {
	r.UpdatedAt = time.Now()
}

func (r *Room) membershipByParticipant(participantID string) *Membership {
	for _, id := range r.memberOrder {
		if m := r.members[id]; m.ParticipantID == participantID {
			return m
		}
	}
	return nil
}

func (r *Room) membership(membershipID string) *Membership {
	return r.members[membershipID]
}

func (r *Room) acceptedCount() int {
	n := 0
	for _, m := range r.members {
		if m.Status == MemberAccepted {
			n++
		}
	}
	return n
}

// acceptedInJoinOrder returns accepted memberships in join order, the
// deterministic seating used when a match starts.
func (r *Room) acceptedInJoinOrder() []*Membership {
	out := make([]*Membership, 0, len(r.memberOrder))
	for _, id := range r.memberOrder {
		if m := r.members[id]; m.Status == MemberAccepted {
			out = append(out, m)
		}
	}
	return out
}

func (r *Room) removeMembership(membershipID string) {
	delete(r.members, membershipID)
	for i, id := range r.memberOrder {
		if id == membershipID {
			r.memberOrder = append(r.memberOrder[:i], r.memberOrder[i+1:]...)
			break
		}
	}
}

// requestJoin admits a participant into pending state. Idempotent per
// participant: a second request while the first is pending or accepted
// reports Conflict and never creates a second membership.
func (r *Room) requestJoin(participantID, name string) (*Membership, error) {
	if r.Status != StatusWaiting {
		return nil, errs.State("game has already started")
	}

	if existing := r.membershipByParticipant(participantID); existing != nil {
		switch existing.Status {
		case MemberAccepted:
			return nil, errs.Conflict("you are already in this game")
		case MemberPending:
			return nil, errs.Conflict("your join request is pending")
		case MemberRejected:
			return nil, errs.Conflict("your join request was rejected")
		}
	}

	if r.acceptedCount() >= r.Capacity {
		return nil, errs.Capacity("game is full")
	}

	m := &Membership{
		ID:            uuid.New().String(),
		ParticipantID: participantID,
		Name:          name,
		Status:        MemberPending,
		JoinedAt:      time.Now(),
	}
	r.members[m.ID] = m
	r.memberOrder = append(r.memberOrder, m.ID)
	r.touch()
	return m, nil
}

func (r *Room) accept(membershipID, actorID string) error {
	if actorID != r.HostID {
		return errs.Permission("only the host can accept players")
	}
	if r.Status != StatusWaiting {
		return errs.State("game is not waiting for players")
	}

	m := r.membership(membershipID)
	if m == nil {
		return errs.NotFound("player not found in this game")
	}
	if m.Status != MemberPending {
		return errs.State("player is not pending")
	}
	if r.acceptedCount() >= r.Capacity {
		return errs.Capacity("game is full")
	}

	m.Status = MemberAccepted
	r.touch()
	return nil
}

func (r *Room) reject(membershipID, actorID string) error {
	if actorID != r.HostID {
		return errs.Permission("only the host can reject players")
	}
	if r.Status != StatusWaiting {
		return errs.State("game is not waiting for players")
	}

	m := r.membership(membershipID)
	if m == nil {
		return errs.NotFound("player not found in this game")
	}
	if m.Status != MemberPending {
		return errs.State("player is not pending")
	}

	m.Status = MemberRejected
	r.touch()
	return nil
}

func (r *Room) selectDeck(actorID, deckID string) error {
	if r.Status != StatusWaiting {
		return errs.State("decks can only change while the game is waiting")
	}

	m := r.membershipByParticipant(actorID)
	if m == nil {
		return errs.NotFound("you are not in this game")
	}
	if m.Status != MemberAccepted {
		return errs.State("your join request must be accepted first")
	}

	m.DeckID = deckID
	r.touch()
	return nil
}

// leave removes the actor's membership. The host may not leave while the
// room exists; they delete the room instead.
func (r *Room) leave(actorID string) error {
	m := r.membershipByParticipant(actorID)
	if m == nil {
		return errs.NotFound("you are not in this game")
	}
	if m.IsHost {
		return errs.Permission("host cannot leave; delete the game instead")
	}
	if r.Status != StatusWaiting {
		return errs.State("can only leave while the game is waiting")
	}

	r.removeMembership(m.ID)
	r.touch()
	return nil
}

// start validates preconditions and returns the seats for the new match.
func (r *Room) start(actorID string) ([]*Membership, error) {
	if actorID != r.HostID {
		return nil, errs.Permission("only the host can start the game")
	}
	if r.Status != StatusWaiting {
		return nil, errs.State("game is not waiting")
	}

	accepted := r.acceptedInJoinOrder()
	if len(accepted) < 2 {
		return nil, errs.State("need at least 2 players to start")
	}
	for _, m := range accepted {
		if m.DeckID == "" {
			return nil, errs.State("all players must select their decks before starting")
		}
	}

	return accepted, nil
}

func (r *Room) stop(actorID string) error {
	if actorID != r.HostID {
		return errs.Permission("only the host can stop the game")
	}
	if r.Status != StatusInProgress {
		return errs.State("game is not in progress")
	}

	r.Status = StatusWaiting
	r.match = nil
	r.touch()
	return nil
}

func (r *Room) complete(actorID string) error {
	if actorID != r.HostID {
		return errs.Permission("only the host can complete the game")
	}
	if r.Status != StatusInProgress {
		return errs.State("game is not in progress")
	}

	r.Status = StatusCompleted
	r.match = nil
	r.touch()
	return nil
}

// RoomUpdate carries optional edits to room settings.
type RoomUpdate struct {
	Name        *string
	Description *string
	Visibility  *Visibility
	Capacity    *int
	Bracket     *Bracket
}

func (r *Room) update(actorID string, upd RoomUpdate) error {
	if actorID != r.HostID {
		return errs.Permission("only the host can update the game")
	}
	if r.Status != StatusWaiting {
		return errs.State("settings can only change while the game is waiting")
	}

	if upd.Capacity != nil {
		if *upd.Capacity < MinCapacity || *upd.Capacity > MaxCapacity {
			return errs.Validation("capacity must be between %d and %d", MinCapacity, MaxCapacity)
		}
		if *upd.Capacity < r.acceptedCount() {
			return errs.Validation("capacity cannot drop below the current player count")
		}
	}
	if upd.Bracket != nil && !ValidBracket(*upd.Bracket) {
		return errs.Validation("unknown power bracket %q", *upd.Bracket)
	}
	if upd.Name != nil && *upd.Name == "" {
		return errs.Validation("name cannot be empty")
	}

	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if upd.Description != nil {
		r.Description = *upd.Description
	}
	if upd.Visibility != nil {
		r.Visibility = *upd.Visibility
	}
	if upd.Capacity != nil {
		r.Capacity = *upd.Capacity
	}
	if upd.Bracket != nil {
		r.Bracket = *upd.Bracket
	}
	r.touch()
	return nil
}

// MembershipSnapshot is the external view of one membership.
type MembershipSnapshot struct {
	ID            string       `json:"id"`
	ParticipantID string       `json:"participant_id"`
	Name          string       `json:"name"`
	Status        MemberStatus `json:"status"`
	IsHost        bool         `json:"is_host"`
	DeckID        string       `json:"deck_id,omitempty"`
	JoinedAt      time.Time    `json:"joined_at"`
}

// Snapshot is a consistent external view of a room.
type Snapshot struct {
	ID          string               `json:"id"`
	InviteCode  string               `json:"invite_code"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	HostID      string               `json:"host_id"`
	Visibility  Visibility           `json:"visibility"`
	Capacity    int                  `json:"capacity"`
	Bracket     Bracket              `json:"bracket"`
	Status      Status               `json:"status"`
	Members     []MembershipSnapshot `json:"members"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func (r *Room) snapshot() Snapshot {
	members := make([]MembershipSnapshot, 0, len(r.memberOrder))
	for _, id := range r.memberOrder {
		m := r.members[id]
		members = append(members, MembershipSnapshot{
			ID:            m.ID,
			ParticipantID: m.ParticipantID,
			Name:          m.Name,
			Status:        m.Status,
			IsHost:        m.IsHost,
			DeckID:        m.DeckID,
			JoinedAt:      m.JoinedAt,
		})
	}

	return Snapshot{
		ID:          r.ID,
		InviteCode:  r.InviteCode,
		Name:        r.Name,
		Description: r.Description,
		HostID:      r.HostID,
		Visibility:  r.Visibility,
		Capacity:    r.Capacity,
		Bracket:     r.Bracket,
		Status:      r.Status,
		Members:     members,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Summary is one row of a room listing.
type Summary struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	HostID         string     `json:"host_id"`
	Visibility     Visibility `json:"visibility"`
	Capacity       int        `json:"capacity"`
	CurrentPlayers int        `json:"current_players"`
	Bracket        Bracket    `json:"bracket"`
	Status         Status     `json:"status"`
	IsParticipant  bool       `json:"is_participant"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (r *Room) summary(callerID string) Summary {
	return Summary{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		HostID:         r.HostID,
		Visibility:     r.Visibility,
		Capacity:       r.Capacity,
		CurrentPlayers: r.acceptedCount(),
		Bracket:        r.Bracket,
		Status:         r.Status,
		IsParticipant:  r.membershipByParticipant(callerID) != nil,
		CreatedAt:      r.CreatedAt,
	}
}

package room

import (
	"context"
	"crypto/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spindown/spindown-server-go/internal/deck"
	"github.com/spindown/spindown-server-go/internal/errs"
	"github.com/spindown/spindown-server-go/internal/events"
	"github.com/spindown/spindown-server-go/internal/match"
)

// Capacity bounds for a room.
const (
	MinCapacity = 2
	MaxCapacity = 4
)

// inviteAlphabet avoids lowercase so codes survive being read aloud.
const inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultInviteCodeLength matches the original eight-character codes.
const DefaultInviteCodeLength = 8

// Store persists room and membership records. Match state is volatile and
// never stored; a room that was in progress restores as waiting with its
// deck bindings intact.
type Store interface {
	SaveRoom(ctx context.Context, rec Record) error
	DeleteRoom(ctx context.Context, roomID string) error
	LoadRooms(ctx context.Context) ([]Record, error)
}

// Record is the persisted form of a room.
type Record struct {
	ID          string
	InviteCode  string
	Name        string
	Description string
	HostID      string
	Visibility  string
	Capacity    int
	Bracket     string
	Status      string
	CreatedAt   int64
	UpdatedAt   int64
	Members     []MemberRecord
}

// MemberRecord is the persisted form of a membership.
type MemberRecord struct {
	ID            string
	ParticipantID string
	Name          string
	Status        string
	IsHost        bool
	DeckID        string
	JoinedAt      int64
}

// CreateParams carries the arguments for a new room.
type CreateParams struct {
	Name        string
	Description string
	Visibility  Visibility
	Capacity    int
	Bracket     Bracket
}

// Manager owns every live room, keyed by id and by invite code. The
// manager mutex guards only the maps; each room serializes its own
// mutations, so operations against different rooms run fully in parallel.
type Manager struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	byCode map[string]*Room

	hub      *events.Hub
	decks    deck.Resolver
	store    Store
	matchCfg match.Config
	codeLen  int
	logger   *zap.Logger
}

// NewManager creates a room manager. store may be nil when durability is
// not configured.
func NewManager(hub *events.Hub, decks deck.Resolver, store Store, matchCfg match.Config, codeLen int, logger *zap.Logger) *Manager {
	if codeLen <= 0 {
		codeLen = DefaultInviteCodeLength
	}
	return &Manager{
		rooms:    make(map[string]*Room),
		byCode:   make(map[string]*Room),
		hub:      hub,
		decks:    decks,
		store:    store,
		matchCfg: matchCfg,
		codeLen:  codeLen,
		logger:   logger,
	}
}

// Restore loads persisted rooms at boot. Rooms persisted as in_progress
// come back as waiting: the match lives only in memory.
func (mgr *Manager) Restore(ctx context.Context) error {
	if mgr.store == nil {
		return nil
	}

	records, err := mgr.store.LoadRooms(ctx)
	if err != nil {
		return err
	}

	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	for _, rec := range records {
		r := roomFromRecord(rec)
		mgr.rooms[r.ID] = r
		mgr.byCode[r.InviteCode] = r
	}

	mgr.logger.Info("rooms restored from store", zap.Int("count", len(records)))
	return nil
}

// CreateRoom registers a new room with the caller as host, immediately
// accepted. The invite code is unique across all live rooms.
func (mgr *Manager) CreateRoom(ctx context.Context, hostID, hostName string, params CreateParams) (Snapshot, error) {
	if params.Name == "" {
		return Snapshot{}, errs.Validation("name is required")
	}
	if params.Capacity < MinCapacity || params.Capacity > MaxCapacity {
		return Snapshot{}, errs.Validation("capacity must be between %d and %d", MinCapacity, MaxCapacity)
	}
	if params.Bracket == "" {
		params.Bracket = BracketCasual
	}
	if !ValidBracket(params.Bracket) {
		return Snapshot{}, errs.Validation("unknown power bracket %q", params.Bracket)
	}
	if params.Visibility == "" {
		params.Visibility = VisibilityPrivate
	}
	if params.Visibility != VisibilityPublic && params.Visibility != VisibilityPrivate {
		return Snapshot{}, errs.Validation("visibility must be public or private")
	}

	mgr.mu.Lock()
	code, err := mgr.generateInviteCode()
	if err != nil {
		mgr.mu.Unlock()
		return Snapshot{}, err
	}
	r := newRoom(hostID, hostName, params.Name, params.Description, params.Capacity, params.Bracket, params.Visibility, code)
	mgr.rooms[r.ID] = r
	mgr.byCode[r.InviteCode] = r
	mgr.mu.Unlock()

	mgr.persist(ctx, r)

	mgr.logger.Info("room created",
		zap.String("room_id", r.ID),
		zap.String("host_id", hostID),
		zap.String("invite_code", r.InviteCode),
		zap.Int("capacity", params.Capacity),
		zap.String("bracket", string(params.Bracket)),
	)

	return r.readSnapshot(), nil
}

// generateInviteCode draws codes until one misses the live index. Caller
// holds the manager lock.
func (mgr *Manager) generateInviteCode() (string, error) {
	buf := make([]byte, mgr.codeLen)
	for {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for i, b := range buf {
			buf[i] = inviteAlphabet[int(b)%len(inviteAlphabet)]
		}
		code := string(buf)
		if _, taken := mgr.byCode[code]; !taken {
			return code, nil
		}
	}
}

func (mgr *Manager) room(roomID string) (*Room, error) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	r, ok := mgr.rooms[roomID]
	if !ok {
		return nil, errs.NotFound("game room not found")
	}
	return r, nil
}

// GetRoom returns a snapshot. Private rooms are visible only to their
// participants.
func (mgr *Manager) GetRoom(roomID, callerID string) (Snapshot, error) {
	r, err := mgr.room(roomID)
	if err != nil {
		return Snapshot{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.Visibility != VisibilityPublic && r.membershipByParticipant(callerID) == nil {
		return Snapshot{}, errs.Permission("not authorized to view this game")
	}
	return r.snapshot(), nil
}

// GetRoomByInviteCode resolves a shared code to its room. Holding the code
// is the authorization.
func (mgr *Manager) GetRoomByInviteCode(code string) (Snapshot, error) {
	mgr.mu.RLock()
	r, ok := mgr.byCode[code]
	mgr.mu.RUnlock()

	if !ok {
		return Snapshot{}, errs.NotFound("game not found")
	}
	return r.readSnapshot(), nil
}

// ListRooms produces the public-waiting rooms plus every room the caller
// participates in, newest first. The returned slice is a stable snapshot
// the caller may iterate any number of times.
func (mgr *Manager) ListRooms(callerID string) []Summary {
	mgr.mu.RLock()
	rooms := make([]*Room, 0, len(mgr.rooms))
	for _, r := range mgr.rooms {
		rooms = append(rooms, r)
	}
	mgr.mu.RUnlock()

	out := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		r.mu.RLock()
		include := (r.Visibility == VisibilityPublic && r.Status == StatusWaiting) ||
			r.membershipByParticipant(callerID) != nil
		if include {
			out = append(out, r.summary(callerID))
		}
		r.mu.RUnlock()
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// DeleteRoom removes a room with all memberships and any match state.
// Host only. Subscribers receive a final room_deleted notification before
// their channels close.
func (mgr *Manager) DeleteRoom(ctx context.Context, roomID, actorID string) error {
	r, err := mgr.room(roomID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if actorID != r.HostID {
		r.mu.Unlock()
		return errs.Permission("only the host can delete this game")
	}
	r.match = nil
	code := r.InviteCode
	r.mu.Unlock()

	mgr.mu.Lock()
	delete(mgr.rooms, roomID)
	delete(mgr.byCode, code)
	mgr.mu.Unlock()

	if mgr.store != nil {
		if err := mgr.store.DeleteRoom(ctx, roomID); err != nil {
			mgr.logger.Warn("failed to delete room from store",
				zap.String("room_id", roomID),
				zap.Error(err),
			)
		}
	}

	mgr.hub.Publish(roomID, events.CategoryRoomDeleted)
	mgr.hub.CloseRoom(roomID)

	mgr.logger.Info("room deleted",
		zap.String("room_id", roomID),
		zap.String("host_id", actorID),
	)
	return nil
}

// RequestJoin files a pending membership for the caller.
func (mgr *Manager) RequestJoin(ctx context.Context, roomID, participantID, name string) (MembershipSnapshot, error) {
	r, err := mgr.room(roomID)
	if err != nil {
		return MembershipSnapshot{}, err
	}

	r.mu.Lock()
	m, err := r.requestJoin(participantID, name)
	if err != nil {
		r.mu.Unlock()
		return MembershipSnapshot{}, err
	}
	snap := MembershipSnapshot{
		ID:            m.ID,
		ParticipantID: m.ParticipantID,
		Name:          m.Name,
		Status:        m.Status,
		IsHost:        m.IsHost,
		JoinedAt:      m.JoinedAt,
	}
	r.mu.Unlock()

	mgr.persist(ctx, r)
	mgr.hub.Publish(roomID, events.CategoryMembershipUpdated)

	mgr.logger.Info("join requested",
		zap.String("room_id", roomID),
		zap.String("participant_id", participantID),
	)
	return snap, nil
}

// Accept admits a pending membership. Host only; capacity is re-checked
// under the room lock, so racing accepts cannot overshoot it.
func (mgr *Manager) Accept(ctx context.Context, roomID, membershipID, actorID string) error {
	return mgr.memberOp(ctx, roomID, events.CategoryMembershipUpdated, "player accepted", func(r *Room) error {
		return r.accept(membershipID, actorID)
	})
}

// Reject declines a pending membership. Host only.
func (mgr *Manager) Reject(ctx context.Context, roomID, membershipID, actorID string) error {
	return mgr.memberOp(ctx, roomID, events.CategoryMembershipUpdated, "player rejected", func(r *Room) error {
		return r.reject(membershipID, actorID)
	})
}

// SelectDeck binds a deck reference to the caller's membership after
// verifying ownership with the external deck store. Allowed any number of
// times until the match starts.
func (mgr *Manager) SelectDeck(ctx context.Context, roomID, actorID, deckID string) error {
	if _, err := mgr.decks.Get(ctx, deckID, actorID); err != nil {
		return err
	}
	return mgr.memberOp(ctx, roomID, events.CategoryDeckSelected, "deck selected", func(r *Room) error {
		return r.selectDeck(actorID, deckID)
	})
}

// Leave removes the caller's membership. The host deletes instead.
func (mgr *Manager) Leave(ctx context.Context, roomID, actorID string) error {
	return mgr.memberOp(ctx, roomID, events.CategoryMembershipUpdated, "player left", func(r *Room) error {
		return r.leave(actorID)
	})
}

// UpdateRoom edits room settings while waiting. Host only.
func (mgr *Manager) UpdateRoom(ctx context.Context, roomID, actorID string, upd RoomUpdate) error {
	return mgr.memberOp(ctx, roomID, events.CategoryRoomUpdated, "room updated", func(r *Room) error {
		return r.update(actorID, upd)
	})
}

// memberOp runs a room mutation under the room lock, then persists and
// publishes exactly once on success.
func (mgr *Manager) memberOp(ctx context.Context, roomID string, category events.Category, what string, op func(*Room) error) error {
	r, err := mgr.room(roomID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	err = op(r)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	mgr.persist(ctx, r)
	mgr.hub.Publish(roomID, category)

	mgr.logger.Info(what, zap.String("room_id", roomID))
	return nil
}

// StartMatch transitions the room to in_progress and builds the match
// deterministically from the accepted memberships in join order, host
// first. Host only.
func (mgr *Manager) StartMatch(ctx context.Context, roomID, actorID string) error {
	r, err := mgr.room(roomID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	accepted, err := r.start(actorID)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	seats := make([]match.Seat, 0, len(accepted))
	for _, m := range accepted {
		d, derr := mgr.decks.Get(ctx, m.DeckID, m.ParticipantID)
		if derr != nil {
			r.mu.Unlock()
			return errs.State("deck %s for %s is no longer available", m.DeckID, m.Name)
		}
		seats = append(seats, match.Seat{ParticipantID: m.ParticipantID, Name: m.Name, Deck: d})
	}

	notify := func(category events.Category) {
		mgr.hub.Publish(roomID, category)
	}
	r.match = match.New(roomID, seats, mgr.matchCfg, notify, mgr.logger)
	r.Status = StatusInProgress
	r.touch()
	r.mu.Unlock()

	mgr.persist(ctx, r)
	mgr.hub.Publish(roomID, events.CategoryMatchStarted)

	mgr.logger.Info("match started",
		zap.String("room_id", roomID),
		zap.Int("players", len(seats)),
	)
	return nil
}

// StopMatch returns the room to waiting, discarding the match but keeping
// every deck binding, so a subsequent start needs no re-selection. Host
// only.
func (mgr *Manager) StopMatch(ctx context.Context, roomID, actorID string) error {
	return mgr.memberOp(ctx, roomID, events.CategoryMatchStopped, "match stopped", func(r *Room) error {
		return r.stop(actorID)
	})
}

// CompleteMatch finishes the room for good: completed rooms accept no
// further mutation except deletion. Host only.
func (mgr *Manager) CompleteMatch(ctx context.Context, roomID, actorID string) error {
	return mgr.memberOp(ctx, roomID, events.CategoryMatchCompleted, "match completed", func(r *Room) error {
		return r.complete(actorID)
	})
}

// Match returns the live match of an in-progress room.
func (mgr *Manager) Match(roomID string) (*match.Match, error) {
	r, err := mgr.room(roomID)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.Status != StatusInProgress || r.match == nil {
		return nil, errs.State("game is not in progress")
	}
	return r.match, nil
}

// IsParticipant reports whether the participant holds a non-departed
// membership in the room.
func (mgr *Manager) IsParticipant(roomID, participantID string) bool {
	r, err := mgr.room(roomID)
	if err != nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.membershipByParticipant(participantID) != nil
}

// readSnapshot takes the room read lock; for callers outside a mutation.
func (r *Room) readSnapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot()
}

// persist writes the room through to the store, best-effort. Durability
// failures are logged, never surfaced: the in-memory registry stays
// authoritative.
func (mgr *Manager) persist(ctx context.Context, r *Room) {
	if mgr.store == nil {
		return
	}

	r.mu.RLock()
	rec := r.record()
	r.mu.RUnlock()

	if err := mgr.store.SaveRoom(ctx, rec); err != nil {
		mgr.logger.Warn("failed to persist room",
			zap.String("room_id", rec.ID),
			zap.Error(err),
		)
	}
}

func (r *Room) record() Record {
	status := r.Status
	if status == StatusInProgress {
		// Match state is volatile; a restart resumes in the lobby.
		status = StatusWaiting
	}

	members := make([]MemberRecord, 0, len(r.memberOrder))
	for _, id := range r.memberOrder {
		m := r.members[id]
		members = append(members, MemberRecord{
			ID:            m.ID,
			ParticipantID: m.ParticipantID,
			Name:          m.Name,
			Status:        string(m.Status),
			IsHost:        m.IsHost,
			DeckID:        m.DeckID,
			JoinedAt:      m.JoinedAt.Unix(),
		})
	}

	return Record{
		ID:          r.ID,
		InviteCode:  r.InviteCode,
		Name:        r.Name,
		Description: r.Description,
		HostID:      r.HostID,
		Visibility:  string(r.Visibility),
		Capacity:    r.Capacity,
		Bracket:     string(r.Bracket),
		Status:      string(status),
		CreatedAt:   r.CreatedAt.Unix(),
		UpdatedAt:   r.UpdatedAt.Unix(),
		Members:     members,
	}
}

func roomFromRecord(rec Record) *Room {
	r := &Room{
		ID:          rec.ID,
		InviteCode:  rec.InviteCode,
		Name:        rec.Name,
		Description: rec.Description,
		HostID:      rec.HostID,
		Visibility:  Visibility(rec.Visibility),
		Capacity:    rec.Capacity,
		Bracket:     Bracket(rec.Bracket),
		Status:      Status(rec.Status),
		CreatedAt:   time.Unix(rec.CreatedAt, 0),
		UpdatedAt:   time.Unix(rec.UpdatedAt, 0),
		members:     make(map[string]*Membership, len(rec.Members)),
	}

	for _, m := range rec.Members {
		mem := &Membership{
			ID:            m.ID,
			ParticipantID: m.ParticipantID,
			Name:          m.Name,
			Status:        MemberStatus(m.Status),
			IsHost:        m.IsHost,
			DeckID:        m.DeckID,
			JoinedAt:      time.Unix(m.JoinedAt, 0),
		}
		r.members[mem.ID] = mem
		r.memberOrder = append(r.memberOrder, mem.ID)
	}

	return r
}

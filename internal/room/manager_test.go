package room

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spindown/spindown-server-go/internal/deck"
	"github.com/spindown/spindown-server-go/internal/errs"
	"github.com/spindown/spindown-server-go/internal/events"
	"github.com/spindown/spindown-server-go/internal/match"
)

func testManager(t *testing.T) (*Manager, *events.Hub, *deck.StaticResolver) {
	t.Helper()
	hub := events.NewHub(zap.NewNop())
	decks := deck.NewStaticResolver()
	mgr := NewManager(hub, decks, nil, match.Config{}, DefaultInviteCodeLength, zap.NewNop())
	return mgr, hub, decks
}

func putDeck(decks *deck.StaticResolver, owner string) string {
	id := "deck-" + owner
	decks.Put(deck.Deck{
		ID:      id,
		OwnerID: owner,
		Name:    owner + "'s deck",
		Cards:   []deck.Entry{{CatalogID: "bolt", Count: 30}},
	})
	return id
}

func createRoom(t *testing.T, mgr *Manager, capacity int) Snapshot {
	t.Helper()
	snap, err := mgr.CreateRoom(context.Background(), "host", "Host", CreateParams{
		Name:       "Friday pod",
		Visibility: VisibilityPublic,
		Capacity:   capacity,
	})
	require.NoError(t, err)
	return snap
}

// joinAccepted requests and accepts a participant in one step.
func joinAccepted(t *testing.T, mgr *Manager, roomID, participantID string) MembershipSnapshot {
	t.Helper()
	ctx := context.Background()
	m, err := mgr.RequestJoin(ctx, roomID, participantID, participantID)
	require.NoError(t, err)
	require.NoError(t, mgr.Accept(ctx, roomID, m.ID, "host"))
	return m
}

func TestCreateRoom(t *testing.T) {
	mgr, _, _ := testManager(t)

	snap := createRoom(t, mgr, 4)
	assert.Equal(t, StatusWaiting, snap.Status)
	assert.Equal(t, BracketCasual, snap.Bracket, "bracket defaults to casual")
	assert.Len(t, snap.InviteCode, DefaultInviteCodeLength)

	require.Len(t, snap.Members, 1)
	host := snap.Members[0]
	assert.True(t, host.IsHost)
	assert.Equal(t, MemberAccepted, host.Status)
}

func TestCreateRoom_CapacityValidation(t *testing.T) {
	mgr, _, _ := testManager(t)

	for _, capacity := range []int{0, 1, 5} {
		_, err := mgr.CreateRoom(context.Background(), "host", "Host", CreateParams{Name: "x", Capacity: capacity})
		assert.Equal(t, errs.KindValidation, errs.KindOf(err), "capacity %d", capacity)
	}
}

func TestInviteCodesAreUnique(t *testing.T) {
	mgr, _, _ := testManager(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		snap := createRoom(t, mgr, 4)
		assert.False(t, seen[snap.InviteCode], "duplicate invite code %s", snap.InviteCode)
		seen[snap.InviteCode] = true

		got, err := mgr.GetRoomByInviteCode(snap.InviteCode)
		require.NoError(t, err)
		assert.Equal(t, snap.ID, got.ID)
	}

	_, err := mgr.GetRoomByInviteCode("NOPE1234")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestRequestJoin_IdempotentPerParticipant(t *testing.T) {
	mgr, _, _ := testManager(t)
	snap := createRoom(t, mgr, 4)
	ctx := context.Background()

	_, err := mgr.RequestJoin(ctx, snap.ID, "alice", "Alice")
	require.NoError(t, err)

	_, err = mgr.RequestJoin(ctx, snap.ID, "alice", "Alice")
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))

	got, err := mgr.GetRoom(snap.ID, "host")
	require.NoError(t, err)
	assert.Len(t, got.Members, 2, "exactly one membership for alice")
}

func TestRequestJoin_ConcurrentSameParticipant(t *testing.T) {
	mgr, _, _ := testManager(t)
	snap := createRoom(t, mgr, 4)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = mgr.RequestJoin(context.Background(), snap.ID, "alice", "Alice")
		}()
	}
	wg.Wait()

	got, err := mgr.GetRoom(snap.ID, "host")
	require.NoError(t, err)
	assert.Len(t, got.Members, 2, "host plus exactly one alice membership")
}

func TestAccept_CapacityBoundUnderRace(t *testing.T) {
	mgr, _, _ := testManager(t)
	snap := createRoom(t, mgr, 2) // host occupies one of two seats
	ctx := context.Background()

	pending := make([]MembershipSnapshot, 0, 3)
	for _, p := range []string{"alice", "bob", "carol"} {
		m, err := mgr.RequestJoin(ctx, snap.ID, p, p)
		require.NoError(t, err)
		pending = append(pending, m)
	}

	var wg sync.WaitGroup
	for _, m := range pending {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = mgr.Accept(ctx, snap.ID, id, "host")
		}(m.ID)
	}
	wg.Wait()

	got, err := mgr.GetRoom(snap.ID, "host")
	require.NoError(t, err)

	accepted := 0
	for _, m := range got.Members {
		if m.Status == MemberAccepted {
			accepted++
		}
	}
	assert.Equal(t, 2, accepted, "accepted count never exceeds capacity")
}

func TestRequestJoin_FullRoom(t *testing.T) {
	mgr, _, _ := testManager(t)
	snap := createRoom(t, mgr, 2)
	joinAccepted(t, mgr, snap.ID, "alice")

	_, err := mgr.RequestJoin(context.Background(), snap.ID, "bob", "Bob")
	assert.Equal(t, errs.KindCapacity, errs.KindOf(err))
}

func TestAcceptReject_Permissions(t *testing.T) {
	mgr, _, _ := testManager(t)
	snap := createRoom(t, mgr, 4)
	ctx := context.Background()

	m, err := mgr.RequestJoin(ctx, snap.ID, "alice", "Alice")
	require.NoError(t, err)

	assert.Equal(t, errs.KindPermission, errs.KindOf(mgr.Accept(ctx, snap.ID, m.ID, "alice")))
	assert.Equal(t, errs.KindPermission, errs.KindOf(mgr.Reject(ctx, snap.ID, m.ID, "bob")))

	require.NoError(t, mgr.Reject(ctx, snap.ID, m.ID, "host"))

	// Rejected members are no longer pending.
	assert.Equal(t, errs.KindState, errs.KindOf(mgr.Accept(ctx, snap.ID, m.ID, "host")))
}

func TestSelectDeck(t *testing.T) {
	mgr, _, decks := testManager(t)
	snap := createRoom(t, mgr, 4)
	ctx := context.Background()
	joinAccepted(t, mgr, snap.ID, "alice")
	aliceDeck := putDeck(decks, "alice")

	// Deck must belong to the caller.
	err := mgr.SelectDeck(ctx, snap.ID, "host", aliceDeck)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	require.NoError(t, mgr.SelectDeck(ctx, snap.ID, "alice", aliceDeck))

	// Re-selection overwrites until the match starts.
	other := "deck-alice-2"
	decks.Put(deck.Deck{ID: other, OwnerID: "alice", Cards: []deck.Entry{{CatalogID: "path", Count: 10}}})
	require.NoError(t, mgr.SelectDeck(ctx, snap.ID, "alice", other))

	got, err := mgr.GetRoom(snap.ID, "host")
	require.NoError(t, err)
	for _, m := range got.Members {
		if m.ParticipantID == "alice" {
			assert.Equal(t, other, m.DeckID)
		}
	}
}

func TestStartMatch_Preconditions(t *testing.T) {
	mgr, _, decks := testManager(t)
	snap := createRoom(t, mgr, 4)
	ctx := context.Background()

	// Only the host, and not with a single player.
	assert.Equal(t, errs.KindPermission, errs.KindOf(mgr.StartMatch(ctx, snap.ID, "alice")))
	assert.Equal(t, errs.KindState, errs.KindOf(mgr.StartMatch(ctx, snap.ID, "host")))

	joinAccepted(t, mgr, snap.ID, "alice")

	// Two accepted players, no decks bound.
	assert.Equal(t, errs.KindState, errs.KindOf(mgr.StartMatch(ctx, snap.ID, "host")))

	require.NoError(t, mgr.SelectDeck(ctx, snap.ID, "host", putDeck(decks, "host")))
	require.NoError(t, mgr.SelectDeck(ctx, snap.ID, "alice", putDeck(decks, "alice")))

	require.NoError(t, mgr.StartMatch(ctx, snap.ID, "host"))

	got, err := mgr.GetRoom(snap.ID, "host")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)

	m, err := mgr.Match(snap.ID)
	require.NoError(t, err)
	ms := m.Snapshot()
	assert.Equal(t, 1, ms.Turn)
	assert.Equal(t, match.PhaseUntap, ms.Phase)
	assert.Equal(t, "host", ms.ActiveParticipantID, "host starts")
	require.Len(t, ms.Players, 2)
	assert.Equal(t, "host", ms.Players[0].ParticipantID, "seating follows join order")
	assert.Equal(t, "alice", ms.Players[1].ParticipantID)
}

func TestStopMatch_KeepsDeckBindings(t *testing.T) {
	mgr, _, decks := testManager(t)
	snap := createRoom(t, mgr, 4)
	ctx := context.Background()

	joinAccepted(t, mgr, snap.ID, "alice")
	require.NoError(t, mgr.SelectDeck(ctx, snap.ID, "host", putDeck(decks, "host")))
	require.NoError(t, mgr.SelectDeck(ctx, snap.ID, "alice", putDeck(decks, "alice")))
	require.NoError(t, mgr.StartMatch(ctx, snap.ID, "host"))

	require.NoError(t, mgr.StopMatch(ctx, snap.ID, "host"))

	got, err := mgr.GetRoom(snap.ID, "host")
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, got.Status)
	for _, m := range got.Members {
		assert.NotEmpty(t, m.DeckID, "deck bindings survive a stop")
	}

	_, err = mgr.Match(snap.ID)
	assert.Equal(t, errs.KindState, errs.KindOf(err), "match state is discarded")

	// Restart without re-selecting decks.
	require.NoError(t, mgr.StartMatch(ctx, snap.ID, "host"))
}

func TestCompleteMatch_RoomBecomesImmutable(t *testing.T) {
	mgr, _, decks := testManager(t)
	snap := createRoom(t, mgr, 4)
	ctx := context.Background()

	joinAccepted(t, mgr, snap.ID, "alice")
	require.NoError(t, mgr.SelectDeck(ctx, snap.ID, "host", putDeck(decks, "host")))
	require.NoError(t, mgr.SelectDeck(ctx, snap.ID, "alice", putDeck(decks, "alice")))
	require.NoError(t, mgr.StartMatch(ctx, snap.ID, "host"))

	require.NoError(t, mgr.CompleteMatch(ctx, snap.ID, "host"))

	got, err := mgr.GetRoom(snap.ID, "host")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	_, err = mgr.RequestJoin(ctx, snap.ID, "bob", "Bob")
	assert.Equal(t, errs.KindState, errs.KindOf(err))
	assert.Equal(t, errs.KindState, errs.KindOf(mgr.StartMatch(ctx, snap.ID, "host")))

	// Deletion is still allowed.
	require.NoError(t, mgr.DeleteRoom(ctx, snap.ID, "host"))
}

func TestLeave_HostPolicy(t *testing.T) {
	mgr, _, _ := testManager(t)
	snap := createRoom(t, mgr, 4)
	ctx := context.Background()
	joinAccepted(t, mgr, snap.ID, "alice")

	err := mgr.Leave(ctx, snap.ID, "host")
	assert.Equal(t, errs.KindPermission, errs.KindOf(err), "host deletes instead of leaving")

	require.NoError(t, mgr.Leave(ctx, snap.ID, "alice"))

	got, err := mgr.GetRoom(snap.ID, "host")
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)

	// A departed participant may request again.
	_, err = mgr.RequestJoin(ctx, snap.ID, "alice", "Alice")
	require.NoError(t, err)
}

func TestDeleteRoom(t *testing.T) {
	mgr, hub, _ := testManager(t)
	snap := createRoom(t, mgr, 4)
	ctx := context.Background()

	sub := hub.Subscribe(snap.ID, "alice")

	assert.Equal(t, errs.KindPermission, errs.KindOf(mgr.DeleteRoom(ctx, snap.ID, "alice")))
	require.NoError(t, mgr.DeleteRoom(ctx, snap.ID, "host"))

	_, err := mgr.GetRoom(snap.ID, "host")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	_, err = mgr.GetRoomByInviteCode(snap.InviteCode)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	// Subscribers get a final room_deleted, then their channel closes.
	n := <-sub.C
	assert.Equal(t, events.CategoryRoomDeleted, n.Category)
	_, open := <-sub.C
	assert.False(t, open)
}

func TestListRooms(t *testing.T) {
	mgr, _, _ := testManager(t)
	ctx := context.Background()

	pub := createRoom(t, mgr, 4)

	private, err := mgr.CreateRoom(ctx, "host2", "Host2", CreateParams{
		Name:       "Secret pod",
		Visibility: VisibilityPrivate,
		Capacity:   3,
	})
	require.NoError(t, err)

	// A stranger sees only public waiting rooms.
	list := mgr.ListRooms("stranger")
	require.Len(t, list, 1)
	assert.Equal(t, pub.ID, list[0].ID)
	assert.False(t, list[0].IsParticipant)

	// A participant of the private room sees it too.
	_, err = mgr.RequestJoin(ctx, private.ID, "alice", "Alice")
	require.NoError(t, err)
	list = mgr.ListRooms("alice")
	assert.Len(t, list, 2)

	// The listing is a stable snapshot; iterating twice yields the same rows.
	again := mgr.ListRooms("alice")
	assert.Equal(t, list, again)
}

func TestGetRoom_PrivateVisibility(t *testing.T) {
	mgr, _, _ := testManager(t)
	private, err := mgr.CreateRoom(context.Background(), "host", "Host", CreateParams{
		Name:       "Secret pod",
		Visibility: VisibilityPrivate,
		Capacity:   4,
	})
	require.NoError(t, err)

	_, err = mgr.GetRoom(private.ID, "stranger")
	assert.Equal(t, errs.KindPermission, errs.KindOf(err))

	_, err = mgr.GetRoom(private.ID, "host")
	require.NoError(t, err)
}

func TestUpdateRoom(t *testing.T) {
	mgr, _, _ := testManager(t)
	snap := createRoom(t, mgr, 4)
	ctx := context.Background()
	joinAccepted(t, mgr, snap.ID, "alice")

	name := "Renamed pod"
	bracket := BracketCEDH
	require.NoError(t, mgr.UpdateRoom(ctx, snap.ID, "host", RoomUpdate{Name: &name, Bracket: &bracket}))

	tooSmall := 1
	assert.Equal(t, errs.KindValidation, errs.KindOf(
		mgr.UpdateRoom(ctx, snap.ID, "host", RoomUpdate{Capacity: &tooSmall})))

	belowPlayers := 2
	require.NoError(t, mgr.UpdateRoom(ctx, snap.ID, "host", RoomUpdate{Capacity: &belowPlayers}))

	got, err := mgr.GetRoom(snap.ID, "host")
	require.NoError(t, err)
	assert.Equal(t, "Renamed pod", got.Name)
	assert.Equal(t, BracketCEDH, got.Bracket)
	assert.Equal(t, 2, got.Capacity)
}

func TestRestore_RoundTrip(t *testing.T) {
	store := &memStore{rooms: make(map[string]Record)}
	hub := events.NewHub(zap.NewNop())
	decks := deck.NewStaticResolver()
	ctx := context.Background()

	mgr := NewManager(hub, decks, store, match.Config{}, DefaultInviteCodeLength, zap.NewNop())
	snap, err := mgr.CreateRoom(ctx, "host", "Host", CreateParams{Name: "Pod", Visibility: VisibilityPublic, Capacity: 3})
	require.NoError(t, err)
	joinAccepted(t, mgr, snap.ID, "alice")

	// Fresh manager against the same store.
	mgr2 := NewManager(hub, decks, store, match.Config{}, DefaultInviteCodeLength, zap.NewNop())
	require.NoError(t, mgr2.Restore(ctx))

	got, err := mgr2.GetRoom(snap.ID, "host")
	require.NoError(t, err)
	assert.Equal(t, snap.InviteCode, got.InviteCode)
	assert.Len(t, got.Members, 2)

	byCode, err := mgr2.GetRoomByInviteCode(snap.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, byCode.ID)
}

// memStore is an in-memory Store for tests.
type memStore struct {
	mu    sync.Mutex
	rooms map[string]Record
}

func (s *memStore) SaveRoom(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[rec.ID] = rec
	return nil
}

func (s *memStore) DeleteRoom(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}

func (s *memStore) LoadRooms(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.rooms))
	for _, rec := range s.rooms {
		out = append(out, rec)
	}
	return out, nil
}

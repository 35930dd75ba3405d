// Package match implements the live turn/phase cycle and the
// card-location model for one started room. It tracks positions and
// states only; rules legality is the players' business.
package match

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spindown/spindown-server-go/internal/deck"
	"github.com/spindown/spindown-server-go/internal/errs"
	"github.com/spindown/spindown-server-go/internal/events"
)

// Seat pairs a participant with their resolved deck, in join order.
type Seat struct {
	ParticipantID string
	Name          string
	Deck          deck.Deck
}

// Config carries tunables for a new match.
type Config struct {
	StartingLife    int
	OpeningHandSize int

	// Rand drives library shuffles. Nil means a time-seeded source;
	// tests inject a fixed seed for deterministic layouts.
	Rand *rand.Rand
}

func (c Config) withDefaults() Config {
	if c.StartingLife == 0 {
		c.StartingLife = 40
	}
	if c.OpeningHandSize == 0 {
		c.OpeningHandSize = 7
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c
}

// Notifier receives exactly one category per successful mutation.
type Notifier func(category events.Category)

// Match is the state machine for one in-progress game. All mutations
// serialize on the match mutex; reads take consistent snapshots.
type Match struct {
	ID     string
	RoomID string

	mu          sync.RWMutex
	turn        int
	phase       TurnPhase
	activeIdx   int
	startingIdx int
	players     []*PlayerState
	byID        map[string]*PlayerState
	cards       map[string]*Card
	rng         *rand.Rand
	notify      Notifier
	logger      *zap.Logger
}

// New builds the initial match state deterministically from the seats in
// join order: seat 0 (the host) starts, libraries are minted from the
// decks and shuffled, commanders seeded into the commander zone, and each
// player draws an opening hand.
func New(roomID string, seats []Seat, cfg Config, notify Notifier, logger *zap.Logger) *Match {
	cfg = cfg.withDefaults()
	if notify == nil {
		notify = func(events.Category) {}
	}

	m := &Match{
		ID:          uuid.New().String(),
		RoomID:      roomID,
		turn:        1,
		phase:       PhaseUntap,
		activeIdx:   0,
		startingIdx: 0,
		byID:        make(map[string]*PlayerState, len(seats)),
		cards:       make(map[string]*Card),
		rng:         cfg.Rand,
		notify:      notify,
		logger:      logger,
	}

	for order, seat := range seats {
		p := newPlayerState(seat.ParticipantID, seat.Name, order, cfg.StartingLife)
		m.players = append(m.players, p)
		m.byID[p.ParticipantID] = p

		for _, commanderID := range seat.Deck.CommanderIDs {
			m.mint(p, commanderID, ZoneCommander)
		}
		for _, entry := range seat.Deck.Cards {
			for i := 0; i < entry.Count; i++ {
				m.mint(p, entry.CatalogID, ZoneLibrary)
			}
		}

		m.shuffleLibrary(p)

		for i := 0; i < cfg.OpeningHandSize && p.zoneLen(ZoneLibrary) > 0; i++ {
			top := p.zones[ZoneLibrary][0]
			p.remove(top)
			p.insert(top, ZoneHand, p.zoneLen(ZoneHand))
		}
	}

	if len(m.players) > 0 {
		m.players[0].IsActive = true
	}

	return m
}

func (m *Match) mint(p *PlayerState, catalogID string, zone Zone) {
	c := &Card{
		InstanceID: uuid.New().String(),
		CatalogID:  catalogID,
		OwnerID:    p.ParticipantID,
		FaceUp:     true,
	}
	m.cards[c.InstanceID] = c
	p.insert(c, zone, p.zoneLen(zone))
}

func (m *Match) shuffleLibrary(p *PlayerState) {
	lib := p.zones[ZoneLibrary]
	m.rng.Shuffle(len(lib), func(i, j int) {
		lib[i], lib[j] = lib[j], lib[i]
	})
	p.renumber(ZoneLibrary)
}

func (m *Match) player(participantID string) (*PlayerState, error) {
	p, ok := m.byID[participantID]
	if !ok {
		return nil, errs.NotFound("participant %s is not in this match", participantID)
	}
	return p, nil
}

// heldCard finds a card instance inside the actor's zones.
func (m *Match) heldCard(actorID, instanceID string) (*Card, error) {
	c, ok := m.cards[instanceID]
	if !ok || c.HolderID != actorID {
		return nil, errs.NotFound("card not found in your zones")
	}
	return c, nil
}

// NextPhase advances the cycle. Passing cleanup increments the turn and
// hands is_active to the next player in join order.
func (m *Match) NextPhase(actorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.player(actorID); err != nil {
		return err
	}

	next, wrapped := m.phase.Next()
	m.phase = next
	if wrapped {
		m.turn++
		m.players[m.activeIdx].IsActive = false
		m.activeIdx = (m.activeIdx + 1) % len(m.players)
		m.players[m.activeIdx].IsActive = true
	}

	m.logger.Debug("phase advanced",
		zap.String("room_id", m.RoomID),
		zap.String("phase", m.phase.String()),
		zap.Int("turn", m.turn),
		zap.String("active", m.players[m.activeIdx].ParticipantID),
	)

	m.notify(events.CategoryPhaseChanged)
	return nil
}

// MoveCard removes the card from its current container and inserts it into
// the target container as one atomic step. targetParticipantID may name
// another player only for shared-visibility zones; empty means the actor's
// own zones. An out-of-range position appends instead of failing.
func (m *Match) MoveCard(actorID, instanceID string, targetParticipantID string, targetZone Zone, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.player(actorID); err != nil {
		return err
	}
	if !targetZone.Valid() {
		return errs.Validation("unknown zone %q", targetZone)
	}

	c, err := m.heldCard(actorID, instanceID)
	if err != nil {
		return err
	}

	if targetParticipantID == "" {
		targetParticipantID = actorID
	}
	target, err := m.player(targetParticipantID)
	if err != nil {
		return err
	}
	if target.ParticipantID != actorID && !targetZone.SharedVisibility() {
		return errs.Permission("cannot move a card into another player's %s", targetZone)
	}

	holder := m.byID[c.HolderID]
	fromZone := c.Zone
	holder.remove(c)
	target.insert(c, targetZone, position)

	if targetZone != ZoneBattlefield {
		c.Attacking = false
		c.Blocking = false
		c.Damage = 0
	}

	m.logger.Debug("card moved",
		zap.String("room_id", m.RoomID),
		zap.String("instance_id", instanceID),
		zap.String("from", string(fromZone)),
		zap.String("to", string(targetZone)),
		zap.String("holder", target.ParticipantID),
	)

	m.notify(events.CategoryCardMoved)
	return nil
}

// TapCard sets the tapped flag. No-op when already tapped.
func (m *Match) TapCard(actorID, instanceID string) error {
	return m.setTapped(actorID, instanceID, true)
}

// UntapCard clears the tapped flag. No-op when already untapped.
func (m *Match) UntapCard(actorID, instanceID string) error {
	return m.setTapped(actorID, instanceID, false)
}

func (m *Match) setTapped(actorID, instanceID string, tapped bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.player(actorID); err != nil {
		return err
	}
	c, err := m.heldCard(actorID, instanceID)
	if err != nil {
		return err
	}

	c.Tapped = tapped
	m.notify(events.CategoryCardTapped)
	return nil
}

// UntapAll clears tapped, attacking and blocking flags and resets combat
// damage on every card of the actor's battlefield. Valid only for the
// active player.
func (m *Match) UntapAll(actorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.player(actorID)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return errs.State("only the active player may untap all")
	}

	for _, c := range p.zones[ZoneBattlefield] {
		c.Tapped = false
		c.Attacking = false
		c.Blocking = false
		c.Damage = 0
	}

	m.notify(events.CategoryCardTapped)
	return nil
}

// DrawCard moves the top card of the actor's library to the end of their
// hand. An empty library is reported, not fatal, and leaves both zones
// untouched.
func (m *Match) DrawCard(actorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.player(actorID)
	if err != nil {
		return err
	}
	if p.zoneLen(ZoneLibrary) == 0 {
		return errs.EmptyLibrary("library is empty")
	}

	top := p.zones[ZoneLibrary][0]
	p.remove(top)
	p.insert(top, ZoneHand, p.zoneLen(ZoneHand))

	m.notify(events.CategoryCardMoved)
	return nil
}

// Shuffle randomizes the order of the actor's library.
func (m *Match) Shuffle(actorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.player(actorID)
	if err != nil {
		return err
	}

	m.shuffleLibrary(p)
	m.notify(events.CategoryLibraryShuffled)
	return nil
}

// SetBattlefieldPosition overwrites the free-form coordinates of a card
// already on the actor's battlefield. Tapped and combat flags are
// untouched.
func (m *Match) SetBattlefieldPosition(actorID, instanceID string, x, y float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.player(actorID); err != nil {
		return err
	}
	c, err := m.heldCard(actorID, instanceID)
	if err != nil {
		return err
	}
	if c.Zone != ZoneBattlefield {
		return errs.State("card is not on the battlefield")
	}

	c.X, c.Y = x, y
	m.notify(events.CategoryBattlefieldUpdated)
	return nil
}

// FlipCard toggles the face-up flag of a card in the actor's zones.
func (m *Match) FlipCard(actorID, instanceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.player(actorID); err != nil {
		return err
	}
	c, err := m.heldCard(actorID, instanceID)
	if err != nil {
		return err
	}

	c.FaceUp = !c.FaceUp
	m.notify(events.CategoryCardFlipped)
	return nil
}

// SetAttacking marks or unmarks a battlefield card as attacking.
func (m *Match) SetAttacking(actorID, instanceID string, attacking bool) error {
	return m.setCombatFlag(actorID, instanceID, func(c *Card) { c.Attacking = attacking })
}

// SetBlocking marks or unmarks a battlefield card as blocking.
func (m *Match) SetBlocking(actorID, instanceID string, blocking bool) error {
	return m.setCombatFlag(actorID, instanceID, func(c *Card) { c.Blocking = blocking })
}

func (m *Match) setCombatFlag(actorID, instanceID string, apply func(*Card)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.player(actorID); err != nil {
		return err
	}
	c, err := m.heldCard(actorID, instanceID)
	if err != nil {
		return err
	}
	if c.Zone != ZoneBattlefield {
		return errs.State("card is not on the battlefield")
	}

	apply(c)
	m.notify(events.CategoryCombatChanged)
	return nil
}

// AdjustDamage adds delta to a battlefield card's accumulated damage,
// floored at zero.
func (m *Match) AdjustDamage(actorID, instanceID string, delta int) error {
	return m.setCombatFlag(actorID, instanceID, func(c *Card) {
		c.Damage += delta
		if c.Damage < 0 {
			c.Damage = 0
		}
	})
}

// AdjustLife adds delta to the target's life total. Any participant may
// adjust any participant's counters; life is never clamped.
func (m *Match) AdjustLife(actorID, targetID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.player(actorID); err != nil {
		return err
	}
	target, err := m.player(targetID)
	if err != nil {
		return err
	}

	target.Life += delta
	m.notify(events.CategoryLifeUpdated)
	return nil
}

// AdjustPoison adds delta to the target's poison counters, floored at
// zero to keep the count non-negative.
func (m *Match) AdjustPoison(actorID, targetID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.player(actorID); err != nil {
		return err
	}
	target, err := m.player(targetID)
	if err != nil {
		return err
	}

	target.Poison += delta
	if target.Poison < 0 {
		target.Poison = 0
	}
	m.notify(events.CategoryPoisonUpdated)
	return nil
}

// Snapshot captures a consistent view of the whole match.
type Snapshot struct {
	ID                    string           `json:"id"`
	RoomID                string           `json:"room_id"`
	Turn                  int              `json:"turn"`
	Phase                 TurnPhase        `json:"phase"`
	ActiveParticipantID   string           `json:"active_participant_id"`
	StartingParticipantID string           `json:"starting_participant_id"`
	Players               []PlayerSnapshot `json:"players"`
}

// Snapshot returns a deep copy of the match state. Safe to use after any
// number of subsequent mutations.
func (m *Match) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	players := make([]PlayerSnapshot, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p.snapshot())
	}

	return Snapshot{
		ID:                    m.ID,
		RoomID:                m.RoomID,
		Turn:                  m.turn,
		Phase:                 m.phase,
		ActiveParticipantID:   m.players[m.activeIdx].ParticipantID,
		StartingParticipantID: m.players[m.startingIdx].ParticipantID,
		Players:               players,
	}
}

// Turn returns the current turn counter.
func (m *Match) Turn() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.turn
}

// Phase returns the current phase.
func (m *Match) Phase() TurnPhase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// ActiveParticipantID returns the participant whose turn it is.
func (m *Match) ActiveParticipantID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.players[m.activeIdx].ParticipantID
}

package match

// PlayerState tracks one participant's counters and zone containers for
// the duration of a match.
type PlayerState struct {
	ParticipantID string
	Name          string
	Order         int
	IsActive      bool
	Life          int
	Poison        int

	zones map[Zone][]*Card
}

func newPlayerState(participantID, name string, order, life int) *PlayerState {
	zones := make(map[Zone][]*Card, len(Zones))
	for _, z := range Zones {
		zones[z] = nil
	}
	return &PlayerState{
		ParticipantID: participantID,
		Name:          name,
		Order:         order,
		Life:          life,
		zones:         zones,
	}
}

// remove detaches the card from its container and renumbers the ordered
// positions left behind. The caller re-homes the card immediately; a card
// is never observable outside a container.
func (p *PlayerState) remove(c *Card) {
	cards := p.zones[c.Zone]
	for i, held := range cards {
		if held == c {
			p.zones[c.Zone] = append(cards[:i], cards[i+1:]...)
			break
		}
	}
	p.renumber(c.Zone)
}

// insert places the card into the given zone at pos, appending when pos is
// out of range, and updates the card's zone tag and holder in the same
// step.
func (p *PlayerState) insert(c *Card, zone Zone, pos int) {
	cards := p.zones[zone]
	if pos < 0 || pos > len(cards) {
		pos = len(cards)
	}

	cards = append(cards, nil)
	copy(cards[pos+1:], cards[pos:])
	cards[pos] = c
	p.zones[zone] = cards

	c.Zone = zone
	c.HolderID = p.ParticipantID
	if zone != ZoneBattlefield {
		c.X, c.Y = 0, 0
	}
	p.renumber(zone)
}

func (p *PlayerState) renumber(zone Zone) {
	for i, c := range p.zones[zone] {
		c.Position = i
	}
}

func (p *PlayerState) zoneLen(zone Zone) int {
	return len(p.zones[zone])
}

// PlayerSnapshot is the external view of one player's match state.
type PlayerSnapshot struct {
	ParticipantID string         `json:"participant_id"`
	Name          string         `json:"name"`
	Order         int            `json:"order"`
	IsActive      bool           `json:"is_active"`
	Life          int            `json:"life"`
	Poison        int            `json:"poison"`
	Library       []CardSnapshot `json:"library"`
	Hand          []CardSnapshot `json:"hand"`
	Battlefield   []CardSnapshot `json:"battlefield"`
	Graveyard     []CardSnapshot `json:"graveyard"`
	Exile         []CardSnapshot `json:"exile"`
	Commander     []CardSnapshot `json:"commander"`
}

func (p *PlayerState) snapshot() PlayerSnapshot {
	snap := func(zone Zone) []CardSnapshot {
		cards := p.zones[zone]
		out := make([]CardSnapshot, 0, len(cards))
		for _, c := range cards {
			out = append(out, c.snapshot())
		}
		return out
	}

	return PlayerSnapshot{
		ParticipantID: p.ParticipantID,
		Name:          p.Name,
		Order:         p.Order,
		IsActive:      p.IsActive,
		Life:          p.Life,
		Poison:        p.Poison,
		Library:       snap(ZoneLibrary),
		Hand:          snap(ZoneHand),
		Battlefield:   snap(ZoneBattlefield),
		Graveyard:     snap(ZoneGraveyard),
		Exile:         snap(ZoneExile),
		Commander:     snap(ZoneCommander),
	}
}

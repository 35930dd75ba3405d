package match

// Card is one concrete copy of a card inside a match, distinct from its
// catalog definition. Its Zone tag and the container that holds it are
// kept in lockstep by every mutating operation.
type Card struct {
	InstanceID string
	CatalogID  string

	// OwnerID is the participant whose deck minted the card. HolderID is
	// the participant whose zones currently contain it; they diverge after
	// a cross-player move.
	OwnerID  string
	HolderID string

	Zone     Zone
	Position int

	// Battlefield placement. Meaningless outside ZoneBattlefield.
	X float64
	Y float64

	Tapped    bool
	FaceUp    bool
	Attacking bool
	Blocking  bool
	Damage    int
}

// CardSnapshot is the external view of a card instance.
type CardSnapshot struct {
	InstanceID string  `json:"instance_id"`
	CatalogID  string  `json:"catalog_id"`
	OwnerID    string  `json:"owner_id"`
	HolderID   string  `json:"holder_id"`
	Zone       Zone    `json:"zone"`
	Position   int     `json:"position"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Tapped     bool    `json:"tapped"`
	FaceUp     bool    `json:"face_up"`
	Attacking  bool    `json:"attacking"`
	Blocking   bool    `json:"blocking"`
	Damage     int     `json:"damage"`
}

func (c *Card) snapshot() CardSnapshot {
	return CardSnapshot{
		InstanceID: c.InstanceID,
		CatalogID:  c.CatalogID,
		OwnerID:    c.OwnerID,
		HolderID:   c.HolderID,
		Zone:       c.Zone,
		Position:   c.Position,
		X:          c.X,
		Y:          c.Y,
		Tapped:     c.Tapped,
		FaceUp:     c.FaceUp,
		Attacking:  c.Attacking,
		Blocking:   c.Blocking,
		Damage:     c.Damage,
	}
}

package match

// Zone names one of the card containers a player owns. Library, hand,
// graveyard and exile are ordered sequences; the battlefield is indexed by
// free-form coordinates; the commander zone is an unordered set.
type Zone string

const (
	ZoneLibrary     Zone = "library"
	ZoneHand        Zone = "hand"
	ZoneBattlefield Zone = "battlefield"
	ZoneGraveyard   Zone = "graveyard"
	ZoneExile       Zone = "exile"
	ZoneCommander   Zone = "commander"
)

// Zones lists every zone in snapshot order.
var Zones = []Zone{ZoneLibrary, ZoneHand, ZoneBattlefield, ZoneGraveyard, ZoneExile, ZoneCommander}

// Valid reports whether z names a known zone.
func (z Zone) Valid() bool {
	switch z {
	case ZoneLibrary, ZoneHand, ZoneBattlefield, ZoneGraveyard, ZoneExile, ZoneCommander:
		return true
	}
	return false
}

// Ordered reports whether position-in-zone is a sequence index.
func (z Zone) Ordered() bool {
	switch z {
	case ZoneLibrary, ZoneHand, ZoneGraveyard, ZoneExile:
		return true
	}
	return false
}

// SharedVisibility reports whether cards may be moved into this zone of
// another player. Hidden zones (hand, library) and the commander zone
// belong to their player alone.
func (z Zone) SharedVisibility() bool {
	switch z {
	case ZoneBattlefield, ZoneGraveyard, ZoneExile:
		return true
	}
	return false
}

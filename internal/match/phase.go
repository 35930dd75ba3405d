package match

import (
	"encoding/json"
	"fmt"
)

// TurnPhase represents one step of the fixed turn cycle. Phase is
// bookkeeping only: the server tracks where the table says it is, it does
// not gate which actions are legal.
type TurnPhase int

const (
	PhaseUntap TurnPhase = iota
	PhaseUpkeep
	PhaseDraw
	PhaseMain1
	PhaseCombatStart
	PhaseCombatAttack
	PhaseCombatBlock
	PhaseCombatDamage
	PhaseCombatEnd
	PhaseMain2
	PhaseEnd
	PhaseCleanup
)

var phaseNames = map[TurnPhase]string{
	PhaseUntap:        "untap",
	PhaseUpkeep:       "upkeep",
	PhaseDraw:         "draw",
	PhaseMain1:        "main1",
	PhaseCombatStart:  "combat_start",
	PhaseCombatAttack: "combat_attack",
	PhaseCombatBlock:  "combat_block",
	PhaseCombatDamage: "combat_damage",
	PhaseCombatEnd:    "combat_end",
	PhaseMain2:        "main2",
	PhaseEnd:          "end",
	PhaseCleanup:      "cleanup",
}

func (p TurnPhase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase_%d", int(p))
}

// Next returns the phase that follows p. wrapped is true when the cycle
// passed cleanup, which hands the turn to the next player.
func (p TurnPhase) Next() (next TurnPhase, wrapped bool) {
	if p >= PhaseCleanup {
		return PhaseUntap, true
	}
	return p + 1, false
}

// ParsePhase maps a wire name back to a phase.
func ParsePhase(name string) (TurnPhase, bool) {
	for p, n := range phaseNames {
		if n == name {
			return p, true
		}
	}
	return PhaseUntap, false
}

// MarshalJSON encodes the phase by its wire name.
func (p TurnPhase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON decodes a wire name back into a phase.
func (p *TurnPhase) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, ok := ParsePhase(name)
	if !ok {
		return fmt.Errorf("unknown phase %q", name)
	}
	*p = parsed
	return nil
}

package character

// Character is the materialized state of a build as of a specific level.
// It is derived by folding creation choices and level plans forward; it is
// never mutated in place by downstream components.
type Character struct {
	Name  string
	Level int
	Sex   int // SexMale, SexFemale, or SexUnset

	// Special holds the base SPECIAL allocation keyed by actor value,
	// including any implant gains applied at or before Level.
	Special map[ActorValue]int

	// TaggedSkills are the creation-tagged skill indices.
	TaggedSkills map[ActorValue]bool

	// PointsSpent is cumulative skill points invested via level-ups,
	// keyed by skill actor value.
	PointsSpent map[ActorValue]int

	// Traits holds selected trait perk form IDs in selection order.
	Traits []uint32

	// Perks maps level to the perk form IDs selected at that level.
	Perks map[int][]uint32

	// Equipment maps slot index to the equipped item form ID as of Level.
	Equipment map[int]uint32
}

// HasPerk reports how many times perkID appears among the character's
// selected perks and traits.
func (c *Character) HasPerk(perkID uint32) int {
	count := 0
	for _, ids := range c.Perks {
		for _, id := range ids {
			if id == perkID {
				count++
			}
		}
	}
	for _, id := range c.Traits {
		if id == perkID {
			count++
		}
	}
	return count
}

// SpecialOrDefault returns the base value for a SPECIAL stat, defaulting to
// 5 when the allocation has not been set.
func (c *Character) SpecialOrDefault(av ActorValue) int {
	if v, ok := c.Special[av]; ok {
		return v
	}
	return 5
}

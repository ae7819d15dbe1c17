// Package character defines the actor-value namespace and the materialized
// character snapshot consumed by the formula and requirement layers.
//
// SPECIAL stats, skills, and derived values share one integer index space,
// matching the content data's own encoding: SPECIAL occupies indices 5-11
// and skills occupy 32-45.
package character

import "fmt"

// ActorValue is a stable small-integer index identifying a primary stat,
// skill, or derived value.
type ActorValue int

// SPECIAL indices.
const (
	Strength     ActorValue = 5
	Perception   ActorValue = 6
	Endurance    ActorValue = 7
	Charisma     ActorValue = 8
	Intelligence ActorValue = 9
	Agility      ActorValue = 10
	Luck         ActorValue = 11
)

// Skill indices. BigGuns exists in the index space but is only a usable
// skill when modded content enables it.
const (
	Barter        ActorValue = 32
	BigGuns       ActorValue = 33
	EnergyWeapons ActorValue = 34
	Explosives    ActorValue = 35
	Lockpick      ActorValue = 36
	Medicine      ActorValue = 37
	MeleeWeapons  ActorValue = 38
	Repair        ActorValue = 39
	Science       ActorValue = 40
	Guns          ActorValue = 41
	Sneak         ActorValue = 42
	Speech        ActorValue = 43
	Survival      ActorValue = 44
	Unarmed       ActorValue = 45
)

// Derived-value indices referenced by equipment effects.
const (
	ActionPointsAV ActorValue = 12
	CritChanceAV   ActorValue = 14
	HealthAV       ActorValue = 16
)

// Sex values as encoded in content conditions.
const (
	SexUnset  = -1
	SexMale   = 0
	SexFemale = 1
)

var names = map[ActorValue]string{
	Strength:     "Strength",
	Perception:   "Perception",
	Endurance:    "Endurance",
	Charisma:     "Charisma",
	Intelligence: "Intelligence",
	Agility:      "Agility",
	Luck:         "Luck",

	ActionPointsAV: "Action Points",
	CritChanceAV:   "Critical Chance",
	HealthAV:       "Health",

	Barter:        "Barter",
	BigGuns:       "Big Guns",
	EnergyWeapons: "Energy Weapons",
	Explosives:    "Explosives",
	Lockpick:      "Lockpick",
	Medicine:      "Medicine",
	MeleeWeapons:  "Melee Weapons",
	Repair:        "Repair",
	Science:       "Science",
	Guns:          "Guns",
	Sneak:         "Sneak",
	Speech:        "Speech",
	Survival:      "Survival",
	Unarmed:       "Unarmed",
}

// Name returns the display label for an actor value.
func Name(av ActorValue) string {
	if n, ok := names[av]; ok {
		return n
	}
	return fmt.Sprintf("AV%d", int(av))
}

// IsSpecial reports whether av is one of the seven SPECIAL stats.
func IsSpecial(av ActorValue) bool {
	return av >= Strength && av <= Luck
}

// IsSkill reports whether av falls in the skill index range, including
// BigGuns regardless of whether modded content enables it.
func IsSkill(av ActorValue) bool {
	return av >= Barter && av <= Unarmed
}

// SpecialIndices returns the seven SPECIAL indices in ascending order.
func SpecialIndices() []ActorValue {
	return []ActorValue{Strength, Perception, Endurance, Charisma, Intelligence, Agility, Luck}
}

// Governing maps each base-game skill to the SPECIAL stat that seeds its
// initial value. Engine-hardcoded, not moddable; BigGuns is absent here and
// is assigned a governing stat by configuration when enabled.
var Governing = map[ActorValue]ActorValue{
	Barter:        Charisma,
	EnergyWeapons: Perception,
	Explosives:    Perception,
	Guns:          Agility,
	Lockpick:      Perception,
	Medicine:      Intelligence,
	MeleeWeapons:  Strength,
	Repair:        Intelligence,
	Science:       Intelligence,
	Sneak:         Agility,
	Speech:        Charisma,
	Survival:      Endurance,
	Unarmed:       Endurance,
}

// BaseSkills returns the thirteen base-game skill indices in ascending order.
func BaseSkills() []ActorValue {
	out := make([]ActorValue, 0, len(Governing))
	for av := Barter; av <= Unarmed; av++ {
		if _, ok := Governing[av]; ok {
			out = append(out, av)
		}
	}
	return out
}

// Package plan turns a declarative goal specification into a concrete
// level-by-level build. The planner is greedy and fully deterministic:
// identical goals against an identical catalog always produce an
// identical plan.
package plan

import (
	"sort"

	"github.com/avamatic/fnv-planner/internal/game/character"
)

// Goal kinds. A RequirementSpec carries exactly one of the perk, stat,
// crit, or maximize targets.
const (
	goalKindPerk       = "perk"
	goalKindSkill      = "skill"
	goalKindAttribute  = "attribute"
	goalKindCritChance = "crit_chance"
	goalKindCritDamage = "crit_damage"
	goalKindMaximize   = "maximize"
)

// Maximize meta-goal targets.
const (
	MaximizeSkills     = "skills"
	MaximizeCritChance = "crit_chance"
	MaximizeCritDamage = "crit_damage"
)

// RequirementSpec is one target the plan should reach.
type RequirementSpec struct {
	// Perk is the form ID of a perk to acquire. Zero when the goal
	// targets a stat instead.
	Perk uint32 `yaml:"perk,omitempty" json:"perk,omitempty"`

	// Skill and Value target a minimum skill level.
	Skill character.ActorValue `yaml:"skill,omitempty" json:"skill,omitempty"`

	// Attribute and Value target a minimum SPECIAL level.
	Attribute character.ActorValue `yaml:"attribute,omitempty" json:"attribute,omitempty"`

	Value int `yaml:"value,omitempty" json:"value,omitempty"`

	// CritChance targets a minimum critical-hit chance, in percent.
	CritChance float64 `yaml:"crit_chance,omitempty" json:"crit_chance,omitempty"`

	// CritDamage targets a minimum critical-damage potential against
	// the equipped weapon.
	CritDamage float64 `yaml:"crit_damage,omitempty" json:"crit_damage,omitempty"`

	// Maximize is a best-effort meta-goal: MaximizeSkills,
	// MaximizeCritChance, or MaximizeCritDamage. Meta-goals consume
	// leftover resources and are never reported unmet.
	Maximize string `yaml:"maximize,omitempty" json:"maximize,omitempty"`

	// Priority orders goals; higher plans first. Equal priorities fall
	// back to earliest deadline, then listing order.
	Priority int `yaml:"priority,omitempty" json:"priority,omitempty"`

	// Deadline is the level by which the goal must hold. Zero means the
	// plan's target level.
	Deadline int `yaml:"deadline,omitempty" json:"deadline,omitempty"`
}

// kind classifies the spec; empty means malformed.
func (r RequirementSpec) kind() string {
	switch {
	case r.Perk != 0:
		return goalKindPerk
	case character.IsSkill(r.Skill):
		return goalKindSkill
	case character.IsSpecial(r.Attribute):
		return goalKindAttribute
	case r.CritChance > 0:
		return goalKindCritChance
	case r.CritDamage > 0:
		return goalKindCritDamage
	case r.Maximize != "":
		return goalKindMaximize
	}
	return ""
}

// StartingConditions seed the build before leveling begins.
type StartingConditions struct {
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	Sex  int    `yaml:"sex" json:"sex"`

	// Special is the creation allocation; the engine's defaults apply
	// to attributes left out.
	Special map[character.ActorValue]int `yaml:"special,omitempty" json:"special,omitempty"`

	TaggedSkills []character.ActorValue `yaml:"tagged_skills,omitempty" json:"tagged_skills,omitempty"`
	Traits       []uint32               `yaml:"traits,omitempty" json:"traits,omitempty"`

	// Equipment maps slot to item form ID, worn from level 2 on.
	Equipment map[int]uint32 `yaml:"equipment,omitempty" json:"equipment,omitempty"`
}

// GoalSpec is the planner's full input.
type GoalSpec struct {
	Starting StartingConditions `yaml:"starting" json:"starting"`
	Goals    []RequirementSpec  `yaml:"goals" json:"goals"`

	// TargetLevel is the last level the plan covers; zero means the
	// level cap.
	TargetLevel int `yaml:"target_level,omitempty" json:"target_level,omitempty"`

	// UseImplants lets the planner buy SPECIAL implants toward
	// attribute goals and perk thresholds.
	UseImplants bool `yaml:"use_implants,omitempty" json:"use_implants,omitempty"`

	// IncludeBigGuns enables the modded Big Guns skill for this plan,
	// overriding the planner's base configuration.
	IncludeBigGuns bool `yaml:"include_big_guns,omitempty" json:"include_big_guns,omitempty"`

	// BookFraction bounds, per skill, the share of the catalog's book
	// stock the plan may consume, in [0, 1]. Each catalog book record
	// is one collectible copy. Zero disables books.
	BookFraction float64 `yaml:"book_fraction,omitempty" json:"book_fraction,omitempty"`
}

// orderedGoals returns goal indices in planning order: priority
// descending, deadline ascending with zero treated as latest, then
// listing order. The order is total, so planning is deterministic.
func orderedGoals(goals []RequirementSpec, targetLevel int) []int {
	idx := make([]int, len(goals))
	for i := range idx {
		idx[i] = i
	}
	deadline := func(i int) int {
		if goals[i].Deadline <= 0 {
			return targetLevel
		}
		return goals[i].Deadline
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ga, gb := goals[idx[a]], goals[idx[b]]
		if ga.Priority != gb.Priority {
			return ga.Priority > gb.Priority
		}
		if da, db := deadline(idx[a]), deadline(idx[b]); da != db {
			return da < db
		}
		return idx[a] < idx[b]
	})
	return idx
}

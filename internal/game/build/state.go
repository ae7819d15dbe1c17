// Package build maintains a mutable character build plan: the creation
// choices plus a per-level sequence of skill, perk, book, implant, and
// equipment decisions. Every mutation either commits fully or returns a
// structured rejection with the state unchanged.
package build

import (
	"sort"

	"github.com/avamatic/fnv-planner/internal/game/character"
)

// LevelPlan records the decisions taken at one level-up. All fields are
// deltas relative to the previous level.
type LevelPlan struct {
	Level int `yaml:"level" json:"level"`

	// SkillPoints maps skill actor value to points invested at this level.
	SkillPoints map[character.ActorValue]int `yaml:"skill_points,omitempty" json:"skill_points,omitempty"`

	// Perks holds perk form IDs picked at this level, in pick order.
	Perks []uint32 `yaml:"perks,omitempty" json:"perks,omitempty"`

	// Books maps skill book form ID to the number of copies read.
	Books map[uint32]int `yaml:"books,omitempty" json:"books,omitempty"`

	// Implants lists SPECIAL actor values augmented at this level.
	Implants []character.ActorValue `yaml:"implants,omitempty" json:"implants,omitempty"`

	// Equipment maps slot index to the item form ID equipped from this
	// level on. Zero means the slot was cleared.
	Equipment map[int]uint32 `yaml:"equipment,omitempty" json:"equipment,omitempty"`
}

func newLevelPlan(level int) *LevelPlan {
	return &LevelPlan{
		Level:       level,
		SkillPoints: make(map[character.ActorValue]int),
		Books:       make(map[uint32]int),
		Equipment:   make(map[int]uint32),
	}
}

// empty reports whether the plan records no decisions at all.
func (lp *LevelPlan) empty() bool {
	return len(lp.SkillPoints) == 0 && len(lp.Perks) == 0 &&
		len(lp.Books) == 0 && len(lp.Implants) == 0 && len(lp.Equipment) == 0
}

// Clone deep-copies the plan.
func (lp *LevelPlan) Clone() *LevelPlan {
	out := newLevelPlan(lp.Level)
	for k, v := range lp.SkillPoints {
		out.SkillPoints[k] = v
	}
	out.Perks = append(out.Perks, lp.Perks...)
	for k, v := range lp.Books {
		out.Books[k] = v
	}
	out.Implants = append(out.Implants, lp.Implants...)
	for k, v := range lp.Equipment {
		out.Equipment[k] = v
	}
	return out
}

// State is the full serializable build plan: creation choices plus the
// level plans. It carries no derived data; stats are always recomputed
// from it.
type State struct {
	Name string `yaml:"name" json:"name"`
	Sex  int    `yaml:"sex" json:"sex"`

	// Special is the creation SPECIAL allocation.
	Special map[character.ActorValue]int `yaml:"special" json:"special"`

	// TaggedSkills are the creation tag picks in pick order.
	TaggedSkills []character.ActorValue `yaml:"tagged_skills,omitempty" json:"tagged_skills,omitempty"`

	// Traits are the creation trait picks in pick order.
	Traits []uint32 `yaml:"traits,omitempty" json:"traits,omitempty"`

	// Levels holds the per-level decisions, keyed by level (2 and up).
	Levels map[int]*LevelPlan `yaml:"levels,omitempty" json:"levels,omitempty"`

	// TargetLevel is the level the build is planned toward. Zero means
	// the level cap. Informational; it never locks creation.
	TargetLevel int `yaml:"target_level,omitempty" json:"target_level,omitempty"`
}

// NewState returns an empty plan with the default SPECIAL spread.
func NewState() *State {
	s := &State{
		Sex:     character.SexUnset,
		Special: make(map[character.ActorValue]int, 7),
		Levels:  make(map[int]*LevelPlan),
	}
	for _, av := range character.SpecialIndices() {
		s.Special[av] = 5
	}
	return s
}

// Clone deep-copies the plan.
func (s *State) Clone() *State {
	out := &State{
		Name:        s.Name,
		Sex:         s.Sex,
		Special:     make(map[character.ActorValue]int, len(s.Special)),
		Levels:      make(map[int]*LevelPlan, len(s.Levels)),
		TargetLevel: s.TargetLevel,
	}
	for k, v := range s.Special {
		out.Special[k] = v
	}
	out.TaggedSkills = append(out.TaggedSkills, s.TaggedSkills...)
	out.Traits = append(out.Traits, s.Traits...)
	for lvl, lp := range s.Levels {
		out.Levels[lvl] = lp.Clone()
	}
	return out
}

// PlannedLevels returns the levels with a recorded plan, ascending.
func (s *State) PlannedLevels() []int {
	out := make([]int, 0, len(s.Levels))
	for lvl := range s.Levels {
		out = append(out, lvl)
	}
	sort.Ints(out)
	return out
}

// MaxPlannedLevel returns the highest level with a recorded plan, or 1.
func (s *State) MaxPlannedLevel() int {
	max := 1
	for lvl := range s.Levels {
		if lvl > max {
			max = lvl
		}
	}
	return max
}

// leveled reports whether any level plan has content. Creation choices
// lock once this is true.
func (s *State) leveled() bool {
	for _, lp := range s.Levels {
		if !lp.empty() {
			return true
		}
	}
	return false
}

// plan returns the level's plan, creating it on demand.
func (s *State) plan(level int) *LevelPlan {
	lp, ok := s.Levels[level]
	if !ok {
		lp = newLevelPlan(level)
		s.Levels[level] = lp
	}
	return lp
}

// prune drops the level's plan entry if it became empty, keeping the
// serialized form minimal and remove-after-apply a perfect inverse.
func (s *State) prune(level int) {
	if lp, ok := s.Levels[level]; ok && lp.empty() {
		delete(s.Levels, level)
	}
}

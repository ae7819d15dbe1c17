package build

import (
	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/game/formula"
)

// levelSnapshot is one cached materialization step: the character as of
// a level, its derived stats, and the level's skill point ledger.
type levelSnapshot struct {
	char  *character.Character
	stats formula.Stats

	// granted is the skill point income at this level; zero at level 1.
	granted int
	// spent is the points invested at this level, books excluded.
	spent int
}

// snapshotAt materializes the build as of level, reusing cached levels
// below it. Level 1 is the creation state; each later level folds that
// level's plan onto the previous snapshot.
func (e *Engine) snapshotAt(level int) (*levelSnapshot, error) {
	if err := e.checkLevel(level); err != nil {
		return nil, err
	}
	var prev *levelSnapshot
	for lvl := 1; lvl <= level; lvl++ {
		if snap, ok := e.cache[lvl]; ok {
			prev = snap
			continue
		}
		snap := e.materialize(lvl, prev)
		e.cache[lvl] = snap
		prev = snap
	}
	return prev, nil
}

func (e *Engine) materialize(level int, prev *levelSnapshot) *levelSnapshot {
	var c *character.Character
	snap := &levelSnapshot{}

	if level == 1 {
		c = e.creationCharacter()
	} else {
		c = cloneCharacter(prev.char)
		c.Level = level
		snap.granted = prev.stats.SkillPointsPerLevel

		if lp, ok := e.state.Levels[level]; ok {
			for _, av := range lp.Implants {
				c.Special[av]++
			}
			for _, av := range sortedSkillKeys(lp.SkillPoints) {
				c.PointsSpent[av] += lp.SkillPoints[av]
				snap.spent += lp.SkillPoints[av]
			}
			bookPoints := e.formulas.SkillBookPoints()
			for formID, count := range lp.Books {
				if b, ok := e.catalog.Book(formID); ok {
					c.PointsSpent[b.Skill] += bookPoints * count
				}
			}
			if len(lp.Perks) > 0 {
				c.Perks[level] = append([]uint32(nil), lp.Perks...)
			}
			for slot, formID := range lp.Equipment {
				if formID == 0 {
					delete(c.Equipment, slot)
				} else {
					c.Equipment[slot] = formID
				}
			}
		}
	}

	snap.char = c
	snap.stats = e.formulas.Compute(c, e.catalog, e.cfg.options())
	return snap
}

// creationCharacter builds the level 1 character from creation choices.
func (e *Engine) creationCharacter() *character.Character {
	c := &character.Character{
		Name:         e.state.Name,
		Level:        1,
		Sex:          e.state.Sex,
		Special:      make(map[character.ActorValue]int, 7),
		TaggedSkills: make(map[character.ActorValue]bool, len(e.state.TaggedSkills)),
		PointsSpent:  make(map[character.ActorValue]int),
		Perks:        make(map[int][]uint32),
		Equipment:    make(map[int]uint32),
	}
	for _, av := range character.SpecialIndices() {
		c.Special[av] = e.state.Special[av]
	}
	for _, av := range e.state.TaggedSkills {
		c.TaggedSkills[av] = true
	}
	c.Traits = append(c.Traits, e.state.Traits...)
	return c
}

func cloneCharacter(c *character.Character) *character.Character {
	out := &character.Character{
		Name:         c.Name,
		Level:        c.Level,
		Sex:          c.Sex,
		Special:      make(map[character.ActorValue]int, len(c.Special)),
		TaggedSkills: make(map[character.ActorValue]bool, len(c.TaggedSkills)),
		PointsSpent:  make(map[character.ActorValue]int, len(c.PointsSpent)),
		Perks:        make(map[int][]uint32, len(c.Perks)),
		Equipment:    make(map[int]uint32, len(c.Equipment)),
	}
	for k, v := range c.Special {
		out.Special[k] = v
	}
	for k, v := range c.TaggedSkills {
		out.TaggedSkills[k] = v
	}
	for k, v := range c.PointsSpent {
		out.PointsSpent[k] = v
	}
	out.Traits = append(out.Traits, c.Traits...)
	for lvl, ids := range c.Perks {
		out.Perks[lvl] = append([]uint32(nil), ids...)
	}
	for k, v := range c.Equipment {
		out.Equipment[k] = v
	}
	return out
}

// unspentAt returns the points still spendable at level. Without
// carryover this is the level's own income minus its spend; with
// carryover, unspent income from earlier levels rolls forward.
//
// Postcondition: a negative return means the plan overspends, which can
// only arise from a loaded plan; live mutations never commit one.
func (e *Engine) unspentAt(level int) (int, error) {
	if level < 2 {
		return 0, nil
	}
	snap, err := e.snapshotAt(level)
	if err != nil {
		return 0, err
	}
	if !e.cfg.SkillPointCarryover {
		return snap.granted - snap.spent, nil
	}
	total := 0
	for lvl := 2; lvl <= level; lvl++ {
		s := e.cache[lvl]
		total += s.granted - s.spent
	}
	return total, nil
}

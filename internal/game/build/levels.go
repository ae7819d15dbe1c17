package build

import (
	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/game/content"
	"github.com/avamatic/fnv-planner/internal/game/requirement"
)

// perkSlotsPerLevel is the number of perk picks a perk level grants.
const perkSlotsPerLevel = 1

// checkPlanLevel bounds level to [2, MaxLevel]: level 1 is the creation
// state and carries no plan.
func (e *Engine) checkPlanLevel(level int) error {
	if level < 2 || level > e.MaxLevel() {
		return LevelOutOfRangeError{Level: level, Max: e.MaxLevel()}
	}
	return nil
}

// AllocateSkillPoints invests delta points into a skill at level. A
// negative delta refunds points allocated at that same level. The spend
// must fit the level's unspent pool and may not push the skill past the
// cap at this or any later planned level.
func (e *Engine) AllocateSkillPoints(level int, av character.ActorValue, delta int) error {
	if err := e.checkPlanLevel(level); err != nil {
		return err
	}
	if !e.activeSkill(av) {
		return UnknownSkillError{ActorValue: int(av)}
	}
	if delta == 0 {
		return nil
	}
	if delta < 0 {
		lp, ok := e.state.Levels[level]
		if !ok || lp.SkillPoints[av] < -delta {
			return reject(KindInvalidValue, level, "cannot refund more than the %d points allocated to %s",
				allocatedAt(lp, av), character.Name(av))
		}
	} else {
		unspent, err := e.unspentAt(level)
		if err != nil {
			return err
		}
		if delta > unspent {
			return reject(KindInsufficientPoints, level, "%d points requested, %d unspent", delta, unspent)
		}
	}

	e.applySkillDelta(level, av, delta)
	if err := e.verifyFrom(level, av); err != nil {
		e.applySkillDelta(level, av, -delta)
		return err
	}
	return nil
}

func allocatedAt(lp *LevelPlan, av character.ActorValue) int {
	if lp == nil {
		return 0
	}
	return lp.SkillPoints[av]
}

func (e *Engine) applySkillDelta(level int, av character.ActorValue, delta int) {
	lp := e.state.plan(level)
	lp.SkillPoints[av] += delta
	if lp.SkillPoints[av] == 0 {
		delete(lp.SkillPoints, av)
	}
	e.state.prune(level)
	e.invalidateFrom(level)
}

// verifyFrom re-checks the skill cap for av and the point budgets at
// every planned level from `level` up, after a tentative mutation.
func (e *Engine) verifyFrom(level int, av character.ActorValue) error {
	check := []int{level}
	for _, lvl := range e.state.PlannedLevels() {
		if lvl > level {
			check = append(check, lvl)
		}
	}
	for _, lvl := range check {
		snap, err := e.snapshotAt(lvl)
		if err != nil {
			return err
		}
		if av != 0 && snap.stats.Skills[av] > e.cfg.SkillCap {
			return reject(KindSkillCapExceeded, lvl, "%s=%d exceeds cap %d",
				character.Name(av), snap.stats.Skills[av], e.cfg.SkillCap)
		}
		if e.cfg.SkillPointCarryover || lvl == level {
			unspent, err := e.unspentAt(lvl)
			if err != nil {
				return err
			}
			if unspent < 0 {
				return reject(KindInsufficientPoints, lvl, "%d points overspent", -unspent)
			}
		}
	}
	return nil
}

// SetLevelAllocation replaces a level's skill-point investments wholesale.
// On any violation the previous allocation is restored.
func (e *Engine) SetLevelAllocation(level int, points map[character.ActorValue]int) error {
	if err := e.checkPlanLevel(level); err != nil {
		return err
	}
	next := make(map[character.ActorValue]int, len(points))
	touched := make([]character.ActorValue, 0, len(points))
	for av, pts := range points {
		if !e.activeSkill(av) {
			return UnknownSkillError{ActorValue: int(av)}
		}
		if pts < 0 {
			return reject(KindInvalidValue, level, "negative allocation for %s", character.Name(av))
		}
		if pts == 0 {
			continue
		}
		next[av] = pts
		touched = append(touched, av)
	}

	prev := e.state.plan(level).SkillPoints
	for av := range prev {
		touched = append(touched, av)
	}
	e.state.plan(level).SkillPoints = next
	e.state.prune(level)
	e.invalidateFrom(level)

	for _, av := range touched {
		if err := e.verifyFrom(level, av); err != nil {
			e.state.plan(level).SkillPoints = prev
			e.state.prune(level)
			e.invalidateFrom(level)
			return err
		}
	}
	return nil
}

// SelectPerk picks a perk at level. The level must grant a perk, the
// slot must be free, and the perk's unlock expression must hold against
// the level's snapshot, this level's skill allocations included.
func (e *Engine) SelectPerk(level int, formID uint32) error {
	if err := e.checkPlanLevel(level); err != nil {
		return err
	}
	perk, ok := e.catalog.Perk(formID)
	if !ok {
		return requirement.UnknownPerkError{FormID: formID}
	}
	if level%e.cfg.PerkInterval != 0 {
		return reject(KindIntervalViolation, level, "perks are granted every %d levels", e.cfg.PerkInterval)
	}
	if lp, ok := e.state.Levels[level]; ok {
		if len(lp.Perks) >= perkSlotsPerLevel {
			return reject(KindSlotOccupied, level, "perk slot already holds %#x", lp.Perks[0])
		}
		for _, id := range lp.Perks {
			if id == formID {
				return reject(KindDuplicateSelection, level, "perk %s already picked at this level", perk.Name)
			}
		}
	}
	snap, err := e.snapshotAt(level)
	if err != nil {
		return err
	}
	if perk.IsTrait {
		return reject(KindInvalidValue, level, "%s is a trait, selectable only at creation", perk.Name)
	}
	if snap.char.HasPerk(formID) >= perk.MaxRanks() {
		return reject(KindAlreadySelected, level, "%s is already at max rank %d", perk.Name, perk.MaxRanks())
	}
	av, err := e.graph.CanTake(formID, snap.char, snap.stats)
	if err != nil {
		return err
	}
	if !av.Available {
		return reject(KindRequirementUnmet, level, "%s: %v", perk.Name, av.UnmetClauses)
	}

	lp := e.state.plan(level)
	lp.Perks = append(lp.Perks, formID)
	e.invalidateFrom(level)
	return nil
}

// RemovePerk reverses SelectPerk. Later picks that depended on the perk
// become invalid; Validate reports them.
func (e *Engine) RemovePerk(level int, formID uint32) error {
	if err := e.checkPlanLevel(level); err != nil {
		return err
	}
	lp, ok := e.state.Levels[level]
	if !ok {
		return reject(KindMissingPlan, level, "no decisions recorded at this level")
	}
	for i, id := range lp.Perks {
		if id == formID {
			lp.Perks = append(lp.Perks[:i], lp.Perks[i+1:]...)
			e.state.prune(level)
			e.invalidateFrom(level)
			return nil
		}
	}
	return reject(KindMissingPlan, level, "perk %#x not picked at this level", formID)
}

// ReadBook consumes one copy of a skill book at level. The granted
// points may not push the skill past the cap.
func (e *Engine) ReadBook(level int, formID uint32) error {
	if err := e.checkPlanLevel(level); err != nil {
		return err
	}
	book, ok := e.catalog.Book(formID)
	if !ok {
		return UnknownItemError{FormID: formID}
	}
	if !e.activeSkill(book.Skill) {
		return reject(KindInvalidValue, level, "%s teaches an inactive skill", book.Name)
	}

	lp := e.state.plan(level)
	lp.Books[formID]++
	e.invalidateFrom(level)
	if err := e.verifyFrom(level, book.Skill); err != nil {
		lp.Books[formID]--
		if lp.Books[formID] == 0 {
			delete(lp.Books, formID)
		}
		e.state.prune(level)
		e.invalidateFrom(level)
		return err
	}
	return nil
}

// RemoveBook reverses ReadBook.
func (e *Engine) RemoveBook(level int, formID uint32) error {
	if err := e.checkPlanLevel(level); err != nil {
		return err
	}
	lp, ok := e.state.Levels[level]
	if !ok || lp.Books[formID] == 0 {
		return reject(KindMissingPlan, level, "book %#x not read at this level", formID)
	}
	lp.Books[formID]--
	if lp.Books[formID] == 0 {
		delete(lp.Books, formID)
	}
	e.state.prune(level)
	e.invalidateFrom(level)
	return nil
}

// AddImplant augments one SPECIAL attribute at level. Slots are limited
// to one per point of creation Endurance, one implant per attribute, and
// the attribute may not exceed its maximum.
func (e *Engine) AddImplant(level int, av character.ActorValue) error {
	if err := e.checkPlanLevel(level); err != nil {
		return err
	}
	if !character.IsSpecial(av) {
		return reject(KindInvalidValue, level, "actor value %d is not a SPECIAL attribute", av)
	}
	count := 0
	for _, lp := range e.state.Levels {
		for _, existing := range lp.Implants {
			if existing == av {
				return reject(KindDuplicateSelection, level, "%s implant already installed", character.Name(av))
			}
			count++
		}
	}
	if count >= e.implantLimit() {
		return reject(KindImplantLimitExceeded, level, "all %d implant slots used", e.implantLimit())
	}
	snap, err := e.snapshotAt(level)
	if err != nil {
		return err
	}
	if snap.char.Special[av] >= e.cfg.AttributeMax {
		return reject(KindInvalidValue, level, "%s already at maximum %d", character.Name(av), e.cfg.AttributeMax)
	}

	lp := e.state.plan(level)
	lp.Implants = append(lp.Implants, av)
	e.invalidateFrom(level)
	return nil
}

// RemoveImplant reverses AddImplant. Later picks that depended on the
// attribute become invalid; Validate reports them.
func (e *Engine) RemoveImplant(level int, av character.ActorValue) error {
	if err := e.checkPlanLevel(level); err != nil {
		return err
	}
	lp, ok := e.state.Levels[level]
	if !ok {
		return reject(KindMissingPlan, level, "no decisions recorded at this level")
	}
	for i, existing := range lp.Implants {
		if existing == av {
			lp.Implants = append(lp.Implants[:i], lp.Implants[i+1:]...)
			e.state.prune(level)
			e.invalidateFrom(level)
			return nil
		}
	}
	return reject(KindMissingPlan, level, "%s implant not installed at this level", character.Name(av))
}

// Equip places an item into its slot from level on. The slot must be
// empty as of that level.
func (e *Engine) Equip(level, slot int, formID uint32) error {
	if err := e.checkPlanLevel(level); err != nil {
		return err
	}
	item, ok := e.catalog.Item(formID)
	if !ok {
		return UnknownItemError{FormID: formID}
	}
	if item.Slot == content.SlotNone {
		return reject(KindInvalidSlot, level, "%s cannot be equipped", item.Name)
	}
	if item.Slot != slot {
		return reject(KindInvalidSlot, level, "%s occupies slot %d, not %d", item.Name, item.Slot, slot)
	}
	snap, err := e.snapshotAt(level)
	if err != nil {
		return err
	}
	if held, occupied := snap.char.Equipment[slot]; occupied {
		return reject(KindSlotOccupied, level, "slot %d already holds %#x", slot, held)
	}

	lp := e.state.plan(level)
	lp.Equipment[slot] = formID
	e.invalidateFrom(level)
	return nil
}

// Unequip clears an equipment slot from level on. Clearing an item
// equipped at this same level removes the delta entirely.
func (e *Engine) Unequip(level, slot int) error {
	if err := e.checkPlanLevel(level); err != nil {
		return err
	}
	snap, err := e.snapshotAt(level)
	if err != nil {
		return err
	}
	if _, occupied := snap.char.Equipment[slot]; !occupied {
		return reject(KindMissingPlan, level, "slot %d is already empty", slot)
	}
	lp := e.state.plan(level)
	if _, setHere := lp.Equipment[slot]; setHere {
		delete(lp.Equipment, slot)
	} else {
		lp.Equipment[slot] = 0
	}
	e.state.prune(level)
	e.invalidateFrom(level)
	return nil
}

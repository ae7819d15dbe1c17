package build

import (
	"errors"
	"fmt"
	"sort"

	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/game/content"
	"github.com/avamatic/fnv-planner/internal/game/formula"
	"github.com/avamatic/fnv-planner/internal/game/requirement"
)

// Config fixes the rule set an engine enforces. It is read once at
// construction; changing rules mid-build is not supported.
type Config struct {
	// PerkInterval grants a perk pick at every level divisible by it.
	PerkInterval int `yaml:"perk_interval" json:"perk_interval"`
	// SkillCap is the maximum value any skill may reach.
	SkillCap int `yaml:"skill_cap" json:"skill_cap"`
	// AttributeBudget is the total creation SPECIAL point pool.
	AttributeBudget int `yaml:"attribute_budget" json:"attribute_budget"`
	// AttributeMin and AttributeMax bound each creation SPECIAL value.
	AttributeMin int `yaml:"attribute_min" json:"attribute_min"`
	AttributeMax int `yaml:"attribute_max" json:"attribute_max"`
	// TagCount is the number of creation tag skills.
	TagCount int `yaml:"tag_count" json:"tag_count"`
	// MaxTraits is the number of creation trait slots.
	MaxTraits int `yaml:"max_traits" json:"max_traits"`
	// SkillPointCarryover lets unspent level-up points roll forward.
	SkillPointCarryover bool `yaml:"skill_point_carryover" json:"skill_point_carryover"`
	// IncludeBigGuns enables the modded Big Guns skill.
	IncludeBigGuns bool `yaml:"include_big_guns" json:"include_big_guns"`
	// BigGunsGoverning seeds Big Guns when enabled; defaults to Strength.
	BigGunsGoverning character.ActorValue `yaml:"big_guns_governing,omitempty" json:"big_guns_governing,omitempty"`
}

// DefaultConfig returns the stock rule set.
func DefaultConfig() Config {
	return Config{
		PerkInterval:    2,
		SkillCap:        100,
		AttributeBudget: 40,
		AttributeMin:    1,
		AttributeMax:    10,
		TagCount:        3,
		MaxTraits:       2,
	}
}

// Validate aggregates every rule violation rather than stopping at the
// first, so a misconfigured rule file reports everything at once.
func (c Config) Validate() error {
	var errs []error
	if c.PerkInterval < 1 {
		errs = append(errs, fmt.Errorf("perk_interval must be at least 1, got %d", c.PerkInterval))
	}
	if c.SkillCap < 1 {
		errs = append(errs, fmt.Errorf("skill_cap must be at least 1, got %d", c.SkillCap))
	}
	if c.AttributeMin < 1 || c.AttributeMax < c.AttributeMin {
		errs = append(errs, fmt.Errorf("attribute bounds [%d, %d] are not a valid range", c.AttributeMin, c.AttributeMax))
	}
	if c.AttributeBudget < c.AttributeMin*7 || c.AttributeBudget > c.AttributeMax*7 {
		errs = append(errs, fmt.Errorf("attribute_budget %d cannot be allocated within bounds [%d, %d]",
			c.AttributeBudget, c.AttributeMin, c.AttributeMax))
	}
	if c.TagCount < 0 {
		errs = append(errs, fmt.Errorf("tag_count must not be negative, got %d", c.TagCount))
	}
	if c.MaxTraits < 0 {
		errs = append(errs, fmt.Errorf("max_traits must not be negative, got %d", c.MaxTraits))
	}
	if c.IncludeBigGuns && c.BigGunsGoverning != 0 && !character.IsSpecial(c.BigGunsGoverning) {
		errs = append(errs, fmt.Errorf("big_guns_governing %d is not a SPECIAL attribute", c.BigGunsGoverning))
	}
	return errors.Join(errs...)
}

func (c Config) options() formula.Options {
	return formula.Options{
		IncludeBigGuns:   c.IncludeBigGuns,
		BigGunsGoverning: c.BigGunsGoverning,
	}
}

// Engine owns one build plan and enforces the rule set over it. It is
// not safe for concurrent use; each session holds its own engine.
type Engine struct {
	catalog  *content.Catalog
	formulas *formula.Engine
	graph    *requirement.Graph
	cfg      Config

	state *State

	// cache holds materialized per-level snapshots. A mutation at level
	// L drops every entry at L and above; creation edits drop them all.
	cache map[int]*levelSnapshot
}

// NewEngine builds an engine over an empty plan.
//
// Precondition: cat, formulas, and graph are built from the same catalog.
func NewEngine(cat *content.Catalog, formulas *formula.Engine, graph *requirement.Graph, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("build rules: %w", err)
	}
	return &Engine{
		catalog:  cat,
		formulas: formulas,
		graph:    graph,
		cfg:      cfg,
		state:    NewState(),
		cache:    make(map[int]*levelSnapshot),
	}, nil
}

// Load replaces the engine's plan with a previously serialized one. The
// plan is cloned; the caller's copy stays independent.
func (e *Engine) Load(s *State) {
	e.state = s.Clone()
	e.invalidateFrom(1)
}

// State returns a deep copy of the current plan for serialization.
func (e *Engine) State() *State {
	return e.state.Clone()
}

// Config returns the rule set the engine enforces.
func (e *Engine) Config() Config { return e.cfg }

// MaxLevel returns the level cap from the formula constants.
func (e *Engine) MaxLevel() int { return e.formulas.MaxLevel() }

func (e *Engine) invalidateFrom(level int) {
	for lvl := range e.cache {
		if lvl >= level {
			delete(e.cache, lvl)
		}
	}
}

func (e *Engine) checkLevel(level int) error {
	if level < 1 || level > e.MaxLevel() {
		return LevelOutOfRangeError{Level: level, Max: e.MaxLevel()}
	}
	return nil
}

// activeSkill reports whether av is a skill under the current rules.
func (e *Engine) activeSkill(av character.ActorValue) bool {
	if !character.IsSkill(av) {
		return false
	}
	if av == character.BigGuns && !e.cfg.IncludeBigGuns {
		return false
	}
	return true
}

// SetName renames the build. Names never lock.
func (e *Engine) SetName(name string) {
	e.state.Name = name
}

// SetSex records the creation sex choice.
func (e *Engine) SetSex(sex int) error {
	if e.state.leveled() {
		return reject(KindCreationLocked, 0, "sex cannot change after leveling begins")
	}
	if sex != character.SexMale && sex != character.SexFemale {
		return reject(KindInvalidValue, 0, "sex must be male or female")
	}
	e.state.Sex = sex
	e.invalidateFrom(1)
	return nil
}

// SetSpecial sets one creation SPECIAL value. The whole allocation must
// stay inside the attribute budget.
func (e *Engine) SetSpecial(av character.ActorValue, value int) error {
	if e.state.leveled() {
		return reject(KindCreationLocked, 0, "SPECIAL cannot change after leveling begins")
	}
	if !character.IsSpecial(av) {
		return reject(KindInvalidValue, 0, "actor value %d is not a SPECIAL attribute", av)
	}
	if value < e.cfg.AttributeMin || value > e.cfg.AttributeMax {
		return reject(KindInvalidValue, 0, "%s must be within [%d, %d]",
			character.Name(av), e.cfg.AttributeMin, e.cfg.AttributeMax)
	}
	total := value
	for _, other := range character.SpecialIndices() {
		if other != av {
			total += e.state.Special[other]
		}
	}
	if total > e.cfg.AttributeBudget {
		return reject(KindOverBudget, 0, "allocation %d exceeds attribute budget %d", total, e.cfg.AttributeBudget)
	}
	e.state.Special[av] = value
	e.invalidateFrom(1)
	return nil
}

// SetAttributes replaces the whole creation SPECIAL allocation at once.
// Unlike SetSpecial, the budget must be spent exactly.
func (e *Engine) SetAttributes(values map[character.ActorValue]int) error {
	if e.state.leveled() {
		return reject(KindCreationLocked, 0, "SPECIAL cannot change after leveling begins")
	}
	total := 0
	for _, av := range character.SpecialIndices() {
		v, ok := values[av]
		if !ok {
			return reject(KindInvalidValue, 0, "allocation is missing %s", character.Name(av))
		}
		if v < e.cfg.AttributeMin || v > e.cfg.AttributeMax {
			return reject(KindInvalidValue, 0, "%s must be within [%d, %d]",
				character.Name(av), e.cfg.AttributeMin, e.cfg.AttributeMax)
		}
		total += v
	}
	if total != e.cfg.AttributeBudget {
		return reject(KindOverBudget, 0, "allocation %d must spend the attribute budget %d exactly",
			total, e.cfg.AttributeBudget)
	}
	for _, av := range character.SpecialIndices() {
		e.state.Special[av] = values[av]
	}
	e.invalidateFrom(1)
	return nil
}

// TagSkill marks a creation tag skill.
func (e *Engine) TagSkill(av character.ActorValue) error {
	if e.state.leveled() {
		return reject(KindCreationLocked, 0, "tags cannot change after leveling begins")
	}
	if !e.activeSkill(av) {
		return UnknownSkillError{ActorValue: int(av)}
	}
	for _, tagged := range e.state.TaggedSkills {
		if tagged == av {
			return reject(KindDuplicateSelection, 0, "%s is already tagged", character.Name(av))
		}
	}
	if len(e.state.TaggedSkills) >= e.cfg.TagCount {
		return reject(KindSlotOccupied, 0, "all %d tag slots are filled", e.cfg.TagCount)
	}
	e.state.TaggedSkills = append(e.state.TaggedSkills, av)
	e.invalidateFrom(1)
	return nil
}

// UntagSkill reverses TagSkill.
func (e *Engine) UntagSkill(av character.ActorValue) error {
	if e.state.leveled() {
		return reject(KindCreationLocked, 0, "tags cannot change after leveling begins")
	}
	for i, tagged := range e.state.TaggedSkills {
		if tagged == av {
			e.state.TaggedSkills = append(e.state.TaggedSkills[:i], e.state.TaggedSkills[i+1:]...)
			e.invalidateFrom(1)
			return nil
		}
	}
	return reject(KindMissingPlan, 0, "%s is not tagged", character.Name(av))
}

// SetTaggedSkills replaces the creation tag picks at once.
func (e *Engine) SetTaggedSkills(skills []character.ActorValue) error {
	if e.state.leveled() {
		return reject(KindCreationLocked, 0, "tags cannot change after leveling begins")
	}
	if len(skills) > e.cfg.TagCount {
		return reject(KindSlotOccupied, 0, "%d tags exceed the %d slots", len(skills), e.cfg.TagCount)
	}
	seen := make(map[character.ActorValue]bool, len(skills))
	for _, av := range skills {
		if !e.activeSkill(av) {
			return UnknownSkillError{ActorValue: int(av)}
		}
		if seen[av] {
			return reject(KindDuplicateSelection, 0, "%s is tagged twice", character.Name(av))
		}
		seen[av] = true
	}
	e.state.TaggedSkills = append([]character.ActorValue(nil), skills...)
	e.invalidateFrom(1)
	return nil
}

// AddTrait picks a creation trait.
func (e *Engine) AddTrait(formID uint32) error {
	if e.state.leveled() {
		return reject(KindCreationLocked, 0, "traits cannot change after leveling begins")
	}
	perk, ok := e.catalog.Perk(formID)
	if !ok {
		return requirement.UnknownPerkError{FormID: formID}
	}
	if !perk.IsTrait {
		return reject(KindInvalidValue, 0, "%s is not a trait", perk.Name)
	}
	for _, id := range e.state.Traits {
		if id == formID {
			return reject(KindDuplicateSelection, 0, "trait %s already selected", perk.Name)
		}
	}
	if len(e.state.Traits) >= e.cfg.MaxTraits {
		return reject(KindSlotOccupied, 0, "all %d trait slots are filled", e.cfg.MaxTraits)
	}
	e.state.Traits = append(e.state.Traits, formID)
	e.invalidateFrom(1)
	return nil
}

// RemoveTrait reverses AddTrait.
func (e *Engine) RemoveTrait(formID uint32) error {
	if e.state.leveled() {
		return reject(KindCreationLocked, 0, "traits cannot change after leveling begins")
	}
	for i, id := range e.state.Traits {
		if id == formID {
			e.state.Traits = append(e.state.Traits[:i], e.state.Traits[i+1:]...)
			e.invalidateFrom(1)
			return nil
		}
	}
	return reject(KindMissingPlan, 0, "trait %#x not selected", formID)
}

// SetTraits replaces the creation trait picks at once.
func (e *Engine) SetTraits(formIDs []uint32) error {
	if e.state.leveled() {
		return reject(KindCreationLocked, 0, "traits cannot change after leveling begins")
	}
	if len(formIDs) > e.cfg.MaxTraits {
		return reject(KindSlotOccupied, 0, "%d traits exceed the %d slots", len(formIDs), e.cfg.MaxTraits)
	}
	seen := make(map[uint32]bool, len(formIDs))
	for _, id := range formIDs {
		perk, ok := e.catalog.Perk(id)
		if !ok {
			return requirement.UnknownPerkError{FormID: id}
		}
		if !perk.IsTrait {
			return reject(KindInvalidValue, 0, "%s is not a trait", perk.Name)
		}
		if seen[id] {
			return reject(KindDuplicateSelection, 0, "trait %s selected twice", perk.Name)
		}
		seen[id] = true
	}
	e.state.Traits = append([]uint32(nil), formIDs...)
	e.invalidateFrom(1)
	return nil
}

// SetTargetLevel records the level the build is planned toward. Zero
// resets to the level cap.
func (e *Engine) SetTargetLevel(level int) error {
	if level != 0 {
		if err := e.checkLevel(level); err != nil {
			return err
		}
	}
	e.state.TargetLevel = level
	return nil
}

// Clone returns an independent engine over a deep copy of the plan.
// The catalog and rule set are shared; they are read-only.
func (e *Engine) Clone() *Engine {
	return &Engine{
		catalog:  e.catalog,
		formulas: e.formulas,
		graph:    e.graph,
		cfg:      e.cfg,
		state:    e.state.Clone(),
		cache:    make(map[int]*levelSnapshot),
	}
}

// Snapshot materializes the character as of level.
func (e *Engine) Snapshot(level int) (*character.Character, error) {
	snap, err := e.snapshotAt(level)
	if err != nil {
		return nil, err
	}
	return snap.char, nil
}

// StatsAt computes the full derived-stat block as of level.
func (e *Engine) StatsAt(level int) (formula.Stats, error) {
	snap, err := e.snapshotAt(level)
	if err != nil {
		return formula.Stats{}, err
	}
	return snap.stats, nil
}

// UnspentPointsAt returns the skill points still spendable at level.
func (e *Engine) UnspentPointsAt(level int) (int, error) {
	if err := e.checkLevel(level); err != nil {
		return 0, err
	}
	return e.unspentAt(level)
}

// AvailablePerksAt lists the perks selectable at level, sorted by form
// ID. The level's own skill allocations count toward thresholds.
func (e *Engine) AvailablePerksAt(level int) ([]uint32, error) {
	snap, err := e.snapshotAt(level)
	if err != nil {
		return nil, err
	}
	return e.graph.AvailableAt(snap.char, snap.stats), nil
}

// UnmetFor explains why a perk is unavailable at level.
func (e *Engine) UnmetFor(level int, formID uint32) (requirement.Availability, error) {
	snap, err := e.snapshotAt(level)
	if err != nil {
		return requirement.Availability{}, err
	}
	return e.graph.CanTake(formID, snap.char, snap.stats)
}

// IsComplete reports whether creation is fully decided: sex chosen, the
// attribute budget exactly spent, and every tag slot filled.
func (e *Engine) IsComplete() bool {
	if e.state.Sex == character.SexUnset {
		return false
	}
	total := 0
	for _, av := range character.SpecialIndices() {
		total += e.state.Special[av]
	}
	return total == e.cfg.AttributeBudget && len(e.state.TaggedSkills) == e.cfg.TagCount
}

// Violations re-checks the whole plan bottom-up and collects every
// violation: budgets, caps, perk requirements, and implant limits. An
// empty slice means the plan replays cleanly. Each entry carries its
// Kind and offending level so callers can report them individually.
func (e *Engine) Violations() []Error {
	var out []Error

	total := 0
	for _, av := range character.SpecialIndices() {
		v := e.state.Special[av]
		if v < e.cfg.AttributeMin || v > e.cfg.AttributeMax {
			out = append(out, reject(KindInvalidValue, 0, "%s=%d outside [%d, %d]",
				character.Name(av), v, e.cfg.AttributeMin, e.cfg.AttributeMax))
		}
		total += v
	}
	if total > e.cfg.AttributeBudget {
		out = append(out, reject(KindOverBudget, 0, "allocation %d exceeds attribute budget %d",
			total, e.cfg.AttributeBudget))
	}
	if len(e.state.TaggedSkills) > e.cfg.TagCount {
		out = append(out, reject(KindSlotOccupied, 0, "%d tags exceed the %d slots",
			len(e.state.TaggedSkills), e.cfg.TagCount))
	}
	if len(e.state.Traits) > e.cfg.MaxTraits {
		out = append(out, reject(KindSlotOccupied, 0, "%d traits exceed the %d slots",
			len(e.state.Traits), e.cfg.MaxTraits))
	}

	implants := 0
	for _, lvl := range e.state.PlannedLevels() {
		lp := e.state.Levels[lvl]

		if spent := spentIn(lp); spent > 0 {
			unspent, err := e.unspentAt(lvl)
			if err == nil && unspent < 0 {
				out = append(out, reject(KindInsufficientPoints, lvl, "%d points overspent", -unspent))
			}
		}
		if len(lp.Perks) > 0 && lvl%e.cfg.PerkInterval != 0 {
			out = append(out, reject(KindIntervalViolation, lvl, "no perk is granted at this level"))
		}
		snap, err := e.snapshotAt(lvl)
		if err != nil {
			out = append(out, asViolation(err, lvl))
			continue
		}
		for _, av := range e.cfg.options().ActiveSkills() {
			if snap.stats.Skills[av] > e.cfg.SkillCap {
				out = append(out, reject(KindSkillCapExceeded, lvl, "%s=%d exceeds cap %d",
					character.Name(av), snap.stats.Skills[av], e.cfg.SkillCap))
			}
		}
		for _, formID := range lp.Perks {
			av, err := e.graph.Evaluate(formID, snap.char, snap.stats)
			if err != nil {
				out = append(out, asViolation(err, lvl))
				continue
			}
			if !av.Available {
				out = append(out, reject(KindRequirementUnmet, lvl, "perk %#x: %v", formID, av.UnmetClauses))
			}
		}
		implants += len(lp.Implants)
	}
	if limit := e.implantLimit(); implants > limit {
		out = append(out, reject(KindImplantLimitExceeded, 0, "%d implants exceed the %d slots", implants, limit))
	}
	return out
}

// asViolation wraps a non-Error failure surfaced during replay into a
// typed violation pinned to the offending level.
func asViolation(err error, level int) Error {
	var typed Error
	if errors.As(err, &typed) {
		return typed
	}
	return reject(KindInvalidValue, level, "%v", err)
}

// Validate re-checks the whole plan and joins every violation into one
// error. A nil return means the plan replays cleanly.
func (e *Engine) Validate() error {
	violations := e.Violations()
	if len(violations) == 0 {
		return nil
	}
	errs := make([]error, len(violations))
	for i, v := range violations {
		errs[i] = v
	}
	return errors.Join(errs...)
}

// implantLimit is the number of implant slots, one per point of base
// Endurance at creation.
func (e *Engine) implantLimit() int {
	return e.state.Special[character.Endurance]
}

func spentIn(lp *LevelPlan) int {
	total := 0
	for _, pts := range lp.SkillPoints {
		total += pts
	}
	return total
}

// sortedSkillKeys returns lp's invested skills ascending, for
// deterministic iteration.
func sortedSkillKeys(m map[character.ActorValue]int) []character.ActorValue {
	out := make([]character.ActorValue, 0, len(m))
	for av := range m {
		out = append(out, av)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

package plan

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/avamatic/fnv-planner/internal/game/build"
	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/game/content"
	"github.com/avamatic/fnv-planner/internal/game/formula"
	"github.com/avamatic/fnv-planner/internal/game/requirement"
)

// Planner converts goal specifications into concrete builds. It is
// stateless across calls; each Plan runs against a fresh engine.
type Planner struct {
	catalog  *content.Catalog
	formulas *formula.Engine
	graph    *requirement.Graph
	cfg      build.Config
	logger   *zap.Logger
}

// NewPlanner wires a planner over a sealed catalog.
//
// Precondition: formulas and graph were built from cat.
func NewPlanner(cat *content.Catalog, formulas *formula.Engine, graph *requirement.Graph, cfg build.Config, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		catalog:  cat,
		formulas: formulas,
		graph:    graph,
		cfg:      cfg,
		logger:   logger,
	}
}

// statNeed is a derived stat threshold the plan should reach.
type statNeed struct {
	av        character.ActorValue
	value     int
	attribute bool
}

// Plan produces a deterministic build for the goal specification.
// Unreachable goals do not fail the call; they are reported in the
// result with Success false.
func (p *Planner) Plan(goal GoalSpec) (*Result, error) {
	for i, g := range goal.Goals {
		switch g.kind() {
		case "":
			return nil, fmt.Errorf("goal %d has no recognizable target", i)
		case goalKindPerk:
			if _, ok := p.catalog.Perk(g.Perk); !ok {
				return nil, requirement.UnknownPerkError{FormID: g.Perk}
			}
		case goalKindMaximize:
			switch g.Maximize {
			case MaximizeSkills, MaximizeCritChance, MaximizeCritDamage:
			default:
				return nil, fmt.Errorf("goal %d: unknown maximize target %q", i, g.Maximize)
			}
		}
	}
	if goal.BookFraction < 0 || goal.BookFraction > 1 {
		return nil, fmt.Errorf("book fraction %g outside [0, 1]", goal.BookFraction)
	}

	cfg := p.cfg
	if goal.IncludeBigGuns {
		cfg.IncludeBigGuns = true
		if !character.IsSpecial(cfg.BigGunsGoverning) {
			cfg.BigGunsGoverning = character.Strength
		}
	}
	engine, err := build.NewEngine(p.catalog, p.formulas, p.graph, cfg)
	if err != nil {
		return nil, err
	}
	target := goal.TargetLevel
	if target <= 0 || target > engine.MaxLevel() {
		target = engine.MaxLevel()
	}
	if err := p.applyStarting(engine, goal.Starting); err != nil {
		return nil, fmt.Errorf("starting conditions: %w", err)
	}
	if err := engine.SetTargetLevel(target); err != nil {
		return nil, err
	}

	order := orderedGoals(goal.Goals, target)
	books := p.seedBookLedger(goal, order)
	reasons := make(map[uint32]string)

	var timeline []LevelStep
	for level := 2; level <= target; level++ {
		step := LevelStep{Level: level}

		if level == 2 {
			step.Actions = append(step.Actions, p.equipStarting(engine, goal.Starting)...)
		}
		if goal.UseImplants {
			step.Actions = append(step.Actions, p.buyImplants(engine, level, goal.Goals, order)...)
		}
		step.Actions = append(step.Actions, p.investSkills(engine, level, goal.Goals, order)...)
		step.Actions = append(step.Actions, p.readBooks(engine, level, goal.Goals, order, books)...)
		if level%engine.Config().PerkInterval == 0 {
			step.Actions = append(step.Actions, p.pickPerk(engine, level, goal.Goals, order, reasons)...)
		}
		if hasMaximize(goal.Goals, MaximizeSkills) {
			step.Actions = append(step.Actions, p.spendRemaining(engine, level)...)
		}
		timeline = append(timeline, step)
	}

	result := &Result{
		Success:     true,
		State:       engine.State(),
		Timeline:    timeline,
		TargetLevel: target,
	}
	if len(reasons) > 0 {
		result.SelectionReasons = reasons
	}
	result.FinalStats, err = engine.StatsAt(target)
	if err != nil {
		return nil, err
	}
	for _, i := range order {
		if reason := p.verdict(engine, goal.Goals[i], target); reason != "" {
			result.Success = false
			result.Unmet = append(result.Unmet, UnmetGoal{Goal: goal.Goals[i], Reason: reason})
		}
	}
	result.Diagnostics = p.collectDiagnostics(engine, goal.Goals, target)
	p.logger.Info("plan finished",
		zap.Bool("success", result.Success),
		zap.Int("target_level", target),
		zap.Int("unmet", len(result.Unmet)))
	return result, nil
}

func (p *Planner) applyStarting(e *build.Engine, start StartingConditions) error {
	e.SetName(start.Name)
	if start.Sex != character.SexUnset {
		if err := e.SetSex(start.Sex); err != nil {
			return err
		}
	}
	avs := make([]character.ActorValue, 0, len(start.Special))
	for av := range start.Special {
		avs = append(avs, av)
	}
	sort.Slice(avs, func(i, j int) bool { return avs[i] < avs[j] })
	for _, av := range avs {
		if err := e.SetSpecial(av, start.Special[av]); err != nil {
			return err
		}
	}
	for _, av := range start.TaggedSkills {
		if err := e.TagSkill(av); err != nil {
			return err
		}
	}
	for _, id := range start.Traits {
		if err := e.AddTrait(id); err != nil {
			return err
		}
	}
	return nil
}

// equipStarting puts the starting gear on at the first planned level.
func (p *Planner) equipStarting(e *build.Engine, start StartingConditions) []Action {
	slots := make([]int, 0, len(start.Equipment))
	for slot := range start.Equipment {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	var actions []Action
	for _, slot := range slots {
		formID := start.Equipment[slot]
		if err := e.Equip(2, slot, formID); err != nil {
			p.logger.Warn("starting equipment skipped",
				zap.Int("slot", slot), zap.Uint32("item", formID), zap.Error(err))
			continue
		}
		actions = append(actions, Action{Kind: ActionEquip, Detail: p.itemName(formID)})
	}
	return actions
}

// bookLedger tracks the collectible skill-book stock a plan may still
// consume: remaining copies per skill, and the form IDs already read.
type bookLedger struct {
	copies map[character.ActorValue]int
	read   map[uint32]bool
}

// seedBookLedger fixes, per skill goal, how many book copies the plan
// may consume: the catalog's stock for that skill scaled by the
// collectible fraction, floored. Each catalog book record is one copy.
func (p *Planner) seedBookLedger(goal GoalSpec, order []int) *bookLedger {
	ledger := &bookLedger{
		copies: make(map[character.ActorValue]int),
		read:   make(map[uint32]bool),
	}
	if goal.BookFraction <= 0 {
		return ledger
	}
	stock := p.catalog.BooksBySkill()
	for _, i := range order {
		g := goal.Goals[i]
		if g.kind() != goalKindSkill {
			continue
		}
		if n := int(goal.BookFraction * float64(stock[g.Skill])); n > 0 {
			ledger.copies[g.Skill] = n
		}
	}
	return ledger
}

// buyImplants installs implants toward explicit attribute goals and
// toward SPECIAL thresholds implied by pending perk goals.
func (p *Planner) buyImplants(e *build.Engine, level int, goals []RequirementSpec, order []int) []Action {
	var actions []Action
	for _, need := range p.statNeedsAt(e, level, goals, order) {
		if !need.attribute {
			continue
		}
		stats, err := e.StatsAt(level)
		if err != nil {
			break
		}
		for stats.EffectiveSpecial[need.av] < need.value {
			if err := e.AddImplant(level, need.av); err != nil {
				break
			}
			actions = append(actions, Action{Kind: ActionImplant, Detail: character.Name(need.av)})
			stats, err = e.StatsAt(level)
			if err != nil {
				break
			}
		}
	}
	return actions
}

// investSkills spends the level's points on goal skills in planning
// order.
func (p *Planner) investSkills(e *build.Engine, level int, goals []RequirementSpec, order []int) []Action {
	var actions []Action
	for _, need := range p.statNeedsAt(e, level, goals, order) {
		if need.attribute {
			continue
		}
		stats, err := e.StatsAt(level)
		if err != nil {
			break
		}
		deficit := need.value - stats.Skills[need.av]
		if deficit <= 0 {
			continue
		}
		unspent, err := e.UnspentPointsAt(level)
		if err != nil || unspent <= 0 {
			continue
		}
		spend := deficit
		if spend > unspent {
			spend = unspent
		}
		if room := e.Config().SkillCap - stats.Skills[need.av]; spend > room {
			spend = room
		}
		if spend <= 0 {
			continue
		}
		if err := e.AllocateSkillPoints(level, need.av, spend); err != nil {
			continue
		}
		actions = append(actions, Action{
			Kind:   ActionSkill,
			Detail: fmt.Sprintf("%s +%d", character.Name(need.av), spend),
		})
	}
	return actions
}

// readBooks closes remaining skill deficits with skill books, one
// distinct copy at a time, inside each skill's remaining stock.
func (p *Planner) readBooks(e *build.Engine, level int, goals []RequirementSpec, order []int, books *bookLedger) []Action {
	if len(books.copies) == 0 {
		return nil
	}
	var actions []Action
	for _, need := range p.statNeedsAt(e, level, goals, order) {
		if need.attribute {
			continue
		}
		for books.copies[need.av] > 0 {
			stats, err := e.StatsAt(level)
			if err != nil {
				return actions
			}
			if stats.Skills[need.av] >= need.value {
				break
			}
			bookID, ok := p.bookFor(need.av, books.read)
			if !ok {
				break
			}
			if err := e.ReadBook(level, bookID); err != nil {
				break
			}
			books.copies[need.av]--
			books.read[bookID] = true
			actions = append(actions, Action{Kind: ActionBook, Detail: p.itemName(bookID)})
		}
	}
	return actions
}

// pickPerk fills the level's perk slot: the first pending goal perk
// that can be taken, else the first takeable prerequisite on a pending
// goal's chain, else a crit-bonus perk when a crit goal is pending.
// Every pick records its reason keyed by form ID.
func (p *Planner) pickPerk(e *build.Engine, level int, goals []RequirementSpec, order []int, reasons map[uint32]string) []Action {
	snap, err := e.Snapshot(level)
	if err != nil {
		return nil
	}
	try := func(formID uint32, reason string) []Action {
		if err := e.SelectPerk(level, formID); err != nil {
			return nil
		}
		reasons[formID] = reason
		return []Action{{Kind: ActionPerk, Detail: p.perkName(formID)}}
	}
	for _, i := range order {
		g := goals[i]
		if g.kind() != goalKindPerk || snap.HasPerk(g.Perk) > 0 {
			continue
		}
		if acts := try(g.Perk, fmt.Sprintf("goal perk (priority %d)", g.Priority)); acts != nil {
			return acts
		}
	}
	for _, i := range order {
		g := goals[i]
		if g.kind() != goalKindPerk || snap.HasPerk(g.Perk) > 0 {
			continue
		}
		chain, err := p.graph.PerkChain(g.Perk)
		if err != nil {
			continue
		}
		for _, pre := range chain {
			if pre == g.Perk || snap.HasPerk(pre) > 0 {
				continue
			}
			if acts := try(pre, fmt.Sprintf("prerequisite of %s", p.perkName(g.Perk))); acts != nil {
				return acts
			}
		}
	}
	if p.critGoalPending(e, level, goals, order) {
		for _, formID := range p.critPerkCandidates() {
			if snap.HasPerk(formID) > 0 {
				continue
			}
			if acts := try(formID, "raises critical chance toward a pending crit goal"); acts != nil {
				return acts
			}
		}
	}
	return nil
}

// critGoalPending reports whether any crit goal is still short at the
// level. Maximize crit goals are always pending.
func (p *Planner) critGoalPending(e *build.Engine, level int, goals []RequirementSpec, order []int) bool {
	stats, err := e.StatsAt(level)
	if err != nil {
		return false
	}
	for _, i := range order {
		g := goals[i]
		switch g.kind() {
		case goalKindCritChance:
			if stats.CritChance < g.CritChance {
				return true
			}
		case goalKindCritDamage:
			if stats.CritDamagePotential < g.CritDamage {
				return true
			}
		case goalKindMaximize:
			if g.Maximize == MaximizeCritChance || g.Maximize == MaximizeCritDamage {
				return true
			}
		}
	}
	return false
}

// critPerkCandidates lists playable non-trait perks granting a flat
// critical-chance bonus, strongest first, lower form ID breaking ties.
func (p *Planner) critPerkCandidates() []uint32 {
	type candidate struct {
		id    uint32
		bonus float64
	}
	var cands []candidate
	for _, perk := range p.catalog.Perks() {
		if !perk.IsPlayable || perk.IsTrait {
			continue
		}
		bonus := 0.0
		for _, eff := range perk.PlayerEffects() {
			if eff.ActorValue == character.CritChanceAV && eff.Magnitude > 0 {
				bonus += eff.Magnitude
			}
		}
		if bonus > 0 {
			cands = append(cands, candidate{id: perk.FormID, bonus: bonus})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].bonus != cands[j].bonus {
			return cands[i].bonus > cands[j].bonus
		}
		return cands[i].id < cands[j].id
	})
	out := make([]uint32, len(cands))
	for i, c := range cands {
		out[i] = c.id
	}
	return out
}

// statNeedsAt merges explicit stat goals with the thresholds implied by
// pending perk goals, in planning order. Duplicate actor values keep
// the highest requested value at first position.
func (p *Planner) statNeedsAt(e *build.Engine, level int, goals []RequirementSpec, order []int) []statNeed {
	var needs []statNeed
	seen := make(map[character.ActorValue]int) // av -> index in needs

	add := func(n statNeed) {
		if i, ok := seen[n.av]; ok {
			if n.value > needs[i].value {
				needs[i].value = n.value
			}
			return
		}
		seen[n.av] = len(needs)
		needs = append(needs, n)
	}

	snap, err := e.Snapshot(level)
	if err != nil {
		return nil
	}
	stats, err := e.StatsAt(level)
	if err != nil {
		return nil
	}
	for _, i := range order {
		g := goals[i]
		switch g.kind() {
		case goalKindSkill:
			add(statNeed{av: g.Skill, value: g.Value})
		case goalKindAttribute:
			add(statNeed{av: g.Attribute, value: g.Value, attribute: true})
		case goalKindPerk:
			if snap.HasPerk(g.Perk) > 0 {
				continue
			}
			for _, n := range p.impliedNeeds(g.Perk, snap, stats) {
				add(n)
			}
		case goalKindCritChance:
			if luck, ok := p.luckFor(stats, g.CritChance); ok {
				add(statNeed{av: character.Luck, value: luck, attribute: true})
			}
		case goalKindCritDamage:
			if target, ok := critChanceFor(stats, g.CritDamage); ok {
				if luck, ok := p.luckFor(stats, target); ok {
					add(statNeed{av: character.Luck, value: luck, attribute: true})
				}
			}
		case goalKindMaximize:
			if g.Maximize == MaximizeCritChance || g.Maximize == MaximizeCritDamage {
				add(statNeed{av: character.Luck, value: p.cfg.AttributeMax, attribute: true})
			}
		}
	}
	return needs
}

// luckFor inverts the crit-chance formula: the smallest Luck value, up
// to the attribute maximum, whose chance meets target. Equipment
// contributions on top of the base formula are held constant.
func (p *Planner) luckFor(stats formula.Stats, target float64) (int, bool) {
	luck := stats.EffectiveSpecial[character.Luck]
	bonus := stats.CritChance - p.formulas.CritChance(luck)
	for l := luck; l <= p.cfg.AttributeMax; l++ {
		if p.formulas.CritChance(l)+bonus >= target {
			return l, l > luck
		}
	}
	// Out of reach even at maximum Luck; push as far as possible and let
	// the verdict report the shortfall.
	return p.cfg.AttributeMax, true
}

// critChanceFor converts a crit-damage-potential target into the crit
// chance it demands against the currently equipped weapon. false when
// no weapon with a critical payload is equipped.
func critChanceFor(stats formula.Stats, target float64) (float64, bool) {
	if stats.CritChance <= 0 || stats.CritDamagePotential <= 0 {
		return 0, false
	}
	payload := stats.CritDamagePotential * 100 / stats.CritChance
	return target * 100 / payload, true
}

func hasMaximize(goals []RequirementSpec, what string) bool {
	for _, g := range goals {
		if g.kind() == goalKindMaximize && g.Maximize == what {
			return true
		}
	}
	return false
}

// spendRemaining dumps the level's leftover points into the lowest
// active skill, repeatedly, until the pool is empty or every skill is
// capped. Ties break toward the lower actor value.
func (p *Planner) spendRemaining(e *build.Engine, level int) []Action {
	cfg := e.Config()
	opts := formula.Options{IncludeBigGuns: cfg.IncludeBigGuns, BigGunsGoverning: cfg.BigGunsGoverning}
	active := opts.ActiveSkills()
	spent := make(map[character.ActorValue]int)
	for {
		unspent, err := e.UnspentPointsAt(level)
		if err != nil || unspent <= 0 {
			break
		}
		stats, err := e.StatsAt(level)
		if err != nil {
			break
		}
		lowest := character.ActorValue(0)
		lowestVal := cfg.SkillCap
		for _, av := range active {
			if stats.Skills[av] < lowestVal {
				lowest = av
				lowestVal = stats.Skills[av]
			}
		}
		if lowest == 0 {
			break
		}
		if err := e.AllocateSkillPoints(level, lowest, 1); err != nil {
			break
		}
		spent[lowest]++
	}
	var actions []Action
	for _, av := range active {
		if spent[av] > 0 {
			actions = append(actions, Action{
				Kind:   ActionSkill,
				Detail: fmt.Sprintf("%s +%d", character.Name(av), spent[av]),
			})
		}
	}
	return actions
}

// impliedNeeds derives one stat threshold per unmet clause of the
// perk's expression: the clause literal with the smallest remaining
// deficit, lower actor value breaking ties.
func (p *Planner) impliedNeeds(perkID uint32, snap *character.Character, stats formula.Stats) []statNeed {
	clauses, err := p.graph.UnsatisfiedClauses(perkID, snap, stats)
	if err != nil {
		return nil
	}
	var needs []statNeed
	for _, cl := range clauses {
		best := statNeed{}
		bestDeficit := 0
		found := false
		for _, lit := range cl {
			sr, ok := lit.(content.StatRequirement)
			if !ok {
				continue
			}
			target, ok := thresholdFor(sr)
			if !ok {
				continue
			}
			isAttr := character.IsSpecial(sr.ActorValue)
			current := stats.Skills[sr.ActorValue]
			if isAttr {
				current = stats.EffectiveSpecial[sr.ActorValue]
			}
			deficit := target - current
			if deficit <= 0 {
				continue
			}
			if !found || deficit < bestDeficit ||
				(deficit == bestDeficit && sr.ActorValue < best.av) {
				best = statNeed{av: sr.ActorValue, value: target, attribute: isAttr}
				bestDeficit = deficit
				found = true
			}
		}
		if found {
			needs = append(needs, best)
		}
	}
	return needs
}

// thresholdFor converts a stat literal into a minimum target value.
// Only lower-bound operators are plannable.
func thresholdFor(sr content.StatRequirement) (int, bool) {
	switch sr.Operator {
	case content.OpGreaterEqual, content.OpEqual:
		return sr.Value, true
	case content.OpGreater:
		return sr.Value + 1, true
	}
	return 0, false
}

// bookFor returns the lowest-form-ID unread book teaching the skill.
func (p *Planner) bookFor(av character.ActorValue, read map[uint32]bool) (uint32, bool) {
	for _, b := range p.catalog.Books() {
		if b.Skill == av && !read[b.FormID] {
			return b.FormID, true
		}
	}
	return 0, false
}

// verdict checks one goal at its effective deadline; empty means met.
func (p *Planner) verdict(e *build.Engine, g RequirementSpec, target int) string {
	deadline := g.Deadline
	if deadline <= 0 || deadline > target {
		deadline = target
	}
	snap, err := e.Snapshot(deadline)
	if err != nil {
		return err.Error()
	}
	stats, err := e.StatsAt(deadline)
	if err != nil {
		return err.Error()
	}
	switch g.kind() {
	case goalKindPerk:
		if snap.HasPerk(g.Perk) == 0 {
			av, err := e.UnmetFor(deadline, g.Perk)
			if err != nil {
				return err.Error()
			}
			return fmt.Sprintf("%s not acquired by level %d: %v",
				p.perkName(g.Perk), deadline, av.UnmetClauses)
		}
	case goalKindSkill:
		if stats.Skills[g.Skill] < g.Value {
			return fmt.Sprintf("%s reached %d of %d by level %d",
				character.Name(g.Skill), stats.Skills[g.Skill], g.Value, deadline)
		}
	case goalKindAttribute:
		if stats.EffectiveSpecial[g.Attribute] < g.Value {
			return fmt.Sprintf("%s reached %d of %d by level %d",
				character.Name(g.Attribute), stats.EffectiveSpecial[g.Attribute], g.Value, deadline)
		}
	case goalKindCritChance:
		if stats.CritChance < g.CritChance {
			return fmt.Sprintf("crit chance reached %.1f of %.1f by level %d",
				stats.CritChance, g.CritChance, deadline)
		}
	case goalKindCritDamage:
		if stats.CritDamagePotential < g.CritDamage {
			return fmt.Sprintf("crit damage potential reached %.1f of %.1f by level %d",
				stats.CritDamagePotential, g.CritDamage, deadline)
		}
	}
	// Maximize goals are best-effort and never unmet.
	return ""
}

// collectDiagnostics gathers the raw conditions the requirement policy
// waved through for goal perks, prefixed with the perk name. Duplicate
// messages are reported once.
func (p *Planner) collectDiagnostics(e *build.Engine, goals []RequirementSpec, target int) []string {
	snap, err := e.Snapshot(target)
	if err != nil {
		return nil
	}
	stats, err := e.StatsAt(target)
	if err != nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, g := range goals {
		if g.kind() != goalKindPerk {
			continue
		}
		av, err := p.graph.Evaluate(g.Perk, snap, stats)
		if err != nil {
			continue
		}
		for _, d := range av.RawDiagnostics {
			msg := fmt.Sprintf("%s: %s", p.perkName(g.Perk), d)
			if !seen[msg] {
				seen[msg] = true
				out = append(out, msg)
			}
		}
	}
	return out
}

func (p *Planner) perkName(formID uint32) string {
	if perk, ok := p.catalog.Perk(formID); ok && perk.Name != "" {
		return perk.Name
	}
	return fmt.Sprintf("%#x", formID)
}

func (p *Planner) itemName(formID uint32) string {
	if it, ok := p.catalog.Item(formID); ok && it.Name != "" {
		return it.Name
	}
	if b, ok := p.catalog.Book(formID); ok && b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("%#x", formID)
}

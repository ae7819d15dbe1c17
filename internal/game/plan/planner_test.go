package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/avamatic/fnv-planner/internal/game/build"
	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/game/content"
	"github.com/avamatic/fnv-planner/internal/game/formula"
	"github.com/avamatic/fnv-planner/internal/game/requirement"
)

const (
	perkGunSlinger = 0x51001
	perkQuickDraw  = 0x51002
	perkSniper     = 0x51003
	traitTrigger   = 0x51004
	perkFinesse    = 0x51005

	bookGuns    = 0x52001
	bookSneak   = 0x52002
	beretFormID = 0x53001
	rifleFormID = 0x53002
)

func newTestPlanner(t *testing.T) *Planner {
	t.Helper()
	perks := []*content.Perk{
		{
			FormID: perkGunSlinger, Name: "Gunslinger", IsPlayable: true,
			Requirements: []content.Requirement{
				content.StatRequirement{ActorValue: character.Guns, Operator: content.OpGreaterEqual, Value: 45},
			},
		},
		{
			FormID: perkQuickDraw, Name: "Quick Draw", IsPlayable: true,
			Requirements: []content.Requirement{
				content.StatRequirement{ActorValue: character.Agility, Operator: content.OpGreaterEqual, Value: 5},
			},
		},
		{
			FormID: perkSniper, Name: "Sniper", IsPlayable: true, MinLevel: 12,
			Requirements: []content.Requirement{
				content.PerkRequirement{PerkID: perkGunSlinger},
				content.StatRequirement{ActorValue: character.Sneak, Operator: content.OpGreaterEqual, Value: 60},
			},
		},
		{FormID: traitTrigger, Name: "Trigger Discipline", IsTrait: true, IsPlayable: true},
		{
			FormID: perkFinesse, Name: "Finesse", IsPlayable: true,
			StatEffects: []content.StatEffect{{ActorValue: character.CritChanceAV, Magnitude: 5}},
		},
	}
	items := []*content.Item{
		{
			FormID: beretFormID, Name: "Beret", Kind: content.KindArmor, Slot: 2,
			StatEffects: []content.StatEffect{{ActorValue: character.Perception, Magnitude: 1}},
		},
		{
			FormID: rifleFormID, Name: "Varmint Rifle", Kind: content.KindWeapon, Slot: 5,
			CritDamage: 25, CritMultiplier: 1,
		},
	}
	books := []*content.Book{
		{FormID: bookGuns, Name: "Guns and Bullets", Skill: character.Guns},
		{FormID: bookSneak, Name: "Chinese Army Manual", Skill: character.Sneak},
	}
	cat, err := content.NewCatalog(perks, items, books, content.NewConstants(nil))
	require.NoError(t, err)
	formulas, err := formula.NewEngine(cat.Constants())
	require.NoError(t, err)
	graph, err := requirement.NewGraph(cat)
	require.NoError(t, err)
	return NewPlanner(cat, formulas, graph, build.DefaultConfig(), nil)
}

func standardStart() StartingConditions {
	return StartingConditions{
		Name: "Courier",
		Sex:  character.SexFemale,
		Special: map[character.ActorValue]int{
			character.Strength: 6, character.Endurance: 6, character.Agility: 6,
			character.Intelligence: 6, character.Luck: 6,
		},
		TaggedSkills: []character.ActorValue{character.Guns, character.Sneak, character.Repair},
		Traits:       []uint32{traitTrigger},
		Equipment:    map[int]uint32{2: beretFormID},
	}
}

func TestPlanPerkChainEndToEnd(t *testing.T) {
	p := newTestPlanner(t)
	result, err := p.Plan(GoalSpec{
		Starting:    standardStart(),
		TargetLevel: 16,
		Goals: []RequirementSpec{
			{Perk: perkSniper, Priority: 10},
			{Skill: character.Guns, Value: 75, Priority: 5},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Success, "unmet: %v", result.Unmet)

	// Replay the emitted plan on a fresh engine: it must validate.
	formulasEngine, err := formula.NewEngine(p.catalog.Constants())
	require.NoError(t, err)
	e, err := build.NewEngine(p.catalog, formulasEngine, p.graph, p.cfg)
	require.NoError(t, err)
	e.Load(result.State)
	require.NoError(t, e.Validate())

	snap, err := e.Snapshot(16)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.HasPerk(perkSniper))
	assert.Equal(t, 1, snap.HasPerk(perkGunSlinger), "prerequisite planned automatically")
	stats, err := e.StatsAt(16)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Skills[character.Guns], 75)
	assert.GreaterOrEqual(t, stats.Skills[character.Sneak], 60)
}

func TestPlanDeterministic(t *testing.T) {
	p := newTestPlanner(t)
	goal := GoalSpec{
		Starting:     standardStart(),
		TargetLevel:  20,
		UseImplants:  true,
		BookFraction: 0.5,
		Goals: []RequirementSpec{
			{Perk: perkSniper, Priority: 9},
			{Skill: character.Guns, Value: 90, Priority: 9},
			{Skill: character.Sneak, Value: 80, Priority: 4, Deadline: 18},
			{Attribute: character.Perception, Value: 8, Priority: 2},
		},
	}
	first, err := p.Plan(goal)
	require.NoError(t, err)
	second, err := p.Plan(goal)
	require.NoError(t, err)

	rawA, err := yaml.Marshal(first)
	require.NoError(t, err)
	rawB, err := yaml.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(rawA), string(rawB))
}

func TestPlanUnreachableGoal(t *testing.T) {
	p := newTestPlanner(t)
	result, err := p.Plan(GoalSpec{
		Starting:    standardStart(),
		TargetLevel: 4,
		Goals: []RequirementSpec{
			{Perk: perkSniper, Priority: 1},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Success, "Sniper needs level 12")
	require.Len(t, result.Unmet, 1)
	assert.Contains(t, result.Unmet[0].Reason, "Sniper")
}

func TestPlanPriorityOrdersPerkPicks(t *testing.T) {
	p := newTestPlanner(t)
	result, err := p.Plan(GoalSpec{
		Starting:    standardStart(),
		TargetLevel: 2,
		Goals: []RequirementSpec{
			{Perk: perkQuickDraw, Priority: 1},
			{Perk: perkGunSlinger, Priority: 8},
		},
	})
	require.NoError(t, err)

	// One perk level only; the higher priority goal takes the slot.
	require.Len(t, result.Timeline, 1)
	var perkActions []Action
	for _, a := range result.Timeline[0].Actions {
		if a.Kind == ActionPerk {
			perkActions = append(perkActions, a)
		}
	}
	require.Len(t, perkActions, 1)
	assert.Equal(t, "Gunslinger", perkActions[0].Detail)
}

func TestPlanImplantsRaiseAttribute(t *testing.T) {
	p := newTestPlanner(t)
	result, err := p.Plan(GoalSpec{
		Starting:    standardStart(),
		TargetLevel: 6,
		UseImplants: true,
		Goals: []RequirementSpec{
			{Attribute: character.Strength, Value: 7, Priority: 5},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Success, "unmet: %v", result.Unmet)
	assert.GreaterOrEqual(t, result.FinalStats.EffectiveSpecial[character.Strength], 7)
}

func TestPlanImplantsOffMeansAttributeStuck(t *testing.T) {
	p := newTestPlanner(t)
	result, err := p.Plan(GoalSpec{
		Starting:    standardStart(),
		TargetLevel: 6,
		Goals: []RequirementSpec{
			{Attribute: character.Strength, Value: 7, Priority: 5},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestPlanBooksRespectFraction(t *testing.T) {
	p := newTestPlanner(t)
	goal := GoalSpec{
		Starting:     standardStart(),
		TargetLevel:  3,
		BookFraction: 1,
		Goals: []RequirementSpec{
			{Skill: character.Guns, Value: 100, Priority: 5},
		},
	}
	withBooks, err := p.Plan(goal)
	require.NoError(t, err)

	goal.BookFraction = 0
	withoutBooks, err := p.Plan(goal)
	require.NoError(t, err)

	assert.Greater(t, withBooks.FinalStats.Skills[character.Guns],
		withoutBooks.FinalStats.Skills[character.Guns])
	for _, step := range withoutBooks.Timeline {
		for _, a := range step.Actions {
			assert.NotEqual(t, ActionBook, a.Kind)
		}
	}
}

func TestPlanBooksConsumeEachCopyOnce(t *testing.T) {
	p := newTestPlanner(t)
	result, err := p.Plan(GoalSpec{
		Starting:     standardStart(),
		TargetLevel:  10,
		BookFraction: 1,
		Goals: []RequirementSpec{
			{Skill: character.Guns, Value: 100, Priority: 5},
		},
	})
	require.NoError(t, err)

	// The catalog stocks a single Guns book; a full fraction allows
	// exactly one copy no matter how large the deficit is.
	copies := 0
	for _, lp := range result.State.Levels {
		copies += lp.Books[bookGuns]
		assert.Zero(t, lp.Books[bookSneak], "no Sneak goal, no Sneak books")
	}
	assert.Equal(t, 1, copies)

	bookActions := 0
	for _, step := range result.Timeline {
		for _, a := range step.Actions {
			if a.Kind == ActionBook {
				bookActions++
			}
		}
	}
	assert.Equal(t, 1, bookActions)
}

func TestPlanIncludeBigGunsToggle(t *testing.T) {
	p := newTestPlanner(t)
	goal := GoalSpec{
		Starting:    standardStart(),
		TargetLevel: 4,
		Goals: []RequirementSpec{
			{Skill: character.Guns, Value: 40, Priority: 5},
		},
	}
	result, err := p.Plan(goal)
	require.NoError(t, err)
	assert.NotContains(t, result.FinalStats.Skills, character.BigGuns)

	goal.IncludeBigGuns = true
	result, err = p.Plan(goal)
	require.NoError(t, err)
	assert.Contains(t, result.FinalStats.Skills, character.BigGuns)
	assert.Equal(t, 17, result.FinalStats.Skills[character.BigGuns],
		"Strength governs by default: 2 + 6*2 + ceil(3)")
}

func TestPlanSelectionReasons(t *testing.T) {
	p := newTestPlanner(t)
	result, err := p.Plan(GoalSpec{
		Starting:    standardStart(),
		TargetLevel: 16,
		Goals: []RequirementSpec{
			{Perk: perkSniper, Priority: 10},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Success, "unmet: %v", result.Unmet)
	assert.Contains(t, result.SelectionReasons[perkSniper], "goal perk")
	assert.Contains(t, result.SelectionReasons[perkGunSlinger], "prerequisite of Sniper")
}

func TestPlanSurfacesRawConditionDiagnostics(t *testing.T) {
	perks := []*content.Perk{
		{
			FormID: perkQuickDraw, Name: "Quick Draw", IsPlayable: true,
			RawConditions: []content.RawCondition{
				{Function: 465, Operator: content.OpEqual, Value: 1},
			},
		},
	}
	cat, err := content.NewCatalog(perks, nil, nil, content.NewConstants(nil))
	require.NoError(t, err)
	formulas, err := formula.NewEngine(cat.Constants())
	require.NoError(t, err)
	graph, err := requirement.NewGraph(cat, requirement.WithPolicy(requirement.PolicyPermissive))
	require.NoError(t, err)
	p := NewPlanner(cat, formulas, graph, build.DefaultConfig(), nil)

	result, err := p.Plan(GoalSpec{
		Starting:    StartingConditions{Sex: character.SexFemale},
		TargetLevel: 2,
		Goals: []RequirementSpec{
			{Perk: perkQuickDraw, Priority: 5},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Success, "the permissive policy waves the condition through")
	require.NotEmpty(t, result.Diagnostics)
	assert.Contains(t, result.Diagnostics[0], "Quick Draw")
}

func TestPlanCritChanceGoal(t *testing.T) {
	p := newTestPlanner(t)
	goal := GoalSpec{
		Starting:    standardStart(),
		TargetLevel: 6,
		UseImplants: true,
		Goals: []RequirementSpec{
			{CritChance: 7, Priority: 5},
		},
	}
	result, err := p.Plan(goal)
	require.NoError(t, err)
	assert.True(t, result.Success, "unmet: %v", result.Unmet)
	assert.GreaterOrEqual(t, result.FinalStats.CritChance, 7.0)

	// One Luck implant plus the Finesse bonus tops out at twelve percent;
	// thirteen is out of reach.
	goal.Goals[0].CritChance = 13
	result, err = p.Plan(goal)
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Unmet, 1)
	assert.Contains(t, result.Unmet[0].Reason, "crit chance")
}

func TestPlanCritGoalPicksCritBonusPerk(t *testing.T) {
	p := newTestPlanner(t)
	result, err := p.Plan(GoalSpec{
		Starting:    standardStart(),
		TargetLevel: 6,
		UseImplants: true,
		Goals: []RequirementSpec{
			{CritChance: 11, Priority: 5},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Success, "unmet: %v", result.Unmet)
	assert.GreaterOrEqual(t, result.FinalStats.CritChance, 11.0,
		"Luck implant alone stops at seven")

	formulasEngine, err := formula.NewEngine(p.catalog.Constants())
	require.NoError(t, err)
	e, err := build.NewEngine(p.catalog, formulasEngine, p.graph, p.cfg)
	require.NoError(t, err)
	e.Load(result.State)
	snap, err := e.Snapshot(6)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.HasPerk(perkFinesse))
	assert.Contains(t, result.SelectionReasons[perkFinesse], "critical chance")
}

func TestPlanCritDamageGoal(t *testing.T) {
	p := newTestPlanner(t)
	start := standardStart()
	start.Equipment[5] = rifleFormID

	// The rifle's payload is 25. A Luck implant plus Finesse reaches 12%
	// chance, potential 3.0; without the implant 11% stops at 2.75.
	goal := GoalSpec{
		Starting:    start,
		TargetLevel: 6,
		UseImplants: true,
		Goals: []RequirementSpec{
			{CritDamage: 2.9, Priority: 5},
		},
	}
	result, err := p.Plan(goal)
	require.NoError(t, err)
	assert.True(t, result.Success, "unmet: %v", result.Unmet)
	assert.GreaterOrEqual(t, result.FinalStats.CritDamagePotential, 2.9)

	goal.UseImplants = false
	result, err = p.Plan(goal)
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestPlanMaximizeSkillsSpendsEverything(t *testing.T) {
	p := newTestPlanner(t)
	result, err := p.Plan(GoalSpec{
		Starting:    standardStart(),
		TargetLevel: 5,
		Goals: []RequirementSpec{
			{Maximize: MaximizeSkills},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	formulasEngine, err := formula.NewEngine(p.catalog.Constants())
	require.NoError(t, err)
	e, err := build.NewEngine(p.catalog, formulasEngine, p.graph, p.cfg)
	require.NoError(t, err)
	e.Load(result.State)
	for level := 2; level <= 5; level++ {
		unspent, err := e.UnspentPointsAt(level)
		require.NoError(t, err)
		assert.Zero(t, unspent, "level %d points left on the table", level)
	}
}

func TestPlanMaximizeCritChanceBuysLuck(t *testing.T) {
	p := newTestPlanner(t)
	result, err := p.Plan(GoalSpec{
		Starting:    standardStart(),
		TargetLevel: 4,
		UseImplants: true,
		Goals: []RequirementSpec{
			{Maximize: MaximizeCritChance},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Success, "maximize goals never fail the plan")
	assert.Equal(t, 7, result.FinalStats.EffectiveSpecial[character.Luck],
		"one implant slot spent on Luck")
}

func TestPlanRejectsMalformedGoals(t *testing.T) {
	p := newTestPlanner(t)

	_, err := p.Plan(GoalSpec{Goals: []RequirementSpec{{Value: 50}}})
	require.Error(t, err)

	_, err = p.Plan(GoalSpec{Goals: []RequirementSpec{{Perk: 0xFFFF}}})
	var unknown requirement.UnknownPerkError
	require.ErrorAs(t, err, &unknown)

	_, err = p.Plan(GoalSpec{BookFraction: 1.5})
	require.Error(t, err)
}

func TestGoalSpecSerializationRoundTrip(t *testing.T) {
	goal := GoalSpec{
		Starting:     standardStart(),
		TargetLevel:  20,
		UseImplants:  true,
		BookFraction: 0.25,
		Goals: []RequirementSpec{
			{Perk: perkSniper, Priority: 9, Deadline: 16},
			{Skill: character.Guns, Value: 90},
		},
	}
	raw, err := yaml.Marshal(goal)
	require.NoError(t, err)
	var restored GoalSpec
	require.NoError(t, yaml.Unmarshal(raw, &restored))
	assert.Equal(t, goal, restored)
}

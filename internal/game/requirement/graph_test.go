package requirement

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/game/content"
	"github.com/avamatic/fnv-planner/internal/game/formula"
)

const (
	perkEducated   = 0x31DBA
	perkComprehend = 0x31DB9
	perkGunNut     = 0x44CAE
	perkHandLoader = 0x44CAF
	perkTrigger    = 0x44CB0
	perkTraitWild  = 0x135F2
	perkScripted   = 0x90001
)

func testCatalog(t *testing.T, extra ...*content.Perk) *content.Catalog {
	t.Helper()
	perks := []*content.Perk{
		{
			FormID: perkEducated, Name: "Educated", IsPlayable: true, MinLevel: 4,
			Requirements: []content.Requirement{
				content.StatRequirement{ActorValue: character.Intelligence, Operator: content.OpGreaterEqual, Value: 4},
			},
		},
		{
			FormID: perkComprehend, Name: "Comprehension", IsPlayable: true, MinLevel: 4,
			Requirements: []content.Requirement{
				content.StatRequirement{ActorValue: character.Intelligence, Operator: content.OpGreaterEqual, Value: 4},
				content.PerkRequirement{PerkID: perkEducated},
			},
		},
		{
			FormID: perkGunNut, Name: "Gun Nut", IsPlayable: true,
			Requirements: []content.Requirement{
				content.StatRequirement{ActorValue: character.Agility, Operator: content.OpGreaterEqual, Value: 6},
				content.StatRequirement{ActorValue: character.Intelligence, Operator: content.OpGreaterEqual, Value: 6, Or: true},
				content.StatRequirement{ActorValue: character.Guns, Operator: content.OpGreaterEqual, Value: 50},
			},
		},
		{
			FormID: perkHandLoader, Name: "Hand Loader", IsPlayable: true,
			Requirements: []content.Requirement{
				content.PerkRequirement{PerkID: perkGunNut},
			},
		},
		{
			FormID: perkTrigger, Name: "Trigger Discipline", IsPlayable: true, Ranks: 2,
		},
		{
			FormID: perkTraitWild, Name: "Wild Wasteland", IsTrait: true, IsPlayable: true,
		},
	}
	perks = append(perks, extra...)
	cat, err := content.NewCatalog(perks, nil, nil, content.NewConstants(nil))
	require.NoError(t, err)
	return cat
}

func snapshot(level int, mutate func(*character.Character)) (*character.Character, formula.Stats) {
	c := &character.Character{
		Name:  "Courier",
		Level: level,
		Sex:   character.SexFemale,
		Special: map[character.ActorValue]int{
			character.Strength: 5, character.Perception: 5, character.Endurance: 5,
			character.Charisma: 5, character.Intelligence: 5, character.Agility: 5,
			character.Luck: 5,
		},
		TaggedSkills: map[character.ActorValue]bool{},
		PointsSpent:  map[character.ActorValue]int{},
		Perks:        map[int][]uint32{},
	}
	if mutate != nil {
		mutate(c)
	}
	eng, err := formula.NewEngine(content.NewConstants(nil))
	if err != nil {
		panic(err)
	}
	return c, eng.Compute(c, nil, formula.Options{})
}

func TestEvaluateStatAndLevelGates(t *testing.T) {
	g, err := NewGraph(testCatalog(t))
	require.NoError(t, err)

	c, stats := snapshot(2, nil)
	av, err := g.Evaluate(perkEducated, c, stats)
	require.NoError(t, err)
	assert.False(t, av.Available)
	assert.Contains(t, av.UnmetClauses, "Level >= 4")

	c, stats = snapshot(4, nil)
	av, err = g.Evaluate(perkEducated, c, stats)
	require.NoError(t, err)
	assert.True(t, av.Available, "INT 5 meets the threshold at level 4")
	assert.Empty(t, av.UnmetClauses)
}

func TestEvaluateOrClauseGrouping(t *testing.T) {
	g, err := NewGraph(testCatalog(t))
	require.NoError(t, err)

	// (AGI>=6 OR INT>=6) AND Guns>=50. Raising INT alone satisfies only
	// the first clause.
	c, stats := snapshot(10, func(c *character.Character) {
		c.Special[character.Intelligence] = 6
	})
	av, err := g.Evaluate(perkGunNut, c, stats)
	require.NoError(t, err)
	assert.False(t, av.Available)
	require.Len(t, av.UnmetClauses, 1)
	assert.Contains(t, av.UnmetClauses[0], "Guns")

	c, stats = snapshot(10, func(c *character.Character) {
		c.Special[character.Intelligence] = 6
		c.PointsSpent[character.Guns] = 40
	})
	av, err = g.Evaluate(perkGunNut, c, stats)
	require.NoError(t, err)
	assert.True(t, av.Available)

	// Neither OR-alternative holds: the whole group is one unmet clause.
	c, stats = snapshot(10, func(c *character.Character) {
		c.PointsSpent[character.Guns] = 40
	})
	av, err = g.Evaluate(perkGunNut, c, stats)
	require.NoError(t, err)
	assert.False(t, av.Available)
	require.Len(t, av.UnmetClauses, 1)
	assert.Contains(t, av.UnmetClauses[0], "One of:")
}

func TestEvaluateUnknownPerk(t *testing.T) {
	g, err := NewGraph(testCatalog(t))
	require.NoError(t, err)

	c, stats := snapshot(1, nil)
	_, err = g.Evaluate(0xDEAD, c, stats)
	var unknown UnknownPerkError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint32(0xDEAD), unknown.FormID)
}

func TestCanTakeRankAndTraitRules(t *testing.T) {
	g, err := NewGraph(testCatalog(t))
	require.NoError(t, err)

	c, stats := snapshot(6, func(c *character.Character) {
		c.Perks[2] = []uint32{perkTrigger}
		c.Perks[4] = []uint32{perkTrigger}
	})

	av, err := g.CanTake(perkTrigger, c, stats)
	require.NoError(t, err)
	assert.False(t, av.Available, "both ranks already taken")

	av, err = g.CanTake(perkTraitWild, c, stats)
	require.NoError(t, err)
	assert.False(t, av.Available, "traits are creation-only")
}

func TestAvailableAtSortedAndFiltered(t *testing.T) {
	g, err := NewGraph(testCatalog(t))
	require.NoError(t, err)

	c, stats := snapshot(8, func(c *character.Character) {
		c.Special[character.Intelligence] = 6
		c.PointsSpent[character.Guns] = 40
		c.Perks[2] = []uint32{perkGunNut}
	})
	ids := g.AvailableAt(c, stats)

	assert.IsIncreasing(t, ids)
	assert.Contains(t, ids, uint32(perkEducated))
	assert.Contains(t, ids, uint32(perkHandLoader), "prerequisite perk held")
	assert.NotContains(t, ids, uint32(perkTraitWild))
}

func TestTraits(t *testing.T) {
	hidden := &content.Perk{
		FormID: 0x135F3, Name: "Claustrophobia", IsTrait: true,
	}
	g, err := NewGraph(testCatalog(t, hidden))
	require.NoError(t, err)
	assert.Equal(t, []uint32{perkTraitWild}, g.Traits(),
		"unplayable traits are not offered")
}

func TestDependentsAndChain(t *testing.T) {
	g, err := NewGraph(testCatalog(t))
	require.NoError(t, err)

	deps, err := g.Dependents(perkGunNut)
	require.NoError(t, err)
	assert.Equal(t, []uint32{perkHandLoader}, deps)

	chain, err := g.PerkChain(perkComprehend)
	require.NoError(t, err)
	assert.Equal(t, []uint32{perkEducated, perkComprehend}, chain)
}

func TestTopologicalOrder(t *testing.T) {
	g, err := NewGraph(testCatalog(t))
	require.NoError(t, err)

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	require.Len(t, order, 6)

	pos := make(map[uint32]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos[perkEducated], pos[perkComprehend])
	assert.Less(t, pos[perkGunNut], pos[perkHandLoader])
}

func TestMissingPrerequisiteIsIntegrityError(t *testing.T) {
	perks := []*content.Perk{
		{
			FormID: 0x100, Name: "Orphan", IsPlayable: true,
			Requirements: []content.Requirement{
				content.PerkRequirement{PerkID: 0x999},
			},
		},
	}
	cat, err := content.NewCatalog(perks, nil, nil, nil)
	require.NoError(t, err)

	_, err = NewGraph(cat)
	require.ErrorIs(t, err, content.ErrIntegrity)
}

type stubRawEvaluator struct {
	handles map[int]bool
}

func (s stubRawEvaluator) Evaluate(cond content.RawCondition, _ *character.Character) (bool, bool) {
	verdict, ok := s.handles[cond.Function]
	return ok, verdict
}

func scriptedPerk() *content.Perk {
	return &content.Perk{
		FormID: perkScripted, Name: "Scripted", IsPlayable: true,
		RawConditions: []content.RawCondition{
			{Function: 465, Operator: content.OpEqual, Value: 1},
		},
	}
}

func TestRawConditionPolicies(t *testing.T) {
	c, stats := snapshot(5, nil)

	t.Run("strict fails unhandled", func(t *testing.T) {
		g, err := NewGraph(testCatalog(t, scriptedPerk()), WithPolicy(PolicyStrict))
		require.NoError(t, err)
		av, err := g.Evaluate(perkScripted, c, stats)
		require.NoError(t, err)
		assert.False(t, av.Available)
		require.Len(t, av.UnmetClauses, 1)
		assert.Contains(t, av.UnmetClauses[0], "unsupported")
	})

	t.Run("permissive passes with diagnostic", func(t *testing.T) {
		g, err := NewGraph(testCatalog(t, scriptedPerk()), WithPolicy(PolicyPermissive))
		require.NoError(t, err)
		av, err := g.Evaluate(perkScripted, c, stats)
		require.NoError(t, err)
		assert.True(t, av.Available)
		require.Len(t, av.RawDiagnostics, 1)
	})

	t.Run("handler verdict wins under either policy", func(t *testing.T) {
		ev := stubRawEvaluator{handles: map[int]bool{465: false}}
		g, err := NewGraph(testCatalog(t, scriptedPerk()),
			WithPolicy(PolicyPermissive), WithRawEvaluator(ev))
		require.NoError(t, err)
		av, err := g.Evaluate(perkScripted, c, stats)
		require.NoError(t, err)
		assert.False(t, av.Available)
		assert.Empty(t, av.RawDiagnostics)
	})
}

func TestInvalidPolicyRejected(t *testing.T) {
	_, err := NewGraph(testCatalog(t), WithPolicy(Policy("lenient")))
	require.Error(t, err)
	assert.False(t, errors.Is(err, content.ErrIntegrity))
}

package character

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestActorValueRanges(t *testing.T) {
	assert.True(t, IsSpecial(Strength))
	assert.True(t, IsSpecial(Luck))
	assert.False(t, IsSpecial(Barter))
	assert.False(t, IsSpecial(CritChanceAV))

	assert.True(t, IsSkill(Barter))
	assert.True(t, IsSkill(Unarmed))
	assert.True(t, IsSkill(BigGuns), "Big Guns lives in the skill range even when inactive")
	assert.False(t, IsSkill(Luck))
	assert.False(t, IsSkill(HealthAV))
}

func TestSpecialAndSkillAreDisjoint(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		av := ActorValue(rapid.IntRange(-5, 60).Draw(t, "av"))
		if IsSpecial(av) && IsSkill(av) {
			t.Fatalf("actor value %d is both SPECIAL and skill", av)
		}
	})
}

func TestGoverningCoversBaseSkills(t *testing.T) {
	skills := BaseSkills()
	require.Len(t, skills, 13, "thirteen base skills; Big Guns excluded")
	for _, av := range skills {
		gov, ok := Governing[av]
		require.True(t, ok, "%s has no governing stat", Name(av))
		assert.True(t, IsSpecial(gov))
	}
	_, ok := Governing[BigGuns]
	assert.False(t, ok, "Big Guns governing comes from configuration")
}

func TestName(t *testing.T) {
	assert.Equal(t, "Energy Weapons", Name(EnergyWeapons))
	assert.Equal(t, "AV99", Name(ActorValue(99)))
}

func TestHasPerkCountsRanksAndTraits(t *testing.T) {
	c := &Character{
		Traits: []uint32{0x135EC},
		Perks: map[int][]uint32{
			2: {0x31DE0},
			4: {0x31DE0},
		},
	}
	assert.Equal(t, 2, c.HasPerk(0x31DE0))
	assert.Equal(t, 1, c.HasPerk(0x135EC))
	assert.Zero(t, c.HasPerk(0xFFFF))
}

func TestSpecialOrDefault(t *testing.T) {
	c := &Character{Special: map[ActorValue]int{Strength: 8}}
	assert.Equal(t, 8, c.SpecialOrDefault(Strength))
	assert.Equal(t, 5, c.SpecialOrDefault(Luck), "unset attributes default to 5")
}

package content_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/game/content"
)

func TestLoadPackDecodesRequirements(t *testing.T) {
	pack := []byte(`
perks:
  - form_id: 0x44CAF
    name: Sniper
    is_playable: true
    min_level: 12
    requirements:
      - type: stat
        actor_value: 6
        value: 6
      - type: stat
        actor_value: 10
        operator: ">"
        value: 5
        or: true
      - type: perk
        perk_id: 0x44CAE
      - type: level
        operator: ">="
        value: 12
      - type: sex
        sex: 1
      - type: raw
        function: 464
        operator: "=="
        value: 1
        param1: 42
`)
	cat, err := content.LoadPack(pack)
	require.NoError(t, err)

	perk, ok := cat.Perk(0x44CAF)
	require.True(t, ok)
	require.Len(t, perk.Requirements, 5)

	stat, ok := perk.Requirements[0].(content.StatRequirement)
	require.True(t, ok)
	assert.Equal(t, content.OpGreaterEqual, stat.Operator, "operator defaults to >=")
	assert.Equal(t, character.Perception, stat.ActorValue)
	assert.False(t, stat.OrWithPrevious())

	second, ok := perk.Requirements[1].(content.StatRequirement)
	require.True(t, ok)
	assert.Equal(t, content.OpGreater, second.Operator)
	assert.True(t, second.OrWithPrevious())

	pr, ok := perk.Requirements[2].(content.PerkRequirement)
	require.True(t, ok)
	assert.Equal(t, 1, pr.Rank, "rank defaults to 1")

	require.Len(t, perk.RawConditions, 1)
	assert.Equal(t, 464, perk.RawConditions[0].Function)
	assert.Equal(t, int64(42), perk.RawConditions[0].Param1)
}

func TestLoadPackDecodesPerkStatEffects(t *testing.T) {
	pack := []byte(`
perks:
  - form_id: 0x94EBF
    name: Finesse
    is_playable: true
    stat_effects:
      - actor_value: 14
        magnitude: 5
      - actor_value: 16
        magnitude: -10
        hostile: true
`)
	cat, err := content.LoadPack(pack)
	require.NoError(t, err)

	perk, ok := cat.Perk(0x94EBF)
	require.True(t, ok)
	require.Len(t, perk.StatEffects, 2)

	buffs := perk.PlayerEffects()
	require.Len(t, buffs, 1, "hostile effects never buff the holder")
	assert.Equal(t, character.CritChanceAV, buffs[0].ActorValue)
	assert.Equal(t, 5.0, buffs[0].Magnitude)
}

func TestLoadPackUnknownRequirementType(t *testing.T) {
	pack := []byte(`
perks:
  - form_id: 0x1
    name: Broken
    is_playable: true
    requirements:
      - type: weather
        value: 3
`)
	_, err := content.LoadPack(pack)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown requirement type "weather"`)
}

func TestLoadPackRejectsUnknownFields(t *testing.T) {
	_, err := content.LoadPack([]byte("perks: []\nmonsters: []\n"))
	require.Error(t, err)
}

func TestLoadPackResolvesEnchantmentChain(t *testing.T) {
	pack := []byte(`
magic_effects:
  - form_id: 0x60001
    name: Fortify Perception
    archetype: 0
    actor_value: 6
  - form_id: 0x60002
    name: Scripted Glow
    archetype: 1
    actor_value: 6
enchantments:
  - form_id: 0x61001
    name: Beret Blessing
    effects:
      - effect_id: 0x60001
        magnitude: 1
      - effect_id: 0x60002
        magnitude: 99
items:
  - form_id: 0x129254
    name: 1st Recon Beret
    kind: armor
    slot: 2
    enchantment_id: 0x61001
`)
	cat, err := content.LoadPack(pack)
	require.NoError(t, err)

	it, ok := cat.Item(0x129254)
	require.True(t, ok)
	require.Len(t, it.StatEffects, 1, "non-modifier archetypes carry no stats")
	assert.Equal(t, character.Perception, it.StatEffects[0].ActorValue)
	assert.Equal(t, 1.0, it.StatEffects[0].Magnitude)
}

func TestLoadPackDanglingEnchantment(t *testing.T) {
	pack := []byte(`
items:
  - form_id: 0x1
    name: Cursed Hat
    kind: armor
    slot: 2
    enchantment_id: 0x9999
`)
	_, err := content.LoadPack(pack)
	require.ErrorIs(t, err, content.ErrIntegrity)
	assert.Contains(t, err.Error(), "unknown enchantment")
}

func TestLoadPackDanglingMagicEffect(t *testing.T) {
	pack := []byte(`
enchantments:
  - form_id: 0x61001
    name: Hollow Blessing
    effects:
      - effect_id: 0x7777
        magnitude: 1
items:
  - form_id: 0x1
    name: Cursed Hat
    kind: armor
    slot: 2
    enchantment_id: 0x61001
`)
	_, err := content.LoadPack(pack)
	require.ErrorIs(t, err, content.ErrIntegrity)
	assert.Contains(t, err.Error(), "unknown magic effect")
}

func TestLoadDirectoryLastWins(t *testing.T) {
	dir := t.TempDir()

	base := `
constants:
  iMaxCharacterLevel: 50
perks:
  - form_id: 0x31DE0
    name: Toughness
    is_playable: true
    ranks: 2
books:
  - form_id: 0x33DA1
    name: Guns and Bullets
    skill: 41
`
	patch := `
constants:
  iMaxCharacterLevel: 30
perks:
  - form_id: 0x31DE0
    name: Toughness (Rebalanced)
    is_playable: true
    ranks: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00_base.yaml"), []byte(base), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10_patch.yaml"), []byte(patch), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	cat, err := content.LoadDirectory(dir)
	require.NoError(t, err)

	perk, ok := cat.Perk(0x31DE0)
	require.True(t, ok)
	assert.Equal(t, "Toughness (Rebalanced)", perk.Name)
	assert.Equal(t, 3, perk.Ranks)

	level, ok := cat.Constants().Int("iMaxCharacterLevel")
	require.True(t, ok)
	assert.Equal(t, 30, level)

	book, ok := cat.Book(0x33DA1)
	require.True(t, ok)
	assert.Equal(t, character.Guns, book.Skill)
}

func TestLoadDirectoryMissing(t *testing.T) {
	_, err := content.LoadDirectory(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

// Package content defines the immutable typed records consumed by the
// planner core: perks, items, skill books, the enchantment effect chain,
// and named formula constants. Records are produced once by the catalog
// loader and shared read-only by every downstream component.
package content

import "github.com/avamatic/fnv-planner/internal/game/character"

// StatEffect is a resolved stat modifier: "+1 Luck" or "+5 Guns". It is the
// final output of the item -> enchantment -> magic effect chain.
type StatEffect struct {
	ActorValue character.ActorValue `yaml:"actor_value" json:"actor_value"`
	Magnitude  float64              `yaml:"magnitude" json:"magnitude"`
	// Duration in seconds; 0 means permanent. Only permanent effects
	// contribute to build planning.
	Duration int `yaml:"duration,omitempty" json:"duration,omitempty"`
	// Hostile effects target enemies (weapon payloads) and never buff
	// the wearer.
	Hostile bool `yaml:"hostile,omitempty" json:"hostile,omitempty"`
}

// MagicEffect archetypes. Only value modifiers produce stat bonuses.
const (
	ArchetypeValueModifier = 0
	ArchetypeScript        = 1
)

// MagicEffect is a magic-effect record. Effects with a non-modifier
// archetype or no actor value are tracked but contribute nothing to stats.
type MagicEffect struct {
	FormID     uint32               `yaml:"form_id" json:"form_id"`
	EditorID   string               `yaml:"editor_id" json:"editor_id"`
	Name       string               `yaml:"name" json:"name"`
	Archetype  int                  `yaml:"archetype" json:"archetype"`
	ActorValue character.ActorValue `yaml:"actor_value" json:"actor_value"`
}

// IsValueModifier reports whether this effect modifies an actor value.
func (m *MagicEffect) IsValueModifier() bool {
	return m.Archetype == ArchetypeValueModifier && m.ActorValue >= 0
}

// EnchantmentEffect is one magnitude entry within an enchantment, linking
// to a MagicEffect by form ID.
type EnchantmentEffect struct {
	EffectID  uint32  `yaml:"effect_id" json:"effect_id"`
	Magnitude float64 `yaml:"magnitude" json:"magnitude"`
	Duration  int     `yaml:"duration,omitempty" json:"duration,omitempty"`
	Hostile   bool    `yaml:"hostile,omitempty" json:"hostile,omitempty"`
}

// Enchantment is a bundle of magic effects applied by an item.
type Enchantment struct {
	FormID   uint32              `yaml:"form_id" json:"form_id"`
	EditorID string              `yaml:"editor_id" json:"editor_id"`
	Name     string              `yaml:"name" json:"name"`
	Effects  []EnchantmentEffect `yaml:"effects" json:"effects"`
}

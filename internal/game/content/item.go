package content

import "github.com/avamatic/fnv-planner/internal/game/character"

// Item kinds.
const (
	KindArmor  = "armor"
	KindWeapon = "weapon"
)

// SlotNone marks an item that cannot be equipped.
const SlotNone = -1

// Item is an immutable equipment record with its resolved stat effects.
// Effects arrive either inline or via the enchantment chain; the loader
// resolves both into StatEffects before the catalog is sealed.
type Item struct {
	FormID   uint32  `yaml:"form_id" json:"form_id"`
	EditorID string  `yaml:"editor_id" json:"editor_id"`
	Name     string  `yaml:"name" json:"name"`
	Kind     string  `yaml:"kind" json:"kind"`
	Slot     int     `yaml:"slot" json:"slot"`
	Weight   float64 `yaml:"weight,omitempty" json:"weight,omitempty"`
	Value    int     `yaml:"value,omitempty" json:"value,omitempty"`

	// Weapon-only fields; zero for armor.
	Damage         int     `yaml:"damage,omitempty" json:"damage,omitempty"`
	CritDamage     int     `yaml:"crit_damage,omitempty" json:"crit_damage,omitempty"`
	CritMultiplier float64 `yaml:"crit_multiplier,omitempty" json:"crit_multiplier,omitempty"`

	EnchantmentID uint32 `yaml:"enchantment_id,omitempty" json:"enchantment_id,omitempty"`

	StatEffects []StatEffect `yaml:"stat_effects,omitempty" json:"stat_effects,omitempty"`
}

// PlayerEffects returns the effects that buff the wearer: permanent and
// non-hostile. Weapon payload effects are excluded.
func (i *Item) PlayerEffects() []StatEffect {
	out := make([]StatEffect, 0, len(i.StatEffects))
	for _, e := range i.StatEffects {
		if e.Duration == 0 && !e.Hostile {
			out = append(out, e)
		}
	}
	return out
}

// Book is a skill book: consuming one grants points in a single skill.
type Book struct {
	FormID   uint32               `yaml:"form_id" json:"form_id"`
	EditorID string               `yaml:"editor_id" json:"editor_id"`
	Name     string               `yaml:"name" json:"name"`
	Skill    character.ActorValue `yaml:"skill" json:"skill"`
	Value    int                  `yaml:"value,omitempty" json:"value,omitempty"`
	Weight   float64              `yaml:"weight,omitempty" json:"weight,omitempty"`
}

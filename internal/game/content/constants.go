package content

import (
	"sort"
	"sync"
)

// DefaultConstants enumerates every engine fallback for formula constants
// the content data may omit. The set is deliberately exported so callers
// can audit exactly which coefficients are engine-defined rather than
// content-supplied.
var DefaultConstants = map[string]float64{
	// Carry weight: base + STR * mult
	"fAVDCarryWeightsBase": 150.0,
	"fAVDCarryWeightMult":  10.0,
	// Action points: base + AGI * mult
	"fAVDActionPointsBase": 65.0,
	"fAVDActionPointsMult": 3.0,
	// Hit points: 100 + END * mult + (level-1) * level mult
	"fAVDHealthEnduranceMult": 20.0,
	"fAVDHealthLevelMult":     5.0,
	// Critical chance: base + LCK * mult
	"fAVDCritLuckBase": 0.0,
	"fAVDCritLuckMult": 1.0,
	// Melee damage bonus: STR * mult
	"fAVDMeleeDamageStrengthMult": 0.5,
	// Unarmed damage: base + skill * mult
	"fAVDUnarmedDamageBase": 0.5,
	"fAVDUnarmedDamageMult": 0.05,
	// Initial skill: base + governing * primary mult + ceil(LCK * luck mult)
	"fAVDSkillPrimaryBonusMult": 2.0,
	"fAVDSkillLuckBonusMult":    0.5,
	// Per-skill initial value bases
	"fAVDSkillBarterBase":        2.0,
	"fAVDSkillBigGunsBase":       2.0,
	"fAVDSkillEnergyWeaponsBase": 2.0,
	"fAVDSkillExplosivesBase":    2.0,
	"fAVDSkillLockpickBase":      2.0,
	"fAVDSkillMedicineBase":      2.0,
	"fAVDSkillMeleeWeaponsBase":  2.0,
	"fAVDSkillRepairBase":        2.0,
	"fAVDSkillScienceBase":       2.0,
	"fAVDSkillSmallGunsBase":     2.0,
	"fAVDSkillSneakBase":         2.0,
	"fAVDSkillSpeechBase":        2.0,
	"fAVDSkillSurvivalBase":      2.0,
	"fAVDSkillUnarmedBase":       2.0,
	// Tag skill bonus
	"fAVDTagSkillBonus": 15.0,
	// Resistances per point of Endurance above 1
	"fAVDPoisonResistEnduranceMult": 5.0,
	"fAVDRadResistEnduranceMult":    2.0,
	// Companion nerve per point of Charisma
	"fAVDCompanionNerveCharismaMult": 5.0,
	// Level cap
	"iMaxCharacterLevel": 50,
	// Skill points per level: base + floor(INT * 0.5)
	"iLevelUpSkillPointsBase":             11,
	"fLevelUpSkillPointsIntelligenceMult": 0.5,
	// Skill points granted per skill book read
	"iSkillBookPoints": 3,
}

// Constants is the table of named numeric formula constants supplied by
// content data. Lookups fall back to DefaultConstants and record which
// keys needed a fallback so the set stays auditable.
type Constants struct {
	values map[string]float64

	mu       sync.Mutex
	fellBack map[string]bool
}

// NewConstants builds a Constants table from content-supplied values.
// A nil map yields a table served entirely from engine defaults.
func NewConstants(values map[string]float64) *Constants {
	copied := make(map[string]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Constants{values: copied, fellBack: make(map[string]bool)}
}

// Float returns the constant for key, falling back to the engine default.
// Keys absent from both the content data and DefaultConstants return
// (0, false); callers must treat that as a data-integrity failure.
func (c *Constants) Float(key string) (float64, bool) {
	if v, ok := c.values[key]; ok {
		return v, true
	}
	if v, ok := DefaultConstants[key]; ok {
		c.mu.Lock()
		c.fellBack[key] = true
		c.mu.Unlock()
		return v, true
	}
	return 0, false
}

// Int returns the constant for key truncated to an integer.
func (c *Constants) Int(key string) (int, bool) {
	v, ok := c.Float(key)
	return int(v), ok
}

// Fallbacks returns the sorted list of keys that were served from
// DefaultConstants rather than content data.
func (c *Constants) Fallbacks() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.fellBack))
	for k := range c.fellBack {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Has reports whether key was supplied by content data (not a fallback).
func (c *Constants) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

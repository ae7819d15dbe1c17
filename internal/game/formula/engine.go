// Package formula computes derived statistics from a character snapshot.
// Every function is pure: no shared mutable state, safe to call from any
// goroutine, and memoizable by structural equality of its inputs. Formula
// shapes are engine-defined; coefficients come from the content constant
// table with enumerable engine fallbacks.
package formula

import (
	"fmt"
	"math"

	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/game/content"
)

// requiredKeys lists every constant the engine reads. NewEngine checks
// them all so a content set missing a key with no engine fallback fails
// loudly at construction instead of mid-computation.
var requiredKeys = []string{
	"fAVDCarryWeightsBase", "fAVDCarryWeightMult",
	"fAVDActionPointsBase", "fAVDActionPointsMult",
	"fAVDHealthEnduranceMult", "fAVDHealthLevelMult",
	"fAVDCritLuckBase", "fAVDCritLuckMult",
	"fAVDMeleeDamageStrengthMult",
	"fAVDUnarmedDamageBase", "fAVDUnarmedDamageMult",
	"fAVDSkillPrimaryBonusMult", "fAVDSkillLuckBonusMult",
	"fAVDSkillBarterBase", "fAVDSkillBigGunsBase",
	"fAVDSkillEnergyWeaponsBase", "fAVDSkillExplosivesBase",
	"fAVDSkillLockpickBase", "fAVDSkillMedicineBase",
	"fAVDSkillMeleeWeaponsBase", "fAVDSkillRepairBase",
	"fAVDSkillScienceBase", "fAVDSkillSmallGunsBase",
	"fAVDSkillSneakBase", "fAVDSkillSpeechBase",
	"fAVDSkillSurvivalBase", "fAVDSkillUnarmedBase",
	"fAVDTagSkillBonus",
	"fAVDPoisonResistEnduranceMult", "fAVDRadResistEnduranceMult",
	"fAVDCompanionNerveCharismaMult",
	"iMaxCharacterLevel", "iLevelUpSkillPointsBase",
	"fLevelUpSkillPointsIntelligenceMult",
	"iSkillBookPoints",
}

// Engine evaluates the derived-stat formulas against a constant table.
type Engine struct {
	consts *content.Constants
}

// NewEngine builds a formula engine over the given constant table.
//
// Postcondition: Returns a non-nil Engine, or an error naming the first
// constant that resolves to neither content data nor an engine default.
func NewEngine(consts *content.Constants) (*Engine, error) {
	if consts == nil {
		consts = content.NewConstants(nil)
	}
	for _, key := range requiredKeys {
		if _, ok := consts.Float(key); !ok {
			return nil, fmt.Errorf("formula constant %q missing with no engine default", key)
		}
	}
	return &Engine{consts: consts}, nil
}

func (e *Engine) f(key string) float64 {
	v, _ := e.consts.Float(key)
	return v
}

// HitPoints = 100 + END * endurance mult + (level-1) * level mult,
// truncated toward zero as the game does.
func (e *Engine) HitPoints(endurance, level int) int {
	return int(100 + float64(endurance)*e.f("fAVDHealthEnduranceMult") +
		float64(level-1)*e.f("fAVDHealthLevelMult"))
}

// ActionPoints = base + AGI * mult, truncated.
func (e *Engine) ActionPoints(agility int) int {
	return int(e.f("fAVDActionPointsBase") + float64(agility)*e.f("fAVDActionPointsMult"))
}

// CarryWeight = base + STR * mult.
func (e *Engine) CarryWeight(strength int) float64 {
	return e.f("fAVDCarryWeightsBase") + float64(strength)*e.f("fAVDCarryWeightMult")
}

// CritChance = base + LCK * mult, in percent.
func (e *Engine) CritChance(luck int) float64 {
	return e.f("fAVDCritLuckBase") + float64(luck)*e.f("fAVDCritLuckMult")
}

// MeleeDamage bonus = STR * mult.
func (e *Engine) MeleeDamage(strength int) float64 {
	return float64(strength) * e.f("fAVDMeleeDamageStrengthMult")
}

// UnarmedDamage = base + unarmed skill * mult.
func (e *Engine) UnarmedDamage(unarmedSkill int) float64 {
	return e.f("fAVDUnarmedDamageBase") + float64(unarmedSkill)*e.f("fAVDUnarmedDamageMult")
}

// PoisonResistance = (END - 1) * mult.
func (e *Engine) PoisonResistance(endurance int) float64 {
	return float64(endurance-1) * e.f("fAVDPoisonResistEnduranceMult")
}

// RadResistance = (END - 1) * mult.
func (e *Engine) RadResistance(endurance int) float64 {
	return float64(endurance-1) * e.f("fAVDRadResistEnduranceMult")
}

// CompanionNerve = CHA * mult.
func (e *Engine) CompanionNerve(charisma int) float64 {
	return float64(charisma) * e.f("fAVDCompanionNerveCharismaMult")
}

// SkillPointsPerLevel = base + floor(INT * mult).
func (e *Engine) SkillPointsPerLevel(intelligence int) int {
	base, _ := e.consts.Int("iLevelUpSkillPointsBase")
	return base + int(math.Floor(float64(intelligence)*e.f("fLevelUpSkillPointsIntelligenceMult")))
}

// skillBaseKeys maps each skill index to its per-skill base constant.
var skillBaseKeys = map[character.ActorValue]string{
	character.Barter:        "fAVDSkillBarterBase",
	character.BigGuns:       "fAVDSkillBigGunsBase",
	character.EnergyWeapons: "fAVDSkillEnergyWeaponsBase",
	character.Explosives:    "fAVDSkillExplosivesBase",
	character.Lockpick:      "fAVDSkillLockpickBase",
	character.Medicine:      "fAVDSkillMedicineBase",
	character.MeleeWeapons:  "fAVDSkillMeleeWeaponsBase",
	character.Repair:        "fAVDSkillRepairBase",
	character.Science:       "fAVDSkillScienceBase",
	character.Guns:          "fAVDSkillSmallGunsBase",
	character.Sneak:         "fAVDSkillSneakBase",
	character.Speech:        "fAVDSkillSpeechBase",
	character.Survival:      "fAVDSkillSurvivalBase",
	character.Unarmed:       "fAVDSkillUnarmedBase",
}

// SkillBase is the per-skill starting base, resolved from the skill's
// own constant. Skills without a dedicated key share the Unarmed base.
func (e *Engine) SkillBase(skill character.ActorValue) float64 {
	key, ok := skillBaseKeys[skill]
	if !ok {
		key = "fAVDSkillUnarmedBase"
	}
	return e.f(key)
}

// InitialSkill = skill base + governing * primary mult + ceil(LCK * luck
// mult), truncated. The ceil on the luck term reproduces the game's
// rounding.
func (e *Engine) InitialSkill(skill character.ActorValue, governing, luck int) int {
	return int(e.SkillBase(skill) + float64(governing)*e.f("fAVDSkillPrimaryBonusMult") +
		math.Ceil(float64(luck)*e.f("fAVDSkillLuckBonusMult")))
}

// TagBonus is the flat bonus added to tagged skills.
func (e *Engine) TagBonus() int {
	return int(e.f("fAVDTagSkillBonus"))
}

// MaxLevel is the character level cap.
func (e *Engine) MaxLevel() int {
	v, _ := e.consts.Int("iMaxCharacterLevel")
	return v
}

// SkillBookPoints is the number of points one skill book grants.
func (e *Engine) SkillBookPoints() int {
	v, _ := e.consts.Int("iSkillBookPoints")
	return v
}

package formula

import (
	"sort"

	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/game/content"
)

// Stats is the complete derived-stat snapshot for a character at a level.
type Stats struct {
	HitPoints    int     `yaml:"hit_points" json:"hit_points"`
	ActionPoints int     `yaml:"action_points" json:"action_points"`
	CarryWeight  float64 `yaml:"carry_weight" json:"carry_weight"`

	CritChance float64 `yaml:"crit_chance" json:"crit_chance"`
	// CritDamagePotential is crit chance weighted by the equipped
	// weapon's critical payload; zero when no weapon is equipped.
	CritDamagePotential float64 `yaml:"crit_damage_potential" json:"crit_damage_potential"`
	MeleeDamage         float64 `yaml:"melee_damage" json:"melee_damage"`
	UnarmedDamage       float64 `yaml:"unarmed_damage" json:"unarmed_damage"`

	PoisonResistance float64 `yaml:"poison_resistance" json:"poison_resistance"`
	RadResistance    float64 `yaml:"rad_resistance" json:"rad_resistance"`

	SkillPointsPerLevel int `yaml:"skill_points_per_level" json:"skill_points_per_level"`
	MaxLevel            int `yaml:"max_level" json:"max_level"`

	CompanionNerve float64 `yaml:"companion_nerve" json:"companion_nerve"`

	// EffectiveSpecial is base SPECIAL plus permanent equipment bonuses.
	EffectiveSpecial map[character.ActorValue]int `yaml:"effective_special" json:"effective_special"`
	// Skills holds final skill values: initial + tag bonus + invested
	// points + equipment bonuses.
	Skills map[character.ActorValue]int `yaml:"skills" json:"skills"`
	// EquipmentBonuses records the summed per-actor-value magnitude
	// contributed by equipped gear, for diagnostics.
	EquipmentBonuses map[character.ActorValue]float64 `yaml:"equipment_bonuses,omitempty" json:"equipment_bonuses,omitempty"`
	// PerkBonuses records the summed per-actor-value magnitude
	// contributed by held perks and traits.
	PerkBonuses map[character.ActorValue]float64 `yaml:"perk_bonuses,omitempty" json:"perk_bonuses,omitempty"`
}

// Options tunes optional content behavior for stat computation.
type Options struct {
	// IncludeBigGuns enables the modded Big Guns skill.
	IncludeBigGuns bool
	// BigGunsGoverning is the SPECIAL stat seeding Big Guns when enabled.
	BigGunsGoverning character.ActorValue
}

// governingFor returns the governing SPECIAL for each active skill.
func (o Options) governingFor() map[character.ActorValue]character.ActorValue {
	gov := make(map[character.ActorValue]character.ActorValue, len(character.Governing)+1)
	for k, v := range character.Governing {
		gov[k] = v
	}
	if o.IncludeBigGuns {
		g := o.BigGunsGoverning
		if !character.IsSpecial(g) {
			g = character.Strength
		}
		gov[character.BigGuns] = g
	}
	return gov
}

// ActiveSkills returns the skill indices active under these options,
// ascending.
func (o Options) ActiveSkills() []character.ActorValue {
	gov := o.governingFor()
	out := make([]character.ActorValue, 0, len(gov))
	for av := range gov {
		out = append(out, av)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EquipmentBonuses sums permanent, non-hostile stat effects from every
// equipped item, keyed by actor value.
func EquipmentBonuses(c *character.Character, cat *content.Catalog) map[character.ActorValue]float64 {
	bonuses := make(map[character.ActorValue]float64)
	if cat == nil {
		return bonuses
	}
	for _, formID := range c.Equipment {
		it, ok := cat.Item(formID)
		if !ok {
			continue
		}
		for _, eff := range it.PlayerEffects() {
			bonuses[eff.ActorValue] += eff.Magnitude
		}
	}
	return bonuses
}

// PerkBonuses sums permanent, non-hostile stat effects from every held
// perk and trait, counting each rank once, keyed by actor value.
func PerkBonuses(c *character.Character, cat *content.Catalog) map[character.ActorValue]float64 {
	bonuses := make(map[character.ActorValue]float64)
	if cat == nil {
		return bonuses
	}
	apply := func(formID uint32) {
		p, ok := cat.Perk(formID)
		if !ok {
			return
		}
		for _, eff := range p.PlayerEffects() {
			bonuses[eff.ActorValue] += eff.Magnitude
		}
	}
	for _, id := range c.Traits {
		apply(id)
	}
	levels := make([]int, 0, len(c.Perks))
	for lvl := range c.Perks {
		levels = append(levels, lvl)
	}
	sort.Ints(levels)
	for _, lvl := range levels {
		for _, id := range c.Perks[lvl] {
			apply(id)
		}
	}
	return bonuses
}

// Compute materializes the full derived-stat snapshot for a character.
// Pure: identical inputs always yield an identical Stats value.
func (e *Engine) Compute(c *character.Character, cat *content.Catalog, opts Options) Stats {
	equipBonuses := EquipmentBonuses(c, cat)
	perkBonuses := PerkBonuses(c, cat)

	bonuses := make(map[character.ActorValue]float64, len(equipBonuses)+len(perkBonuses))
	for av, v := range equipBonuses {
		bonuses[av] += v
	}
	for av, v := range perkBonuses {
		bonuses[av] += v
	}

	effective := make(map[character.ActorValue]int, 7)
	for _, av := range character.SpecialIndices() {
		effective[av] = c.SpecialOrDefault(av) + int(bonuses[av])
	}

	str := effective[character.Strength]
	end := effective[character.Endurance]
	cha := effective[character.Charisma]
	intel := effective[character.Intelligence]
	agi := effective[character.Agility]
	lck := effective[character.Luck]

	gov := opts.governingFor()
	tagBonus := e.TagBonus()
	skills := make(map[character.ActorValue]int, len(gov))
	for av, g := range gov {
		val := e.InitialSkill(av, effective[g], lck)
		if c.TaggedSkills[av] {
			val += tagBonus
		}
		val += c.PointsSpent[av]
		val += int(bonuses[av])
		skills[av] = val
	}

	critChance := e.CritChance(lck) + bonuses[character.CritChanceAV]

	return Stats{
		HitPoints:           e.HitPoints(end, c.Level) + int(bonuses[character.HealthAV]),
		ActionPoints:        e.ActionPoints(agi) + int(bonuses[character.ActionPointsAV]),
		CarryWeight:         e.CarryWeight(str),
		CritChance:          critChance,
		CritDamagePotential: critDamagePotential(critChance, c, cat),
		MeleeDamage:         e.MeleeDamage(str),
		UnarmedDamage:       e.UnarmedDamage(skills[character.Unarmed]),
		PoisonResistance:    e.PoisonResistance(end),
		RadResistance:       e.RadResistance(end),
		SkillPointsPerLevel: e.SkillPointsPerLevel(intel),
		MaxLevel:            e.MaxLevel(),
		CompanionNerve:      e.CompanionNerve(cha),
		EffectiveSpecial:    effective,
		Skills:              skills,
		EquipmentBonuses:    equipBonuses,
		PerkBonuses:         perkBonuses,
	}
}

// critDamagePotential weights crit chance by the strongest equipped
// weapon's critical payload.
func critDamagePotential(critChance float64, c *character.Character, cat *content.Catalog) float64 {
	if cat == nil {
		return 0
	}
	best := 0.0
	for _, formID := range c.Equipment {
		it, ok := cat.Item(formID)
		if !ok || it.Kind != content.KindWeapon {
			continue
		}
		mult := it.CritMultiplier
		if mult == 0 {
			mult = 1
		}
		payload := float64(it.CritDamage) * mult
		if payload > best {
			best = payload
		}
	}
	return critChance / 100.0 * best
}

package content

import (
	"fmt"

	"github.com/avamatic/fnv-planner/internal/game/character"
)

// Operator is a comparison operator as encoded in content conditions.
type Operator string

// Comparison operators.
const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
)

// Compare applies the operator to actual vs threshold. Unknown operators
// fail conservatively.
func (op Operator) Compare(actual, threshold float64) bool {
	switch op {
	case OpGreaterEqual:
		return actual >= threshold
	case OpGreater:
		return actual > threshold
	case OpEqual:
		return actual == threshold
	case OpNotEqual:
		return actual != threshold
	case OpLess:
		return actual < threshold
	case OpLessEqual:
		return actual <= threshold
	}
	return false
}

// Valid reports whether op is one of the six known comparison operators.
func (op Operator) Valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		return true
	}
	return false
}

// Requirement is a single unlock literal. The Or flag controls CNF
// grouping: Or=false starts a new AND-clause, Or=true chains with the
// previous literal into the same OR-group.
type Requirement interface {
	// OrWithPrevious reports whether this literal extends the previous
	// literal's OR-clause.
	OrWithPrevious() bool
	// Describe returns a short human-readable label for unmet-reason
	// reporting.
	Describe() string
}

// StatRequirement compares a SPECIAL stat or skill against a threshold.
type StatRequirement struct {
	ActorValue character.ActorValue `yaml:"actor_value" json:"actor_value"`
	Operator   Operator             `yaml:"operator" json:"operator"`
	Value      int                  `yaml:"value" json:"value"`
	Or         bool                 `yaml:"or,omitempty" json:"or,omitempty"`
}

func (r StatRequirement) OrWithPrevious() bool { return r.Or }

func (r StatRequirement) Describe() string {
	return fmt.Sprintf("%s %s %d", character.Name(r.ActorValue), r.Operator, r.Value)
}

// PerkRequirement requires another perk to already be selected.
type PerkRequirement struct {
	PerkID uint32 `yaml:"perk_id" json:"perk_id"`
	Rank   int    `yaml:"rank,omitempty" json:"rank,omitempty"`
	Or     bool   `yaml:"or,omitempty" json:"or,omitempty"`
}

func (r PerkRequirement) OrWithPrevious() bool { return r.Or }

func (r PerkRequirement) Describe() string {
	rank := r.Rank
	if rank < 1 {
		rank = 1
	}
	return fmt.Sprintf("Perk %#x rank %d", r.PerkID, rank)
}

// LevelRequirement gates on character level.
type LevelRequirement struct {
	Operator Operator `yaml:"operator" json:"operator"`
	Value    int      `yaml:"value" json:"value"`
	Or       bool     `yaml:"or,omitempty" json:"or,omitempty"`
}

func (r LevelRequirement) OrWithPrevious() bool { return r.Or }

func (r LevelRequirement) Describe() string {
	return fmt.Sprintf("Level %s %d", r.Operator, r.Value)
}

// SexRequirement gates on the creation sex choice.
type SexRequirement struct {
	Sex int  `yaml:"sex" json:"sex"`
	Or  bool `yaml:"or,omitempty" json:"or,omitempty"`
}

func (r SexRequirement) OrWithPrevious() bool { return r.Or }

func (r SexRequirement) Describe() string {
	if r.Sex == character.SexMale {
		return "Sex: Male"
	}
	return "Sex: Female"
}

// RawCondition is a condition the graph does not natively understand.
// It is preserved verbatim so the evaluation policy (strict/permissive)
// and optional scripted handlers can decide what to do with it.
type RawCondition struct {
	Function int      `yaml:"function" json:"function"`
	Operator Operator `yaml:"operator" json:"operator"`
	Value    float64  `yaml:"value" json:"value"`
	Param1   int64    `yaml:"param1,omitempty" json:"param1,omitempty"`
	Param2   int64    `yaml:"param2,omitempty" json:"param2,omitempty"`
	Or       bool     `yaml:"or,omitempty" json:"or,omitempty"`
}

func (r RawCondition) OrWithPrevious() bool { return r.Or }

func (r RawCondition) Describe() string {
	return fmt.Sprintf("condition fn=%d %s %g", r.Function, r.Operator, r.Value)
}

// Perk is an immutable perk record: a selectable ability, trait, or
// internal entry gated by a requirement expression.
type Perk struct {
	FormID      uint32 `yaml:"form_id" json:"form_id"`
	EditorID    string `yaml:"editor_id" json:"editor_id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	IsTrait    bool `yaml:"is_trait,omitempty" json:"is_trait,omitempty"`
	IsPlayable bool `yaml:"is_playable" json:"is_playable"`
	IsHidden   bool `yaml:"is_hidden,omitempty" json:"is_hidden,omitempty"`
	MinLevel   int  `yaml:"min_level,omitempty" json:"min_level,omitempty"`
	Ranks      int  `yaml:"ranks,omitempty" json:"ranks,omitempty"`

	// Requirements holds the unlock literals in original condition order,
	// grouped into CNF by each literal's Or flag.
	Requirements []Requirement `yaml:"-" json:"-"`

	// RawConditions are the literals the graph cannot interpret.
	RawConditions []RawCondition `yaml:"-" json:"-"`

	// StatEffects are the resolved stat modifiers the perk grants while
	// held, such as a flat critical-chance bonus.
	StatEffects []StatEffect `yaml:"stat_effects,omitempty" json:"stat_effects,omitempty"`
}

// PlayerEffects returns the effects that buff the holder: permanent and
// non-hostile.
func (p *Perk) PlayerEffects() []StatEffect {
	out := make([]StatEffect, 0, len(p.StatEffects))
	for _, e := range p.StatEffects {
		if e.Duration == 0 && !e.Hostile {
			out = append(out, e)
		}
	}
	return out
}

// Category classifies a perk for catalog listings.
type Category string

// Perk categories.
const (
	CategoryNormal   Category = "normal"
	CategoryTrait    Category = "trait"
	CategorySpecial  Category = "special"
	CategoryInternal Category = "internal"
)

// Category derives the perk's catalog category from its flags.
func (p *Perk) Category() Category {
	switch {
	case p.IsTrait:
		return CategoryTrait
	case p.IsHidden:
		return CategoryInternal
	case !p.IsPlayable:
		return CategorySpecial
	default:
		return CategoryNormal
	}
}

// MaxRanks returns the number of times the perk can be taken, at least 1.
func (p *Perk) MaxRanks() int {
	if p.Ranks < 1 {
		return 1
	}
	return p.Ranks
}

package build

import "fmt"

// Kind classifies why a mutation was rejected. Rejections are ordinary
// outcomes of exploring a build, not failures: the engine reports them
// as values and leaves the state untouched.
type Kind string

// Rejection kinds.
const (
	// KindOverBudget: the creation attribute allocation would exceed the
	// attribute point budget.
	KindOverBudget Kind = "over_budget"
	// KindSkillCapExceeded: investing the points would push a skill past
	// the cap at some level.
	KindSkillCapExceeded Kind = "skill_cap_exceeded"
	// KindInsufficientPoints: not enough unspent skill points at the level.
	KindInsufficientPoints Kind = "insufficient_points"
	// KindIntervalViolation: a perk pick at a level that grants no perk.
	KindIntervalViolation Kind = "interval_violation"
	// KindRequirementUnmet: the perk's unlock expression is not satisfied.
	KindRequirementUnmet Kind = "requirement_unmet"
	// KindAlreadySelected: the perk is already at its maximum rank.
	KindAlreadySelected Kind = "already_selected"
	// KindSlotOccupied: the level's perk slot, or an equipment slot, is
	// already filled.
	KindSlotOccupied Kind = "slot_occupied"
	// KindDuplicateSelection: a tag, trait, or same-level rank repeat.
	KindDuplicateSelection Kind = "duplicate_selection"
	// KindCreationLocked: a creation choice changed after leveling began.
	KindCreationLocked Kind = "creation_locked"
	// KindInvalidSlot: the item cannot occupy the named equipment slot.
	KindInvalidSlot Kind = "invalid_slot"
	// KindInvalidValue: a value outside its legal range.
	KindInvalidValue Kind = "invalid_value"
	// KindImplantLimitExceeded: more implants than Endurance allows.
	KindImplantLimitExceeded Kind = "implant_limit_exceeded"
	// KindMissingPlan: an operation addressed a level with no plan entry.
	KindMissingPlan Kind = "missing_plan"
)

// Error is a structured mutation rejection. It is a value type; callers
// match on Kind rather than message text.
type Error struct {
	Kind   Kind   `yaml:"kind" json:"kind"`
	Level  int    `yaml:"level,omitempty" json:"level,omitempty"`
	Detail string `yaml:"detail,omitempty" json:"detail,omitempty"`
}

func (e Error) Error() string {
	if e.Level > 0 {
		return fmt.Sprintf("%s at level %d: %s", e.Kind, e.Level, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Is lets errors.Is match two rejections by Kind alone.
func (e Error) Is(target error) bool {
	if other, ok := target.(Error); ok {
		return e.Kind == other.Kind
	}
	return false
}

func reject(kind Kind, level int, format string, args ...any) Error {
	return Error{Kind: kind, Level: level, Detail: fmt.Sprintf(format, args...)}
}

// UnknownSkillError reports an actor value that is not an active skill.
// It marks a caller contract violation, not an invalid plan state.
type UnknownSkillError struct {
	ActorValue int
}

func (e UnknownSkillError) Error() string {
	return fmt.Sprintf("actor value %d is not an active skill", e.ActorValue)
}

// UnknownItemError reports a form ID that names no item or book.
type UnknownItemError struct {
	FormID uint32
}

func (e UnknownItemError) Error() string {
	return fmt.Sprintf("unknown item %#x", e.FormID)
}

// LevelOutOfRangeError reports a level outside [1, Max].
type LevelOutOfRangeError struct {
	Level int
	Max   int
}

func (e LevelOutOfRangeError) Error() string {
	return fmt.Sprintf("level %d outside [1, %d]", e.Level, e.Max)
}

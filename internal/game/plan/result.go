package plan

import (
	"github.com/avamatic/fnv-planner/internal/game/build"
	"github.com/avamatic/fnv-planner/internal/game/formula"
)

// Action is one recorded planner decision at a level.
type Action struct {
	Kind   string `yaml:"kind" json:"kind"`
	Detail string `yaml:"detail" json:"detail"`
}

// Action kinds.
const (
	ActionSkill   = "skill"
	ActionPerk    = "perk"
	ActionBook    = "book"
	ActionImplant = "implant"
	ActionEquip   = "equip"
)

// LevelStep is the timeline entry for one level.
type LevelStep struct {
	Level   int      `yaml:"level" json:"level"`
	Actions []Action `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// UnmetGoal pairs an unachieved goal with the reason the planner could
// not reach it.
type UnmetGoal struct {
	Goal   RequirementSpec `yaml:"goal" json:"goal"`
	Reason string          `yaml:"reason" json:"reason"`
}

// Result is the planner's full output: the finished plan, its timeline,
// and the goal verdicts.
type Result struct {
	// Success is true when every goal holds by its deadline.
	Success bool `yaml:"success" json:"success"`

	// Unmet lists the goals that could not be reached.
	Unmet []UnmetGoal `yaml:"unmet,omitempty" json:"unmet,omitempty"`

	// State is the complete build plan, replayable by a build engine.
	State *build.State `yaml:"state" json:"state"`

	// Timeline records the planner's decisions level by level.
	Timeline []LevelStep `yaml:"timeline,omitempty" json:"timeline,omitempty"`

	// FinalStats is the derived-stat block at the target level.
	FinalStats formula.Stats `yaml:"final_stats" json:"final_stats"`

	// TargetLevel is the last level the plan covers.
	TargetLevel int `yaml:"target_level" json:"target_level"`

	// SelectionReasons explains, per selected perk form ID, why the
	// planner picked it.
	SelectionReasons map[uint32]string `yaml:"selection_reasons,omitempty" json:"selection_reasons,omitempty"`

	// Diagnostics surfaces advisory messages, such as raw conditions a
	// permissive requirement policy waved through.
	Diagnostics []string `yaml:"diagnostics,omitempty" json:"diagnostics,omitempty"`
}

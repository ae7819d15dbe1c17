package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/game/content"
	"github.com/avamatic/fnv-planner/internal/scripting"
)

func testCharacter() *character.Character {
	return &character.Character{
		Level: 10,
		Sex:   character.SexFemale,
		Special: map[character.ActorValue]int{
			character.Strength: 7,
			character.Luck:     5,
		},
		PointsSpent: map[character.ActorValue]int{
			character.Guns: 20,
		},
	}
}

func TestConditionHost_HandlerVerdict(t *testing.T) {
	host := scripting.NewConditionHost(zap.NewNop(), 0)
	defer host.Close()

	require.NoError(t, host.LoadScript(`
		function condition_464(char, op, value, param1, param2)
			return char.level >= value
		end
	`))

	handled, satisfied := host.Evaluate(content.RawCondition{Function: 464, Value: 8}, testCharacter())
	assert.True(t, handled)
	assert.True(t, satisfied)

	handled, satisfied = host.Evaluate(content.RawCondition{Function: 464, Value: 20}, testCharacter())
	assert.True(t, handled)
	assert.False(t, satisfied)
}

func TestConditionHost_UnhandledFunction(t *testing.T) {
	host := scripting.NewConditionHost(zap.NewNop(), 0)
	defer host.Close()

	handled, _ := host.Evaluate(content.RawCondition{Function: 999}, testCharacter())
	assert.False(t, handled, "no handler registered")
}

func TestConditionHost_HandlerSeesCharacterState(t *testing.T) {
	host := scripting.NewConditionHost(zap.NewNop(), 0)
	defer host.Close()

	require.NoError(t, host.LoadScript(`
		function condition_100(char, op, value, param1, param2)
			return char.special[5] == 7 and char.points_spent[41] == 20 and char.sex == 1
		end
	`))

	handled, satisfied := host.Evaluate(content.RawCondition{Function: 100}, testCharacter())
	assert.True(t, handled)
	assert.True(t, satisfied)
}

func TestConditionHost_BrokenHandlerDegradesToUnhandled(t *testing.T) {
	host := scripting.NewConditionHost(zap.NewNop(), 0)
	defer host.Close()

	require.NoError(t, host.LoadScript(`
		function condition_200(char, op, value, param1, param2)
			error("content bug")
		end
	`))

	handled, satisfied := host.Evaluate(content.RawCondition{Function: 200}, testCharacter())
	assert.False(t, handled, "erroring handler must fall back to the policy")
	assert.False(t, satisfied)
}

func TestConditionHost_LoadScriptError(t *testing.T) {
	host := scripting.NewConditionHost(zap.NewNop(), 0)
	defer host.Close()
	assert.Error(t, host.LoadScript(`function broken(`))
}

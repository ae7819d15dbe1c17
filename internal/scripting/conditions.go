package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/game/content"
)

// ConditionHost owns a single sandboxed VM holding content-supplied
// handlers for raw condition functions. A handler is a global Lua function
// named "condition_<function index>" taking (char, op, value, param1,
// param2) and returning a boolean; char is a read-only table with level,
// sex, special, and skills fields.
//
// The host serializes handler calls with a mutex; the VM itself is
// single-threaded.
type ConditionHost struct {
	mu     sync.Mutex
	state  *lua.LState
	logger *zap.Logger
}

// NewConditionHost creates an empty host with a sandboxed VM.
//
// Precondition: logger must be non-nil.
func NewConditionHost(logger *zap.Logger, instLimit int) *ConditionHost {
	return &ConditionHost{
		state:  NewSandboxedState(instLimit),
		logger: logger,
	}
}

// Close releases the underlying VM.
func (h *ConditionHost) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.Close()
}

// LoadScript executes raw Lua source in the host VM, registering any
// condition handlers it defines.
func (h *ConditionHost) LoadScript(src string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.state.DoString(src); err != nil {
		return fmt.Errorf("loading condition script: %w", err)
	}
	return nil
}

// LoadDirectory executes every *.lua file in dir in lexicographic order.
//
// Precondition: dir must be a readable directory.
func (h *ConditionHost) LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading condition script dir %q: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".lua") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := h.state.DoFile(path); err != nil {
			return fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return nil
}

// Evaluate runs the handler for cond's function index, if one is defined.
// handled=false means no handler exists and the caller's policy applies.
// A handler that errors is logged and treated as unhandled, so a broken
// script degrades to the declared policy instead of granting the perk.
func (h *ConditionHost) Evaluate(cond content.RawCondition, c *character.Character) (handled, satisfied bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	fnName := fmt.Sprintf("condition_%d", cond.Function)
	fn := h.state.GetGlobal(fnName)
	if fn == lua.LNil {
		return false, false
	}

	err := h.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true},
		h.characterTable(c),
		lua.LString(cond.Operator),
		lua.LNumber(cond.Value),
		lua.LNumber(cond.Param1),
		lua.LNumber(cond.Param2),
	)
	if err != nil {
		h.logger.Warn("condition handler failed",
			zap.String("handler", fnName),
			zap.Error(err))
		return false, false
	}

	ret := h.state.Get(-1)
	h.state.Pop(1)
	return true, lua.LVAsBool(ret)
}

// characterTable converts a character snapshot into a Lua table.
func (h *ConditionHost) characterTable(c *character.Character) *lua.LTable {
	t := h.state.NewTable()
	t.RawSetString("level", lua.LNumber(c.Level))
	t.RawSetString("sex", lua.LNumber(c.Sex))

	special := h.state.NewTable()
	for _, av := range character.SpecialIndices() {
		special.RawSetInt(int(av), lua.LNumber(c.SpecialOrDefault(av)))
	}
	t.RawSetString("special", special)

	skills := h.state.NewTable()
	for av, pts := range c.PointsSpent {
		skills.RawSetInt(int(av), lua.LNumber(pts))
	}
	t.RawSetString("points_spent", skills)

	return t
}

// Package scripting provides a sandboxed GopherLua environment used to
// give content packs a way to define semantics for condition functions the
// requirement graph does not natively understand. It has no dependency on
// the build or planner packages; character state is passed in as plain
// tables.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit caps the Lua opcodes a single condition handler
// may execute when no override is configured. Handlers compare a couple
// of table fields; anything that runs longer is stuck.
const DefaultInstructionLimit = 100_000

// countingContext is a context whose Done() cancels it after limit
// calls. GopherLua consults Done() on every opcode, so the budget is an
// exact opcode count.
type countingContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining *atomic.Int64
}

// Done decrements the opcode budget, firing the cancel once it is spent.
func (c *countingContext) Done() <-chan struct{} {
	if c.remaining.Add(-1) <= 0 {
		c.cancel()
	}
	return c.Context.Done()
}

func newCountingContext(limit int) (context.Context, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	rem := &atomic.Int64{}
	rem.Store(int64(limit))
	return &countingContext{
		Context:   base,
		cancel:    cancel,
		remaining: rem,
	}, cancel
}

// NewSandboxedState builds an LState fit for untrusted condition
// handlers: only the base, table, string, and math libraries are open;
// dofile, loadfile, load, collectgarbage, and require are stripped; and
// execution stops after at most instLimit opcodes (zero applies
// DefaultInstructionLimit). The caller owns the returned LState and must
// Close it.
func NewSandboxedState(instLimit int) *lua.LState {
	limit := instLimit
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// OpenBase installs these; the sandbox forbids them.
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	ctx, _ := newCountingContext(limit)
	L.SetContext(ctx)

	return L
}

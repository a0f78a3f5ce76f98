package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/refract/internal/analysis"
	"github.com/dshills/refract/internal/refactor"
	"github.com/dshills/refract/internal/ui"
)

// ErrEngineClosed is returned when a closed engine is used.
var ErrEngineClosed = errors.New("script engine is closed")

// Engine runs user scripts that register options resolvers for
// refactoring kinds, so new kinds need Lua, not Go.
//
// Script API:
//
//	refract.resolver(kind, fn)   -- fn(feedback) -> options table, or nil to cancel
//	refract.prompt(label, default) -- asks the user, returns string or nil
//
// The Lua state is not goroutine-safe; every entry point takes the
// engine lock, so concurrent resolver calls serialize here.
type Engine struct {
	mu        sync.Mutex
	L         *lua.LState
	bridge    *bridge
	ui        ui.Interactor
	resolvers map[string]*lua.LFunction
	closed    bool
}

// NewEngine creates a script engine. Scripts get a restricted stdlib:
// base, table, string, and math, with no io, os, or module loading.
func NewEngine(interactor ui.Interactor) *Engine {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	e := &Engine{
		L:         L,
		bridge:    &bridge{L: L},
		ui:        interactor,
		resolvers: make(map[string]*lua.LFunction),
	}
	e.installAPI()
	return e
}

// installAPI publishes the refract module table to scripts.
func (e *Engine) installAPI() {
	mod := e.L.NewTable()
	e.L.SetField(mod, "resolver", e.L.NewFunction(e.luaResolver))
	e.L.SetField(mod, "prompt", e.L.NewFunction(e.luaPrompt))
	e.L.SetGlobal("refract", mod)
}

// luaResolver implements refract.resolver(kind, fn).
func (e *Engine) luaResolver(L *lua.LState) int {
	kind := L.CheckString(1)
	fn := L.CheckFunction(2)
	e.resolvers[kind] = fn
	return 0
}

// luaPrompt implements refract.prompt(label, default).
func (e *Engine) luaPrompt(L *lua.LState) int {
	label := L.CheckString(1)
	defaultValue := L.OptString(2, "")

	value, ok := e.ui.PromptText(label, defaultValue)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(value))
	return 1
}

// LoadFile executes one script, letting it register resolvers.
func (e *Engine) LoadFile(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	if err := e.L.DoFile(path); err != nil {
		return fmt.Errorf("load script %s: %w", path, err)
	}
	return nil
}

// LoadDir executes every .lua file in dir in name order. A missing dir
// is not an error.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read script dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := e.LoadFile(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// LoadString executes inline script source.
func (e *Engine) LoadString(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	if err := e.L.DoString(src); err != nil {
		return fmt.Errorf("load script: %w", err)
	}
	return nil
}

// Kinds returns the kinds scripts registered, sorted.
func (e *Engine) Kinds() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	kinds := make([]string, 0, len(e.resolvers))
	for k := range e.resolvers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Resolve runs the script resolver for kind. The feedback JSON is
// handed to Lua as a table; a table comes back as the options payload.
// A nil return, a script error, or an unregistered kind cancels.
func (e *Engine) Resolve(ctx context.Context, kind string, feedback json.RawMessage) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, false
	}

	fn, ok := e.resolvers[kind]
	if !ok {
		return nil, false
	}

	var fbValue any
	if len(feedback) > 0 {
		if err := json.Unmarshal(feedback, &fbValue); err != nil {
			return nil, false
		}
	}

	e.L.SetContext(ctx)
	defer e.L.RemoveContext()

	e.L.Push(fn)
	e.L.Push(e.bridge.toLua(fbValue))
	if err := e.L.PCall(1, 1, nil); err != nil {
		return nil, false
	}

	ret := e.L.Get(-1)
	e.L.Pop(1)
	if ret == lua.LNil {
		return nil, false
	}
	return e.bridge.toGo(ret), true
}

// RegisterInto installs each script resolver into the registry.
// Built-in resolvers already registered under the same kind are
// replaced; scripts win.
func (e *Engine) RegisterInto(reg *refactor.Registry) {
	for _, kind := range e.Kinds() {
		k := kind
		reg.Register(analysis.RefactoringKind(k), refactor.ResolverFunc(
			func(ctx context.Context, feedback json.RawMessage) (any, bool) {
				return e.Resolve(ctx, k, feedback)
			}))
	}
}

// Close shuts the Lua state down. Resolve calls after Close cancel.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.L.Close()
}

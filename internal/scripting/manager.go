package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/game/dice"
)

// Manager owns one sandboxed LState holding every loaded skill script and
// dispatches hook calls into it.
//
// A LState is single-threaded, so every call into the VM holds mu.
type Manager struct {
	mu        sync.Mutex
	L         *lua.LState
	instLimit int
	roller    *dice.Roller
	logger    *zap.Logger
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: roller and logger must be non-nil.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	return &Manager{roller: roller, logger: logger}
}

// Load creates a fresh sandboxed VM, registers the engine.* modules and
// executes every *.lua file in scriptDir in lexicographic order. A previously
// loaded VM is replaced only when loading succeeds.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: returns an error on read or Lua load failure.
func (m *Manager) Load(scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L, cancel := NewSandboxedState(instLimit)
	// The load itself runs under its own budget; hook calls get a fresh one each.
	defer cancel()
	m.RegisterModules(L)
	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	old := m.L
	m.L = L
	m.instLimit = instLimit
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}
	m.logger.Info("skill scripts loaded", zap.String("dir", scriptDir), zap.Int("files", len(luaFiles)))
	return nil
}

// LoadString executes src in a fresh VM. It is the in-memory counterpart of Load.
func (m *Manager) LoadString(src string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	defer cancel()
	m.RegisterModules(L)
	if err := L.DoString(src); err != nil {
		L.Close()
		return fmt.Errorf("scripting: loading source: %w", err)
	}
	m.mu.Lock()
	old := m.L
	m.L = L
	m.instLimit = instLimit
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// HasHook reports whether a global function named hook is defined.
func (m *Manager) HasHook(hook string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L == nil {
		return false
	}
	_, ok := m.L.GetGlobal(hook).(*lua.LFunction)
	return ok
}

// CallHook calls the named Lua global function with a fresh instruction
// budget. Returns (LNil, nil) when no VM is loaded or the hook is undefined.
// Lua runtime errors, including an exhausted budget, are logged at Warn and
// returned.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(ctx context.Context, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L == nil {
		m.logger.Info("scripting: no VM loaded", zap.String("hook", hook))
		return lua.LNil, nil
	}
	fn := m.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	callCtx, cancel := newCountingContext(ctx, limitOrDefault(m.instLimit))
	defer cancel()
	m.L.SetContext(callCtx)
	defer m.L.RemoveContext()

	if err := m.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error", zap.String("hook", hook), zap.Error(err))
		return lua.LNil, fmt.Errorf("scripting: hook %q: %w", hook, err)
	}
	ret := m.L.Get(-1)
	m.L.Pop(1)
	return ret, nil
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L != nil {
		m.L.Close()
		m.L = nil
	}
}

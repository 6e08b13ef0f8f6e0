package scripting_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/wayfarer/internal/game/dice"
	"github.com/cory-johannsen/wayfarer/internal/scripting"
)

type fixedSource struct{ val int }

func (f fixedSource) Intn(n int) int {
	if f.val >= n {
		return n - 1
	}
	return f.val
}

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	roller := dice.NewLoggedRoller(fixedSource{val: 3}, logger)
	mgr := scripting.NewManager(roller, logger)
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0o644))
	return dir
}

func TestManager_Load_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function add(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.Load(dir, 0))
	ret, err := mgr.CallHook(context.Background(), "add", lua.LNumber(3), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
	assert.True(t, mgr.HasHook("add"))
	assert.False(t, mgr.HasHook("sub"))
}

func TestManager_CallHook_NothingLoaded(t *testing.T) {
	mgr, logs := newTestManager(t)
	ret, err := mgr.CallHook(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterMessage("scripting: no VM loaded").Len())
}

func TestManager_CallHook_MissingHookIsNoop(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString(`-- nothing`, 0))
	ret, err := mgr.CallHook(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_RuntimeErrorIsLogged(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.LoadString(`function bad() error("boom") end`, 0))
	_, err := mgr.CallHook(context.Background(), "bad")
	assert.Error(t, err)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestManager_CallHook_FreshBudgetPerCall(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString(`
		function spin(n)
			local s = 0
			for i = 1, n do s = s + i end
			return s
		end
	`, 2000))
	for range 10 {
		ret, err := mgr.CallHook(context.Background(), "spin", lua.LNumber(100))
		require.NoError(t, err)
		assert.Equal(t, lua.LNumber(5050), ret)
	}
	_, err := mgr.CallHook(context.Background(), "spin", lua.LNumber(1_000_000))
	assert.Error(t, err)
}

func TestManager_Load_BadScriptKeepsPrevious(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString(`function ok() return 1 end`, 0))
	dir := writeTempLua(t, "broken.lua", `function (`)
	assert.Error(t, mgr.Load(dir, 0))
	assert.True(t, mgr.HasHook("ok"))
}

func TestManager_Load_MissingDir(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Error(t, mgr.Load(filepath.Join(t.TempDir(), "nope"), 0))
}

func TestManager_EngineDiceRoll(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString(`function roll() return engine.dice.roll("2d6+1") end`, 0))
	ret, err := mgr.CallHook(context.Background(), "roll")
	require.NoError(t, err)
	// fixedSource{3} rolls 4 on each die.
	assert.Equal(t, lua.LNumber(9), ret)
}

func TestManager_ConcurrentCalls(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString(`function double(x) return x * 2 end`, 0))
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ret, err := mgr.CallHook(context.Background(), "double", lua.LNumber(i))
			assert.NoError(t, err)
			assert.Equal(t, lua.LNumber(i*2), ret)
		}(i)
	}
	wg.Wait()
}

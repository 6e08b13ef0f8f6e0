package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers the engine.* Lua tables into L:
//
//	engine.dice.roll(expr) -> total   rolls with the manager's logged roller
//	engine.log.info(msg)              logs at Info
//	engine.log.debug(msg)             logs at Debug
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	diceMod := L.NewTable()
	L.SetField(diceMod, "roll", L.NewFunction(func(L *lua.LState) int {
		expr := L.CheckString(1)
		res, err := m.roller.RollExpr(expr)
		if err != nil {
			L.RaiseError("engine.dice.roll: %s", err.Error())
			return 0
		}
		L.Push(lua.LNumber(res.Total()))
		return 1
	}))
	L.SetField(engine, "dice", diceMod)

	logMod := L.NewTable()
	L.SetField(logMod, "info", L.NewFunction(func(L *lua.LState) int {
		m.logger.Info("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	L.SetField(logMod, "debug", L.NewFunction(func(L *lua.LState) int {
		m.logger.Debug("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	L.SetField(engine, "log", logMod)

	L.SetGlobal("engine", engine)
}

package scripting

import (
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/arenactl/internal/game/player"
)

// RegisterModules defines the engine global in L:
//
//	engine.command(name, {aliases = {...}, help = "...", admin = bool}, fn)
//	engine.say(msg)
//	engine.tell(id, msg)
//
// engine.say and engine.tell are only available inside a command call.
// Player ids are passed to scripts as decimal strings since they exceed
// the integer range of a Lua number.
//
// Precondition: L must be from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetFuncs(engine, map[string]lua.LGFunction{
		"command": m.luaCommand,
		"say":     m.luaSay,
		"tell":    m.luaTell,
	})
	L.SetGlobal("engine", engine)
}

func (m *Manager) luaCommand(L *lua.LState) int {
	name := L.CheckString(1)
	opts := L.OptTable(2, nil)
	fn := L.CheckFunction(3)

	var (
		aliases []string
		help    string
		admin   bool
	)
	if opts != nil {
		if t, ok := opts.RawGetString("aliases").(*lua.LTable); ok {
			t.ForEach(func(_, v lua.LValue) {
				if s, ok := v.(lua.LString); ok {
					aliases = append(aliases, string(s))
				}
			})
		}
		if s, ok := opts.RawGetString("help").(lua.LString); ok {
			help = string(s)
		}
		admin = lua.LVAsBool(opts.RawGetString("admin"))
	}

	m.register(name, aliases, help, admin, fn)
	return 0
}

func (m *Manager) luaSay(L *lua.LState) int {
	msg := L.CheckString(1)
	if m.callCtx == nil || m.messenger == nil {
		L.RaiseError("engine.say is only available inside a command")
		return 0
	}
	if err := m.messenger.SayToChat(m.callCtx, msg); err != nil {
		L.RaiseError("engine.say: %s", err.Error())
	}
	return 0
}

func (m *Manager) luaTell(L *lua.LState) int {
	id, err := strconv.ParseUint(L.CheckString(1), 10, 64)
	if err != nil {
		L.ArgError(1, "player id must be a decimal string")
		return 0
	}
	msg := L.CheckString(2)
	if m.callCtx == nil || m.messenger == nil {
		L.RaiseError("engine.tell is only available inside a command")
		return 0
	}
	if err := m.messenger.MessageToPlayer(m.callCtx, player.ID(id), msg); err != nil {
		L.RaiseError("engine.tell: %s", err.Error())
	}
	return 0
}

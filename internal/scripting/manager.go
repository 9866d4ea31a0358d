package scripting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arenactl/internal/game/command"
	"github.com/cory-johannsen/arenactl/internal/game/player"
)

// Messenger delivers chat text on behalf of scripts.
type Messenger interface {
	SayToChat(ctx context.Context, msg string) error
	MessageToPlayer(ctx context.Context, id player.ID, msg string) error
}

// Options configures a Manager.
type Options struct {
	// Prefix is prepended to script command names and aliases that lack it.
	// Empty selects command.DefaultPrefix.
	Prefix string
	// InstructionLimit bounds every load and every call. Zero or negative
	// selects DefaultInstructionLimit.
	InstructionLimit int
}

// Manager owns one sandboxed LState and the chat commands its scripts
// registered.
//
// The LState is single-threaded: loads and command calls are serialized.
type Manager struct {
	mu        sync.Mutex
	L         *lua.LState
	opts      Options
	messenger Messenger
	commands  []command.Command
	// callCtx is the context of the command call in progress, nil while loading.
	callCtx context.Context
	logger  *zap.Logger
}

// NewManager creates a Manager with an empty sandboxed state.
//
// Precondition: logger must be non-nil. messenger may be nil when the
// commands are only inspected, never run.
// Postcondition: Returns a non-nil Manager; Close releases its state.
func NewManager(messenger Messenger, opts Options, logger *zap.Logger) *Manager {
	if opts.Prefix == "" {
		opts.Prefix = command.DefaultPrefix
	}
	if opts.InstructionLimit <= 0 {
		opts.InstructionLimit = DefaultInstructionLimit
	}
	m := &Manager{
		L:         NewSandboxedState(),
		opts:      opts,
		messenger: messenger,
		logger:    logger,
	}
	m.RegisterModules(m.L)
	return m
}

// LoadDir executes every *.lua file in dir in lexicographic order.
//
// Precondition: dir must be a readable directory.
// Postcondition: Stops at the first failing script; commands registered by
// earlier scripts are kept.
func (m *Manager) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("scripting: reading %q: %w", path, err)
		}
		if err := m.LoadString(filepath.Base(path), string(src)); err != nil {
			return err
		}
	}
	m.logger.Info("loaded chat scripts",
		zap.String("dir", dir),
		zap.Int("files", len(luaFiles)),
		zap.Int("commands", len(m.Commands())),
	)
	return nil
}

// LoadString executes one script chunk under the instruction limit.
func (m *Manager) LoadString(name, src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn, err := m.L.LoadString(src)
	if err != nil {
		return fmt.Errorf("scripting: compiling %q: %w", name, err)
	}
	release := limitExecution(context.Background(), m.L, m.opts.InstructionLimit)
	defer release()

	m.L.Push(fn)
	if err := m.L.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("scripting: loading %q: %w", name, err)
	}
	return nil
}

// Commands returns the chat commands registered so far, in registration order.
func (m *Manager) Commands() []command.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]command.Command, len(m.commands))
	copy(out, m.commands)
	return out
}

// Close releases the Lua state. Registered commands fail once closed.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L != nil {
		m.L.Close()
		m.L = nil
	}
}

func (m *Manager) withPrefix(s string) string {
	if strings.HasPrefix(s, m.opts.Prefix) {
		return s
	}
	return m.opts.Prefix + s
}

// register is called from engine.command while the script chunk runs, with
// m.mu already held.
func (m *Manager) register(name string, aliases []string, help string, admin bool, fn *lua.LFunction) {
	cmd := command.Command{
		Name:      m.withPrefix(name),
		Help:      help,
		AdminOnly: admin,
	}
	for _, a := range aliases {
		cmd.Aliases = append(cmd.Aliases, m.withPrefix(a))
	}
	cmdName := cmd.Name
	cmd.Handler = func(ctx context.Context, inv command.Invocation) error {
		return m.call(ctx, cmdName, fn, inv)
	}
	m.commands = append(m.commands, cmd)
}

var errClosed = errors.New("scripting: manager closed")

// call runs a script command handler as fn(player, raw_args, args).
//
// Postcondition: Lua runtime errors, including an exceeded instruction
// limit, are returned.
func (m *Manager) call(ctx context.Context, name string, fn *lua.LFunction, inv command.Invocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L == nil {
		return errClosed
	}

	L := m.L
	caller := L.NewTable()
	caller.RawSetString("id", lua.LString(inv.Caller.ID.String()))
	caller.RawSetString("name", lua.LString(inv.Caller.Name))
	caller.RawSetString("admin", lua.LBool(inv.Caller.IsAdmin))
	caller.RawSetString("channel", lua.LString(inv.Channel.String()))

	args := L.NewTable()
	for _, a := range inv.Args {
		args.Append(lua.LString(a))
	}

	release := limitExecution(ctx, L, m.opts.InstructionLimit)
	m.callCtx = ctx
	defer func() {
		m.callCtx = nil
		release()
	}()

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, caller, lua.LString(inv.RawArgs), args); err != nil {
		return fmt.Errorf("lua command %s: %w", name, err)
	}
	return nil
}

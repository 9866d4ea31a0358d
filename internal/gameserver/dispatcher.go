package gameserver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arenactl/internal/game/command"
	"github.com/cory-johannsen/arenactl/internal/game/player"
	"github.com/cory-johannsen/arenactl/internal/game/round"
	"github.com/cory-johannsen/arenactl/internal/game/session"
)

// DefaultBroadcastTimeout bounds each outbound call made while handling an
// event when Options.BroadcastTimeout is zero.
const DefaultBroadcastTimeout = 2 * time.Second

// Options configures a Dispatcher.
type Options struct {
	// Profile is the match profile applied on every (re)connect.
	Profile round.Profile
	// Progress overrides the progression of every joining player.
	Progress player.Progress
	// PrivilegedIDs are granted the admin role on join and on chat.
	PrivilegedIDs []player.ID
	// Prefix marks chat commands. Empty selects command.DefaultPrefix.
	Prefix string
	// BroadcastTimeout bounds each outbound call.
	BroadcastTimeout time.Duration
	// Commands are registered after the built-in commands.
	Commands []command.Command
	// Players is the session store to continue with, for a game server
	// that reconnects. Nil starts an empty store.
	Players *session.Manager
}

// Dispatcher routes the events of one game-server session to the session
// store, the round controller and the chat commands.
//
// Precondition: events of one Category must not be handled concurrently;
// see Loop.
type Dispatcher struct {
	runtime    Runtime
	players    *session.Manager
	round      *round.Controller
	commands   *command.Dispatcher
	privileged map[player.ID]struct{}
	progress   player.Progress
	timeout    time.Duration
	logger     *zap.Logger
}

// NewDispatcher creates a Dispatcher with a fresh round controller bound to
// runtime. The session store is opts.Players, or a new one.
//
// Precondition: opts.Profile must be valid; runtime and logger must be non-nil.
// Postcondition: Returns a non-nil Dispatcher in the waiting state tracking
// the players already in opts.Players.
func NewDispatcher(opts Options, runtime Runtime, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		runtime:    runtime,
		players:    opts.Players,
		privileged: make(map[player.ID]struct{}, len(opts.PrivilegedIDs)),
		progress:   opts.Progress,
		timeout:    opts.BroadcastTimeout,
		logger:     logger,
	}
	if d.timeout <= 0 {
		d.timeout = DefaultBroadcastTimeout
	}
	if d.players == nil {
		d.players = session.NewManager()
	}
	for _, id := range opts.PrivilegedIDs {
		d.privileged[id] = struct{}{}
	}
	d.round = round.NewController(opts.Profile, runtime, d.players, logger)
	d.commands = command.NewDispatcher(newRegistry(d, opts.Commands), opts.Prefix)
	return d
}

// newRegistry registers the built-in commands bound to d, then extra.
func newRegistry(d *Dispatcher, extra []command.Command) *command.Registry {
	cmds := append(d.builtinCommands(), extra...)
	return command.NewRegistry(cmds...)
}

// CommandConflicts reports the name and alias collisions of the built-in
// commands combined with extra, without binding them to a session.
func CommandConflicts(extra []command.Command) []command.Conflict {
	return newRegistry(&Dispatcher{}, extra).Conflicts()
}

// Players returns the session store.
func (d *Dispatcher) Players() *session.Manager {
	return d.players
}

// Round returns the round controller.
func (d *Dispatcher) Round() *round.Controller {
	return d.round
}

// Commands returns the chat command registry.
func (d *Dispatcher) Commands() *command.Registry {
	return d.commands.Registry()
}

// Handle routes ev to its handler.
//
// Postcondition: Returns a non-nil error for an unknown event type, or when
// the event names a player the session does not track.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (Outcome, error) {
	switch e := ev.(type) {
	case ServerConnected:
		d.OnServerConnected(ctx, e.Round)
	case ServerReconnected:
		d.OnServerReconnected(ctx, e.Round)
	case ServerDisconnected:
		d.OnServerDisconnected()
	case RoundUpdated:
		d.OnRoundUpdated(e.Round)
	case Tick:
		d.OnTick(ctx)
	case PlayerJoining:
		stats := d.OnPlayerJoining(ctx, e.ID, e.Stats)
		return Outcome{Stats: &stats}, nil
	case PlayerConnected:
		return Outcome{}, d.OnPlayerConnected(ctx, e.Player)
	case PlayerDisconnected:
		return Outcome{}, d.OnPlayerDisconnected(ctx, e.Player)
	case PlayerDowned:
		return Outcome{}, d.OnPlayerDowned(ctx, e.Killer, e.Victim)
	case PlayerSpawning:
		req, err := d.OnPlayerSpawning(e.Player, e.Request)
		return Outcome{Spawn: &req}, err
	case ChatMessage:
		allow, err := d.OnPlayerChatMessage(ctx, e.Player, e.Channel, e.Text)
		return Outcome{AllowMessage: allow}, err
	default:
		return Outcome{}, fmt.Errorf("unhandled event type %T", ev)
	}
	return Outcome{}, nil
}

// OnServerConnected resets the round configuration and pushes it.
func (d *Dispatcher) OnServerConnected(ctx context.Context, snap round.Snapshot) {
	d.logger.Info("game server connected", zap.Stringer("state", snap.State))
	d.setup(ctx, snap)
}

// OnServerReconnected behaves like OnServerConnected.
func (d *Dispatcher) OnServerReconnected(ctx context.Context, snap round.Snapshot) {
	d.logger.Info("game server reconnected", zap.Stringer("state", snap.State))
	d.setup(ctx, snap)
}

func (d *Dispatcher) setup(ctx context.Context, snap round.Snapshot) {
	d.round.Reset(snap)
	if err := d.round.Setup(ctx); err != nil {
		d.logger.Warn("round setup incomplete", zap.Error(err))
	}
}

// OnServerDisconnected only logs. Player records stay in the store; only the
// player-disconnected event removes them.
func (d *Dispatcher) OnServerDisconnected() {
	d.logger.Info("game server disconnected", zap.Int("players", d.players.Count()))
}

// OnRoundUpdated adopts the runtime's round state.
func (d *Dispatcher) OnRoundUpdated(snap round.Snapshot) {
	d.round.Observe(snap)
}

// OnTick re-asserts collision and modifiers for every tracked player.
func (d *Dispatcher) OnTick(ctx context.Context) {
	if err := d.round.OnTick(ctx); err != nil {
		d.logger.Debug("tick enforcement incomplete", zap.Error(err))
	}
}

// OnPlayerJoining decides the stats a player is admitted with and starts
// tracking them.
//
// Postcondition: The returned stats carry the configured progression, and
// the admin role for privileged ids. A waiting round is force-started.
func (d *Dispatcher) OnPlayerJoining(ctx context.Context, id player.ID, stats player.Stats) player.Stats {
	stats.Progress = d.progress
	_, privileged := d.privileged[id]
	if privileged {
		stats.Roles |= player.RoleAdmin
	}

	p := d.players.Join(id, stats, privileged)
	d.logger.Info("player joining",
		zap.Stringer("player_id", id),
		zap.Bool("admin", p.IsAdmin),
	)

	if _, err := d.round.ForceStart(ctx); err != nil {
		d.logger.Warn("force start failed", zap.Error(err))
	}
	return stats
}

// OnPlayerConnected records the display name and announces the player.
func (d *Dispatcher) OnPlayerConnected(ctx context.Context, ref player.Ref) error {
	if _, err := d.players.Rename(ref.ID, ref.Name); err != nil {
		return fmt.Errorf("player connected: %w", err)
	}
	d.logger.Info("player connected", zap.Stringer("player", ref))
	d.broadcast(ctx, fmt.Sprintf("<color=green>%s joined the game!</color>", ref.Name))
	return nil
}

// OnPlayerDisconnected announces the player and drops their record.
func (d *Dispatcher) OnPlayerDisconnected(ctx context.Context, ref player.Ref) error {
	d.broadcast(ctx, fmt.Sprintf("<color=orange>%s left the game!</color>", ref.Name))
	if err := d.players.Disconnect(ref.ID); err != nil {
		return fmt.Errorf("player disconnected: %w", err)
	}
	d.logger.Info("player disconnected", zap.Stringer("player", ref))
	return nil
}

// OnPlayerDowned credits the elimination, finishes the victim, heals the
// killer and announces it.
//
// Postcondition: Counters are updated before any outbound call; outbound
// failures are logged and never roll them back.
func (d *Dispatcher) OnPlayerDowned(ctx context.Context, killer, victim player.Ref) error {
	out, err := d.players.RecordKill(killer.ID, victim.ID)
	if err != nil {
		return fmt.Errorf("player downed: %w", err)
	}

	d.send(ctx, "eliminating victim", func(ctx context.Context) error {
		return d.runtime.Kill(ctx, victim.ID)
	})

	msg := fmt.Sprintf("<color=red>%s killed themselves!</color>", killer.Name)
	if out.HealKiller() {
		d.send(ctx, "healing killer", func(ctx context.Context) error {
			return d.runtime.SetHealth(ctx, killer.ID, FullHealth)
		})
		msg = fmt.Sprintf("<color=red>%s killed %s!</color>", killer.Name, victim.Name)
	}
	d.broadcast(ctx, msg)
	return nil
}

// OnPlayerSpawning records the spawn loadout and returns req unchanged.
func (d *Dispatcher) OnPlayerSpawning(ref player.Ref, req player.SpawnRequest) (player.SpawnRequest, error) {
	if _, err := d.players.RecordSpawnLoadout(ref.ID, req.Loadout); err != nil {
		return req, fmt.Errorf("player spawning: %w", err)
	}
	return req, nil
}

// OnPlayerChatMessage runs text as a chat command when it names one.
//
// Postcondition: Returns false when the text was consumed as a command,
// including a swallowed admin-only attempt. Handler failures are logged
// and still consume the text.
func (d *Dispatcher) OnPlayerChatMessage(ctx context.Context, ref player.Ref, channel player.ChatChannel, text string) (bool, error) {
	if _, ok := d.privileged[ref.ID]; ok {
		if _, err := d.players.GrantAdmin(ref.ID); err != nil {
			return true, fmt.Errorf("chat message: %w", err)
		}
	}

	p, err := d.players.Get(ref.ID)
	if err != nil {
		return true, fmt.Errorf("chat message: %w", err)
	}

	caller := command.Caller{ID: ref.ID, Name: ref.Name, IsAdmin: p.IsAdmin}
	handled, err := d.commands.Dispatch(ctx, caller, channel, text)
	if err != nil {
		d.logger.Warn("chat command failed",
			zap.Stringer("player", ref),
			zap.Error(err),
		)
	}
	return !handled, nil
}

// broadcast sends msg to every player.
func (d *Dispatcher) broadcast(ctx context.Context, msg string) {
	d.send(ctx, "broadcasting", func(ctx context.Context) error {
		return d.runtime.SayToChat(ctx, msg)
	})
}

// send runs one outbound call bounded by the broadcast timeout and logs its
// failure.
func (d *Dispatcher) send(ctx context.Context, what string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		d.logger.Warn("outbound call failed", zap.String("call", what), zap.Error(err))
	}
}

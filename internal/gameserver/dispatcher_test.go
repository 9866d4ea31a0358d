package gameserver_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arenactl/internal/game/command"
	"github.com/cory-johannsen/arenactl/internal/game/player"
	"github.com/cory-johannsen/arenactl/internal/game/round"
	"github.com/cory-johannsen/arenactl/internal/game/session"
	"github.com/cory-johannsen/arenactl/internal/gameserver"
	"github.com/cory-johannsen/arenactl/internal/gameserver/mocks"
)

const (
	alice player.ID = 76561198000000001
	bob   player.ID = 76561198000000002
	root  player.ID = 76561198000000099
)

func testOptions() gameserver.Options {
	return gameserver.Options{
		Profile:       round.DefaultProfile(),
		Progress:      player.Progress{Rank: 200, Prestige: 10},
		PrivilegedIDs: []player.ID{root},
	}
}

type harness struct {
	rt *mocks.MockRuntime
	d  *gameserver.Dispatcher
}

// newHarness returns a dispatcher whose round is already playing, so joins
// do not force a start.
func newHarness(t *testing.T, opts gameserver.Options) *harness {
	ctrl := gomock.NewController(t)
	rt := mocks.NewMockRuntime(ctrl)
	d := gameserver.NewDispatcher(opts, rt, zaptest.NewLogger(t))
	d.Round().Reset(round.Snapshot{State: round.StatePlaying})
	return &harness{rt: rt, d: d}
}

func (h *harness) join(t *testing.T, id player.ID, name string) {
	t.Helper()
	h.d.OnPlayerJoining(context.Background(), id, player.Stats{})
	h.rt.EXPECT().SayToChat(gomock.Any(), "<color=green>"+name+" joined the game!</color>").Return(nil)
	require.NoError(t, h.d.OnPlayerConnected(context.Background(), player.Ref{ID: id, Name: name}))
}

func TestOnPlayerJoining_OverridesProgression(t *testing.T) {
	h := newHarness(t, testOptions())

	stats := h.d.OnPlayerJoining(context.Background(), alice, player.Stats{
		Progress: player.Progress{Rank: 3, Prestige: 0},
		Roles:    player.RoleVip,
	})

	assert.Equal(t, player.Progress{Rank: 200, Prestige: 10}, stats.Progress)
	assert.Equal(t, player.RoleVip, stats.Roles)
	p, err := h.d.Players().Get(alice)
	require.NoError(t, err)
	assert.False(t, p.IsAdmin)
	assert.Zero(t, p.Kills)
}

func TestOnPlayerJoining_PrivilegedGetsAdmin(t *testing.T) {
	h := newHarness(t, testOptions())

	stats := h.d.OnPlayerJoining(context.Background(), root, player.Stats{})

	assert.True(t, stats.Roles.Has(player.RoleAdmin))
	p, err := h.d.Players().Get(root)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)
}

func TestOnPlayerJoining_ForceStartsWaitingRound(t *testing.T) {
	ctrl := gomock.NewController(t)
	rt := mocks.NewMockRuntime(ctrl)
	d := gameserver.NewDispatcher(testOptions(), rt, zaptest.NewLogger(t))

	rt.EXPECT().ForceStartGame(gomock.Any()).Return(nil).Times(1)
	d.OnPlayerJoining(context.Background(), alice, player.Stats{})
	d.OnPlayerJoining(context.Background(), bob, player.Stats{})

	assert.Equal(t, round.StatePlaying, d.Round().State())
}

func TestOnPlayerConnected_UnknownPlayer(t *testing.T) {
	h := newHarness(t, testOptions())

	err := h.d.OnPlayerConnected(context.Background(), player.Ref{ID: alice, Name: "Alice"})
	assert.ErrorIs(t, err, session.ErrPlayerNotFound)
}

func TestOnPlayerConnected_RecordsName(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, alice, "Alice")

	p, err := h.d.Players().Get(alice)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
}

func TestOnPlayerDowned_CreditsAndHeals(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, alice, "Alice")
	h.join(t, bob, "Bob")

	gomock.InOrder(
		h.rt.EXPECT().Kill(gomock.Any(), bob).Return(nil),
		h.rt.EXPECT().SetHealth(gomock.Any(), alice, gameserver.FullHealth).Return(nil),
		h.rt.EXPECT().SayToChat(gomock.Any(), "<color=red>Alice killed Bob!</color>").Return(nil),
	)
	require.NoError(t, h.d.OnPlayerDowned(context.Background(),
		player.Ref{ID: alice, Name: "Alice"}, player.Ref{ID: bob, Name: "Bob"}))

	a, _ := h.d.Players().Get(alice)
	b, _ := h.d.Players().Get(bob)
	assert.Equal(t, 1, a.Kills)
	assert.Equal(t, 0, a.Deaths)
	assert.Equal(t, 0, b.Kills)
	assert.Equal(t, 1, b.Deaths)
}

func TestOnPlayerDowned_SelfKill(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, alice, "Alice")

	h.rt.EXPECT().Kill(gomock.Any(), alice).Return(nil)
	h.rt.EXPECT().SayToChat(gomock.Any(), "<color=red>Alice killed themselves!</color>").Return(nil)
	ref := player.Ref{ID: alice, Name: "Alice"}
	require.NoError(t, h.d.OnPlayerDowned(context.Background(), ref, ref))

	a, _ := h.d.Players().Get(alice)
	assert.Equal(t, 0, a.Kills)
	assert.Equal(t, 1, a.Deaths)
}

func TestOnPlayerDowned_OutboundFailureKeepsCounters(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, alice, "Alice")
	h.join(t, bob, "Bob")

	boom := errors.New("queue full")
	h.rt.EXPECT().Kill(gomock.Any(), bob).Return(boom)
	h.rt.EXPECT().SetHealth(gomock.Any(), alice, gameserver.FullHealth).Return(boom)
	h.rt.EXPECT().SayToChat(gomock.Any(), gomock.Any()).Return(boom)

	require.NoError(t, h.d.OnPlayerDowned(context.Background(),
		player.Ref{ID: alice, Name: "Alice"}, player.Ref{ID: bob, Name: "Bob"}))
	a, _ := h.d.Players().Get(alice)
	assert.Equal(t, 1, a.Kills)
}

func TestOnPlayerDowned_UnknownVictim(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, alice, "Alice")

	err := h.d.OnPlayerDowned(context.Background(),
		player.Ref{ID: alice, Name: "Alice"}, player.Ref{ID: bob, Name: "Bob"})
	assert.ErrorIs(t, err, session.ErrPlayerNotFound)

	a, _ := h.d.Players().Get(alice)
	assert.Zero(t, a.Kills)
}

func TestOnPlayerDisconnected(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, alice, "Alice")

	h.rt.EXPECT().SayToChat(gomock.Any(), "<color=orange>Alice left the game!</color>").Return(nil)
	require.NoError(t, h.d.OnPlayerDisconnected(context.Background(), player.Ref{ID: alice, Name: "Alice"}))

	_, err := h.d.Players().Get(alice)
	assert.ErrorIs(t, err, session.ErrPlayerNotFound)
}

func TestOnPlayerSpawning_RecordsLoadout(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, alice, "Alice")

	req := player.SpawnRequest{
		Loadout:  player.Loadout{PrimaryWeapon: "M4A1", Throwable: "Frag"},
		Position: player.Vector3{X: 1, Y: 2, Z: 3},
	}
	got, err := h.d.OnPlayerSpawning(player.Ref{ID: alice, Name: "Alice"}, req)
	require.NoError(t, err)
	assert.Equal(t, req, got)

	p, _ := h.d.Players().Get(alice)
	assert.True(t, p.HasLoadout)
	assert.Equal(t, "M4A1", p.Loadout.PrimaryWeapon)
}

func TestOnPlayerChatMessage_OrdinaryChatAllowed(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, alice, "Alice")

	for _, text := range []string{"gg", "", "   ", "/unknown", "stats", "hello /stats"} {
		allow, err := h.d.OnPlayerChatMessage(context.Background(), player.Ref{ID: alice, Name: "Alice"}, player.ChannelAll, text)
		require.NoError(t, err)
		assert.True(t, allow, "text %q", text)
	}
}

func TestOnPlayerChatMessage_Stats(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, alice, "Alice")

	h.rt.EXPECT().MessageToPlayer(gomock.Any(), alice, "Kills: 0 | Deaths: 0").Return(nil).Times(2)
	for _, text := range []string{"/stats", "/KD"} {
		allow, err := h.d.OnPlayerChatMessage(context.Background(), player.Ref{ID: alice, Name: "Alice"}, player.ChannelTeam, text)
		require.NoError(t, err)
		assert.False(t, allow)
	}
}

func TestOnPlayerChatMessage_KillSelf(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, alice, "Alice")

	h.rt.EXPECT().Kill(gomock.Any(), alice).Return(nil)
	allow, err := h.d.OnPlayerChatMessage(context.Background(), player.Ref{ID: alice, Name: "Alice"}, player.ChannelAll, "/suicide")
	require.NoError(t, err)
	assert.False(t, allow)
}

func TestOnPlayerChatMessage_AdminCommandSwallowedForNonAdmin(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, alice, "Alice")
	d := h.d

	allow, err := d.OnPlayerChatMessage(context.Background(), player.Ref{ID: alice, Name: "Alice"}, player.ChannelAll, "/start")
	require.NoError(t, err)
	assert.False(t, allow, "admin-only attempt is consumed")
	assert.Equal(t, round.StatePlaying, d.Round().State())
}

func TestOnPlayerChatMessage_PrivilegedStartsRound(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, root, "Root")
	h.d.Round().Reset(round.Snapshot{State: round.StateCountingDown, SecondsLeft: 30})

	h.rt.EXPECT().SetRoundSecondsLeft(gomock.Any(), round.MinCountdown).Return(nil)
	allow, err := h.d.OnPlayerChatMessage(context.Background(), player.Ref{ID: root, Name: "Root"}, player.ChannelAll, "/start")
	require.NoError(t, err)
	assert.False(t, allow)
}

func TestOnPlayerChatMessage_StartWhilePlaying(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, root, "Root")

	h.rt.EXPECT().MessageToPlayer(gomock.Any(), root, "The round is already running").Return(nil)
	allow, err := h.d.OnPlayerChatMessage(context.Background(), player.Ref{ID: root, Name: "Root"}, player.ChannelAll, "/start")
	require.NoError(t, err)
	assert.False(t, allow)
}

func TestOnPlayerChatMessage_HelpListsVisibleCommands(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, alice, "Alice")
	h.join(t, root, "Root")

	var playerHelp, adminHelp string
	h.rt.EXPECT().MessageToPlayer(gomock.Any(), alice, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ player.ID, msg string) error { playerHelp = msg; return nil })
	h.rt.EXPECT().MessageToPlayer(gomock.Any(), root, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ player.ID, msg string) error { adminHelp = msg; return nil })

	_, err := h.d.OnPlayerChatMessage(context.Background(), player.Ref{ID: alice, Name: "Alice"}, player.ChannelAll, "/help")
	require.NoError(t, err)
	_, err = h.d.OnPlayerChatMessage(context.Background(), player.Ref{ID: root, Name: "Root"}, player.ChannelAll, "/?")
	require.NoError(t, err)

	assert.Contains(t, playerHelp, "/stats (/kd)")
	assert.NotContains(t, playerHelp, "/start")
	assert.Contains(t, adminHelp, "/start")
}

func TestOnPlayerChatMessage_UnknownPlayer(t *testing.T) {
	h := newHarness(t, testOptions())

	allow, err := h.d.OnPlayerChatMessage(context.Background(), player.Ref{ID: bob, Name: "Bob"}, player.ChannelAll, "gg")
	assert.ErrorIs(t, err, session.ErrPlayerNotFound)
	assert.True(t, allow)
}

func TestOnPlayerChatMessage_FailingCommandStillConsumed(t *testing.T) {
	opts := testOptions()
	opts.Commands = []command.Command{{
		Name: "/boom",
		Handler: func(context.Context, command.Invocation) error {
			return errors.New("kaboom")
		},
	}}
	h := newHarness(t, opts)
	h.join(t, alice, "Alice")

	allow, err := h.d.OnPlayerChatMessage(context.Background(), player.Ref{ID: alice, Name: "Alice"}, player.ChannelAll, "/boom now")
	require.NoError(t, err)
	assert.False(t, allow)
}

func TestExtraCommandsRegisteredAfterBuiltins(t *testing.T) {
	var got command.Invocation
	opts := testOptions()
	opts.Commands = []command.Command{{
		Name:    "/rules",
		Aliases: []string{"/h"},
		Handler: func(_ context.Context, inv command.Invocation) error {
			got = inv
			return nil
		},
	}}
	h := newHarness(t, opts)
	h.join(t, alice, "Alice")

	allow, err := h.d.OnPlayerChatMessage(context.Background(), player.Ref{ID: alice, Name: "Alice"}, player.ChannelSquad, "/rules  no camping")
	require.NoError(t, err)
	assert.False(t, allow)
	assert.Equal(t, "no camping", got.RawArgs)
	assert.Equal(t, player.ChannelSquad, got.Channel)

	cmd, ok := h.d.Commands().Resolve("/h")
	require.True(t, ok)
	assert.Equal(t, "/help", cmd.Name, "built-in keeps the contested alias")
}

func TestCommandConflicts(t *testing.T) {
	assert.Empty(t, gameserver.CommandConflicts(nil))

	conflicts := gameserver.CommandConflicts([]command.Command{{Name: "/rules", Aliases: []string{"/KD"}}})
	require.Len(t, conflicts, 1)
	assert.Equal(t, "/stats", conflicts[0].Winner)
	assert.Equal(t, "/rules", conflicts[0].Shadowed)
}

func TestServerConnected_PushesProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	rt := mocks.NewMockRuntime(ctrl)
	d := gameserver.NewDispatcher(testOptions(), rt, zaptest.NewLogger(t))

	gomock.InOrder(
		rt.EXPECT().SetPlayerCollision(gomock.Any(), true).Return(nil),
		rt.EXPECT().ClearMapRotation(gomock.Any()).Return(nil),
		rt.EXPECT().AddMapToRotation(gomock.Any(), "Azagor").Return(nil),
		rt.EXPECT().ClearGamemodeRotation(gomock.Any()).Return(nil),
		rt.EXPECT().AddGamemodeToRotation(gomock.Any(), "TDM").Return(nil),
		rt.EXPECT().ForceStartGame(gomock.Any()).Return(nil),
	)

	_, err := d.Handle(context.Background(), gameserver.ServerConnected{Round: round.Snapshot{State: round.StateWaitingForPlayers}})
	require.NoError(t, err)
	assert.Equal(t, round.StatePlaying, d.Round().State())
}

func TestServerReconnected_ShortensCountdown(t *testing.T) {
	ctrl := gomock.NewController(t)
	rt := mocks.NewMockRuntime(ctrl)
	d := gameserver.NewDispatcher(testOptions(), rt, zaptest.NewLogger(t))

	rt.EXPECT().SetPlayerCollision(gomock.Any(), true).Return(nil)
	rt.EXPECT().ClearMapRotation(gomock.Any()).Return(nil)
	rt.EXPECT().AddMapToRotation(gomock.Any(), gomock.Any()).Return(nil)
	rt.EXPECT().ClearGamemodeRotation(gomock.Any()).Return(nil)
	rt.EXPECT().AddGamemodeToRotation(gomock.Any(), gomock.Any()).Return(nil)
	rt.EXPECT().SetRoundSecondsLeft(gomock.Any(), round.MinCountdown).Return(nil)

	_, err := d.Handle(context.Background(), gameserver.ServerReconnected{Round: round.Snapshot{State: round.StateCountingDown, SecondsLeft: 40}})
	require.NoError(t, err)
}

func TestNewDispatcher_ContinuesWithExistingPlayers(t *testing.T) {
	first := newHarness(t, testOptions())
	first.join(t, alice, "Alice")

	opts := testOptions()
	opts.Players = first.d.Players()
	second := newHarness(t, opts)
	assert.Same(t, first.d.Players(), second.d.Players())

	second.rt.EXPECT().MessageToPlayer(gomock.Any(), alice, "Kills: 0 | Deaths: 0").Return(nil)
	allow, err := second.d.OnPlayerChatMessage(context.Background(), player.Ref{ID: alice, Name: "Alice"}, player.ChannelAll, "/stats")
	require.NoError(t, err)
	assert.False(t, allow)
}

func TestHandle_TickAppliesModifiers(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, alice, "Alice")

	h.rt.EXPECT().SetPlayerCollision(gomock.Any(), true).Return(nil)
	h.rt.EXPECT().SetModifiers(gomock.Any(), alice, round.DefaultProfile().Modifiers).Return(nil)
	_, err := h.d.Handle(context.Background(), gameserver.Tick{})
	require.NoError(t, err)
}

func TestHandle_Outcomes(t *testing.T) {
	h := newHarness(t, testOptions())

	out, err := h.d.Handle(context.Background(), gameserver.PlayerJoining{ID: alice})
	require.NoError(t, err)
	require.NotNil(t, out.Stats)
	assert.Equal(t, 200, out.Stats.Progress.Rank)

	out, err = h.d.Handle(context.Background(), gameserver.PlayerSpawning{Player: player.Ref{ID: alice}})
	require.NoError(t, err)
	require.NotNil(t, out.Spawn)

	out, err = h.d.Handle(context.Background(), gameserver.ChatMessage{Player: player.Ref{ID: alice}, Text: "hi"})
	require.NoError(t, err)
	assert.True(t, out.AllowMessage)

	_, err = h.d.Handle(context.Background(), gameserver.RoundUpdated{Round: round.Snapshot{State: round.StateWaitingForPlayers}})
	require.NoError(t, err)
	assert.Equal(t, round.StateWaitingForPlayers, h.d.Round().State())

	_, err = h.d.Handle(context.Background(), gameserver.ServerDisconnected{})
	require.NoError(t, err)
}

type bogusEvent struct{}

func (bogusEvent) Category() gameserver.Category { return gameserver.CategoryServer }
func (bogusEvent) Name() string                  { return "bogus" }

func TestHandle_UnknownEvent(t *testing.T) {
	h := newHarness(t, testOptions())
	_, err := h.d.Handle(context.Background(), bogusEvent{})
	assert.Error(t, err)
}

func TestPropertyPlainChatNeverConsumed(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t, testOptions())
		h.d.OnPlayerJoining(context.Background(), alice, player.Stats{})

		text := rapid.StringMatching(`[a-zA-Z0-9][a-zA-Z0-9 /.,!?']{0,40}`).Draw(rt, "text")
		allow, err := h.d.OnPlayerChatMessage(context.Background(), player.Ref{ID: alice, Name: "Alice"}, player.ChannelAll, text)
		if err != nil {
			rt.Fatalf("chat: %v", err)
		}
		if !allow {
			rt.Fatalf("plain text %q was consumed", text)
		}
	})
}

func TestPropertyKillCountersMatchLog(t *testing.T) {
	ids := []player.ID{alice, bob, root}
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t, testOptions())
		h.rt.EXPECT().SayToChat(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		h.rt.EXPECT().Kill(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		h.rt.EXPECT().SetHealth(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		for _, id := range ids {
			h.d.OnPlayerJoining(context.Background(), id, player.Stats{})
		}

		kills := map[player.ID]int{}
		deaths := map[player.ID]int{}
		n := rapid.IntRange(0, 30).Draw(rt, "events")
		for i := 0; i < n; i++ {
			k := rapid.SampledFrom(ids).Draw(rt, "killer")
			v := rapid.SampledFrom(ids).Draw(rt, "victim")
			if err := h.d.OnPlayerDowned(context.Background(), player.Ref{ID: k}, player.Ref{ID: v}); err != nil {
				rt.Fatalf("downed: %v", err)
			}
			if k != v {
				kills[k]++
			}
			deaths[v]++
		}

		for _, id := range ids {
			p, err := h.d.Players().Get(id)
			if err != nil {
				rt.Fatalf("get: %v", err)
			}
			if p.Kills != kills[id] || p.Deaths != deaths[id] {
				rt.Fatalf("%s: got %d/%d want %d/%d", id, p.Kills, p.Deaths, kills[id], deaths[id])
			}
		}
	})
}

func TestHelpTextMentionsEveryVisibleName(t *testing.T) {
	h := newHarness(t, testOptions())
	h.join(t, alice, "Alice")

	var help string
	h.rt.EXPECT().MessageToPlayer(gomock.Any(), alice, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ player.ID, msg string) error { help = msg; return nil })
	_, err := h.d.OnPlayerChatMessage(context.Background(), player.Ref{ID: alice, Name: "Alice"}, player.ChannelAll, "/h")
	require.NoError(t, err)

	for _, cmd := range h.d.Commands().Visible(false) {
		assert.True(t, strings.Contains(help, cmd.Name), "help lacks %s", cmd.Name)
	}
}

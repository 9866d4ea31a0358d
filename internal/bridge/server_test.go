package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/cory-johannsen/arenactl/internal/game/player"
	"github.com/cory-johannsen/arenactl/internal/game/round"
	"github.com/cory-johannsen/arenactl/internal/gameserver"
)

const testToken = "s3cret"

func startTestServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testToken), bcrypt.MinCost)
	require.NoError(t, err)
	gate, err := gameserver.NewGatekeeper(string(hash), nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	if opts.Game.Profile.Maps == nil {
		opts.Game.Profile = round.DefaultProfile()
	}
	opts.Game.Progress = player.Progress{Rank: 200, Prestige: 10}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}

	srv := NewServer(opts, gate, zaptest.NewLogger(t))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, strings.Replace(ts.URL, "http", "ws", 1) + "/gameserver"
}

func dial(ctx context.Context, url, token, port string) (*websocket.Conn, *http.Response, error) {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	if port != "" {
		h.Set(HeaderGamePort, port)
	}
	return websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: h})
}

func send(t *testing.T, ctx context.Context, ws *websocket.Conn, id, typ string, data any) {
	t.Helper()
	env, err := newEnvelope(id, typ, data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, ws, env))
}

// readUntil reads frames until stop matches one, returning every frame read.
func readUntil(t *testing.T, ctx context.Context, ws *websocket.Conn, stop func(Envelope) bool) []Envelope {
	t.Helper()
	var got []Envelope
	for {
		var env Envelope
		require.NoError(t, wsjson.Read(ctx, ws, &env))
		got = append(got, env)
		if stop(env) {
			return got
		}
	}
}

func types(envs []Envelope) []string {
	out := make([]string, 0, len(envs))
	for _, e := range envs {
		out = append(out, e.Type)
	}
	return out
}

func isReply(id string) func(Envelope) bool {
	return func(e Envelope) bool { return e.Type == TypeReply && e.ID == id }
}

func connect(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := dial(ctx, url, testToken, "29294")
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close(websocket.StatusNormalClosure, "done") })

	send(t, ctx, ws, "", TypeHello, RoundData{Round: round.Snapshot{State: round.StateWaitingForPlayers}})
	setup := readUntil(t, ctx, ws, func(e Envelope) bool { return e.Type == TypeForceStartGame })
	assert.Equal(t, []string{
		TypeSetPlayerCollision,
		TypeClearMapRotation,
		TypeAddMapToRotation,
		TypeClearGamemodeRotation,
		TypeAddGamemodeToRotation,
		TypeForceStartGame,
	}, types(setup))
	return ws
}

func TestServer_SessionRoundTrip(t *testing.T) {
	_, url := startTestServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws := connect(t, ctx, url)

	alice := player.Ref{ID: 76561198000000001, Name: "Alice"}

	send(t, ctx, ws, "j1", TypePlayerJoining, JoiningData{ID: alice.ID, Stats: player.Stats{Progress: player.Progress{Rank: 1}}})
	frames := readUntil(t, ctx, ws, isReply("j1"))
	var joined ReplyData
	require.NoError(t, json.Unmarshal(frames[len(frames)-1].Data, &joined))
	require.NotNil(t, joined.Stats)
	assert.Equal(t, 200, joined.Stats.Progress.Rank)

	send(t, ctx, ws, "", TypePlayerConnected, PlayerData{Player: alice})
	frames = readUntil(t, ctx, ws, func(e Envelope) bool { return e.Type == TypeSayToChat })
	var say MessageData
	require.NoError(t, json.Unmarshal(frames[len(frames)-1].Data, &say))
	assert.Equal(t, "<color=green>Alice joined the game!</color>", say.Message)

	send(t, ctx, ws, "c1", TypeChatMessage, ChatData{Player: alice, Channel: player.ChannelAll, Text: "/stats"})
	frames = readUntil(t, ctx, ws, isReply("c1"))
	require.Equal(t, []string{TypeMessageToPlayer, TypeReply}, types(frames))
	var tell PlayerMessageData
	require.NoError(t, json.Unmarshal(frames[0].Data, &tell))
	assert.Equal(t, alice.ID, tell.ID)
	assert.Equal(t, "Kills: 0 | Deaths: 0", tell.Message)
	var chat ReplyData
	require.NoError(t, json.Unmarshal(frames[1].Data, &chat))
	require.NotNil(t, chat.Allow)
	assert.False(t, *chat.Allow)

	send(t, ctx, ws, "c2", TypeChatMessage, ChatData{Player: alice, Text: "gg"})
	frames = readUntil(t, ctx, ws, isReply("c2"))
	require.NoError(t, json.Unmarshal(frames[len(frames)-1].Data, &chat))
	assert.True(t, *chat.Allow)
}

func TestServer_UnknownPlayerReplyCarriesError(t *testing.T) {
	_, url := startTestServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws := connect(t, ctx, url)

	send(t, ctx, ws, "s1", TypePlayerSpawning, SpawningData{Player: player.Ref{ID: 7, Name: "Ghost"}})
	frames := readUntil(t, ctx, ws, isReply("s1"))
	var reply ReplyData
	require.NoError(t, json.Unmarshal(frames[len(frames)-1].Data, &reply))
	assert.Contains(t, reply.Error, "player not found")
	require.NotNil(t, reply.Spawn)
}

func TestServer_BadFrameRejected(t *testing.T) {
	_, url := startTestServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws := connect(t, ctx, url)

	send(t, ctx, ws, "x1", "teleport", nil)
	frames := readUntil(t, ctx, ws, func(e Envelope) bool { return e.Type == TypeError })
	var e ErrorData
	require.NoError(t, json.Unmarshal(frames[len(frames)-1].Data, &e))
	assert.Equal(t, "bad_frame", e.Code)
	assert.Equal(t, "x1", frames[len(frames)-1].ID)
}

func TestServer_RejectsBadToken(t *testing.T) {
	_, url := startTestServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := dial(ctx, url, "wrong", "29294")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_RejectsMissingPort(t *testing.T) {
	_, url := startTestServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := dial(ctx, url, testToken, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_RejectsDisallowedAddress(t *testing.T) {
	gate, err := gameserver.NewGatekeeper("", []string{"10.0.0.0/8"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	srv := NewServer(Options{Game: gameserver.Options{Profile: round.DefaultProfile()}}, gate, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/gameserver", nil)
	req.RemoteAddr = "127.0.0.1:50000"
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_RequiresHello(t *testing.T) {
	_, url := startTestServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws, _, err := dial(ctx, url, testToken, "29294")
	require.NoError(t, err)
	defer ws.Close(websocket.StatusNormalClosure, "done")

	send(t, ctx, ws, "", TypeTick, nil)
	var env Envelope
	err = wsjson.Read(ctx, ws, &env)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestServer_ActiveSessions(t *testing.T) {
	srv, url := startTestServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws := connect(t, ctx, url)
	assert.Equal(t, 1, srv.Active())

	ws.Close(websocket.StatusNormalClosure, "bye")
	assert.Eventually(t, func() bool { return srv.Active() == 0 }, 2*time.Second, 10*time.Millisecond)

	// A second connection from the same server is a reconnect and is set up again.
	connect(t, ctx, url)
	assert.Equal(t, 1, srv.Active())
}

func TestServer_ReconnectKeepsPlayers(t *testing.T) {
	srv, url := startTestServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := player.Ref{ID: 76561198000000001, Name: "Alice"}
	ws := connect(t, ctx, url)
	send(t, ctx, ws, "j1", TypePlayerJoining, JoiningData{ID: alice.ID})
	readUntil(t, ctx, ws, isReply("j1"))
	ws.Close(websocket.StatusGoingAway, "restarting")
	require.Eventually(t, func() bool { return srv.Active() == 0 }, 2*time.Second, 10*time.Millisecond)

	ws = connect(t, ctx, url)
	send(t, ctx, ws, "c1", TypeChatMessage, ChatData{Player: alice, Text: "/stats"})
	frames := readUntil(t, ctx, ws, isReply("c1"))
	require.Equal(t, []string{TypeMessageToPlayer, TypeReply}, types(frames))

	var reply ReplyData
	require.NoError(t, json.Unmarshal(frames[1].Data, &reply))
	assert.Empty(t, reply.Error)
	require.NotNil(t, reply.Allow)
	assert.False(t, *reply.Allow)
}

func TestServer_ShutdownHandlesDisconnect(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	gate, err := gameserver.NewGatekeeper("", nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	srv := NewServer(Options{
		ReadTimeout: 5 * time.Second,
		Game:        gameserver.Options{Profile: round.DefaultProfile()},
	}, gate, zap.New(core))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws := connect(t, ctx, strings.Replace(ts.URL, "http", "ws", 1)+"/gameserver")
	go func() {
		// Drain so the close handshake completes.
		for {
			var env Envelope
			if wsjson.Read(ctx, ws, &env) != nil {
				return
			}
		}
	}()

	start := time.Now()
	require.NoError(t, srv.Shutdown(ctx))
	assert.Less(t, time.Since(start), disconnectTimeout)
	assert.Equal(t, 1, logs.FilterMessage("game server disconnected").Len())
}

func TestServer_LuaCommands(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.lua"), []byte(`
		engine.command("rules", {help = "Server rules"}, function(p)
			engine.tell(p.id, "No spawn camping")
		end)
	`), 0o644))

	_, url := startTestServer(t, Options{ScriptDir: dir})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws := connect(t, ctx, url)

	alice := player.Ref{ID: 76561198000000001, Name: "Alice"}
	send(t, ctx, ws, "j1", TypePlayerJoining, JoiningData{ID: alice.ID})
	readUntil(t, ctx, ws, isReply("j1"))

	send(t, ctx, ws, "c1", TypeChatMessage, ChatData{Player: alice, Text: "/rules"})
	frames := readUntil(t, ctx, ws, isReply("c1"))
	require.Equal(t, []string{TypeMessageToPlayer, TypeReply}, types(frames))
	var tell PlayerMessageData
	require.NoError(t, json.Unmarshal(frames[0].Data, &tell))
	assert.Equal(t, alice.ID, tell.ID)
	assert.Equal(t, "No spawn camping", tell.Message)
}

func TestHealthz(t *testing.T) {
	srv := NewServer(Options{}, nil, zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

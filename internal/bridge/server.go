package bridge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arenactl/internal/game/command"
	"github.com/cory-johannsen/arenactl/internal/game/session"
	"github.com/cory-johannsen/arenactl/internal/gameserver"
	"github.com/cory-johannsen/arenactl/internal/scripting"
)

// HeaderGamePort carries the game server's public game port.
const HeaderGamePort = "X-Game-Port"

// disconnectTimeout bounds handling of the disconnect event after the
// socket is gone.
const disconnectTimeout = 2 * time.Second

// Options configures a Server.
type Options struct {
	// Path is the websocket endpoint.
	Path string
	// ReadTimeout bounds the wait for each inbound frame, hello included.
	// Zero disables it.
	ReadTimeout time.Duration
	// WriteTimeout bounds each outbound frame. Zero disables it.
	WriteTimeout time.Duration
	// SendBuffer is the outbound queue length per connection.
	SendBuffer int
	// QueueSize is the per-category event buffer per connection.
	QueueSize int
	// Game configures every connection's dispatcher.
	Game gameserver.Options
	// ScriptDir, when set, holds the Lua chat commands loaded for every
	// connection.
	ScriptDir string
	// ScriptInstructionLimit bounds every Lua execution.
	ScriptInstructionLimit int
}

// Server accepts game-server websocket connections.
type Server struct {
	opts   Options
	gate   *gameserver.Gatekeeper
	logger *zap.Logger

	mu      sync.Mutex
	players map[netip.AddrPort]*session.Manager // kept across reconnects
	active  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a Server.
//
// Precondition: gate and logger must be non-nil; opts.Game.Profile must be valid.
func NewServer(opts Options, gate *gameserver.Gatekeeper, logger *zap.Logger) *Server {
	if opts.Path == "" {
		opts.Path = "/gameserver"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:    opts,
		gate:    gate,
		logger:  logger,
		players: make(map[netip.AddrPort]*session.Manager),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Handler returns the HTTP routes: the websocket endpoint and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.opts.Path, s)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
	return mux
}

// Active returns the number of open game-server sessions.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Shutdown ends every session and waits for them to finish or for ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP authenticates the game server, upgrades the connection and
// serves the session until the socket closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	remote, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		http.Error(w, "bad remote address", http.StatusBadRequest)
		return
	}
	addr := remote.Addr().Unmap()
	if !s.gate.OnServerConnecting(addr) {
		http.Error(w, "address not allowed", http.StatusForbidden)
		return
	}

	port, err := strconv.ParseUint(r.Header.Get(HeaderGamePort), 10, 16)
	if err != nil {
		http.Error(w, "missing or invalid "+HeaderGamePort, http.StatusBadRequest)
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !s.gate.OnValidateServerToken(addr, uint16(port), token) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	key := netip.AddrPortFrom(addr, uint16(port))
	s.mu.Lock()
	players, reconnect := s.players[key]
	if !reconnect {
		players = session.NewManager()
		s.players[key] = players
	}
	s.active++
	s.mu.Unlock()
	s.wg.Add(1)
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
		s.wg.Done()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	s.serve(ctx, ws, key, players, reconnect)
}

func (s *Server) serve(ctx context.Context, ws *websocket.Conn, key netip.AddrPort, players *session.Manager, reconnect bool) {
	logger := s.logger.With(zap.Stringer("server", key))
	defer ws.Close(websocket.StatusInternalError, "internal error")

	hello, err := s.readHello(ctx, ws)
	if err != nil {
		logger.Warn("game server handshake failed", zap.Error(err))
		ws.Close(websocket.StatusPolicyViolation, "expected hello")
		return
	}

	out := NewConn(s.opts.SendBuffer)
	game := s.opts.Game
	game.Players = players
	if s.opts.ScriptDir != "" {
		scripts := scripting.NewManager(out, scripting.Options{
			Prefix:           game.Prefix,
			InstructionLimit: s.opts.ScriptInstructionLimit,
		}, logger)
		defer scripts.Close()
		if err := scripts.LoadDir(s.opts.ScriptDir); err != nil {
			logger.Warn("chat scripts not loaded", zap.Error(err))
		}
		game.Commands = append(append([]command.Command(nil), game.Commands...), scripts.Commands()...)
	}

	d := gameserver.NewDispatcher(game, out, logger)
	loop := gameserver.NewLoop(d, s.opts.QueueSize, logger)
	// Workers outlive the session ctx so the disconnect event is handled;
	// loop.Stop ends them.
	loop.Start(context.WithoutCancel(ctx))

	ioCtx, ioCancel := context.WithCancel(ctx)
	defer ioCancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.writeLoop(ioCtx, ws, out, logger)
	}()

	var first gameserver.Event = gameserver.ServerConnected{Round: hello.Round}
	if reconnect {
		first = gameserver.ServerReconnected{Round: hello.Round}
	}
	if _, err := loop.Enqueue(ioCtx, first); err != nil {
		logger.Error("enqueueing connect event", zap.Error(err))
	}

	go func() {
		errCh <- s.readLoop(ioCtx, ws, loop, out, logger)
	}()

	err = <-errCh
	ioCancel()
	<-errCh

	dctx, dcancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
	if _, derr := loop.Submit(dctx, gameserver.ServerDisconnected{}); derr != nil {
		logger.Warn("handling disconnect", zap.Error(derr))
	}
	dcancel()
	loop.Stop()
	out.Close()

	status, reason := closeStatus(err)
	if status != websocket.StatusNormalClosure {
		logger.Warn("game server connection closed with error", zap.Error(err))
	}
	ws.Close(status, reason)
}

func (s *Server) readHello(ctx context.Context, ws *websocket.Conn) (RoundData, error) {
	ctx, cancel := s.withTimeout(ctx, s.opts.ReadTimeout)
	defer cancel()

	var env Envelope
	if err := wsjson.Read(ctx, ws, &env); err != nil {
		return RoundData{}, err
	}
	if env.Type != TypeHello {
		return RoundData{}, errors.New("first frame must be " + TypeHello + ", got " + strconv.Quote(env.Type))
	}
	var hello RoundData
	if err := decodeData(env, &hello); err != nil {
		return RoundData{}, err
	}
	return hello, nil
}

func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, loop *gameserver.Loop, out *Conn, logger *zap.Logger) error {
	for {
		var env Envelope
		rctx, cancel := s.withTimeout(ctx, s.opts.ReadTimeout)
		err := wsjson.Read(rctx, ws, &env)
		cancel()
		if err != nil {
			return err
		}

		ev, err := decodeEvent(env)
		if err != nil {
			logger.Warn("rejecting frame", zap.String("type", env.Type), zap.Error(err))
			if reject, eerr := newEnvelope(env.ID, TypeError, ErrorData{Code: "bad_frame", Msg: err.Error()}); eerr == nil {
				_ = out.push(reject)
			}
			continue
		}

		if _, ok := ev.(gameserver.Tick); ok {
			if err := loop.Post(ev); err != nil {
				logger.Debug("tick dropped", zap.Error(err))
			}
			continue
		}

		reply, err := loop.Enqueue(ctx, ev)
		if err != nil {
			return err
		}
		if isRequest(env.Type) {
			go answer(ctx, out, env.ID, ev, reply, logger)
		}
	}
}

// answer sends the reply to a request once its outcome is known.
func answer(ctx context.Context, out *Conn, id string, ev gameserver.Event, reply <-chan gameserver.Result, logger *zap.Logger) {
	select {
	case res := <-reply:
		env, err := encodeReply(id, ev, res)
		if err == nil {
			err = out.push(env)
		}
		if err != nil {
			logger.Warn("reply not sent", zap.String("event", ev.Name()), zap.Error(err))
		}
	case <-ctx.Done():
	}
}

func (s *Server) writeLoop(ctx context.Context, ws *websocket.Conn, out *Conn, logger *zap.Logger) error {
	for {
		select {
		case env, ok := <-out.Outbound():
			if !ok {
				return nil
			}
			wctx, cancel := s.withTimeout(ctx, s.opts.WriteTimeout)
			err := wsjson.Write(wctx, ws, env)
			cancel()
			if err != nil {
				logger.Error("writing frame", zap.String("type", env.Type), zap.Error(err))
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Server) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// closeStatus maps the error that ended a session onto a close frame.
func closeStatus(err error) (websocket.StatusCode, string) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return websocket.StatusNormalClosure, "closing"
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return websocket.StatusNormalClosure, "closing"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return websocket.StatusPolicyViolation, "read timeout"
	}
	return websocket.StatusInternalError, err.Error()
}

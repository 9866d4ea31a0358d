package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arenactl/internal/bridge"
	"github.com/cory-johannsen/arenactl/internal/config"
	"github.com/cory-johannsen/arenactl/internal/game/round"
	"github.com/cory-johannsen/arenactl/internal/gameserver"
	"github.com/cory-johannsen/arenactl/internal/observability"
	"github.com/cory-johannsen/arenactl/internal/scripting"
	"github.com/cory-johannsen/arenactl/internal/server"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game-server bridge listener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "configs/arenactl.yaml", "path to configuration file")
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	start := time.Now()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "arenactl")
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	srv, err := buildServer(cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}

	lc := server.NewLifecycle(logger)
	lc.Add("bridge", &server.HTTPService{
		Addr:       cfg.Listener.Addr(),
		Handler:    srv.Handler(),
		OnShutdown: srv.Shutdown,
	})

	logger.Info("arenactl ready",
		zap.String("addr", cfg.Listener.Addr()),
		zap.String("path", cfg.Listener.Path),
		zap.String("version", version),
		zap.Duration("startup", time.Since(start)),
	)
	return lc.Run(ctx)
}

// buildServer loads the match profile, checks the chat commands and builds
// the bridge server described by cfg.
func buildServer(cfg config.Config, logger *zap.Logger) (*bridge.Server, error) {
	profile := round.DefaultProfile()
	if cfg.Match.Profile != "" {
		p, err := round.LoadProfile(cfg.Match.Profile)
		if err != nil {
			return nil, fmt.Errorf("loading match profile: %w", err)
		}
		profile = p
	}
	logger.Info("match profile loaded",
		zap.Strings("maps", profile.Maps),
		zap.Strings("gamemodes", profile.Gamemodes),
	)

	if err := checkCommands(cfg.Commands, logger); err != nil {
		return nil, err
	}

	gate, err := gameserver.NewGatekeeper(cfg.Listener.TokenHash, cfg.Listener.AllowedNetworks, logger)
	if err != nil {
		return nil, fmt.Errorf("configuring gatekeeper: %w", err)
	}
	if cfg.Listener.TokenHash == "" {
		logger.Warn("listener.token_hash is empty, any game server token is accepted")
	}

	return bridge.NewServer(bridge.Options{
		Path:         cfg.Listener.Path,
		ReadTimeout:  cfg.Listener.ReadTimeout,
		WriteTimeout: cfg.Listener.WriteTimeout,
		SendBuffer:   cfg.Listener.SendBuffer,
		QueueSize:    cfg.Events.QueueSize,
		Game: gameserver.Options{
			Profile:          profile,
			Progress:         cfg.Match.Progress(),
			PrivilegedIDs:    cfg.Match.Privileged(),
			Prefix:           cfg.Commands.Prefix,
			BroadcastTimeout: cfg.Match.BroadcastTimeout,
		},
		ScriptDir:              cfg.Commands.ScriptDir,
		ScriptInstructionLimit: cfg.Commands.ScriptInstructionLimit,
	}, gate, logger), nil
}

// checkCommands loads the chat scripts once and reports name and alias
// collisions with the built-in commands. With strict aliases any collision
// fails startup.
func checkCommands(cfg config.CommandsConfig, logger *zap.Logger) error {
	if cfg.ScriptDir == "" {
		return nil
	}
	probe := scripting.NewManager(nil, scripting.Options{
		Prefix:           cfg.Prefix,
		InstructionLimit: cfg.ScriptInstructionLimit,
	}, logger)
	defer probe.Close()

	if err := probe.LoadDir(cfg.ScriptDir); err != nil {
		return fmt.Errorf("loading chat scripts: %w", err)
	}

	conflicts := gameserver.CommandConflicts(probe.Commands())
	for _, c := range conflicts {
		logger.Warn("chat command shadowed",
			zap.String("key", c.Key),
			zap.String("winner", c.Winner),
			zap.String("shadowed", c.Shadowed),
		)
	}
	if cfg.StrictAliases && len(conflicts) > 0 {
		return fmt.Errorf("%d chat command conflicts with strict_aliases enabled; first: %s", len(conflicts), conflicts[0])
	}
	return nil
}

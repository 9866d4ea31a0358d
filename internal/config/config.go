// Package config provides Viper-based configuration loading for arenactl.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/arenactl/internal/game/player"
)

// EnvPrefix prefixes every environment override, e.g. ARENA_LISTENER_PORT.
const EnvPrefix = "ARENA"

// ListenerConfig holds the game-server websocket listener settings.
type ListenerConfig struct {
	// Host is the bind address.
	Host string `mapstructure:"host"`
	// Port is the TCP port.
	Port int `mapstructure:"port"`
	// Path is the websocket endpoint path.
	Path string `mapstructure:"path"`
	// TokenHash is the bcrypt hash of the game-server API token. Empty
	// accepts any token.
	TokenHash string `mapstructure:"token_hash"`
	// AllowedNetworks lists the CIDR prefixes or addresses game servers may
	// connect from. Empty allows any address.
	AllowedNetworks []string `mapstructure:"allowed_networks"`
	// ReadTimeout bounds the wait for each inbound frame.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds each outbound frame.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// SendBuffer is the outbound command queue length per connection.
	SendBuffer int `mapstructure:"send_buffer"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (l ListenerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// MatchConfig holds the match rules applied to every game server.
type MatchConfig struct {
	// Profile is the path of a match profile YAML file. Empty selects the
	// built-in profile.
	Profile string `mapstructure:"profile"`
	// PrivilegedIDs are the player ids granted admin.
	PrivilegedIDs []uint64 `mapstructure:"privileged_ids"`
	// Rank and Prestige replace every joining player's progression.
	Rank     int `mapstructure:"rank"`
	Prestige int `mapstructure:"prestige"`
	// BroadcastTimeout bounds each outbound call made while handling an event.
	BroadcastTimeout time.Duration `mapstructure:"broadcast_timeout"`
}

// Progress returns the configured progression override.
func (m MatchConfig) Progress() player.Progress {
	return player.Progress{Rank: m.Rank, Prestige: m.Prestige}
}

// Privileged returns PrivilegedIDs as player ids.
func (m MatchConfig) Privileged() []player.ID {
	out := make([]player.ID, 0, len(m.PrivilegedIDs))
	for _, id := range m.PrivilegedIDs {
		out = append(out, player.ID(id))
	}
	return out
}

// CommandsConfig holds chat command settings.
type CommandsConfig struct {
	// Prefix marks chat text as a command.
	Prefix string `mapstructure:"prefix"`
	// StrictAliases fails startup when command names or aliases collide.
	StrictAliases bool `mapstructure:"strict_aliases"`
	// ScriptDir holds Lua chat command scripts. Empty disables scripting.
	ScriptDir string `mapstructure:"script_dir"`
	// ScriptInstructionLimit bounds every Lua execution, in opcodes.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// EventsConfig holds event loop settings.
type EventsConfig struct {
	// QueueSize is the per-category event buffer.
	QueueSize int `mapstructure:"queue_size"`
}

// Config is the top-level application configuration.
type Config struct {
	Listener ListenerConfig `mapstructure:"listener"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Match    MatchConfig    `mapstructure:"match"`
	Commands CommandsConfig `mapstructure:"commands"`
	Events   EventsConfig   `mapstructure:"events"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []error

	for _, err := range []error{
		validateListener(c.Listener),
		validateLogging(c.Logging),
		validateMatch(c.Match),
		validateCommands(c.Commands),
	} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if c.Events.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("events.queue_size must be >= 1, got %d", c.Events.QueueSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return nil
}

func validateListener(l ListenerConfig) error {
	var errs []string
	if l.Port < 1 || l.Port > 65535 {
		errs = append(errs, fmt.Sprintf("listener.port must be 1-65535, got %d", l.Port))
	}
	if !strings.HasPrefix(l.Path, "/") {
		errs = append(errs, fmt.Sprintf("listener.path must start with /, got %q", l.Path))
	}
	for _, n := range l.AllowedNetworks {
		if _, err := netip.ParsePrefix(n); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(n); err != nil {
			errs = append(errs, fmt.Sprintf("listener.allowed_networks entry %q is not a CIDR prefix or address", n))
		}
	}
	if l.ReadTimeout < 0 {
		errs = append(errs, "listener.read_timeout must not be negative")
	}
	if l.WriteTimeout < 0 {
		errs = append(errs, "listener.write_timeout must not be negative")
	}
	if l.SendBuffer < 1 {
		errs = append(errs, fmt.Sprintf("listener.send_buffer must be >= 1, got %d", l.SendBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateMatch(m MatchConfig) error {
	var errs []string
	if m.Rank < 0 {
		errs = append(errs, fmt.Sprintf("match.rank must be >= 0, got %d", m.Rank))
	}
	if m.Prestige < 0 {
		errs = append(errs, fmt.Sprintf("match.prestige must be >= 0, got %d", m.Prestige))
	}
	if m.BroadcastTimeout <= 0 {
		errs = append(errs, "match.broadcast_timeout must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCommands(c CommandsConfig) error {
	var errs []string
	if strings.TrimSpace(c.Prefix) == "" || strings.ContainsFunc(c.Prefix, isSpace) {
		errs = append(errs, fmt.Sprintf("commands.prefix must be non-empty without whitespace, got %q", c.Prefix))
	}
	if c.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("commands.script_instruction_limit must be >= 0, got %d", c.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and ARENA_ environment
// overrides, without a config file.
//
// Postcondition: Returns a non-nil Viper.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listener.host", "0.0.0.0")
	v.SetDefault("listener.port", 29294)
	v.SetDefault("listener.path", "/gameserver")
	v.SetDefault("listener.token_hash", "")
	v.SetDefault("listener.allowed_networks", []string{})
	v.SetDefault("listener.read_timeout", "60s")
	v.SetDefault("listener.write_timeout", "10s")
	v.SetDefault("listener.send_buffer", 256)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("match.profile", "")
	v.SetDefault("match.privileged_ids", []uint64{})
	v.SetDefault("match.rank", 200)
	v.SetDefault("match.prestige", 10)
	v.SetDefault("match.broadcast_timeout", "2s")

	v.SetDefault("commands.prefix", "/")
	v.SetDefault("commands.strict_aliases", false)
	v.SetDefault("commands.script_dir", "")
	v.SetDefault("commands.script_instruction_limit", 100000)

	v.SetDefault("events.queue_size", 64)
}

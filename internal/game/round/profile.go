package round

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/arenactl/internal/game/player"
)

// Profile is the match configuration applied on every (re)connect.
type Profile struct {
	Maps            []string         `yaml:"maps"`
	Gamemodes       []string         `yaml:"gamemodes"`
	PlayerCollision bool             `yaml:"player_collision"`
	Modifiers       player.Modifiers `yaml:"modifiers"`
}

// yamlProfileFile is the top-level YAML structure for profile files.
type yamlProfileFile struct {
	Profile Profile `yaml:"profile"`
}

// DefaultProfile returns the built-in match profile: one map, team
// deathmatch, collision on and the arcade modifier set.
func DefaultProfile() Profile {
	return Profile{
		Maps:            []string{"Azagor"},
		Gamemodes:       []string{"TDM"},
		PlayerCollision: true,
		Modifiers: player.Modifiers{
			JumpHeight:   1.5,
			RunningSpeed: 1.25,
			FallDamage:   0,
			ReloadSpeed:  1.25,
			CanSpectate:  false,
			RespawnTime:  1,
		},
	}
}

// Validate checks the profile invariants.
//
// Postcondition: Returns nil if both rotations are non-empty and every
// modifier is non-negative.
func (p Profile) Validate() error {
	var errs []error
	if err := validateRotation("maps", p.Maps); err != nil {
		errs = append(errs, err)
	}
	if err := validateRotation("gamemodes", p.Gamemodes); err != nil {
		errs = append(errs, err)
	}
	m := p.Modifiers
	if m.JumpHeight < 0 || m.RunningSpeed < 0 || m.FallDamage < 0 || m.ReloadSpeed < 0 {
		errs = append(errs, errors.New("modifier multipliers must not be negative"))
	}
	if m.RespawnTime < 0 {
		errs = append(errs, fmt.Errorf("modifiers.respawn_time must be >= 0, got %d", m.RespawnTime))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid profile: %w", errors.Join(errs...))
	}
	return nil
}

func validateRotation(name string, entries []string) error {
	if len(entries) == 0 {
		return fmt.Errorf("%s: %w", name, ErrEmptyRotation)
	}
	for i, e := range entries {
		if strings.TrimSpace(e) == "" {
			return fmt.Errorf("%s[%d] must not be blank", name, i)
		}
	}
	return nil
}

// LoadProfile reads and validates a profile YAML file.
//
// Precondition: path must point to a readable YAML file.
// Postcondition: Returns a validated Profile or a non-nil error.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile %s: %w", path, err)
	}
	return LoadProfileFromBytes(data)
}

// LoadProfileFromBytes parses a profile, filling omitted fields from
// DefaultProfile.
//
// Postcondition: Returns a validated Profile or a non-nil error.
func LoadProfileFromBytes(data []byte) (Profile, error) {
	file := yamlProfileFile{Profile: DefaultProfile()}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Profile{}, fmt.Errorf("parsing profile YAML: %w", err)
	}
	if err := file.Profile.Validate(); err != nil {
		return Profile{}, err
	}
	return file.Profile, nil
}

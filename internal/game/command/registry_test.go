package command

import (
	"slices"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testCommands() []Command {
	return []Command{
		{Name: "/help", Aliases: []string{"/h", "/?"}, Help: "List commands"},
		{Name: "/stats", Aliases: []string{"/kd"}, Help: "Show kills and deaths"},
		{Name: "/kill", Aliases: []string{"/suicide"}, Help: "Eliminate yourself"},
		{Name: "/start", Help: "Force the round to start", AdminOnly: true},
	}
}

func TestResolve_CanonicalName(t *testing.T) {
	r := NewRegistry(testCommands()...)

	cmd, ok := r.Resolve("/stats")
	require.True(t, ok)
	assert.Equal(t, "/stats", cmd.Name)
}

func TestResolve_Alias(t *testing.T) {
	r := NewRegistry(testCommands()...)

	cmd, ok := r.Resolve("/kd")
	require.True(t, ok)
	assert.Equal(t, "/stats", cmd.Name)
}

func TestResolve_CaseInsensitive(t *testing.T) {
	r := NewRegistry(testCommands()...)

	for _, in := range []string{"/STATS", "/Stats", "/KD", "/sTaRt", "/SUICIDE"} {
		_, ok := r.Resolve(in)
		assert.True(t, ok, "input %q not resolved", in)
	}
}

func TestResolve_NotFound(t *testing.T) {
	r := NewRegistry(testCommands()...)

	_, ok := r.Resolve("/teleport")
	assert.False(t, ok)
	_, ok = r.Resolve("stats")
	assert.False(t, ok, "prefix is part of the name")
	_, ok = r.Resolve("/stat")
	assert.False(t, ok, "no prefix matching")
}

func TestCommands_RegistrationOrder(t *testing.T) {
	r := NewRegistry(testCommands()...)

	cmds := r.Commands()
	require.Len(t, cmds, 4)
	assert.Equal(t, "/help", cmds[0].Name)
	assert.Equal(t, "/start", cmds[3].Name)
}

func TestVisible_HidesAdminOnlyFromPlayers(t *testing.T) {
	r := NewRegistry(testCommands()...)

	assert.Len(t, r.Visible(false), 3)
	assert.Len(t, r.Visible(true), 4)
}

func TestNewRegistry_DuplicateNameFirstWins(t *testing.T) {
	r := NewRegistry(
		Command{Name: "/test", Help: "first"},
		Command{Name: "/TEST", Help: "second"},
	)

	cmd, ok := r.Resolve("/test")
	require.True(t, ok)
	assert.Equal(t, "first", cmd.Help)

	conflicts := r.Conflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, "/test", conflicts[0].Winner)
	assert.Equal(t, "/TEST", conflicts[0].Shadowed)
	assert.Error(t, r.Validate())
}

func TestNewRegistry_DuplicateAliasFirstWins(t *testing.T) {
	r := NewRegistry(
		Command{Name: "/test1", Aliases: []string{"/t"}},
		Command{Name: "/test2", Aliases: []string{"/t"}},
	)

	cmd, ok := r.Resolve("/t")
	require.True(t, ok)
	assert.Equal(t, "/test1", cmd.Name)

	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shadowing \"/test2\"")
}

func TestNewRegistry_EarlierAliasBeatsLaterName(t *testing.T) {
	r := NewRegistry(
		Command{Name: "/stats", Aliases: []string{"/s"}},
		Command{Name: "/s", Aliases: []string{"/short"}},
	)

	cmd, ok := r.Resolve("/s")
	require.True(t, ok)
	assert.Equal(t, "/stats", cmd.Name, "the first registrant keeps the string")

	cmd, ok = r.Resolve("/short")
	require.True(t, ok)
	assert.Equal(t, "/s", cmd.Name)

	require.Len(t, r.Conflicts(), 1)
	assert.Equal(t, Conflict{Key: "/s", Winner: "/stats", Shadowed: "/s"}, r.Conflicts()[0])
}

func TestPropertyFirstRegistrantWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pool := []string{"/a", "/b", "/c", "/d"}
		n := rapid.IntRange(1, 5).Draw(t, "n")
		cmds := make([]Command, n)
		for i := range cmds {
			cmds[i] = Command{
				Name:    rapid.SampledFrom(pool).Draw(t, "name"),
				Aliases: rapid.SliceOfN(rapid.SampledFrom(pool), 0, 2).Draw(t, "aliases"),
			}
		}
		r := NewRegistry(cmds...)

		for _, key := range pool {
			first := -1
			for i, c := range cmds {
				if c.Name == key || slices.Contains(c.Aliases, key) {
					first = i
					break
				}
			}
			cmd, ok := r.Resolve(key)
			if first < 0 {
				if ok {
					t.Fatalf("%s resolved to %s but no command claims it", key, cmd.Name)
				}
				continue
			}
			if !ok || cmd != r.Commands()[first] {
				t.Fatalf("%s: want command #%d", key, first)
			}
		}
	})
}

func TestNewRegistry_SelfAliasIsNotAConflict(t *testing.T) {
	r := NewRegistry(Command{Name: "/stats", Aliases: []string{"/STATS"}})
	assert.NoError(t, r.Validate())
}

func TestValidate_NoConflicts(t *testing.T) {
	r := NewRegistry(testCommands()...)
	assert.NoError(t, r.Validate())
	assert.Empty(t, r.Conflicts())
}

func randomCase(t *rapid.T, s string) string {
	var b strings.Builder
	for i, c := range s {
		if rapid.Bool().Draw(t, "upper_"+string(rune('a'+i%26))) {
			b.WriteRune(unicode.ToUpper(c))
		} else {
			b.WriteRune(unicode.ToLower(c))
		}
	}
	return b.String()
}

func TestPropertyAnyCasingResolvesToCommand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry(testCommands()...)
		cmds := r.Commands()
		cmd := cmds[rapid.IntRange(0, len(cmds)-1).Draw(t, "cmd_idx")]

		keys := append([]string{cmd.Name}, cmd.Aliases...)
		key := keys[rapid.IntRange(0, len(keys)-1).Draw(t, "key_idx")]
		input := randomCase(t, key)

		resolved, ok := r.Resolve(input)
		if !ok {
			t.Fatalf("%q did not resolve", input)
		}
		if resolved != cmd {
			t.Fatalf("%q resolved to %q, expected %q", input, resolved.Name, cmd.Name)
		}
	})
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/arenactl/internal/gameserver"
)

func newHashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the bcrypt hash of a game-server API token",
		Long: `hash-token prints the value to store in listener.token_hash (or
ARENA_LISTENER_TOKEN_HASH). Game servers then authenticate with the
plain token as a Bearer credential.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := gameserver.HashToken(args[0])
			if err != nil {
				return fmt.Errorf("hashing token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}

package cli

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/server/auth"
	"github.com/spf13/cobra"
)

func (a *app) tokenCmd() *cobra.Command {
	var secret string
	var validity time.Duration

	cmd := &cobra.Command{
		Use:   "token <operator>",
		Short: "Mint a bearer token for the REST API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or %s is required", envSecretKey)
			}
			tok, err := auth.GenerateToken(args[0], []byte(secret), validity)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", envOr(envSecretKey, ""), "server JWT secret (env "+envSecretKey+")")
	cmd.Flags().DurationVar(&validity, "validity", time.Hour, "token lifetime")
	return cmd
}

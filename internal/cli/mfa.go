package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
	"github.com/dmitrijs2005/wotcsync/internal/mfa"
	"github.com/spf13/cobra"
)

func (a *app) totpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "totp",
		Short: "Authenticator secrets and codes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "secret <account>",
		Short: "Generate a new base32 TOTP secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := mfa.NewProvider(a.clock, logging.NewNopLogger()).GenerateSecret(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, secret)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "code [secret]",
		Short: "Print the current code for a secret (prompted when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var secret string
			if len(args) == 1 {
				secret = args[0]
			} else {
				b, err := GetSecret(a.in, a.reader, "TOTP secret", a.errOut)
				if err != nil {
					return err
				}
				defer common.WipeByteArray(b)
				secret = string(b)
			}

			code, err := mfa.NewProvider(a.clock, logging.NewNopLogger()).Generate(secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, code)
			return nil
		},
	})

	return cmd
}

func (a *app) backupCodesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup-codes",
		Short: "Generate or seal portal backup codes",
	}

	var count int
	gen := &cobra.Command{
		Use:   "generate",
		Short: "Print random backup codes, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			codes, err := mfa.GenerateBackupCodes(count)
			if err != nil {
				return err
			}
			for _, c := range codes {
				fmt.Fprintln(a.out, c)
			}
			return nil
		},
	}
	gen.Flags().IntVarP(&count, "count", "n", mfa.DefaultBackupCodes, "number of codes")

	seal := &cobra.Command{
		Use:   "seal",
		Short: "Read codes from stdin and print the encrypted JSON array stored on the portal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := a.vault()
			if err != nil {
				return err
			}
			codes, err := GetLines(a.reader, "Backup codes", a.errOut)
			if err != nil {
				return err
			}
			if len(codes) == 0 {
				return fmt.Errorf("no codes given")
			}

			sealed := make([]string, 0, len(codes))
			for _, c := range codes {
				ct, err := v.Encrypt(c)
				if err != nil {
					return err
				}
				sealed = append(sealed, ct)
			}
			b, err := json.Marshal(sealed)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, string(b))
			return nil
		},
	}

	cmd.AddCommand(gen, seal)
	return cmd
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/cryptox"
	"github.com/spf13/cobra"
)

// encryptCmd prints the vault form of a secret. With --username it prints
// the credentials JSON stored on a portal or connection row.
func (a *app) encryptCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a secret or a username/password pair with the vault key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := a.vault()
			if err != nil {
				return err
			}

			prompt := "Secret"
			if username != "" {
				prompt = "Password for " + username
			}
			secret, err := GetSecret(a.in, a.reader, prompt, a.errOut)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(secret)
			if len(secret) == 0 {
				return fmt.Errorf("empty secret")
			}

			if username == "" {
				ct, err := v.Encrypt(string(secret))
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, ct)
				return nil
			}

			creds, err := v.EncryptCredentials(cryptox.Credentials{Username: username, Password: string(secret)})
			if err != nil {
				return err
			}
			b, err := json.Marshal(creds)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, string(b))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "emit a credentials JSON for this username")
	return cmd
}

func (a *app) decryptCmd() *cobra.Command {
	var lenient bool
	cmd := &cobra.Command{
		Use:   "decrypt <ciphertext>",
		Short: "Decrypt a vault value, failing on a wrong key or tampered data",
		Long: "Decrypt a vault value. With --lenient a value that does not decrypt is\n" +
			"printed unchanged, the way stored values are read by older tooling.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.vault()
			if err != nil {
				return err
			}
			if lenient {
				fmt.Fprintln(a.out, v.Decrypt(args[0]))
				return nil
			}
			pt, err := v.DecryptStrict(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, pt)
			return nil
		},
	}
	cmd.Flags().BoolVar(&lenient, "lenient", false, "print undecryptable values unchanged instead of failing")
	return cmd
}

// Package cli implements wotcctl, the operator tool for preparing portal
// secrets, checking submission layouts and minting API tokens.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/wotcsync/internal/clock"
	"github.com/dmitrijs2005/wotcsync/internal/codec"
	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/cryptox"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
	"github.com/spf13/cobra"
)

const (
	envPassphrase = "WOTC_VAULT_PASSPHRASE"
	envSalt       = "WOTC_VAULT_SALT"
	envSecretKey  = "WOTC_SECRET_KEY"
	defaultSalt   = "wotcsync"
)

type app struct {
	clock      clock.Clock
	passphrase string
	salt       string
	layoutsDir string

	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(clock.Real())
}

func newRootCmd(clk clock.Clock) *cobra.Command {
	a := &app{clock: clk}

	root := &cobra.Command{
		Use:           "wotcctl",
		Short:         "Operator tool for the WOTC submission and sync engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.in = cmd.InOrStdin()
			a.reader = bufio.NewReader(a.in)
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.passphrase, "passphrase", os.Getenv(envPassphrase), "vault passphrase (env "+envPassphrase+")")
	flags.StringVar(&a.salt, "salt", envOr(envSalt, defaultSalt), "vault salt (env "+envSalt+")")
	flags.StringVar(&a.layoutsDir, "layouts", "", "directory of layout YAML files (default: built-in layouts)")

	root.AddCommand(
		a.encryptCmd(),
		a.decryptCmd(),
		a.totpCmd(),
		a.backupCodesCmd(),
		a.layoutsCmd(),
		a.previewCmd(),
		a.tokenCmd(),
	)
	return root
}

// Execute runs the root command against the process arguments.
func Execute(version string) error {
	root := NewRootCmd()
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// vault derives the key from --passphrase, prompting when it is unset.
func (a *app) vault() (*cryptox.Vault, error) {
	pass := []byte(a.passphrase)
	if len(pass) == 0 {
		var err error
		if pass, err = GetSecret(a.in, a.reader, "Vault passphrase", a.errOut); err != nil {
			return nil, err
		}
		defer common.WipeByteArray(pass)
	}
	if len(pass) == 0 {
		return nil, fmt.Errorf("vault passphrase is required")
	}
	return cryptox.NewVault(cryptox.DeriveKey(pass, []byte(a.salt)), logging.NewNopLogger())
}

func (a *app) registry() (*codec.Registry, error) {
	if a.layoutsDir == "" {
		return codec.DefaultRegistry()
	}
	return codec.LoadRegistry(os.DirFS(a.layoutsDir))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigFile string
	EnvFile    string
	Verbose    bool
}

// NewRootCommand creates the root command for the halosync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "halosync",
		Short: "Sync RMM data into Halo PSA",
		Long: `halosync reconciles asset and customer data from an RMM platform
(N-sight) into the Halo PSA platform. Every write is preceded by a backup
entry in a local SQLite ledger, so partial runs leave a recoverable trail.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "halosync.yaml", "path to the settings file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env", ".env", "path to the secrets file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewLedgerCommand(opts))

	return cmd
}

package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/martroben/rmm-halo-client-sync/internal/config"
	"github.com/martroben/rmm-halo-client-sync/internal/halo"
	"github.com/martroben/rmm-halo-client-sync/internal/ledger"
	"github.com/martroben/rmm-halo-client-sync/internal/nsight"
	"github.com/martroben/rmm-halo-client-sync/internal/retry"
	"github.com/martroben/rmm-halo-client-sync/internal/syncer"
)

// NewSyncCommand creates the sync command group.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile RMM data into Halo",
	}
	cmd.AddCommand(newSyncClientsCommand(rootOpts))
	return cmd
}

func newSyncClientsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Create N-sight clients that are missing from Halo",
		Long: `Fetches the client lists of both systems, diffs them by name (and
toplevel, when one is configured) and creates the missing clients in Halo.
Each create is recorded in the backup ledger before it is attempted.

A dry run performs all reads but substitutes synthetic success responses
for writes and keeps the ledger in memory.

Example:
  halosync sync clients --config halosync.yaml --env .env --dry-run=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSyncClients(cmd, rootOpts)
		},
	}

	cmd.Flags().Bool("dry-run", true, "suppress real writes and keep the ledger in memory")
	return cmd
}

func runSyncClients(cmd *cobra.Command, rootOpts *RootOptions) error {
	cfg, err := config.Load(rootOpts.ConfigFile, rootOpts.EnvFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun, _ = cmd.Flags().GetBool("dry-run")
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	log := newLogger(cfg, rootOpts.Verbose)
	if cfg.DryRun {
		log.Info("dry run: no writes will be performed")
	}

	backupLedger, err := openLedger(cfg, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open backup ledger", err)
	}
	defer func() {
		if closeErr := backupLedger.Close(); closeErr != nil {
			log.Error("error closing backup ledger", "error", closeErr)
		}
	}()

	policy := retry.Policy{
		Attempts: cfg.Retry.Attempts,
		Interval: cfg.Retry.Interval(),
	}

	authorizer := &halo.Authorizer{
		URL:      cfg.Auth.URL,
		Tenant:   cfg.Auth.Tenant,
		ClientID: cfg.Auth.ClientID,
		Secret:   cfg.Auth.Secret,
		Retry:    retry.Policy{Attempts: policy.Attempts, Interval: policy.Interval, Fatal: true},
		Log:      log,
	}

	source := &nsight.Fetcher{
		BaseURL: cfg.Nsight.BaseURL,
		APIKey:  cfg.Nsight.APIKey,
		Retry:   policy, // non-fatal: source outage degrades to an empty list
		Log:     log,
	}

	apis := func(token halo.Token) (syncer.TargetAPI, syncer.TargetAPI) {
		session := halo.NewSession(token)
		sink := halo.NewHTTPSink(session)
		if cfg.DryRun {
			sink = halo.NewDrySink(log)
		}
		clients := halo.NewInterface(cfg.Halo.APIURL, cfg.Halo.ClientEndpoint, session, sink, policy, log)
		toplevels := halo.NewInterface(cfg.Halo.APIURL, cfg.Halo.ToplevelEndpoint, session, sink, policy, log)
		return clients, toplevels
	}

	driver := syncer.New(cfg, log, backupLedger, source, authorizer, apis)
	summary, err := driver.Run(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "sync aborted", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"Session %s: %d source clients, %d target clients, %d missing, %d posted, %d failed, %d skipped\n",
		driver.SessionID(), summary.SourceClients, summary.TargetClients,
		summary.Missing, summary.Succeeded, summary.Failed, summary.Skipped)
	return nil
}

func newLogger(cfg *config.Config, verbose bool) *slog.Logger {
	level := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openLedger(cfg *config.Config, log *slog.Logger) (*ledger.Ledger, error) {
	if !cfg.Ledger.Active {
		return ledger.OpenInactive(log), nil
	}
	return ledger.Open(cfg.LedgerPath(), log)
}

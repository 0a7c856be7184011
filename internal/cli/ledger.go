package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/martroben/rmm-halo-client-sync/internal/config"
	"github.com/martroben/rmm-halo-client-sync/internal/ledger"
)

// NewLedgerCommand creates the ledger command group.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the backup ledger",
	}
	cmd.AddCommand(newLedgerInfoCommand(rootOpts))
	return cmd
}

func newLedgerInfoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := struct {
		Database string
		Limit    int
	}{}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show ledger row counts and recent sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.Database
			if path == "" {
				cfg, err := config.Load(rootOpts.ConfigFile, rootOpts.EnvFile)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load configuration", err)
				}
				path = cfg.Ledger.Path
			}
			return runLedgerInfo(cmd.OutOrStdout(), path, opts.Limit)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "ledger database path (default: from configuration)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "number of recent sessions to show")
	return cmd
}

func runLedgerInfo(out io.Writer, path string, limit int) error {
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("ledger database not found at %s", path), err)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	l, err := ledger.Open(path, quiet)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer func() { _ = l.Close() }()

	ctx := context.Background()
	info, err := l.Info(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read ledger", err)
	}

	fmt.Fprintf(out, "Ledger: %s\n", path)
	fmt.Fprintf(out, "Sessions: %d\n", info.Sessions)
	fmt.Fprintf(out, "Backup entries: %d\n", info.Backups)

	sessions, err := l.RecentSessions(ctx, limit)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read sessions", err)
	}
	if len(sessions) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTARTED\tSTATUS")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			s.SessionID,
			time.Unix(s.TimeUnix, 0).UTC().Format(time.RFC3339),
			s.Status)
	}
	return w.Flush()
}

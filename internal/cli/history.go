package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/config"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/history"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	Notebook string
	CellID   string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show logged execution attempts",
		Long: `Show execution attempts from the history database, newest first.

Example:
  nbexec history --db ./nbexec.db
  nbexec history --db ./nbexec.db --notebook analysis.ipynb --cell 1a2b3c`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to history database (defaults to config history_path)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum attempts to show (0 for all)")
	cmd.Flags().StringVar(&opts.Notebook, "notebook", "", "filter by notebook path (with --cell)")
	cmd.Flags().StringVar(&opts.CellID, "cell", "", "filter by cell id (needs --notebook)")

	return cmd
}

func listHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.HistoryPath
	}
	if dbPath == "" {
		return NewExitError(ExitCommandError, "no history database: set --db or history_path in config")
	}

	store, err := history.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open history database", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("error closing history database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var execs []history.Execution
	if opts.CellID != "" {
		if opts.Notebook == "" {
			return NewExitError(ExitCommandError, "--cell needs --notebook")
		}
		execs, err = store.ByCell(ctx, opts.Notebook, opts.CellID)
	} else {
		execs, err = store.List(ctx, opts.Limit)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}

	if opts.Format == "json" {
		if execs == nil {
			execs = []history.Execution{}
		}
		return formatter.Success(execs)
	}

	w := formatter.Writer
	if len(execs) == 0 {
		fmt.Fprintln(w, "no executions logged")
		return nil
	}
	for _, e := range execs {
		count := "-"
		if e.ExecutionCount != nil {
			count = strconv.Itoa(*e.ExecutionCount)
		}
		fmt.Fprintf(w, "%s  %-9s  %-6s  %s  cell=%s  count=%s\n",
			e.StartedAt.Format(time.RFC3339), e.Status, e.Transport, e.Path, e.CellID, count)
	}
	return nil
}

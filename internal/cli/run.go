package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/config"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/execute"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/history"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/notebook"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/protocol"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/tui"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	CellID    string
	CellIndex int
	KernelID  string
	Transport string
	Watch     bool

	// Tokens allows overriding the session token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Tokens protocol.TokenGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <notebook.ipynb>",
		Short: "Execute one notebook cell on a kernel",
		Long: `Execute one notebook cell on a running Jupyter kernel.

The cell is addressed by its stable id (--cell) or by position (--index).
The command submits the cell, tracks the execution over the configured
transport, applies the results to the notebook file, and saves it.

Example:
  nbexec run notebook.ipynb --kernel 4f6c1e --cell 1a2b3c
  nbexec run notebook.ipynb --kernel 4f6c1e --index 3 --transport stream
  nbexec run notebook.ipynb --kernel 4f6c1e --cell 1a2b3c --watch`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCell(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CellID, "cell", "", "id of the cell to execute")
	cmd.Flags().IntVar(&opts.CellIndex, "index", -1, "index of the cell to execute (when --cell is not set)")
	cmd.Flags().StringVar(&opts.KernelID, "kernel", "", "kernel session id (required)")
	cmd.Flags().StringVar(&opts.Transport, "transport", "", "transport override (poll|stream)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "show live progress while the cell runs")
	_ = cmd.MarkFlagRequired("kernel")

	return cmd
}

func runCell(opts *RunOptions, path string, cmd *cobra.Command) error {
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
	if opts.Transport != "" {
		cfg.Transport = opts.Transport
	}
	transport, err := execute.ParseTransport(cfg.Transport)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid transport", err)
	}

	doc, err := notebook.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load notebook", err)
	}
	cell, index, err := resolveCell(doc, opts)
	if err != nil {
		return err
	}

	req := protocol.ExecutionRequest{
		NotebookPath: path,
		CellID:       cell.ID,
		CellIndex:    index,
		KernelID:     opts.KernelID,
	}

	invOpts := []execute.InvokerOption{}
	if opts.Tokens != nil {
		invOpts = append(invOpts, execute.WithTokenGenerator(opts.Tokens))
	}
	if cfg.HistoryPath != "" {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open history database", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				slog.Error("error closing history database", "error", closeErr)
			}
		}()
		invOpts = append(invOpts, execute.WithHistory(store))
	}

	inv := execute.NewInvoker(execute.Options{
		BaseURL:         cfg.BaseURL,
		WSBase:          cfg.WSURL,
		Token:           cfg.Token,
		Transport:       transport,
		PollInterval:    cfg.PollInterval.Std(),
		MaxPolls:        cfg.MaxPolls,
		RefetchInterval: cfg.RefetchInterval.Std(),
	}, invOpts...)

	// Setup signal handling so Ctrl-C abandons tracking cleanly.
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, abandoning tracking", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	target := notebook.NewCellTarget(cell)

	formatter.VerboseLog("submitting cell %s over %s", cell.ID, transport)
	var result *execute.Result
	if opts.Watch {
		result, err = tui.Watch(ctx, inv, req, target)
	} else {
		result, err = inv.Invoke(ctx, req, target)
	}
	if err != nil {
		return runError(err)
	}

	if err := doc.Save(path); err != nil {
		return WrapExitError(ExitCommandError, "failed to save notebook", err)
	}

	return reportRun(formatter, opts, path, result)
}

// resolveCell addresses the cell by id first, index second.
func resolveCell(doc *notebook.Document, opts *RunOptions) (*notebook.Cell, int, error) {
	if opts.CellID != "" {
		cell, index, ok := doc.CellByID(opts.CellID)
		if !ok {
			return nil, 0, NewExitError(ExitCommandError, fmt.Sprintf("no cell with id %q", opts.CellID))
		}
		return cell, index, nil
	}
	if opts.CellIndex < 0 {
		return nil, 0, NewExitError(ExitCommandError, "one of --cell or --index is required")
	}
	cell, ok := doc.CellAt(opts.CellIndex)
	if !ok {
		return nil, 0, NewExitError(ExitCommandError, fmt.Sprintf("no cell at index %d", opts.CellIndex))
	}
	if cell.ID == "" {
		return nil, 0, NewExitError(ExitCommandError, fmt.Sprintf("cell at index %d has no id; executing by index needs cell ids", opts.CellIndex))
	}
	return cell, opts.CellIndex, nil
}

// runError maps tracking failures to exit codes, surfacing the protocol
// error code when one is present.
func runError(err error) error {
	if errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "execution cancelled", err)
	}
	var perr *protocol.Error
	if errors.As(err, &perr) {
		return WrapExitError(ExitFailure, fmt.Sprintf("execution failed [%s]", perr.Code), err)
	}
	return WrapExitError(ExitFailure, "execution failed", err)
}

// runReport is the run command's JSON payload.
type runReport struct {
	Session        string   `json:"session"`
	Path           string   `json:"path"`
	CellID         string   `json:"cell_id"`
	ExecutionCount int      `json:"execution_count"`
	Outputs        []string `json:"outputs"`
}

func reportRun(formatter *OutputFormatter, opts *RunOptions, path string, result *execute.Result) error {
	if opts.Format == "json" {
		outputs := result.Outputs
		if outputs == nil {
			outputs = []string{}
		}
		return formatter.Success(runReport{
			Session:        result.Session.Token,
			Path:           path,
			CellID:         result.Session.Request.CellID,
			ExecutionCount: result.ExecutionCount,
			Outputs:        outputs,
		})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "cell %s completed (execution_count=%d)\n", result.Session.Request.CellID, result.ExecutionCount)
	for _, out := range result.Outputs {
		fmt.Fprint(w, out)
		if !strings.HasSuffix(out, "\n") {
			fmt.Fprintln(w)
		}
	}
	return nil
}

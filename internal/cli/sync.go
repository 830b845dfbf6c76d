package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mrlokans/batchsync/internal/config"
	"github.com/mrlokans/batchsync/internal/entrypoint"
	"github.com/mrlokans/batchsync/internal/syncer"
)

// SyncCommand runs one batch of a mapping and prints the result as JSON.
type SyncCommand struct {
	Mapping string
	Mode    string
	Limit   int
	Page    int
	Cursor  string

	// Config overrides the environment; used by tests.
	Config *config.Config
	Out    io.Writer
}

func NewSyncCommand() *SyncCommand {
	return &SyncCommand{Out: os.Stdout}
}

func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)

	fs.StringVar(&cmd.Mode, "mode", "", "Run mode: sync or dry-run (default: SYNC_MODE)")
	fs.IntVar(&cmd.Limit, "limit", 0, "Page size (default: SYNC_BATCH_SIZE)")
	fs.IntVar(&cmd.Page, "page", 0, "Page number for page and offset pagination")
	fs.StringVar(&cmd.Cursor, "cursor", "", "Cursor for cursor pagination")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync <mapping> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Run one batch of a mapping and print the result.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s sync users\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s sync campaigns -mode sync -limit 20 -page 3\n", os.Args[0])
	}

	// Accept the mapping before or after the flags.
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd.Mapping = args[0]
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Mapping == "" {
		cmd.Mapping = fs.Arg(0)
	}

	if cmd.Mapping == "" {
		fs.Usage()
		return fmt.Errorf("mapping is required")
	}
	switch config.Mode(cmd.Mode) {
	case "", config.ModeSync, config.ModeDryRun:
	default:
		return fmt.Errorf("invalid mode %q: want %q or %q", cmd.Mode, config.ModeSync, config.ModeDryRun)
	}
	if cmd.Limit < 0 || cmd.Page < 0 {
		return fmt.Errorf("limit and page must not be negative")
	}

	return nil
}

func (cmd *SyncCommand) Run() error {
	cfg := cmd.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}

	engine, err := entrypoint.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result := engine.Orchestrator.RunBatchSync(ctx, cmd.Mapping, syncer.RunOptions{
		Mode:   config.Mode(cmd.Mode),
		Limit:  cmd.Limit,
		Page:   cmd.Page,
		Cursor: cmd.Cursor,
	})

	out := cmd.Out
	if out == nil {
		out = os.Stdout
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to print result: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("sync of %s failed (request %s)", cmd.Mapping, result.RequestID)
	}
	return nil
}

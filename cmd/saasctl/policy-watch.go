package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// policyWatchCmd represents the policy watch command
var policyWatchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Watch a policy file and reload it when it changes",
	Long: `Load a YAML policy file, then load it again every time it is written.

The directory holding the file is watched, so editors that save by
replacing the file are picked up as well. A policy that fails to load is
reported and the previous state is kept until the next change.

Example:
  saasctl policy watch /etc/saasgate/roles.yml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := watchPolicy(ctx, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to watch policy: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	policyCmd.AddCommand(policyWatchCmd)
}

func watchPolicy(ctx context.Context, filename string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := connect(cfg)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	reload := func() error {
		return reloadPolicy(ctx, database, logger, filename, os.Stdout)
	}
	if err := reload(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading policy: %v\n", err)
	}

	fmt.Printf("Watching %s for policy changes\n", filename)
	err = runPolicyWatch(ctx, watcher, filename, reload, os.Stderr)
	fmt.Println("Shutting down...")
	return err
}

// runPolicyWatch calls reload for every write or create of filename until
// ctx is done. Reload and watcher errors are reported to errOut.
func runPolicyWatch(ctx context.Context, watcher *fsnotify.Watcher, filename string, reload func() error, errOut io.Writer) error {
	target, err := filepath.Abs(filename)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := reload(); err != nil {
				fmt.Fprintf(errOut, "[%s] Error loading policy: %v\n", time.Now().Format(time.RFC3339), err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(errOut, "Watcher error: %v\n", err)
		case <-ctx.Done():
			return nil
		}
	}
}

// reloadPolicy loads filename and prints the result as one JSON line.
func reloadPolicy(ctx context.Context, database *gorm.DB, logger *slog.Logger, filename string, out io.Writer) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open policy file: %w", err)
	}
	defer func() { _ = file.Close() }()

	result, err := loadPolicy(ctx, database, logger, file, false)
	if err != nil {
		return err
	}
	output, _ := json.Marshal(result)
	fmt.Fprintf(out, "[%s] %s\n", time.Now().Format(time.RFC3339), output)
	return nil
}

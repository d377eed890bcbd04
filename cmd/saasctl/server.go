package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/saasgate/pkg/bootstrap"
	"github.com/doodlesbykumbi/saasgate/pkg/server"
	"github.com/doodlesbykumbi/saasgate/pkg/server/endpoints"
)

const shutdownTimeout = 10 * time.Second

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the saasgate API server",
	Long: `Run the saasgate API server.

The server requires SECRET_KEY and DATABASE_URL.

By default, database migrations are run and the initial data is seeded on
startup. Use --no-migrate and --no-seed to skip either step. The server
shuts down gracefully on SIGINT or SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		noSeed, _ := cmd.Flags().GetBool("no-seed")

		if err := runServer(host, port, !noMigrate, !noSeed); err != nil {
			fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
	serverCmd.Flags().Bool("no-seed", false, "skip seeding the initial data on start")
}

func runServer(host, port string, migrateOnStart, seedOnStart bool) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	if migrateOnStart {
		logger.Info("Running database migrations...")
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	database, err := connect(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if seedOnStart {
		_, err := bootstrap.Seed(ctx, seedStores(database), bootstrap.Options{
			Email:    cfg.FirstSuperuserEmail,
			Password: cfg.FirstSuperuserPassword,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
	}

	s, err := server.NewServer(cfg, database, logger, host, port)
	if err != nil {
		return err
	}
	endpoints.RegisterAll(s)

	errCh := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Running server at http://%s...", s.Addr()))
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

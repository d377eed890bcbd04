package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/saasgate/pkg/bootstrap"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the permission catalogue, Super Admin role and first superuser",
	Long: `Seed the initial data.

Every registered permission is persisted and granted to the "Super Admin"
role. When FIRST_SUPERUSER_EMAIL is set, that user is created with
FIRST_SUPERUSER_PASSWORD if missing and given the role.

Running seed again changes nothing.

Example:
  saasctl seed`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSeed(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Seed failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := connect(cfg)
	if err != nil {
		return err
	}

	report, err := bootstrap.Seed(ctx, seedStores(database), bootstrap.Options{
		Email:    cfg.FirstSuperuserEmail,
		Password: cfg.FirstSuperuserPassword,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if !report.Changed() {
		fmt.Println("Nothing to do - initial data already present")
	}
	return nil
}

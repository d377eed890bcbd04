package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/saasgate/pkg/audit"
	"github.com/doodlesbykumbi/saasgate/pkg/policy"
	gormstore "github.com/doodlesbykumbi/saasgate/pkg/server/store/gorm"
)

// policyLoadCmd represents the policy load command
var policyLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load a policy file",
	Long: `Load a YAML policy file.

The file declares roles with !role, assigns them with !grant, unassigns
them with !revoke and removes them with !delete. Statements are applied in
order and loading stops at the first failure. Pass "-" to read from stdin.

Example:
  saasctl policy load roles.yml
  saasctl policy load --dry-run roles.yml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		result, err := loadPolicyFile(cmd.Context(), args[0], dryRun)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load policy: %v\n", err)
			os.Exit(1)
		}

		// Output result as JSON
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	},
}

func init() {
	policyLoadCmd.Flags().Bool("dry-run", false, "Resolve the policy against the database without changing it")
	policyCmd.AddCommand(policyLoadCmd)
}

func loadPolicyFile(ctx context.Context, filename string, dryRun bool) (*policy.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	database, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	var in io.Reader = os.Stdin
	if filename != "-" {
		file, err := os.Open(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to open policy file: %w", err)
		}
		defer func() { _ = file.Close() }()
		in = file
	}

	return loadPolicy(ctx, database, logger, in, dryRun)
}

func loadPolicy(ctx context.Context, database *gorm.DB, logger *slog.Logger, in io.Reader, dryRun bool) (*policy.Result, error) {
	auditLogger := audit.NewLogger().
		SetWriter(nil).
		SetStore(audit.NewStore(database)).
		SetErrorLogger(logger)

	return policy.NewLoader(policy.Stores{
		Users:       gormstore.NewUsersStore(database),
		Roles:       gormstore.NewRolesStore(database),
		Permissions: gormstore.NewPermissionsStore(database),
	}).
		WithLogger(logger).
		WithAudit(auditLogger, "saasctl").
		WithDryRun(dryRun).
		LoadFromReader(ctx, in)
}

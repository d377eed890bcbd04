package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/saasgate/pkg/authn"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

// userResetPasswordCmd represents the user reset-password command
var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password <email>",
	Short: "Reset a user's password",
	Long: `Reset the password for a user to a newly generated one.

The new password is printed to stdout. Reset and verify tokens issued
before the change stop working.

Example:
  saasctl user reset-password alice@example.com`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _, err := loadConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		database, err := connect(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		password, err := resetPassword(context.Background(), seedStores(database).Users, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to reset password for %s: %v\n", args[0], err)
			os.Exit(1)
		}
		fmt.Println(password)
	},
}

func init() {
	userCmd.AddCommand(userResetPasswordCmd)
}

func resetPassword(ctx context.Context, users store.UsersStore, email string) (string, error) {
	user, err := users.FetchUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("user not found: %s", email)
	}
	if err != nil {
		return "", err
	}

	password, err := authn.GeneratePassword()
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	hash, err := authn.HashPassword(password)
	if err != nil {
		return "", err
	}
	user.HashedPassword = hash
	if err := users.UpdateUser(ctx, user); err != nil {
		return "", fmt.Errorf("failed to update user: %w", err)
	}
	return password, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/saasgate/pkg/authn"
	"github.com/doodlesbykumbi/saasgate/pkg/bootstrap"
	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

// userCreateCmd represents the user create command
var userCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create an active, verified user",
	Long: `Create an active, verified user and optionally assign roles.

When --password is omitted a random password is generated and printed
to stdout.

Example:
  saasctl user create alice@example.com
  saasctl user create ops@example.com --role "Super Admin" --superuser`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		password, _ := cmd.Flags().GetString("password")
		superuser, _ := cmd.Flags().GetBool("superuser")
		roles, _ := cmd.Flags().GetStringSlice("role")

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

		generated := password == ""
		user, password, err := createUser(context.Background(), seedStores(database), newUserRequest{
			Email:     args[0],
			Password:  password,
			Superuser: superuser,
			Roles:     roles,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create user %s: %v\n", args[0], err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Created user %s (id %d)\n", user.Email, user.ID)
		if generated {
			fmt.Println(password)
		}
	},
}

func init() {
	userCmd.AddCommand(userCreateCmd)
	userCreateCmd.Flags().String("password", "", "password (generated when empty)")
	userCreateCmd.Flags().Bool("superuser", false, "set the superuser flag")
	userCreateCmd.Flags().StringSlice("role", nil, "role to assign, by name (repeatable)")
}

type newUserRequest struct {
	Email     string `validate:"required,email,max=320"`
	Password  string `validate:"omitempty,min=8,max=72"`
	Superuser bool
	Roles     []string
}

var cliValidate = validator.New(validator.WithRequiredStructEnabled())

// createUser creates the user and assigns the named roles. Every role must
// exist before anything is written. It returns the password used.
func createUser(ctx context.Context, stores bootstrap.Stores, req newUserRequest) (*model.User, string, error) {
	if err := cliValidate.Struct(req); err != nil {
		return nil, "", err
	}

	roles := make([]*model.Role, 0, len(req.Roles))
	for _, name := range req.Roles {
		role, err := stores.Roles.FetchRoleByName(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", fmt.Errorf("role %q not found", name)
		}
		if err != nil {
			return nil, "", err
		}
		roles = append(roles, role)
	}

	password := req.Password
	if password == "" {
		var err error
		if password, err = authn.GeneratePassword(); err != nil {
			return nil, "", err
		}
	}
	hash, err := authn.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user := &model.User{
		Email:          req.Email,
		HashedPassword: hash,
		IsActive:       true,
		IsVerified:     true,
		IsSuperuser:    req.Superuser,
	}
	if err := stores.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, "", fmt.Errorf("a user with email %s already exists", req.Email)
		}
		return nil, "", err
	}
	for _, role := range roles {
		if err := stores.Roles.AddUserRole(ctx, user.ID, role.ID); err != nil {
			return nil, "", fmt.Errorf("assign role %q: %w", role.Name, err)
		}
	}
	return user, password, nil
}

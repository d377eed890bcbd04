// Package bootstrap seeds a fresh database with the permission catalogue,
// the "Super Admin" role and the first superuser.
//
// Seed is idempotent: running it against a seeded database changes nothing.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doodlesbykumbi/saasgate/pkg/authn"
	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/permission"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

const (
	SuperAdminRole        = "Super Admin"
	superAdminDescription = "Full system access"
)

// Stores are the stores Seed writes through.
type Stores struct {
	Users       store.UsersStore
	Roles       store.RolesStore
	Permissions store.PermissionsStore
}

// Options configures Seed. The superuser is skipped when Email is empty.
type Options struct {
	Email    string
	Password string
	Logger   *slog.Logger
}

// Report says what a Seed run changed.
type Report struct {
	RoleCreated        bool
	PermissionsGranted int
	UserCreated        bool
	RoleAssigned       bool
}

// Changed reports whether the run wrote anything besides permission rows.
func (r Report) Changed() bool {
	return r.RoleCreated || r.PermissionsGranted > 0 || r.UserCreated || r.RoleAssigned
}

// Seed ensures every registered permission is persisted, that the Super
// Admin role holds all of them, and that the first superuser exists and
// holds the role.
func Seed(ctx context.Context, stores Stores, opts Options) (Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var report Report
	logger.Info("Seeding initial data...")

	perms, err := stores.Permissions.EnsurePermissions(ctx, permission.Names())
	if err != nil {
		return report, fmt.Errorf("ensure permissions: %w", err)
	}

	role, err := ensureRole(ctx, stores.Roles, perms, &report)
	if err != nil {
		return report, err
	}

	if opts.Email == "" {
		logger.Warn("no first superuser configured, skipping")
	} else if err := ensureSuperuser(ctx, stores, role, opts, &report, logger); err != nil {
		return report, err
	}

	logger.Info("Initial data seeding complete.", "changed", report.Changed())
	return report, nil
}

func ensureRole(ctx context.Context, roles store.RolesStore, perms []model.Permission, report *Report) (*model.Role, error) {
	role, err := roles.FetchRoleByName(ctx, SuperAdminRole)
	if errors.Is(err, store.ErrNotFound) {
		role = &model.Role{
			Name:        SuperAdminRole,
			Description: superAdminDescription,
			Permissions: perms,
		}
		if err := roles.CreateRole(ctx, role); err != nil {
			return nil, fmt.Errorf("create role %q: %w", SuperAdminRole, err)
		}
		report.RoleCreated = true
		report.PermissionsGranted = len(perms)
		return role, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch role %q: %w", SuperAdminRole, err)
	}

	held := role.PermissionSet()
	for _, p := range perms {
		if held.Has(p.Name) {
			continue
		}
		if err := roles.AddRolePermission(ctx, role.ID, p.ID); err != nil {
			return nil, fmt.Errorf("grant %s to %q: %w", p.Name, SuperAdminRole, err)
		}
		report.PermissionsGranted++
	}
	return role, nil
}

func ensureSuperuser(ctx context.Context, stores Stores, role *model.Role, opts Options, report *Report, logger *slog.Logger) error {
	user, err := stores.Users.FetchUserByEmail(ctx, opts.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if opts.Password == "" {
			return fmt.Errorf("first superuser %s does not exist and no password is configured", opts.Email)
		}
		hash, err := authn.HashPassword(opts.Password)
		if err != nil {
			return err
		}
		user = &model.User{
			Email:          opts.Email,
			HashedPassword: hash,
			IsActive:       true,
			IsSuperuser:    true,
			IsVerified:     true,
		}
		if err := stores.Users.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("create superuser: %w", err)
		}
		report.UserCreated = true
		logger.Info(fmt.Sprintf("Created first superuser: %s", user.Email))
	case err != nil:
		return fmt.Errorf("fetch superuser: %w", err)
	}

	for _, r := range user.Roles {
		if r.ID == role.ID {
			return nil
		}
	}
	if err := stores.Roles.AddUserRole(ctx, user.ID, role.ID); err != nil {
		return fmt.Errorf("assign %q to superuser: %w", SuperAdminRole, err)
	}
	report.RoleAssigned = true
	return nil
}

package policy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/doodlesbykumbi/saasgate/pkg/audit"
	"github.com/doodlesbykumbi/saasgate/pkg/bootstrap"
	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/permission"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

// Stores are the stores a Loader reads and writes through.
type Stores struct {
	Users       store.UsersStore
	Roles       store.RolesStore
	Permissions store.PermissionsStore
}

// Result contains the results of loading a policy.
type Result struct {
	CreatedRoles []string `json:"created_roles"`
	UpdatedRoles []string `json:"updated_roles"`
	DeletedRoles []string `json:"deleted_roles"`
	Granted      int      `json:"granted"`
	Revoked      int      `json:"revoked"`
	DryRun       bool     `json:"dry_run"`
}

// Changed reports whether the load wrote, or in a dry run would write, anything.
func (r *Result) Changed() bool {
	return len(r.CreatedRoles)+len(r.UpdatedRoles)+len(r.DeletedRoles)+r.Granted+r.Revoked > 0
}

// Loader applies policy statements.
type Loader struct {
	stores Stores
	audit  *audit.Logger
	actor  string
	logger *slog.Logger
	dryRun bool

	// roles declared earlier in a dry run, which do not exist yet
	pending map[string]bool
}

// NewLoader creates a new policy loader.
func NewLoader(stores Stores) *Loader {
	return &Loader{
		stores: stores,
		logger: slog.Default(),
	}
}

// WithAudit records every change as an rbac audit event performed by actor.
func (l *Loader) WithAudit(logger *audit.Logger, actor string) *Loader {
	l.audit = logger
	l.actor = actor
	return l
}

func (l *Loader) WithLogger(logger *slog.Logger) *Loader {
	l.logger = logger
	return l
}

// WithDryRun resolves every statement against the database without writing.
func (l *Loader) WithDryRun(dryRun bool) *Loader {
	l.dryRun = dryRun
	return l
}

// LoadFromReader parses the policy in r and loads it.
func (l *Loader) LoadFromReader(ctx context.Context, r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	statements, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, statements)
}

// Load applies statements in order and stops at the first failure.
func (l *Loader) Load(ctx context.Context, statements Statements) (*Result, error) {
	if err := statements.Validate(); err != nil {
		return nil, err
	}

	result := &Result{DryRun: l.dryRun}
	l.pending = map[string]bool{}
	for i, statement := range statements {
		var err error
		switch v := statement.(type) {
		case Role:
			err = l.loadRole(ctx, v, result)
		case Grant:
			err = l.loadMembership(ctx, v.Role, v.Members, true, result)
		case Revoke:
			err = l.loadMembership(ctx, v.Role, v.Members, false, result)
		case Delete:
			err = l.loadDelete(ctx, v, result)
		}
		if err != nil {
			return result, fmt.Errorf("statement %d (%s): %w", i+1, statement.Kind().Tag(), err)
		}
	}

	l.logger.Info("policy loaded",
		"created", len(result.CreatedRoles),
		"updated", len(result.UpdatedRoles),
		"deleted", len(result.DeletedRoles),
		"granted", result.Granted,
		"revoked", result.Revoked,
		"dry_run", l.dryRun,
	)
	return result, nil
}

func (l *Loader) loadRole(ctx context.Context, s Role, result *Result) error {
	role, err := l.stores.Roles.FetchRoleByName(ctx, s.Name)
	if errors.Is(err, store.ErrNotFound) {
		result.CreatedRoles = append(result.CreatedRoles, s.Name)
		if l.dryRun {
			l.pending[s.Name] = true
			return nil
		}
		perms, err := l.stores.Permissions.EnsurePermissions(ctx, s.Permissions)
		if err != nil {
			return err
		}
		role = &model.Role{Name: s.Name, Description: s.Description, Permissions: perms}
		err = l.stores.Roles.CreateRole(ctx, role)
		l.record(audit.OpCreateRole, s.Name, err)
		return err
	}
	if err != nil {
		return err
	}

	descriptionChanged := s.Description != "" && s.Description != role.Description
	permissionsChanged := s.Permissions != nil && !sameSet(role.PermissionSet(), permission.NewSet(s.Permissions...))
	if !descriptionChanged && !permissionsChanged {
		return nil
	}

	result.UpdatedRoles = append(result.UpdatedRoles, s.Name)
	if l.dryRun {
		return nil
	}
	if descriptionChanged {
		role.Description = s.Description
	}
	var perms []model.Permission
	if permissionsChanged {
		if perms, err = l.stores.Permissions.EnsurePermissions(ctx, s.Permissions); err != nil {
			return err
		}
	}
	err = l.stores.Roles.UpdateRole(ctx, role, perms)
	l.record(audit.OpUpdateRole, fmt.Sprintf("role:%d", role.ID), err)
	return err
}

func (l *Loader) loadMembership(ctx context.Context, roleName string, members []string, grant bool, result *Result) error {
	role, err := l.stores.Roles.FetchRoleByName(ctx, roleName)
	if errors.Is(err, store.ErrNotFound) && l.pending[roleName] {
		role = nil
	} else if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("role %q not found", roleName)
	} else if err != nil {
		return err
	}

	for _, email := range members {
		user, err := l.stores.Users.FetchUserByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("user %s not found", email)
		}
		if err != nil {
			return err
		}

		held := role != nil && hasRole(user, role.ID)
		if held == grant {
			continue
		}
		if grant {
			result.Granted++
		} else {
			result.Revoked++
		}
		if l.dryRun {
			continue
		}

		target := fmt.Sprintf("user:%d/role:%d", user.ID, role.ID)
		if grant {
			err = l.stores.Roles.AddUserRole(ctx, user.ID, role.ID)
			l.record(audit.OpAssignRole, target, err)
		} else {
			err = l.stores.Roles.RemoveUserRole(ctx, user.ID, role.ID)
			l.record(audit.OpUnassignRole, target, err)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadDelete(ctx context.Context, s Delete, result *Result) error {
	if s.Role == bootstrap.SuperAdminRole {
		return fmt.Errorf("role %q is managed by seeding and cannot be deleted", s.Role)
	}
	if l.pending[s.Role] {
		delete(l.pending, s.Role)
		result.DeletedRoles = append(result.DeletedRoles, s.Role)
		return nil
	}

	role, err := l.stores.Roles.FetchRoleByName(ctx, s.Role)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	result.DeletedRoles = append(result.DeletedRoles, s.Role)
	if l.dryRun {
		return nil
	}
	err = l.stores.Roles.DeleteRole(ctx, role.ID)
	l.record(audit.OpDeleteRole, fmt.Sprintf("role:%d", role.ID), err)
	return err
}

func (l *Loader) record(op, target string, err error) {
	event := audit.RBACEvent{
		User:      l.actor,
		Operation: op,
		Target:    target,
		Success:   err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	l.audit.Log(event)
}

func hasRole(user *model.User, roleID uint) bool {
	for _, r := range user.Roles {
		if r.ID == roleID {
			return true
		}
	}
	return false
}

func sameSet(a, b permission.Set) bool {
	if len(a) != len(b) {
		return false
	}
	for name := range a {
		if !b.Has(name) {
			return false
		}
	}
	return true
}

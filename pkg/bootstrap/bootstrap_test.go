package bootstrap_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/saasgate/pkg/authn"
	"github.com/doodlesbykumbi/saasgate/pkg/bootstrap"
	"github.com/doodlesbykumbi/saasgate/pkg/db/dbtest"
	"github.com/doodlesbykumbi/saasgate/pkg/logging"
	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/permission"
	gormstore "github.com/doodlesbykumbi/saasgate/pkg/server/store/gorm"
)

func newStores(db *gorm.DB) bootstrap.Stores {
	return bootstrap.Stores{
		Users:       gormstore.NewUsersStore(db),
		Roles:       gormstore.NewRolesStore(db),
		Permissions: gormstore.NewPermissionsStore(db),
	}
}

func seedOptions() bootstrap.Options {
	return bootstrap.Options{
		Email:    "Admin@Example.com",
		Password: "changeme123",
		Logger:   logging.Discard(),
	}
}

func TestSeed_FreshDatabase(t *testing.T) {
	db := dbtest.New(t)
	stores := newStores(db)
	ctx := context.Background()

	report, err := bootstrap.Seed(ctx, stores, seedOptions())
	require.NoError(t, err)
	assert.True(t, report.RoleCreated)
	assert.True(t, report.UserCreated)
	assert.True(t, report.RoleAssigned)
	assert.Equal(t, len(permission.All()), report.PermissionsGranted)

	role, err := stores.Roles.FetchRoleByName(ctx, bootstrap.SuperAdminRole)
	require.NoError(t, err)
	assert.Equal(t, "Full system access", role.Description)
	assert.ElementsMatch(t, permission.Names(), role.PermissionSet().Sorted())

	user, err := stores.Users.FetchUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsSuperuser)
	assert.True(t, user.IsActive)
	assert.True(t, user.IsVerified)
	assert.True(t, authn.CheckPassword(user.HashedPassword, "changeme123"))
	require.Len(t, user.Roles, 1)
	assert.Equal(t, role.ID, user.Roles[0].ID)
	assert.True(t, user.EffectivePermissions().Has(permission.RBACManage))
}

func TestSeed_Idempotent(t *testing.T) {
	db := dbtest.New(t)
	stores := newStores(db)
	ctx := context.Background()

	_, err := bootstrap.Seed(ctx, stores, seedOptions())
	require.NoError(t, err)

	report, err := bootstrap.Seed(ctx, stores, seedOptions())
	require.NoError(t, err)
	assert.False(t, report.Changed())

	var roles, users, perms, grants, assignments int64
	require.NoError(t, db.Model(&model.Role{}).Count(&roles).Error)
	require.NoError(t, db.Model(&model.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&model.Permission{}).Count(&perms).Error)
	require.NoError(t, db.Table("role_permissions").Count(&grants).Error)
	require.NoError(t, db.Table("user_roles").Count(&assignments).Error)

	assert.Equal(t, int64(1), roles)
	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(len(permission.All())), perms)
	assert.Equal(t, int64(len(permission.All())), grants)
	assert.Equal(t, int64(1), assignments)
}

func TestSeed_RepairsPartialState(t *testing.T) {
	db := dbtest.New(t)
	stores := newStores(db)
	ctx := context.Background()

	// A role that lost permissions and a superuser without the role.
	perms, err := stores.Permissions.EnsurePermissions(ctx, []string{permission.RBACManage})
	require.NoError(t, err)
	require.NoError(t, stores.Roles.CreateRole(ctx, &model.Role{
		Name:        bootstrap.SuperAdminRole,
		Description: "Full system access",
		Permissions: perms,
	}))
	hash, err := authn.HashPassword("whatever123")
	require.NoError(t, err)
	require.NoError(t, stores.Users.CreateUser(ctx, &model.User{
		Email: "admin@example.com", HashedPassword: hash, IsActive: true, IsSuperuser: true,
	}))

	report, err := bootstrap.Seed(ctx, stores, seedOptions())
	require.NoError(t, err)
	assert.False(t, report.RoleCreated)
	assert.False(t, report.UserCreated)
	assert.True(t, report.RoleAssigned)
	assert.Equal(t, len(permission.All())-1, report.PermissionsGranted)

	user, err := stores.Users.FetchUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, authn.CheckPassword(user.HashedPassword, "whatever123"), "existing password is kept")
	assert.ElementsMatch(t, permission.Names(), user.EffectivePermissions().Sorted())
}

func TestSeed_WithoutSuperuser(t *testing.T) {
	db := dbtest.New(t)
	stores := newStores(db)

	report, err := bootstrap.Seed(context.Background(), stores, bootstrap.Options{Logger: logging.Discard()})
	require.NoError(t, err)
	assert.True(t, report.RoleCreated)
	assert.False(t, report.UserCreated)
}

func TestSeed_MissingPassword(t *testing.T) {
	db := dbtest.New(t)
	stores := newStores(db)

	_, err := bootstrap.Seed(context.Background(), stores, bootstrap.Options{
		Email:  "admin@example.com",
		Logger: logging.Discard(),
	})
	assert.Error(t, err)
}

package identity

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/permission"
)

func testUser() *model.User {
	return &model.User{
		ID:    7,
		Email: "alice@example.com",
		Roles: []model.Role{
			{Name: "Reader", Permissions: []model.Permission{{Name: permission.UsersRead}}},
			{Name: "Reporter", Permissions: []model.Permission{{Name: permission.ReportsView}}},
		},
	}
}

func TestFromUser(t *testing.T) {
	id := FromUser(testUser())

	assert.Equal(t, uint(7), id.UserID())
	assert.Equal(t, "alice@example.com", id.Email())
	assert.True(t, id.Has(permission.UsersRead))
	assert.True(t, id.Has(permission.ReportsView))
	assert.False(t, id.Has(permission.RBACManage))
}

func TestIdentity_WithMethods(t *testing.T) {
	iat := time.Now().Add(-time.Minute)
	exp := time.Now().Add(time.Hour)

	id := FromUser(testUser()).
		WithToken("jti-1", iat, exp).
		WithRemoteIP(net.ParseIP("10.0.0.1"))

	assert.Equal(t, "jti-1", id.TokenID)
	assert.Equal(t, iat, id.IssuedAt)
	assert.Equal(t, exp, id.ExpiresAt)
	assert.Equal(t, "10.0.0.1", id.ClientIP())
}

func TestIdentity_ClientIPUnknown(t *testing.T) {
	assert.Equal(t, "", FromUser(testUser()).ClientIP())
}

func TestContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		id := FromUser(testUser())
		ctx := Set(context.Background(), id)

		got, ok := Get(ctx)
		require.True(t, ok)
		assert.Same(t, id, got)
	})

	t.Run("missing", func(t *testing.T) {
		_, ok := Get(context.Background())
		assert.False(t, ok)
	})
}

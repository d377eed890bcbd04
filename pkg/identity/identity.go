package identity

import (
	"context"
	"net"
	"time"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/permission"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// Identity represents the authenticated identity for a request.
// It combines token claims with the user as loaded for this request.
type Identity struct {
	// Loaded user, with roles and their permissions
	User *model.User

	// Effective permissions, computed once per request
	Permissions permission.Set

	// Token claims
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Request context
	RemoteIP net.IP
}

// FromUser creates an Identity for a user whose roles and permissions are
// loaded.
func FromUser(u *model.User) *Identity {
	return &Identity{
		User:        u,
		Permissions: u.EffectivePermissions(),
	}
}

// WithToken records the claims of the token the request presented.
func (i *Identity) WithToken(id string, issuedAt, expiresAt time.Time) *Identity {
	i.TokenID = id
	i.IssuedAt = issuedAt
	i.ExpiresAt = expiresAt
	return i
}

// WithRemoteIP sets the remote IP address.
func (i *Identity) WithRemoteIP(ip net.IP) *Identity {
	i.RemoteIP = ip
	return i
}

// UserID returns the ID of the authenticated user.
func (i *Identity) UserID() uint {
	return i.User.ID
}

// Email returns the email of the authenticated user.
func (i *Identity) Email() string {
	return i.User.Email
}

// Has reports whether the identity holds the permission.
func (i *Identity) Has(perm string) bool {
	return i.Permissions.Has(perm)
}

// ClientIP returns the remote IP as a string, or "" when unknown.
func (i *Identity) ClientIP() string {
	if i.RemoteIP == nil {
		return ""
	}
	return i.RemoteIP.String()
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}

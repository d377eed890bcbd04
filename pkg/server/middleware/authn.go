package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/doodlesbykumbi/saasgate/pkg/authn"
	"github.com/doodlesbykumbi/saasgate/pkg/identity"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

const unauthorized = "Unauthorized"

// Authenticator is middleware that resolves the bearer token to an active
// user and stores the resulting identity in the request context.
type Authenticator struct {
	Tokens  *authn.Tokens
	Users   store.UsersStore
	Revoker authn.Revoker
	Logger  *slog.Logger
}

// NewAuthenticator creates the authentication middleware. A nil revoker
// disables revocation checks.
func NewAuthenticator(tokens *authn.Tokens, users store.UsersStore, revoker authn.Revoker, logger *slog.Logger) *Authenticator {
	if revoker == nil {
		revoker = authn.NopRevoker{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{Tokens: tokens, Users: users, Revoker: revoker, Logger: logger}
}

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Middleware rejects requests without a valid, unrevoked access token for
// an active user with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeDetail(w, http.StatusUnauthorized, unauthorized)
			return
		}

		claims, err := a.Tokens.ParseAccess(token)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, unauthorized)
			return
		}

		ctx := r.Context()
		revoked, err := a.Revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			a.Logger.ErrorContext(ctx, "revocation check failed", "error", err)
			writeDetail(w, http.StatusInternalServerError, InternalErrorDetail)
			return
		}
		if revoked {
			writeDetail(w, http.StatusUnauthorized, unauthorized)
			return
		}

		userID, _ := claims.UserID()
		user, err := a.Users.FetchUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			writeDetail(w, http.StatusUnauthorized, unauthorized)
			return
		}
		if err != nil {
			a.Logger.ErrorContext(ctx, "loading user failed", "user_id", userID, "error", err)
			writeDetail(w, http.StatusInternalServerError, InternalErrorDetail)
			return
		}
		if !user.IsActive {
			writeDetail(w, http.StatusUnauthorized, unauthorized)
			return
		}

		id := identity.FromUser(user).
			WithToken(claims.ID, claims.IssuedAt.Time, claims.ExpiresAt.Time).
			WithRemoteIP(RemoteIP(r))
		next.ServeHTTP(w, r.WithContext(identity.Set(ctx, id)))
	})
}

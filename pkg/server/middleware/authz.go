package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/saasgate/pkg/audit"
	"github.com/doodlesbykumbi/saasgate/pkg/identity"
	"github.com/doodlesbykumbi/saasgate/pkg/metrics"
	"github.com/doodlesbykumbi/saasgate/pkg/permission"
)

// ErrUnresolved is returned when no permission could be determined for a
// request. Such requests are denied.
var ErrUnresolved = errors.New("Permission check failed")

// MissingPermissionError is returned when the identity lacks a permission.
type MissingPermissionError struct {
	Permission string
}

func (e *MissingPermissionError) Error() string {
	return fmt.Sprintf("Missing required permission: %s", e.Permission)
}

// Authorizer guards routes with permission checks. It must run after the
// Authenticator.
type Authorizer struct {
	Audit   *audit.Logger
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewAuthorizer creates the authorization middleware factory.
func NewAuthorizer(auditLogger *audit.Logger, m *metrics.Metrics, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{Audit: auditLogger, Metrics: m, Logger: logger}
}

// Check reports whether id holds perm. Holding a permission is the only
// way through; superusers get no bypass.
func Check(id *identity.Identity, perm string) error {
	if perm == "" {
		return ErrUnresolved
	}
	if id == nil || !id.Has(perm) {
		return &MissingPermissionError{Permission: perm}
	}
	return nil
}

// Require returns middleware that admits only identities holding perm.
func (a *Authorizer) Require(perm string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.allow(w, r, perm) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// Auto returns middleware that derives the permission from the request
// method and path, e.g. GET /api/v1/profiles/42 requires profiles:read.
// A non-empty override is used instead of the derived name.
func (a *Authorizer) Auto(override string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			perm := override
			if perm == "" {
				perm, _ = permission.Infer(r.Method, r.URL.Path)
			}
			if a.allow(w, r, perm) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// allow writes the 403 response and returns false when the check fails.
func (a *Authorizer) allow(w http.ResponseWriter, r *http.Request, perm string) bool {
	id, _ := identity.Get(r.Context())
	err := Check(id, perm)
	if err == nil {
		return true
	}

	user, ip := "", ""
	if id != nil {
		user, ip = id.Email(), id.ClientIP()
	}
	if errors.Is(err, ErrUnresolved) {
		a.Logger.WarnContext(r.Context(), "could not determine permission for request",
			"method", r.Method, "path", r.URL.Path, "user", user)
	} else {
		a.Logger.WarnContext(r.Context(), "permission denied",
			"user", user, "permission", perm, "method", r.Method, "path", r.URL.Path)
	}
	a.Metrics.AuthzDenied(perm)
	a.Audit.Log(audit.CheckEvent{
		User:       user,
		ClientIP:   ip,
		Method:     r.Method,
		Path:       r.URL.Path,
		Permission: perm,
		Allowed:    false,
	})
	writeDetail(w, http.StatusForbidden, err.Error())
	return false
}

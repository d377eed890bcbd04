// Package server provides the HTTP server for the saasgate API.
//
// # Server Setup
//
//	srv, err := server.NewServer(cfg, db, logger, "0.0.0.0", "8000")
//	if err != nil {
//	    return err
//	}
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//
// # Components
//
// The Server struct holds:
//
//   - Config: the immutable configuration
//   - Router: gorilla/mux router, instrumented for Prometheus
//   - Stores: users, roles, permissions, payments, health and audit
//   - Accounts: registration, login, verification and password reset
//   - Payments: the payment service and its providers
//   - Authenticator and Authorizer: the per-route middleware
//
// # Handler chain
//
// Handler wraps the router, outermost first, in the combined access log,
// proxy header handling, panic recovery, security headers and, when
// origins are configured, CORS.
//
// # Endpoints
//
// API endpoints are registered via the endpoints subpackage:
//
//	endpoints.RegisterAll(srv)
//
// This registers:
//
//   - /api/v1/auth/... - login, logout, registration, verification, reset
//   - /api/v1/users/... - self-service and administrative user management
//   - /api/v1/profiles/... - profile reads
//   - /api/v1/rbac/... - roles, permissions and assignments
//   - /api/v1/payments/... - payment lifecycle
//   - /api/v1/admin/... - system status and the audit trail
//   - /healthz, /metrics
package server

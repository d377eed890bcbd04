package endpoints

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/doodlesbykumbi/saasgate/pkg/audit"
	"github.com/doodlesbykumbi/saasgate/pkg/authn"
	"github.com/doodlesbykumbi/saasgate/pkg/identity"
	"github.com/doodlesbykumbi/saasgate/pkg/metrics"
	"github.com/doodlesbykumbi/saasgate/pkg/server"
)

// LoginRequest is accepted as a form or as JSON.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// EmailRequest names an account for forgot-password and verification.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// VerifyRequest completes email verification.
type VerifyRequest struct {
	Token string `json:"token" validate:"required"`
}

// RegisterAuthEndpoints registers /api/v1/auth. Login, register and
// forgot-password are rate limited per client IP.
func RegisterAuthEndpoints(s *server.Server) {
	accounts := s.Accounts
	auditLogger := s.Audit
	m := s.Metrics
	logger := s.Logger

	authRouter := s.Router.PathPrefix("/api/v1/auth").Subrouter()

	limit := func(h http.Handler) http.Handler { return h }
	if s.Config.AuthRateLimit > 0 {
		limit = httprate.Limit(s.Config.AuthRateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				respondWithError(w, http.StatusTooManyRequests, "Too many requests")
			}),
		)
	}

	authRouter.Handle("/jwt/login", limit(handleLogin(accounts, auditLogger, m, logger))).Methods("POST")
	authRouter.Handle("/jwt/logout", s.Authenticator.Middleware(handleLogout(s.Revoker, logger))).Methods("POST")
	authRouter.Handle("/register", limit(handleRegister(accounts, logger))).Methods("POST")
	authRouter.Handle("/forgot-password", limit(handleForgotPassword(accounts, logger))).Methods("POST")
	authRouter.HandleFunc("/reset-password", handleResetPassword(accounts, auditLogger, logger)).Methods("POST")
	authRouter.HandleFunc("/request-verify-token", handleRequestVerifyToken(accounts, logger)).Methods("POST")
	authRouter.HandleFunc("/verify", handleVerify(accounts, logger)).Methods("POST")
}

func decodeLogin(r *http.Request) (LoginRequest, error) {
	var req LoginRequest
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return req, invalidField("body", "invalid form")
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
		return req, validate.Struct(&req)
	}
	return req, decodeJSON(r, &req)
}

func handleLogin(accounts *authn.Manager, auditLogger *audit.Logger, m *metrics.Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeLogin(r)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		token, _, err := accounts.Login(r.Context(), req.Username, req.Password)
		event := audit.AuthenticateEvent{
			Email:    req.Username,
			ClientIP: clientIP(r),
			Method:   "password",
			Success:  err == nil,
		}
		if err != nil {
			event.ErrorMessage = err.Error()
		}
		auditLogger.Log(event)
		m.Login(err == nil)

		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
	}
}

func handleLogout(revoker authn.Revoker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		if err := revoker.Revoke(r.Context(), id.TokenID, id.ExpiresAt); err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondNoContent(w)
	}
}

func handleRegister(accounts *authn.Manager, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		user, err := accounts.Register(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, userView(user))
	}
}

func handleForgotPassword(accounts *authn.Manager, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EmailRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		if _, err := accounts.ForgotPassword(r.Context(), req.Email); err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusAccepted, nil)
	}
}

func handleResetPassword(accounts *authn.Manager, auditLogger *audit.Logger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetPasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		user, err := accounts.ResetPassword(r.Context(), req.Token, req.Password)
		event := audit.PasswordEvent{
			ClientIP:  clientIP(r),
			Operation: "reset",
			Success:   err == nil,
		}
		if user != nil {
			event.Email = user.Email
		}
		if err != nil {
			event.ErrorMessage = err.Error()
		}
		auditLogger.Log(event)

		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, nil)
	}
}

func handleRequestVerifyToken(accounts *authn.Manager, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EmailRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		if _, err := accounts.RequestVerify(r.Context(), req.Email); err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusAccepted, nil)
	}
}

func handleVerify(accounts *authn.Manager, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifyRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		user, err := accounts.Verify(r.Context(), req.Token)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, userView(user))
	}
}

package authn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

// Error is a machine-readable failure code returned to clients as the
// response detail.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrBadCredentials     Error = "LOGIN_BAD_CREDENTIALS"
	ErrUserAlreadyExists  Error = "REGISTER_USER_ALREADY_EXISTS"
	ErrResetBadToken      Error = "RESET_PASSWORD_BAD_TOKEN"
	ErrVerifyBadToken     Error = "VERIFY_USER_BAD_TOKEN"
	ErrAlreadyVerified    Error = "VERIFY_USER_ALREADY_VERIFIED"
	ErrEmailAlreadyExists Error = "UPDATE_USER_EMAIL_ALREADY_EXISTS"
)

// Manager implements the account lifecycle: registration, login, email
// verification, password reset and self-service updates.
type Manager struct {
	users  store.UsersStore
	tokens *Tokens
	logger *slog.Logger
}

// NewManager creates a Manager.
func NewManager(users store.UsersStore, tokens *Tokens, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{users: users, tokens: tokens, logger: logger}
}

// Tokens returns the token issuer the manager signs with.
func (m *Manager) Tokens() *Tokens {
	return m.tokens
}

// Register creates an active, unverified, non-superuser account.
func (m *Manager) Register(ctx context.Context, email, password string) (*model.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Email:          email,
		HashedPassword: hash,
		IsActive:       true,
	}
	if err := m.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	m.logger.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Authenticate checks credentials and returns the user. Unknown emails,
// wrong passwords and inactive accounts all yield ErrBadCredentials.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := m.users.FetchUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		burnPasswordCheck(password)
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if !CheckPassword(u.HashedPassword, password) || !u.IsActive {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// Login authenticates and issues an access token.
func (m *Manager) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	u, err := m.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	token, _, err := m.tokens.IssueAccess(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// RequestVerify issues a verification token for an active, unverified
// user. The token is returned as "" when no token should be sent; callers
// must answer the same way in both cases.
func (m *Manager) RequestVerify(ctx context.Context, email string) (string, error) {
	u, err := m.users.FetchUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if !u.IsActive || u.IsVerified {
		return "", nil
	}
	token, err := m.tokens.IssueVerify(u)
	if err != nil {
		return "", err
	}
	m.logger.InfoContext(ctx, "verification requested", "user_id", u.ID, "token", token)
	return token, nil
}

// Verify marks the user named by a verification token as verified.
func (m *Manager) Verify(ctx context.Context, token string) (*model.User, error) {
	claims, err := m.tokens.ParseVerify(token)
	if err != nil {
		return nil, ErrVerifyBadToken
	}
	id, _ := claims.UserID()
	u, err := m.users.FetchUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrVerifyBadToken
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	// The token is bound to the address it was sent to.
	if u.Email != claims.Email {
		return nil, ErrVerifyBadToken
	}
	if u.IsVerified {
		return nil, ErrAlreadyVerified
	}
	u.IsVerified = true
	if err := m.users.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	m.logger.InfoContext(ctx, "user verified", "user_id", u.ID)
	return u, nil
}

// ForgotPassword issues a reset token for an active user. Like
// RequestVerify it returns "" when nothing is sent.
func (m *Manager) ForgotPassword(ctx context.Context, email string) (string, error) {
	u, err := m.users.FetchUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if !u.IsActive {
		return "", nil
	}
	token, err := m.tokens.IssueReset(u)
	if err != nil {
		return "", err
	}
	m.logger.InfoContext(ctx, "password reset requested", "user_id", u.ID, "token", token)
	return token, nil
}

// ResetPassword sets a new password using a reset token. A token stops
// working as soon as the password it was issued against changes.
func (m *Manager) ResetPassword(ctx context.Context, token, password string) (*model.User, error) {
	claims, err := m.tokens.ParseReset(token)
	if err != nil {
		return nil, ErrResetBadToken
	}
	id, _ := claims.UserID()
	u, err := m.users.FetchUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrResetBadToken
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if !u.IsActive || !claims.MatchesPassword(u) {
		return nil, ErrResetBadToken
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u.HashedPassword = hash
	if err := m.users.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	m.logger.InfoContext(ctx, "password reset", "user_id", u.ID)
	return u, nil
}

// UserUpdate holds the optional fields of a user update. Nil means keep.
// The flag fields are only honoured for administrative updates.
type UserUpdate struct {
	Email       *string
	Password    *string
	IsActive    *bool
	IsSuperuser *bool
	IsVerified  *bool
}

// UpdateUser applies an update to u. With safe set only email and password
// may change. A changed email clears the verified flag.
func (m *Manager) UpdateUser(ctx context.Context, u *model.User, upd UserUpdate, safe bool) (*model.User, error) {
	if upd.Email != nil && !strings.EqualFold(strings.TrimSpace(*upd.Email), u.Email) {
		existing, err := m.users.FetchUserByEmail(ctx, *upd.Email)
		switch {
		case err == nil && existing.ID != u.ID:
			return nil, ErrEmailAlreadyExists
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("fetch user: %w", err)
		}
		u.Email = *upd.Email
		u.IsVerified = false
	}
	if upd.Password != nil {
		hash, err := HashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		u.HashedPassword = hash
	}
	if !safe {
		if upd.IsActive != nil {
			u.IsActive = *upd.IsActive
		}
		if upd.IsSuperuser != nil {
			u.IsSuperuser = *upd.IsSuperuser
		}
		if upd.IsVerified != nil {
			u.IsVerified = *upd.IsVerified
		}
	}
	if err := m.users.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

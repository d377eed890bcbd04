package endpoints

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/saasgate/pkg/config"
)

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	t.Run("creates an active unverified user", func(t *testing.T) {
		w := ts.do("POST", "/api/v1/auth/register", "", RegisterRequest{Email: "New@Example.com", Password: testPassword})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var user UserRead
		decode(t, w, &user)
		assert.Equal(t, "new@example.com", user.Email)
		assert.True(t, user.IsActive)
		assert.False(t, user.IsVerified)
		assert.False(t, user.IsSuperuser)
		assert.Empty(t, user.Roles)
		assert.NotContains(t, w.Body.String(), "password")
	})

	t.Run("rejects a duplicate email", func(t *testing.T) {
		w := ts.do("POST", "/api/v1/auth/register", "", RegisterRequest{Email: "new@example.com", Password: testPassword})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "REGISTER_USER_ALREADY_EXISTS", detailOf(t, w))
	})

	t.Run("validates the body", func(t *testing.T) {
		w := ts.do("POST", "/api/v1/auth/register", "", map[string]string{"email": "not-an-email", "password": "short"})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var body ValidationErrorResponse
		decode(t, w, &body)
		assert.Equal(t, "Validation Error", body.Detail)
		fields := map[string]string{}
		for _, fe := range body.Errors {
			fields[fe.Field] = fe.Message
		}
		assert.Equal(t, "value is not a valid email address", fields["email"])
		assert.Equal(t, "must be at least 8 characters", fields["password"])
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		w := ts.do("POST", "/api/v1/auth/register", "", "{not json")
		require.Equal(t, http.StatusBadRequest, w.Code)
		var body ValidationErrorResponse
		decode(t, w, &body)
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "body", body.Errors[0].Field)
	})
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	user, _ := ts.createUser("alice@example.com")

	t.Run("accepts JSON credentials", func(t *testing.T) {
		w := ts.do("POST", "/api/v1/auth/jwt/login", "", LoginRequest{Username: "alice@example.com", Password: testPassword})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var token TokenResponse
		decode(t, w, &token)
		assert.Equal(t, "bearer", token.TokenType)

		claims, err := ts.Tokens.ParseAccess(token.AccessToken)
		require.NoError(t, err)
		id, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, user.ID, id)
	})

	t.Run("accepts form credentials", func(t *testing.T) {
		form := url.Values{"username": {"ALICE@example.com"}, "password": {testPassword}}
		req := httptest.NewRequest("POST", "/api/v1/auth/jwt/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		ts.handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		w := ts.do("POST", "/api/v1/auth/jwt/login", "", LoginRequest{Username: "alice@example.com", Password: "wrong-password"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "LOGIN_BAD_CREDENTIALS", detailOf(t, w))
	})

	t.Run("rejects an unknown user", func(t *testing.T) {
		w := ts.do("POST", "/api/v1/auth/jwt/login", "", LoginRequest{Username: "nobody@example.com", Password: testPassword})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "LOGIN_BAD_CREDENTIALS", detailOf(t, w))
	})

	t.Run("rejects an inactive user", func(t *testing.T) {
		inactive, _ := ts.createUser("inactive@example.com")
		inactive.IsActive = false
		require.NoError(t, ts.UsersStore.UpdateUser(context.Background(), inactive))

		w := ts.do("POST", "/api/v1/auth/jwt/login", "", LoginRequest{Username: "inactive@example.com", Password: testPassword})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "LOGIN_BAD_CREDENTIALS", detailOf(t, w))
	})

	t.Run("records the attempts in the audit trail", func(t *testing.T) {
		messages, err := ts.AuditStore.Recent(context.Background(), "authn", 100)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(messages), 4)
	})
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createUser("bob@example.com")

	w := ts.do("GET", "/api/v1/profiles/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do("POST", "/api/v1/auth/jwt/logout", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = ts.do("GET", "/api/v1/profiles/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	t.Run("requires a token", func(t *testing.T) {
		w := ts.do("POST", "/api/v1/auth/jwt/logout", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Unauthorized", detailOf(t, w))
	})
}

func TestPasswordReset(t *testing.T) {
	ts := newTestServer(t)
	user, _ := ts.createUser("carol@example.com")

	t.Run("forgot-password always answers 202", func(t *testing.T) {
		for _, email := range []string{"carol@example.com", "unknown@example.com"} {
			w := ts.do("POST", "/api/v1/auth/forgot-password", "", EmailRequest{Email: email})
			assert.Equal(t, http.StatusAccepted, w.Code, email)
		}
	})

	token, err := ts.Tokens.IssueReset(user)
	require.NoError(t, err)

	t.Run("rejects a bad token", func(t *testing.T) {
		w := ts.do("POST", "/api/v1/auth/reset-password", "", ResetPasswordRequest{Token: "garbage", Password: "another-password"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "RESET_PASSWORD_BAD_TOKEN", detailOf(t, w))
	})

	t.Run("resets the password once", func(t *testing.T) {
		w := ts.do("POST", "/api/v1/auth/reset-password", "", ResetPasswordRequest{Token: token, Password: "another-password"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = ts.do("POST", "/api/v1/auth/jwt/login", "", LoginRequest{Username: "carol@example.com", Password: "another-password"})
		assert.Equal(t, http.StatusOK, w.Code)

		w = ts.do("POST", "/api/v1/auth/reset-password", "", ResetPasswordRequest{Token: token, Password: "third-password"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "RESET_PASSWORD_BAD_TOKEN", detailOf(t, w))
	})
}

func TestVerify(t *testing.T) {
	ts := newTestServer(t)
	user, _ := ts.createUser("dave@example.com")

	w := ts.do("POST", "/api/v1/auth/request-verify-token", "", EmailRequest{Email: "dave@example.com"})
	assert.Equal(t, http.StatusAccepted, w.Code)

	token, err := ts.Tokens.IssueVerify(user)
	require.NoError(t, err)

	w = ts.do("POST", "/api/v1/auth/verify", "", VerifyRequest{Token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var read UserRead
	decode(t, w, &read)
	assert.True(t, read.IsVerified)

	w = ts.do("POST", "/api/v1/auth/verify", "", VerifyRequest{Token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VERIFY_USER_ALREADY_VERIFIED", detailOf(t, w))

	w = ts.do("POST", "/api/v1/auth/verify", "", VerifyRequest{Token: "garbage"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VERIFY_USER_BAD_TOKEN", detailOf(t, w))
}

func TestAuthRateLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) { cfg.AuthRateLimit = 2 })

	body := LoginRequest{Username: "nobody@example.com", Password: testPassword}
	assert.Equal(t, http.StatusBadRequest, ts.do("POST", "/api/v1/auth/jwt/login", "", body).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do("POST", "/api/v1/auth/jwt/login", "", body).Code)

	w := ts.do("POST", "/api/v1/auth/jwt/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests", detailOf(t, w))
}

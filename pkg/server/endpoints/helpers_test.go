package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/saasgate/pkg/authn"
	"github.com/doodlesbykumbi/saasgate/pkg/config"
	"github.com/doodlesbykumbi/saasgate/pkg/db/dbtest"
	"github.com/doodlesbykumbi/saasgate/pkg/logging"
	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/server"
)

const (
	testSecretKey     = "test-secret-key-with-enough-entropy"
	testSandboxSecret = "sandbox-secret"
	testPassword      = "correct-horse-battery"
)

type testServer struct {
	*server.Server
	t       *testing.T
	handler http.Handler
	redis   *miniredis.Miniredis
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:              testSecretKey,
		DatabaseURL:            "sqlite://memory",
		PaymentSandboxSecret:   testSandboxSecret,
		DefaultPaymentProvider: "sandbox",
		DefaultCurrency:        "INR",
		AccessTokenTTL:         3600,
		VerifyTokenTTL:         3600,
		ResetPasswordTokenTTL:  3600,
		APIListLimitMax:        50,
		LogLevel:               "info",
		LogFormat:              "text",
		AppEnv:                 "development",
	}
}

// newTestServer builds a fully wired server over an in-memory database with
// the sandbox payment provider and a miniredis-backed revoker.
func newTestServer(t *testing.T, tweak ...func(*config.Config)) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	for _, f := range tweak {
		f(cfg)
	}

	srv, err := server.NewServer(cfg, dbtest.New(t), logging.Discard(), "127.0.0.1", "0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	srv.Audit.SetWriter(io.Discard)
	srv.AccessLog = nil
	RegisterAll(srv)

	return &testServer{Server: srv, t: t, handler: srv.Handler(), redis: mr}
}

// createUser stores an active user holding a role with perms and returns it
// with an access token.
func (ts *testServer) createUser(email string, perms ...string) (*model.User, string) {
	ts.t.Helper()
	ctx := context.Background()

	hash, err := authn.HashPassword(testPassword)
	require.NoError(ts.t, err)
	user := &model.User{Email: email, HashedPassword: hash, IsActive: true}
	require.NoError(ts.t, ts.UsersStore.CreateUser(ctx, user))

	if len(perms) > 0 {
		rows, err := ts.PermissionsStore.EnsurePermissions(ctx, perms)
		require.NoError(ts.t, err)
		role := &model.Role{Name: "role for " + email, Permissions: rows}
		require.NoError(ts.t, ts.RolesStore.CreateRole(ctx, role))
		require.NoError(ts.t, ts.RolesStore.AddUserRole(ctx, user.ID, role.ID))
	}

	token, _, err := ts.Tokens.IssueAccess(user)
	require.NoError(ts.t, err)
	return user, token
}

func (ts *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), "body: %s", w.Body.String())
}

func detailOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	decode(t, w, &body)
	return body.Detail
}

package endpoints

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/saasgate/pkg/logging"
)

func TestHandleHealth(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		db := &MockHealthStore{}
		db.On("CheckConnectivity", mock.Anything).Return(nil)
		cache := &MockPinger{}
		cache.On("Ping", mock.Anything).Return(nil)

		w := httptest.NewRecorder()
		handleHealth(db, cache, logging.Discard())(w, httptest.NewRequest("GET", "/healthz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var body HealthResponse
		decode(t, w, &body)
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, body.Checks)
		db.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("database down", func(t *testing.T) {
		db := &MockHealthStore{}
		db.On("CheckConnectivity", mock.Anything).Return(errors.New("connection refused"))

		w := httptest.NewRecorder()
		handleHealth(db, nil, logging.Discard())(w, httptest.NewRequest("GET", "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var body HealthResponse
		decode(t, w, &body)
		assert.Equal(t, "error", body.Status)
		assert.Equal(t, map[string]string{"database": "unavailable"}, body.Checks)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})

	t.Run("redis down", func(t *testing.T) {
		db := &MockHealthStore{}
		db.On("CheckConnectivity", mock.Anything).Return(nil)
		cache := &MockPinger{}
		cache.On("Ping", mock.Anything).Return(errors.New("i/o timeout"))

		w := httptest.NewRecorder()
		handleHealth(db, cache, logging.Discard())(w, httptest.NewRequest("GET", "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var body HealthResponse
		decode(t, w, &body)
		assert.Equal(t, "unavailable", body.Checks["redis"])
		assert.Equal(t, "ok", body.Checks["database"])
	})
}

func TestStatusEndpoints(t *testing.T) {
	ts := newTestServer(t)

	t.Run("healthz against sqlite and miniredis", func(t *testing.T) {
		w := ts.do("GET", "/healthz", "", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var body HealthResponse
		decode(t, w, &body)
		assert.Equal(t, "ok", body.Checks["database"])
		assert.Equal(t, "ok", body.Checks["redis"])
	})

	t.Run("healthz reports a stopped redis", func(t *testing.T) {
		ts.redis.Close()
		w := ts.do("GET", "/healthz", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		ts.do("POST", "/api/v1/auth/jwt/login", "", LoginRequest{Username: "nobody@example.com", Password: testPassword})

		w := ts.do("GET", "/metrics", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "http_requests_total")
		assert.Contains(t, w.Body.String(), `path="/healthz"`)
		assert.Contains(t, w.Body.String(), "logins_total")
	})
}

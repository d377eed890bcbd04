package benchmark

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
)

// Runs against a live server:
//
//	SAASGATE_BENCH_URL=http://localhost:8000 \
//	SAASGATE_BENCH_EMAIL=admin@example.com SAASGATE_BENCH_PASSWORD=... \
//	go test -bench . ./benchmark
func benchTarget(b *testing.B) (string, string) {
	b.Helper()
	baseURL := os.Getenv("SAASGATE_BENCH_URL")
	if baseURL == "" {
		b.Skip("SAASGATE_BENCH_URL not set")
	}

	form := url.Values{
		"username": {os.Getenv("SAASGATE_BENCH_EMAIL")},
		"password": {os.Getenv("SAASGATE_BENCH_PASSWORD")},
	}
	resp, err := http.Post(baseURL+"/api/v1/auth/jwt/login", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		b.Fatalf("login: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		b.Fatalf("login: status %d", resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		b.Fatalf("login: %v", err)
	}
	return baseURL, token.AccessToken
}

func BenchmarkAuthorizedRequests(b *testing.B) {
	baseURL, token := benchTarget(b)

	paths := map[string]string{
		"authenticated only: GET /users/me": "/api/v1/users/me",
		"users:read: GET /users/{id}":       "/api/v1/users/1",
		"own payments: GET /payments":       "/api/v1/payments/",
		"rbac:manage: GET /rbac/roles":      "/api/v1/rbac/roles",
		"unauthenticated: GET /healthz":     "/healthz",
	}

	for name, path := range paths {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				r, _ := http.NewRequest("GET", baseURL+path, nil)
				r.Header.Add("Authorization", "Bearer "+token)
				resp, err := http.DefaultClient.Do(r)
				if err == nil {
					_ = resp.Body.Close()
				}
			}
		})
	}
}

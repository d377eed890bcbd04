package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/saasgate/pkg/bootstrap"
	"github.com/doodlesbykumbi/saasgate/pkg/config"
	"github.com/doodlesbykumbi/saasgate/pkg/logging"
	"github.com/doodlesbykumbi/saasgate/pkg/server"
	"github.com/doodlesbykumbi/saasgate/pkg/server/endpoints"
	gormstore "github.com/doodlesbykumbi/saasgate/pkg/server/store/gorm"
)

const (
	testSecretKey         = "integration-secret-key-0123456789abcdef"
	testSandboxSecret     = "integration-sandbox-secret"
	testSuperuserEmail    = "admin@example.com"
	testSuperuserPassword = "admin-password-123"
	testServerPort        = "18080"
)

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB             *gorm.DB
	RawDB          *sql.DB
	Containers     []testcontainers.Container
	ServerURL      string
	DatabaseURL    string
	RedisURL       string
	HTTPClient     *http.Client
	Cancel         context.CancelFunc
	ServerProcess  *exec.Cmd
	InlineServer   *server.Server
	SandboxSecret  string
	SecretKey      string
	SuperuserEmail string
	SuperuserPass  string
}

// NewTestContext starts PostgreSQL and Redis testcontainers, migrates the
// schema and starts the server.
// Modes:
//   - Binary mode (default): Set SAASGATE_BINARY to the path of the saasctl binary
//   - Inline mode: Set SAASGATE_INLINE=1 to run the server in-process (no binary needed)
func NewTestContext(ctx context.Context) (*TestContext, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}
	migrationsDir := filepath.Join(projectRoot, "db", "migrations")

	inlineMode := os.Getenv("SAASGATE_INLINE") == "1"
	binaryPath := os.Getenv("SAASGATE_BINARY")

	if !inlineMode && binaryPath == "" {
		return nil, fmt.Errorf("Either SAASGATE_BINARY or SAASGATE_INLINE=1 is required.\n\nBinary mode:\n  go build -o saasctl ./cmd/saasctl\n  INTEGRATION_TEST=1 SAASGATE_BINARY=$(pwd)/saasctl go test -v ./test/integration/...\n\nInline mode:\n  INTEGRATION_TEST=1 SAASGATE_INLINE=1 go test -v ./test/integration/...")
	}
	if !inlineMode {
		if _, err := os.Stat(binaryPath); err != nil {
			return nil, fmt.Errorf("SAASGATE_BINARY path does not exist: %s", binaryPath)
		}
		log.Printf("Using binary: %s", binaryPath)
	} else {
		log.Println("Using inline server mode")
	}

	tc := &TestContext{
		HTTPClient:     &http.Client{Timeout: 10 * time.Second},
		SandboxSecret:  testSandboxSecret,
		SecretKey:      testSecretKey,
		SuperuserEmail: testSuperuserEmail,
		SuperuserPass:  testSuperuserPassword,
		ServerURL:      "http://127.0.0.1:" + testServerPort,
	}

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("saasgate_test"),
		tcpostgres.WithUsername("saasgate"),
		tcpostgres.WithPassword("saasgate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}
	tc.Containers = append(tc.Containers, pgContainer)

	tc.DatabaseURL, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		tc.Close(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	redisURL, err := startRedis(ctx, tc)
	if err != nil {
		tc.Close(ctx)
		return nil, err
	}
	tc.RedisURL = redisURL

	if err := runMigrations(tc.DatabaseURL, migrationsDir); err != nil {
		tc.Close(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Raw lib/pq connection for assertions
	tc.RawDB, err = sql.Open("postgres", tc.DatabaseURL)
	if err != nil {
		tc.Close(ctx)
		return nil, fmt.Errorf("failed to open raw db: %w", err)
	}

	tc.DB, err = gorm.Open(gormpostgres.New(gormpostgres.Config{
		DSN:                  tc.DatabaseURL,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tc.Close(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if inlineMode {
		err = startInlineServer(ctx, tc)
	} else {
		err = startBinary(binaryPath, tc)
	}
	if err != nil {
		tc.Close(ctx)
		return nil, err
	}

	if err := waitForServer(tc.ServerURL, 30*time.Second); err != nil {
		tc.Close(ctx)
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}
	return tc, nil
}

func startRedis(ctx context.Context, tc *TestContext) (string, error) {
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start redis container: %w", err)
	}
	tc.Containers = append(tc.Containers, redisContainer)

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to get redis endpoint: %w", err)
	}
	return "redis://" + endpoint, nil
}

func (tc *TestContext) config() *config.Config {
	return &config.Config{
		SecretKey:              tc.SecretKey,
		DatabaseURL:            tc.DatabaseURL,
		FirstSuperuserEmail:    tc.SuperuserEmail,
		FirstSuperuserPassword: tc.SuperuserPass,
		PaymentSandboxSecret:   tc.SandboxSecret,
		DefaultPaymentProvider: "sandbox",
		DefaultCurrency:        "INR",
		AccessTokenTTL:         3600,
		VerifyTokenTTL:         3600,
		ResetPasswordTokenTTL:  3600,
		APIListLimitMax:        1000,
		LogLevel:               "warn",
		LogFormat:              "text",
		RedisURL:               tc.RedisURL,
		AppEnv:                 "development",
	}
}

// startInlineServer seeds the database and starts the server in-process
func startInlineServer(ctx context.Context, tc *TestContext) error {
	cfg := tc.config()
	logger := logging.New(cfg)

	_, err := bootstrap.Seed(ctx, bootstrap.Stores{
		Users:       gormstore.NewUsersStore(tc.DB),
		Roles:       gormstore.NewRolesStore(tc.DB),
		Permissions: gormstore.NewPermissionsStore(tc.DB),
	}, bootstrap.Options{Email: cfg.FirstSuperuserEmail, Password: cfg.FirstSuperuserPassword, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to seed: %w", err)
	}

	s, err := server.NewServer(cfg, tc.DB, logger, "127.0.0.1", testServerPort)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	s.AccessLog = nil
	endpoints.RegisterAll(s)

	listener, err := net.Listen("tcp", "127.0.0.1:"+testServerPort)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", testServerPort, err)
	}
	go func() {
		_ = s.StartWithListener(listener)
	}()

	tc.InlineServer = s
	tc.Cancel = func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}
	return nil
}

// startBinary starts the saasctl server binary, which seeds on start
func startBinary(binaryPath string, tc *TestContext) error {
	ctx, cancel := context.WithCancel(context.Background())

	// Use --no-migrate since migrations already ran in the test setup
	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "-b", "127.0.0.1", "-p", testServerPort)
	cmd.Env = append(os.Environ(),
		"DATABASE_URL="+tc.DatabaseURL,
		"SECRET_KEY="+tc.SecretKey,
		"FIRST_SUPERUSER_EMAIL="+tc.SuperuserEmail,
		"FIRST_SUPERUSER_PASSWORD="+tc.SuperuserPass,
		"PAYMENT_SANDBOX_SECRET="+tc.SandboxSecret,
		"DEFAULT_PAYMENT_PROVIDER=sandbox",
		"REDIS_URL="+tc.RedisURL,
		"APP_ENV=development",
		"AUTH_RATE_LIMIT=0",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start binary: %w", err)
	}
	tc.ServerProcess = cmd
	tc.Cancel = cancel
	return nil
}

// waitForServer polls /healthz until it responds or times out
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.Cancel != nil {
		tc.Cancel()
	}
	if tc.ServerProcess != nil && tc.ServerProcess.Process != nil {
		_ = tc.ServerProcess.Process.Kill()
		_ = tc.ServerProcess.Wait()
	}
	if tc.RawDB != nil {
		_ = tc.RawDB.Close()
	}
	for _, c := range tc.Containers {
		_ = c.Terminate(ctx)
	}
}

// findProjectRoot locates the project root directory
func findProjectRoot() (string, error) {
	for _, p := range []string{"../..", "..", "."} {
		if _, err := os.Stat(filepath.Join(p, "go.mod")); err == nil {
			return filepath.Abs(p)
		}
	}
	return "", fmt.Errorf("project root not found (looking for go.mod)")
}

// runMigrations applies db/migrations with golang-migrate, the same way
// `saasctl db migrate` does.
func runMigrations(dbURL, migrationsDir string) error {
	m, err := migrate.New("file://"+migrationsDir, dbURL+"&x-migrations-table=saasgate_schema_migrations")
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

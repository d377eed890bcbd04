package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/unrolled/secure"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/saasgate/pkg/audit"
	"github.com/doodlesbykumbi/saasgate/pkg/authn"
	"github.com/doodlesbykumbi/saasgate/pkg/config"
	"github.com/doodlesbykumbi/saasgate/pkg/metrics"
	"github.com/doodlesbykumbi/saasgate/pkg/payment"
	"github.com/doodlesbykumbi/saasgate/pkg/payment/razorpay"
	"github.com/doodlesbykumbi/saasgate/pkg/payment/sandbox"
	"github.com/doodlesbykumbi/saasgate/pkg/server/middleware"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
	gormstore "github.com/doodlesbykumbi/saasgate/pkg/server/store/gorm"
)

// Server holds everything the endpoints need: configuration, the router,
// the stores and the services built on them.
type Server struct {
	Config  *config.Config
	Router  *mux.Router
	DB      *gorm.DB
	Logger  *slog.Logger
	Audit   *audit.Logger
	Metrics *metrics.Metrics

	UsersStore       store.UsersStore
	RolesStore       store.RolesStore
	PermissionsStore store.PermissionsStore
	PaymentsStore    store.PaymentsStore
	HealthStore      store.HealthStore
	AuditStore       *audit.Store

	Tokens   *authn.Tokens
	Revoker  authn.Revoker
	Accounts *authn.Manager
	Payments *payment.Service

	Authenticator *middleware.Authenticator
	Authorizer    *middleware.Authorizer

	// AccessLog receives the combined access log; nil disables it
	AccessLog io.Writer

	srv *http.Server
}

// NewServer wires the stores and services for db according to cfg.
func NewServer(cfg *config.Config, db *gorm.DB, logger *slog.Logger, host, port string) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		Config:           cfg,
		Router:           mux.NewRouter(),
		DB:               db,
		Logger:           logger,
		Metrics:          metrics.New(),
		UsersStore:       gormstore.NewUsersStore(db),
		RolesStore:       gormstore.NewRolesStore(db),
		PermissionsStore: gormstore.NewPermissionsStore(db),
		PaymentsStore:    gormstore.NewPaymentsStore(db),
		HealthStore:      gormstore.NewHealthStore(db),
		AuditStore:       audit.NewStore(db),
		AccessLog:        os.Stdout,
	}
	s.Audit = audit.NewLogger().SetStore(s.AuditStore).SetErrorLogger(logger)

	s.Tokens = authn.NewTokens(cfg.SecretKey, authn.TokenLifetimes{
		Access: cfg.AccessTokenLifetime(),
		Verify: cfg.VerifyTokenLifetime(),
		Reset:  cfg.ResetPasswordTokenLifetime(),
	})
	s.Revoker = authn.NopRevoker{}
	if cfg.RedisURL != "" {
		revoker, err := authn.NewRedisRevokerFromURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		s.Revoker = revoker
	}
	s.Accounts = authn.NewManager(s.UsersStore, s.Tokens, logger)

	providers := NewProviderRegistry(cfg)
	if _, ok := providers.Get(cfg.DefaultPaymentProvider); !ok {
		logger.Warn("default payment provider is not configured",
			"provider", cfg.DefaultPaymentProvider, "configured", providers.Names())
	}
	s.Payments = payment.NewService(s.PaymentsStore, providers, payment.Options{
		DefaultProvider: cfg.DefaultPaymentProvider,
		DefaultCurrency: cfg.DefaultCurrency,
		Audit:           s.Audit,
		Metrics:         s.Metrics,
		Logger:          logger,
	})

	s.Authenticator = middleware.NewAuthenticator(s.Tokens, s.UsersStore, s.Revoker, logger)
	s.Authorizer = middleware.NewAuthorizer(s.Audit, s.Metrics, logger)

	s.Router.Use(s.Metrics.Instrument)

	s.srv = &http.Server{
		Addr:              net.JoinHostPort(host, port),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// NewProviderRegistry registers the payment providers that have
// credentials in cfg.
func NewProviderRegistry(cfg *config.Config) *payment.Registry {
	registry := payment.NewRegistry()
	if cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != "" {
		registry.Register(razorpay.New(cfg.RazorpayKeyID, cfg.RazorpayKeySecret))
	}
	if cfg.PaymentSandboxSecret != "" {
		registry.Register(sandbox.New(cfg.PaymentSandboxSecret))
	}
	return registry
}

// Handler returns the router wrapped in the outer middleware chain: access
// log, proxy headers, panic recovery, security headers and CORS.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router

	if len(s.Config.CORSOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.Config.CORSOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
			handlers.AllowCredentials(),
		)(h)
	}

	h = secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		STSSeconds:         31536000,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      s.Config.IsDevelopment(),
	}).Handler(h)

	h = middleware.Recoverer(s.Logger)(h)
	h = handlers.ProxyHeaders(h)

	if s.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(s.AccessLog, h)
	}
	return h
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	s.srv.Handler = s.Handler()
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// StartWithListener serves on an existing listener.
func (s *Server) StartWithListener(l net.Listener) error {
	s.srv.Handler = s.Handler()
	err := s.srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Shutdown stops accepting connections, waits for in-flight requests and
// releases the Redis connection if one is open.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	if closer, ok := s.Revoker.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close revoker: %w", cerr)
		}
	}
	return err
}

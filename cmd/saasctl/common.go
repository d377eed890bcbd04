package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/saasgate/pkg/bootstrap"
	"github.com/doodlesbykumbi/saasgate/pkg/config"
	"github.com/doodlesbykumbi/saasgate/pkg/db"
	"github.com/doodlesbykumbi/saasgate/pkg/logging"
	gormstore "github.com/doodlesbykumbi/saasgate/pkg/server/store/gorm"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

// loadConfig loads and validates the configuration and builds the logger
// every command shares.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, logging.New(cfg), nil
}

func connect(cfg *config.Config) (*gorm.DB, error) {
	return db.Connect(db.Config{URL: cfg.DatabaseURL, Debug: cfg.LogLevel == "debug"})
}

func seedStores(database *gorm.DB) bootstrap.Stores {
	return bootstrap.Stores{
		Users:       gormstore.NewUsersStore(database),
		Roles:       gormstore.NewRolesStore(database),
		Permissions: gormstore.NewPermissionsStore(database),
	}
}

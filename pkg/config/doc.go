// Package config provides configuration management for saasgate.
//
// Configuration is loaded once at startup and handed to every component as
// an immutable *Config. There is no package-level singleton.
//
// # Configuration Sources
//
// In increasing precedence:
//
//   - Built-in defaults
//   - $SAASGATE_CONFIG_PATH/saasgate.yml (default /etc/saasgate)
//   - The .env file ($SAASGATE_ENV_FILE, default ./.env)
//   - Environment variables
//
// Variables from the .env file never replace variables that are already
// set in the process environment. Each attribute remembers where its value
// came from; `saasctl configuration show` prints the table.
//
// # Key Configuration Options
//
//   - SECRET_KEY: signing key for access, verify and reset tokens
//   - DATABASE_URL: PostgreSQL connection string
//   - FIRST_SUPERUSER_EMAIL / FIRST_SUPERUSER_PASSWORD: bootstrap account
//   - RAZORPAY_KEY_ID / RAZORPAY_KEY_SECRET: Razorpay credentials
//   - DEFAULT_PAYMENT_PROVIDER: provider used when a request names none
//   - REDIS_URL: enables token revocation on logout
//   - LOG_LEVEL / LOG_FORMAT: slog verbosity and handler
package config

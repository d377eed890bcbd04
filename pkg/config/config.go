package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/saasgate"
	ConfigFileName    = "saasgate.yml"
	DefaultEnvFile    = ".env"

	maskedValue = "********"
)

// ValidPaymentProviders is the list of payment provider keys the server knows.
var ValidPaymentProviders = []string{"razorpay", "sandbox"}

// Config holds all saasgate settings. It is built once by Load and passed
// by pointer to the components that need it; nothing mutates it afterwards.
type Config struct {
	SecretKey   string `yaml:"secret_key" json:"secret_key"`
	DatabaseURL string `yaml:"database_url" json:"database_url"`

	FirstSuperuserEmail    string `yaml:"first_superuser_email" json:"first_superuser_email"`
	FirstSuperuserPassword string `yaml:"first_superuser_password" json:"first_superuser_password"`

	RazorpayKeyID          string `yaml:"razorpay_key_id" json:"razorpay_key_id"`
	RazorpayKeySecret      string `yaml:"razorpay_key_secret" json:"razorpay_key_secret"`
	PaymentSandboxSecret   string `yaml:"payment_sandbox_secret" json:"payment_sandbox_secret"`
	DefaultPaymentProvider string `yaml:"default_payment_provider" json:"default_payment_provider"`
	DefaultCurrency        string `yaml:"default_currency" json:"default_currency"`

	// Token lifetimes in seconds
	AccessTokenTTL        int `yaml:"access_token_ttl" json:"access_token_ttl"`
	VerifyTokenTTL        int `yaml:"verify_token_ttl" json:"verify_token_ttl"`
	ResetPasswordTokenTTL int `yaml:"reset_password_token_ttl" json:"reset_password_token_ttl"`

	// APIListLimitMax caps the limit parameter of list endpoints
	APIListLimitMax int `yaml:"api_list_limit_max" json:"api_list_limit_max"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`

	// RedisURL enables token revocation on logout when set
	RedisURL string `yaml:"redis_url" json:"redis_url"`

	// AuthRateLimit is the number of auth requests per minute per client IP; 0 disables
	AuthRateLimit int `yaml:"auth_rate_limit" json:"auth_rate_limit"`

	CORSOrigins []string `yaml:"backend_cors_origins" json:"backend_cors_origins"`
	AppEnv      string   `yaml:"app_env" json:"app_env"`

	sources        map[string]string
	configFilePath string
}

// fileLayer mirrors Config with pointers so that explicit zero values in the
// file are distinguishable from absent keys.
type fileLayer struct {
	SecretKey              *string  `yaml:"secret_key"`
	DatabaseURL            *string  `yaml:"database_url"`
	FirstSuperuserEmail    *string  `yaml:"first_superuser_email"`
	FirstSuperuserPassword *string  `yaml:"first_superuser_password"`
	RazorpayKeyID          *string  `yaml:"razorpay_key_id"`
	RazorpayKeySecret      *string  `yaml:"razorpay_key_secret"`
	PaymentSandboxSecret   *string  `yaml:"payment_sandbox_secret"`
	DefaultPaymentProvider *string  `yaml:"default_payment_provider"`
	DefaultCurrency        *string  `yaml:"default_currency"`
	AccessTokenTTL         *int     `yaml:"access_token_ttl"`
	VerifyTokenTTL         *int     `yaml:"verify_token_ttl"`
	ResetPasswordTokenTTL  *int     `yaml:"reset_password_token_ttl"`
	APIListLimitMax        *int     `yaml:"api_list_limit_max"`
	LogLevel               *string  `yaml:"log_level"`
	LogFormat              *string  `yaml:"log_format"`
	RedisURL               *string  `yaml:"redis_url"`
	AuthRateLimit          *int     `yaml:"auth_rate_limit"`
	CORSOrigins            []string `yaml:"backend_cors_origins"`
	AppEnv                 *string  `yaml:"app_env"`
}

// envLayer is filled by envconfig. Unset variables leave the pointers nil.
type envLayer struct {
	SecretKey              *string `envconfig:"SECRET_KEY"`
	DatabaseURL            *string `envconfig:"DATABASE_URL"`
	FirstSuperuserEmail    *string `envconfig:"FIRST_SUPERUSER_EMAIL"`
	FirstSuperuserPassword *string `envconfig:"FIRST_SUPERUSER_PASSWORD"`
	RazorpayKeyID          *string `envconfig:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret      *string `envconfig:"RAZORPAY_KEY_SECRET"`
	PaymentSandboxSecret   *string `envconfig:"PAYMENT_SANDBOX_SECRET"`
	DefaultPaymentProvider *string `envconfig:"DEFAULT_PAYMENT_PROVIDER"`
	DefaultCurrency        *string `envconfig:"DEFAULT_CURRENCY"`
	AccessTokenTTL         *int    `envconfig:"ACCESS_TOKEN_TTL"`
	VerifyTokenTTL         *int    `envconfig:"VERIFY_TOKEN_TTL"`
	ResetPasswordTokenTTL  *int    `envconfig:"RESET_PASSWORD_TOKEN_TTL"`
	APIListLimitMax        *int    `envconfig:"API_LIST_LIMIT_MAX"`
	LogLevel               *string `envconfig:"LOG_LEVEL"`
	LogFormat              *string `envconfig:"LOG_FORMAT"`
	RedisURL               *string `envconfig:"REDIS_URL"`
	AuthRateLimit          *int    `envconfig:"AUTH_RATE_LIMIT"`
	CORSOrigins            *string `envconfig:"BACKEND_CORS_ORIGINS"`
	AppEnv                 *string `envconfig:"APP_ENV"`
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

func newDefault() *Config {
	return &Config{
		DefaultPaymentProvider: "razorpay",
		DefaultCurrency:        "INR",
		AccessTokenTTL:         3600,
		VerifyTokenTTL:         3600,
		ResetPasswordTokenTTL:  3600,
		APIListLimitMax:        1000,
		LogLevel:               "info",
		LogFormat:              "text",
		AuthRateLimit:          10,
		CORSOrigins:            []string{},
		AppEnv:                 "production",
		sources:                make(map[string]string),
	}
}

// Load builds the configuration from defaults, the YAML config file, the
// .env file and the process environment, in increasing precedence. Values
// in the .env file never override variables already set in the environment.
func Load() (*Config, error) {
	config := newDefault()

	configPath := os.Getenv("SAASGATE_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var file fileLayer
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&file)
	}

	envFile := os.Getenv("SAASGATE_ENV_FILE")
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	var env envLayer
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	config.applyEnvConfig(&env)

	return config, nil
}

func (c *Config) applyFileConfig(file *fileLayer) {
	c.setString(&c.SecretKey, file.SecretKey, "secret_key", "file")
	c.setString(&c.DatabaseURL, file.DatabaseURL, "database_url", "file")
	c.setString(&c.FirstSuperuserEmail, file.FirstSuperuserEmail, "first_superuser_email", "file")
	c.setString(&c.FirstSuperuserPassword, file.FirstSuperuserPassword, "first_superuser_password", "file")
	c.setString(&c.RazorpayKeyID, file.RazorpayKeyID, "razorpay_key_id", "file")
	c.setString(&c.RazorpayKeySecret, file.RazorpayKeySecret, "razorpay_key_secret", "file")
	c.setString(&c.PaymentSandboxSecret, file.PaymentSandboxSecret, "payment_sandbox_secret", "file")
	c.setString(&c.DefaultPaymentProvider, file.DefaultPaymentProvider, "default_payment_provider", "file")
	c.setString(&c.DefaultCurrency, file.DefaultCurrency, "default_currency", "file")
	c.setInt(&c.AccessTokenTTL, file.AccessTokenTTL, "access_token_ttl", "file")
	c.setInt(&c.VerifyTokenTTL, file.VerifyTokenTTL, "verify_token_ttl", "file")
	c.setInt(&c.ResetPasswordTokenTTL, file.ResetPasswordTokenTTL, "reset_password_token_ttl", "file")
	c.setInt(&c.APIListLimitMax, file.APIListLimitMax, "api_list_limit_max", "file")
	c.setString(&c.LogLevel, file.LogLevel, "log_level", "file")
	c.setString(&c.LogFormat, file.LogFormat, "log_format", "file")
	c.setString(&c.RedisURL, file.RedisURL, "redis_url", "file")
	c.setInt(&c.AuthRateLimit, file.AuthRateLimit, "auth_rate_limit", "file")
	c.setString(&c.AppEnv, file.AppEnv, "app_env", "file")
	if len(file.CORSOrigins) > 0 {
		c.CORSOrigins = file.CORSOrigins
		c.sources["backend_cors_origins"] = "file"
	}
}

func (c *Config) applyEnvConfig(env *envLayer) {
	c.setString(&c.SecretKey, env.SecretKey, "secret_key", "environment")
	c.setString(&c.DatabaseURL, env.DatabaseURL, "database_url", "environment")
	c.setString(&c.FirstSuperuserEmail, env.FirstSuperuserEmail, "first_superuser_email", "environment")
	c.setString(&c.FirstSuperuserPassword, env.FirstSuperuserPassword, "first_superuser_password", "environment")
	c.setString(&c.RazorpayKeyID, env.RazorpayKeyID, "razorpay_key_id", "environment")
	c.setString(&c.RazorpayKeySecret, env.RazorpayKeySecret, "razorpay_key_secret", "environment")
	c.setString(&c.PaymentSandboxSecret, env.PaymentSandboxSecret, "payment_sandbox_secret", "environment")
	c.setString(&c.DefaultPaymentProvider, env.DefaultPaymentProvider, "default_payment_provider", "environment")
	c.setString(&c.DefaultCurrency, env.DefaultCurrency, "default_currency", "environment")
	c.setInt(&c.AccessTokenTTL, env.AccessTokenTTL, "access_token_ttl", "environment")
	c.setInt(&c.VerifyTokenTTL, env.VerifyTokenTTL, "verify_token_ttl", "environment")
	c.setInt(&c.ResetPasswordTokenTTL, env.ResetPasswordTokenTTL, "reset_password_token_ttl", "environment")
	c.setInt(&c.APIListLimitMax, env.APIListLimitMax, "api_list_limit_max", "environment")
	c.setString(&c.LogLevel, env.LogLevel, "log_level", "environment")
	c.setString(&c.LogFormat, env.LogFormat, "log_format", "environment")
	c.setString(&c.RedisURL, env.RedisURL, "redis_url", "environment")
	c.setInt(&c.AuthRateLimit, env.AuthRateLimit, "auth_rate_limit", "environment")
	c.setString(&c.AppEnv, env.AppEnv, "app_env", "environment")
	if env.CORSOrigins != nil {
		c.CORSOrigins = splitAndTrim(*env.CORSOrigins)
		c.sources["backend_cors_origins"] = "environment"
	}
}

func (c *Config) setString(dst *string, val *string, name, source string) {
	if val == nil {
		return
	}
	*dst = *val
	c.sources[name] = source
}

func (c *Config) setInt(dst *int, val *int, name, source string) {
	if val == nil {
		return
	}
	*dst = *val
	c.sources[name] = source
}

// ConfigFilePath returns the path to the config file
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// AccessTokenLifetime returns the access token TTL as a duration
func (c *Config) AccessTokenLifetime() time.Duration {
	return time.Duration(c.AccessTokenTTL) * time.Second
}

// VerifyTokenLifetime returns the verification token TTL as a duration
func (c *Config) VerifyTokenLifetime() time.Duration {
	return time.Duration(c.VerifyTokenTTL) * time.Second
}

// ResetPasswordTokenLifetime returns the reset-password token TTL as a duration
func (c *Config) ResetPasswordTokenLifetime() time.Duration {
	return time.Duration(c.ResetPasswordTokenTTL) * time.Second
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// SlogLevel maps LogLevel to a slog level. Unknown values map to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY is required")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if (c.FirstSuperuserEmail == "") != (c.FirstSuperuserPassword == "") {
		return errors.New("FIRST_SUPERUSER_EMAIL and FIRST_SUPERUSER_PASSWORD must be set together")
	}

	known := false
	for _, p := range ValidPaymentProviders {
		if p == c.DefaultPaymentProvider {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("invalid default_payment_provider: %s", c.DefaultPaymentProvider)
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("invalid default_currency: %s", c.DefaultCurrency)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format: %s", c.LogFormat)
	}

	if c.AccessTokenTTL <= 0 || c.VerifyTokenTTL <= 0 || c.ResetPasswordTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.APIListLimitMax <= 0 {
		return fmt.Errorf("invalid api_list_limit_max: %d", c.APIListLimitMax)
	}
	if c.AuthRateLimit < 0 {
		return fmt.Errorf("invalid auth_rate_limit: %d", c.AuthRateLimit)
	}
	return nil
}

// Attributes returns all configuration attributes with their values and
// sources. Secret values are masked.
func (c *Config) Attributes() []Attribute {
	attr := func(name, value string) Attribute {
		return Attribute{Name: name, Value: value, Source: c.Source(name)}
	}
	secret := func(name, value string) Attribute {
		if value != "" {
			value = maskedValue
		}
		return attr(name, value)
	}
	return []Attribute{
		secret("secret_key", c.SecretKey),
		secret("database_url", c.DatabaseURL),
		attr("first_superuser_email", c.FirstSuperuserEmail),
		secret("first_superuser_password", c.FirstSuperuserPassword),
		attr("razorpay_key_id", c.RazorpayKeyID),
		secret("razorpay_key_secret", c.RazorpayKeySecret),
		secret("payment_sandbox_secret", c.PaymentSandboxSecret),
		attr("default_payment_provider", c.DefaultPaymentProvider),
		attr("default_currency", c.DefaultCurrency),
		attr("access_token_ttl", strconv.Itoa(c.AccessTokenTTL)),
		attr("verify_token_ttl", strconv.Itoa(c.VerifyTokenTTL)),
		attr("reset_password_token_ttl", strconv.Itoa(c.ResetPasswordTokenTTL)),
		attr("api_list_limit_max", strconv.Itoa(c.APIListLimitMax)),
		attr("log_level", c.LogLevel),
		attr("log_format", c.LogFormat),
		secret("redis_url", c.RedisURL),
		attr("auth_rate_limit", strconv.Itoa(c.AuthRateLimit)),
		attr("backend_cors_origins", strings.Join(c.CORSOrigins, ",")),
		attr("app_env", c.AppEnv),
	}
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

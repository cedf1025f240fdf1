package portalAuth

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by [LoadConfig].
const EnvPrefix = "PORTAL_AUTH_"

// Config is the complete Manager configuration. Start from [DefaultConfig].
type Config struct {
	Gateway       GatewayConfig       `envPrefix:"GATEWAY_"`
	Store         StoreConfig         `envPrefix:"STORE_"`
	PasswordReset PasswordResetConfig `envPrefix:"RESET_"`
	Audit         AuditConfig         `envPrefix:"AUDIT_"`
	Metrics       MetricsConfig       `envPrefix:"METRICS_"`
	Policy        PolicyConfig        `envPrefix:"POLICY_"`
}

/*
====================================
GATEWAY CONFIG
====================================
*/

// GatewayConfig locates the identity provider.
type GatewayConfig struct {
	BaseURL string        `env:"BASE_URL"`
	Timeout time.Duration `env:"TIMEOUT"`
	// RequireTLS rejects non-https base URLs.
	RequireTLS bool `env:"REQUIRE_TLS"`

	LoginPath          string `env:"LOGIN_PATH"`
	RequestOTPPath     string `env:"OTP_REQUEST_PATH"`
	VerifyOTPPath      string `env:"OTP_VERIFY_PATH"`
	ChangePasswordPath string `env:"PASSWORD_CHANGE_PATH"`
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreBackend selects the session persistence.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreFile   StoreBackend = "file"
	StoreRedis  StoreBackend = "redis"
)

// StoreConfig selects and configures the session backend.
type StoreConfig struct {
	Backend StoreBackend `env:"BACKEND"`
	Prefix  string       `env:"PREFIX"`

	FilePath string `env:"FILE_PATH"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`
	// TTL expires persisted sessions in Redis; zero keeps them until logout.
	TTL time.Duration `env:"TTL"`
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig controls the OTP reset protocol.
type PasswordResetConfig struct {
	MaxAttempts int `env:"MAX_ATTEMPTS"`
	// OTPTTL bounds the life of a request from the moment it is opened.
	OTPTTL time.Duration `env:"OTP_TTL"`
	// RequestInterval is the refill period of the per-email OTP request
	// budget. Zero disables throttling.
	RequestInterval time.Duration `env:"REQUEST_INTERVAL"`
	RequestBurst    int           `env:"REQUEST_BURST"`
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `env:"ENABLED"`
	BufferSize int  `env:"BUFFER_SIZE"`
	DropIfFull bool `env:"DROP_IF_FULL"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS"`
}

/*
====================================
POLICY CONFIG
====================================
*/

// PolicyConfig locates the role-to-portal table. An empty File uses the
// built-in table.
type PolicyConfig struct {
	File      string `env:"FILE"`
	LoginPath string `env:"LOGIN_PATH"`
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns a configuration with the built-in defaults. The
// gateway base URL has no default.
func DefaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			Timeout:            10 * time.Second,
			LoginPath:          "/auth/login",
			RequestOTPPath:     "/auth/otp/request",
			VerifyOTPPath:      "/auth/otp/verify",
			ChangePasswordPath: "/auth/password/change",
		},
		Store: StoreConfig{
			Backend: StoreFile,
			Prefix:  "portal_auth:",
		},
		PasswordReset: PasswordResetConfig{
			MaxAttempts:     3,
			OTPTTL:          10 * time.Minute,
			RequestInterval: 30 * time.Second,
			RequestBurst:    3,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Policy: PolicyConfig{
			LoginPath: "/login",
		},
	}
}

// DefaultSessionFile is the file backend path when none is configured.
func DefaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "portal-auth", "session.json")
}

// LoadConfig reads envFiles (missing files are ignored) and then the
// environment over [DefaultConfig].
func LoadConfig(envFiles ...string) (Config, error) {
	for _, name := range envFiles {
		if name == "" {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) {
				return Config{}, fmt.Errorf("load env file %s: %w", name, err)
			}
		}
	}

	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Sanitize trims string fields and normalises case.
func (c *Config) Sanitize() {
	c.Gateway.BaseURL = strings.TrimSpace(c.Gateway.BaseURL)
	c.Store.Backend = StoreBackend(strings.ToLower(strings.TrimSpace(string(c.Store.Backend))))
	c.Store.FilePath = strings.TrimSpace(c.Store.FilePath)
	c.Store.RedisAddr = strings.TrimSpace(c.Store.RedisAddr)
	c.Policy.File = strings.TrimSpace(c.Policy.File)
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the Manager cannot run with. A blank
// gateway base URL is accepted here; Build requires it only when no gateway
// is injected.
func (c *Config) Validate() error {
	return c.validate(false)
}

// validate skips the redis address check when the store client is injected.
func (c *Config) validate(storeInjected bool) error {
	// Gateway
	if c.Gateway.Timeout < 0 {
		return errors.New("Gateway Timeout must be >= 0")
	}
	if c.Gateway.BaseURL != "" {
		u, err := url.Parse(c.Gateway.BaseURL)
		if err != nil || u.Host == "" {
			return errors.New("Gateway BaseURL must be an absolute URL")
		}
		if c.Gateway.RequireTLS && u.Scheme != "https" {
			return errors.New("Gateway BaseURL must use https when RequireTLS is set")
		}
	}

	// Store
	switch c.Store.Backend {
	case StoreMemory, StoreFile:
	case StoreRedis:
		if c.Store.RedisAddr == "" && !storeInjected {
			return errors.New("Store RedisAddr is required for the redis backend")
		}
	default:
		return fmt.Errorf("Store Backend %q must be memory, file or redis", c.Store.Backend)
	}
	if c.Store.TTL < 0 {
		return errors.New("Store TTL must be >= 0")
	}

	// Password reset
	if c.PasswordReset.MaxAttempts <= 0 {
		return errors.New("PasswordReset MaxAttempts must be > 0")
	}
	if c.PasswordReset.OTPTTL < 0 {
		return errors.New("PasswordReset OTPTTL must be >= 0")
	}
	if c.PasswordReset.RequestInterval < 0 {
		return errors.New("PasswordReset RequestInterval must be >= 0")
	}
	if c.PasswordReset.RequestInterval > 0 && c.PasswordReset.RequestBurst <= 0 {
		return errors.New("PasswordReset RequestBurst must be > 0 when throttling is enabled")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Policy
	if !strings.HasPrefix(c.Policy.LoginPath, "/") {
		return errors.New("Policy LoginPath must be an absolute path")
	}
	return nil
}

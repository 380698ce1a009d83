package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	HTTP              HTTPConfig    `koanf:"http"`
	DatabaseURL       string        `koanf:"database_url"`
	DatabaseWait      time.Duration `koanf:"database_wait"`
	Auth              AuthConfig    `koanf:"auth"`
	Log               LogConfig     `koanf:"log"`
	StaticDir         string        `koanf:"static_dir"`
	EmployeeStateFile string        `koanf:"employee_state_file"`
	ProductStateFile  string        `koanf:"product_state_file"`
	AuditLogFile      string        `koanf:"audit_log_file"`
}

type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CookieSecure    bool          `koanf:"cookie_secure"`
	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	TrustProxy bool `koanf:"trust_proxy"`
}

type AuthConfig struct {
	BootstrapUsername    string        `koanf:"bootstrap_username"`
	BootstrapPassword    string        `koanf:"bootstrap_password"`
	BcryptCost           int           `koanf:"bcrypt_cost"`
	SessionSecret        string        `koanf:"session_secret"`
	SessionTTL           time.Duration `koanf:"session_ttl"`
	SessionPurgeInterval time.Duration `koanf:"session_purge_interval"`
	SessionStateFile     string        `koanf:"session_state_file"`
	UserStateFile        string        `koanf:"user_state_file"`
}

type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DefaultSessionSecret is only acceptable for file-backed local runs.
const DefaultSessionSecret = "change-me-in-production"

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":3000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 20 * time.Second,
		},
		DatabaseWait: 30 * time.Second,
		Auth: AuthConfig{
			BcryptCost:           bcrypt.DefaultCost,
			SessionSecret:        DefaultSessionSecret,
			SessionTTL:           24 * time.Hour,
			SessionPurgeInterval: 10 * time.Minute,
			SessionStateFile:     "./data/sessions.json",
			UserStateFile:        "./data/users.json",
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		StaticDir:         "./public",
		EmployeeStateFile: "./data/employees.json",
		ProductStateFile:  "./data/products.json",
		AuditLogFile:      "./data/audit.log",
	}
}

// Load resolves configuration from defaults, then the YAML file at path
// (skipped when empty), then environment variables, then flags the user
// actually set on fs (skipped when nil).
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := loadEnv(k); err != nil {
		return Config{}, err
	}
	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, flagKey(fs)), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 || c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be > 0")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("AUTH_BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("AUTH_SESSION_SECRET must not be empty")
	}
	if c.Auth.SessionTTL < 0 {
		return fmt.Errorf("AUTH_SESSION_TTL_SEC must be >= 0")
	}
	if c.Auth.SessionPurgeInterval <= 0 {
		return fmt.Errorf("AUTH_SESSION_PURGE_INTERVAL_SEC must be > 0")
	}
	if (c.Auth.BootstrapUsername == "") != (c.Auth.BootstrapPassword == "") {
		return fmt.Errorf("AUTH_BOOTSTRAP_USERNAME and AUTH_BOOTSTRAP_PASSWORD must be set together")
	}
	if c.DatabaseURL != "" && c.Auth.SessionSecret == DefaultSessionSecret {
		return fmt.Errorf("AUTH_SESSION_SECRET must be changed from the default when DATABASE_URL is set")
	}
	if c.DatabaseURL == "" {
		if c.Auth.SessionStateFile == "" {
			return fmt.Errorf("AUTH_SESSION_STATE_FILE must not be empty")
		}
		if c.Auth.UserStateFile == "" {
			return fmt.Errorf("AUTH_USER_STATE_FILE must not be empty")
		}
		if c.EmployeeStateFile == "" {
			return fmt.Errorf("EMPLOYEE_STATE_FILE must not be empty")
		}
		if c.ProductStateFile == "" {
			return fmt.Errorf("PRODUCT_STATE_FILE must not be empty")
		}
	} else if c.DatabaseWait <= 0 {
		return fmt.Errorf("DATABASE_WAIT_SEC must be > 0")
	}
	if c.AuditLogFile == "" {
		return fmt.Errorf("AUDIT_LOG_FILE must not be empty")
	}
	return nil
}

type envVar struct {
	name    string
	key     string
	seconds bool
}

var envVars = []envVar{
	{name: "HTTP_ADDR", key: "http.addr"},
	{name: "HTTP_READ_TIMEOUT_SEC", key: "http.read_timeout", seconds: true},
	{name: "HTTP_WRITE_TIMEOUT_SEC", key: "http.write_timeout", seconds: true},
	{name: "HTTP_SHUTDOWN_TIMEOUT_SEC", key: "http.shutdown_timeout", seconds: true},
	{name: "HTTP_COOKIE_SECURE", key: "http.cookie_secure"},
	{name: "HTTP_TRUST_PROXY", key: "http.trust_proxy"},
	{name: "DATABASE_URL", key: "database_url"},
	{name: "DATABASE_WAIT_SEC", key: "database_wait", seconds: true},
	{name: "AUTH_BOOTSTRAP_USERNAME", key: "auth.bootstrap_username"},
	{name: "AUTH_BOOTSTRAP_PASSWORD", key: "auth.bootstrap_password"},
	{name: "AUTH_BCRYPT_COST", key: "auth.bcrypt_cost"},
	{name: "AUTH_SESSION_SECRET", key: "auth.session_secret"},
	{name: "AUTH_SESSION_TTL_SEC", key: "auth.session_ttl", seconds: true},
	{name: "AUTH_SESSION_PURGE_INTERVAL_SEC", key: "auth.session_purge_interval", seconds: true},
	{name: "AUTH_SESSION_STATE_FILE", key: "auth.session_state_file"},
	{name: "AUTH_USER_STATE_FILE", key: "auth.user_state_file"},
	{name: "LOG_FORMAT", key: "log.format"},
	{name: "LOG_LEVEL", key: "log.level"},
	{name: "STATIC_DIR", key: "static_dir"},
	{name: "EMPLOYEE_STATE_FILE", key: "employee_state_file"},
	{name: "PRODUCT_STATE_FILE", key: "product_state_file"},
	{name: "AUDIT_LOG_FILE", key: "audit_log_file"},
}

// loadEnv overlays every set, non-empty variable. Second-valued variables
// that do not parse as integers are ignored.
func loadEnv(k *koanf.Koanf) error {
	for _, v := range envVars {
		val := getEnv(v.name, "")
		if val == "" {
			continue
		}
		var value any = val
		if v.seconds {
			n := getEnvInt(v.name, -1)
			if n < 0 {
				continue
			}
			value = time.Duration(n) * time.Second
		}
		if err := k.Set(v.key, value); err != nil {
			return fmt.Errorf("set %s: %w", v.name, err)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

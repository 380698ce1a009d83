package config

import (
	"github.com/knadh/koanf/providers/posflag"
	"github.com/spf13/pflag"
)

var flagKeys = map[string]string{
	"http-addr":      "http.addr",
	"cookie-secure":  "http.cookie_secure",
	"trust-proxy":    "http.trust_proxy",
	"database-url":   "database_url",
	"database-wait":  "database_wait",
	"bcrypt-cost":    "auth.bcrypt_cost",
	"session-ttl":    "auth.session_ttl",
	"log-format":     "log.format",
	"log-level":      "log.level",
	"static-dir":     "static_dir",
	"audit-log-file": "audit_log_file",
}

// RegisterFlags adds the overridable settings to fs with the built-in
// defaults, so an unset flag never masks a file or environment value.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTP.Addr, "HTTP listen address")
	fs.Bool("cookie-secure", d.HTTP.CookieSecure, "mark the session cookie Secure")
	fs.Bool("trust-proxy", d.HTTP.TrustProxy, "take client addresses from proxy headers")
	fs.String("database-url", d.DatabaseURL, "Postgres DSN; empty selects JSON state files")
	fs.Duration("database-wait", d.DatabaseWait, "how long to wait for Postgres at startup")
	fs.Int("bcrypt-cost", d.Auth.BcryptCost, "bcrypt work factor for new passwords")
	fs.Duration("session-ttl", d.Auth.SessionTTL, "session lifetime; 0 never expires")
	fs.String("log-format", d.Log.Format, "log format: json or text")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
	fs.String("static-dir", d.StaticDir, "directory served for static assets")
	fs.String("audit-log-file", d.AuditLogFile, "JSON-lines audit log path")
}

func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}

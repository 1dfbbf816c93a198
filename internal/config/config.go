package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"
)

// Config holds all server configuration.
type Config struct {
	Addr     string // listen address, e.g. ":8080"
	DBPath   string // path to the SQLite settings database
	TLS      bool
	CertFile string
	KeyFile  string

	// Access mode flags (see authz.ResolveMode).
	ExternalAccess     bool // allow the app to render outside the host portal
	BlockHostEmbedding bool // refuse embedded credentials entirely

	// Portal API.
	PortalTimeout     time.Duration // per-call timeout for directory calls
	OAuthClientID     string        // application OAuth2 client ID
	OAuthClientSecret string        // application OAuth2 client secret

	// Department cache.
	DeptCacheSize int
	DeptCacheTTL  time.Duration

	// Sessions.
	SessionSecret string // HMAC secret for session tokens (auto-generated if empty)
	SessionTTL    time.Duration

	// App settings file (display name, unavailable message, debug flag).
	AppSettingsPath string

	// Logging.
	LogFormat string // "json" (default) or "text"
	AuditLogs bool   // enable audit logging (default true)
}

func Parse() *Config {
	c := &Config{}
	flag.StringVar(&c.Addr, "addr", ":8080", "listen address")
	flag.StringVar(&c.DBPath, "db", "portalgate.db", "SQLite settings database path")
	flag.BoolVar(&c.TLS, "tls", false, "enable TLS")
	flag.StringVar(&c.CertFile, "cert", "", "TLS certificate file")
	flag.StringVar(&c.KeyFile, "key", "", "TLS key file")

	flag.BoolVar(&c.ExternalAccess, "external-access", false, "allow the app to render outside the host portal")
	flag.BoolVar(&c.BlockHostEmbedding, "block-host-embedding", false, "refuse host-embedded credentials (requires -external-access)")

	flag.DurationVar(&c.PortalTimeout, "portal-timeout", 10*time.Second, "per-call timeout for portal API calls")
	flag.StringVar(&c.OAuthClientID, "oauth-client-id", "", "application OAuth2 client ID (for credential refresh)")
	flag.StringVar(&c.OAuthClientSecret, "oauth-client-secret", "", "application OAuth2 client secret")

	flag.IntVar(&c.DeptCacheSize, "dept-cache-size", 256, "LRU size for department lookups")
	flag.DurationVar(&c.DeptCacheTTL, "dept-cache-ttl", 5*time.Minute, "TTL for cached department lookups")

	flag.StringVar(&c.SessionSecret, "session-secret", "", "HMAC secret for session tokens (auto-generated if empty)")
	flag.DurationVar(&c.SessionTTL, "session-ttl", time.Hour, "session token lifetime")

	flag.StringVar(&c.AppSettingsPath, "app-settings", "", "path to app-settings.yaml (optional)")

	flag.StringVar(&c.LogFormat, "log-format", "json", "log format: json or text")
	flag.BoolVar(&c.AuditLogs, "audit-logs", true, "enable structured audit logging")

	flag.Parse()

	// Allow env overrides.
	if v := os.Getenv("PORTALGATE_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("PORTALGATE_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("PORTALGATE_EXTERNAL_ACCESS"); v == "true" {
		c.ExternalAccess = true
	}
	if v := os.Getenv("PORTALGATE_BLOCK_HOST_EMBEDDING"); v == "true" {
		c.BlockHostEmbedding = true
	}
	if v := os.Getenv("PORTALGATE_PORTAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.PortalTimeout = d
		}
	}
	if v := os.Getenv("PORTALGATE_OAUTH_CLIENT_ID"); v != "" {
		c.OAuthClientID = v
	}
	if v := os.Getenv("PORTALGATE_OAUTH_CLIENT_SECRET"); v != "" {
		c.OAuthClientSecret = v
	}
	if v := os.Getenv("PORTALGATE_SESSION_SECRET"); v != "" {
		c.SessionSecret = v
	}
	if v := os.Getenv("PORTALGATE_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SessionTTL = d
		}
	}
	if v := os.Getenv("PORTALGATE_APP_SETTINGS"); v != "" {
		c.AppSettingsPath = v
	}
	if v := os.Getenv("PORTALGATE_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("PORTALGATE_AUDIT_LOGS"); v == "false" {
		c.AuditLogs = false
	}

	if c.SessionSecret == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			fmt.Fprintf(os.Stderr, "failed to generate session secret: %v\n", err)
			os.Exit(1)
		}
		c.SessionSecret = hex.EncodeToString(key)
		fmt.Fprintf(os.Stderr, "WARNING: auto-generated session secret (sessions will not survive restart unless you persist it):\n")
		fmt.Fprintf(os.Stderr, "  export PORTALGATE_SESSION_SECRET=%s\n\n", c.SessionSecret)
	}

	return c
}

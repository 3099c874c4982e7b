// Package config loads node configuration from the environment, following
// the teacher's 12-factor convention: os.Getenv reads with hardcoded
// fallback defaults, no external config framework.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// AttrStoreBackend selects which pkg/attrstore implementation the node
// wires up at boot.
type AttrStoreBackend string

const (
	AttrStoreMemory   AttrStoreBackend = "memory"
	AttrStoreRedis    AttrStoreBackend = "redis"
	AttrStorePostgres AttrStoreBackend = "postgres"
)

// Config holds node configuration.
type Config struct {
	// Port is the listen port for the node's bus transport.
	Port string
	// LogLevel is the slog level name (DEBUG/INFO/WARN/ERROR).
	LogLevel string

	// AttrStoreBackend selects the attribute-store implementation.
	AttrStoreBackend AttrStoreBackend
	RedisURL         string
	PostgresDSN      string
	// AttrStoreEncryptionSecret seeds the HKDF derivation of the
	// attribute store's at-rest encryption key. Empty disables encryption.
	AttrStoreEncryptionSecret string

	// PolicyBundlePath points at the JSON policy bundle loaded at boot.
	// Empty means the node starts with an empty policy store.
	PolicyBundlePath string

	// OAuth2ProfileURL is the profile endpoint the oauth2 authenticator
	// calls with the caller's bearer token to resolve an email.
	OAuth2ProfileURL string

	// SigningKeyID identifies this node's Ed25519 signing key in logs and
	// in the key_id field of signatures it produces.
	SigningKeyID string

	// MedicInterval is the session supervisor's liveness poll period.
	MedicInterval time.Duration
	// MedicMaxFailures is the number of missed pongs before a session is
	// marked down.
	MedicMaxFailures int

	// AuditS3Bucket and AuditGCSBucket optionally mirror issued Signed
	// envelopes to object storage. Empty disables that sink. Setting both
	// is rejected by Validate; exactly one sink may be active.
	AuditS3Bucket   string
	AuditS3Region   string
	AuditS3Endpoint string
	AuditGCSBucket  string
	AuditPrefix     string

	ShadowMode bool
}

// Load reads Config from the environment, filling in defaults for
// anything unset.
func Load() *Config {
	cfg := &Config{
		Port:                      getenvDefault("PORT", "8080"),
		LogLevel:                  getenvDefault("LOG_LEVEL", "INFO"),
		AttrStoreBackend:          AttrStoreBackend(getenvDefault("ATTR_STORE_BACKEND", string(AttrStoreMemory))),
		RedisURL:                  getenvDefault("REDIS_URL", "redis://localhost:6379/0"),
		PostgresDSN:               getenvDefault("POSTGRES_DSN", "postgres://node@localhost:5432/trustfabric?sslmode=disable"),
		AttrStoreEncryptionSecret: os.Getenv("ATTR_STORE_ENCRYPTION_SECRET"),
		PolicyBundlePath:          os.Getenv("POLICY_BUNDLE_PATH"),
		OAuth2ProfileURL:          getenvDefault("OAUTH2_PROFILE_URL", "https://openidconnect.googleapis.com/v1/userinfo"),
		SigningKeyID:              getenvDefault("SIGNING_KEY_ID", "node-signer"),
		MedicInterval:             getenvDuration("MEDIC_INTERVAL", 7*time.Second),
		MedicMaxFailures:          getenvInt("MEDIC_MAX_FAILURES", 3),
		AuditS3Bucket:             os.Getenv("AUDIT_S3_BUCKET"),
		AuditS3Region:             getenvDefault("AUDIT_S3_REGION", "us-east-1"),
		AuditS3Endpoint:           os.Getenv("AUDIT_S3_ENDPOINT"),
		AuditGCSBucket:            os.Getenv("AUDIT_GCS_BUCKET"),
		AuditPrefix:               os.Getenv("AUDIT_PREFIX"),
		ShadowMode:                os.Getenv("SHADOW_MODE") == "true",
	}
	return cfg
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Validate rejects configurations the node cannot safely boot with.
func (c *Config) Validate() error {
	switch c.AttrStoreBackend {
	case AttrStoreMemory, AttrStoreRedis, AttrStorePostgres:
	default:
		return fmt.Errorf("config: unknown ATTR_STORE_BACKEND %q", c.AttrStoreBackend)
	}
	if c.MedicMaxFailures < 1 {
		return fmt.Errorf("config: MEDIC_MAX_FAILURES must be >= 1, got %d", c.MedicMaxFailures)
	}
	if c.AuditS3Bucket != "" && c.AuditGCSBucket != "" {
		return fmt.Errorf("config: AUDIT_S3_BUCKET and AUDIT_GCS_BUCKET are mutually exclusive")
	}
	return nil
}

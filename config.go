package adminauth

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adminkit/adminauth/lockout"
	"github.com/adminkit/adminauth/password"
	"github.com/adminkit/adminauth/token"
)

// Config is the full engine configuration. The zero value is not usable;
// start from DefaultConfig or LoadConfig.
type Config struct {
	Token    TokenConfig    `yaml:"token"`
	Session  SessionConfig  `yaml:"session"`
	Password PasswordConfig `yaml:"password"`
	Lockout  LockoutConfig  `yaml:"lockout"`
	Reset    ResetConfig    `yaml:"reset"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Redis    RedisConfig    `yaml:"redis"`

	// StoreTimeout bounds every individual call to a backing store made
	// on behalf of one engine operation.
	StoreTimeout time.Duration `yaml:"store_timeout"`
}

// TokenConfig configures the JWT issuer.
type TokenConfig struct {
	SigningMethod string        `yaml:"signing_method"` // "hs256" or "ed25519"
	Secret        string        `yaml:"secret"`
	PrivateKey    string        `yaml:"private_key"` // PEM, ed25519
	PublicKey     string        `yaml:"public_key"`  // PEM, ed25519
	Issuer        string        `yaml:"issuer"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	Leeway        time.Duration `yaml:"leeway"`
}

// SessionConfig configures session storage.
type SessionConfig struct {
	TTL    time.Duration `yaml:"ttl"`
	Prefix string        `yaml:"prefix"`
}

// PasswordConfig configures the argon2id hasher.
type PasswordConfig struct {
	Memory      uint32 `yaml:"memory"` // KiB
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
	SaltLength  uint32 `yaml:"salt_length"`
	KeyLength   uint32 `yaml:"key_length"`
	// UpgradeOnLogin re-hashes under current parameters after a
	// successful verify of a weaker or legacy hash.
	UpgradeOnLogin bool `yaml:"upgrade_on_login"`
}

// LockoutConfig configures failed-login throttling.
type LockoutConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Threshold int64         `yaml:"threshold"`
	Window    time.Duration `yaml:"window"`
}

// ResetConfig configures password reset challenges.
type ResetConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// AuditConfig configures the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	// DropIfFull sheds events instead of blocking login paths when the
	// sink cannot keep up. Drops are counted.
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig toggles Prometheus instrumentation.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// RedisConfig points the volatile stores at Redis. Empty Addr selects the
// in-memory fallbacks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DefaultConfig returns the production defaults: 15 minute access tokens,
// 7 day refresh, 5 failures per 15 minute lockout window.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SigningMethod: "hs256",
			Issuer:        "adminauth",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			TTL:    24 * time.Hour,
			Prefix: "auth",
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Lockout: LockoutConfig{
			Enabled:   true,
			Threshold: 5,
			Window:    15 * time.Minute,
		},
		Reset: ResetConfig{
			Enabled: true,
			TTL:     time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Namespace: "adminauth",
		},
		StoreTimeout: 3 * time.Second,
	}
}

// LoadConfig reads a YAML file over the defaults, so a partial file only
// overrides what it names.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the cross-field constraints the subpackage constructors
// cannot see.
func (c Config) Validate() error {
	switch token.SigningMethod(c.Token.SigningMethod) {
	case token.MethodHS256:
		if len(c.Token.Secret) < 32 {
			return errors.New("token secret must be at least 32 bytes for hs256")
		}
	case token.MethodEd25519:
		if c.Token.PrivateKey == "" || c.Token.PublicKey == "" {
			return errors.New("ed25519 requires both private and public key")
		}
	default:
		return fmt.Errorf("unsupported signing method %q", c.Token.SigningMethod)
	}

	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.Lockout.Enabled && (c.Lockout.Threshold <= 0 || c.Lockout.Window <= 0) {
		return errors.New("lockout threshold and window must be positive")
	}
	if c.Reset.Enabled && c.Reset.TTL <= 0 {
		return errors.New("reset TTL must be positive")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("store timeout must be positive")
	}
	return nil
}

func (c Config) tokenConfig() token.Config {
	return token.Config{
		SigningMethod: token.SigningMethod(c.Token.SigningMethod),
		Secret:        []byte(c.Token.Secret),
		PrivateKey:    []byte(c.Token.PrivateKey),
		PublicKey:     []byte(c.Token.PublicKey),
		Issuer:        c.Token.Issuer,
		AccessTTL:     c.Token.AccessTTL,
		RefreshTTL:    c.Token.RefreshTTL,
		Leeway:        c.Token.Leeway,
	}
}

func (c Config) argon2Params() password.Argon2Params {
	p := password.DefaultArgon2Params()
	if c.Password.Memory > 0 {
		p.Memory = c.Password.Memory
	}
	if c.Password.Time > 0 {
		p.Time = c.Password.Time
	}
	if c.Password.Parallelism > 0 {
		p.Parallelism = c.Password.Parallelism
	}
	if c.Password.SaltLength > 0 {
		p.SaltLength = c.Password.SaltLength
	}
	if c.Password.KeyLength > 0 {
		p.KeyLength = c.Password.KeyLength
	}
	return p
}

func (c Config) lockoutConfig() lockout.Config {
	return lockout.Config{
		Enabled:   c.Lockout.Enabled,
		Threshold: c.Lockout.Threshold,
		Window:    c.Lockout.Window,
	}
}

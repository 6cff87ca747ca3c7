// Package config loads server configuration: an optional YAML file named by
// SOLMEET_CONFIG, then environment overrides, then development defaults.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted for EventStore and LedgerBackend.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

const (
	MinSecretBytes = 32
	MinSaltBytes   = 16

	devSigningKey = "dev-secret-key-change-in-production"
	// 32 bytes each, hex encoded
	devMasterSeed = "736f6c6d6565742d6465762d6d61737465722d736565642d6e6f742d73656372"
	devProofSalt  = "736f6c6d6565742d6465762d70726f6f662d73616c742d6e6f742d7365637265"
)

// Server captures everything cmd/server needs to wire the service.
type Server struct {
	Addr          string `yaml:"addr"`
	Environment   string `yaml:"environment"`
	LogLevel      string `yaml:"log_level"`
	EventStore    string `yaml:"event_store"`
	LedgerBackend string `yaml:"ledger_backend"`
	DatabaseURL   string `yaml:"database_url"`
	SQLitePath    string `yaml:"sqlite_path"`
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string         `yaml:"trusted_proxies"`
	Redis          RedisConfig      `yaml:"redis"`
	Auth           AuthConfig       `yaml:"auth"`
	Credentials    CredentialConfig `yaml:"credentials"`
	Claims         ClaimConfig      `yaml:"claims"`
	Expiry         ExpiryConfig     `yaml:"expiry"`

	// devDefaults names secrets that fell back to built-in development values.
	devDefaults []string
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	Prefix       string        `yaml:"prefix"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AuthConfig describes the bearer tokens minted by the external identity provider.
type AuthConfig struct {
	JWTSigningKey string        `yaml:"jwt_signing_key"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
}

type CredentialConfig struct {
	MasterSeedHex string        `yaml:"master_seed"`
	ProofSaltHex  string        `yaml:"proof_salt"`
	DefaultTTL    time.Duration `yaml:"default_ttl"`
	MaxBatch      int           `yaml:"max_batch"`
}

type ClaimConfig struct {
	RatePerSecond    float64       `yaml:"rate_per_second"`
	Burst            int           `yaml:"burst"`
	LedgerTimeout    time.Duration `yaml:"ledger_timeout"`
	HandlerTimeout   time.Duration `yaml:"handler_timeout"`
	BreakerFailures  int           `yaml:"breaker_failures"`
	BreakerSuccesses int           `yaml:"breaker_successes"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
}

type ExpiryConfig struct {
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
}

// Defaults returns a config that runs everything in memory.
func Defaults() Server {
	return Server{
		Addr:          ":8080",
		Environment:   "dev",
		LogLevel:      "info",
		EventStore:    BackendMemory,
		LedgerBackend: BackendMemory,
		SQLitePath:    "data/solmeet.db",
		Redis: RedisConfig{
			Prefix:       "solmeet:ledger",
			PoolSize:     20,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Auth: AuthConfig{
			Issuer:   "solmeet",
			Audience: "solmeet-api",
			TokenTTL: 15 * time.Minute,
		},
		Credentials: CredentialConfig{
			DefaultTTL: 24 * time.Hour,
			MaxBatch:   500,
		},
		Claims: ClaimConfig{
			RatePerSecond:    5,
			Burst:            10,
			LedgerTimeout:    2 * time.Second,
			HandlerTimeout:   5 * time.Second,
			BreakerFailures:  5,
			BreakerSuccesses: 3,
			BreakerCooldown:  5 * time.Second,
		},
		Expiry: ExpiryConfig{
			Interval:  30 * time.Second,
			BatchSize: 100,
		},
	}
}

// Load reads SOLMEET_CONFIG when set, applies environment overrides and
// validates the result.
func Load() (Server, error) {
	cfg := Defaults()
	if path := os.Getenv("SOLMEET_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Server{}, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Server{}, err
	}
	cfg.fillDevSecrets()
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (s *Server) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from SOLMEET_* variables. Every unparsable value
// is reported rather than silently ignored.
func (s *Server) applyEnv(getenv func(string) string) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("SOLMEET_ADDR", &s.Addr)
	str("SOLMEET_ENV", &s.Environment)
	str("SOLMEET_LOG_LEVEL", &s.LogLevel)
	str("SOLMEET_EVENT_STORE", &s.EventStore)
	str("SOLMEET_LEDGER_BACKEND", &s.LedgerBackend)
	str("SOLMEET_DATABASE_URL", &s.DatabaseURL)
	str("SOLMEET_SQLITE_PATH", &s.SQLitePath)
	if v := getenv("SOLMEET_TRUSTED_PROXIES"); v != "" {
		s.TrustedProxies = strings.Split(v, ",")
	}

	str("SOLMEET_REDIS_URL", &s.Redis.URL)
	str("SOLMEET_REDIS_PREFIX", &s.Redis.Prefix)
	num("SOLMEET_REDIS_POOL_SIZE", &s.Redis.PoolSize)

	str("SOLMEET_JWT_SIGNING_KEY", &s.Auth.JWTSigningKey)
	str("SOLMEET_JWT_ISSUER", &s.Auth.Issuer)
	str("SOLMEET_JWT_AUDIENCE", &s.Auth.Audience)

	str("SOLMEET_MASTER_SEED", &s.Credentials.MasterSeedHex)
	str("SOLMEET_PROOF_SALT", &s.Credentials.ProofSaltHex)
	dur("SOLMEET_CREDENTIAL_TTL", &s.Credentials.DefaultTTL)
	num("SOLMEET_MAX_BATCH", &s.Credentials.MaxBatch)

	if v := getenv("SOLMEET_CLAIM_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("SOLMEET_CLAIM_RATE: %w", err))
		} else {
			s.Claims.RatePerSecond = f
		}
	}
	num("SOLMEET_CLAIM_BURST", &s.Claims.Burst)
	dur("SOLMEET_LEDGER_TIMEOUT", &s.Claims.LedgerTimeout)
	dur("SOLMEET_HANDLER_TIMEOUT", &s.Claims.HandlerTimeout)
	num("SOLMEET_BREAKER_FAILURES", &s.Claims.BreakerFailures)
	dur("SOLMEET_BREAKER_COOLDOWN", &s.Claims.BreakerCooldown)

	dur("SOLMEET_EXPIRY_INTERVAL", &s.Expiry.Interval)
	num("SOLMEET_EXPIRY_BATCH", &s.Expiry.BatchSize)

	return errors.Join(errs...)
}

func (s *Server) fillDevSecrets() {
	if s.Auth.JWTSigningKey == "" {
		s.Auth.JWTSigningKey = devSigningKey
		s.devDefaults = append(s.devDefaults, "jwt_signing_key")
	}
	if s.Credentials.MasterSeedHex == "" {
		s.Credentials.MasterSeedHex = devMasterSeed
		s.devDefaults = append(s.devDefaults, "master_seed")
	}
	if s.Credentials.ProofSaltHex == "" {
		s.Credentials.ProofSaltHex = devProofSalt
		s.devDefaults = append(s.devDefaults, "proof_salt")
	}
}

// DevDefaults lists secrets running on built-in development values.
func (s Server) DevDefaults() []string {
	return s.devDefaults
}

// IsProduction reports whether dev secrets must be refused.
func (s Server) IsProduction() bool {
	return s.Environment == "prod" || s.Environment == "production"
}

func (s Server) MasterSeed() ([]byte, error) {
	return decodeSecret("master_seed", s.Credentials.MasterSeedHex, MinSecretBytes)
}

func (s Server) ProofSalt() ([]byte, error) {
	return decodeSecret("proof_salt", s.Credentials.ProofSaltHex, MinSaltBytes)
}

func decodeSecret(name, value string, minBytes int) ([]byte, error) {
	raw, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%s must be hex: %w", name, err)
	}
	if len(raw) < minBytes {
		return nil, fmt.Errorf("%s must be at least %d bytes, got %d", name, minBytes, len(raw))
	}
	return raw, nil
}

func (s Server) Validate() error {
	var errs []error
	if s.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	switch s.EventStore {
	case BackendMemory, BackendSQLite, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("event_store %q must be memory, sqlite or postgres", s.EventStore))
	}
	switch s.LedgerBackend {
	case BackendMemory, BackendSQLite, BackendPostgres:
	case BackendRedis:
		if s.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis ledger"))
		}
	default:
		errs = append(errs, fmt.Errorf("ledger_backend %q must be memory, sqlite, postgres or redis", s.LedgerBackend))
	}
	if (s.EventStore == BackendPostgres || s.LedgerBackend == BackendPostgres) && s.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url is required for postgres backends"))
	}
	if (s.EventStore == BackendSQLite || s.LedgerBackend == BackendSQLite) && s.SQLitePath == "" {
		errs = append(errs, errors.New("sqlite_path is required for sqlite backends"))
	}
	if len(s.Auth.JWTSigningKey) < MinSecretBytes {
		errs = append(errs, fmt.Errorf("jwt_signing_key must be at least %d bytes", MinSecretBytes))
	}
	if _, err := s.MasterSeed(); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.ProofSalt(); err != nil {
		errs = append(errs, err)
	}
	if s.Credentials.DefaultTTL <= 0 {
		errs = append(errs, errors.New("credentials.default_ttl must be positive"))
	}
	if s.Credentials.MaxBatch < 1 {
		errs = append(errs, errors.New("credentials.max_batch must be positive"))
	}
	if s.Claims.RatePerSecond <= 0 || s.Claims.Burst < 1 {
		errs = append(errs, errors.New("claims rate limit must be positive"))
	}
	if s.Claims.LedgerTimeout <= 0 {
		errs = append(errs, errors.New("claims.ledger_timeout must be positive"))
	}
	if s.IsProduction() && len(s.devDefaults) > 0 {
		errs = append(errs, fmt.Errorf("production requires explicit secrets: %v", s.devDefaults))
	}
	return errors.Join(errs...)
}

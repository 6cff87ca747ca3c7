package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SOLMEET_CONFIG", "SOLMEET_ENV", "SOLMEET_LEDGER_BACKEND", "SOLMEET_REDIS_URL",
		"SOLMEET_JWT_SIGNING_KEY", "SOLMEET_MASTER_SEED", "SOLMEET_PROOF_SALT", "SOLMEET_LEDGER_TIMEOUT"} {
		t.Setenv(key, "")
	}
}

func TestLoad_DefaultsRunInMemoryWithDevSecrets(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.EventStore)
	assert.Equal(t, BackendMemory, cfg.LedgerBackend)
	assert.ElementsMatch(t, []string{"jwt_signing_key", "master_seed", "proof_salt"}, cfg.DevDefaults())

	seed, err := cfg.MasterSeed()
	require.NoError(t, err)
	assert.Len(t, seed, 32)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "solmeet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
ledger_backend: redis
redis:
  url: redis://localhost:6379/0
claims:
  ledger_timeout: 750ms
  burst: 4
`), 0o600))
	t.Setenv("SOLMEET_CONFIG", path)
	t.Setenv("SOLMEET_LEDGER_TIMEOUT", "1s")
	t.Setenv("SOLMEET_TRUSTED_PROXIES", "10.0.0.0/8,192.0.2.1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, BackendRedis, cfg.LedgerBackend)
	assert.Equal(t, 4, cfg.Claims.Burst)
	assert.Equal(t, time.Second, cfg.Claims.LedgerTimeout)
	assert.Equal(t, 5.0, cfg.Claims.RatePerSecond)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.TrustedProxies)
}

func TestLoad_RejectsUnparsableEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SOLMEET_LEDGER_TIMEOUT", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "SOLMEET_LEDGER_TIMEOUT")
}

func TestValidate(t *testing.T) {
	valid := func() Server {
		cfg := Defaults()
		cfg.fillDevSecrets()
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Server)
		want   string
	}{
		{"short master seed", func(s *Server) { s.Credentials.MasterSeedHex = "abcd" }, "master_seed"},
		{"non-hex salt", func(s *Server) { s.Credentials.ProofSaltHex = "zz" }, "proof_salt"},
		{"unknown ledger", func(s *Server) { s.LedgerBackend = "etcd" }, "ledger_backend"},
		{"redis without url", func(s *Server) { s.LedgerBackend = BackendRedis }, "redis.url"},
		{"postgres without url", func(s *Server) { s.EventStore = BackendPostgres }, "database_url"},
		{"short jwt key", func(s *Server) { s.Auth.JWTSigningKey = "short" }, "jwt_signing_key"},
		{"dev secrets in production", func(s *Server) { s.Environment = "production" }, "explicit secrets"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}

	assert.NoError(t, valid().Validate())
}

package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, StoreJSON, cfg.Store)
	assert.Equal(t, 0.5, cfg.PenaltyRate)
	assert.Equal(t, 30, cfg.LoanTermDays)
	assert.Equal(t, 1, cfg.RenewalDays)
}

func TestConfigApplyEnv(t *testing.T) {
	t.Setenv(EnvDataDir, "/srv/library")
	t.Setenv(EnvStore, "SQLite")
	t.Setenv(EnvLogFile, "/var/log/library.log")
	t.Setenv(EnvPenaltyRate, "1.25")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, Config{
		DataDir:      "/srv/library",
		Store:        StoreSQLite,
		LogFile:      "/var/log/library.log",
		PenaltyRate:  1.25,
		LoanTermDays: DefaultLoanTermDays,
		RenewalDays:  RenewalDays,
	}, cfg)

	t.Setenv(EnvPenaltyRate, "cheap")
	assert.ErrorIs(t, cfg.ApplyEnv(), ErrValidation)
}

func TestConfigValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"no dir":        func(c *Config) { c.DataDir = " " },
		"bad store":     func(c *Config) { c.Store = "postgres" },
		"negative rate": func(c *Config) { c.PenaltyRate = -1 },
		"no term":       func(c *Config) { c.LoanTermDays = 0 },
	} {
		cfg := DefaultConfig()
		mutate(&cfg)
		assert.ErrorIs(t, cfg.Validate(), ErrValidation, name)
	}
}

func TestOpenStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()

	s, err := cfg.OpenStore()
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)
	require.NoError(t, s.Close())

	cfg.Store = StoreSQLite
	s, err = cfg.OpenStore()
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())
}

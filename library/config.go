package library

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"

	DefaultDataDir = "files"
	sqliteFile     = "library.db"
)

// Environment overrides, applied on top of DefaultConfig.
const (
	EnvDataDir     = "LIBRARY_DATA_DIR"
	EnvStore       = "LIBRARY_STORE"
	EnvLogFile     = "LIBRARY_LOG_FILE"
	EnvPenaltyRate = "LIBRARY_PENALTY_RATE"
)

type Config struct {
	DataDir      string
	Store        string
	LogFile      string
	PenaltyRate  float64
	LoanTermDays int
	RenewalDays  int
}

func DefaultConfig() Config {
	return Config{
		DataDir:      DefaultDataDir,
		Store:        StoreJSON,
		PenaltyRate:  DefaultPenaltyRate,
		LoanTermDays: DefaultLoanTermDays,
		RenewalDays:  RenewalDays,
	}
}

// ApplyEnv overlays the LIBRARY_* variables that are set.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvStore); v != "" {
		c.Store = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv(EnvPenaltyRate); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(ErrValidation, "%s=%q is not a number", EnvPenaltyRate, v)
		}
		c.PenaltyRate = rate
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.Wrap(ErrValidation, "data directory must not be empty")
	}
	if c.Store != StoreJSON && c.Store != StoreSQLite {
		return errors.Wrapf(ErrValidation, "unknown store %q (json, sqlite)", c.Store)
	}
	if c.PenaltyRate < 0 {
		return errors.Wrapf(ErrValidation, "penalty rate must not be negative, got %v", c.PenaltyRate)
	}
	if c.LoanTermDays < 1 || c.RenewalDays < 1 {
		return errors.Wrap(ErrValidation, "loan term and renewal must be at least one day")
	}
	return nil
}

// OpenStore opens the record store selected by c.
func (c Config) OpenStore() (RecordStore, error) {
	switch c.Store {
	case StoreSQLite:
		s, err := NewSQLiteStore(filepath.Join(c.DataDir, sqliteFile))
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoreJSON, "":
		s, err := NewJSONStore(c.DataDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, errors.Wrapf(ErrValidation, "unknown store %q", c.Store)
}

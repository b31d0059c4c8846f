// Package config loads stmtsync.yaml and the environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/ledger"
)

// DefaultPath is the config file read when --config is not given
const DefaultPath = "stmtsync.yaml"

// Environment variables that override file values.
const (
	EnvAccessToken = "LUNCHMONEY_ACCESS_TOKEN"
	EnvLogLevel    = "STMTSYNC_LOG_LEVEL"
)

// Ledger drivers
const (
	DriverLunchMoney = "lunchmoney"
	DriverSQLite     = "sqlite"
)

// Config represents the top-level stmtsync.yaml configuration.
type Config struct {
	LogLevel   string         `yaml:"log_level"`
	StateFile  string         `yaml:"state_file,omitempty"`
	RulesFile  string         `yaml:"rules_file,omitempty"`
	Ledger     LedgerConfig   `yaml:"ledger"`
	Submission ledger.Options `yaml:"submission"`
	Formats    FormatsConfig  `yaml:"formats"`
}

// LedgerConfig selects and configures the ledger driver.
type LedgerConfig struct {
	Driver            string        `yaml:"driver"`
	AccessToken       string        `yaml:"access_token,omitempty"`
	BaseURL           string        `yaml:"base_url"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	SQLitePath        string        `yaml:"sqlite_path"`
	Accounts          []SeedAccount `yaml:"accounts,omitempty"`
}

// SeedAccount declares an account of the sqlite ledger.
type SeedAccount struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Currency    string `yaml:"currency"`
	Institution string `yaml:"institution"`
	Type        string `yaml:"type"`
}

// FormatsConfig holds per-format settings.
type FormatsConfig struct {
	ScotiabankChecking ScotiabankCheckingConfig `yaml:"scotiabank_checking"`
}

// ScotiabankCheckingConfig names the accounts Scotiabank checking exports feed.
type ScotiabankCheckingConfig struct {
	Accounts []string `yaml:"accounts,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Ledger: LedgerConfig{
			Driver:            DriverLunchMoney,
			BaseURL:           "https://dev.lunchmoney.app/v1",
			RequestsPerSecond: 4,
			SQLitePath:        "stmtsync.db",
		},
		Submission: ledger.DefaultOptions(),
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// A .env file in the working directory and the environment override file values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	// Missing .env is fine
	_ = godotenv.Load()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAccessToken); v != "" {
		c.Ledger.AccessToken = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the driver settings.
func (c *Config) Validate() error {
	switch c.Ledger.Driver {
	case DriverLunchMoney:
		if c.Ledger.AccessToken == "" {
			return fmt.Errorf("ledger.access_token (or %s) is required for the %s driver", EnvAccessToken, DriverLunchMoney)
		}
		if c.Ledger.RequestsPerSecond <= 0 {
			return fmt.Errorf("ledger.requests_per_second must be positive, got %v", c.Ledger.RequestsPerSecond)
		}
	case DriverSQLite:
		if c.Ledger.SQLitePath == "" {
			return fmt.Errorf("ledger.sqlite_path is required for the %s driver", DriverSQLite)
		}
		if _, err := c.SeedAccounts(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown ledger driver %q (must be %q or %q)", c.Ledger.Driver, DriverLunchMoney, DriverSQLite)
	}
	return nil
}

// SeedAccounts converts the configured sqlite accounts.
func (c *Config) SeedAccounts() ([]domain.Account, error) {
	accounts := make([]domain.Account, 0, len(c.Ledger.Accounts))
	for i, s := range c.Ledger.Accounts {
		typ := domain.AccountType(s.Type)
		if typ == "" {
			typ = domain.AccountTypeCash
		}
		if !domain.ValidateAccountType(typ) {
			return nil, fmt.Errorf("ledger.accounts[%d]: invalid type %q", i, s.Type)
		}
		acc, err := domain.NewAccount(s.ID, s.Name, s.Currency, s.Institution, typ)
		if err != nil {
			return nil, fmt.Errorf("ledger.accounts[%d]: %w", i, err)
		}
		accounts = append(accounts, *acc)
	}
	return accounts, nil
}

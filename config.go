package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/desk"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/ledger"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/migration"
)

const configDir = ".desk-migrate"

// Embedded default settings
//
//go:embed config/settings.yaml
var defaultSettings []byte

// Settings represents the YAML configuration structure
type Settings struct {
	Departments struct {
		Source      string `yaml:"source" validate:"required"`
		Destination string `yaml:"destination" validate:"required"`
	} `yaml:"departments"`
	Desk struct {
		BaseURL     string        `yaml:"base_url" validate:"omitempty,url"`
		AccountsURL string        `yaml:"accounts_url" validate:"omitempty,url"`
		Timeout     time.Duration `yaml:"timeout"`
		PageSize    int           `yaml:"page_size" validate:"gte=0,lte=100"`
		MaxPages    int           `yaml:"max_pages" validate:"gte=0"`
	} `yaml:"desk"`
	Breaker desk.BreakerConfig `yaml:"breaker"`
	Ledger  struct {
		Driver string `yaml:"driver" validate:"omitempty,oneof=sqlite postgres pgx"`
		DSN    string `yaml:"dsn"`
	} `yaml:"ledger"`
	MetricsFile   string `yaml:"metrics_file"`
	CategoryRoots struct {
		Source      string `yaml:"source"`
		Destination string `yaml:"destination"`
	} `yaml:"category_roots"`
	Categories migration.CategoryTable `yaml:"categories"`
}

// Credentials are read from the environment, never from settings.yaml
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  string
	OrgID        string
}

// Config holds settings and credentials
type Config struct {
	Settings    *Settings
	Credentials Credentials
}

// NewConfig loads settings from path, or from the default location when
// path is empty, and credentials from the environment.
func NewConfig(path string) (*Config, error) {
	if path == "" {
		if err := ensureConfigExists(); err != nil {
			return nil, err
		}
		path = getConfigPath("settings.yaml")
	}

	settings, err := loadSettings(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	return &Config{
		Settings:    settings,
		Credentials: loadCredentials(),
	}, nil
}

// loadSettings reads, defaults and validates a settings file
func loadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings YAML: %w", err)
	}
	settings.applyDefaults()

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(settings); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return &settings, nil
}

func (s *Settings) applyDefaults() {
	if s.Desk.BaseURL == "" {
		s.Desk.BaseURL = desk.DefaultBaseURL
	}
	if s.Desk.AccountsURL == "" {
		s.Desk.AccountsURL = desk.DefaultAccountsURL
	}
	if s.Desk.Timeout <= 0 {
		s.Desk.Timeout = desk.DefaultTimeout
	}
	if s.Desk.PageSize == 0 {
		s.Desk.PageSize = migration.DefaultPageSize
	}
	if s.Desk.MaxPages == 0 {
		s.Desk.MaxPages = migration.DefaultMaxPages
	}
	if s.Breaker.MinRequests == 0 {
		s.Breaker = desk.DefaultBreakerConfig()
	}
	if s.Ledger.Driver == "" {
		s.Ledger.Driver = ledger.DriverSQLite
	}
	if s.Ledger.DSN == "" && s.Ledger.Driver == ledger.DriverSQLite {
		s.Ledger.DSN = getConfigPath("ledger.db")
	}
}

// loadCredentials reads the ZOHO_* variables, loading .env first when present
func loadCredentials() Credentials {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		zap.L().Warn("failed to load .env", zap.Error(err))
	}
	return Credentials{
		ClientID:     os.Getenv("ZOHO_CLIENT_ID"),
		ClientSecret: os.Getenv("ZOHO_CLIENT_SECRET"),
		RefreshToken: os.Getenv("ZOHO_REFRESH_TOKEN"),
		AccessToken:  os.Getenv("ZOHO_ACCESS_TOKEN"),
		OrgID:        os.Getenv("ZOHO_ORG_ID"),
	}
}

// CredentialProvider returns a static token provider when ZOHO_ACCESS_TOKEN
// is set, otherwise an OAuth refresh-token provider.
func (c *Config) CredentialProvider(logger *zap.Logger) (desk.CredentialProvider, error) {
	if c.Credentials.AccessToken != "" {
		return desk.StaticToken(c.Credentials.AccessToken), nil
	}
	provider, err := desk.NewOAuthProvider(desk.OAuthConfig{
		ClientID:     c.Credentials.ClientID,
		ClientSecret: c.Credentials.ClientSecret,
		RefreshToken: c.Credentials.RefreshToken,
		AccountsURL:  c.Settings.Desk.AccountsURL,
		Timeout:      c.Settings.Desk.Timeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// getConfigPath returns the path to a file in the .desk-migrate directory
func getConfigPath(filename string) string {
	return filepath.Join(configDir, filename)
}

// ensureConfigExists creates the config directory and default settings if they don't exist
func ensureConfigExists() error {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	settingsPath := getConfigPath("settings.yaml")
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		if err := os.WriteFile(settingsPath, defaultSettings, 0644); err != nil {
			return fmt.Errorf("failed to write default settings: %w", err)
		}
	}

	return nil
}

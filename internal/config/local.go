package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// Annotator kinds
const (
	AnnotatorLexicon = "lexicon"
	AnnotatorHTTP    = "http"
)

// Storage drivers
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// LocalConfig holds configuration for local daemon and CLI mode
type LocalConfig struct {
	Daemon    DaemonConfig    `yaml:"daemon"`
	Annotator AnnotatorConfig `yaml:"annotator"`
	Exercises ExercisesConfig `yaml:"exercises"`
	Storage   StorageConfig   `yaml:"storage"`
	Queue     QueueConfig     `yaml:"queue"`
}

// DaemonConfig holds daemon server settings
type DaemonConfig struct {
	Port     int    `yaml:"port"`
	Bind     string `yaml:"bind"`
	LogLevel string `yaml:"log_level"`

	// RequestsPerMinute caps generation and preview calls per client; 0 disables
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// AnnotatorConfig selects and tunes the annotation backend
type AnnotatorConfig struct {
	Kind           string `yaml:"kind"`
	URL            string `yaml:"url,omitempty"`
	Model          string `yaml:"model,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	LexiconPath    string `yaml:"lexicon_path,omitempty"`

	// Resilience applies to the http kind
	MaxAttempts   int `yaml:"max_attempts"`
	MaxConcurrent int `yaml:"max_concurrent"`
	RatePerSecond int `yaml:"rate_per_second"`
}

// ExercisesConfig holds generation settings
type ExercisesConfig struct {
	DefaultTier string  `yaml:"default_tier"`
	SampleRatio float64 `yaml:"sample_ratio"`
	Workers     int     `yaml:"workers"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path,omitempty"` // sqlite file; default ~/.comprende/comprende.db
	DSN    string `yaml:"-"`              // postgres; loaded from secrets.yaml
}

// QueueConfig holds RabbitMQ settings. Jobs run inline when disabled.
type QueueConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Concurrency int    `yaml:"concurrency"`
	URL         string `yaml:"-"` // loaded from secrets.yaml
}

// SecretsConfig holds connection strings loaded from secrets.yaml
type SecretsConfig struct {
	DatabaseURL string `yaml:"database_url,omitempty"`
	RabbitMQURL string `yaml:"rabbitmq_url,omitempty"`
}

// ComprendeDir returns the path to ~/.comprende
func ComprendeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".comprende"), nil
}

// EnsureComprendeDir creates ~/.comprende and subdirectories if they don't exist
func EnsureComprendeDir() (string, error) {
	dir, err := ComprendeDir()
	if err != nil {
		return "", err
	}

	for _, subdir := range []string{"", "logs", "transcripts"} {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Daemon: DaemonConfig{
			Port:              7433,
			Bind:              "127.0.0.1",
			LogLevel:          "info",
			RequestsPerMinute: 60,
		},
		Annotator: AnnotatorConfig{
			Kind:           AnnotatorLexicon,
			URL:            "http://localhost:8090",
			Model:          "es_dep_news_trf",
			TimeoutSeconds: 30,
			MaxAttempts:    3,
			MaxConcurrent:  8,
			RatePerSecond:  20,
		},
		Exercises: ExercisesConfig{
			DefaultTier: string(domain.TierMedium),
			SampleRatio: 0.1,
			Workers:     4,
		},
		Storage: StorageConfig{
			Driver: StorageSQLite,
		},
		Queue: QueueConfig{
			Enabled:     false,
			Concurrency: 2,
		},
	}
}

// Validate checks the settings that would otherwise fail deep inside a job
func (c *LocalConfig) Validate() error {
	var errs []error

	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		errs = append(errs, fmt.Errorf("daemon.port %d out of range", c.Daemon.Port))
	}
	if c.Daemon.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("daemon.requests_per_minute must not be negative, got %d", c.Daemon.RequestsPerMinute))
	}
	switch c.Annotator.Kind {
	case AnnotatorLexicon:
	case AnnotatorHTTP:
		if c.Annotator.URL == "" {
			errs = append(errs, errors.New("annotator.url is required for the http annotator"))
		}
	default:
		errs = append(errs, fmt.Errorf("annotator.kind %q is not one of lexicon, http", c.Annotator.Kind))
	}
	if !domain.IsValidTier(c.Exercises.DefaultTier) {
		errs = append(errs, fmt.Errorf("exercises.default_tier: %w: %q", domain.ErrInvalidProfile, c.Exercises.DefaultTier))
	}
	if r := c.Exercises.SampleRatio; r <= 0 || r > 1 {
		errs = append(errs, fmt.Errorf("exercises.sample_ratio: %w: %v", domain.ErrInvalidSampleRatio, r))
	}
	if c.Exercises.Workers <= 0 {
		errs = append(errs, fmt.Errorf("exercises.workers must be positive, got %d", c.Exercises.Workers))
	}
	switch c.Storage.Driver {
	case StorageSQLite:
	case StoragePostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage: postgres needs database_url in secrets.yaml"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of sqlite, postgres", c.Storage.Driver))
	}
	if c.Queue.Enabled && c.Queue.URL == "" {
		errs = append(errs, errors.New("queue: enabled but rabbitmq_url missing from secrets.yaml"))
	}

	return errors.Join(errs...)
}

// SQLitePath returns the configured database file, defaulting into dir
func (c *LocalConfig) SQLitePath(dir string) string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(dir, "comprende.db")
}

// LoadLocalConfig loads configuration from ~/.comprende/config.yaml
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := ComprendeDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(dir, "config.yaml")

	cfg := DefaultLocalConfig()
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}

	return cfg, nil
}

// loadSecrets loads connection strings from secrets.yaml
func loadSecrets(dir string, cfg *LocalConfig) error {
	secretsPath := filepath.Join(dir, "secrets.yaml")

	data, err := os.ReadFile(secretsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}

	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}

	cfg.Storage.DSN = secrets.DatabaseURL
	cfg.Queue.URL = secrets.RabbitMQURL
	return nil
}

// SaveLocalConfig saves configuration to ~/.comprende/config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsureComprendeDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// SaveSecrets saves connection strings to ~/.comprende/secrets.yaml
func SaveSecrets(secrets SecretsConfig) error {
	dir, err := EnsureComprendeDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	// owner read/write only
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}

	return nil
}

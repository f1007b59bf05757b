package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

func TestComprendeDir(t *testing.T) {
	dir, err := ComprendeDir()
	if err != nil {
		t.Fatalf("ComprendeDir() error = %v", err)
	}
	if filepath.Base(dir) != ".comprende" {
		t.Errorf("ComprendeDir() = %q, want ending with .comprende", dir)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ComprendeDir() = %q, want absolute path", dir)
	}
}

func TestEnsureComprendeDir(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	dir, err := EnsureComprendeDir()
	if err != nil {
		t.Fatalf("EnsureComprendeDir() error = %v", err)
	}
	if want := filepath.Join(tmpHome, ".comprende"); dir != want {
		t.Errorf("EnsureComprendeDir() = %q, want %q", dir, want)
	}
	for _, subdir := range []string{"logs", "transcripts"} {
		if _, err := os.Stat(filepath.Join(dir, subdir)); os.IsNotExist(err) {
			t.Errorf("EnsureComprendeDir() should create %s", subdir)
		}
	}
}

func TestDefaultLocalConfig(t *testing.T) {
	cfg := DefaultLocalConfig()

	if cfg.Daemon.Port != 7433 {
		t.Errorf("Daemon.Port = %d, want 7433", cfg.Daemon.Port)
	}
	if cfg.Daemon.Bind != "127.0.0.1" {
		t.Errorf("Daemon.Bind = %q", cfg.Daemon.Bind)
	}
	if cfg.Annotator.Kind != AnnotatorLexicon {
		t.Errorf("Annotator.Kind = %q, want lexicon", cfg.Annotator.Kind)
	}
	if cfg.Exercises.DefaultTier != string(domain.TierMedium) {
		t.Errorf("Exercises.DefaultTier = %q", cfg.Exercises.DefaultTier)
	}
	if cfg.Exercises.SampleRatio != 0.1 {
		t.Errorf("Exercises.SampleRatio = %v", cfg.Exercises.SampleRatio)
	}
	if cfg.Storage.Driver != StorageSQLite {
		t.Errorf("Storage.Driver = %q", cfg.Storage.Driver)
	}
	if cfg.Queue.Enabled {
		t.Error("queue should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLocalConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LocalConfig)
		target error
	}{
		{"bad port", func(c *LocalConfig) { c.Daemon.Port = 0 }, nil},
		{"negative rate limit", func(c *LocalConfig) { c.Daemon.RequestsPerMinute = -1 }, nil},
		{"unknown annotator", func(c *LocalConfig) { c.Annotator.Kind = "spacy" }, nil},
		{"http without url", func(c *LocalConfig) { c.Annotator.Kind = AnnotatorHTTP; c.Annotator.URL = "" }, nil},
		{"unknown tier", func(c *LocalConfig) { c.Exercises.DefaultTier = "extremo" }, domain.ErrInvalidProfile},
		{"ratio zero", func(c *LocalConfig) { c.Exercises.SampleRatio = 0 }, domain.ErrInvalidSampleRatio},
		{"ratio above one", func(c *LocalConfig) { c.Exercises.SampleRatio = 1.01 }, domain.ErrInvalidSampleRatio},
		{"no workers", func(c *LocalConfig) { c.Exercises.Workers = 0 }, nil},
		{"unknown driver", func(c *LocalConfig) { c.Storage.Driver = "mysql" }, nil},
		{"postgres without dsn", func(c *LocalConfig) { c.Storage.Driver = StoragePostgres }, nil},
		{"queue without url", func(c *LocalConfig) { c.Queue.Enabled = true }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLocalConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Validate() error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestLoadLocalConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadLocalConfig()
	if err != nil {
		t.Fatalf("LoadLocalConfig() error = %v", err)
	}
	if cfg.Daemon.Port != 7433 {
		t.Errorf("Daemon.Port = %d, want default", cfg.Daemon.Port)
	}
}

func TestSaveAndLoadLocalConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultLocalConfig()
	cfg.Daemon.Port = 9999
	cfg.Annotator.Kind = AnnotatorHTTP
	cfg.Exercises.DefaultTier = string(domain.TierHard)
	cfg.Storage.DSN = "should-not-be-written"

	if err := SaveLocalConfig(cfg); err != nil {
		t.Fatalf("SaveLocalConfig() error = %v", err)
	}

	dir, _ := ComprendeDir()
	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("saved config is not valid yaml: %v", err)
	}
	if _, ok := raw["storage"].(map[string]any)["dsn"]; ok {
		t.Error("DSN should not be written to config.yaml")
	}

	loaded, err := LoadLocalConfig()
	if err != nil {
		t.Fatalf("LoadLocalConfig() error = %v", err)
	}
	if loaded.Daemon.Port != 9999 || loaded.Annotator.Kind != AnnotatorHTTP || loaded.Exercises.DefaultTier != "dificil" {
		t.Errorf("loaded config = %+v", loaded)
	}
	if loaded.Storage.DSN != "" {
		t.Errorf("Storage.DSN = %q, want empty without secrets", loaded.Storage.DSN)
	}
}

func TestLoadSecrets(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	err := SaveSecrets(SecretsConfig{
		DatabaseURL: "postgres://u:p@db/comprende",
		RabbitMQURL: "amqp://guest:guest@mq:5672/",
	})
	if err != nil {
		t.Fatalf("SaveSecrets() error = %v", err)
	}

	dir, _ := ComprendeDir()
	info, err := os.Stat(filepath.Join(dir, "secrets.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("secrets.yaml mode = %v, want 0600", info.Mode().Perm())
	}

	cfg, err := LoadLocalConfig()
	if err != nil {
		t.Fatalf("LoadLocalConfig() error = %v", err)
	}
	if cfg.Storage.DSN != "postgres://u:p@db/comprende" {
		t.Errorf("Storage.DSN = %q", cfg.Storage.DSN)
	}
	if cfg.Queue.URL != "amqp://guest:guest@mq:5672/" {
		t.Errorf("Queue.URL = %q", cfg.Queue.URL)
	}
}

func TestLoadLocalConfigInvalidYAML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir, err := EnsureComprendeDir()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("daemon: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLocalConfig(); err == nil {
		t.Error("expected parse error")
	}
}

func TestSQLitePath(t *testing.T) {
	cfg := DefaultLocalConfig()
	if got := cfg.SQLitePath("/data"); got != filepath.Join("/data", "comprende.db") {
		t.Errorf("SQLitePath() = %q", got)
	}
	cfg.Storage.Path = "/tmp/x.db"
	if got := cfg.SQLitePath("/data"); got != "/tmp/x.db" {
		t.Errorf("SQLitePath() = %q", got)
	}
}

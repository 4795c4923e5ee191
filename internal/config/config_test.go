package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want localhost", cfg.Database.Host)
	}
	if cfg.Notifications.Interval != time.Second {
		t.Errorf("Notifications.Interval = %v, want 1s", cfg.Notifications.Interval)
	}
	if cfg.Notifications.MaxAttempts != 5 {
		t.Errorf("Notifications.MaxAttempts = %d, want 5", cfg.Notifications.MaxAttempts)
	}
}

func TestLoadReadsConfigFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `
database:
  host: db.internal
  port: 6543
notifications:
  interval: 5s
  max_attempts: 3
`
	if err := os.WriteFile(filepath.Join(dir, "rdf.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, want db.internal", cfg.Database.Host)
	}
	if cfg.Database.Port != 6543 {
		t.Errorf("Database.Port = %d, want 6543", cfg.Database.Port)
	}
	if cfg.Notifications.Interval != 5*time.Second {
		t.Errorf("Notifications.Interval = %v, want 5s", cfg.Notifications.Interval)
	}
	if cfg.Notifications.MaxAttempts != 3 {
		t.Errorf("Notifications.MaxAttempts = %d, want 3", cfg.Notifications.MaxAttempts)
	}
}

func TestLoadEnvironmentOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "rdf.yaml"), []byte("database:\n  host: from-file\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	t.Setenv("RDF_DATABASE_HOST", "from-env")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Host != "from-env" {
		t.Errorf("Database.Host = %q, want from-env (env should win)", cfg.Database.Host)
	}
}

func TestDatabaseDSNDefaultsSSLModeToDisable(t *testing.T) {
	d := Database{Host: "h", Port: 5432, User: "u", Password: "p", Database: "d"}
	dsn := d.DSN()
	want := "host=h port=5432 user=u password=p dbname=d sslmode=disable"
	if dsn != want {
		t.Errorf("DSN() = %q, want %q", dsn, want)
	}
}

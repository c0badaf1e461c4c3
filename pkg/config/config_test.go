package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dental.yaml")
	yml := `
input:
  csv: data/patients.csv
  delimiter: ";"
  columns:
    patient_id: pid
    service_date: visit_date
    amount: total
report:
  as_of: "2025-06-30"
  late_after_days: 45
redis:
  ttl: 2h
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("DENTAL_PG_URL", "postgres://u:p@db/dental")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Input.CSV != "data/patients.csv" || cfg.Comma() != ';' {
		t.Fatalf("input not loaded: %+v", cfg.Input)
	}
	if cfg.Input.Columns.PatientID != "pid" || cfg.Input.Columns.Clinic != "nom_de_la_clinique" {
		t.Fatalf("columns not merged with defaults: %+v", cfg.Input.Columns)
	}
	if cfg.Report.LateAfterDays != 45 || cfg.Report.TopN != 10 {
		t.Fatalf("report not merged with defaults: %+v", cfg.Report)
	}
	if cfg.Redis.TTL != 2*time.Hour {
		t.Fatalf("got ttl %v, want 2h", cfg.Redis.TTL)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("brokers not overridden: %v", cfg.Kafka.Brokers)
	}
	if cfg.Postgres.URL != "postgres://u:p@db/dental" {
		t.Fatalf("postgres url not overridden: %s", cfg.Postgres.URL)
	}
	asOf, err := cfg.AsOf(time.Now())
	if err != nil || !asOf.Equal(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got as-of %v (%v)", asOf, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no input", func(c *Config) {}},
		{"two inputs", func(c *Config) { c.Input.CSV = "a.csv"; c.Input.MySQLDSN = "mysql://u:p@h/db" }},
		{"bad delimiter", func(c *Config) { c.Input.CSV = "a.csv"; c.Input.Delimiter = ";;" }},
		{"bad late days", func(c *Config) { c.Input.CSV = "a.csv"; c.Report.LateAfterDays = 0 }},
		{"bad as-of", func(c *Config) { c.Input.CSV = "a.csv"; c.Report.AsOf = "30/06/2025" }},
		{"postgres without url", func(c *Config) { c.Input.CSV = "a.csv"; c.Postgres.Enabled = true }},
		{"kafka without topic", func(c *Config) { c.Input.CSV = "a.csv"; c.Kafka.Enabled = true; c.Kafka.Topic = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestAsOf_DefaultsToToday(t *testing.T) {
	cfg := Default()
	now := time.Date(2025, 10, 19, 15, 4, 5, 0, time.UTC)
	got, err := cfg.AsOf(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2025, 10, 19, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got %v", got)
	}
}

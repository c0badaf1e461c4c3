package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"dental-kpi/pkg/database"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "config.yaml"

// Config holds application configuration
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Report   ReportConfig   `yaml:"report"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Verbose  bool           `yaml:"verbose"`
}

// InputConfig : source des actes, CSV ou table MySQL/MariaDB.
type InputConfig struct {
	CSV       string           `yaml:"csv"`
	Delimiter string           `yaml:"delimiter"`
	Strict    bool             `yaml:"strict"`
	MySQLDSN  string           `yaml:"mysql_dsn"`
	Table     string           `yaml:"table"`
	Columns   database.Columns `yaml:"columns"`
}

// ReportConfig : paramètres du calcul.
type ReportConfig struct {
	AsOf          string `yaml:"as_of"`       // YYYY-MM-DD, vide = aujourd'hui
	StartMonth    string `yaml:"start_month"` // MMYYYY
	EndMonth      string `yaml:"end_month"`   // MMYYYY
	Clinic        string `yaml:"clinic"`
	LateAfterDays int    `yaml:"late_after_days"`
	TopN          int    `yaml:"top_n"`
	JSONPath      string `yaml:"json_path"`
}

// PostgresConfig : persistance des runs.
type PostgresConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Schema  string `yaml:"schema"`
	Tag     string `yaml:"tag"`
}

// KafkaConfig : publication des scores par patient.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RedisConfig : cache des rapports.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Default renvoie la configuration par défaut.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Delimiter: ",",
			Table:     "soins",
			Columns:   database.DefaultColumns(),
		},
		Report: ReportConfig{
			LateAfterDays: 30,
			TopN:          10,
		},
		Postgres: PostgresConfig{
			Schema: "dental_kpi",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "dental-rfm-scores",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  24 * time.Hour,
		},
	}
}

// Load : défauts, puis fichier YAML, puis .env et variables d'environnement.
// Un chemin explicite doit exister ; sinon config.yaml est lu s'il est présent.
func Load(path string) (*Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = defaultConfigFile
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	case path != "" || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Load .env file if exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] .env ignoré: %v", err)
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DENTAL_INPUT"); v != "" {
		cfg.Input.CSV = v
	}
	if v := os.Getenv("DENTAL_MYSQL_DSN"); v != "" {
		cfg.Input.MySQLDSN = v
	}
	if v := os.Getenv("DENTAL_TABLE"); v != "" {
		cfg.Input.Table = v
	}
	if v := os.Getenv("DENTAL_AS_OF"); v != "" {
		cfg.Report.AsOf = v
	}
	if v := os.Getenv("DENTAL_PG_URL"); v != "" {
		cfg.Postgres.URL = v
	} else if v := os.Getenv("DATABASE_URL"); v != "" && cfg.Postgres.URL == "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DENTAL_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Verbose = b
		}
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate vérifie la cohérence de la configuration finale (après flags).
func (c *Config) Validate() error {
	if c.Input.CSV == "" && c.Input.MySQLDSN == "" {
		return errors.New("input required: csv path or mysql dsn")
	}
	if c.Input.CSV != "" && c.Input.MySQLDSN != "" {
		return errors.New("choose one input: csv path or mysql dsn")
	}
	if len([]rune(c.Input.Delimiter)) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Input.Delimiter)
	}
	if c.Report.LateAfterDays <= 0 {
		return errors.New("late_after_days must be positive")
	}
	if _, err := c.AsOf(time.Now()); err != nil {
		return err
	}
	if c.Postgres.Enabled && c.Postgres.URL == "" {
		return errors.New("postgres enabled but no url; set DENTAL_PG_URL or DATABASE_URL")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("kafka enabled but brokers or topic missing")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis enabled but no address")
	}
	return nil
}

// AsOf renvoie la date de référence (minuit UTC) ; now est utilisé si aucune date n'est configurée.
func (c *Config) AsOf(now time.Time) (time.Time, error) {
	if c.Report.AsOf == "" {
		now = now.UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	parsed, err := time.Parse("2006-01-02", c.Report.AsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as_of date %q: %w", c.Report.AsOf, err)
	}
	return parsed, nil
}

// Comma renvoie le séparateur CSV.
func (c *Config) Comma() rune {
	return []rune(c.Input.Delimiter)[0]
}

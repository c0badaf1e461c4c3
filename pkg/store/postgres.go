package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"dental-kpi/pkg/calculator"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var schemaRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store persiste les runs RFM/KPI dans un schéma Postgres.
type Store struct {
	db     *sql.DB
	schema string
}

// Open ouvre la connexion via le driver pgx et vérifie qu'elle répond.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

// New valide le nom de schéma. Le schéma est créé par EnsureSchema.
func New(db *sql.DB, schema string) (*Store, error) {
	s, err := sanitizeSchema(schema)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, schema: s}, nil
}

func sanitizeSchema(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("db schema is required")
	}
	if !schemaRe.MatchString(value) {
		return "", fmt.Errorf("invalid schema name: %s", value)
	}
	return value, nil
}

func schemaStatements(schema string) []string {
	return []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.rfm_runs (
			id uuid PRIMARY KEY,
			as_of date NOT NULL,
			source text,
			run_tag text,
			transactions integer NOT NULL,
			invalid_rows integer NOT NULL,
			patients integer NOT NULL,
			degraded_reason text,
			total_revenue numeric(14,2) NOT NULL,
			retention_rate numeric(5,1) NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.rfm_patient_scores (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s.rfm_runs(id) ON DELETE CASCADE,
			patient_id text NOT NULL,
			recency_days integer NOT NULL,
			frequency integer NOT NULL,
			monetary_total numeric(14,2) NOT NULL,
			last_visit date NOT NULL,
			r_score smallint,
			f_score smallint,
			m_score smallint,
			segment text
		)`, schema, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS rfm_patient_scores_run_idx ON %s.rfm_patient_scores (run_id)`, schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.rfm_segment_summary (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s.rfm_runs(id) ON DELETE CASCADE,
			segment text NOT NULL,
			patients integer NOT NULL,
			mean_monetary numeric(14,2) NOT NULL
		)`, schema, schema),
	}
}

// EnsureSchema crée le schéma et les tables si besoin.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.schema) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveRun enregistre le rapport dans une transaction et renvoie l'identifiant du run.
func (s *Store) SaveRun(ctx context.Context, report calculator.Report, tag string) (uuid.UUID, error) {
	runID := uuid.New()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s.rfm_runs (
			id, as_of, source, run_tag, transactions, invalid_rows,
			patients, degraded_reason, total_revenue, retention_rate
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`, s.schema),
		runID,
		report.AsOf,
		nullString(report.Source),
		nullString(tag),
		report.Transactions,
		report.InvalidRows,
		len(report.RFM.Patients),
		nullString(report.DegradedReason),
		report.Insights.TotalRevenue,
		report.Patients.RetentionRate,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	insertScore := fmt.Sprintf(`
		INSERT INTO %s.rfm_patient_scores (
			id, run_id, patient_id, recency_days, frequency, monetary_total,
			last_visit, r_score, f_score, m_score, segment
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`, s.schema)
	for _, p := range report.RFM.Patients {
		var r, f, m sql.NullInt16
		var segment sql.NullString
		if p.Score != nil {
			r = sql.NullInt16{Int16: int16(p.Score.R), Valid: true}
			f = sql.NullInt16{Int16: int16(p.Score.F), Valid: true}
			m = sql.NullInt16{Int16: int16(p.Score.M), Valid: true}
			segment = nullString(string(p.Score.Segment))
		}
		_, err = tx.ExecContext(ctx, insertScore,
			uuid.New(), runID, p.PatientID, p.RecencyDays, p.Frequency, p.MonetaryTotal,
			p.LastVisit, r, f, m, segment,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert patient %s: %w", p.PatientID, err)
		}
	}

	insertSegment := fmt.Sprintf(`
		INSERT INTO %s.rfm_segment_summary (id, run_id, segment, patients, mean_monetary)
		VALUES ($1,$2,$3,$4,$5)`, s.schema)
	for _, seg := range report.Segments {
		_, err = tx.ExecContext(ctx, insertSegment, uuid.New(), runID, string(seg.Segment), seg.Patients, seg.MeanMonetary)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert segment %s: %w", seg.Segment, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return uuid.Nil, err
	}
	return runID, nil
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

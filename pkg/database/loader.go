package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"dental-kpi/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

var identRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Columns associe chaque champ d'une Transaction à une colonne SQL.
// Une colonne optionnelle vide est lue comme NULL.
type Columns struct {
	PatientID     string `yaml:"patient_id"`
	ServiceDate   string `yaml:"service_date"`
	Amount        string `yaml:"amount"`
	TreatmentType string `yaml:"treatment_type"`
	Practitioner  string `yaml:"practitioner"`
	Clinic        string `yaml:"clinic"`
	Canton        string `yaml:"canton"`
	AmountPaid    string `yaml:"amount_paid"`
	PaymentDate   string `yaml:"payment_date"`
	Duration      string `yaml:"duration_minutes"`
}

// DefaultColumns correspond à l'export "patients_mis_a_jour".
func DefaultColumns() Columns {
	return Columns{
		PatientID:     "patientid",
		ServiceDate:   "date_du_soin",
		Amount:        "montant_total_chf",
		TreatmentType: "type_de_soin",
		Practitioner:  "dentiste",
		Clinic:        "nom_de_la_clinique",
		Canton:        "canton_clinique",
		AmountPaid:    "montant_paye_chf",
		PaymentDate:   "date_paiement",
	}
}

// Window borne la date de soin sur [Start, End). Des bornes zéro ne filtrent pas.
type Window struct {
	Start time.Time
	End   time.Time
}

// Open DSN mariadb:// ou mysql:// → format MySQL driver
func Open(dsn string) (*sql.DB, string, error) {
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, redactDSN(mysqlDSN), nil
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("dsn incomplet (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// redactDSN masque le mot de passe pour les logs.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	colon := strings.Index(dsn, ":")
	if at < 0 || colon < 0 || colon > at {
		return dsn
	}
	return dsn[:colon+1] + "***" + dsn[at:]
}

// CheckColumns vérifie que la table expose les colonnes obligatoires et les optionnelles renseignées.
func CheckColumns(ctx context.Context, db *sql.DB, table string, cols Columns) error {
	if err := validateIdents(table, cols); err != nil {
		return err
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", table))
	if err != nil {
		return fmt.Errorf("probe %s: %w", table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[strings.ToLower(n)] = true
	}
	for _, c := range cols.list() {
		if c.name == "" {
			continue
		}
		if !present[strings.ToLower(c.name)] {
			return &models.MissingColumnError{Column: c.name, Source: table}
		}
	}
	return nil
}

type column struct {
	field    string
	name     string
	required bool
}

func (c Columns) list() []column {
	return []column{
		{"patient_id", c.PatientID, true},
		{"service_date", c.ServiceDate, true},
		{"amount", c.Amount, true},
		{"treatment_type", c.TreatmentType, false},
		{"practitioner", c.Practitioner, false},
		{"clinic", c.Clinic, false},
		{"canton", c.Canton, false},
		{"amount_paid", c.AmountPaid, false},
		{"payment_date", c.PaymentDate, false},
		{"duration_minutes", c.Duration, false},
	}
}

func validateIdents(table string, cols Columns) error {
	if !identRe.MatchString(table) {
		return fmt.Errorf("table invalide: %q", table)
	}
	for _, c := range cols.list() {
		if c.name == "" {
			if c.required {
				return &models.MissingColumnError{Column: c.field, Source: table}
			}
			continue
		}
		if !identRe.MatchString(c.name) {
			return fmt.Errorf("colonne invalide: %q", c.name)
		}
	}
	return nil
}

func buildQuery(table string, cols Columns, w Window) (string, []any) {
	selects := make([]string, 0, 10)
	for _, c := range cols.list() {
		if c.name == "" {
			selects = append(selects, "NULL AS "+c.field)
			continue
		}
		selects = append(selects, "t."+c.name)
	}
	q := fmt.Sprintf("SELECT %s FROM %s t", strings.Join(selects, ", "), table)

	const layout = "2006-01-02 15:04:05"
	var where []string
	var args []any
	if !w.Start.IsZero() {
		where = append(where, "t."+cols.ServiceDate+" >= ?")
		args = append(args, w.Start.UTC().Format(layout))
	}
	if !w.End.IsZero() {
		where = append(where, "t."+cols.ServiceDate+" < ?")
		args = append(args, w.End.UTC().Format(layout))
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY t." + cols.ServiceDate
	return q, args
}

// LoadTransactions lit les actes de soin de la table. Les lignes sans patient ou sans date sont
// écartées et comptées dans le second résultat.
func LoadTransactions(ctx context.Context, db *sql.DB, table string, cols Columns, w Window, verbose bool) ([]models.Transaction, int, error) {
	if err := validateIdents(table, cols); err != nil {
		return nil, 0, err
	}
	q, args := buildQuery(table, cols, w)
	if verbose {
		log.Printf("[DEBUG] query=%s args=%v", q, args)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out     []models.Transaction
		skipped int
	)
	for rows.Next() {
		var (
			patientID    sql.NullString
			serviceDate  sql.NullTime
			amount       decimal.NullDecimal
			treatment    sql.NullString
			practitioner sql.NullString
			clinic       sql.NullString
			canton       sql.NullString
			paid         decimal.NullDecimal
			paymentDate  sql.NullTime
			duration     sql.NullInt64
		)
		if err := rows.Scan(&patientID, &serviceDate, &amount, &treatment, &practitioner,
			&clinic, &canton, &paid, &paymentDate, &duration); err != nil {
			return nil, 0, err
		}
		if !patientID.Valid || patientID.String == "" || !serviceDate.Valid {
			skipped++
			continue
		}
		if !amount.Valid || amount.Decimal.IsNegative() {
			skipped++
			continue
		}

		tx := models.Transaction{
			PatientID:     patientID.String,
			ServiceDate:   serviceDate.Time.UTC(),
			Amount:        amount.Decimal,
			TreatmentType: treatment.String,
			Practitioner:  practitioner.String,
			Clinic:        clinic.String,
			Canton:        canton.String,
			AmountPaid:    paid,
		}
		if paymentDate.Valid {
			tx.PaymentDate = paymentDate.Time.UTC()
		}
		if duration.Valid && duration.Int64 > 0 {
			tx.DurationMinutes = int(duration.Int64)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if verbose {
		log.Printf("[DEBUG] Lignes lues=%d, lignes écartées=%d", len(out)+skipped, skipped)
	}
	return out, skipped, nil
}

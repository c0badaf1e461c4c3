package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"dental-kpi/pkg/models"

	"github.com/shopspring/decimal"
)

// Alias des colonnes reconnues, après normalisation (minuscules, accents et espaces retirés).
var (
	patientAliases      = []string{"patient_id", "patientid", "patient", "id_patient"}
	dateAliases         = []string{"service_date", "date_du_soin", "date_soin", "date"}
	amountAliases       = []string{"amount", "montant_total_chf", "montant_total", "montant"}
	treatmentAliases    = []string{"treatment_type", "type_de_soin_normalise", "type_de_soin", "type_soin"}
	practitionerAliases = []string{"practitioner", "dentiste", "nom_complet_praticien", "praticien"}
	clinicAliases       = []string{"clinic", "nom_de_la_clinique", "cabinet", "clinique"}
	cantonAliases       = []string{"canton", "canton_clinique"}
	paidAliases         = []string{"amount_paid", "montant_paye_chf", "montant_paye"}
	paymentDateAliases  = []string{"payment_date", "date_paiement", "date_de_paiement"}
	durationAliases     = []string{"duration_minutes", "duree_minutes", "duree"}
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02.01.2006",
}

// Options du chargement CSV.
type Options struct {
	// Strict : la première ligne invalide arrête le chargement.
	Strict bool
	Comma  rune
}

// Result contient les transactions lues et le nombre de lignes écartées.
type Result struct {
	Transactions []models.Transaction
	InvalidRows  int
}

// LoadFile ouvre un CSV et le décode via Load.
func LoadFile(path string, opts Options) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer file.Close()
	return Load(file, path, opts)
}

type columns struct {
	patient, date, amount int

	treatment, practitioner, clinic, canton int
	paid, payDate, duration                int
}

// Load lit les transactions depuis r. source sert uniquement aux messages d'erreur.
func Load(r io.Reader, source string, opts Options) (Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	headers, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("unable to read header: %w", err)
	}
	cols, err := resolveColumns(normalizeHeaders(headers), source)
	if err != nil {
		return Result{}, err
	}

	var res Result
	row := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Result{}, fmt.Errorf("unable to read CSV: %w", err)
		}
		row++
		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}

		tx, err := parseRecord(record, row, cols)
		if err != nil {
			if opts.Strict {
				return Result{}, err
			}
			res.InvalidRows++
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res, nil
}

func resolveColumns(headers map[string]int, source string) (columns, error) {
	var cols columns
	var ok bool
	if cols.patient, ok = findColumn(headers, patientAliases); !ok {
		return cols, &models.MissingColumnError{Column: "patient_id", Source: source}
	}
	if cols.date, ok = findColumn(headers, dateAliases); !ok {
		return cols, &models.MissingColumnError{Column: "service_date", Source: source}
	}
	if cols.amount, ok = findColumn(headers, amountAliases); !ok {
		return cols, &models.MissingColumnError{Column: "amount", Source: source}
	}
	cols.treatment, _ = findColumn(headers, treatmentAliases)
	cols.practitioner, _ = findColumn(headers, practitionerAliases)
	cols.clinic, _ = findColumn(headers, clinicAliases)
	cols.canton, _ = findColumn(headers, cantonAliases)
	cols.paid, _ = findColumn(headers, paidAliases)
	cols.payDate, _ = findColumn(headers, paymentDateAliases)
	cols.duration, _ = findColumn(headers, durationAliases)
	return cols, nil
}

func parseRecord(record []string, row int, cols columns) (models.Transaction, error) {
	tx := models.Transaction{
		PatientID:     getValue(record, cols.patient),
		TreatmentType: getValue(record, cols.treatment),
		Practitioner:  getValue(record, cols.practitioner),
		Clinic:        getValue(record, cols.clinic),
		Canton:        getValue(record, cols.canton),
	}
	if tx.PatientID == "" {
		return tx, models.NewMissingPatientID(row)
	}

	raw := getValue(record, cols.date)
	date, err := ParseDate(raw)
	if err != nil {
		return tx, models.NewInvalidDate(row, "service_date", raw)
	}
	tx.ServiceDate = date

	raw = getValue(record, cols.amount)
	amount, err := ParseAmount(raw)
	if err != nil {
		return tx, models.NewInvalidAmount(row, "amount", raw)
	}
	tx.Amount = amount

	if raw = getValue(record, cols.paid); raw != "" {
		paid, err := ParseAmount(raw)
		if err != nil {
			return tx, models.NewInvalidAmount(row, "amount_paid", raw)
		}
		tx.AmountPaid = decimal.NewNullDecimal(paid)
	}
	if raw = getValue(record, cols.payDate); raw != "" {
		paidAt, err := ParseDate(raw)
		if err != nil {
			return tx, models.NewInvalidDate(row, "payment_date", raw)
		}
		tx.PaymentDate = paidAt
	}
	if raw = getValue(record, cols.duration); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			tx.DurationMinutes = minutes
		}
	}
	return tx, nil
}

// ParseDate accepte les formats ISO, RFC3339 et JJ/MM/AAAA. Le résultat est en UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %s", value)
}

// ParseAmount lit un montant positif ou nul ("1'250.50", "1.250,50", "1250,50", "CHF 80").
// Le dernier séparateur ("," ou ".") est la virgule décimale, l'autre sépare les milliers.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "CHF")
	value = strings.NewReplacer("'", "", " ", "", "\u00a0", "").Replace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty amount")
	}
	value, err := normalizeSeparators(value)
	if err != nil {
		return decimal.Zero, err
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount: %s", value)
	}
	return amount, nil
}

func normalizeSeparators(value string) (string, error) {
	lastDot := strings.LastIndex(value, ".")
	lastComma := strings.LastIndex(value, ",")
	switch {
	case lastDot < 0 && lastComma < 0:
		return value, nil
	case lastDot >= 0 && lastComma >= 0:
		decimalSep, groupSep := ".", ","
		if lastComma > lastDot {
			decimalSep, groupSep = ",", "."
		}
		idx := strings.LastIndex(value, decimalSep)
		intPart, ok := stripGroups(value[:idx], groupSep)
		if !ok || strings.Contains(value[:idx], decimalSep) {
			return "", fmt.Errorf("ambiguous amount: %s", value)
		}
		return intPart + "." + value[idx+1:], nil
	case lastComma >= 0:
		if strings.Count(value, ",") == 1 {
			return strings.Replace(value, ",", ".", 1), nil
		}
		intPart, ok := stripGroups(value, ",")
		if !ok {
			return "", fmt.Errorf("ambiguous amount: %s", value)
		}
		return intPart, nil
	default:
		if strings.Count(value, ".") == 1 {
			return value, nil
		}
		intPart, ok := stripGroups(value, ".")
		if !ok {
			return "", fmt.Errorf("ambiguous amount: %s", value)
		}
		return intPart, nil
	}
}

// stripGroups retire les séparateurs de milliers ; chaque groupe après le premier compte 3 chiffres.
func stripGroups(value, sep string) (string, bool) {
	groups := strings.Split(value, sep)
	if len(groups) == 1 {
		return value, true
	}
	first := strings.TrimPrefix(groups[0], "-")
	if len(first) < 1 || len(first) > 3 {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func normalizeHeaders(headers []string) map[string]int {
	out := make(map[string]int, len(headers))
	for i, h := range headers {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, exists := out[key]; !exists {
			out[key] = i
		}
	}
	return out
}

var accentReplacer = strings.NewReplacer(
	"é", "e", "è", "e", "ê", "e", "à", "a", "â", "a", "ç", "c", "ô", "o", "û", "u", "ù", "u", "î", "i",
)

func normalizeHeader(value string) string {
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.ToLower(strings.TrimSpace(value))
	value = accentReplacer.Replace(value)
	value = strings.NewReplacer(" ", "_", "-", "_").Replace(value)
	return value
}

func findColumn(headers map[string]int, names []string) (int, bool) {
	for _, name := range names {
		if idx, ok := headers[name]; ok {
			return idx, true
		}
	}
	return -1, false
}

func getValue(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dental-kpi/pkg/models"

	"github.com/shopspring/decimal"
)

func TestLoad_FrenchHeaders(t *testing.T) {
	data := "PatientID,Date du soin,Montant_total_CHF,Type de soin normalisé,Dentiste,Nom de la clinique,Canton_clinique,Montant_payé_CHF,Date_paiement,Durée_minutes\n" +
		"P-1,2025-03-04,250.00,Détartrage,Dr Muller,Lausanne Centre,VD,250.00,2025-03-10,45\n" +
		"P-2,05/03/2025,1'200.50,Couronne,Dr Rossi,Genève Rive,GE,,,\n"

	res, err := Load(strings.NewReader(data), "test.csv", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transactions) != 2 || res.InvalidRows != 0 {
		t.Fatalf("got %d transactions / %d invalid, want 2 / 0", len(res.Transactions), res.InvalidRows)
	}

	first := res.Transactions[0]
	if first.PatientID != "P-1" || first.TreatmentType != "Détartrage" || first.Clinic != "Lausanne Centre" {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if !first.AmountPaid.Valid || !first.AmountPaid.Decimal.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("amount paid not parsed: %+v", first.AmountPaid)
	}
	if first.DurationMinutes != 45 || first.PaymentDate.IsZero() {
		t.Fatalf("optional fields not parsed: %+v", first)
	}

	second := res.Transactions[1]
	if !second.ServiceDate.Equal(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got date %v, want 2025-03-05", second.ServiceDate)
	}
	if !second.Amount.Equal(decimal.RequireFromString("1200.50")) {
		t.Fatalf("got amount %s, want 1200.50", second.Amount)
	}
	if second.AmountPaid.Valid {
		t.Fatal("empty amount paid should stay null")
	}
}

func TestLoad_MissingColumn(t *testing.T) {
	data := "patient_id,service_date\nP-1,2025-01-01\n"
	_, err := Load(strings.NewReader(data), "visits.csv", Options{})
	var missing *models.MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
	if missing.Column != "amount" || missing.Source != "visits.csv" {
		t.Fatalf("unexpected error fields: %+v", missing)
	}
}

func TestLoad_InvalidRows(t *testing.T) {
	data := "patient_id,service_date,amount\n" +
		"P-1,2025-01-01,100\n" +
		"P-2,not-a-date,100\n" +
		"P-3,2025-01-02,abc\n" +
		",2025-01-02,10\n"

	res, err := Load(strings.NewReader(data), "", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transactions) != 1 || res.InvalidRows != 3 {
		t.Fatalf("got %d transactions / %d invalid, want 1 / 3", len(res.Transactions), res.InvalidRows)
	}

	_, err = Load(strings.NewReader(data), "", Options{Strict: true})
	if !errors.Is(err, models.ErrInvalidDate) {
		t.Fatalf("strict mode: got %v, want ErrInvalidDate", err)
	}
	var fieldErr *models.InvalidFieldError
	if !errors.As(err, &fieldErr) || fieldErr.Row != 3 {
		t.Fatalf("strict mode: expected error on row 3, got %v", err)
	}

	_, err = Load(strings.NewReader("patient_id,service_date,amount\n,2025-01-02,10\n"), "", Options{Strict: true})
	var missing *models.MissingColumnError
	if !errors.Is(err, models.ErrMissingPatientID) || errors.As(err, &missing) {
		t.Fatalf("empty patient id: got %v, want ErrMissingPatientID row error", err)
	}
}

func TestLoadFile_Semicolon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(path, []byte("patient;date;montant\nP-9;2024-12-31;80,50\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	res, err := LoadFile(path, Options{Comma: ';'})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transactions) != 1 || !res.Transactions[0].Amount.Equal(decimal.RequireFromString("80.50")) {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"120", "120", false},
		{"1'250.50", "1250.5", false},
		{"1,250.50", "1250.5", false},
		{"99,90", "99.9", false},
		{"1.250,50", "1250.5", false},
		{"1,250,000", "1250000", false},
		{"1.250.000", "1250000", false},
		{"1,25.50", "", true},
		{"1.250,50,1", "", true},
		{"CHF 80", "80", false},
		{"-5", "", true},
		{"", "", true},
		{"n/a", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): unexpected error %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dental-kpi/pkg/calculator"
	"dental-kpi/pkg/models"

	"github.com/shopspring/decimal"
)

func buildReport(t *testing.T, patients int) calculator.Report {
	t.Helper()
	var txs []models.Transaction
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < patients; i++ {
		txs = append(txs, models.Transaction{
			PatientID:     string(rune('A' + i)),
			ServiceDate:   base.AddDate(0, 0, i*7),
			Amount:        decimal.NewFromInt(int64(100 + i*50)),
			TreatmentType: "Obturation",
			Clinic:        "Lausanne",
			AmountPaid:    decimal.NewNullDecimal(decimal.NewFromInt(100)),
		})
	}
	r, err := calculator.Run(context.Background(), txs, models.Config{AsOf: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	r.Source = "patients.csv"
	return r
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, buildReport(t, 6), 5)
	out := buf.String()
	for _, want := range []string{"Segmentation RFM", "Loyal", "Obturation", "Impayés: 5", "02/2025", "CA total: 1350.00 CHF", "Saisonnalité", "mars      650.00 CHF", "décembre  0.00 CHF"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrint_Degraded(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, buildReport(t, 2), 0)
	out := buf.String()
	if !strings.Contains(out, "Segmentation indisponible") || !strings.Contains(out, "Fréquence moyenne: 1.00 visites") {
		t.Fatalf("degraded section not rendered:\n%s", out)
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	if err := WriteJSON(buildReport(t, 6), path); err != nil {
		t.Fatalf("write json: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	for _, key := range []string{"rfm", "segments", "treatments", "payments", "temporal", "insights"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}

package publish

import (
	"encoding/json"
	"testing"
	"time"

	"dental-kpi/pkg/models"

	"github.com/shopspring/decimal"
)

func TestScoreMessages(t *testing.T) {
	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	patients := []models.PatientRFM{
		{
			CustomerMetrics: models.CustomerMetrics{PatientID: "P1", RecencyDays: 3, Frequency: 4, MonetaryTotal: decimal.NewFromInt(900)},
			Score:           &models.RFMScore{R: 4, F: 4, M: 4, Segment: models.SegmentVIP},
		},
		{
			CustomerMetrics: models.CustomerMetrics{PatientID: "P2", RecencyDays: 90, Frequency: 1, MonetaryTotal: decimal.NewFromInt(80)},
		},
	}

	msgs, err := scoreMessages("run-1", asOf, patients, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 || string(msgs[0].Key) != "P1" || string(msgs[1].Key) != "P2" {
		t.Fatalf("unexpected keys: %+v", msgs)
	}

	var event struct {
		RunID   string `json:"run_id"`
		AsOf    string `json:"as_of"`
		Patient struct {
			PatientID     string `json:"patient_id"`
			MonetaryTotal string `json:"monetary_total"`
			Score         *struct {
				Segment string `json:"segment"`
			} `json:"score"`
		} `json:"patient"`
	}
	if err := json.Unmarshal(msgs[0].Value, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.RunID != "run-1" || event.AsOf != "2025-06-30" || event.Patient.Score == nil || event.Patient.Score.Segment != "VIP" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Patient.MonetaryTotal != "900" {
		t.Fatalf("got monetary %q, want \"900\"", event.Patient.MonetaryTotal)
	}

	event.Patient.Score = nil
	if err := json.Unmarshal(msgs[1].Value, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Patient.Score != nil {
		t.Fatal("unscored patient should have no score")
	}
}

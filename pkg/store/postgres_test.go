package store

import (
	"strings"
	"testing"
)

func TestSanitizeSchema(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"dental_kpi", "dental_kpi", false},
		{"  audit2025 ", "audit2025", false},
		{"", "", true},
		{"1schema", "", true},
		{"public; DROP TABLE x", "", true},
	}
	for _, tt := range tests {
		got, err := sanitizeSchema(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("sanitizeSchema(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("sanitizeSchema(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestNew_RejectsBadSchema(t *testing.T) {
	if _, err := New(nil, "bad-schema"); err == nil {
		t.Fatal("expected error for invalid schema")
	}
}

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements("clinic_a")
	if len(stmts) != 5 {
		t.Fatalf("got %d statements, want 5", len(stmts))
	}
	for _, table := range []string{"clinic_a.rfm_runs", "clinic_a.rfm_patient_scores", "clinic_a.rfm_segment_summary"} {
		found := false
		for _, s := range stmts {
			if strings.Contains(s, "CREATE TABLE IF NOT EXISTS "+table) {
				found = true
			}
		}
		if !found {
			t.Errorf("missing table %s", table)
		}
	}
}

func TestNullString(t *testing.T) {
	if nullString("  ").Valid {
		t.Fatal("blank string should be null")
	}
	if v := nullString("Q3"); !v.Valid || v.String != "Q3" {
		t.Fatalf("unexpected value: %+v", v)
	}
}

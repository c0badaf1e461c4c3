package calculator

import (
	"context"
	"fmt"
	"log"
	"time"

	"dental-kpi/pkg/kpi"
	"dental-kpi/pkg/models"
	"dental-kpi/pkg/rfm"

	"github.com/schollz/progressbar/v3"
)

// Report regroupe toutes les analyses d'un run.
type Report struct {
	AsOf         time.Time `json:"as_of"`
	Source       string    `json:"source"`
	Transactions int       `json:"transactions"`
	InvalidRows  int       `json:"invalid_rows"`

	RFM            rfm.Result            `json:"rfm"`
	DegradedReason string                `json:"degraded_reason,omitempty"`
	Segments       []models.SegmentStats `json:"segments,omitempty"`

	Treatments    []models.TreatmentStats    `json:"treatments"`
	Practitioners []models.PractitionerStats `json:"practitioners"`
	Patients      models.PatientStats        `json:"patients"`
	Payments      models.PaymentStats        `json:"payments"`
	Geography     models.GeographyStats      `json:"geography"`
	Temporal      models.TemporalStats       `json:"temporal"`
	Insights      models.Insights            `json:"insights"`
}

type stage struct {
	name string
	run  func(txs []models.Transaction, r *Report) error
}

func stages(cfg models.Config) []stage {
	return []stage{
		{"rfm", func(txs []models.Transaction, r *Report) error {
			res, err := rfm.NewSegmenter(func() time.Time { return cfg.AsOf }).Run(txs)
			if err != nil {
				return err
			}
			r.RFM = res
			if res.Degraded != nil {
				r.DegradedReason = res.Degraded.Error()
				log.Printf("[WARN] RFM dégradé (%d patients): %v", len(res.Patients), res.Degraded)
				return nil
			}
			r.Segments = rfm.Summary(res)
			return nil
		}},
		{"treatments", func(txs []models.Transaction, r *Report) error {
			r.Treatments = kpi.Treatments(txs)
			return nil
		}},
		{"practitioners", func(txs []models.Transaction, r *Report) error {
			r.Practitioners = kpi.Practitioners(txs)
			return nil
		}},
		{"patients", func(txs []models.Transaction, r *Report) error {
			r.Patients = kpi.Patients(txs)
			return nil
		}},
		{"payments", func(txs []models.Transaction, r *Report) error {
			r.Payments = kpi.Payments(txs, cfg.LateAfterDays)
			return nil
		}},
		{"geography", func(txs []models.Transaction, r *Report) error {
			r.Geography = kpi.Geography(txs)
			return nil
		}},
		{"temporal", func(txs []models.Transaction, r *Report) error {
			r.Temporal = kpi.Temporal(txs)
			return nil
		}},
		{"insights", func(txs []models.Transaction, r *Report) error {
			r.Insights = kpi.Summarize(txs)
			return nil
		}},
	}
}

// Run filtre les actes sur la fenêtre de mois demandée puis exécute toutes les analyses.
func Run(ctx context.Context, txs []models.Transaction, cfg models.Config) (Report, error) {
	if cfg.AsOf.IsZero() {
		return Report{}, fmt.Errorf("as-of date required")
	}
	w, err := window(cfg)
	if err != nil {
		return Report{}, err
	}
	selected := filterWindow(txs, w)
	if len(selected) == 0 {
		return Report{}, fmt.Errorf("no transactions in window")
	}

	report := Report{AsOf: cfg.AsOf, Transactions: len(selected)}
	steps := stages(cfg)
	bar := progressbar.Default(int64(len(steps)))
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		started := time.Now()
		if err := s.run(selected, &report); err != nil {
			return Report{}, fmt.Errorf("compute %s: %w", s.name, err)
		}
		_ = bar.Add(1)
		if cfg.Verbose {
			log.Printf("[INFO] %s -> ok (%s)", s.name, time.Since(started).Round(time.Microsecond))
		}
	}
	return report, nil
}

// Window retourne les bornes [start, end) de la configuration ; zéro = non borné.
func Window(cfg models.Config) (start, end time.Time, err error) {
	w, err := window(cfg)
	return w[0], w[1], err
}

func window(cfg models.Config) ([2]time.Time, error) {
	var w [2]time.Time
	if cfg.StartMonthInclusive != "" {
		start, err := parseMonth(cfg.StartMonthInclusive)
		if err != nil {
			return w, fmt.Errorf("start_month: %w", err)
		}
		w[0] = start
	}
	if cfg.EndMonthInclusive != "" {
		end, err := parseMonth(cfg.EndMonthInclusive)
		if err != nil {
			return w, fmt.Errorf("end_month: %w", err)
		}
		w[1] = end.AddDate(0, 1, 0)
	}
	if !w[0].IsZero() && !w[1].IsZero() && !w[0].Before(w[1]) {
		return w, fmt.Errorf("end_month < start_month")
	}
	return w, nil
}

func filterWindow(txs []models.Transaction, w [2]time.Time) []models.Transaction {
	if w[0].IsZero() && w[1].IsZero() {
		return txs
	}
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !w[0].IsZero() && tx.ServiceDate.Before(w[0]) {
			continue
		}
		if !w[1].IsZero() && !tx.ServiceDate.Before(w[1]) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// parseMonth("MMYYYY") -> 1er jour du mois UTC
func parseMonth(mmyyyy string) (time.Time, error) {
	if len(mmyyyy) != 6 {
		return time.Time{}, fmt.Errorf("format attendu MMYYYY (ex: 012025)")
	}
	for _, c := range mmyyyy {
		if c < '0' || c > '9' {
			return time.Time{}, fmt.Errorf("format attendu MMYYYY (ex: 012025)")
		}
	}
	month := int(mmyyyy[0]-'0')*10 + int(mmyyyy[1]-'0')
	year := int(mmyyyy[2]-'0')*1000 + int(mmyyyy[3]-'0')*100 + int(mmyyyy[4]-'0')*10 + int(mmyyyy[5]-'0')
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("mois invalide")
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

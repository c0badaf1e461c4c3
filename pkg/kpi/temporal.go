package kpi

import (
	"fmt"
	"time"

	"dental-kpi/pkg/models"

	"github.com/shopspring/decimal"
)

// Temporal construit la série mensuelle (mois sans activité inclus) et la saisonnalité.
func Temporal(txs []models.Transaction) models.TemporalStats {
	if len(txs) == 0 {
		return models.TemporalStats{}
	}

	type monthAcc struct {
		revenue  decimal.Decimal
		acts     int
		patients map[string]struct{}
	}
	byMonth := map[string]*monthAcc{}
	var season [12]decimal.Decimal
	first, last := txs[0].ServiceDate, txs[0].ServiceDate

	for _, tx := range txs {
		if tx.ServiceDate.Before(first) {
			first = tx.ServiceDate
		}
		if tx.ServiceDate.After(last) {
			last = tx.ServiceDate
		}
		key := formatMonth(tx.ServiceDate)
		acc, ok := byMonth[key]
		if !ok {
			acc = &monthAcc{patients: map[string]struct{}{}}
			byMonth[key] = acc
		}
		acc.revenue = acc.revenue.Add(tx.Amount)
		acc.acts++
		acc.patients[tx.PatientID] = struct{}{}
		season[tx.ServiceDate.Month()-1] = season[tx.ServiceDate.Month()-1].Add(tx.Amount)
	}

	var stats models.TemporalStats
	for _, m := range monthsBetweenInclusive(first, last) {
		row := models.MonthStats{Month: formatMonth(m), Revenue: decimal.Zero}
		if acc, ok := byMonth[row.Month]; ok {
			row.Revenue = acc.revenue.Round(2)
			row.Acts = acc.acts
			row.UniquePatients = len(acc.patients)
		}
		stats.Monthly = append(stats.Monthly, row)
	}
	for i, revenue := range season {
		stats.Seasonality = append(stats.Seasonality, models.SeasonStats{Month: i + 1, Revenue: revenue.Round(2)})
	}
	return stats
}

func monthsBetweenInclusive(start, end time.Time) []time.Time {
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	var out []time.Time
	for !cur.After(last) {
		out = append(out, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

func formatMonth(t time.Time) string {
	return fmt.Sprintf("%02d/%04d", int(t.Month()), t.Year())
}

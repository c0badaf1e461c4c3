package kpi

import (
	"dental-kpi/pkg/models"

	"github.com/shopspring/decimal"
)

// Treatments classe les types de soin par chiffre d'affaires, avec le revenu par minute
// quand la durée des actes est renseignée.
func Treatments(txs []models.Transaction) []models.TreatmentStats {
	groups := groupRevenue(txs, func(tx models.Transaction) string { return tx.TreatmentType })

	minutes := map[string]int{}
	for _, tx := range txs {
		key := tx.TreatmentType
		if key == "" {
			key = Unassigned
		}
		minutes[key] += tx.DurationMinutes
	}

	out := make([]models.TreatmentStats, len(groups))
	for i, g := range groups {
		out[i] = models.TreatmentStats{GroupStats: g}
		if m := minutes[g.Key]; m > 0 {
			out[i].RevenuePerMinute = decimal.NewNullDecimal(g.Revenue.Div(decimal.NewFromInt(int64(m))).Round(2))
		}
	}
	return out
}

package kpi

import "dental-kpi/pkg/models"

// Practitioners donne la performance par praticien et son taux de fidélisation :
// part des patients du praticien vus plus d'une fois par lui.
func Practitioners(txs []models.Transaction) []models.PractitionerStats {
	groups := groupRevenue(txs, func(tx models.Transaction) string { return tx.Practitioner })

	visits := map[string]map[string]int{}
	for _, tx := range txs {
		key := tx.Practitioner
		if key == "" {
			key = Unassigned
		}
		if visits[key] == nil {
			visits[key] = map[string]int{}
		}
		visits[key][tx.PatientID]++
	}

	out := make([]models.PractitionerStats, len(groups))
	for i, g := range groups {
		patients := visits[g.Key]
		loyal := 0
		for _, n := range patients {
			if n > 1 {
				loyal++
			}
		}
		out[i] = models.PractitionerStats{
			GroupStats:    g,
			Patients:      len(patients),
			RetentionRate: percent(loyal, len(patients)),
		}
	}
	return out
}

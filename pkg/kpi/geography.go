package kpi

import (
	"sort"

	"dental-kpi/pkg/models"
)

// Geography donne la performance par clinique et le nombre de patients uniques par canton.
func Geography(txs []models.Transaction) models.GeographyStats {
	stats := models.GeographyStats{
		Clinics: groupRevenue(txs, func(tx models.Transaction) string { return tx.Clinic }),
	}

	patients := map[string]map[string]struct{}{}
	for _, tx := range txs {
		if tx.Canton == "" {
			continue
		}
		if patients[tx.Canton] == nil {
			patients[tx.Canton] = map[string]struct{}{}
		}
		patients[tx.Canton][tx.PatientID] = struct{}{}
	}
	for canton, set := range patients {
		stats.CantonPatients = append(stats.CantonPatients, models.KeyCount{Key: canton, Count: len(set)})
	}
	sort.Slice(stats.CantonPatients, func(i, j int) bool {
		a, b := stats.CantonPatients[i], stats.CantonPatients[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Key < b.Key
	})
	return stats
}

// FilterClinic restreint les actes à une clinique ; une clinique vide renvoie tout.
func FilterClinic(txs []models.Transaction, clinic string) []models.Transaction {
	if clinic == "" {
		return txs
	}
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Clinic == clinic {
			out = append(out, tx)
		}
	}
	return out
}

// Package kpi calcule les indicateurs de reporting du cabinet à partir des actes de soin.
// Toutes les fonctions sont pures : elles ne modifient pas les transactions reçues.
package kpi

import (
	"math"
	"sort"

	"dental-kpi/pkg/models"

	"github.com/shopspring/decimal"
)

// Unassigned remplace une clé de regroupement vide.
const Unassigned = "Non renseigné"

type accumulator struct {
	revenue decimal.Decimal
	acts    int
}

// groupRevenue regroupe les montants par clé. Les clés vides sont regroupées sous Unassigned.
func groupRevenue(txs []models.Transaction, key func(models.Transaction) string) []models.GroupStats {
	acc := map[string]*accumulator{}
	for _, tx := range txs {
		k := key(tx)
		if k == "" {
			k = Unassigned
		}
		a, ok := acc[k]
		if !ok {
			a = &accumulator{}
			acc[k] = a
		}
		a.revenue = a.revenue.Add(tx.Amount)
		a.acts++
	}

	out := make([]models.GroupStats, 0, len(acc))
	for k, a := range acc {
		out = append(out, models.GroupStats{
			Key:     k,
			Revenue: a.revenue.Round(2),
			Acts:    a.acts,
			Mean:    mean(a.revenue, a.acts),
		})
	}
	sortByRevenue(out)
	return out
}

// sortByRevenue : chiffre d'affaires décroissant, puis clé croissante.
func sortByRevenue(stats []models.GroupStats) {
	sort.Slice(stats, func(i, j int) bool {
		if c := stats[i].Revenue.Cmp(stats[j].Revenue); c != 0 {
			return c > 0
		}
		return stats[i].Key < stats[j].Key
	})
}

func mean(total decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(n))).Round(2)
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round1(float64(part) / float64(whole) * 100)
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// Top tronque un classement aux n premières lignes (n <= 0 : pas de limite).
func Top[T any](items []T, n int) []T {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

// visitsByPatient compte les actes par patient.
func visitsByPatient(txs []models.Transaction) map[string]int {
	out := map[string]int{}
	for _, tx := range txs {
		out[tx.PatientID]++
	}
	return out
}

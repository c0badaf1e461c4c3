package kpi

import (
	"math"
	"sort"

	"dental-kpi/pkg/models"
)

// Patients mesure la fidélisation (patients avec 2 visites ou plus) et la distribution
// du nombre de visites. L'écart-type est l'écart-type d'échantillon.
func Patients(txs []models.Transaction) models.PatientStats {
	byPatient := visitsByPatient(txs)
	if len(byPatient) == 0 {
		return models.PatientStats{}
	}

	counts := make([]int, 0, len(byPatient))
	loyal, total := 0, 0
	for _, n := range byPatient {
		counts = append(counts, n)
		total += n
		if n > 1 {
			loyal++
		}
	}
	sort.Ints(counts)

	n := len(counts)
	avg := float64(total) / float64(n)
	median := float64(counts[n/2])
	if n%2 == 0 {
		median = float64(counts[n/2-1]+counts[n/2]) / 2
	}
	stddev := 0.0
	if n > 1 {
		var sq float64
		for _, c := range counts {
			d := float64(c) - avg
			sq += d * d
		}
		stddev = math.Sqrt(sq / float64(n-1))
	}

	return models.PatientStats{
		Patients:      n,
		LoyalPatients: loyal,
		RetentionRate: percent(loyal, n),
		VisitsMean:    round2(avg),
		VisitsMedian:  median,
		VisitsMax:     counts[n-1],
		VisitsStdDev:  round2(stddev),
	}
}

package kpi

import (
	"math"

	"dental-kpi/pkg/models"

	"github.com/shopspring/decimal"
)

// DefaultLateAfterDays : au-delà, un paiement est considéré en retard.
const DefaultLateAfterDays = 30

// Payments calcule les impayés (montant - montant payé) et les délais de paiement
// (date de paiement - date du soin). Les taux portent sur les actes dont l'information est connue.
func Payments(txs []models.Transaction, lateAfterDays int) models.PaymentStats {
	if lateAfterDays <= 0 {
		lateAfterDays = DefaultLateAfterDays
	}

	var (
		stats       models.PaymentStats
		withPaid    int
		delaySum    int
		unpaid      []models.Transaction
		outstanding = decimal.Zero
		lateAmount  = decimal.Zero
	)
	for _, tx := range txs {
		if tx.AmountPaid.Valid {
			withPaid++
			due := tx.Amount.Sub(tx.AmountPaid.Decimal)
			if due.IsPositive() {
				stats.Outstanding++
				outstanding = outstanding.Add(due)
				unpaid = append(unpaid, models.Transaction{TreatmentType: tx.TreatmentType, Amount: due})
			}
		}
		if !tx.PaymentDate.IsZero() {
			delay := int(math.Floor(tx.PaymentDate.Sub(tx.ServiceDate).Hours() / 24))
			stats.DelayKnown++
			delaySum += delay
			if delay > lateAfterDays {
				stats.Late++
				lateAmount = lateAmount.Add(tx.Amount)
			}
		}
	}

	stats.Available = withPaid > 0 || stats.DelayKnown > 0
	stats.OutstandingTotal = outstanding.Round(2)
	stats.OutstandingRate = percent(stats.Outstanding, withPaid)
	stats.OutstandingMean = mean(outstanding, stats.Outstanding)
	stats.ByTreatment = groupRevenue(unpaid, func(tx models.Transaction) string { return tx.TreatmentType })
	if stats.DelayKnown > 0 {
		stats.MeanDelayDays = round1(float64(delaySum) / float64(stats.DelayKnown))
	}
	stats.LateRate = percent(stats.Late, stats.DelayKnown)
	stats.LateAmount = lateAmount.Round(2)
	return stats
}

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dental-kpi/pkg/calculator"
	"dental-kpi/pkg/kpi"
	"dental-kpi/pkg/rfm"
)

const rule = 60

// Print écrit le rapport texte complet sur w. topN limite les classements (0 = tout).
func Print(w io.Writer, r calculator.Report, topN int) {
	fmt.Fprintln(w, "Rapport KPI cabinet dentaire")
	fmt.Fprintln(w, strings.Repeat("=", rule))
	if r.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", r.Source)
	}
	fmt.Fprintf(w, "Date de référence: %s\n", r.AsOf.Format("2006-01-02"))
	fmt.Fprintf(w, "Actes: %d\n", r.Transactions)
	if r.InvalidRows > 0 {
		fmt.Fprintf(w, "Lignes invalides ignorées: %d\n", r.InvalidRows)
	}

	printRFM(w, r)
	printTreatments(w, r, topN)
	printPractitioners(w, r)
	printPatients(w, r)
	printPayments(w, r, topN)
	printGeography(w, r)
	printTemporal(w, r)

	section(w, "Insights")
	in := r.Insights
	fmt.Fprintf(w, "CA total: %s CHF\n", in.TotalRevenue.StringFixed(2))
	fmt.Fprintf(w, "CA moyen par acte: %s CHF\n", in.MeanRevenue.StringFixed(2))
	fmt.Fprintf(w, "Patients uniques: %d | Praticiens: %d | Cliniques: %d\n", in.Patients, in.Practitioners, in.Clinics)
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("-", rule))
}

func printRFM(w io.Writer, r calculator.Report) {
	section(w, "Segmentation RFM")
	if !r.RFM.Scored() {
		fmt.Fprintf(w, "Segmentation indisponible: %s\n", r.DegradedReason)
		if rec, freq, mon, err := rfm.RawAverages(r.RFM); err == nil {
			fmt.Fprintf(w, "Récence moyenne: %.1f jours\n", rec)
			fmt.Fprintf(w, "Fréquence moyenne: %.2f visites\n", freq)
			fmt.Fprintf(w, "Montant moyen: %s CHF\n", mon.StringFixed(2))
		}
		return
	}
	for _, s := range r.Segments {
		fmt.Fprintf(w, "%-8s | patients %5d | montant moyen %s CHF\n", s.Segment, s.Patients, s.MeanMonetary.StringFixed(2))
	}
}

func printTreatments(w io.Writer, r calculator.Report, topN int) {
	section(w, "Performance des soins")
	for _, t := range kpi.Top(r.Treatments, topN) {
		line := fmt.Sprintf("%s | CA %s | actes %d | moyen %s", t.Key, t.Revenue.StringFixed(2), t.Acts, t.Mean.StringFixed(2))
		if t.RevenuePerMinute.Valid {
			line += fmt.Sprintf(" | %s CHF/min", t.RevenuePerMinute.Decimal.StringFixed(2))
		}
		fmt.Fprintln(w, line)
	}
}

func printPractitioners(w io.Writer, r calculator.Report) {
	section(w, "Praticiens")
	for _, p := range r.Practitioners {
		fmt.Fprintf(w, "%s | CA %s | actes %d | patients %d | fidélisation %.1f%%\n",
			p.Key, p.Revenue.StringFixed(2), p.Acts, p.Patients, p.RetentionRate)
	}
}

func printPatients(w io.Writer, r calculator.Report) {
	section(w, "Patients")
	p := r.Patients
	fmt.Fprintf(w, "Total: %d | fidèles (2+ visites): %d | rétention %.1f%%\n", p.Patients, p.LoyalPatients, p.RetentionRate)
	fmt.Fprintf(w, "Visites moyenne/médiane/max/écart-type: %.2f / %.1f / %d / %.2f\n",
		p.VisitsMean, p.VisitsMedian, p.VisitsMax, p.VisitsStdDev)
}

func printPayments(w io.Writer, r calculator.Report, topN int) {
	section(w, "Paiements et créances")
	p := r.Payments
	if !p.Available {
		fmt.Fprintln(w, "Colonnes de paiement non trouvées.")
		return
	}
	fmt.Fprintf(w, "Impayés: %d (%.1f%%) | total %s | moyen %s CHF\n",
		p.Outstanding, p.OutstandingRate, p.OutstandingTotal.StringFixed(2), p.OutstandingMean.StringFixed(2))
	for _, g := range kpi.Top(p.ByTreatment, topN) {
		fmt.Fprintf(w, "  %s | %s CHF\n", g.Key, g.Revenue.StringFixed(2))
	}
	if p.DelayKnown > 0 {
		fmt.Fprintf(w, "Délai moyen: %.1f jours | en retard: %d (%.1f%%) | montant %s CHF\n",
			p.MeanDelayDays, p.Late, p.LateRate, p.LateAmount.StringFixed(2))
	}
}

func printGeography(w io.Writer, r calculator.Report) {
	section(w, "Analyse géographique")
	for _, c := range r.Geography.Clinics {
		fmt.Fprintf(w, "%s | CA %s | actes %d | moyen %s\n", c.Key, c.Revenue.StringFixed(2), c.Acts, c.Mean.StringFixed(2))
	}
	for _, c := range r.Geography.CantonPatients {
		fmt.Fprintf(w, "  canton %s: %d patients\n", c.Key, c.Count)
	}
}

func printTemporal(w io.Writer, r calculator.Report) {
	section(w, "Analyse temporelle")
	for _, m := range r.Temporal.Monthly {
		fmt.Fprintf(w, "%s | CA %s | actes %d | patients %d\n", m.Month, m.Revenue.StringFixed(2), m.Acts, m.UniquePatients)
	}
	if len(r.Temporal.Seasonality) == 0 {
		return
	}
	fmt.Fprintln(w, "Saisonnalité (CA par mois, toutes années):")
	for _, s := range r.Temporal.Seasonality {
		if s.Month < 1 || s.Month > len(monthNames) {
			continue
		}
		fmt.Fprintf(w, "  %-9s %s CHF\n", monthNames[s.Month-1], s.Revenue.StringFixed(2))
	}
}

var monthNames = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// WriteJSON exporte le rapport indenté, en créant le dossier si besoin.
func WriteJSON(r calculator.Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

package kpi

import "dental-kpi/pkg/models"

// Summarize produit le résumé global affiché en fin de rapport.
func Summarize(txs []models.Transaction) models.Insights {
	var in models.Insights
	patients := map[string]struct{}{}
	practitioners := map[string]struct{}{}
	clinics := map[string]struct{}{}
	for _, tx := range txs {
		in.Acts++
		in.TotalRevenue = in.TotalRevenue.Add(tx.Amount)
		patients[tx.PatientID] = struct{}{}
		if tx.Practitioner != "" {
			practitioners[tx.Practitioner] = struct{}{}
		}
		if tx.Clinic != "" {
			clinics[tx.Clinic] = struct{}{}
		}
	}
	in.MeanRevenue = mean(in.TotalRevenue, in.Acts)
	in.TotalRevenue = in.TotalRevenue.Round(2)
	in.Patients = len(patients)
	in.Practitioners = len(practitioners)
	in.Clinics = len(clinics)
	return in
}

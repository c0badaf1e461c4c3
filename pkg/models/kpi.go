package models

import "github.com/shopspring/decimal"

/*
COMPUTE → indicateurs du cabinet (soins, praticiens, patients, paiements, géographie, temps)
*/

// GroupStats : chiffre d'affaires, nombre d'actes et moyenne pour une clé de regroupement.
type GroupStats struct {
	Key     string          `json:"key"`
	Revenue decimal.Decimal `json:"revenue"`
	Acts    int             `json:"acts"`
	Mean    decimal.Decimal `json:"mean"`
}

// TreatmentStats ajoute la rentabilité par minute quand la durée est connue.
type TreatmentStats struct {
	GroupStats
	RevenuePerMinute decimal.NullDecimal `json:"revenue_per_minute"`
}

// PractitionerStats ajoute le taux de fidélisation (% de patients revenus au moins une fois).
type PractitionerStats struct {
	GroupStats
	Patients      int     `json:"patients"`
	RetentionRate float64 `json:"retention_rate"`
}

// PatientStats : fidélisation et distribution des visites par patient.
type PatientStats struct {
	Patients      int     `json:"patients"`
	LoyalPatients int     `json:"loyal_patients"` // 2 visites et plus
	RetentionRate float64 `json:"retention_rate"`
	VisitsMean    float64 `json:"visits_mean"`
	VisitsMedian  float64 `json:"visits_median"`
	VisitsMax     int     `json:"visits_max"`
	VisitsStdDev  float64 `json:"visits_std_dev"`
}

// PaymentStats : impayés et délais de paiement.
type PaymentStats struct {
	Available bool `json:"available"` // faux si aucune colonne de paiement

	Outstanding      int             `json:"outstanding"`
	OutstandingTotal decimal.Decimal `json:"outstanding_total"`
	OutstandingRate  float64         `json:"outstanding_rate"`
	OutstandingMean  decimal.Decimal `json:"outstanding_mean"`
	ByTreatment      []GroupStats    `json:"outstanding_by_treatment"`

	DelayKnown    int             `json:"delay_known"`
	MeanDelayDays float64         `json:"mean_delay_days"`
	Late          int             `json:"late"`
	LateRate      float64         `json:"late_rate"`
	LateAmount    decimal.Decimal `json:"late_amount"`
}

// KeyCount : effectif par clé.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// GeographyStats : performance par clinique et patients uniques par canton.
type GeographyStats struct {
	Clinics        []GroupStats `json:"clinics"`
	CantonPatients []KeyCount   `json:"canton_patients"`
}

// MonthStats : agrégats d'un mois calendaire ("MM/YYYY").
type MonthStats struct {
	Month          string          `json:"month"`
	Revenue        decimal.Decimal `json:"revenue"`
	Acts           int             `json:"acts"`
	UniquePatients int             `json:"unique_patients"`
}

// SeasonStats : chiffre d'affaires cumulé par numéro de mois (1..12), toutes années confondues.
type SeasonStats struct {
	Month   int             `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

// TemporalStats : séries mensuelles et saisonnalité.
type TemporalStats struct {
	Monthly     []MonthStats  `json:"monthly"`
	Seasonality []SeasonStats `json:"seasonality"`
}

// Insights : résumé global.
type Insights struct {
	Acts          int             `json:"acts"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	MeanRevenue   decimal.Decimal `json:"mean_revenue"`
	Patients      int             `json:"patients"`
	Practitioners int             `json:"practitioners"`
	Clinics       int             `json:"clinics"`
}

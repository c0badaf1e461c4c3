package models

import (
	"time"

	"github.com/shopspring/decimal"
)

/*
LOAD → types simples pour les données brutes (CSV ou base MySQL).
*/

// Transaction représente un acte de soin tel qu'il est lu depuis la source tabulaire.
// Les champs optionnels restent à leur valeur zéro quand la colonne est absente.
type Transaction struct {
	PatientID     string
	ServiceDate   time.Time
	Amount        decimal.Decimal
	TreatmentType string

	Practitioner    string
	Clinic          string
	Canton          string
	AmountPaid      decimal.NullDecimal
	PaymentDate     time.Time // zéro si inconnue
	DurationMinutes int
}

/*
COMPUTE → métriques et scores RFM par patient
*/

// CustomerMetrics contient les métriques brutes d'un patient.
type CustomerMetrics struct {
	PatientID     string          `json:"patient_id"`
	RecencyDays   int             `json:"recency_days"`
	Frequency     int             `json:"frequency"`
	MonetaryTotal decimal.Decimal `json:"monetary_total"`
	LastVisit     time.Time       `json:"last_visit"`
}

// Segment est la classe de fidélité issue du score composite.
type Segment string

const (
	SegmentVIP    Segment = "VIP"
	SegmentLoyal  Segment = "Loyal"
	SegmentActive Segment = "Active"
	SegmentAtRisk Segment = "AtRisk"
)

// Segments dans l'ordre décroissant.
var Segments = []Segment{SegmentVIP, SegmentLoyal, SegmentActive, SegmentAtRisk}

// RFMScore : sous-scores ordinaux 1..4 et segment.
type RFMScore struct {
	R       int     `json:"r"`
	F       int     `json:"f"`
	M       int     `json:"m"`
	Segment Segment `json:"segment"`
}

// Composite renvoie le score sous forme "RFM" (ex: "434"), pour l'affichage uniquement.
func (s RFMScore) Composite() string {
	return string([]byte{byte('0' + s.R), byte('0' + s.F), byte('0' + s.M)})
}

// PatientRFM regroupe les métriques d'un patient et son score.
// Score est nil quand la segmentation n'a pas pu être faite (résultat dégradé).
type PatientRFM struct {
	CustomerMetrics
	Score *RFMScore `json:"score,omitempty"`
}

// SegmentStats : répartition des segments (effectif, montant moyen).
type SegmentStats struct {
	Segment      Segment         `json:"segment"`
	Patients     int             `json:"patients"`
	MeanMonetary decimal.Decimal `json:"mean_monetary"`
}

/*
CONFIG → paramètres globaux
*/

// Config contient les paramètres passés à la fonction de calcul.
type Config struct {
	StartMonthInclusive string    // "MMYYYY", vide = pas de borne
	EndMonthInclusive   string    // "MMYYYY", vide = pas de borne
	AsOf                time.Time // référence "maintenant" pour la récence
	LateAfterDays       int       // seuil de retard de paiement (jours)
	Verbose             bool      // Flag pour activer les logs détaillés.
}

package rfm

import (
	"fmt"
	"math"
	"sort"
	"time"

	"dental-kpi/pkg/models"

	"github.com/shopspring/decimal"
)

// MinPatients est le nombre minimal de patients distincts pour un découpage en quartiles.
const MinPatients = 4

// Seuils du score composite, comparés comme des tuples (R,F,M).
var thresholds = []struct {
	score   int
	segment models.Segment
}{
	{4, models.SegmentVIP},
	{3, models.SegmentLoyal},
	{2, models.SegmentActive},
}

// Result est la sortie d'un calcul RFM.
type Result struct {
	AsOf     time.Time           `json:"as_of"`
	Patients []models.PatientRFM `json:"patients"` // trié par patient_id

	// Degraded vaut models.ErrDegenerateDistribution quand les scores n'ont pas été calculés.
	Degraded error `json:"-"`

	RecencyEdges   [5]float64 `json:"recency_edges"`
	FrequencyEdges [5]float64 `json:"frequency_edges"`
	MonetaryEdges  [5]float64 `json:"monetary_edges"`
}

// Scored indique si les patients portent un score et un segment.
func (r Result) Scored() bool {
	return r.Degraded == nil
}

// ByPatient indexe le résultat par patient_id.
func (r Result) ByPatient() map[string]models.PatientRFM {
	out := make(map[string]models.PatientRFM, len(r.Patients))
	for _, p := range r.Patients {
		out[p.PatientID] = p
	}
	return out
}

// Segmenter calcule les scores RFM par rapport à une horloge de référence.
type Segmenter struct {
	Now         func() time.Time
	MinPatients int
}

// NewSegmenter fixe l'horloge de référence ; nil = horloge système (UTC).
func NewSegmenter(now func() time.Time) *Segmenter {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Segmenter{Now: now, MinPatients: MinPatients}
}

// Run segmente les transactions à l'instant donné par l'horloge.
func (s *Segmenter) Run(txs []models.Transaction) (Result, error) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}
	return segment(txs, now, s.MinPatients)
}

// Segment calcule métriques, quartiles, scores et segments pour chaque patient.
// Avec moins de MinPatients patients, seules les métriques brutes sont renvoyées.
func Segment(txs []models.Transaction, now time.Time) (Result, error) {
	return segment(txs, now, MinPatients)
}

func segment(txs []models.Transaction, now time.Time, minPatients int) (Result, error) {
	metrics, err := Aggregate(txs, now)
	if err != nil {
		return Result{}, err
	}

	res := Result{AsOf: now, Patients: make([]models.PatientRFM, len(metrics))}
	for i, m := range metrics {
		res.Patients[i] = models.PatientRFM{CustomerMetrics: m}
	}
	if minPatients < MinPatients {
		minPatients = MinPatients
	}
	if len(metrics) < minPatients {
		res.Degraded = models.ErrDegenerateDistribution
		return res, nil
	}

	recency := make([]float64, len(metrics))
	freshness := make([]float64, len(metrics))
	frequency := make([]float64, len(metrics))
	monetary := make([]float64, len(metrics))
	for i, m := range metrics {
		recency[i] = float64(m.RecencyDays)
		freshness[i] = -recency[i]
		frequency[i] = float64(m.Frequency)
		monetary[i] = m.MonetaryTotal.InexactFloat64()
	}
	res.RecencyEdges = Quartiles(recency)
	res.FrequencyEdges = Quartiles(frequency)
	res.MonetaryEdges = Quartiles(monetary)

	// R est calculé sur -recency : les égalités tombent vers 1 comme pour F et M.
	freshnessEdges := Quartiles(freshness)
	for i := range res.Patients {
		score := models.RFMScore{
			R: Bucket(freshness[i], freshnessEdges),
			F: Bucket(frequency[i], res.FrequencyEdges),
			M: Bucket(monetary[i], res.MonetaryEdges),
		}
		score.Segment = Classify(score)
		res.Patients[i].Score = &score
	}
	return res, nil
}

// Aggregate calcule recency_days, frequency et monetary_total par patient.
func Aggregate(txs []models.Transaction, now time.Time) ([]models.CustomerMetrics, error) {
	byPatient := map[string]*models.CustomerMetrics{}
	for i, tx := range txs {
		if tx.PatientID == "" {
			return nil, models.NewMissingPatientID(i + 1)
		}
		if tx.ServiceDate.IsZero() {
			return nil, models.NewInvalidDate(i+1, "service_date", "")
		}
		if tx.Amount.IsNegative() {
			return nil, models.NewInvalidAmount(i+1, "amount", tx.Amount.String())
		}

		m, ok := byPatient[tx.PatientID]
		if !ok {
			m = &models.CustomerMetrics{PatientID: tx.PatientID, MonetaryTotal: decimal.Zero}
			byPatient[tx.PatientID] = m
		}
		m.Frequency++
		m.MonetaryTotal = m.MonetaryTotal.Add(tx.Amount)
		if tx.ServiceDate.After(m.LastVisit) {
			m.LastVisit = tx.ServiceDate
		}
	}

	out := make([]models.CustomerMetrics, 0, len(byPatient))
	for _, m := range byPatient {
		m.RecencyDays = daysBetween(m.LastVisit, now)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PatientID < out[j].PatientID
	})
	return out, nil
}

// daysBetween : nombre de jours entiers écoulés (arrondi inférieur).
func daysBetween(from, to time.Time) int {
	return int(math.Floor(to.Sub(from).Hours() / 24))
}

// Quartiles renvoie les bornes 0/25/50/75/100 % par interpolation linéaire.
func Quartiles(values []float64) [5]float64 {
	var edges [5]float64
	if len(values) == 0 {
		return edges
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	for i := range edges {
		pos := float64(i) / 4 * float64(len(sorted)-1)
		lo := int(math.Floor(pos))
		if lo >= len(sorted)-1 {
			edges[i] = sorted[len(sorted)-1]
			continue
		}
		frac := pos - float64(lo)
		edges[i] = sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
	}
	return edges
}

// Bucket renvoie le premier quartile (1..4) dont la borne haute est >= v.
// Des bornes égales laissent des quartiles vides : leurs valeurs tombent dans le plus bas.
func Bucket(v float64, edges [5]float64) int {
	for q := 1; q < 4; q++ {
		if v <= edges[q] {
			return q
		}
	}
	return 4
}

// Classify compare le tuple (R,F,M) aux seuils 444, 333 et 222.
func Classify(s models.RFMScore) models.Segment {
	for _, t := range thresholds {
		if atLeast(s, t.score) {
			return t.segment
		}
	}
	return models.SegmentAtRisk
}

func atLeast(s models.RFMScore, threshold int) bool {
	for _, v := range [3]int{s.R, s.F, s.M} {
		if v != threshold {
			return v > threshold
		}
	}
	return true
}

// Summary donne l'effectif et le montant moyen par segment, dans l'ordre VIP → AtRisk.
func Summary(r Result) []models.SegmentStats {
	if !r.Scored() {
		return nil
	}
	counts := map[models.Segment]int{}
	totals := map[models.Segment]decimal.Decimal{}
	for _, p := range r.Patients {
		if p.Score == nil {
			continue
		}
		counts[p.Score.Segment]++
		totals[p.Score.Segment] = totals[p.Score.Segment].Add(p.MonetaryTotal)
	}

	var out []models.SegmentStats
	for _, seg := range models.Segments {
		n := counts[seg]
		if n == 0 {
			continue
		}
		out = append(out, models.SegmentStats{
			Segment:      seg,
			Patients:     n,
			MeanMonetary: totals[seg].Div(decimal.NewFromInt(int64(n))).Round(2),
		})
	}
	return out
}

// RawAverages : moyennes brutes utilisées quand la segmentation est dégradée.
func RawAverages(r Result) (recency, frequency float64, monetary decimal.Decimal, err error) {
	if len(r.Patients) == 0 {
		return 0, 0, decimal.Zero, fmt.Errorf("no patients")
	}
	sum := decimal.Zero
	var rec, freq int
	for _, p := range r.Patients {
		rec += p.RecencyDays
		freq += p.Frequency
		sum = sum.Add(p.MonetaryTotal)
	}
	n := float64(len(r.Patients))
	return float64(rec) / n, float64(freq) / n, sum.Div(decimal.NewFromInt(int64(len(r.Patients)))).Round(2), nil
}

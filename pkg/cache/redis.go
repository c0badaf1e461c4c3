package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"dental-kpi/pkg/calculator"
	"dental-kpi/pkg/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dental-kpi:report:"

// ReportCache conserve les rapports calculés dans Redis.
// Un *ReportCache nil est valide : toutes les lectures sont des absences.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache se connecte à Redis ; renvoie nil si le serveur ne répond pas.
func NewReportCache(addr, password string, db int, ttl time.Duration) *ReportCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis at %s: %v", addr, err)
		_ = client.Close()
		return nil
	}

	log.Printf("[INFO] Connected to Redis at %s", addr)
	return &ReportCache{client: client, ttl: ttl}
}

// Get renvoie le rapport en cache pour key.
func (c *ReportCache) Get(ctx context.Context, key string) (calculator.Report, bool, error) {
	if c == nil || c.client == nil {
		return calculator.Report{}, false, nil
	}
	val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return calculator.Report{}, false, nil
	}
	if err != nil {
		return calculator.Report{}, false, err
	}
	var report calculator.Report
	if err := json.Unmarshal(val, &report); err != nil {
		return calculator.Report{}, false, fmt.Errorf("decode cached report: %w", err)
	}
	restoreDegraded(&report)
	return report, true, nil
}

// Set stocke le rapport avec le TTL du cache.
func (c *ReportCache) Set(ctx context.Context, key string, report calculator.Report) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err()
}

// Close ferme la connexion.
func (c *ReportCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// restoreDegraded : l'erreur de dégradation n'est pas sérialisée, seul son message l'est.
func restoreDegraded(r *calculator.Report) {
	if r.DegradedReason != "" {
		r.RFM.Degraded = models.ErrDegenerateDistribution
	}
}

// Fingerprint identifie un jeu d'actes et les paramètres du calcul.
func Fingerprint(txs []models.Transaction, cfg models.Config, clinic string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%s\n",
		cfg.AsOf.UTC().Format(time.RFC3339), cfg.StartMonthInclusive, cfg.EndMonthInclusive, cfg.LateAfterDays, clinic)
	for _, tx := range txs {
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%s|%s|%s|%d\n",
			tx.PatientID,
			tx.ServiceDate.UTC().Format(time.RFC3339),
			tx.Amount.String(),
			tx.TreatmentType,
			tx.Practitioner,
			tx.Clinic,
			tx.Canton,
			tx.AmountPaid.Decimal.String(),
			tx.PaymentDate.UTC().Format(time.RFC3339),
			tx.DurationMinutes,
		)
	}
	return hex.EncodeToString(h.Sum(nil))
}

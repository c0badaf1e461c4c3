package publish

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"dental-kpi/pkg/models"

	"github.com/segmentio/kafka-go"
)

const batchSize = 500

// ScoreEvent est le message publié pour chaque patient.
type ScoreEvent struct {
	RunID     string            `json:"run_id"`
	AsOf      string            `json:"as_of"`
	Patient   models.PatientRFM `json:"patient"`
	Published time.Time         `json:"published_at"`
}

// Producer sends patient scores to Kafka
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// PublishScores envoie un message par patient, clé = patient_id, par lots.
func (p *Producer) PublishScores(ctx context.Context, runID string, asOf time.Time, patients []models.PatientRFM) error {
	msgs, err := scoreMessages(runID, asOf, patients, time.Now().UTC())
	if err != nil {
		return err
	}
	for start := 0; start < len(msgs); start += batchSize {
		end := start + batchSize
		if end > len(msgs) {
			end = len(msgs)
		}
		if err := p.writer.WriteMessages(ctx, msgs[start:end]...); err != nil {
			return err
		}
	}
	log.Printf("[INFO] Sent %d patient scores to Kafka topic %s", len(msgs), p.writer.Topic)
	return nil
}

func scoreMessages(runID string, asOf time.Time, patients []models.PatientRFM, now time.Time) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(patients))
	for _, patient := range patients {
		data, err := json.Marshal(ScoreEvent{
			RunID:     runID,
			AsOf:      asOf.Format("2006-01-02"),
			Patient:   patient,
			Published: now,
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(patient.PatientID),
			Value: data,
		})
	}
	return msgs, nil
}

// Close flushes and closes the writer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Package kafka publishes report-submitted events so downstream consumers
// (moderation, analytics) can react without polling the store.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
)

// Publisher produces report-submitted events to a Kafka topic.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the reports topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishReport serializes and publishes one submitted report.
func (p *Publisher) PublishReport(ctx context.Context, report domain.Report) error {
	msg, err := serializeReport(report)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish report %d: %w", report.ID, err)
	}
	p.logger.Debug("published report event", "report_id", report.ID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeReport marshals a Report into a Kafka message keyed by report id.
func serializeReport(report domain.Report) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(report.ID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(report.Category)},
			{Key: "created_at", Value: []byte(report.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}

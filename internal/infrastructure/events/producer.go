package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/sirupsen/logrus"

	"github.com/you/marketauth/domain"
)

// Producer publishes auth events to Kafka. Publishing is best effort: a
// broker outage must never fail the user-facing request.
type Producer struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

func NewProducer(broker, topic, username, password string, logger *logrus.Logger) *Producer {
	if broker == "" {
		return &Producer{logger: logger}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}

	if username != "" {
		writer.Transport = &kafka.Transport{
			SASL: plain.Mechanism{Username: username, Password: password},
			TLS:  &tls.Config{},
		}
	}

	return &Producer{writer: writer, logger: logger}
}

type envelope struct {
	Type       string `json:"type"`
	OccurredAt string `json:"occurred_at"`
	Payload    any    `json:"payload"`
}

// Publish implements domain.EventPublisher
func (p *Producer) Publish(ctx context.Context, eventType string, payload any) error {
	if p.writer == nil {
		return nil
	}

	value, err := json.Marshal(envelope{
		Type:       eventType,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		Payload:    payload,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(eventType),
		Value: value,
		Time:  time.Now(),
	}); err != nil {
		p.logger.WithError(err).WithField("event", eventType).Warn("kafka publish failed")
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

var _ domain.EventPublisher = (*Producer)(nil)

package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"admin-auth-service/internal/client"
	"admin-auth-service/internal/model"
)

// KafkaSink streams events to the security-events topic for downstream
// consumers (SIEM ingestion, alerting). Messages are keyed by event kind so
// consumers see per-kind ordering.
type KafkaSink struct {
	producer *client.KafkaProducer
}

func NewKafkaSink(producer *client.KafkaProducer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Write(ctx context.Context, event model.SecurityEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return s.producer.ProduceMessage(ctx, []byte(event.Kind), value)
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}

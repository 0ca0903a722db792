package client

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"admin-auth-service/internal/config"
	"admin-auth-service/internal/util"
)

type KafkaProducer struct {
	Writer *kafka.Writer
	config *config.KafkaConfig
	logger *zap.Logger
}

func NewKafkaProducer(cfg *config.Config, logger *zap.Logger) (*KafkaProducer, error) {
	kafkaConfig := cfg.Kafka

	writer := &kafka.Writer{
		Addr:         kafka.TCP(kafkaConfig.Brokers...),
		Topic:        kafkaConfig.Topic,
		Balancer:     &kafka.LeastBytes{},
		MaxAttempts:  3,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("failed to write kafka messages",
					zap.Error(err),
					zap.Int("message_count", len(messages)),
				)
			}
		},
	}

	util.Info("Kafka producer initialized",
		zap.Strings("brokers", kafkaConfig.Brokers),
		zap.String("topic", kafkaConfig.Topic),
	)

	return &KafkaProducer{
		Writer: writer,
		config: &kafkaConfig,
		logger: logger,
	}, nil
}

func (p *KafkaProducer) Close() error {
	if p.Writer != nil {
		if err := p.Writer.Close(); err != nil {
			p.logger.Error("failed to close Kafka producer", zap.Error(err))
			return err
		}
		util.Info("Kafka producer closed")
	}
	return nil
}

// ProduceMessage writes a single keyed message to the configured topic.
func (p *KafkaProducer) ProduceMessage(ctx context.Context, key, value []byte) error {
	msg := kafka.Message{
		Key:   key,
		Value: value,
	}

	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	p.logger.Debug("Produced kafka message",
		zap.ByteString("key", key),
		zap.Int("value_size", len(value)),
	)
	return nil
}

func (p *KafkaProducer) HealthCheck(ctx context.Context) error {
	dialer := &kafka.Dialer{
		Timeout:   5 * time.Second,
		DualStack: true,
	}

	conn, err := dialer.DialContext(ctx, "tcp", p.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to kafka broker: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ReadPartitions(); err != nil {
		return fmt.Errorf("failed to read Kafka partitions: %w", err)
	}
	return nil
}

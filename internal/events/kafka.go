package events

import (
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"
)

// KafkaSink publishes lifecycle events to a Kafka topic. Delivery is
// confirmed synchronously per message; a failed publish is logged and
// dropped — the lifecycle itself never blocks on the broker.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
	logger   *zap.Logger
}

func NewKafkaSink(broker, topic string, logger *zap.Logger) (*KafkaSink, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": broker,
		"acks":              "all",
		"retries":           3,
		"retry.backoff.ms":  100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaSink{
		producer: producer,
		topic:    topic,
		logger:   logger.With(zap.String("component", "kafka_sink")),
	}, nil
}

func (s *KafkaSink) Publish(e Event) {
	msgBytes, err := json.Marshal(e)
	if err != nil {
		s.logger.Error("Failed to marshal event", zap.String("type", e.Type), zap.Error(err))
		return
	}

	deliveryChan := make(chan kafka.Event)
	defer close(deliveryChan)

	err = s.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &s.topic, Partition: kafka.PartitionAny},
		Key:            []byte(e.Key()),
		Value:          msgBytes,
	}, deliveryChan)
	if err != nil {
		s.logger.Error("Failed to produce event", zap.String("type", e.Type), zap.Error(err))
		return
	}

	ev := <-deliveryChan
	switch m := ev.(type) {
	case *kafka.Message:
		if m.TopicPartition.Error != nil {
			s.logger.Error("Event delivery failed",
				zap.String("type", e.Type),
				zap.String("key", e.Key()),
				zap.Error(m.TopicPartition.Error))
		}
	default:
		s.logger.Error("Unexpected kafka event type", zap.String("got", fmt.Sprintf("%T", ev)))
	}
}

func (s *KafkaSink) Close() {
	if s.producer != nil {
		s.producer.Close()
	}
}

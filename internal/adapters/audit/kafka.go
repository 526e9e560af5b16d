package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink keys every record by room id so one interview stays on one
// partition.
type KafkaSink struct {
	w kafkaWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		RequiredAcks: 1,
		Async:        false,
	}}
}

func (s *KafkaSink) Publish(ctx context.Context, rec Record) error {
	msg, err := kafkaMessage(rec)
	if err != nil {
		return err
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error { return s.w.Close() }

func kafkaMessage(rec Record) (kafka.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal record: %w", err)
	}
	msg := kafka.Message{
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(rec.Type)},
		},
	}
	if rec.RoomID != "" {
		msg.Key = []byte(rec.RoomID)
	}
	return msg, nil
}

package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Publisher is what the services depend on; the real producer and the mock
// both satisfy it.
type Publisher interface {
	Publish(topic string, key string, value []byte) error
	Close() error
}

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer}
}

func (p *Producer) Publish(topic string, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// MockProducer swallows events; used when Kafka is disabled or mocked in
// local development.
type MockProducer struct{}

func (MockProducer) Publish(topic string, key string, value []byte) error { return nil }
func (MockProducer) Close() error                                         { return nil }

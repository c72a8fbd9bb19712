package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter builds a producer for one topic. Messages with the same key land on the same partition,
// and a write succeeds only once every in-sync replica has it.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            5,
		WriteTimeout:           5 * time.Second,
		ReadTimeout:            5 * time.Second,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var _ Publisher = (*kafkaPublisher)(nil)

// EventHeader holds the queue id of a change message.
const EventHeader = "event"

// kafkaPublisher writes books changes on a single topic keyed by book id,
// so that all changes of one book land on the same partition in order.
type kafkaPublisher struct {
	logger *zap.Logger
	writer *kafka.Writer
}

// NewKafkaPublisher provides a publisher for the configured brokers and topic.
func NewKafkaPublisher(logger *zap.Logger, config *KafkaConfig) *kafkaPublisher {
	batchTimeout := config.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	return &kafkaPublisher{
		logger: logger,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(config.Brokers...),
			Topic:                  config.Topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           batchTimeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

// Push publishes the book under the event named by qid.
func (kp *kafkaPublisher) Push(ctx context.Context, qid string, book Book) error {
	msg, err := newChangeMessage(qid, book)
	if err != nil {
		return err
	}
	if err = kp.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}
	kp.logger.Debug("change published", zap.String("qid", qid), zap.String("book.id", book.ID))
	return nil
}

// Close flushes pending messages and releases the writer.
func (kp *kafkaPublisher) Close() error {
	return kp.writer.Close()
}

func newChangeMessage(qid string, book Book) (kafka.Message, error) {
	value, err := json.Marshal(book)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:     []byte(book.ID),
		Value:   value,
		Headers: []kafka.Header{{Key: EventHeader, Value: []byte(qid)}},
	}, nil
}

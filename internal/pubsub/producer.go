package pubsub

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/logger"
)

const defaultWriteTimeout = 5 * time.Second

// NewKafkaProducer publishes events asynchronously, keyed by transaction
// id so that the events of one transaction stay ordered.
func NewKafkaProducer(cfg Config, log logger.Logger) (Publisher, error) {
	if !cfg.Enabled() {
		return nil, errors.Error("no kafka brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.Error("no kafka topic configured")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	producerLog := log.With("kafka_producer")

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		ErrorLogger:  kafka.LoggerFunc(producerLog.Warnf),
	}
	w.Completion = func(messages []kafka.Message, err error) {
		if err != nil {
			producerLog.Warn(errors.WrapFailf(err, "deliver %d events", len(messages)))
		}
	}

	return &kafkaProducer{writer: w, log: producerLog}, nil
}

type kafkaProducer struct {
	writer *kafka.Writer
	log    logger.Logger
}

func (p *kafkaProducer) Publish(ctx context.Context, events ...Event) error {
	msgs, err := toMessages(events)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, msgs...)
	return errors.WrapFail(err, "write events")
}

func (p *kafkaProducer) Close() error {
	return errors.WrapFail(p.writer.Close(), "close kafka writer")
}

func toMessages(events []Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := e.Encode()
		if err != nil {
			return nil, err
		}

		msgs = append(msgs, kafka.Message{
			Key:     []byte(e.TransactionID),
			Value:   value,
			Time:    e.At,
			Headers: []kafka.Header{{Key: "kind", Value: []byte(e.Kind)}},
		})
	}
	return msgs, nil
}

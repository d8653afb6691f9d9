package kafka

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/rzzdr/cds-pricing-engine/pkg/metrics"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/logger"
)

// MessageHandler processes one consumed message. A nil error commits the
// message.
type MessageHandler func(ctx context.Context, msg *Message) error

const (
	defaultRetryBackoff    = 100 * time.Millisecond
	defaultMaxRetryBackoff = 5 * time.Second
)

// Consumer reads one topic as part of a consumer group
type Consumer struct {
	reader          messageReader
	topic           string
	retryBackoff    time.Duration
	maxRetryBackoff time.Duration
	recorder        *metrics.Recorder
	log             *logger.Logger
}

// NewConsumer creates a group reader on config.RequestTopic. recorder may be nil.
func NewConsumer(config Config, recorder *metrics.Recorder) *Consumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        config.Brokers,
		GroupID:        config.GroupID,
		Topic:          config.RequestTopic,
		MinBytes:       config.Consumer.MinBytes,
		MaxBytes:       config.Consumer.MaxBytes,
		MaxWait:        config.Consumer.MaxWait,
		CommitInterval: config.Consumer.CommitInterval,
	})
	c := newConsumer(r, config.RequestTopic, recorder)
	if config.Consumer.RetryBackoff > 0 {
		c.retryBackoff = config.Consumer.RetryBackoff
	}
	if config.Consumer.MaxRetryBackoff > 0 {
		c.maxRetryBackoff = config.Consumer.MaxRetryBackoff
	}
	return c
}

func newConsumer(r messageReader, topic string, recorder *metrics.Recorder) *Consumer {
	return &Consumer{
		reader:          r,
		topic:           topic,
		retryBackoff:    defaultRetryBackoff,
		maxRetryBackoff: defaultMaxRetryBackoff,
		recorder:        recorder,
		log:             logger.GetLogger("kafka.consumer"),
	}
}

// ConsumeMessages fetches messages until ctx is done. A message is committed
// only after its handler succeeds; a failing handler is retried on the same
// message with exponential backoff, so later offsets never commit past it.
func (c *Consumer) ConsumeMessages(ctx context.Context, handler MessageHandler) error {
	c.log.Infof("Consuming %s", c.topic)
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Errorf("Failed to fetch message: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		if err := c.handle(ctx, m, handler); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.log.Errorf("Failed to commit offset %d: %v", m.Offset, err)
		}
		c.record("consumed")
	}
}

// handle runs handler on m until it succeeds. It only fails when ctx is done.
func (c *Consumer) handle(ctx context.Context, m kafkago.Message, handler MessageHandler) error {
	backoff := c.retryBackoff
	for attempt := 1; ; attempt++ {
		err := handler(ctx, fromKafkaMessage(m))
		if err == nil {
			return nil
		}
		c.record("failed")
		c.log.Errorf("Message handler failed at %s[%d]@%d (attempt %d), retrying in %v: %v",
			m.Topic, m.Partition, m.Offset, attempt, backoff, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(2*backoff, c.maxRetryBackoff)
	}
}

// Close closes the underlying reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) record(outcome string) {
	if c.recorder != nil {
		c.recorder.RecordKafkaMessage(c.topic, outcome)
	}
}

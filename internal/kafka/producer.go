package kafka

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"

	"github.com/rzzdr/cds-pricing-engine/pkg/metrics"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/logger"
)

// Producer writes messages to one topic behind a circuit breaker
type Producer struct {
	writer   messageWriter
	topic    string
	breaker  *gobreaker.CircuitBreaker
	recorder *metrics.Recorder
	log      *logger.Logger
}

// NewProducer creates a producer for config.ResultTopic. recorder may be nil.
func NewProducer(config Config, recorder *metrics.Recorder) *Producer {
	acks := kafkago.RequiredAcks(config.Producer.RequiredAcks)
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(config.Brokers...),
		Topic:        config.ResultTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: acks,
		Compression:  compression(config.Producer.Compression),
		BatchSize:    config.Producer.BatchSize,
		BatchTimeout: config.Producer.BatchTimeout,
		MaxAttempts:  config.Producer.MaxAttempts,
	}
	return newProducer(w, config.ResultTopic, config.Breaker, recorder)
}

func newProducer(w messageWriter, topic string, bc BreakerConfig, recorder *metrics.Recorder) *Producer {
	p := &Producer{
		writer:   w,
		topic:    topic,
		recorder: recorder,
		log:      logger.GetLogger("kafka.producer"),
	}

	failures := bc.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka-" + topic,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Warnf("Circuit breaker %s changed from %s to %s", name, from, to)
			if p.recorder != nil {
				p.recorder.RecordBreakerState(name, int(to))
			}
		},
	})
	return p
}

// ProduceMessage writes one message. While the breaker is open the write is
// refused with an Unavailable error.
func (p *Producer) ProduceMessage(ctx context.Context, msg *Message) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, toKafkaMessage(msg))
	})
	if err != nil {
		p.record("failed")
		if err != gobreaker.ErrOpenState && err != gobreaker.ErrTooManyRequests {
			p.log.Errorf("Failed to produce message to %s: %v", p.topic, err)
		}
		return errors.Wrapf(errors.WithType(err, errors.ErrorTypeUnavailable), "write to %s", p.topic)
	}
	p.record("produced")
	return nil
}

// ProduceJSON marshals value and writes it under key
func (p *Producer) ProduceJSON(ctx context.Context, key []byte, value interface{}, headers []MessageHeader) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}
	return p.ProduceMessage(ctx, &Message{Key: key, Value: data, Headers: headers})
}

// State returns the breaker state
func (p *Producer) State() gobreaker.State {
	return p.breaker.State()
}

// Close closes the underlying writer
func (p *Producer) Close() error {
	return p.writer.Close()
}

func (p *Producer) record(outcome string) {
	if p.recorder != nil {
		p.recorder.RecordKafkaMessage(p.topic, outcome)
	}
}

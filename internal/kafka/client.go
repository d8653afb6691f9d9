// Package kafka connects the pricer to Kafka: pricing requests are read from
// one topic and results written to another.
package kafka

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Config holds the Kafka connection settings of the pricing worker
type Config struct {
	Brokers      []string
	GroupID      string
	RequestTopic string
	ResultTopic  string

	Consumer ConsumerConfig
	Producer ProducerConfig
	Breaker  BreakerConfig
}

// ConsumerConfig holds reader settings
type ConsumerConfig struct {
	MinBytes        int
	MaxBytes        int
	MaxWait         time.Duration
	CommitInterval  time.Duration
	// RetryBackoff is the first wait before a failed message is handled
	// again; it doubles up to MaxRetryBackoff
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
}

// ProducerConfig holds writer settings
type ProducerConfig struct {
	// RequiredAcks is -1 (all replicas), 0 or 1
	RequiredAcks int
	// Compression is none, gzip, snappy, lz4 or zstd
	Compression  string
	BatchSize    int
	BatchTimeout time.Duration
	MaxAttempts  int
}

// BreakerConfig holds the circuit breaker guarding writes
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// MessageHeader is a Kafka message header
type MessageHeader struct {
	Key   string
	Value []byte
}

// Message is a consumed or produced Kafka message
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   []MessageHeader
	Timestamp time.Time
}

// messageReader is the part of kafka-go's Reader the consumer uses
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// messageWriter is the part of kafka-go's Writer the producer uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

func fromKafkaMessage(m kafkago.Message) *Message {
	headers := make([]MessageHeader, len(m.Headers))
	for i, h := range m.Headers {
		headers[i] = MessageHeader{Key: h.Key, Value: h.Value}
	}
	return &Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Headers:   headers,
		Timestamp: m.Time,
	}
}

func toKafkaMessage(msg *Message) kafkago.Message {
	headers := make([]kafkago.Header, len(msg.Headers))
	for i, h := range msg.Headers {
		headers[i] = kafkago.Header{Key: h.Key, Value: h.Value}
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafkago.Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    ts,
	}
}

func compression(name string) kafkago.Compression {
	switch name {
	case "gzip":
		return kafkago.Gzip
	case "snappy":
		return kafkago.Snappy
	case "lz4":
		return kafkago.Lz4
	case "zstd":
		return kafkago.Zstd
	default:
		return 0
	}
}

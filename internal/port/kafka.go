package port

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"firestige.xyz/timedemux/internal/core"
)

const (
	defaultKafkaBatchSize    = 100
	defaultKafkaBatchTimeout = 100 * time.Millisecond
	defaultKafkaWriteTimeout = 5 * time.Second

	// Kafka record headers set on every message.
	HeaderOpcode = "opcode"
	HeaderEOF    = "eof"
)

// KafkaConfig configures a KafkaSink.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	Key          string // record key, defaults to the topic
	BatchSize    int
	BatchTimeout time.Duration
	Compression  string // none|gzip|snappy|lz4
}

// messageWriter is the part of *kafka.Writer the sink needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes each committed message as one Kafka record. The opcode
// travels in a header; end of stream is an empty record with an eof header,
// after which the writer is closed.
type KafkaSink struct {
	writer  messageWriter
	key     []byte
	topic   string
	timeout time.Duration

	sent   atomic.Uint64
	failed atomic.Uint64
	closed atomic.Bool
}

// NewKafkaSink creates a sink backed by a kafka-go writer.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: kafka output requires brokers", core.ErrConfigInvalid)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: kafka output requires topic", core.ErrConfigInvalid)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultKafkaBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultKafkaBatchTimeout
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	switch cfg.Compression {
	case "none", "":
	case "gzip":
		w.Compression = compress.Gzip
	case "snappy":
		w.Compression = compress.Snappy
	case "lz4":
		w.Compression = compress.Lz4
	default:
		return nil, fmt.Errorf("%w: invalid kafka compression %q", core.ErrConfigInvalid, cfg.Compression)
	}

	return newKafkaSink(w, cfg), nil
}

func newKafkaSink(w messageWriter, cfg KafkaConfig) *KafkaSink {
	key := cfg.Key
	if key == "" {
		key = cfg.Topic
	}
	return &KafkaSink{
		writer:  w,
		key:     []byte(key),
		topic:   cfg.Topic,
		timeout: defaultKafkaWriteTimeout,
	}
}

// Emit implements Sink.
func (s *KafkaSink) Emit(msg core.Message) error {
	value := make([]byte, len(msg.Payload))
	copy(value, msg.Payload)

	return s.write(kafka.Message{
		Key:   s.key,
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderOpcode, Value: []byte(strconv.FormatUint(uint64(msg.Opcode), 10))},
		},
	})
}

// EOF implements Sink.
func (s *KafkaSink) EOF() error {
	err := s.write(kafka.Message{
		Key:     s.key,
		Headers: []kafka.Header{{Key: HeaderEOF, Value: []byte("1")}},
	})
	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Close closes the writer without signalling end of stream. It is safe to
// call after EOF and more than once; only the first call closes the writer.
func (s *KafkaSink) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.writer.Close()
	slog.Info("kafka output closed",
		"topic", s.topic,
		"total_sent", s.sent.Load(),
		"total_failed", s.failed.Load(),
	)
	return err
}

func (s *KafkaSink) write(msg kafka.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.failed.Add(1)
		return fmt.Errorf("kafka write to %s: %w", s.topic, err)
	}
	s.sent.Add(1)
	return nil
}

// Sent returns the number of records written.
func (s *KafkaSink) Sent() uint64 {
	return s.sent.Load()
}

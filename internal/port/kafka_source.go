package port

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"firestige.xyz/timedemux/internal/core"
)

const defaultKafkaFetchWait = 100 * time.Millisecond

// KafkaSourceConfig configures a KafkaSource.
type KafkaSourceConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	StartOffset string        // earliest | latest, defaults to earliest
	FetchWait   time.Duration // how long Ready waits for a record
	MaxBytes    int
}

// messageReader is the part of *kafka.Reader the source needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource is an Input fed by records written by a KafkaSink: the opcode
// travels in a header and a record with the eof header ends the stream.
// Records are committed when the worker advances past them.
type KafkaSource struct {
	reader    messageReader
	topic     string
	fetchWait time.Duration

	current kafka.Message
	msg     core.Message
	loaded  bool
	eof     bool
}

// NewKafkaSource creates a source backed by a kafka-go consumer group reader.
func NewKafkaSource(cfg KafkaSourceConfig) (*KafkaSource, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: kafka input requires brokers", core.ErrConfigInvalid)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: kafka input requires topic", core.ErrConfigInvalid)
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("%w: kafka input requires group_id", core.ErrConfigInvalid)
	}

	var startOffset int64
	switch cfg.StartOffset {
	case "earliest", "":
		startOffset = kafka.FirstOffset
	case "latest":
		startOffset = kafka.LastOffset
	default:
		return nil, fmt.Errorf("%w: invalid start offset %q", core.ErrConfigInvalid, cfg.StartOffset)
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		StartOffset:    startOffset,
		MinBytes:       1,
		MaxBytes:       cfg.MaxBytes,
		CommitInterval: time.Second,
		MaxWait:        time.Second,
	})
	return newKafkaSource(reader, cfg), nil
}

func newKafkaSource(r messageReader, cfg KafkaSourceConfig) *KafkaSource {
	if cfg.FetchWait <= 0 {
		cfg.FetchWait = defaultKafkaFetchWait
	}
	return &KafkaSource{reader: r, topic: cfg.Topic, fetchWait: cfg.FetchWait}
}

// Ready implements Input. It waits up to the fetch wait for the next record
// and reports false if none arrived.
func (s *KafkaSource) Ready() (bool, error) {
	if s.loaded || s.eof {
		return true, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.fetchWait)
	defer cancel()
	rec, err := s.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return false, nil
		}
		return false, fmt.Errorf("kafka fetch from %s: %w", s.topic, err)
	}

	if _, ok := recordHeader(rec, HeaderEOF); ok {
		s.eof = true
		slog.Info("kafka input reached end of stream", "topic", s.topic, "offset", rec.Offset)
		return true, s.commit(rec)
	}

	op, ok := recordHeader(rec, HeaderOpcode)
	if !ok {
		return false, fmt.Errorf("%w: record at offset %d has no %s header", core.ErrMalformedMessage, rec.Offset, HeaderOpcode)
	}
	opcode, err := strconv.ParseUint(op, 10, 32)
	if err != nil {
		return false, fmt.Errorf("%w: record at offset %d: opcode %q", core.ErrMalformedMessage, rec.Offset, op)
	}

	s.current = rec
	s.msg = core.Message{Opcode: core.Opcode(opcode), Payload: rec.Value}
	s.loaded = true
	return true, nil
}

// EOF implements Input.
func (s *KafkaSource) EOF() bool {
	return s.eof
}

// Message implements Input.
func (s *KafkaSource) Message() core.Message {
	return s.msg
}

// Advance implements Input. The consumed record is committed.
func (s *KafkaSource) Advance() error {
	if !s.loaded {
		return core.ErrNoMessage
	}
	rec := s.current
	s.current = kafka.Message{}
	s.msg = core.Message{}
	s.loaded = false
	return s.commit(rec)
}

func (s *KafkaSource) commit(rec kafka.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultKafkaWriteTimeout)
	defer cancel()
	if err := s.reader.CommitMessages(ctx, rec); err != nil {
		return fmt.Errorf("kafka commit on %s: %w", s.topic, err)
	}
	return nil
}

// Close closes the underlying reader.
func (s *KafkaSource) Close() error {
	if err := s.reader.Close(); err != nil {
		return fmt.Errorf("failed to close kafka reader: %w", err)
	}
	return nil
}

func recordHeader(rec kafka.Message, key string) (string, bool) {
	for _, h := range rec.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}

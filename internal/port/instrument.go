package port

import (
	"strconv"

	"firestige.xyz/timedemux/internal/core"
	"firestige.xyz/timedemux/internal/metrics"
)

// instrumented counts what passes through a Sink.
type instrumented struct {
	next   Sink
	worker string
	port   string
}

// Instrument wraps next so committed messages, bytes, end-of-stream signals
// and failures are recorded in the port metrics.
func Instrument(worker, port string, next Sink) Sink {
	return &instrumented{next: next, worker: worker, port: port}
}

func (s *instrumented) Emit(msg core.Message) error {
	if err := s.next.Emit(msg); err != nil {
		metrics.PortErrorsTotal.WithLabelValues(s.worker, s.port).Inc()
		return err
	}
	op := strconv.FormatUint(uint64(msg.Opcode), 10)
	metrics.PortMessagesTotal.WithLabelValues(s.worker, s.port, op).Inc()
	metrics.PortBytesTotal.WithLabelValues(s.worker, s.port).Add(float64(len(msg.Payload)))
	return nil
}

func (s *instrumented) EOF() error {
	if err := s.next.EOF(); err != nil {
		metrics.PortErrorsTotal.WithLabelValues(s.worker, s.port).Inc()
		return err
	}
	metrics.PortEOFTotal.WithLabelValues(s.worker, s.port).Inc()
	return nil
}

package port

import (
	"bufio"
	"io"
	"sync"

	"firestige.xyz/timedemux/internal/core"
)

// Buffered is a Sink that keeps every committed message in memory.
type Buffered struct {
	mu       sync.Mutex
	messages []core.Message
	eofs     int
}

// NewBuffered creates an empty Buffered sink.
func NewBuffered() *Buffered {
	return &Buffered{}
}

// Emit implements Sink.
func (b *Buffered) Emit(msg core.Message) error {
	payload := make([]byte, len(msg.Payload))
	copy(payload, msg.Payload)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, core.Message{Opcode: msg.Opcode, Payload: payload})
	return nil
}

// EOF implements Sink.
func (b *Buffered) EOF() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.eofs++
	return nil
}

// Messages returns the committed messages in order.
func (b *Buffered) Messages() []core.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// EOFCount returns how many times end of stream reached the sink.
func (b *Buffered) EOFCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.eofs
}

// WriterSink writes committed payloads back to back to an io.Writer, which is
// the layout of the golden data and golden time files.
type WriterSink struct {
	w *bufio.Writer
}

// NewWriterSink creates a WriterSink over w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: bufio.NewWriter(w)}
}

// Emit implements Sink.
func (s *WriterSink) Emit(msg core.Message) error {
	_, err := s.w.Write(msg.Payload)
	return err
}

// EOF implements Sink. It flushes buffered output.
func (s *WriterSink) EOF() error {
	return s.w.Flush()
}

// Discard is a Sink that drops everything.
type Discard struct{}

// Emit implements Sink.
func (Discard) Emit(core.Message) error { return nil }

// EOF implements Sink.
func (Discard) EOF() error { return nil }

// Flush writes any buffered output.
func (s *WriterSink) Flush() error {
	return s.w.Flush()
}

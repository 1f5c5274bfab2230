// Package port implements the message ports that connect workers to the
// outside world.
//
// A worker reads from an Input and writes to one or more Outputs. An Output
// stages one message at a time: the worker sizes a buffer with Resize, fills
// it, optionally tags it with SetOpcode and commits it with Advance. What
// happens to a committed message is up to the Sink behind the port.
package port

import (
	"fmt"

	"firestige.xyz/timedemux/internal/core"
)

// Input is the consuming side of a port.
type Input interface {
	// Ready reports whether a message or the end of stream is current.
	Ready() (bool, error)
	// EOF reports whether the upstream signalled end of stream. It is checked
	// before Message.
	EOF() bool
	// Message returns the current message. The payload is valid until Advance.
	Message() core.Message
	// Advance consumes the current message.
	Advance() error
}

// Output is the producing side of a port.
type Output interface {
	// SetDefaultOpcode sets the opcode used when a message is not tagged.
	SetDefaultOpcode(op core.Opcode)
	// SetOpcode tags the message being staged.
	SetOpcode(op core.Opcode)
	// Resize allocates a buffer of exactly n bytes for the staged message.
	Resize(n int) ([]byte, error)
	// Advance commits the staged message.
	Advance() error
	// SetEOF signals end of stream downstream. It is terminal.
	SetEOF() error
}

// Sink receives what an OutputPort commits. The payload passed to Emit is
// only valid for the duration of the call.
type Sink interface {
	Emit(msg core.Message) error
	EOF() error
}

// OutputPort is the standard Output. It is not safe for concurrent use; a
// worker owns its ports.
type OutputPort struct {
	name      string
	pool      *Pool
	sink      Sink
	defaultOp core.Opcode
	op        core.Opcode
	tagged    bool
	buf       []byte
	eof       bool
}

// NewOutput creates an output port named name drawing buffers from pool.
// A nil pool means buffers are unbounded.
func NewOutput(name string, pool *Pool, sink Sink) *OutputPort {
	if pool == nil {
		pool = NewPool(0)
	}
	return &OutputPort{
		name: name,
		pool: pool,
		sink: sink,
	}
}

// Name returns the port name.
func (p *OutputPort) Name() string {
	return p.name
}

// SetDefaultOpcode implements Output.
func (p *OutputPort) SetDefaultOpcode(op core.Opcode) {
	p.defaultOp = op
}

// SetOpcode implements Output.
func (p *OutputPort) SetOpcode(op core.Opcode) {
	p.op = op
	p.tagged = true
}

// Resize implements Output. A second Resize before Advance replaces the
// staged buffer.
func (p *OutputPort) Resize(n int) ([]byte, error) {
	if p.eof {
		return nil, fmt.Errorf("%s: %w", p.name, core.ErrPortEOF)
	}
	if p.buf != nil {
		p.pool.Put(p.buf)
		p.buf = nil
	}
	buf, err := p.pool.Get(n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	p.buf = buf
	return buf, nil
}

// Advance implements Output. Advancing without Resize commits a zero-length
// message.
func (p *OutputPort) Advance() error {
	if p.eof {
		return fmt.Errorf("%s: %w", p.name, core.ErrPortEOF)
	}
	msg := core.Message{Opcode: p.defaultOp, Payload: p.buf}
	if p.tagged {
		msg.Opcode = p.op
	}
	err := p.sink.Emit(msg)

	if p.buf != nil {
		p.pool.Put(p.buf)
		p.buf = nil
	}
	p.tagged = false
	if err != nil {
		return fmt.Errorf("%s: emit failed: %w", p.name, err)
	}
	return nil
}

// SetEOF implements Output. Only the first call reaches the sink.
func (p *OutputPort) SetEOF() error {
	if p.eof {
		return fmt.Errorf("%s: %w", p.name, core.ErrPortEOF)
	}
	p.eof = true
	if p.buf != nil {
		p.pool.Put(p.buf)
		p.buf = nil
	}
	if err := p.sink.EOF(); err != nil {
		return fmt.Errorf("%s: eof failed: %w", p.name, err)
	}
	return nil
}

// IsEOF reports whether SetEOF was called.
func (p *OutputPort) IsEOF() bool {
	return p.eof
}

// Package fixture reads and writes the binary message fixture format used to
// feed workers outside a live host.
//
// A fixture is a sequence of messages, each an 8-byte header followed by its
// payload:
//
//	+----------------+----------------+==================+
//	| length uint32  | opcode uint32  | length bytes ... |
//	+----------------+----------------+==================+
//
// Header fields and payloads are host byte order.
package fixture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"firestige.xyz/timedemux/internal/core"
)

// HeaderSize is the size of a message header in bytes.
const HeaderSize = 8

// Header precedes every message payload in a fixture.
type Header struct {
	Length uint32
	Opcode uint32
}

func (h Header) encode(buf []byte) {
	binary.NativeEndian.PutUint32(buf[0:4], h.Length)
	binary.NativeEndian.PutUint32(buf[4:8], h.Opcode)
}

func decodeHeader(buf []byte) Header {
	return Header{
		Length: binary.NativeEndian.Uint32(buf[0:4]),
		Opcode: binary.NativeEndian.Uint32(buf[4:8]),
	}
}

// Writer encodes messages into a fixture.
type Writer struct {
	w   *bufio.Writer
	hdr [HeaderSize]byte
}

// NewWriter creates a fixture writer over w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteMessage appends one message.
func (w *Writer) WriteMessage(op core.Opcode, payload []byte) error {
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: payload of %d bytes does not fit a header", core.ErrMalformedMessage, len(payload))
	}
	Header{Length: uint32(len(payload)), Opcode: uint32(op)}.encode(w.hdr[:])
	if _, err := w.w.Write(w.hdr[:]); err != nil {
		return err
	}
	_, err := w.w.Write(payload)
	return err
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Reader decodes a fixture and serves it as a port.Input: a clean end of
// file is end of stream, a cut-off header or payload is an error.
type Reader struct {
	r          *bufio.Reader
	maxPayload int

	hdr     [HeaderSize]byte
	buf     []byte
	current core.Message
	loaded  bool
	eof     bool
	count   uint64
}

// NewReader creates a fixture reader over r. Payloads larger than maxPayload
// bytes are rejected; maxPayload <= 0 disables the check.
func NewReader(r io.Reader, maxPayload int) *Reader {
	return &Reader{
		r:          bufio.NewReader(r),
		maxPayload: maxPayload,
	}
}

// Ready implements port.Input. It blocks on the underlying reader.
func (r *Reader) Ready() (bool, error) {
	if r.loaded || r.eof {
		return true, nil
	}
	if err := r.load(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Reader) load() error {
	n, err := io.ReadFull(r.r, r.hdr[:])
	switch {
	case err == io.EOF && n == 0:
		r.eof = true
		return nil
	case err != nil:
		return fmt.Errorf("%w: header of message %d: %w", core.ErrTruncatedFixture, r.count, unexpected(err))
	}

	h := decodeHeader(r.hdr[:])
	if r.maxPayload > 0 && int64(h.Length) > int64(r.maxPayload) {
		return fmt.Errorf("%w: message %d is %d bytes, limit %d",
			core.ErrMalformedMessage, r.count, h.Length, r.maxPayload)
	}
	if cap(r.buf) < int(h.Length) {
		r.buf = make([]byte, h.Length)
	}
	payload := r.buf[:h.Length]
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return fmt.Errorf("%w: payload of message %d: %w", core.ErrTruncatedFixture, r.count, unexpected(err))
	}

	r.current = core.Message{Opcode: core.Opcode(h.Opcode), Payload: payload}
	r.loaded = true
	return nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// EOF implements port.Input.
func (r *Reader) EOF() bool {
	return r.eof
}

// Message implements port.Input.
func (r *Reader) Message() core.Message {
	return r.current
}

// Advance implements port.Input.
func (r *Reader) Advance() error {
	if !r.loaded {
		return core.ErrNoMessage
	}
	r.current = core.Message{}
	r.loaded = false
	r.count++
	return nil
}

// Count returns the number of messages consumed so far.
func (r *Reader) Count() uint64 {
	return r.count
}

// ReadTimestamps decodes a golden timestamp file: back to back 8-byte scalars.
func ReadTimestamps(r io.Reader) ([]uint64, error) {
	var (
		out []uint64
		buf [8]byte
		br  = bufio.NewReader(r)
	)
	for {
		_, err := io.ReadFull(br, buf[:])
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("%w: timestamp %d: %w", core.ErrTruncatedFixture, len(out), unexpected(err))
		}
		out = append(out, binary.NativeEndian.Uint64(buf[:]))
	}
}

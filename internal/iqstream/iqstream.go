// Package iqstream defines the iqstream and iqstream_with_sync protocols:
// their opcodes, sample records and typed views over message payloads.
//
// Payloads are host byte order, as written by the fixture generator.
package iqstream

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"firestige.xyz/timedemux/internal/core"
)

// Opcodes of iqstream_with_sync. Plain iqstream only carries OpIQ.
const (
	OpIQ   core.Opcode = 0
	OpSync core.Opcode = 1
	OpTime core.Opcode = 2
)

const (
	// SampleSize is the wire size of one IQ record in bytes.
	SampleSize = int(unsafe.Sizeof(Sample{}))
	// TimeSize is the wire size of a timestamp scalar in bytes.
	TimeSize = 8

	iOffset = int(unsafe.Offsetof(Sample{}.I))
	qOffset = int(unsafe.Offsetof(Sample{}.Q))
)

// OpcodeName returns a printable name for an iqstream_with_sync opcode.
func OpcodeName(op core.Opcode) string {
	switch op {
	case OpIQ:
		return "iq"
	case OpSync:
		return "sync"
	case OpTime:
		return "time"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(op))
	}
}

// Sample is one complex sample of the iqstream protocol.
type Sample struct {
	I int16
	Q int16
}

// IQ returns the components.
func (s Sample) IQ() (int16, int16) { return s.I, s.Q }

// SetIQ sets the components.
func (s *Sample) SetIQ(i, q int16) { s.I, s.Q = i, q }

// SyncSample is one complex sample of the iqstream_with_sync protocol.
type SyncSample struct {
	I int16
	Q int16
}

// IQ returns the components.
func (s SyncSample) IQ() (int16, int16) { return s.I, s.Q }

// SetIQ sets the components.
func (s *SyncSample) SetIQ(i, q int16) { s.I, s.Q = i, q }

// Samples views payload as iqstream records. The view shares memory with payload.
func Samples(payload []byte) ([]Sample, error) {
	return view[Sample](payload)
}

// SyncSamples views payload as iqstream_with_sync records. The view shares
// memory with payload.
func SyncSamples(payload []byte) ([]SyncSample, error) {
	return view[SyncSample](payload)
}

// Whole trims payload to the records it holds in full. Bytes of a trailing
// partial record are dropped.
func Whole(payload []byte) []byte {
	return payload[:len(payload)/SampleSize*SampleSize]
}

// Decode decodes the whole records of payload into dst one by one and returns
// the number decoded. Unlike the views it accepts payloads at any alignment.
// Both record forms share this wire layout.
func Decode(dst []Sample, payload []byte) int {
	n := min(len(dst), len(payload)/SampleSize)
	for k := range n {
		rec := payload[k*SampleSize:]
		dst[k].SetIQ(int16(binary.NativeEndian.Uint16(rec[iOffset:])), int16(binary.NativeEndian.Uint16(rec[qOffset:])))
	}
	return n
}

func view[T any](payload []byte) ([]T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(payload)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte samples",
			core.ErrMalformedMessage, len(payload), size)
	}
	if len(payload) == 0 {
		return nil, nil
	}
	base := unsafe.Pointer(unsafe.SliceData(payload))
	if uintptr(base)%unsafe.Alignof(zero) != 0 {
		return nil, fmt.Errorf("%w: payload is not %d-byte aligned",
			core.ErrMalformedMessage, unsafe.Alignof(zero))
	}
	return unsafe.Slice((*T)(base), len(payload)/size), nil
}

// Time decodes a timestamp payload.
func Time(payload []byte) (uint64, error) {
	if len(payload) != TimeSize {
		return 0, fmt.Errorf("%w: timestamp payload is %d bytes, want %d",
			core.ErrMalformedMessage, len(payload), TimeSize)
	}
	return binary.NativeEndian.Uint64(payload), nil
}

// PutTime encodes t into buf, which must hold TimeSize bytes.
func PutTime(buf []byte, t uint64) {
	binary.NativeEndian.PutUint64(buf, t)
}

// Seconds is the whole-second part of a timestamp, its upper 32 bits.
func Seconds(t uint64) uint32 {
	return uint32(t >> 32)
}

// Fraction is the sub-second part of a timestamp, its lower 32 bits.
func Fraction(t uint64) uint32 {
	return uint32(t)
}

// FloatSeconds renders a timestamp as seconds with the fraction scaled to [0, 1].
func FloatSeconds(t uint64) float64 {
	return float64(Seconds(t)) + float64(Fraction(t))/0xFFFFFFFF
}

// MakeTime builds a timestamp from its whole and fractional parts.
func MakeTime(seconds, fraction uint32) uint64 {
	return uint64(seconds)<<32 | uint64(fraction)
}

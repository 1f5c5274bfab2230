// Package iqcopy copies complex sample records between record representations.
//
// Three strategies exist and are picked when a Copier is constructed, never
// per call:
//
//   - Same: source and destination are the same type, the block is copied as is.
//   - Fields: the records differ, I and Q are copied one record at a time.
//   - Bulk: the records differ but share one memory layout, the block is copied
//     as a single byte range. The caller vouches for the layout with a pair of
//     Layout values that must match exactly.
//
// Every Copier copies min(len(dst), len(src)) records and touches no memory
// when that count is zero.
package iqcopy

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrLayoutMismatch is raised by Bulk when the two layouts differ.
var ErrLayoutMismatch = errors.New("iqcopy: record layout mismatch")

// Source is a record exposing its in-phase and quadrature components.
type Source interface {
	IQ() (i, q int16)
}

// Dest constrains a pointer to a record whose components can be set.
type Dest[T any] interface {
	*T
	SetIQ(i, q int16)
}

// Copier copies records from src into dst and returns how many were copied.
type Copier[S, D any] func(dst []D, src []S) int

// Layout is the memory layout of a record: its total size and the offset and
// size of the I and Q fields.
type Layout struct {
	Size    uintptr
	IOffset uintptr
	ISize   uintptr
	QOffset uintptr
	QSize   uintptr
}

// Same returns the fast path for identical representations.
func Same[T any]() Copier[T, T] {
	return func(dst, src []T) int {
		n := min(len(dst), len(src))
		if n == 0 {
			return 0
		}
		return copy(dst[:n], src[:n])
	}
}

// Fields returns the safe path. It is correct for any pair of records that
// expose I and Q, whatever else they carry.
func Fields[S Source, D any, PD Dest[D]]() Copier[S, D] {
	return func(dst []D, src []S) int {
		n := min(len(dst), len(src))
		for k := 0; k < n; k++ {
			i, q := src[k].IQ()
			PD(&dst[k]).SetIQ(i, q)
		}
		return n
	}
}

// Bulk returns the fast path for two distinct but layout-compatible record
// types. It panics if src and dst differ, or if either does not describe the
// size of its type parameter.
func Bulk[S, D any](src, dst Layout) Copier[S, D] {
	var (
		s S
		d D
	)
	if src != dst {
		panic(fmt.Errorf("%w: %+v != %+v", ErrLayoutMismatch, src, dst))
	}
	if unsafe.Sizeof(s) != src.Size || unsafe.Sizeof(d) != dst.Size {
		panic(fmt.Errorf("%w: sizes %d/%d do not match declared %d",
			ErrLayoutMismatch, unsafe.Sizeof(s), unsafe.Sizeof(d), src.Size))
	}
	size := int(src.Size)

	return func(dst []D, src []S) int {
		n := min(len(dst), len(src))
		if n == 0 {
			return 0
		}
		from := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(src))), n*size)
		to := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(dst))), n*size)
		copy(to, from)
		return n
	}
}

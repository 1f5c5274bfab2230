package iqcopy

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairA struct{ I, Q int16 }

func (p pairA) IQ() (int16, int16) { return p.I, p.Q }
func (p *pairA) SetIQ(i, q int16)  { p.I, p.Q = i, q }

type pairB struct{ I, Q int16 }

func (p pairB) IQ() (int16, int16) { return p.I, p.Q }
func (p *pairB) SetIQ(i, q int16)  { p.I, p.Q = i, q }

// tagged carries data beyond I and Q and has a different layout.
type tagged struct {
	Seq  uint32
	Q    int16
	I    int16
	Flag bool
}

func (t tagged) IQ() (int16, int16) { return t.I, t.Q }
func (t *tagged) SetIQ(i, q int16)  { t.I, t.Q = i, q }

func layoutOf[T any](iOff, qOff uintptr) Layout {
	var zero T
	return Layout{Size: unsafe.Sizeof(zero), IOffset: iOff, ISize: 2, QOffset: qOff, QSize: 2}
}

func makePairs(n int) []pairA {
	src := make([]pairA, n)
	for k := range src {
		src[k] = pairA{I: int16(k*7 - 3000), Q: int16(-k*13 + 1234)}
	}
	return src
}

func TestCopiersAgree(t *testing.T) {
	bulk := Bulk[pairA, pairB](layoutOf[pairA](0, 2), layoutOf[pairB](0, 2))
	fields := Fields[pairA, pairB]()

	for _, n := range []int{0, 1, 17, 4096} {
		src := makePairs(n)

		fast := make([]pairB, n)
		safe := make([]pairB, n)
		require.Equal(t, n, bulk(fast, src), "n=%d", n)
		require.Equal(t, n, fields(safe, src), "n=%d", n)

		assert.Equal(t, safe, fast, "n=%d", n)
		for k := range src {
			assert.Equal(t, src[k].I, fast[k].I)
			assert.Equal(t, src[k].Q, fast[k].Q)
		}
	}
}

func TestSame(t *testing.T) {
	same := Same[pairA]()
	for _, n := range []int{0, 1, 17, 4096} {
		src := makePairs(n)
		dst := make([]pairA, n)
		assert.Equal(t, n, same(dst, src))
		assert.Equal(t, src, dst)
	}
}

func TestCopyShorterSide(t *testing.T) {
	src := makePairs(5)
	dst := make([]pairB, 3)

	n := Bulk[pairA, pairB](layoutOf[pairA](0, 2), layoutOf[pairB](0, 2))(dst, src)
	assert.Equal(t, 3, n)
	assert.Equal(t, pairB{I: src[2].I, Q: src[2].Q}, dst[2])

	n = Fields[pairA, pairB]()(make([]pairB, 5), src[:2])
	assert.Equal(t, 2, n)
}

func TestCopyZeroTouchesNothing(t *testing.T) {
	// nil slices have no backing memory; any access would fault.
	assert.Equal(t, 0, Bulk[pairA, pairB](layoutOf[pairA](0, 2), layoutOf[pairB](0, 2))(nil, nil))
	assert.Equal(t, 0, Fields[pairA, pairB]()(nil, nil))
	assert.Equal(t, 0, Same[pairA]()(nil, nil))
}

func TestFieldsPreservesOtherFields(t *testing.T) {
	src := makePairs(17)
	dst := make([]tagged, 17)
	for k := range dst {
		dst[k] = tagged{Seq: uint32(k), Flag: k%2 == 0}
	}

	require.Equal(t, 17, Fields[pairA, tagged]()(dst, src))
	for k := range dst {
		assert.Equal(t, src[k].I, dst[k].I)
		assert.Equal(t, src[k].Q, dst[k].Q)
		assert.Equal(t, uint32(k), dst[k].Seq)
		assert.Equal(t, k%2 == 0, dst[k].Flag)
	}

	back := make([]pairB, 17)
	require.Equal(t, 17, Fields[tagged, pairB]()(back, dst))
	for k := range back {
		assert.Equal(t, src[k].I, back[k].I)
		assert.Equal(t, src[k].Q, back[k].Q)
	}
}

func TestBulkRejectsMismatchedLayouts(t *testing.T) {
	assert.Panics(t, func() {
		Bulk[pairA, tagged](layoutOf[pairA](0, 2), layoutOf[tagged](6, 4))
	})
	assert.Panics(t, func() {
		// Declared layouts agree but do not describe tagged.
		Bulk[pairA, tagged](layoutOf[pairA](0, 2), layoutOf[pairA](0, 2))
	})
	assert.NotPanics(t, func() {
		Bulk[pairA, pairB](layoutOf[pairA](0, 2), layoutOf[pairB](0, 2))
	})
}

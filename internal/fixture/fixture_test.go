package fixture

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/timedemux/internal/core"
)

func encode(t *testing.T, msgs ...core.Message) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, m := range msgs {
		require.NoError(t, w.WriteMessage(m.Opcode, m.Payload))
	}
	require.NoError(t, w.Flush())
	return buf.Bytes()
}

func readAll(t *testing.T, r *Reader) []core.Message {
	t.Helper()
	var out []core.Message
	for {
		ready, err := r.Ready()
		require.NoError(t, err)
		require.True(t, ready)
		if r.EOF() {
			return out
		}
		msg := r.Message()
		out = append(out, core.Message{Opcode: msg.Opcode, Payload: append([]byte{}, msg.Payload...)})
		require.NoError(t, r.Advance())
	}
}

func TestHeaderLayout(t *testing.T) {
	data := encode(t, core.Message{Opcode: 2, Payload: []byte{1, 2, 3, 4, 5, 6, 7, 8}})
	require.Len(t, data, HeaderSize+8)
	assert.Equal(t, uint32(8), binary.NativeEndian.Uint32(data[0:4]))
	assert.Equal(t, uint32(2), binary.NativeEndian.Uint32(data[4:8]))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, data[8:])
}

func TestRoundTrip(t *testing.T) {
	msgs := []core.Message{
		{Opcode: 2, Payload: []byte{0, 0, 0, 0, 5, 0, 0, 0}},
		{Opcode: 0, Payload: []byte{1, 0, 2, 0, 3, 0, 4, 0}},
		{Opcode: 1, Payload: []byte{}},
		{Opcode: 77, Payload: []byte{9}},
		{Opcode: 0, Payload: []byte{}},
	}
	r := NewReader(bytes.NewReader(encode(t, msgs...)), 0)

	got := readAll(t, r)
	require.Len(t, got, len(msgs))
	for i := range msgs {
		assert.Equal(t, msgs[i].Opcode, got[i].Opcode, "message %d", i)
		assert.Equal(t, len(msgs[i].Payload), len(got[i].Payload), "message %d", i)
		if len(msgs[i].Payload) > 0 {
			assert.Equal(t, msgs[i].Payload, got[i].Payload, "message %d", i)
		}
	}
	assert.Equal(t, uint64(len(msgs)), r.Count())
	assert.True(t, r.EOF())
	assert.ErrorIs(t, r.Advance(), core.ErrNoMessage)
}

func TestEmptyFixture(t *testing.T) {
	r := NewReader(bytes.NewReader(nil), 0)
	ready, err := r.Ready()
	require.NoError(t, err)
	assert.True(t, ready)
	assert.True(t, r.EOF())
}

func TestTruncated(t *testing.T) {
	data := encode(t, core.Message{Opcode: 0, Payload: []byte{1, 2, 3, 4}})

	for _, cut := range []int{3, HeaderSize, HeaderSize + 2} {
		r := NewReader(bytes.NewReader(data[:cut]), 0)
		_, err := r.Ready()
		assert.ErrorIs(t, err, core.ErrTruncatedFixture, "cut=%d", cut)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "cut=%d", cut)
		assert.False(t, r.EOF())
	}
}

func TestOversizedMessage(t *testing.T) {
	data := encode(t, core.Message{Opcode: 0, Payload: make([]byte, 64)})
	r := NewReader(bytes.NewReader(data), 32)
	_, err := r.Ready()
	assert.ErrorIs(t, err, core.ErrMalformedMessage)
}

func TestReadTimestamps(t *testing.T) {
	var buf bytes.Buffer
	for _, ts := range []uint64{0x0000000500000006, 0x0000000600000007} {
		require.NoError(t, binary.Write(&buf, binary.NativeEndian, ts))
	}

	ts, err := ReadTimestamps(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []uint64{0x0000000500000006, 0x0000000600000007}, ts)

	_, err = ReadTimestamps(bytes.NewReader(buf.Bytes()[:11]))
	assert.ErrorIs(t, err, core.ErrTruncatedFixture)

	ts, err = ReadTimestamps(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, ts)
}

package port

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/timedemux/internal/core"
)

type failingSink struct {
	emitErr error
	eofErr  error
	eofs    int
}

func (s *failingSink) Emit(core.Message) error { return s.emitErr }
func (s *failingSink) EOF() error {
	s.eofs++
	return s.eofErr
}

func TestOutputPortCommit(t *testing.T) {
	sink := NewBuffered()
	out := NewOutput("data_out", NewPool(0), sink)
	out.SetDefaultOpcode(2)

	buf, err := out.Resize(4)
	require.NoError(t, err)
	copy(buf, []byte{1, 2, 3, 4})
	require.NoError(t, out.Advance())

	buf, err = out.Resize(2)
	require.NoError(t, err)
	copy(buf, []byte{9, 9})
	out.SetOpcode(0)
	require.NoError(t, out.Advance())

	// The tag applies to one message only.
	require.NoError(t, out.Advance())

	msgs := sink.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, core.Message{Opcode: 2, Payload: []byte{1, 2, 3, 4}}, msgs[0])
	assert.Equal(t, core.Message{Opcode: 0, Payload: []byte{9, 9}}, msgs[1])
	assert.Equal(t, core.Opcode(2), msgs[2].Opcode)
	assert.Empty(t, msgs[2].Payload)
	assert.Equal(t, "data_out", out.Name())
}

func TestOutputPortZeroLength(t *testing.T) {
	sink := NewBuffered()
	out := NewOutput("data_out", nil, sink)

	buf, err := out.Resize(0)
	require.NoError(t, err)
	assert.Empty(t, buf)
	require.NoError(t, out.Advance())

	msgs := sink.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, 0, msgs[0].Length())
}

func TestOutputPortEOF(t *testing.T) {
	sink := NewBuffered()
	out := NewOutput("time_out", nil, sink)

	require.NoError(t, out.SetEOF())
	assert.True(t, out.IsEOF())
	assert.Equal(t, 1, sink.EOFCount())

	assert.ErrorIs(t, out.SetEOF(), core.ErrPortEOF)
	assert.Equal(t, 1, sink.EOFCount())

	_, err := out.Resize(8)
	assert.ErrorIs(t, err, core.ErrPortEOF)
	assert.ErrorIs(t, out.Advance(), core.ErrPortEOF)
}

func TestOutputPortSinkErrors(t *testing.T) {
	boom := errors.New("boom")
	sink := &failingSink{emitErr: boom, eofErr: boom}
	out := NewOutput("data_out", nil, sink)

	_, err := out.Resize(4)
	require.NoError(t, err)
	err = out.Advance()
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "data_out")

	assert.ErrorIs(t, out.SetEOF(), boom)
	assert.True(t, out.IsEOF())
	assert.Equal(t, 1, sink.eofs)
}

func TestOutputPortBufferExhausted(t *testing.T) {
	out := NewOutput("data_out", NewPool(16), NewBuffered())

	_, err := out.Resize(17)
	assert.ErrorIs(t, err, core.ErrBufferExhausted)

	buf, err := out.Resize(16)
	require.NoError(t, err)
	assert.Len(t, buf, 16)
}

func TestPool(t *testing.T) {
	p := NewPool(1024)
	assert.Equal(t, 1024, p.Max())

	buf, err := p.Get(100)
	require.NoError(t, err)
	assert.Len(t, buf, 100)
	p.Put(buf)

	buf, err = p.Get(10)
	require.NoError(t, err)
	assert.Len(t, buf, 10)

	_, err = p.Get(1025)
	assert.ErrorIs(t, err, core.ErrBufferExhausted)
	_, err = p.Get(-1)
	assert.ErrorIs(t, err, core.ErrBufferExhausted)

	unbounded := NewPool(0)
	buf, err = unbounded.Get(1 << 20)
	require.NoError(t, err)
	assert.Len(t, buf, 1<<20)
	p.Put(nil)
}

func TestQueue(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	q := NewQueue(core.Message{Opcode: 0, Payload: payload})
	payload[0] = 99

	ready, err := q.Ready()
	require.NoError(t, err)
	assert.True(t, ready)
	assert.False(t, q.EOF())
	assert.Equal(t, []byte{1, 2, 3, 4}, q.Message().Payload)

	require.NoError(t, q.Advance())
	assert.Equal(t, 0, q.Len())

	ready, err = q.Ready()
	require.NoError(t, err)
	assert.False(t, ready)
	assert.ErrorIs(t, q.Advance(), core.ErrNoMessage)
	assert.Equal(t, core.Message{}, q.Message())

	q.Push(core.Message{Opcode: 2})
	q.Close()
	assert.False(t, q.EOF())
	require.NoError(t, q.Advance())

	ready, err = q.Ready()
	require.NoError(t, err)
	assert.True(t, ready)
	assert.True(t, q.EOF())
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	require.NoError(t, sink.Emit(core.Message{Opcode: 0, Payload: []byte{1, 2}}))
	require.NoError(t, sink.Emit(core.Message{Opcode: 2, Payload: []byte{3}}))
	require.NoError(t, sink.Emit(core.Message{Opcode: 0}))
	require.NoError(t, sink.Flush())
	assert.Equal(t, []byte{1, 2, 3}, buf.Bytes())

	require.NoError(t, sink.Emit(core.Message{Payload: []byte{4}}))
	require.NoError(t, sink.EOF())
	assert.Equal(t, []byte{1, 2, 3, 4}, buf.Bytes())
}

func TestDiscard(t *testing.T) {
	var d Discard
	assert.NoError(t, d.Emit(core.Message{Payload: []byte{1}}))
	assert.NoError(t, d.EOF())
}

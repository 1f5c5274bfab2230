package fixture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/timedemux/internal/core"
	"firestige.xyz/timedemux/internal/iqstream"
)

func rawSamples(n int) []byte {
	buf := make([]byte, n*iqstream.SampleSize)
	for k := 0; k < n; k++ {
		binary.NativeEndian.PutUint16(buf[k*4:], uint16(int16(k)))
		binary.NativeEndian.PutUint16(buf[k*4+2:], uint16(int16(-k)))
	}
	return buf
}

func TestGenerate(t *testing.T) {
	raw := rawSamples(10)
	var fix, goldTime, goldData bytes.Buffer

	stats, err := Generate(GenerateConfig{StartSecond: 5, SamplesPerSecond: 4},
		bytes.NewReader(raw), NewGenerator(&fix, &goldTime, &goldData))
	require.NoError(t, err)
	assert.Equal(t, GenerateStats{Blocks: 3, Samples: 10}, stats)

	msgs := readAll(t, NewReader(bytes.NewReader(fix.Bytes()), 0))
	require.Len(t, msgs, 7)

	wantSeconds := []uint32{5, 6, 7}
	wantBlock := []int{4, 4, 2}
	for b := 0; b < 3; b++ {
		tm := msgs[2*b]
		require.Equal(t, iqstream.OpTime, tm.Opcode)
		ts, err := iqstream.Time(tm.Payload)
		require.NoError(t, err)
		assert.Equal(t, iqstream.MakeTime(wantSeconds[b], wantSeconds[b]+1), ts)

		data := msgs[2*b+1]
		require.Equal(t, iqstream.OpIQ, data.Opcode)
		assert.Len(t, data.Payload, wantBlock[b]*iqstream.SampleSize)
	}
	last := msgs[6]
	assert.Equal(t, iqstream.OpIQ, last.Opcode)
	assert.Empty(t, last.Payload)

	assert.Equal(t, raw, goldData.Bytes())
	ts, err := ReadTimestamps(&goldTime)
	require.NoError(t, err)
	assert.Equal(t, []uint64{iqstream.MakeTime(5, 6), iqstream.MakeTime(6, 7), iqstream.MakeTime(7, 8)}, ts)
}

func TestGenerateDropsPartialSample(t *testing.T) {
	raw := append(rawSamples(2), 0xAA, 0xBB)
	var fix, goldData bytes.Buffer

	stats, err := Generate(GenerateConfig{StartSecond: 0, SamplesPerSecond: 8},
		bytes.NewReader(raw), NewGenerator(&fix, nil, &goldData))
	require.NoError(t, err)
	assert.Equal(t, GenerateStats{Blocks: 1, Samples: 2}, stats)
	assert.Equal(t, rawSamples(2), goldData.Bytes())
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestGenerateFinalShortBlockIsQuiet(t *testing.T) {
	logs := captureLogs(t)
	var fix bytes.Buffer

	stats, err := Generate(GenerateConfig{SamplesPerSecond: 4}, bytes.NewReader(rawSamples(6)), NewGenerator(&fix, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, GenerateStats{Blocks: 2, Samples: 6}, stats)
	assert.NotContains(t, logs.String(), "short block")
}

func TestGenerateReadErrorWarns(t *testing.T) {
	logs := captureLogs(t)
	broken := errors.New("disk gone")
	in := io.MultiReader(bytes.NewReader(rawSamples(2)), &failingReader{err: broken})

	_, err := Generate(GenerateConfig{SamplesPerSecond: 4}, in, NewGenerator(&bytes.Buffer{}, nil, nil))
	assert.ErrorIs(t, err, broken)
	assert.Contains(t, logs.String(), "short block")
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}

func TestGenerateEmptyInput(t *testing.T) {
	var fix bytes.Buffer
	stats, err := Generate(GenerateConfig{SamplesPerSecond: 4}, bytes.NewReader(nil), NewGenerator(&fix, nil, nil))
	require.NoError(t, err)
	assert.Zero(t, stats.Blocks)

	msgs := readAll(t, NewReader(bytes.NewReader(fix.Bytes()), 0))
	require.Len(t, msgs, 1)
	assert.Equal(t, iqstream.OpIQ, msgs[0].Opcode)
	assert.Empty(t, msgs[0].Payload)
}

func TestGenerateConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  GenerateConfig
		ok   bool
	}{
		{"valid", GenerateConfig{StartSecond: 0, SamplesPerSecond: 1}, true},
		{"max start", GenerateConfig{StartSecond: 1<<32 - 1, SamplesPerSecond: 1}, true},
		{"negative start", GenerateConfig{StartSecond: -1, SamplesPerSecond: 1}, false},
		{"start overflow", GenerateConfig{StartSecond: 1 << 32, SamplesPerSecond: 1}, false},
		{"zero samples", GenerateConfig{StartSecond: 0, SamplesPerSecond: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, core.ErrConfigInvalid)
			}
		})
	}
}

func TestGeneratorPush(t *testing.T) {
	var fix, goldTime, goldData bytes.Buffer
	g := NewGenerator(&fix, &goldTime, &goldData)

	require.NoError(t, g.PushSync())
	require.NoError(t, g.PushTimestamp(42))
	assert.ErrorIs(t, g.PushData([]byte{1, 2, 3}), core.ErrMalformedMessage)
	require.NoError(t, g.Flush())

	msgs := readAll(t, NewReader(bytes.NewReader(fix.Bytes()), 0))
	require.Len(t, msgs, 2)
	assert.Equal(t, iqstream.OpSync, msgs[0].Opcode)
	assert.Empty(t, msgs[0].Payload)
	assert.Equal(t, iqstream.OpTime, msgs[1].Opcode)
	assert.Equal(t, 8, goldTime.Len())
	assert.Zero(t, goldData.Len())
}

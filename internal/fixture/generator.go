package fixture

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"firestige.xyz/timedemux/internal/core"
	"firestige.xyz/timedemux/internal/iqstream"
)

// Generator writes an iqstream_with_sync fixture together with the two golden
// files a correct demultiplexer must reproduce: every timestamp scalar and
// every data payload, each back to back.
type Generator struct {
	fixture  *Writer
	goldTime io.Writer
	goldData io.Writer
	scratch  [iqstream.TimeSize]byte
}

// NewGenerator creates a generator. goldTime and goldData may be nil.
func NewGenerator(fixture, goldTime, goldData io.Writer) *Generator {
	if goldTime == nil {
		goldTime = io.Discard
	}
	if goldData == nil {
		goldData = io.Discard
	}
	return &Generator{
		fixture:  NewWriter(fixture),
		goldTime: goldTime,
		goldData: goldData,
	}
}

// PushTimestamp appends a time message.
func (g *Generator) PushTimestamp(t uint64) error {
	iqstream.PutTime(g.scratch[:], t)
	if err := g.fixture.WriteMessage(iqstream.OpTime, g.scratch[:]); err != nil {
		return fmt.Errorf("write time message: %w", err)
	}
	if _, err := g.goldTime.Write(g.scratch[:]); err != nil {
		return fmt.Errorf("write golden time: %w", err)
	}
	return nil
}

// PushData appends an iq message carrying data, which must be whole samples.
// An empty data is the zero-length message and is not written to the golden
// data file.
func (g *Generator) PushData(data []byte) error {
	if len(data)%iqstream.SampleSize != 0 {
		return fmt.Errorf("%w: %d bytes is not a whole number of samples", core.ErrMalformedMessage, len(data))
	}
	if err := g.fixture.WriteMessage(iqstream.OpIQ, data); err != nil {
		return fmt.Errorf("write iq message: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if _, err := g.goldData.Write(data); err != nil {
		return fmt.Errorf("write golden data: %w", err)
	}
	return nil
}

// PushSync appends a sync message with no payload.
func (g *Generator) PushSync() error {
	if err := g.fixture.WriteMessage(iqstream.OpSync, nil); err != nil {
		return fmt.Errorf("write sync message: %w", err)
	}
	return nil
}

// Flush flushes the fixture writer.
func (g *Generator) Flush() error {
	return g.fixture.Flush()
}

// GenerateConfig configures Generate.
type GenerateConfig struct {
	// StartSecond is the whole-second value of the first timestamp.
	StartSecond int64
	// SamplesPerSecond is the number of samples between timestamps.
	SamplesPerSecond int
}

// Validate checks the configuration.
func (c GenerateConfig) Validate() error {
	if c.StartSecond < 0 {
		return fmt.Errorf("%w: start second %d is negative", core.ErrConfigInvalid, c.StartSecond)
	}
	if c.StartSecond > math.MaxUint32 {
		return fmt.Errorf("%w: start second %d exceeds %d", core.ErrConfigInvalid, c.StartSecond, uint32(math.MaxUint32))
	}
	if c.SamplesPerSecond <= 0 {
		return fmt.Errorf("%w: samples per second must be positive, got %d", core.ErrConfigInvalid, c.SamplesPerSecond)
	}
	return nil
}

// GenerateStats summarizes a Generate run.
type GenerateStats struct {
	Blocks  int
	Samples int
}

// Generate reads raw 4-byte IQ samples from in and writes them as alternating
// time and iq messages, one block of SamplesPerSecond samples per second. The
// timestamp of block s is (s<<32)|(s+1). The fixture ends with a zero-length
// iq message.
func Generate(cfg GenerateConfig, in io.Reader, g *Generator) (GenerateStats, error) {
	var stats GenerateStats
	if err := cfg.Validate(); err != nil {
		return stats, err
	}

	second := uint32(cfg.StartSecond)
	block := make([]byte, cfg.SamplesPerSecond*iqstream.SampleSize)
	for {
		n, err := io.ReadFull(in, block)
		n -= n % iqstream.SampleSize
		if n > 0 {
			// The last block of a file may be short; anything else means the read failed.
			if n < len(block) && !errors.Is(err, io.ErrUnexpectedEOF) {
				slog.Warn("short block", "want_samples", cfg.SamplesPerSecond, "got_samples", n/iqstream.SampleSize, "error", err)
			}
			if err := g.PushTimestamp(iqstream.MakeTime(second, second+1)); err != nil {
				return stats, err
			}
			if err := g.PushData(block[:n]); err != nil {
				return stats, err
			}
			stats.Blocks++
			stats.Samples += n / iqstream.SampleSize

			second++
			if second == 0 {
				return stats, fmt.Errorf("%w: timestamp seconds wrapped around", core.ErrConfigInvalid)
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read samples: %w", err)
		}
	}

	if err := g.PushData(nil); err != nil {
		return stats, err
	}
	return stats, g.Flush()
}

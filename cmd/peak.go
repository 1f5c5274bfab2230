package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"firestige.xyz/timedemux/internal/core"
	"firestige.xyz/timedemux/internal/iqstream"
	"firestige.xyz/timedemux/internal/port"
	"firestige.xyz/timedemux/internal/runner"
	"firestige.xyz/timedemux/internal/worker/peakdetector"
)

var peakCmd = &cobra.Command{
	Use:   "peak <raw_iq_file>",
	Short: "Report the largest and smallest IQ component of a raw sample file",
	Long: `Feed a raw file of 16-bit I/Q sample pairs through the peak detector and
print its max_peak and min_peak properties.

Examples:
  timedemux peak samples.bin
  timedemux peak --block 4096 --output passthrough.bin samples.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		sink := port.Sink(port.Discard{})
		if peakOutput != "" {
			out, err := os.Create(peakOutput)
			if err != nil {
				return err
			}
			defer out.Close()
			sink = port.NewWriterSink(out)
		}
		return runPeak(cmd.Context(), f, sink, peakBlock, cmd.OutOrStdout())
	},
}

var (
	peakBlock  int
	peakOutput string
)

func init() {
	peakCmd.Flags().IntVarP(&peakBlock, "block", "b", 1024, "samples per message")
	peakCmd.Flags().StringVarP(&peakOutput, "output", "o", "", "write passed-through samples to this file")
}

// runPeak splits in into iq messages of block samples, runs them through the
// peak detector and prints its properties.
func runPeak(ctx context.Context, in io.Reader, sink port.Sink, block int, out io.Writer) error {
	if block <= 0 {
		return fmt.Errorf("%w: block must be positive, got %d", core.ErrConfigInvalid, block)
	}

	queue := port.NewQueue()
	buf := make([]byte, block*iqstream.SampleSize)
	for {
		n, err := io.ReadFull(in, buf)
		n -= n % iqstream.SampleSize
		if n > 0 {
			queue.Push(core.Message{Opcode: iqstream.OpIQ, Payload: buf[:n]})
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read samples: %w", err)
		}
	}
	queue.Close()

	outPort := port.NewOutput(peakdetector.PortOut, port.NewPool(len(buf)), port.Instrument(peakdetector.Name, peakdetector.PortOut, sink))
	r, err := runner.NewBuilder(peakdetector.Name).
		WithID(uuid.NewString()).
		WithInput(peakdetector.PortIn, queue).
		WithOutput(peakdetector.PortOut, outPort).
		Build()
	if err != nil {
		return err
	}
	if err := r.Run(ctx); err != nil {
		return err
	}
	return printProperties(out, r.Worker().Properties())
}

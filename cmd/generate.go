package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/timedemux/internal/fixture"
)

var generateCmd = &cobra.Command{
	Use:   "generate <fixture> [gold_time gold_data]",
	Short: "Generate a time demux fixture and its golden outputs",
	Long: `Read raw 16-bit I/Q sample pairs and write a fixture of alternating
timestamp and IQ messages, one IQ block per second, ending with a zero-length
IQ message. The golden time file holds the expected time output and the golden
data file the expected data output.

Golden file names default to the fixture path with _gold_time and _gold_data
appended, so fixture.bin yields fixture.bin_gold_time.

Examples:
  timedemux generate --input samples.bin --start 100 --samples 1024 fixture.bin`,
	Args: cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 2 {
			return fmt.Errorf("gold_time and gold_data must be given together")
		}
		timePath, dataPath := goldenPaths(args[0])
		if len(args) == 3 {
			timePath, dataPath = args[1], args[2]
		}

		in, err := os.Open(generateInput)
		if err != nil {
			return err
		}
		defer in.Close()

		return runGenerate(in, args[0], timePath, dataPath, fixture.GenerateConfig{
			StartSecond:      generateStart,
			SamplesPerSecond: generateSamples,
		}, cmd.OutOrStdout())
	},
}

var (
	generateInput   string
	generateStart   int64
	generateSamples int
)

func init() {
	generateCmd.Flags().StringVarP(&generateInput, "input", "i", "", "raw IQ sample file (required)")
	generateCmd.Flags().Int64VarP(&generateStart, "start", "s", 0, "whole seconds of the first timestamp")
	generateCmd.Flags().IntVarP(&generateSamples, "samples", "n", 1024, "samples per second")
	generateCmd.MarkFlagRequired("input")
}

// goldenPaths names the golden files after the full fixture path.
func goldenPaths(fixturePath string) (string, string) {
	return fixturePath + "_gold_time", fixturePath + "_gold_data"
}

func runGenerate(in io.Reader, fixturePath, timePath, dataPath string, cfg fixture.GenerateConfig, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	files := make([]*os.File, 0, 3)
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, p := range []string{fixturePath, timePath, dataPath} {
		f, err := os.Create(p)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	stats, err := fixture.Generate(cfg, in, fixture.NewGenerator(files[0], files[1], files[2]))
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := f.Sync(); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(out, "wrote %d blocks, %d samples to %s\n", stats.Blocks, stats.Samples, fixturePath)
	return err
}

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/timedemux/internal/fixture"
	"firestige.xyz/timedemux/internal/iqstream"
)

var timestampsCmd = &cobra.Command{
	Use:   "timestamps <time_file>",
	Short: "Print the timestamps of a time output or golden time file",
	Long: `Decode a file of back to back 64-bit timestamps and print, one per line,
the index, whole seconds, fractional part, the value in seconds and the
difference to the previous timestamp.

Examples:
  timedemux timestamps fixture_gold_time`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		return printTimestamps(f, cmd.OutOrStdout())
	},
}

func printTimestamps(in io.Reader, out io.Writer) error {
	ts, err := fixture.ReadTimestamps(in)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%-8s %-12s %-12s %-20s %s\n", "INDEX", "SECONDS", "FRACTION", "VALUE", "DELTA")
	for i, t := range ts {
		delta := 0.0
		if i > 0 {
			delta = iqstream.FloatSeconds(t) - iqstream.FloatSeconds(ts[i-1])
		}
		if _, err := fmt.Fprintf(out, "%-8d %-12d %-12d %-20.9f %.9f\n",
			i, iqstream.Seconds(t), iqstream.Fraction(t), iqstream.FloatSeconds(t), delta); err != nil {
			return err
		}
	}
	return nil
}

// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"

	// Workers register themselves with the worker registry.
	_ "firestige.xyz/timedemux/internal/worker/peakdetector"
	_ "firestige.xyz/timedemux/internal/worker/timedemux"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "timedemux",
	Short: "timedemux - time demultiplexer for SDR IQ streams",
	Long: `timedemux splits an iqstream_with_sync message stream into a plain IQ sample
stream and a timestamp stream.

Messages are read from a fixture file of (length, opcode) headers followed by
payloads. IQ messages go to the data output, timestamp messages to the time
output, sync and unknown messages are counted and dropped. End of stream is
propagated to both outputs.

Outputs can be files, Kafka topics or discarded.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults and TIMEDEMUX_* env vars when empty)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(peakCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(timestampsCmd)
	rootCmd.AddCommand(validateCmd)
}

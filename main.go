// Package main is the entry point for the timedemux SDR stream tool.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/timedemux/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

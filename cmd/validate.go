package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/timedemux/internal/config"
	"firestige.xyz/timedemux/internal/worker"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load and validate the configuration given with --config, including
environment overrides, without running a worker.

Examples:
  timedemux validate -c timedemux.yml
  timedemux validate -c timedemux.yml --print`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(configFile, validatePrint, cmd.OutOrStdout())
	},
}

var validatePrint bool

func init() {
	validateCmd.Flags().BoolVarP(&validatePrint, "print", "p", false,
		"print the effective configuration as YAML")
}

func runValidate(path string, printConfig bool, out io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("INVALID: %w", err)
	}

	spec, err := worker.Lookup(cfg.Worker.Name)
	if err != nil {
		return fmt.Errorf("INVALID: %w", err)
	}

	fmt.Fprintf(out, "VALID: worker %q, %d input(s), %d output(s), data=%s time=%s\n",
		spec.Name, len(spec.Inputs), len(spec.Outputs), cfg.Outputs.Data.Type, cfg.Outputs.Time.Type)

	if !printConfig {
		return nil
	}
	data, err := yaml.Marshal(map[string]*config.GlobalConfig{"timedemux": cfg})
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	_, err = out.Write(data)
	return err
}

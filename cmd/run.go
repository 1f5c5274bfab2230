package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"firestige.xyz/timedemux/internal/config"
	"firestige.xyz/timedemux/internal/core"
	"firestige.xyz/timedemux/internal/fixture"
	"firestige.xyz/timedemux/internal/log"
	"firestige.xyz/timedemux/internal/metrics"
	"firestige.xyz/timedemux/internal/port"
	"firestige.xyz/timedemux/internal/runner"
	"firestige.xyz/timedemux/internal/worker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured worker over a fixture",
	Long: `Run the configured worker over the input fixture until end of stream.

The worker's first output is bound to outputs.data and its second, if any,
to outputs.time. Final worker properties are printed on completion.

Examples:
  timedemux run -c timedemux.yml
  TIMEDEMUX_INPUT_PATH=capture.bin timedemux run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if err := log.Init(cfg.Log); err != nil {
			return err
		}
		defer log.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runWorker(ctx, cfg, cmd.OutOrStdout())
	},
}

// runWorker hosts the configured worker and, if enabled, the metrics server
// until the worker is done.
func runWorker(ctx context.Context, cfg *config.GlobalConfig, out io.Writer) (err error) {
	runID := uuid.NewString()
	slog.Info("starting run", "run_id", runID, "worker", cfg.Worker.Name, "input", cfg.Input.Path)

	spec, err := worker.Lookup(cfg.Worker.Name)
	if err != nil {
		return err
	}

	in, inCloser, err := openInput(cfg)
	if err != nil {
		return err
	}
	defer inCloser.Close()

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			if cerr := c.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}
	}()

	pool := port.NewPool(cfg.Buffer.MaxMessageBytes)
	poll, err := cfg.PollInterval()
	if err != nil {
		return err
	}
	b := runner.NewBuilder(spec.Name).
		WithID(runID).
		WithInput(spec.Inputs[0], in).
		WithProperties(cfg.WorkerProperties()).
		WithPollInterval(poll)

	outputs := []config.OutputConfig{cfg.Outputs.Data, cfg.Outputs.Time}
	for i, name := range spec.Outputs {
		if i >= len(outputs) {
			return fmt.Errorf("worker %s has more outputs than can be configured", spec.Name)
		}
		sink, closer, err := openSink(cfg, outputs[i])
		if err != nil {
			return fmt.Errorf("output %s: %w", name, err)
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		b.WithOutput(name, port.NewOutput(name, pool, port.Instrument(spec.Name, name, sink)))
	}

	r, err := b.Build()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		g.Go(func() error {
			return srv.Serve(gctx)
		})
	}
	g.Go(func() error {
		defer cancel()
		return r.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	stats := r.Stats()
	slog.Info("run finished", "run_id", runID, "runs", stats.Runs, "done", stats.Done)
	return printProperties(out, r.Worker().Properties())
}

// openInput creates the configured input port and the closer releasing it.
func openInput(cfg *config.GlobalConfig) (port.Input, io.Closer, error) {
	switch cfg.Input.Type {
	case config.PortKafka:
		src, err := port.NewKafkaSource(port.KafkaSourceConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Input.Topic,
			GroupID:     cfg.Input.GroupID,
			StartOffset: cfg.Input.StartOffset,
			MaxBytes:    cfg.Buffer.MaxMessageBytes,
		})
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil
	case config.PortFile, "":
		if cfg.Input.Path == "" || cfg.Input.Path == "-" {
			return fixture.NewReader(os.Stdin, cfg.Buffer.MaxMessageBytes), io.NopCloser(os.Stdin), nil
		}
		f, err := os.Open(cfg.Input.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open input: %w", err)
		}
		return fixture.NewReader(f, cfg.Buffer.MaxMessageBytes), f, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", core.ErrUnknownPortType, cfg.Input.Type)
	}
}

// openSink creates the sink for one configured output. The returned closer,
// if any, must be closed after the worker is released.
func openSink(cfg *config.GlobalConfig, oc config.OutputConfig) (port.Sink, io.Closer, error) {
	switch oc.Type {
	case config.PortFile:
		f, err := os.Create(oc.Path)
		if err != nil {
			return nil, nil, err
		}
		return port.NewWriterSink(f), f, nil
	case config.PortKafka:
		timeout, err := cfg.KafkaBatchTimeout()
		if err != nil {
			return nil, nil, err
		}
		sink, err := port.NewKafkaSink(port.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        oc.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: timeout,
			Compression:  cfg.Kafka.Compression,
		})
		if err != nil {
			return nil, nil, err
		}
		return sink, sink, nil
	case config.PortDiscard, "":
		return port.Discard{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", core.ErrUnknownPortType, oc.Type)
	}
}

func printProperties(out io.Writer, props worker.Properties) error {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(out, "%s=%v\n", k, props[k]); err != nil {
			return err
		}
	}
	return nil
}

// Package runner hosts a single worker: it binds the worker lifecycle to its
// input and drives Run once per available message until the worker is done.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"firestige.xyz/timedemux/internal/core"
	"firestige.xyz/timedemux/internal/metrics"
	"firestige.xyz/timedemux/internal/port"
	"firestige.xyz/timedemux/internal/worker"
)

const defaultPollInterval = 10 * time.Millisecond

// Runner drives one worker. Only one Run call is ever in flight.
type Runner struct {
	id           string
	worker       worker.Worker
	input        port.Input
	props        map[string]any
	pollInterval time.Duration
	stats        *Stats
}

// Config contains runner configuration.
type Config struct {
	ID           string         // Run identifier, used in logs
	Worker       worker.Worker  // Worker to drive
	Input        port.Input     // Input polled for readiness; the worker reads it itself
	Properties   map[string]any // Initial properties passed to Init
	PollInterval time.Duration  // Wait between readiness polls when input is idle
}

// New creates a new runner.
func New(cfg Config) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Runner{
		id:           cfg.ID,
		worker:       cfg.Worker,
		input:        cfg.Input,
		props:        cfg.Properties,
		pollInterval: cfg.PollInterval,
		stats:        &Stats{},
	}
}

// Run initializes and starts the worker, then calls Run for every available
// input message until the worker reports done, an error occurs or ctx is
// cancelled. The worker is always released once started.
func (r *Runner) Run(ctx context.Context) (err error) {
	name := r.worker.Name()
	log := slog.With("run_id", r.id, "worker", name)

	if err := r.worker.Init(r.props); err != nil {
		return fmt.Errorf("init %s: %w", name, err)
	}
	if err := r.worker.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	log.Info("worker started")

	defer func() {
		if rerr := r.worker.Release(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("release %s: %w", name, rerr))
		}
		r.exportProperties(name)
		log.Info("worker stopped", "runs", r.stats.Runs.Load(), "idle_polls", r.stats.IdlePolls.Load())
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ready, err := r.input.Ready()
		if err != nil {
			r.stats.InputErrors.Add(1)
			return fmt.Errorf("input of %s: %w", name, err)
		}
		if !ready {
			r.stats.IdlePolls.Add(1)
			if err := r.wait(ctx); err != nil {
				return err
			}
			continue
		}

		start := time.Now()
		res, err := r.worker.Run()
		metrics.WorkerRunLatencySeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())
		metrics.WorkerRunsTotal.WithLabelValues(name, res.String()).Inc()
		r.stats.Runs.Add(1)
		r.exportProperties(name)

		if err != nil {
			r.stats.RunErrors.Add(1)
			metrics.WorkerRunErrorsTotal.WithLabelValues(name).Inc()
			return fmt.Errorf("run %s: %w", name, err)
		}
		if res == core.ResultDone {
			r.stats.Done.Store(true)
			log.Info("worker done", "properties", r.worker.Properties())
			return nil
		}
	}
}

func (r *Runner) wait(ctx context.Context) error {
	timer := time.NewTimer(r.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// exportProperties mirrors numeric worker properties into the property gauge.
func (r *Runner) exportProperties(name string) {
	for key, value := range r.worker.Properties() {
		if f, ok := toFloat(value); ok {
			metrics.WorkerProperty.WithLabelValues(name, key).Set(f)
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// Worker returns the hosted worker.
func (r *Runner) Worker() worker.Worker {
	return r.worker
}

// Stats returns runner statistics.
func (r *Runner) Stats() StatsSnapshot {
	return r.stats.Snapshot()
}

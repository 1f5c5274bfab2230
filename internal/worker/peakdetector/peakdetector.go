// Package peakdetector implements a pass-through worker that tracks the
// largest and smallest component value seen on an iqstream.
package peakdetector

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"firestige.xyz/timedemux/internal/core"
	"firestige.xyz/timedemux/internal/iqstream"
	"firestige.xyz/timedemux/internal/port"
	"firestige.xyz/timedemux/internal/worker"
)

// Name is the registered worker name.
const Name = "peak_detector"

const (
	PortIn  = "in"
	PortOut = "out"

	PropMaxPeak = "max_peak"
	PropMinPeak = "min_peak"
)

func init() {
	worker.Register(worker.Spec{
		Name:    Name,
		Inputs:  []string{PortIn},
		Outputs: []string{PortOut},
		New: func(p worker.Ports) (worker.Worker, error) {
			in, err := p.Input(PortIn)
			if err != nil {
				return nil, err
			}
			out, err := p.Output(PortOut)
			if err != nil {
				return nil, err
			}
			return New(in, out), nil
		},
	})
}

// Worker is the peak detector. A zero-length message ends the stream: it is
// forwarded, then end of stream is signalled downstream.
type Worker struct {
	in  port.Input
	out port.Output

	maxPeak, minPeak int16
	maxProp, minProp atomic.Int32

	started bool
	done    bool
}

// New creates a worker bound to its ports.
func New(in port.Input, out port.Output) *Worker {
	return &Worker{in: in, out: out}
}

// Name implements worker.Worker.
func (w *Worker) Name() string { return Name }

// Init implements worker.Worker. The peak detector takes no properties.
func (w *Worker) Init(props map[string]any) error {
	var none struct{}
	return worker.DecodeProperties(props, &none)
}

// Start implements worker.Worker.
func (w *Worker) Start() error {
	w.maxPeak = math.MinInt16
	w.minPeak = math.MaxInt16
	w.publish()
	w.started = true
	return nil
}

// Run implements worker.Worker.
func (w *Worker) Run() (core.Result, error) {
	if w.done {
		return core.ResultDone, core.ErrWorkerDone
	}
	if !w.started {
		return core.ResultOK, core.ErrWorkerNotStarted
	}
	if w.in.EOF() {
		return w.finish()
	}

	msg := w.in.Message()
	buf, err := w.out.Resize(len(iqstream.Whole(msg.Payload)))
	if err != nil {
		return core.ResultOK, err
	}
	out, err := iqstream.Samples(buf)
	if err != nil {
		return core.ResultOK, err
	}
	iqstream.CopyPayload(iqstream.CopySample, out, msg.Payload)

	for _, s := range out {
		w.maxPeak = max(w.maxPeak, s.I, s.Q)
		w.minPeak = min(w.minPeak, s.I, s.Q)
	}
	w.publish()

	w.out.SetOpcode(msg.Opcode)
	if err := w.out.Advance(); err != nil {
		return core.ResultOK, err
	}
	if err := w.in.Advance(); err != nil {
		return core.ResultOK, fmt.Errorf("advance %s: %w", PortIn, err)
	}

	if msg.Length() == 0 {
		return w.finish()
	}
	return core.ResultOK, nil
}

func (w *Worker) finish() (core.Result, error) {
	w.done = true
	if err := w.out.SetEOF(); err != nil {
		return core.ResultDone, fmt.Errorf("propagate end of stream: %w", err)
	}
	return core.ResultDone, nil
}

func (w *Worker) publish() {
	w.maxProp.Store(int32(w.maxPeak))
	w.minProp.Store(int32(w.minPeak))
}

// Release implements worker.Worker.
func (w *Worker) Release() error {
	slog.Info("peak detector released", "max_peak", w.MaxPeak(), "min_peak", w.MinPeak())
	return nil
}

// MaxPeak is the largest I or Q value seen.
func (w *Worker) MaxPeak() int16 { return int16(w.maxProp.Load()) }

// MinPeak is the smallest I or Q value seen.
func (w *Worker) MinPeak() int16 { return int16(w.minProp.Load()) }

// Properties implements worker.Worker.
func (w *Worker) Properties() worker.Properties {
	return worker.Properties{
		PropMaxPeak: w.MaxPeak(),
		PropMinPeak: w.MinPeak(),
	}
}

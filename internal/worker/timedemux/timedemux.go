// Package timedemux implements the time demultiplexer worker.
//
// The worker reads an iqstream_with_sync stream on mux_in and splits it:
//
//	mux_in ──┬── iq   ──> data_out  (iqstream, opcode iq)
//	         ├── time ──> time_out  (64-bit timestamps, opcode time)
//	         └── sync and unknown opcodes are counted and dropped
//
// Payload framing is the transport's concern: an iq payload is cut to its
// whole samples and a timestamp that is not 8 bytes is dropped like a sync
// message. Every message is consumed.
//
// Each Run handles exactly one input message and writes to at most one of the
// two outputs, so the two outputs advance independently. End of stream on the
// input is propagated to both outputs, after which the worker is done and
// rejects further Run calls with core.ErrWorkerDone.
package timedemux

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"firestige.xyz/timedemux/internal/core"
	"firestige.xyz/timedemux/internal/iqcopy"
	"firestige.xyz/timedemux/internal/iqstream"
	"firestige.xyz/timedemux/internal/port"
	"firestige.xyz/timedemux/internal/worker"
)

// Name is the registered worker name.
const Name = "time_demux"

// Port names.
const (
	PortIn   = "mux_in"
	PortData = "data_out"
	PortTime = "time_out"
)

// Property names.
const (
	PropMessagesRead  = "messages_read"
	PropBytesRead     = "bytes_read"
	PropCurrentSecond = "current_second"

	// PropCopyStrategy is the Init property selecting the copy engine path.
	PropCopyStrategy = "copy_strategy"
)

func init() {
	worker.Register(worker.Spec{
		Name:    Name,
		Inputs:  []string{PortIn},
		Outputs: []string{PortData, PortTime},
		New: func(p worker.Ports) (worker.Worker, error) {
			in, err := p.Input(PortIn)
			if err != nil {
				return nil, err
			}
			data, err := p.Output(PortData)
			if err != nil {
				return nil, err
			}
			ts, err := p.Output(PortTime)
			if err != nil {
				return nil, err
			}
			return New(in, data, ts), nil
		},
	})
}

// Config holds the initial properties accepted by Init.
type Config struct {
	CopyStrategy string `mapstructure:"copy_strategy"`
}

// Worker is the time demultiplexer.
type Worker struct {
	in   port.Input
	data port.Output
	time port.Output

	copyIQ iqcopy.Copier[iqstream.SyncSample, iqstream.Sample]

	messagesRead  atomic.Uint64
	bytesRead     atomic.Uint64
	currentSecond atomic.Uint32

	started bool
	done    bool
}

// New creates a worker bound to its three ports, copying with the pinned
// fast path until Init says otherwise.
func New(in port.Input, data, time port.Output) *Worker {
	return &Worker{
		in:     in,
		data:   data,
		time:   time,
		copyIQ: iqstream.CopySyncToSample,
	}
}

// Name implements worker.Worker.
func (w *Worker) Name() string {
	return Name
}

// Init implements worker.Worker.
func (w *Worker) Init(props map[string]any) error {
	var cfg Config
	if err := worker.DecodeProperties(props, &cfg); err != nil {
		return err
	}
	copier, err := iqstream.SyncToSampleCopier(cfg.CopyStrategy)
	if err != nil {
		return err
	}
	w.copyIQ = copier
	slog.Debug("time demux initialized", "copy_strategy", cfg.CopyStrategy)
	return nil
}

// Start implements worker.Worker. The time output only ever carries
// timestamps, so its opcode is fixed here once instead of per message.
func (w *Worker) Start() error {
	w.time.SetDefaultOpcode(iqstream.OpTime)
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
		w.done = true
		err := errors.Join(w.data.SetEOF(), w.time.SetEOF())
		if err != nil {
			return core.ResultDone, fmt.Errorf("propagate end of stream: %w", err)
		}
		slog.Debug("time demux reached end of stream",
			"messages_read", w.messagesRead.Load(),
			"bytes_read", w.bytesRead.Load())
		return core.ResultDone, nil
	}

	msg := w.in.Message()
	var err error
	switch msg.Opcode {
	case iqstream.OpIQ:
		err = w.forwardData(msg)
	case iqstream.OpTime:
		err = w.forwardTime(msg)
	default: // sync and anything unknown
		w.count(0)
		slog.Debug("time demux dropped message", "opcode", iqstream.OpcodeName(msg.Opcode))
	}
	if err != nil {
		return core.ResultOK, err
	}

	if err := w.in.Advance(); err != nil {
		return core.ResultOK, fmt.Errorf("advance %s: %w", PortIn, err)
	}
	// Only one output moved, so this is never a combined advance of all ports.
	return core.ResultOK, nil
}

func (w *Worker) forwardData(msg core.Message) error {
	records := len(msg.Payload) / iqstream.SampleSize
	if len(msg.Payload)%iqstream.SampleSize != 0 {
		slog.Warn("time demux dropped partial sample",
			"message", w.messagesRead.Load(), "bytes", len(msg.Payload))
	}

	buf, err := w.data.Resize(records * iqstream.SampleSize)
	if err != nil {
		return err
	}
	out, err := iqstream.Samples(buf)
	if err != nil {
		return err
	}
	iqstream.CopyPayload(w.copyIQ, out, msg.Payload)

	w.data.SetOpcode(iqstream.OpIQ)
	if err := w.data.Advance(); err != nil {
		return err
	}
	w.count(msg.Length())
	slog.Debug("time demux forwarded samples", "samples", records)
	return nil
}

// forwardTime writes the timestamp to the time output. A payload that is not
// a single scalar is counted like a sync message and not forwarded.
func (w *Worker) forwardTime(msg core.Message) error {
	t, err := iqstream.Time(msg.Payload)
	if err != nil {
		slog.Warn("time demux dropped timestamp", "message", w.messagesRead.Load(), "error", err)
		w.count(0)
		return nil
	}

	buf, err := w.time.Resize(iqstream.TimeSize)
	if err != nil {
		return err
	}
	iqstream.PutTime(buf, t)
	if err := w.time.Advance(); err != nil {
		return err
	}
	w.count(iqstream.TimeSize)
	w.currentSecond.Store(iqstream.Seconds(t))
	slog.Debug("time demux forwarded timestamp", "second", iqstream.Seconds(t))
	return nil
}

func (w *Worker) count(bytes int) {
	w.messagesRead.Add(1)
	w.bytesRead.Add(uint64(bytes))
}

// Release implements worker.Worker.
func (w *Worker) Release() error {
	slog.Info("time demux released",
		"messages_read", w.messagesRead.Load(),
		"bytes_read", w.bytesRead.Load(),
		"current_second", w.currentSecond.Load(),
		"done", w.done)
	return nil
}

// Done reports whether the worker reached its terminal state.
func (w *Worker) Done() bool {
	return w.done
}

// MessagesRead is the number of input messages handled.
func (w *Worker) MessagesRead() uint64 {
	return w.messagesRead.Load()
}

// BytesRead is the payload bytes charged for handled messages.
func (w *Worker) BytesRead() uint64 {
	return w.bytesRead.Load()
}

// CurrentSecond is the upper 32 bits of the latest timestamp.
func (w *Worker) CurrentSecond() uint32 {
	return w.currentSecond.Load()
}

// Properties implements worker.Worker.
func (w *Worker) Properties() worker.Properties {
	return worker.Properties{
		PropMessagesRead:  w.messagesRead.Load(),
		PropBytesRead:     w.bytesRead.Load(),
		PropCurrentSecond: w.currentSecond.Load(),
	}
}

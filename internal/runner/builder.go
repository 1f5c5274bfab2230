package runner

import (
	"fmt"
	"time"

	"firestige.xyz/timedemux/internal/port"
	"firestige.xyz/timedemux/internal/worker"
)

// Builder assembles a runner around a registered worker by name.
type Builder struct {
	config  Config
	name    string
	inputs  map[string]port.Input
	outputs map[string]port.Output
}

// NewBuilder creates a new runner builder for the worker registered as name.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:    name,
		inputs:  make(map[string]port.Input),
		outputs: make(map[string]port.Output),
	}
}

// WithID sets the run identifier.
func (b *Builder) WithID(id string) *Builder {
	b.config.ID = id
	return b
}

// WithInput binds an input port.
func (b *Builder) WithInput(name string, in port.Input) *Builder {
	b.inputs[name] = in
	return b
}

// WithOutput binds an output port.
func (b *Builder) WithOutput(name string, out port.Output) *Builder {
	b.outputs[name] = out
	return b
}

// WithProperties sets the initial worker properties.
func (b *Builder) WithProperties(props map[string]any) *Builder {
	b.config.Properties = props
	return b
}

// WithPollInterval sets the idle poll interval.
func (b *Builder) WithPollInterval(d time.Duration) *Builder {
	b.config.PollInterval = d
	return b
}

// Build looks up the worker, checks that exactly its declared ports are bound
// and creates the runner.
func (b *Builder) Build() (*Runner, error) {
	spec, err := worker.Lookup(b.name)
	if err != nil {
		return nil, err
	}
	if len(spec.Inputs) != 1 {
		return nil, fmt.Errorf("worker %s has %d inputs, runner hosts exactly one", spec.Name, len(spec.Inputs))
	}
	for name := range b.inputs {
		if !contains(spec.Inputs, name) {
			return nil, fmt.Errorf("worker %s has no input port %q", spec.Name, name)
		}
	}
	for name := range b.outputs {
		if !contains(spec.Outputs, name) {
			return nil, fmt.Errorf("worker %s has no output port %q", spec.Name, name)
		}
	}

	w, err := spec.New(worker.Ports{Inputs: b.inputs, Outputs: b.outputs})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", spec.Name, err)
	}

	cfg := b.config
	cfg.Worker = w
	cfg.Input = b.inputs[spec.Inputs[0]]
	return New(cfg), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

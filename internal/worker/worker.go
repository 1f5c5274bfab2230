// Package worker defines the lifecycle contract shared by all workers and the
// registry the host uses to build them by name.
//
// A host drives a worker as follows:
//
//	Init(properties) -> Start() -> Run() ... Run() == ResultDone -> Release()
//
// Run is called once per available input message, never concurrently with
// itself. Properties may be read from any goroutine at any time.
package worker

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/timedemux/internal/core"
	"firestige.xyz/timedemux/internal/port"
)

// Worker is a single processing component.
type Worker interface {
	Name() string
	// Init applies initial property values before Start.
	Init(props map[string]any) error
	Start() error
	Run() (core.Result, error)
	Release() error
	Properties() Properties
}

// Properties is a snapshot of a worker's externally visible properties.
type Properties map[string]any

// Ports are the bound ports of a worker, keyed by port name.
type Ports struct {
	Inputs  map[string]port.Input
	Outputs map[string]port.Output
}

// Input returns the named input or an error if it is not bound.
func (p Ports) Input(name string) (port.Input, error) {
	in, ok := p.Inputs[name]
	if !ok || in == nil {
		return nil, fmt.Errorf("%w: input port %q not bound", core.ErrConfigInvalid, name)
	}
	return in, nil
}

// Output returns the named output or an error if it is not bound.
func (p Ports) Output(name string) (port.Output, error) {
	out, ok := p.Outputs[name]
	if !ok || out == nil {
		return nil, fmt.Errorf("%w: output port %q not bound", core.ErrConfigInvalid, name)
	}
	return out, nil
}

// Spec describes a registered worker: its constructor and port names.
type Spec struct {
	Name    string
	Inputs  []string
	Outputs []string
	New     func(Ports) (Worker, error)
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Spec)
)

// Register adds a worker spec. It panics on a duplicate name, as registration
// happens from package init.
func Register(spec Spec) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[spec.Name]; exists {
		panic(fmt.Sprintf("worker %q already registered", spec.Name))
	}
	registry[spec.Name] = spec
}

// Lookup returns the spec registered under name.
func Lookup(name string) (Spec, error) {
	mu.RLock()
	defer mu.RUnlock()
	spec, ok := registry[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", core.ErrUnknownWorker, name)
	}
	return spec, nil
}

// Names lists registered workers in order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeProperties decodes a property map into out, a pointer to a struct
// with mapstructure tags. Unknown keys are rejected.
func DecodeProperties(props map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(props); err != nil {
		return fmt.Errorf("%w: properties: %w", core.ErrConfigInvalid, err)
	}
	return nil
}

// Package core defines core types with zero external dependencies.
package core

import "fmt"

// Opcode is the small integer tag carried by every message on a port.
// The meaning of each value is fixed by the protocol of the port.
type Opcode uint32

// Message is one unit read from an input port. Payload is only valid until
// the port is advanced.
type Message struct {
	Opcode  Opcode
	Payload []byte
}

// Length returns the payload size in bytes.
func (m Message) Length() int {
	return len(m.Payload)
}

// Result is what a worker reports back to its host after one Run call.
type Result int

const (
	// ResultOK means the call completed and more input may follow.
	ResultOK Result = iota
	// ResultDone means the worker reached its terminal state.
	ResultDone
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultDone:
		return "done"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

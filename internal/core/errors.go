// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors shared by workers, ports and the runner.
var (
	// Worker lifecycle errors
	ErrWorkerNotStarted = errors.New("timedemux: worker not started")
	ErrWorkerDone       = errors.New("timedemux: worker already done")

	// Message errors
	ErrMalformedMessage = errors.New("timedemux: malformed message")
	ErrTruncatedFixture = errors.New("timedemux: truncated fixture")

	// Port errors
	ErrPortEOF         = errors.New("timedemux: port at end of stream")
	ErrBufferExhausted = errors.New("timedemux: output buffer exhausted")
	ErrNoMessage       = errors.New("timedemux: no message available")

	// Configuration errors
	ErrConfigInvalid   = errors.New("timedemux: invalid configuration")
	ErrUnknownWorker   = errors.New("timedemux: unknown worker")
	ErrUnknownPortType = errors.New("timedemux: unknown port type")
)

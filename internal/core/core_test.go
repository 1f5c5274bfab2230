package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMessageLength(t *testing.T) {
	if got := (Message{}).Length(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := (Message{Opcode: 2, Payload: make([]byte, 8)}).Length(); got != 8 {
		t.Errorf("expected 8, got %d", got)
	}
}

func TestResultString(t *testing.T) {
	tests := []struct {
		r    Result
		want string
	}{
		{ResultOK, "ok"},
		{ResultDone, "done"},
		{Result(7), "result(7)"},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("Result(%d).String() = %q, want %q", int(tt.r), got, tt.want)
		}
	}
}

func TestSentinelErrorsWrap(t *testing.T) {
	sentinels := []error{
		ErrWorkerNotStarted, ErrWorkerDone, ErrMalformedMessage, ErrTruncatedFixture,
		ErrPortEOF, ErrBufferExhausted, ErrNoMessage,
		ErrConfigInvalid, ErrUnknownWorker, ErrUnknownPortType,
	}
	for i, err := range sentinels {
		wrapped := fmt.Errorf("data_out: %w", err)
		if !errors.Is(wrapped, err) {
			t.Errorf("wrapped %v does not match its sentinel", err)
		}
		for j, other := range sentinels {
			if i != j && errors.Is(err, other) {
				t.Errorf("%v unexpectedly matches %v", err, other)
			}
		}
	}
}

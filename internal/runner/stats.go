package runner

import "sync/atomic"

// Stats contains per-runner counters.
type Stats struct {
	Runs        atomic.Uint64
	RunErrors   atomic.Uint64
	IdlePolls   atomic.Uint64
	InputErrors atomic.Uint64
	Done        atomic.Bool
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Runs        uint64
	RunErrors   uint64
	IdlePolls   uint64
	InputErrors uint64
	Done        bool
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Runs:        s.Runs.Load(),
		RunErrors:   s.RunErrors.Load(),
		IdlePolls:   s.IdlePolls.Load(),
		InputErrors: s.InputErrors.Load(),
		Done:        s.Done.Load(),
	}
}

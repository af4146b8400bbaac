package stream

import "sync/atomic"

// counters are written only by the acquisition goroutine and read from
// any goroutine, so plain atomic loads are enough on the reader side.
type counters struct {
	completed   atomic.Uint64
	failures    atomic.Uint64
	underruns   atomic.Uint64
	transferred atomic.Uint64
}

// Statistics is a point-in-time snapshot of the session counters. They
// reset only when the session is recreated.
type Statistics struct {
	Completed   uint64 `json:"completed"`
	Failures    uint64 `json:"failures"`
	Underruns   uint64 `json:"underruns"`
	Transferred uint64 `json:"transferred"`
}

func (c *counters) snapshot() Statistics {
	return Statistics{
		Completed:   c.completed.Load(),
		Failures:    c.failures.Load(),
		Underruns:   c.underruns.Load(),
		Transferred: c.transferred.Load(),
	}
}

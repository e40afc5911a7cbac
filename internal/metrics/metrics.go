package metrics

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	value atomic.Uint64
}

func (c *Counter) Inc() {
	c.value.Add(1)
}

func (c *Counter) Add(n uint64) {
	c.value.Add(n)
}

func (c *Counter) Load() uint64 {
	return c.value.Load()
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Checkout counts checkout outcomes. The zero value is ready to use.
type Checkout struct {
	attempts  Counter
	committed Counter
	rejected  Counter
	busy      Counter
	failed    Counter

	commitNanos Counter
}

func (c *Checkout) Attempt() { c.attempts.Inc() }

// Rejected records an attempt refused for bad input or an empty cart.
func (c *Checkout) Rejected() { c.rejected.Inc() }

// Busy records an attempt refused because the session already had one running.
func (c *Checkout) Busy() { c.busy.Inc() }

func (c *Checkout) Failed() { c.failed.Inc() }

// Committed records a placed order and how long the attempt took.
func (c *Checkout) Committed(took time.Duration) {
	c.committed.Inc()
	if took > 0 {
		c.commitNanos.Add(uint64(took))
	}
}

type CheckoutSnapshot struct {
	Attempts        uint64  `json:"attempts"`
	Committed       uint64  `json:"committed"`
	Rejected        uint64  `json:"rejected"`
	Busy            uint64  `json:"busy"`
	Failed          uint64  `json:"failed"`
	AvgCommitMillis float64 `json:"avgCommitMillis"`
}

func (c *Checkout) Snapshot() CheckoutSnapshot {
	s := CheckoutSnapshot{
		Attempts:  c.attempts.Load(),
		Committed: c.committed.Load(),
		Rejected:  c.rejected.Load(),
		Busy:      c.busy.Load(),
		Failed:    c.failed.Load(),
	}
	if s.Committed > 0 {
		avg := time.Duration(c.commitNanos.Load() / s.Committed)
		s.AvgCommitMillis = float64(avg) / float64(time.Millisecond)
	}
	return s
}

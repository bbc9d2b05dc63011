// Package retry implements the bounded retry-counter state machine shared by
// the peer link (reconnection) and the backend uplink (delivery). Each owner
// holds its own Controller; instances are never shared.
package retry

import (
	"sync"
	"time"
)

// Unlimited disables the attempt limit.
const Unlimited = -1

// Defaults used by both links unless overridden in configuration.
const (
	DefaultLimit = 8
	DefaultDelay = 500 * time.Millisecond
)

// Decision is the Controller's verdict after a failure.
type Decision int

const (
	// Abort: the attempt budget is spent; stop retrying this sequence.
	Abort Decision = iota
	// Retry: schedule another attempt after the owner's delay.
	Retry
)

func (d Decision) String() string {
	if d == Retry {
		return "retry"
	}
	return "abort"
}

// Controller counts consecutive failures against a limit. A limit of
// Unlimited never aborts; a limit of 0 aborts on the very first failure.
//
// The Controller only reports decisions; waiting out the inter-attempt delay
// is the owner's scheduling concern.
type Controller struct {
	mu       sync.Mutex
	limit    int
	attempts int
	aborted  bool
}

// NewController returns a Controller in the Idle state.
func NewController(limit int) *Controller {
	return &Controller{limit: limit}
}

// Failure records a failed attempt and reports whether the owner should
// retry. Once the limit is hit the Controller stays Aborted, with attempts
// pinned at the limit, until the next Success.
func (c *Controller) Failure() Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit == Unlimited || c.attempts < c.limit {
		c.attempts++
		return Retry
	}
	c.aborted = true
	return Abort
}

// Success resets the Controller to Idle. A success always forgives prior
// failures, including an earlier Abort.
func (c *Controller) Success() {
	c.mu.Lock()
	c.attempts = 0
	c.aborted = false
	c.mu.Unlock()
}

// Attempts returns the number of failures recorded since the last Success.
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Aborted reports whether the Controller hit its limit without an intervening
// Success.
func (c *Controller) Aborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

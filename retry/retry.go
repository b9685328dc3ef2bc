// Package retry produces capped, jittered exponential backoff delays
// with a bounded attempt budget.
package retry

import (
	"errors"
	"math/rand"
	"time"
)

var (
	ErrInvalidParam = errors.New("invalid parameters")
	// ErrExhausted is returned once the attempt budget is spent.
	ErrExhausted = errors.New("retry attempts exhausted")
)

// Param configures a retry loop. A zero MaxAttempts means unbounded. A
// zero MaxJitter disables jitter.
type Param struct {
	MaxAttempts uint16
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	MaxJitter   time.Duration
}

// Retry tracks attempt accounting for one retry loop. Create with New
// or Init; the zero value is not usable.
type Retry struct {
	param    Param
	attempts uint16
	prev     time.Duration

	rand  func() uint32
	sleep func(time.Duration)
}

// Init prepares caller-owned storage. MinBackoff greater than
// MaxBackoff raises MaxBackoff to match.
func Init(r *Retry, param Param) error {
	if r == nil {
		return ErrInvalidParam
	}
	if param.MinBackoff < 0 || param.MaxBackoff < 0 || param.MaxJitter < 0 {
		return ErrInvalidParam
	}
	if param.MinBackoff > param.MaxBackoff {
		param.MaxBackoff = param.MinBackoff
	}
	if param.MaxJitter > param.MaxBackoff {
		return ErrInvalidParam
	}
	*r = Retry{
		param: param,
		rand:  rand.Uint32,
		sleep: time.Sleep,
	}
	return nil
}

// New allocates and initialises a Retry.
func New(param Param) (*Retry, error) {
	r := &Retry{}
	if err := Init(r, param); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Retry) jitter() time.Duration {
	maxMs := r.param.MaxJitter.Milliseconds()
	if maxMs <= 0 {
		return 0
	}
	return time.Duration(r.rand()%uint32(maxMs)) * time.Millisecond
}

// Exhausted reports whether the attempt budget is spent.
func (r *Retry) Exhausted() bool {
	return r.param.MaxAttempts > 0 && r.attempts >= r.param.MaxAttempts
}

// FirstAttempt reports whether no backoff has been produced yet.
func (r *Retry) FirstAttempt() bool {
	return r.attempts == 0
}

// LastBackoff returns the most recently produced delay.
func (r *Retry) LastBackoff() time.Duration {
	return r.prev
}

// Attempts returns the number of delays produced since the last Reset.
func (r *Retry) Attempts() uint16 {
	return r.attempts
}

// Reset clears the attempt count and the backoff state.
func (r *Retry) Reset() {
	r.attempts = 0
	r.prev = 0
}

// NextBackoff computes the next delay: MinBackoff plus jitter on the
// first attempt, then doubling, capped so the delay never exceeds
// MaxBackoff. ErrExhausted is returned once MaxAttempts delays have
// been produced.
func (r *Retry) NextBackoff() (time.Duration, error) {
	if r.Exhausted() {
		return 0, ErrExhausted
	}

	jitter := r.jitter()
	next := r.prev*2 + jitter
	if r.prev == 0 {
		next = r.param.MinBackoff + jitter
	}
	if next > r.param.MaxBackoff {
		next = r.param.MaxBackoff - r.param.MaxJitter + jitter
	}

	r.attempts++
	r.prev = next
	return next, nil
}

// Backoff blocks for the next delay. It returns nil while the loop
// should keep running and ErrExhausted once the budget is spent.
func (r *Retry) Backoff() error {
	d, err := r.NextBackoff()
	if err != nil {
		return err
	}
	r.sleep(d)
	return nil
}

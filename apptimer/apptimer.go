// Package apptimer schedules one-shot and periodic callbacks against a
// 32-bit tick counter using a hierarchical timer wheel. Insertion and
// expiry are O(1) amortised, so the wheel stays responsive with
// thousands of armed timers on a single scheduler thread.
//
// The wheel is single-threaded cooperative: Advance is the only
// mutator of time and must not be called from interrupt context or
// concurrently with the other methods. Tick arithmetic is modular;
// "in the future" means the signed difference to the current tick is
// positive, which keeps the wheel correct across counter wrap-around.
package apptimer

// MaxTimeout is the largest startable timeout: half the tick range
// less one, so an armed deadline is always in the signed future.
const MaxTimeout = 1<<31 - 1

// Callback runs on expiry with the context passed to Start.
type Callback func(ctx any)

// Timer is one scheduled expiry. Create with NewTimer, or embed and
// initialise with InitTimer for statically-allocated builds. A Timer
// is either idle or armed; it is armed exactly while linked into the
// wheel (or due to fire on the next Advance).
type Timer struct {
	next   *Timer
	prev   *Timer
	bucket *bucket

	deadline uint32
	period   uint32
	repeat   bool
	armed    bool

	cb  Callback
	ctx any
}

// Timers is a timer wheel set bound to one tick domain.
type Timers struct {
	now     uint32
	count   int
	wheels  [numWheels][wheelSlots]bucket
	pending bucket // due timers awaiting the next Advance

	updateAlarm func(ticks uint32)
	lastHint    uint32
	hintSent    bool

	advancing bool
}

// New creates a wheel set. updateAlarm, when non-nil, is invoked with
// the number of ticks until the next scheduled expiry whenever that
// value changes, so a hardware one-shot can be programmed; zero means
// no timer is armed, and a due-but-unfired timer reports one tick.
func New(updateAlarm func(ticks uint32)) *Timers {
	return &Timers{updateAlarm: updateAlarm}
}

// Now returns the current tick.
func (ts *Timers) Now() uint32 {
	return ts.now
}

// Count returns the number of armed timers.
func (ts *Timers) Count() int {
	return ts.count
}

// InitTimer prepares caller-owned storage as an idle timer.
func (ts *Timers) InitTimer(t *Timer, repeat bool, cb Callback) error {
	if t == nil || cb == nil {
		return ErrInvalidParam
	}
	*t = Timer{repeat: repeat, cb: cb}
	return nil
}

// NewTimer allocates an idle timer.
func (ts *Timers) NewTimer(repeat bool, cb Callback) (*Timer, error) {
	t := &Timer{}
	if err := ts.InitTimer(t, repeat, cb); err != nil {
		return nil, err
	}
	return t, nil
}

// Destroy retires an idle timer. Destroying an armed timer is refused;
// stop it first.
func (ts *Timers) Destroy(t *Timer) error {
	if t == nil || t.armed {
		return ErrInvalidParam
	}
	*t = Timer{}
	return nil
}

// Start arms the timer to fire timeout ticks from now. Periodic timers
// re-arm on expiry with the same period. Restarting an armed timer is
// refused with ErrAlreadyStarted.
func (ts *Timers) Start(t *Timer, timeout uint32, ctx any) error {
	if t == nil || t.cb == nil {
		return ErrInvalidParam
	}
	if t.armed {
		return ErrAlreadyStarted
	}
	if timeout > MaxTimeout {
		return ErrTimeLimitExceeded
	}

	t.deadline = ts.now + timeout
	t.period = timeout
	t.ctx = ctx
	t.armed = true
	ts.insert(t)
	ts.count++
	ts.notifyAlarm()
	return nil
}

// Stop disarms the timer. Stopping an idle timer is a no-op.
func (ts *Timers) Stop(t *Timer) error {
	if t == nil {
		return ErrInvalidParam
	}
	if !t.armed {
		return nil
	}
	if t.bucket != nil {
		t.bucket.remove(t)
	}
	t.armed = false
	ts.count--
	ts.notifyAlarm()
	return nil
}

// Advance adds elapsed to the current tick and fires every timer whose
// deadline has been reached, in increasing deadline order with FIFO
// tie-breaking. Periodic timers re-arm at old deadline plus period; a
// re-armed deadline still within the advanced range fires again in the
// same call, except that a zero period fires once per Advance.
// Callbacks run inline and may start, stop or restart timers; they
// must not call Advance.
func (ts *Timers) Advance(elapsed uint32) {
	if ts.advancing {
		return
	}
	ts.advancing = true
	defer func() { ts.advancing = false }()

	old := ts.now
	ts.now += elapsed

	expired := ts.collectExpired(old, nil)
	sortByDeadline(expired, old)

	for i := 0; i < len(expired); i++ {
		t := expired[i]
		if !t.armed {
			continue // stopped by an earlier callback
		}
		t.armed = false
		ts.count--

		if t.repeat {
			t.deadline += t.period
			t.armed = true
			ts.count++
			if t.period > 0 && int32(t.deadline-ts.now) <= 0 {
				expired = insertByDeadline(expired, i+1, t, old)
			} else {
				ts.insert(t)
			}
		}

		t.cb(t.ctx)
	}

	ts.notifyAlarm()
}

// insertByDeadline places a re-armed timer back into the in-flight
// expiry list, keeping it sorted by deadline from position from on.
func insertByDeadline(expired []*Timer, from int, t *Timer, old uint32) []*Timer {
	key := t.deadline - old
	pos := from
	for pos < len(expired) && expired[pos].deadline-old <= key {
		pos++
	}
	expired = append(expired, nil)
	copy(expired[pos+1:], expired[pos:])
	expired[pos] = t
	return expired
}

package apptimer

import (
	"sort"

	"github.com/ehrlich-b/go-mcufw/internal/bitops"
	"github.com/ehrlich-b/go-mcufw/internal/trace"
)

const (
	wheelBits  = 6
	wheelSlots = 1 << wheelBits
	numWheels  = 6 // covers deltas up to 2^36, past MaxTimeout
	slotMask   = wheelSlots - 1
)

// bucket is one doubly-linked FIFO of armed timers. The wheel owns the
// timers linked into it; a timer holds a back-reference so removal is
// O(1).
type bucket struct {
	head *Timer
	tail *Timer
}

func (b *bucket) append(t *Timer) {
	t.bucket = b
	t.prev = b.tail
	t.next = nil
	if b.tail != nil {
		b.tail.next = t
	} else {
		b.head = t
	}
	b.tail = t
}

func (b *bucket) remove(t *Timer) {
	if t.bucket != b {
		trace.Error("timer linked to a different bucket")
		return
	}
	if t.prev != nil {
		t.prev.next = t.next
	} else {
		b.head = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	} else {
		b.tail = t.prev
	}
	t.next = nil
	t.prev = nil
	t.bucket = nil
}

// detach empties the bucket and returns its former head; the chain
// stays linked for iteration but every timer is marked unowned.
func (b *bucket) detach() *Timer {
	head := b.head
	b.head = nil
	b.tail = nil
	for t := head; t != nil; t = t.next {
		t.bucket = nil
	}
	return head
}

// insert links an armed timer into the wheel position derived from its
// deadline's distance to the current tick. A zero or negative distance
// (a deadline already reached) parks the timer on the pending list, to
// fire on the next Advance.
func (ts *Timers) insert(t *Timer) {
	delta := t.deadline - ts.now
	if int32(delta) <= 0 {
		ts.pending.append(t)
		return
	}
	k := (bitops.Fls(delta) - 1) / wheelBits
	idx := (t.deadline >> (k * wheelBits)) & slotMask
	ts.wheels[k][idx].append(t)
}

// collectExpired drains every bucket whose time range was crossed by
// moving from old to ts.now. Crossed timers that are due are appended
// to expired; the rest cascade to a lower wheel relative to the new
// tick.
func (ts *Timers) collectExpired(old uint32, expired []*Timer) []*Timer {
	for t := ts.pending.detach(); t != nil; {
		next := t.next
		t.next = nil
		t.prev = nil
		expired = append(expired, t)
		t = next
	}

	if old == ts.now {
		return expired
	}
	for k := 0; k < numWheels; k++ {
		shift := uint(k) * wheelBits
		pOld := old >> shift
		steps := (ts.now >> shift) - pOld
		if steps > wheelSlots {
			steps = wheelSlots
		}
		for i := uint32(1); i <= steps; i++ {
			idx := (pOld + i) & slotMask
			for t := ts.wheels[k][idx].detach(); t != nil; {
				next := t.next
				t.next = nil
				t.prev = nil
				if int32(t.deadline-ts.now) <= 0 {
					expired = append(expired, t)
				} else {
					ts.insert(t)
				}
				t = next
			}
		}
	}
	return expired
}

// sortByDeadline orders the expired set by increasing deadline,
// preserving bucket FIFO order among ties. Keys are distances from the
// pre-advance tick, so wrap-around cannot reorder them.
func sortByDeadline(expired []*Timer, old uint32) {
	sort.SliceStable(expired, func(i, j int) bool {
		return expired[i].deadline-old < expired[j].deadline-old
	})
}

// nextExpiry returns the distance to the earliest armed deadline, 0
// when nothing is armed. A timer already due reports 1 rather than the
// "no active timer" sentinel.
func (ts *Timers) nextExpiry() uint32 {
	if ts.count == 0 {
		return 0
	}
	if ts.pending.head != nil {
		return 1
	}
	best := uint32(0)
	for k := 0; k < numWheels; k++ {
		for i := 0; i < wheelSlots; i++ {
			for t := ts.wheels[k][i].head; t != nil; t = t.next {
				delta := t.deadline - ts.now
				if delta == 0 {
					delta = 1
				}
				if best == 0 || delta < best {
					best = delta
				}
			}
		}
	}
	return best
}

func (ts *Timers) notifyAlarm() {
	if ts.updateAlarm == nil {
		return
	}
	hint := ts.nextExpiry()
	if hint != ts.lastHint || !ts.hintSent {
		ts.lastHint = hint
		ts.hintSent = true
		ts.updateAlarm(hint)
	}
}

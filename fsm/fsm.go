// Package fsm runs table-driven finite state machines. A machine is a
// list of transition rules evaluated in order on every Step; the first
// rule whose present-state and guard match fires.
package fsm

// State identifies one machine state. State 0 is the initial state.
type State int16

// GuardFunc decides whether a rule may fire. A nil guard always fires.
type GuardFunc func(state, next State, ctx any) bool

// ActionFunc runs after a rule fires, with the states before and after
// the transition.
type ActionFunc func(state, next State, ctx any)

// ObserverFunc sees every state change immediately after it occurs.
type ObserverFunc func(f *FSM, next, prev State, ctx any)

// Rule is one row of the transition table.
type Rule struct {
	Present State
	Next    State
	Guard   GuardFunc
	Action  ActionFunc
}

// FSM executes a transition table. Create with Init; the zero value has
// an empty table and never transitions.
type FSM struct {
	present State
	rules   []Rule
	ctx     any

	observer    ObserverFunc
	observerCtx any
}

// Init stores the rule set and resets the state to 0. The table is not
// copied; the caller must not mutate it afterwards.
func (f *FSM) Init(rules []Rule, ctx any) {
	f.rules = rules
	f.ctx = ctx
	f.Reset()
}

// Reset returns the machine to state 0 without touching the table.
func (f *FSM) Reset() {
	f.present = 0
}

// State returns the present state.
func (f *FSM) State() State {
	return f.present
}

// SetObserver installs a state-change observer. A nil fn removes it.
func (f *FSM) SetObserver(fn ObserverFunc, ctx any) {
	f.observer = fn
	f.observerCtx = ctx
}

// Step scans the table in order and fires the first rule whose Present
// matches the current state and whose Guard is nil or returns true.
// When the rule changes the state the observer runs first, then the
// rule's Action. The resulting state is returned.
func (f *FSM) Step() State {
	current := f.present
	for i := range f.rules {
		rule := &f.rules[i]
		if rule.Present != current {
			continue
		}
		if rule.Guard != nil && !rule.Guard(current, rule.Next, f.ctx) {
			continue
		}

		if rule.Next != current {
			f.present = rule.Next
			if f.observer != nil {
				f.observer(f, f.present, current, f.observerCtx)
			}
		}
		if rule.Action != nil {
			rule.Action(current, f.present, f.ctx)
		}
		break
	}
	return f.present
}

// Package button turns a noisy binary input into debounced press,
// release, hold, click and repeat events. The caller samples the input
// by stepping the state machine; every step shifts the current level
// into a history register and classifies the masked window.
package button

import "errors"

var (
	ErrUnknown        = errors.New("unknown error")
	ErrInvalidParam   = errors.New("invalid parameters")
	ErrIncorrectParam = errors.New("incorrect parameters")
	ErrDisabled       = errors.New("button disabled")
)

// Level is the sampled logical input level.
type Level uint8

const (
	LevelLow  Level = iota // released
	LevelHigh              // pressed
)

// State classifies the debounced channel.
type State uint8

const (
	StateUnknown State = iota
	StatePressed
	StateReleased
	StateHolding
)

func (s State) String() string {
	switch s {
	case StatePressed:
		return "pressed"
	case StateReleased:
		return "released"
	case StateHolding:
		return "holding"
	}
	return "unknown"
}

// GetStateFunc samples the raw input level.
type GetStateFunc func(ctx any) Level

// Callback receives button events. A release after clicking reports the
// accumulated click count; once the click window expires the final
// count is flushed through one more StateReleased callback. Repeats
// are reported as StateHolding callbacks with a growing repeat count.
type Callback func(b *Button, event State, clicks uint16, repeats uint16, ctx any)

// Param tunes the sampler. All fields are milliseconds.
type Param struct {
	SamplingPeriodMs   uint16 // period between samples
	DebounceDurationMs uint16 // duration a level must persist
	RepeatDelayMs      uint16 // press duration before HOLDING
	RepeatRateMs       uint16 // interval between repeat events
	ClickWindowMs      uint16 // window joining presses into one click burst
	SamplingTimeoutMs  uint16 // gap that invalidates the history
}

// DefaultParam returns the stock tuning.
func DefaultParam() Param {
	return Param{
		SamplingPeriodMs:   10,
		DebounceDurationMs: 60,
		RepeatDelayMs:      300,
		RepeatRateMs:       100,
		ClickWindowMs:      500,
		SamplingTimeoutMs:  1000,
	}
}

// Button is one debounced input channel. Time is a caller-supplied
// 32-bit millisecond clock; all comparisons wrap.
type Button struct {
	get    GetStateFunc
	getCtx any
	cb     Callback
	cbCtx  any
	param  Param

	enabled bool

	history      uint64
	state        State
	pressed      bool
	holding      bool
	haveReleased bool
	sampledOnce  bool

	clock        uint32
	lastSampled  uint32
	timePressed  uint32
	timeReleased uint32
	lastRepeat   uint32

	clicks  uint16
	repeats uint16
}

// New creates an enabled button with default parameters. The sampler
// function must not be nil; the callback may be, for callers that only
// poll State.
func New(get GetStateFunc, getCtx any, cb Callback, cbCtx any) (*Button, error) {
	if get == nil {
		return nil, ErrInvalidParam
	}
	return &Button{
		get:     get,
		getCtx:  getCtx,
		cb:      cb,
		cbCtx:   cbCtx,
		param:   DefaultParam(),
		enabled: true,
	}, nil
}

func validateParam(p *Param) error {
	if p.SamplingPeriodMs == 0 {
		return ErrIncorrectParam
	}
	if p.DebounceDurationMs < p.SamplingPeriodMs {
		return ErrIncorrectParam
	}
	// window bits + 1 must fit the history register
	if int(p.DebounceDurationMs/p.SamplingPeriodMs) > 62 {
		return ErrIncorrectParam
	}
	return nil
}

// SetParam replaces the tuning. The debounce duration must be at least
// one sampling period and the resulting window must fit the history
// register.
func (b *Button) SetParam(p *Param) error {
	if p == nil {
		return ErrInvalidParam
	}
	if err := validateParam(p); err != nil {
		return err
	}
	b.param = *p
	return nil
}

// GetParam copies the current tuning into p.
func (b *Button) GetParam(p *Param) error {
	if p == nil {
		return ErrInvalidParam
	}
	*p = b.param
	return nil
}

// Enable arms the state machine, starting from a clean history.
func (b *Button) Enable() error {
	b.resetRun()
	b.enabled = true
	return nil
}

// Disable halts evaluation without losing the configuration.
func (b *Button) Disable() error {
	b.enabled = false
	return nil
}

func (b *Button) resetRun() {
	b.history = 0
	b.state = StateUnknown
	b.pressed = false
	b.holding = false
	b.haveReleased = false
	b.sampledOnce = false
	b.clicks = 0
	b.repeats = 0
}

// State returns the current debounced state.
func (b *Button) State() State {
	return b.state
}

// Clicks returns the click count accumulated in the open click window.
func (b *Button) Clicks() uint16 {
	return b.clicks
}

// Repeats returns the repeat count of the press in progress.
func (b *Button) Repeats() uint16 {
	return b.repeats
}

// Busy reports whether the channel is mid-activity: pressed, settling,
// or holding an unflushed click count.
func (b *Button) Busy() bool {
	return b.pressed || b.clicks > 0 || b.maskedHistory() != 0
}

func (b *Button) windowBits() uint {
	return uint(b.param.DebounceDurationMs / b.param.SamplingPeriodMs)
}

func (b *Button) historyMask() uint64 {
	return (uint64(1) << (b.windowBits() + 1)) - 1
}

func (b *Button) maskedHistory() uint64 {
	return b.history & b.historyMask()
}

// Step advances the machine to the absolute time now (milliseconds,
// wrapping). At most one callback is delivered per call. A gap longer
// than the sampling timeout discards the history and returns
// ErrUnknown.
func (b *Button) Step(now uint32) error {
	return b.step(now)
}

// StepDelta advances the machine by elapsed milliseconds on its
// internal clock.
func (b *Button) StepDelta(elapsed uint32) error {
	return b.step(b.clock + elapsed)
}

func (b *Button) step(now uint32) error {
	if !b.enabled {
		return ErrDisabled
	}

	if b.sampledOnce {
		elapsed := now - b.lastSampled
		if elapsed < uint32(b.param.SamplingPeriodMs) {
			b.clock = now
			return nil
		}
		if elapsed > uint32(b.param.SamplingTimeoutMs) {
			b.history = 0
			b.lastSampled = now
			b.clock = now
			return ErrUnknown
		}
	}
	b.sampledOnce = true
	b.lastSampled = now
	b.clock = now

	b.history <<= 1
	if b.get(b.getCtx) == LevelHigh {
		b.history |= 1
	}

	bits := b.windowBits()
	mask := b.historyMask()
	h := b.history & mask
	pressedPattern := mask >> 1          // 0 1...1
	releasedPattern := uint64(1) << bits // 1 0...0

	switch {
	case h == pressedPattern && !b.pressed:
		b.pressed = true
		b.holding = false
		b.timePressed = now
		b.repeats = 0
		if b.haveReleased && now-b.timeReleased <= uint32(b.param.ClickWindowMs) {
			b.clicks++
		} else {
			b.clicks = 1
		}
		b.state = StatePressed
		b.emit(StatePressed)

	case h == releasedPattern && b.pressed:
		b.pressed = false
		b.holding = false
		b.haveReleased = true
		b.timeReleased = now
		b.state = StateReleased
		b.emit(StateReleased)

	case h == mask && b.pressed:
		if !b.holding {
			if now-b.timePressed >= uint32(b.param.RepeatDelayMs) {
				b.holding = true
				b.lastRepeat = now
				b.state = StateHolding
				b.emit(StateHolding)
			}
		} else if now-b.lastRepeat >= uint32(b.param.RepeatRateMs) {
			b.lastRepeat = now
			b.repeats++
			b.emit(StateHolding)
		}

	case h == 0:
		if b.clicks > 0 && !b.pressed &&
			now-b.timeReleased > uint32(b.param.ClickWindowMs) {
			b.emit(StateReleased)
			b.clicks = 0
		}
	}

	return nil
}

func (b *Button) emit(event State) {
	if b.cb != nil {
		b.cb(b, event, b.clicks, b.repeats, b.cbCtx)
	}
}

// Package sampler turns a countdown timer into a periodic sampling clock.
//
// The callback passed to Start runs in the timer's interrupt context (a
// dedicated goroutine for software timers). It must be short and must never
// block; the recorder only posts a tick to its event queue from there.
package sampler

import "fmt"

// DefaultCoreClockHz is the timer input clock when none is configured.
const DefaultCoreClockHz = 64_000_000

// Timer is the contract a countdown timer peripheral has to meet. Configure
// sets the reload value; the counter wraps every autoreload+1 input clocks
// and raises the update interrupt.
type Timer interface {
	Configure(prescaler, autoreload uint32)
	SetISR(isr func())
	Enable()
	Disable()
	Reset()
}

type state uint8

const (
	stateNew state = iota
	stateInitialized
	stateRunning
	stateStopped
	stateReleased
)

func (s state) String() string {
	return [...]string{"new", "initialized", "running", "stopped", "released"}[s]
}

// Sampler drives one Timer through init, start, stop and deinit, in that
// order. Calls out of order panic.
type Sampler struct {
	timer       Timer
	coreClockHz uint32

	state      state
	sampleRate uint32
	period     uint32
	callback   func()
}

// New returns a sampler over timer clocked at coreClockHz.
func New(timer Timer, coreClockHz uint32) *Sampler {
	if coreClockHz == 0 {
		coreClockHz = DefaultCoreClockHz
	}
	return &Sampler{timer: timer, coreClockHz: coreClockHz}
}

// Init programs the timer for sampleRate interrupts per second.
func (s *Sampler) Init(sampleRate uint32) {
	s.expect(stateNew, "init")
	if sampleRate == 0 {
		panic("sampler: sample rate must be > 0")
	}
	period := s.coreClockHz / sampleRate
	if period < 1 {
		panic(fmt.Sprintf("sampler: sample rate %d exceeds core clock %d", sampleRate, s.coreClockHz))
	}

	s.timer.Reset()
	s.timer.Configure(0, period-1)

	s.sampleRate = sampleRate
	s.period = period
	s.state = stateInitialized
}

// Start attaches callback to the update interrupt and starts counting.
func (s *Sampler) Start(callback func()) {
	s.expect(stateInitialized, "start")
	if callback == nil {
		panic("sampler: nil callback")
	}
	s.callback = callback
	s.timer.SetISR(s.isr)
	s.timer.Enable()
	s.state = stateRunning
}

// Stop halts the counter and detaches the interrupt handler. No callback
// runs after Stop returns.
func (s *Sampler) Stop() {
	s.expect(stateRunning, "stop")
	s.timer.Disable()
	s.timer.SetISR(nil)
	s.state = stateStopped
}

// Deinit releases the timer configuration. It must be the final call.
func (s *Sampler) Deinit() {
	s.expect(stateStopped, "deinit")
	s.timer.SetISR(nil)
	s.timer.Reset()
	s.callback = nil
	s.state = stateReleased
}

func (s *Sampler) isr() {
	s.callback()
}

func (s *Sampler) expect(want state, op string) {
	if s.state != want {
		panic(fmt.Sprintf("sampler: %s called in state %s, want %s", op, s.state, want))
	}
}

// SampleRate returns the configured rate, or 0 before Init.
func (s *Sampler) SampleRate() uint32 { return s.sampleRate }

// Period returns the number of timer input clocks per sample.
func (s *Sampler) Period() uint32 { return s.period }

// Running reports whether the timer is counting.
func (s *Sampler) Running() bool { return s.state == stateRunning }

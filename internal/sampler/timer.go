package sampler

import (
	"sync"
	"time"
)

// TickerTimer is a software Timer. Its update interrupt is a goroutine fed
// by a time.Ticker; like the ticker it drops periods it falls behind on.
type TickerTimer struct {
	clockHz uint32

	mu     sync.Mutex
	period time.Duration
	isr    func()
	stop   chan struct{}
	done   chan struct{}
}

// NewTickerTimer returns a software timer counting at clockHz.
func NewTickerTimer(clockHz uint32) *TickerTimer {
	if clockHz == 0 {
		clockHz = DefaultCoreClockHz
	}
	return &TickerTimer{clockHz: clockHz}
}

func (t *TickerTimer) Configure(prescaler, autoreload uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	clocks := (uint64(prescaler) + 1) * (uint64(autoreload) + 1)
	t.period = time.Duration(clocks * uint64(time.Second) / uint64(t.clockHz))
	if t.period <= 0 {
		t.period = time.Nanosecond
	}
}

func (t *TickerTimer) SetISR(isr func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.isr = isr
}

func (t *TickerTimer) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil || t.period == 0 {
		return
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(t.period, t.stop, t.done)
}

// Disable stops the counter and waits for an in-flight interrupt to return.
func (t *TickerTimer) Disable() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (t *TickerTimer) Reset() {
	t.Disable()
	t.mu.Lock()
	t.period = 0
	t.isr = nil
	t.mu.Unlock()
}

func (t *TickerTimer) run(period time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	tk := time.NewTicker(period)
	defer tk.Stop()

	for {
		select {
		case <-stop:
			return
		case <-tk.C:
			t.mu.Lock()
			isr := t.isr
			t.mu.Unlock()
			if isr != nil {
				isr()
			}
		}
	}
}

// Period returns the configured interrupt period.
func (t *TickerTimer) Period() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.period
}

// ManualTimer is a Timer whose interrupt fires only when Fire is called.
type ManualTimer struct {
	mu         sync.Mutex
	prescaler  uint32
	autoreload uint32
	isr        func()
	enabled    bool
	resets     int
}

func (m *ManualTimer) Configure(prescaler, autoreload uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prescaler, m.autoreload = prescaler, autoreload
}

func (m *ManualTimer) SetISR(isr func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isr = isr
}

func (m *ManualTimer) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}

func (m *ManualTimer) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}

func (m *ManualTimer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
	m.isr = nil
	m.prescaler, m.autoreload = 0, 0
	m.resets++
}

// Fire raises n update interrupts and returns how many reached an ISR.
func (m *ManualTimer) Fire(n int) int {
	fired := 0
	for i := 0; i < n; i++ {
		m.mu.Lock()
		isr, on := m.isr, m.enabled
		m.mu.Unlock()
		if !on || isr == nil {
			break
		}
		isr()
		fired++
	}
	return fired
}

// Autoreload returns the last configured reload value.
func (m *ManualTimer) Autoreload() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoreload
}

// Enabled reports whether the counter is running.
func (m *ManualTimer) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

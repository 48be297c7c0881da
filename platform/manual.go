package platform

import "time"

// ManualClock is a deterministic platform.Clock for tests and for
// embedding the scheduler inside another event loop that drives its own
// ticks. Tick is a single synchronous call, exactly matching the scenarios
// in spec.md §8 ("over 9 ticks, observe...").
type ManualClock struct {
	tickFn  func()
	started bool
	quantum time.Duration
}

// NewManualClock returns a ManualClock with no tick function registered yet;
// kernel.InitKernel supplies one via SetTickFunc.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

func (c *ManualClock) SetTickFunc(fn func()) {
	c.tickFn = fn
}

func (c *ManualClock) Init() error {
	return nil
}

// Configure always succeeds: there is no real prescaler to fit when the
// "hardware" is a test calling Tick by hand.
func (c *ManualClock) Configure(quantum time.Duration) error {
	c.quantum = quantum
	return nil
}

func (c *ManualClock) Start() error {
	c.started = true
	return nil
}

func (c *ManualClock) Stop() error {
	c.started = false
	return nil
}

// Force fires one tick immediately, the same as a call to Tick.
func (c *ManualClock) Force() error {
	c.Tick()
	return nil
}

// DiscardStack is a documented no-op: a hosted Go runtime owns its own
// stacks.
func (c *ManualClock) DiscardStack() {}

// Tick fires exactly one scheduler invocation. Safe to call whether or not
// Start was called, so tests can drive the kernel before wiring a full
// boot sequence.
func (c *ManualClock) Tick() {
	if c.tickFn != nil {
		c.tickFn()
	}
}

package platform

import (
	"runtime"
	"sync"
	"time"

	"github.com/niedzielski/dkernel/internal/logging"
	"golang.org/x/sys/unix"
)

// TickerClock drives the scheduler with a real time.Ticker on a goroutine
// pinned to one OS thread — and, optionally, one CPU — mirroring the
// teacher's queue runner, which pins each queue's ioLoop the same way so a
// single-core scheduling model isn't at the mercy of the Go scheduler
// migrating it mid-tick.
type TickerClock struct {
	Profile HardwareProfile
	// CPU, if non-negative, is pinned via unix.SchedSetaffinity. Negative
	// skips affinity pinning (still pins the OS thread via LockOSThread).
	CPU int
	Log *logging.Logger

	tickFn   func()
	quantum  time.Duration
	ticker   *time.Ticker
	forceCh  chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewTickerClock returns a TickerClock with no CPU affinity requested.
func NewTickerClock(log *logging.Logger) *TickerClock {
	if log == nil {
		log = logging.Default()
	}
	return &TickerClock{
		Profile: DefaultProfile,
		CPU:     -1,
		Log:     log,
		forceCh: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

func (c *TickerClock) SetTickFunc(fn func()) {
	c.tickFn = fn
}

func (c *TickerClock) Init() error {
	return nil
}

// Configure runs the same fixed-point prescaler/modulo search the original
// firmware used, purely to return an error (reported by InitKernel under
// kernel.ErrCodeClockUnfittable) for quanta that no prescaler brings within
// the simulated hardware timer width — a time.Ticker accepts any
// duration, but preserving the configuration-impossibility failure mode
// keeps TickerClock honest about what this kernel models.
func (c *TickerClock) Configure(quantum time.Duration) error {
	if _, _, err := solvePrescaleAndModulo(quantum.Seconds(), c.Profile); err != nil {
		return err
	}
	c.quantum = quantum
	return nil
}

// Start pins a goroutine to an OS thread (and, if CPU >= 0, to that CPU)
// and begins firing tickFn once per quantum until Stop is called.
func (c *TickerClock) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.ticker = time.NewTicker(c.quantum)
	c.doneCh = make(chan struct{})
	c.mu.Unlock()

	go c.run()
	return nil
}

func (c *TickerClock) run() {
	defer close(c.doneCh)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if c.CPU >= 0 {
		var set unix.CPUSet
		set.Zero()
		set.Set(c.CPU)
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			c.Log.Warn("failed to pin scheduler clock to CPU", "cpu", c.CPU, "error", err)
		}
	}

	for {
		select {
		case <-c.stopCh:
			return
		case <-c.ticker.C:
			c.tick()
		case <-c.forceCh:
			c.tick()
		}
	}
}

func (c *TickerClock) tick() {
	if c.tickFn != nil {
		c.tickFn()
	}
}

func (c *TickerClock) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false
	c.ticker.Stop()
	close(c.stopCh)
	<-c.doneCh
	c.stopCh = make(chan struct{})
	return nil
}

// Force requests an out-of-band tick, the invoke_scheduler primitive,
// without waiting for the ticker's next natural fire.
func (c *TickerClock) Force() error {
	select {
	case c.forceCh <- struct{}{}:
	default:
	}
	return nil
}

func (c *TickerClock) DiscardStack() {}

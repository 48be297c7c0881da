package kernel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/niedzielski/dkernel/internal/logging"
)

// Clock abstracts the hardware timer that drives the scheduler tick. It
// stands in for the platform shim in spec.md §4.6/§6: the kernel core never
// touches a register, it only asks a Clock to configure, start, stop, force
// an immediate tick, or discard the idle task's stack.
type Clock interface {
	// SetTickFunc registers the function the clock invokes once per
	// quantum (and once more per Force call). InitKernel calls this once,
	// wiring (*Kernel).Tick before Init/Configure run.
	SetTickFunc(fn func())
	// Init prepares the clock but does not start ticking.
	Init() error
	// Configure fits quantum to the clock's hardware parameters. Returns a
	// non-nil error if no legal configuration produces it; InitKernel
	// reports that error under ErrCodeClockUnfittable.
	Configure(quantum time.Duration) error
	// Start begins periodic ticking at the configured quantum.
	Start() error
	// Stop halts periodic ticking.
	Stop() error
	// Force requests an immediate scheduler invocation, the invoke_scheduler
	// primitive of spec.md §6.
	Force() error
	// DiscardStack resets whatever hardware stack backs the idle task. A
	// hosted Go runtime owns its own stacks; implementations may no-op.
	DiscardStack()
}

// Config configures a Kernel at InitKernel time.
type Config struct {
	// MaxTasks is the pool size, including the reserved idle slot. Must be
	// >= MinMaxTasks.
	MaxTasks uint8

	// Quantum is the desired tick period, passed to Clock.Configure.
	Quantum time.Duration

	// Clock drives the scheduler tick. Required.
	Clock Clock

	// Logger receives kernel diagnostics. Defaults to logging.Default().
	Logger *logging.Logger

	// IdleHook runs on every iteration of the idle loop, after boot
	// completes. May be nil.
	IdleHook func()

	// QuantumTrigger fires once per scheduler tick with the running
	// quantum count. Must not block and must not call back into the
	// kernel's critical section (spec.md §7: a contract violation, not a
	// runtime condition). May be nil.
	QuantumTrigger func(count uint64)

	// PostBootHook runs once from idleTask after the clock starts and
	// after interrupts are re-enabled (the boot critical section is
	// released), standing in for the original firmware's DK_USB_Start. May
	// be nil. A returned error is logged but does not abort boot.
	PostBootHook func() error

	// RunContext governs idleTask's loop lifetime; StartKernel returns when
	// it is cancelled. Defaults to context.Background(), i.e. forever.
	RunContext context.Context

	// Observer receives scheduling events (ticks, context switches, task
	// creation, pool exhaustion, run length), mirroring the teacher's
	// pluggable Observer for I/O events. Defaults to a MetricsObserver
	// wrapping the kernel's own Metrics(), so Metrics() stays populated
	// unless a caller opts into routing events elsewhere instead.
	Observer Observer
}

// Kernel holds all process-wide scheduling state: the TCB pool, the current
// task pointer, the living-task and quantum counters, and the critical
// section mutex standing in for global interrupt disable/enable.
type Kernel struct {
	pool *Pool
	cfg  Config
	log  *logging.Logger

	// criticalSection serializes Tick against task-context callers of
	// SetState/CreateTask, the Go analogue of disabling interrupts on a
	// single-core target (see SPEC_FULL's Concurrency & Resource Model).
	criticalSection sync.Mutex

	current uint8

	living       atomic.Uint32
	quantumCount atomic.Uint64

	remainingQuantum uint32

	metrics  *Metrics
	observer Observer
}

// InitKernel builds the TCB pool, points current at the idle task, and asks
// cfg.Clock to fit cfg.Quantum to its hardware parameters. It is the Go
// rendering of spec.md §4.6's init_kernel.
func InitKernel(cfg Config) (*Kernel, error) {
	if cfg.MaxTasks < MinMaxTasks {
		return nil, NewError("INIT_KERNEL", ErrCodeInvalidConfig, "MaxTasks below MinMaxTasks")
	}
	if cfg.Clock == nil {
		return nil, NewError("INIT_KERNEL", ErrCodeInvalidConfig, "Config.Clock is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.RunContext == nil {
		cfg.RunContext = context.Background()
	}

	metrics := NewMetrics()
	observer := cfg.Observer
	if observer == nil {
		observer = NewMetricsObserver(metrics)
	}

	k := &Kernel{
		pool:     NewPool(cfg.MaxTasks),
		cfg:      cfg,
		log:      cfg.Logger,
		current:  IdleTaskID,
		metrics:  metrics,
		observer: observer,
	}
	k.living.Store(1) // idle task is always alive
	k.remainingQuantum = 1

	cfg.Clock.SetTickFunc(k.Tick)

	if err := cfg.Clock.Init(); err != nil {
		return nil, WrapError("INIT_KERNEL", ErrCodeClockUnfittable, err)
	}
	if err := cfg.Clock.Configure(cfg.Quantum); err != nil {
		return nil, WrapError("INIT_KERNEL", ErrCodeClockUnfittable, err)
	}

	k.log.Debug("kernel initialized", "max_tasks", cfg.MaxTasks, "quantum", cfg.Quantum)
	return k, nil
}

// StartKernel enters the boot critical section and runs idleTask, which
// does not return until cfg.RunContext is cancelled — the nearest honest
// analogue to spec.md's "never returns" available to a hosted runtime.
func StartKernel(k *Kernel) error {
	k.criticalSection.Lock()
	return k.idleTask()
}

// idleTask implements spec.md §4.6's idle_task: discard the stack (a
// documented no-op here), start the clock, release the boot critical
// section, run the post-boot hook with interrupts enabled (so the hook may
// call CreateTask/SetState), then loop the application idle hook until
// cancellation.
func (k *Kernel) idleTask() error {
	k.cfg.Clock.DiscardStack()

	if err := k.cfg.Clock.Start(); err != nil {
		k.criticalSection.Unlock()
		return WrapError("START_KERNEL", ErrCodeClockUnfittable, err)
	}

	k.criticalSection.Unlock()

	if k.cfg.PostBootHook != nil {
		if err := k.cfg.PostBootHook(); err != nil {
			k.log.Warn("post-boot hook failed", "error", err)
		}
	}

	for {
		select {
		case <-k.cfg.RunContext.Done():
			return nil
		default:
		}
		if k.cfg.IdleHook != nil {
			k.cfg.IdleHook()
		}
	}
}

// RunningTaskID returns the identity of the currently RUNNING task.
func (k *Kernel) RunningTaskID() uint8 {
	k.criticalSection.Lock()
	defer k.criticalSection.Unlock()
	return k.current
}

// LivingTaskCount returns the number of slots with State != StateDead,
// including the idle task.
func (k *Kernel) LivingTaskCount() uint32 {
	return k.living.Load()
}

// QuantumCount returns the monotonic tick count since the last reset.
func (k *Kernel) QuantumCount() uint64 {
	return k.quantumCount.Load()
}

// ResetQuantumCount zeroes the quantum counter. The original firmware never
// saturates or wraps it; SPEC_FULL leaves rollover behavior an open
// question (see DESIGN.md) rather than inventing a policy.
func (k *Kernel) ResetQuantumCount() {
	k.quantumCount.Store(0)
}

// InvokeScheduler is the scheduler-invocation primitive of spec.md §6: a
// task that wants to surrender the CPU immediately, rather than waiting for
// its quantum to expire, calls this instead of waiting for the next tick.
func (k *Kernel) InvokeScheduler() error {
	return k.cfg.Clock.Force()
}

// Metrics returns the kernel's metrics collector.
func (k *Kernel) Metrics() *Metrics {
	return k.metrics
}

// StateOf returns slot id's current state. Intended for tests and
// diagnostics; ordinary task logic has no reason to peek at another slot's
// state directly.
func (k *Kernel) StateOf(id uint8) TaskState {
	k.criticalSection.Lock()
	defer k.criticalSection.Unlock()
	return k.pool.at(id).State
}

// RingNeighbors returns slot id's Next/Prev links as they currently stand.
// Meaningful only while id's state is a ring member; exposed for invariant
// tests (I1-I5 in spec.md §8).
func (k *Kernel) RingNeighbors(id uint8) (next, prev uint8) {
	k.criticalSection.Lock()
	defer k.criticalSection.Unlock()
	n := k.pool.at(id)
	return n.Next, n.Prev
}

// PoolSize returns the fixed number of TCB slots.
func (k *Kernel) PoolSize() int {
	return k.pool.Len()
}

package kernel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/niedzielski/dkernel/kernel"
	"github.com/niedzielski/dkernel/platform"
)

// TestEntryRunsOnPromotion proves CreateTask's entry point is actually
// invoked once the scheduler promotes the slot to RUNNING, not just stored.
func TestEntryRunsOnPromotion(t *testing.T) {
	k, clock := newTestKernel(t, kernel.DefaultMaxTasks)

	ran := make(chan uint8, 1)
	a, err := k.CreateTask(func(_ *kernel.Kernel, id uint8) {
		ran <- id
	}, kernel.StateReady, 1)
	require.NoError(t, err)

	clock.Tick()

	select {
	case id := <-ran:
		require.Equal(t, a, id)
	case <-time.After(time.Second):
		t.Fatal("entry was never invoked after promotion to RUNNING")
	}
}

// TestEntryRunsOnEveryPromotion proves entry fires again each time the
// scheduler cycles back to the task, not just once at creation.
func TestEntryRunsOnEveryPromotion(t *testing.T) {
	k, clock := newTestKernel(t, kernel.DefaultMaxTasks)

	ran := make(chan struct{}, 8)
	_, err := k.CreateTask(func(*kernel.Kernel, uint8) {
		ran <- struct{}{}
	}, kernel.StateReady, 1)
	require.NoError(t, err)

	_, err = k.CreateTask(noopEntry, kernel.StateReady, 1)
	require.NoError(t, err)

	fires := 0
	for i := 0; i < 6; i++ {
		clock.Tick()
		select {
		case <-ran:
			fires++
		case <-time.After(100 * time.Millisecond):
		}
	}
	require.GreaterOrEqual(t, fires, 2, "entry should run again on each promotion, not once")
}

// TestTaskGoroutineExitsOnDeath proves the per-task goroutine spawned by
// CreateTask returns when the slot dies instead of leaking forever: the
// reused slot's fresh entry must not race with a stale goroutine still
// reading the old Entry/ResumeSignal pair.
func TestTaskGoroutineExitsOnDeath(t *testing.T) {
	k, clock := newTestKernel(t, kernel.DefaultMaxTasks)

	oldRan := make(chan struct{}, 8)
	a, err := k.CreateTask(func(*kernel.Kernel, uint8) {
		oldRan <- struct{}{}
	}, kernel.StateReady, 1)
	require.NoError(t, err)

	clock.Tick()
	<-oldRan // old entry ran at least once while alive

	k.SetState(a, kernel.StateDead)

	newRan := make(chan uint8, 1)
	b, err := k.CreateTask(func(_ *kernel.Kernel, id uint8) {
		newRan <- id
	}, kernel.StateReady, 1)
	require.NoError(t, err)
	require.Equal(t, a, b, "dead slot should be reused")

	clock.Tick()
	clock.Tick()

	select {
	case id := <-newRan:
		require.Equal(t, b, id)
	case <-time.After(time.Second):
		t.Fatal("new entry never ran after slot reuse")
	}

	select {
	case <-oldRan:
		t.Fatal("old task's goroutine fired again after its slot died and was reused")
	default:
	}
}

// TestRunLengthRecordedOnDemotion proves Tick's demotion-from-RUNNING path
// feeds the run-length histogram via the kernel's default MetricsObserver.
func TestRunLengthRecordedOnDemotion(t *testing.T) {
	k, clock := newTestKernel(t, kernel.DefaultMaxTasks)

	_, err := k.CreateTask(noopEntry, kernel.StateReady, 1)
	require.NoError(t, err)

	clock.Tick() // idle -> task RUNNING (idle's own demotion is recorded here)
	before := k.Metrics().Snapshot()
	clock.Tick() // task's one-tick quantum expires, demoted, run length recorded

	snap := k.Metrics().Snapshot()
	last := len(snap.RunLatencyHistogram) - 1
	require.GreaterOrEqual(t, snap.RunLatencyHistogram[last], before.RunLatencyHistogram[last]+1)
}

// TestRunLengthRecordedOnVoluntaryBlock proves SetState's transition-away-
// from-RUNNING path records a run length too, not only the timer-driven one
// in Tick.
func TestRunLengthRecordedOnVoluntaryBlock(t *testing.T) {
	k, clock := newTestKernel(t, kernel.DefaultMaxTasks)

	a, err := k.CreateTask(noopEntry, kernel.StateReady, 5)
	require.NoError(t, err)

	clock.Tick() // a becomes RUNNING, quantum share 5 so it won't be demoted yet
	require.Equal(t, a, k.RunningTaskID())
	before := k.Metrics().Snapshot()

	k.SetState(a, kernel.StateBlocked)

	snap := k.Metrics().Snapshot()
	last := len(snap.RunLatencyHistogram) - 1
	require.GreaterOrEqual(t, snap.RunLatencyHistogram[last], before.RunLatencyHistogram[last]+1)
}

// TestCustomObserverReplacesMetrics proves Config.Observer is genuinely
// pluggable: a caller-supplied Observer receives the events instead of the
// kernel's own Metrics silently also recording them.
func TestCustomObserverReplacesMetrics(t *testing.T) {
	clock := platform.NewManualClock()

	var ticks int
	obs := &countingObserver{onTick: func() { ticks++ }}

	k, err := kernel.InitKernel(kernel.Config{
		MaxTasks: kernel.DefaultMaxTasks,
		Quantum:  time.Millisecond,
		Clock:    clock,
		Observer: obs,
	})
	require.NoError(t, err)

	clock.Tick()
	clock.Tick()

	require.Equal(t, 2, ticks)
	require.Equal(t, uint64(0), k.Metrics().Snapshot().TicksObserved, "custom Observer replaces the default MetricsObserver, it does not share it")
}

type countingObserver struct {
	onTick func()
}

func (o *countingObserver) ObserveTick() {
	if o.onTick != nil {
		o.onTick()
	}
}
func (o *countingObserver) ObserveContextSwitch()     {}
func (o *countingObserver) ObserveTaskCreated()       {}
func (o *countingObserver) ObservePoolExhaustion()    {}
func (o *countingObserver) ObserveRunLength(_ uint64) {}

package kernel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/niedzielski/dkernel/kernel"
	"github.com/niedzielski/dkernel/platform"
)

func newTestKernel(t *testing.T, maxTasks uint8) (*kernel.Kernel, *platform.ManualClock) {
	t.Helper()
	clock := platform.NewManualClock()
	k, err := kernel.InitKernel(kernel.Config{
		MaxTasks: maxTasks,
		Quantum:  time.Millisecond,
		Clock:    clock,
	})
	require.NoError(t, err)
	return k, clock
}

func noopEntry(*kernel.Kernel, uint8) {}

// Scenario 1: boot with no tasks.
func TestScenarioBootWithNoTasks(t *testing.T) {
	k, clock := newTestKernel(t, kernel.DefaultMaxTasks)
	require.Equal(t, uint32(1), k.LivingTaskCount())

	clock.Tick()
	require.Equal(t, uint8(kernel.IdleTaskID), k.RunningTaskID())
}

// Scenario 2: single task with share 3, running for 10 ticks.
func TestScenarioSingleTaskShare(t *testing.T) {
	k, clock := newTestKernel(t, kernel.DefaultMaxTasks)

	a, err := k.CreateTask(noopEntry, kernel.StateReady, 3)
	require.NoError(t, err)
	require.GreaterOrEqual(t, int(a), 1)
	require.Equal(t, uint32(2), k.LivingTaskCount())

	var ran []uint8
	for i := 0; i < 10; i++ {
		clock.Tick()
		ran = append(ran, k.RunningTaskID())
	}

	for _, id := range ran {
		require.Equal(t, a, id)
	}
}

// Scenario 3: round-robin over shares 2 and 1.
func TestScenarioRoundRobinShares(t *testing.T) {
	k, clock := newTestKernel(t, kernel.DefaultMaxTasks)

	a, err := k.CreateTask(noopEntry, kernel.StateReady, 2)
	require.NoError(t, err)
	b, err := k.CreateTask(noopEntry, kernel.StateReady, 1)
	require.NoError(t, err)

	expected := []uint8{a, a, b, a, a, b, a, a, b}
	var got []uint8
	for i := 0; i < 9; i++ {
		clock.Tick()
		got = append(got, k.RunningTaskID())
	}

	require.Equal(t, expected, got)
}

// Scenario 4: self-termination.
func TestScenarioSelfTermination(t *testing.T) {
	k, clock := newTestKernel(t, kernel.DefaultMaxTasks)

	a, err := k.CreateTask(noopEntry, kernel.StateReady, 1)
	require.NoError(t, err)

	clock.Tick() // a becomes RUNNING
	require.Equal(t, a, k.RunningTaskID())

	k.SetState(a, kernel.StateDead)
	require.NoError(t, k.InvokeScheduler())
	require.Equal(t, uint32(1), k.LivingTaskCount())
	require.Equal(t, uint8(kernel.IdleTaskID), k.RunningTaskID())

	b, err := k.CreateTask(noopEntry, kernel.StateReady, 1)
	require.NoError(t, err)
	require.Equal(t, a, b, "dead slot should be reused")
}

// Scenario 5: pool exhaustion and reuse with MaxTasks = 5.
func TestScenarioPoolExhaustion(t *testing.T) {
	k, _ := newTestKernel(t, 5)

	var created []uint8
	for i := 0; i < 4; i++ {
		id, err := k.CreateTask(noopEntry, kernel.StateReady, 1)
		require.NoError(t, err)
		created = append(created, id)
	}

	_, err := k.CreateTask(noopEntry, kernel.StateReady, 1)
	require.Error(t, err)
	require.True(t, kernel.IsCode(err, kernel.ErrCodePoolExhausted))

	k.SetState(created[0], kernel.StateDead)

	id, err := k.CreateTask(noopEntry, kernel.StateReady, 1)
	require.NoError(t, err)
	require.Equal(t, created[0], id)
}

// Scenario 6: idle re-entry after a sole task goes DORMANT. The task never
// gets a chance to run (no tick has fired yet), so `current` is still the
// idle slot when it is deregistered; the task is its own self-loop, so this
// exercises deregister's sole-member branch, which re-installs idle's
// self-loop.
func TestScenarioIdleReentry(t *testing.T) {
	k, clock := newTestKernel(t, kernel.DefaultMaxTasks)

	a, err := k.CreateTask(noopEntry, kernel.StateReady, 5)
	require.NoError(t, err)

	k.SetState(a, kernel.StateDormant)
	require.Equal(t, uint32(2), k.LivingTaskCount(), "DORMANT != DEAD")

	clock.Tick()
	require.Equal(t, uint8(kernel.IdleTaskID), k.RunningTaskID())
}

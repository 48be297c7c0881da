package kernel

import "time"

// Tick runs one scheduler invocation: the seven steps of spec.md §4.3,
// called from whichever platform.Clock implementation is active (a
// ManualClock in tests, or the pinned goroutine behind a TickerClock in
// production). remainingQuantum starts at 1 so the very first call always
// triggers an immediate context pick.
//
// remainingQuantum is an unsigned counter decremented unconditionally; a
// task whose QuantumShare was never explicitly set (the idle task) decrements
// through zero to the type's maximum value, so once the ring advances onto
// idle, idle keeps the CPU for that many further ticks, including when tasks
// become ready in the meantime. InvokeScheduler's forced tick takes the same
// decrement and does not shorten this. This mirrors the original firmware's
// `--QuantumShare` arithmetic exactly.
func (k *Kernel) Tick() {
	k.criticalSection.Lock()
	defer k.criticalSection.Unlock()
	k.tickLocked()
}

func (k *Kernel) tickLocked() {
	count := k.quantumCount.Add(1)
	if k.cfg.QuantumTrigger != nil {
		k.cfg.QuantumTrigger(count)
	}
	k.observer.ObserveTick()

	k.remainingQuantum--
	if k.remainingQuantum != 0 {
		return
	}

	cur := k.pool.at(k.current)
	if cur.State == StateRunning {
		cur.State = StateReady
		if cur.runStart != 0 {
			k.observer.ObserveRunLength(uint64(time.Now().UnixNano() - cur.runStart))
		}
	}

	k.current = cur.Next
	next := k.pool.at(k.current)
	next.State = StateRunning
	next.runStart = time.Now().UnixNano()
	armResumeSignal(next)

	k.remainingQuantum = next.QuantumShare
	k.observer.ObserveContextSwitch()
}

// armResumeSignal re-primes a task's resume channel on promotion to
// RUNNING, non-blocking so a task that never reads it cannot stall the
// scheduler.
func armResumeSignal(t *TCB) {
	if t.ResumeSignal == nil {
		return
	}
	select {
	case t.ResumeSignal <- struct{}{}:
	default:
	}
}

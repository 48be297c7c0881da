package kernel

import "time"

// ringClass reports whether s counts as a ready-ring member for the
// purposes of the state-change API's register/deregister decision table.
func ringClass(s TaskState) bool {
	return s.inRing()
}

// SetState is the sole entry point for mutating a TCB's state, exactly
// spec.md §4.4's set_state. A call whose new state equals the current state
// is a no-op, checked first inside the critical section, so the
// idempotence law in spec.md §8 holds without perturbing the living count.
func (k *Kernel) SetState(id uint8, newState TaskState) {
	k.criticalSection.Lock()
	defer k.criticalSection.Unlock()
	k.setStateLocked(id, newState)
}

// setStateLocked is SetState's body for callers (CreateTask) that already
// hold the critical section.
func (k *Kernel) setStateLocked(id uint8, newState TaskState) {
	node := k.pool.at(id)
	oldState := node.State
	if oldState == newState {
		return
	}

	if oldState == StateDead && newState != StateDead {
		k.living.Add(1)
	} else if oldState != StateDead && newState == StateDead {
		k.living.Add(^uint32(0)) // -1, wrapping decrement
	}

	if oldState == StateRunning && node.runStart != 0 {
		k.observer.ObserveRunLength(uint64(time.Now().UnixNano() - node.runStart))
	}

	switch {
	case ringClass(newState) && !ringClass(oldState):
		k.register(id)
	case !ringClass(newState) && ringClass(oldState):
		k.deregister(id)
	}

	if newState == StateDead && node.exit != nil {
		close(node.exit)
	}

	node.State = newState
}

package kernel

// CreateTask implements spec.md §4.5's create_task: scan slots 1..MaxTasks-1
// for the first Dead slot, plant entry as the task's "synthetic frame" (Go
// has no stack to plant a frame on, so this spawns a goroutine gated on
// ResumeSignal instead — see runTask), set quantumShare, null the ring
// links, then hand off to SetState for the initial state transition.
// Identity zero is reserved for idle, so a successful return is always >= 1.
func (k *Kernel) CreateTask(entry TaskEntry, initialState TaskState, quantumShare uint32) (uint8, error) {
	k.criticalSection.Lock()
	defer k.criticalSection.Unlock()

	id, ok := k.findDeadSlot()
	if !ok {
		k.observer.ObservePoolExhaustion()
		return 0, NewError("CREATE_TASK", ErrCodePoolExhausted, "no dead slot available")
	}

	node := k.pool.at(id)
	node.Entry = entry
	node.QuantumShare = quantumShare
	node.Next = 0
	node.Prev = 0
	node.ResumeSignal = make(chan struct{}, 1)
	node.exit = make(chan struct{})
	node.runStart = 0

	go k.runTask(id, node.Entry, node.ResumeSignal, node.exit)

	k.setStateLocked(id, initialState)

	k.observer.ObserveTaskCreated()
	return id, nil
}

// findDeadSlot linearly scans slots 1..MaxTasks-1 for the first Dead slot,
// matching spec.md §4.5 step 1. Slot 0 (idle) is never a candidate.
func (k *Kernel) findDeadSlot() (uint8, bool) {
	for i := 1; i < k.pool.Len(); i++ {
		id := uint8(i)
		if k.pool.at(id).State == StateDead {
			return id, true
		}
	}
	return 0, false
}

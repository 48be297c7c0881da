package kernel

// runTask is the one goroutine per task CreateTask spawns: it blocks until
// the scheduler promotes this slot to RUNNING, then calls entry once per
// promotion. This is the nearest honest analogue available to a hosted
// runtime of spec.md §4.5 step 3 ("the task begins executing entry as if
// it had just been preempted") — Go has no stack to plant a synthetic
// frame on, so the task's body runs for real on its own goroutine instead,
// gated by the same resume signal the scheduler already arms on promotion.
// It returns when the slot transitions to DEAD.
func (k *Kernel) runTask(id uint8, entry TaskEntry, resume <-chan struct{}, exit <-chan struct{}) {
	for {
		select {
		case <-exit:
			return
		case <-resume:
			if entry != nil {
				entry(k, id)
			}
		}
	}
}

package kernel

// currentIsIdle reports whether the current-task pointer is the idle slot.
func (k *Kernel) currentIsIdle() bool {
	return k.current == IdleTaskID
}

// ringIsIdleSelfLoop reports whether the idle slot is presently the sole
// ring member (its own Next points back to itself).
func (k *Kernel) ringIsIdleSelfLoop() bool {
	return k.pool.at(IdleTaskID).Next == IdleTaskID
}

// register splices slot id into the ready ring, replicating spec.md §4.2's
// three cases over slot indices instead of pointers. Callers must already
// hold the critical section. register does not consult id's state; the
// caller (SetState) decides when this is appropriate.
//
// Case 1 leaves the idle slot linked (idle.Next == id) until the scheduler
// tick next advances past it — an R2-violating handoff window the source
// material leaves ambiguous as intentional-or-not; this preserves the
// observed behavior rather than guessing.
func (k *Kernel) register(id uint8) {
	cur := k.pool.at(k.current)
	node := k.pool.at(id)

	switch {
	case k.currentIsIdle() && k.ringIsIdleSelfLoop():
		node.Next = id
		node.Prev = id
		cur.Next = id

	case k.currentIsIdle() && !k.ringIsIdleSelfLoop():
		predIdx, succIdx := cur.Prev, cur.Next
		k.pool.at(predIdx).Next = id
		k.pool.at(succIdx).Prev = id
		node.Next = succIdx
		node.Prev = predIdx

	default:
		predIdx := cur.Prev
		k.pool.at(predIdx).Next = id
		node.Prev = predIdx
		node.Next = k.current
	}

	cur.Prev = id
}

// deregister removes slot id from the ready ring, per spec.md §4.2: if id
// was the sole ring member, idle is re-installed as a self-looped singleton;
// otherwise id is spliced out by its own prev/next links.
//
// The source material's raw register/deregister routines branch on whether
// `current` (not id) is self-looped or idle, which only produces correct
// unlinking when id happens to equal current — true for the common
// self-transition call pattern, but wrong in general. spec.md's own
// prose already states deregister purely in terms of id's own links, which
// is what's implemented here; the open question in spec.md §9 about the
// raw source's conflated condition is resolved by following the spec's
// literal, id-based wording rather than reproducing the source's narrower
// case (see DESIGN.md).
//
// id's own Next is redirected to the idle slot in the singleton case so
// that whichever slot `current` happens to be — id itself, mid
// self-termination, or idle already (per the flagged register case-1
// handoff window) — advances correctly to idle on the scheduler's next
// traversal.
func (k *Kernel) deregister(id uint8) {
	node := k.pool.at(id)

	if node.Next == id {
		node.Next = IdleTaskID
		node.Prev = IdleTaskID
		idle := k.pool.at(IdleTaskID)
		idle.Next = IdleTaskID
		idle.Prev = IdleTaskID
		return
	}

	k.pool.at(node.Prev).Next = node.Next
	k.pool.at(node.Next).Prev = node.Prev
}

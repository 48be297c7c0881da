package kernel

// Pool-sizing defaults.
const (
	// DefaultMaxTasks mirrors the original firmware's typical DK_MAXIMUM_TASKS.
	DefaultMaxTasks = 8

	// IdleTaskID is the reserved identity of the idle task; slot zero.
	IdleTaskID = 0

	// MinMaxTasks is the smallest legal pool size: idle plus one application task.
	MinMaxTasks = 2
)

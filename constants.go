// Package dkernel re-exports the kernel package's headline constants at the
// module root, the way the teacher's own constants.go re-exports its
// internal device defaults. Callers needing the error/metrics vocabulary
// (*kernel.Error, kernel.IsCode, kernel.Metrics) import the kernel package
// directly.
package dkernel

import "github.com/niedzielski/dkernel/kernel"

// Kernel-wide defaults, re-exported at the package root the way the teacher
// re-exports device defaults in its own constants.go.
const (
	DefaultMaxTasks = kernel.DefaultMaxTasks
	IdleTaskID      = kernel.IdleTaskID
	MinMaxTasks     = kernel.MinMaxTasks
)

//go:build !dkernel_debug

package kernel

// Assert is a no-op outside dkernel_debug builds, matching the original
// firmware's DK_DEBUG_MODE == 0 compiling DK_Assert away to nothing.
func Assert(cond bool, format string, args ...any) {}

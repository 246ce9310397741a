//go:build !nostack

package errors

import (
	"fmt"
	"runtime"
	"strings"
)

const stackDepth = 32

// captureStack returns a formatted call-stack string starting two frames
// above the caller (skipping captureStack itself and New/Wrap). Compiled out
// under -tags nostack by stack_disabled.go.
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// Package assert implements contract checks for programming errors.
//
// In strict mode a failed check panics so that the error surfaces during
// development and in tests. Otherwise the failure is logged as a warning and
// the caller is expected to return early with a safe value.
package assert

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

var strict atomic.Bool

// SetStrict enables or disables panicking on failed checks.
func SetStrict(enabled bool) {
	strict.Store(enabled)
}

// Strict reports whether failed checks panic.
func Strict() bool {
	return strict.Load()
}

// Violation is the panic value raised by failed checks in strict mode.
type Violation struct {
	Message string
}

func (v Violation) Error() string {
	return "contract violation: " + v.Message
}

// Verify returns cond. If cond is false it either panics (strict mode) or logs
// a warning with msg and the optional key/value args.
func Verify(cond bool, msg string, args ...any) bool {
	if cond {
		return true
	}
	fail(msg, args...)
	return false
}

// Debug checks an internal consistency condition. Unlike Verify the result is
// not meant to drive control flow; in non-strict mode only a debug message is
// logged.
func Debug(cond bool, msg string, args ...any) {
	if cond {
		return
	}
	if strict.Load() {
		panic(Violation{Message: format(msg, args...)})
	}
	slog.Debug("Consistency check failed: "+msg, args...)
}

func fail(msg string, args ...any) {
	if strict.Load() {
		panic(Violation{Message: format(msg, args...)})
	}
	slog.Warn("Contract violation: "+msg, args...)
}

func format(msg string, args ...any) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf("%s %v", msg, args)
}

package pageverify

import (
	"fmt"
	"time"
)

// WaitPolicy decides when a navigation is considered settled. The zero
// value behaves like NetworkIdle.
type WaitPolicy struct {
	fixed time.Duration
}

// NetworkIdle waits until no network request has been active for the
// configured quiet window.
func NetworkIdle() WaitPolicy {
	return WaitPolicy{}
}

// FixedDelay waits for the given duration regardless of network activity.
// Useful when visual readiness depends on animation timing rather than
// network idleness.
func FixedDelay(d time.Duration) WaitPolicy {
	return WaitPolicy{fixed: d}
}

func (w WaitPolicy) isFixed() bool {
	return w.fixed > 0
}

func (w WaitPolicy) String() string {
	if w.isFixed() {
		return fmt.Sprintf("fixed delay %s", w.fixed)
	}
	return "network idle"
}

// CaptureScope selects what a screenshot covers.
type CaptureScope struct {
	full     bool
	selector string
}

// FullPage captures the entire rendered page.
func FullPage() CaptureScope {
	return CaptureScope{full: true}
}

// Element captures the bounding region of the first element matching the
// selector. If nothing matches, the capture is skipped, not fatal.
func Element(selector string) CaptureScope {
	return CaptureScope{selector: selector}
}

func (c CaptureScope) String() string {
	if c.full {
		return "full page"
	}
	return fmt.Sprintf("element %q", c.selector)
}

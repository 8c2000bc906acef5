package providers

import (
	"github.com/benbjohnson/clock"
)

// Clock is the wall-clock source the registry reads from. It is
// benbjohnson/clock's Clock interface, which bundles both a clock and
// a timer source: Now() for reading time and Timer(d) for arming the
// sweep's periodic tick. Tests inject clock.NewMock() to drive virtual
// time instead of a real sleep.
type Clock = clock.Clock

// Timer is the handle returned by Clock.Timer: a channel that fires
// once, plus Stop/Reset. Re-exported so callers outside this package
// never need to import benbjohnson/clock directly.
type Timer = clock.Timer

// realClock is the Clock used when none is supplied to NewRegistry.
func realClock() Clock {
	return clock.New()
}

package monitor

import "time"

// Options is the tunable surface of a monitor Run loop (spec.md §4.3/§6.3).
type Options struct {
	// Interval is how long to sleep between loop ticks outside blocking mode.
	Interval time.Duration

	// Blocking, when true, asserts BUSY for the span of steps 1-5 of each
	// tick instead of releasing the lock immediately, per the Open
	// Question decision recorded in SPEC_FULL.md: BUSY is never held
	// across the sleep itself.
	Blocking bool

	// Snapshot reads the whole region in one probe round-trip per tick
	// instead of one read per step, at the cost of skipping input-request
	// service and file-transfer driving for that tick.
	Snapshot bool

	// ShowTime prefixes each drained output line with a timestamp.
	ShowTime bool

	// HeaderRetryBudget bounds how many times a tick retries reading the
	// header after a read failure or bad magic before it warns and moves on
	// to the next tick (spec.md §4.3 step 1). Out-of-range offsets are not
	// retried within the tick; it warns and waits for the next one.
	HeaderRetryBudget int

	// TransferPollBudget is handed to the internal/transfer.Driver serving
	// FILE_SEND/FILE_RECV.
	TransferPollBudget int
}

// DefaultOptions returns the values spec.md §4.3 names explicitly (100ms
// interval) with conservative defaults for the knobs it leaves
// unspecified.
func DefaultOptions() Options {
	return Options{
		Interval:           100 * time.Millisecond,
		HeaderRetryBudget:  5,
		TransferPollBudget: 1_000_000,
	}
}

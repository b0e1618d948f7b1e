package record

import "time"

// Clock produces the microsecond timestamps stamped onto new records.
// Abstracted so tests can supply deterministic sequences instead of
// depending on wall-clock time.
type Clock interface {
	Now() uint64
}

// SystemClock stamps records with the current wall-clock time, in
// microseconds since the Unix epoch.
type SystemClock struct{}

// Now returns the current time as microseconds since the Unix epoch.
func (SystemClock) Now() uint64 {
	return uint64(time.Now().UnixMicro())
}

// FixedClock is a Clock that always returns the same timestamp, useful
// for golden-output tests.
type FixedClock uint64

// Now returns the fixed timestamp.
func (c FixedClock) Now() uint64 {
	return uint64(c)
}

// SequenceClock returns strictly increasing timestamps starting at
// the value given to NewSequenceClock, incrementing by one microsecond on every call. Useful for tests
// that need a deterministic but distinguishable ordering of writes.
type SequenceClock struct {
	next uint64
}

// NewSequenceClock returns a SequenceClock whose first Now() call
// yields start.
func NewSequenceClock(start uint64) *SequenceClock {
	return &SequenceClock{next: start}
}

// Now returns the next timestamp in the sequence.
func (c *SequenceClock) Now() uint64 {
	v := c.next
	c.next++
	return v
}

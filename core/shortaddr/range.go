package shortaddr

import (
	"errors"
	"fmt"
)

// Range is a range of short addresses from (inclusive) Start to
// (inclusive) End
type Range struct {
	Start ShortAddr
	End   ShortAddr
}

// DefaultRange is the range of short addresses reserved for allocation
var DefaultRange = Range{Start: RangeStart, End: RangeEnd}

// Len returns the number of addresses inside the range
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}

	return int(r.End) - int(r.Start) + 1
}

// Contains checks if a is part of the range
func (r Range) Contains(a ShortAddr) bool {
	return r.Start <= a && a <= r.End
}

// Next returns the address following a. Once the end of the range is
// reached the next candidate would be Boundary (or beyond) so Next
// wraps to Start
func (r Range) Next(a ShortAddr) ShortAddr {
	if a < r.Start || a >= r.End {
		return r.Start
	}

	return a + 1
}

// Validate the range and return any error encountered
func (r Range) Validate() error {
	if r.Start > r.End {
		return fmt.Errorf("invalid range %s: start is after end", r)
	}

	if r.Start < RangeStart {
		return errors.New("invalid range: start must not be below " + RangeStart.String())
	}

	if r.End >= Boundary {
		return errors.New("invalid range: end must be below " + Boundary.String())
	}

	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

package scrape

import "time"

// Budget tracks the wall-clock allowance of one scrape run. The margin
// is time reserved at the end for assembling the response, so work is
// refused while the clock still shows a little time left.
type Budget struct {
	deadline time.Time
	margin   time.Duration
}

// NewBudget starts a budget of limit from now, keeping margin in
// reserve.
func NewBudget(limit, margin time.Duration) *Budget {
	return &Budget{deadline: time.Now().Add(limit), margin: margin}
}

// Remaining reports time left before the hard deadline.
func (b *Budget) Remaining() time.Duration {
	return time.Until(b.deadline)
}

// Allows reports whether cost fits in the budget with the margin still
// intact. A zero cost asks only whether any usable time remains.
func (b *Budget) Allows(cost time.Duration) bool {
	return b.Remaining()-b.margin >= cost
}

// TargetBudget splits the usable remainder evenly across n targets, so
// one slow platform cannot starve the others of navigation time.
func (b *Budget) TargetBudget(n int) time.Duration {
	usable := b.Remaining() - b.margin
	if usable < 0 {
		return 0
	}
	if n <= 1 {
		return usable
	}
	return usable / time.Duration(n)
}

// Clamp bounds d to the usable remainder of the budget. Navigation
// timeouts pass through here so a page load can never outlive the run.
func (b *Budget) Clamp(d time.Duration) time.Duration {
	usable := b.Remaining() - b.margin
	if usable < 0 {
		return 0
	}
	if d > usable {
		return usable
	}
	return d
}

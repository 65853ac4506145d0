package core

import "fmt"

// StepLimiter counts the turns of one Run. It is not safe for concurrent use.
type StepLimiter struct {
	max   int
	taken int
}

// NewStepLimiter returns a limiter allowing max turns; zero or less means
// no limit.
func NewStepLimiter(max int) *StepLimiter {
	return &StepLimiter{max: max}
}

// Next claims the next turn. It fails with an error wrapping ErrStepLimit
// once max turns were taken.
func (l *StepLimiter) Next() error {
	if l.max > 0 && l.taken >= l.max {
		return fmt.Errorf("%w: %d turns taken", ErrStepLimit, l.taken)
	}
	l.taken++
	return nil
}

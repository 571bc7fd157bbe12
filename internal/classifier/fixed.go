package classifier

import (
	"context"
	"time"
)

// Fixed reports the same result for every image after an artificial delay.
// It stands in for a real model until one is wired up.
type Fixed struct {
	Result Result
	Delay  time.Duration
}

// NewFixed returns the stand-in that always reports a glioma at 0.95.
func NewFixed(delay time.Duration) *Fixed {
	return &Fixed{
		Result: Result{
			Label:      LabelTumor,
			Confidence: 0.95,
			TumorType:  "glioma",
			IsHealthy:  false,
		},
		Delay: delay,
	}
}

func (f *Fixed) Classify(ctx context.Context, _ Image) (*Result, error) {
	if f.Delay > 0 {
		timer := time.NewTimer(f.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	res := f.Result
	return &res, nil
}

package boundary

import (
	"context"
	"time"

	"github.com/bullrushinvestments/carbonclicks/pkg/field"
	"github.com/bullrushinvestments/carbonclicks/pkg/submission"
)

// DefaultSimulatedDelay matches the requirements form's stand-in call.
const DefaultSimulatedDelay = 2 * time.Second

// Simulated settles after Delay without leaving the process. Result decides
// the outcome; nil echoes the values back as the success data.
type Simulated struct {
	Delay  time.Duration
	Result func(field.Values) submission.Outcome
}

// Submit implements submission.Boundary. Cancelling ctx settles early with the
// context error.
func (s Simulated) Submit(ctx context.Context, values field.Values) submission.Outcome {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return submission.Fail(ctx.Err())
		case <-timer.C:
		}
	}
	if s.Result != nil {
		return s.Result(values)
	}
	return submission.Ok(values.Clone())
}

// Func adapts a conventional (result, error) function.
func Func(fn func(ctx context.Context, values field.Values) (any, error)) submission.Boundary {
	return submission.BoundaryFunc(func(ctx context.Context, values field.Values) submission.Outcome {
		data, err := fn(ctx, values)
		if err != nil {
			return submission.Fail(err)
		}
		return submission.Ok(data)
	})
}

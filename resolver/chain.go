package resolver

import (
	"context"
	"errors"
	"fmt"
)

// Strategy is one way of turning In into Out.
type Strategy[In, Out any] struct {
	Name string
	Run  func(ctx context.Context, in In) (Out, error)
}

// FirstSuccess tries the strategies in order and returns the output and name
// of the first one that does not fail. When all fail the joined errors are
// returned, each prefixed with its strategy name.
func FirstSuccess[In, Out any](ctx context.Context, in In, strategies ...Strategy[In, Out]) (Out, string, error) {
	var zero Out
	errs := make([]error, 0, len(strategies))
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		out, err := s.Run(ctx, in)
		if err == nil {
			return out, s.Name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	if len(errs) == 0 {
		return zero, "", errors.New("no strategies")
	}

	return zero, "", errors.Join(errs...)
}

package stage

import (
	"context"
	"errors"
	"time"

	"avatarstudio/internal/services"
)

// Retry runs fn up to attempts+1 times. It stops early on success, on a
// failure that services.IsRetryable rejects, or when ctx is done. The wait
// between tries grows linearly with backoff.
func Retry(ctx context.Context, attempts int, backoff time.Duration, fn func(ctx context.Context, attempt int) error) error {
	if attempts < 0 {
		attempts = 0
	}
	var err error
	for attempt := 0; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			if err != nil {
				return err
			}
			return ContextError(ctx)
		}
		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if !services.IsRetryable(err) || attempt == attempts {
			return err
		}
		if backoff > 0 {
			timer := time.NewTimer(backoff * time.Duration(attempt+1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
	}
	return err
}

// ContextError classifies the end of ctx as a timeout when its deadline
// passed and as a cancellation otherwise.
func ContextError(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Timeout("stage exceeded its time budget", err)
	}
	return services.Cancelled("stage cancelled")
}

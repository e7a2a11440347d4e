package pipe

import (
	"context"
	"time"
)

// RateLimit forwards items from input at most ratePerSecond times per second.
// A rate of zero or less returns input unchanged.
func RateLimit[T any](ctx context.Context, input <-chan T, ratePerSecond int, bufferSize int) <-chan T {
	if ratePerSecond <= 0 {
		return input
	}
	output := make(chan T, bufferSize)
	go func() {
		defer close(output)
		ticker := time.NewTicker(time.Second / time.Duration(ratePerSecond))
		defer ticker.Stop()
		for item := range input {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
			select {
			case output <- item:
			case <-ctx.Done():
				return
			}
		}
	}()
	return output
}

package client

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws/retry"
)

// WithoutBackoff makes retries immediate.
func WithoutBackoff() Options {
	return func(o *options) {
		o.backoff = retry.BackoffDelayerFunc(func(int, error) (time.Duration, error) {
			return 0, nil
		})
	}
}

// WithSleep overrides the wait between attempts.
func WithSleep(sleep func(context.Context, time.Duration) error) Options {
	return func(o *options) {
		o.sleep = sleep
	}
}

// WithClock sets the clock used to sign requests.
func WithClock(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}

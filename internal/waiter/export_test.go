package waiter

import (
	"context"
	"time"
)

// WithSleep overrides the wait between attempts.
func WithSleep(sleep func(context.Context, time.Duration) error) Options {
	return func(o *options) {
		o.sleep = sleep
	}
}

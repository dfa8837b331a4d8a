package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testApp struct {
	runError        bool
	userErrorReturn bool
	waitCtx         bool
}

func (a testApp) Run(ctx context.Context) error {
	if a.waitCtx {
		<-ctx.Done()
		return ctx.Err()
	}
	if a.runError {
		return errors.New("run error!")
	}
	return nil
}

func (a testApp) UsageError() bool {
	return a.userErrorReturn
}

func TestRun(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		runError   bool
		usageError bool
		cancel     bool

		wantReturnCode int
	}{
		"Run and exit successfully":                        {},
		"Run and exit error":                               {runError: true, wantReturnCode: 1},
		"Run and exit with usage error":                    {usageError: true, runError: true, wantReturnCode: 2},
		"Run and return with usage error but no run error": {usageError: true, wantReturnCode: 0},
		"Run and exit error when interrupted":              {cancel: true, wantReturnCode: 1},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			a := testApp{
				runError:        tc.runError,
				userErrorReturn: tc.usageError,
				waitCtx:         tc.cancel,
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tc.cancel {
				time.AfterFunc(50*time.Millisecond, cancel)
			}

			if rc := run(ctx, a); rc != tc.wantReturnCode {
				t.Errorf("run() = %v, want %v", rc, tc.wantReturnCode)
			}
		})
	}
}

package waiter_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/norikmb/nifcloud-sdk-go/internal/waiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCaller returns its results in order, repeating the last one.
type scriptedCaller struct {
	results []result
	calls   int
}

type result struct {
	out map[string]any
	err error
}

func (s *scriptedCaller) Call(context.Context, string, map[string]any) (map[string]any, error) {
	r := s.results[min(s.calls, len(s.results)-1)]
	s.calls++
	return r.out, r.err
}

func instances(states ...string) result {
	var set []any
	for _, s := range states {
		set = append(set, map[string]any{"InstanceState": map[string]any{"Name": s}})
	}
	return result{out: map[string]any{
		"ReservationSet":   []any{map[string]any{"InstancesSet": set}},
		"ResponseMetadata": map[string]any{"HTTPStatusCode": 200},
	}}
}

func apiError(status int, code string) result {
	return result{err: &smithy.OperationError{
		ServiceID:     "computing",
		OperationName: "DescribeInstances",
		Err: &awshttp.ResponseError{
			ResponseError: &smithyhttp.ResponseError{
				Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
				Err:      &smithy.GenericAPIError{Code: code, Message: "boom"},
			},
			RequestID: "req-1",
		},
	}}
}

func computingWaiter(t *testing.T, name string) *model.Waiter {
	t.Helper()

	s, err := model.NewLoader().LoadService("computing", "")
	require.NoError(t, err, "Setup: builtin service should load")
	w, ok := s.Waiters[name]
	require.True(t, ok, "Setup: waiter %s should exist", name)
	return w
}

func TestWait(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		waiter  string
		model   *model.Waiter
		results []result
		cfg     waiter.Config

		wantCalls int
		wantErr   error
	}{
		"Success once every instance runs": {
			waiter:    "InstanceRunning",
			results:   []result{instances("pending", "running"), instances("running", "running")},
			wantCalls: 2,
		},
		"Failure when any instance warns": {
			waiter:    "InstanceRunning",
			results:   []result{instances("pending"), instances("warning", "running")},
			wantCalls: 2, wantErr: waiter.ErrFailureState,
		},
		"Max attempts from the config": {
			waiter:    "InstanceRunning",
			results:   []result{instances("pending")},
			cfg:       waiter.Config{MaxAttempts: 3},
			wantCalls: 3, wantErr: waiter.ErrMaxAttempts,
		},
		"Error matcher reaches success": {
			waiter:    "InstanceDeleted",
			results:   []result{instances("running"), apiError(400, "Client.InvalidParameterNotFound.Instance")},
			wantCalls: 2,
		},
		"Unexpected service error stops the wait": {
			waiter:    "InstanceRunning",
			results:   []result{apiError(400, "Client.Unauthorized")},
			wantCalls: 1, wantErr: waiter.ErrUnexpectedError,
		},
		"Transport errors stop the wait": {
			waiter:    "InstanceRunning",
			results:   []result{{err: errors.New("connection refused")}},
			wantCalls: 1, wantErr: errors.New("connection refused"),
		},
		"Status matcher": {
			model: &model.Waiter{Operation: "Op", Delay: 1, MaxAttempts: 5, Acceptors: []model.Acceptor{
				{Matcher: "status", Expected: float64(404), State: waiter.StateSuccess},
			}},
			results:   []result{instances("pending"), apiError(404, "NotFound")},
			wantCalls: 2,
		},
		"Error matcher with a boolean": {
			model: &model.Waiter{Operation: "Op", Delay: 1, MaxAttempts: 5, Acceptors: []model.Acceptor{
				{Matcher: "error", Expected: false, State: waiter.StateSuccess},
				{Matcher: "error", Expected: true, State: waiter.StateRetry},
			}},
			results:   []result{apiError(500, "InternalError"), instances("running")},
			wantCalls: 2,
		},
		"Path matcher with retry state": {
			model: &model.Waiter{Operation: "Op", Delay: 1, MaxAttempts: 5, Acceptors: []model.Acceptor{
				{Matcher: "path", Argument: "ReservationSet[0].InstancesSet[0].InstanceState.Name", Expected: "pending", State: waiter.StateRetry},
				{Matcher: "path", Argument: "ReservationSet[0].InstancesSet[0].InstanceState.Name", Expected: "stopped", State: waiter.StateSuccess},
			}},
			results:   []result{instances("pending"), instances("pending"), instances("stopped")},
			wantCalls: 3,
		},
		"Empty list does not satisfy pathAll": {
			model: &model.Waiter{Operation: "Op", Delay: 1, MaxAttempts: 2, Acceptors: []model.Acceptor{
				{Matcher: "pathAll", Argument: "ReservationSet[].InstancesSet[].InstanceState.Name", Expected: "running", State: waiter.StateSuccess},
			}},
			results:   []result{instances()},
			wantCalls: 2, wantErr: waiter.ErrMaxAttempts,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m := tc.model
			if m == nil {
				m = computingWaiter(t, tc.waiter)
			}
			caller := &scriptedCaller{results: tc.results}
			var slept []time.Duration
			w, err := waiter.New(name, m, caller, waiter.WithSleep(func(_ context.Context, d time.Duration) error {
				slept = append(slept, d)
				return nil
			}))
			require.NoError(t, err, "New should succeed")

			out, err := w.Wait(context.Background(), map[string]any{"InstanceId": []any{"web1"}}, tc.cfg)
			assert.Equal(t, tc.wantCalls, caller.calls, "Number of polls should match")
			assert.Len(t, slept, tc.wantCalls-1, "The waiter should sleep between polls only")
			if tc.wantErr != nil {
				require.Error(t, err, "Wait should fail")
				var werr *waiter.Error
				if errors.As(err, &werr) {
					require.ErrorIs(t, err, tc.wantErr, "Wait should fail with the expected reason")
					assert.NotNil(t, werr.LastResponse, "The last response should be kept")
					return
				}
				assert.Equal(t, tc.wantErr.Error(), err.Error(), "Non service errors should be returned as is")
				return
			}
			require.NoError(t, err, "Wait should succeed")
			assert.NotNil(t, out, "Wait should return the last output")
			if tc.model == nil {
				assert.Equal(t, time.Duration(m.Delay)*time.Second, slept[0], "Delay should come from the model")
			}
		})
	}
}

func TestWaitCancelled(t *testing.T) {
	t.Parallel()

	w, err := waiter.New("InstanceRunning", computingWaiter(t, "InstanceRunning"), &scriptedCaller{results: []result{instances("pending")}})
	require.NoError(t, err, "New should succeed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Wait(ctx, nil, waiter.Config{Delay: time.Hour})
	require.ErrorIs(t, err, context.Canceled, "Wait should stop with the context")
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := map[string]model.Acceptor{
		"Error on unknown matcher": {Matcher: "nope", State: waiter.StateSuccess},
		"Error on unknown state":   {Matcher: "status", Expected: float64(200), State: "maybe"},
		"Error on bad path":        {Matcher: "path", Argument: "A[", State: waiter.StateSuccess},
	}

	for name, acc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := waiter.New("W", &model.Waiter{Operation: "Op", Acceptors: []model.Acceptor{acc}}, &scriptedCaller{})
			require.ErrorIs(t, err, waiter.ErrInvalidWaiter, "New should reject the model")
		})
	}

	w, err := waiter.New("InstanceRunning", computingWaiter(t, "InstanceRunning"), &scriptedCaller{})
	require.NoError(t, err, "New should accept builtin models")
	assert.Equal(t, "InstanceRunning", w.Name())
	assert.Equal(t, "DescribeInstances", w.Operation())
}

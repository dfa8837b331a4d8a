// Package waiter polls an operation until the acceptors of a waiter model reach a final state.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	"github.com/norikmb/nifcloud-sdk-go/internal/jpath"
	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/tidwall/gjson"
)

var (
	// ErrFailureState is wrapped when an acceptor moves the waiter to failure.
	ErrFailureState = errors.New("terminal failure state")
	// ErrMaxAttempts is wrapped when the waiter gives up.
	ErrMaxAttempts = errors.New("max attempts exceeded")
	// ErrUnexpectedError is wrapped when the service returns an error no acceptor expects.
	ErrUnexpectedError = errors.New("unexpected service error")
	// ErrInvalidWaiter is returned for a waiter model that cannot run.
	ErrInvalidWaiter = errors.New("invalid waiter")
)

// Acceptor states.
const (
	StateSuccess = "success"
	StateFailure = "failure"
	StateRetry   = "retry"
)

// Error is returned when a wait does not succeed.
type Error struct {
	Name   string
	Reason string
	// LastResponse is the last output, or the error document of the last call.
	LastResponse map[string]any

	err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("waiter %s failed: %s", e.Name, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Caller runs an operation.
type Caller interface {
	Call(ctx context.Context, operation string, params map[string]any) (map[string]any, error)
}

// Config overrides the timing of the model.
type Config struct {
	Delay       time.Duration
	MaxAttempts int
}

type acceptor struct {
	model.Acceptor
	path *jpath.Expr
}

// Waiter runs one waiter model.
type Waiter struct {
	name      string
	operation string
	delay     time.Duration
	attempts  int
	acceptors []acceptor

	caller Caller
	log    *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

type options struct {
	log   *slog.Logger
	sleep func(context.Context, time.Duration) error
}

// Options represents an optional function to override waiter default values.
type Options func(*options)

// WithLogger sets the logger of the waiter.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// New returns the waiter name described by m.
func New(name string, m *model.Waiter, caller Caller, args ...Options) (*Waiter, error) {
	opts := options{
		log:   slog.Default(),
		sleep: sleepContext,
	}
	for _, opt := range args {
		opt(&opts)
	}

	w := &Waiter{
		name:      name,
		operation: m.Operation,
		delay:     time.Duration(m.Delay) * time.Second,
		attempts:  m.MaxAttempts,
		caller:    caller,
		log:       opts.log,
		sleep:     opts.sleep,
	}
	for i, a := range m.Acceptors {
		acc := acceptor{Acceptor: a}
		switch a.Matcher {
		case "path", "pathAll", "pathAny":
			e, err := jpath.Compile(a.Argument)
			if err != nil {
				return nil, fmt.Errorf("%w %s: acceptor %d: %v", ErrInvalidWaiter, name, i, err)
			}
			acc.path = e
		case "status", "error":
		default:
			return nil, fmt.Errorf("%w %s: unknown matcher %q", ErrInvalidWaiter, name, a.Matcher)
		}
		switch a.State {
		case StateSuccess, StateFailure, StateRetry:
		default:
			return nil, fmt.Errorf("%w %s: unknown state %q", ErrInvalidWaiter, name, a.State)
		}
		w.acceptors = append(w.acceptors, acc)
	}
	return w, nil
}

// Name returns the waiter name.
func (w *Waiter) Name() string {
	return w.name
}

// Operation returns the API name of the polled operation.
func (w *Waiter) Operation() string {
	return w.operation
}

// Wait polls until success, failure or the attempt limit. It returns the last output on success.
// Errors not reported by the service, such as transport errors, stop the wait immediately.
func (w *Waiter) Wait(ctx context.Context, params map[string]any, cfg Config) (map[string]any, error) {
	delay, attempts := w.delay, w.attempts
	if cfg.Delay > 0 {
		delay = cfg.Delay
	}
	if cfg.MaxAttempts > 0 {
		attempts = cfg.MaxAttempts
	}
	if attempts <= 0 {
		attempts = 1
	}

	var last *acceptor
	for n := 1; ; n++ {
		resp, err := w.caller.Call(ctx, w.operation, params)
		if err != nil {
			doc, ok := errorDocument(err)
			if !ok {
				return nil, err
			}
			resp = doc
		}

		state := StateRetry
		matched := w.match(resp)
		if matched != nil {
			last = matched
			state = matched.State
		} else if _, isErr := resp["Error"]; isErr {
			return nil, &Error{
				Name:         w.name,
				Reason:       fmt.Sprintf("an error occurred (%s): %s", errorField(resp, "Code"), errorField(resp, "Message")),
				LastResponse: resp,
				err:          ErrUnexpectedError,
			}
		}
		w.log.Debug("Waiter attempt", "waiter", w.name, "attempt", n, "state", state)

		switch state {
		case StateSuccess:
			return resp, nil
		case StateFailure:
			return nil, &Error{
				Name:         w.name,
				Reason:       fmt.Sprintf("waiter encountered a terminal failure state: %s", describe(matched)),
				LastResponse: resp,
				err:          ErrFailureState,
			}
		}

		if n >= attempts {
			reason := "max attempts exceeded"
			if last != nil {
				reason += fmt.Sprintf(". Previously accepted state: %s", describe(last))
			}
			return nil, &Error{Name: w.name, Reason: reason, LastResponse: resp, err: ErrMaxAttempts}
		}
		if err := w.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (w *Waiter) match(resp map[string]any) *acceptor {
	doc, err := jpath.Document(resp)
	if err != nil {
		return nil
	}
	_, isErr := resp["Error"]

	for i := range w.acceptors {
		a := &w.acceptors[i]
		if a.matches(doc, isErr) {
			return a
		}
	}
	return nil
}

func (a *acceptor) matches(doc gjson.Result, isErr bool) bool {
	switch a.Matcher {
	case "path":
		return !isErr && reflect.DeepEqual(a.path.Search(doc), a.Expected)
	case "pathAll":
		if isErr {
			return false
		}
		list, ok := a.path.Search(doc).([]any)
		if !ok || len(list) == 0 {
			return false
		}
		for _, v := range list {
			if !reflect.DeepEqual(v, a.Expected) {
				return false
			}
		}
		return true
	case "pathAny":
		if isErr {
			return false
		}
		list, _ := a.path.Search(doc).([]any)
		for _, v := range list {
			if reflect.DeepEqual(v, a.Expected) {
				return true
			}
		}
		return false
	case "status":
		return reflect.DeepEqual(doc.Get("ResponseMetadata.HTTPStatusCode").Value(), a.Expected)
	case "error":
		if b, ok := a.Expected.(bool); ok {
			return isErr == b
		}
		return isErr && doc.Get("Error.Code").String() == a.Expected
	}
	return false
}

// errorDocument turns a service error into the document acceptors match against.
func errorDocument(err error) (map[string]any, bool) {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return nil, false
	}
	doc := map[string]any{
		"Error": map[string]any{
			"Code":    apiErr.ErrorCode(),
			"Message": apiErr.ErrorMessage(),
		},
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		doc["ResponseMetadata"] = map[string]any{
			"HTTPStatusCode": respErr.HTTPStatusCode(),
			"RequestId":      respErr.ServiceRequestID(),
		}
	}
	return doc, true
}

func errorField(resp map[string]any, key string) string {
	e, _ := resp["Error"].(map[string]any)
	s, _ := e[key].(string)
	return s
}

func describe(a *acceptor) string {
	if a == nil {
		return ""
	}
	if a.Argument != "" {
		return fmt.Sprintf("For expression %q we matched expected path: %v", a.Argument, a.Expected)
	}
	return fmt.Sprintf("Matched expected %s: %v", a.Matcher, a.Expected)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package nifcloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/norikmb/nifcloud-sdk-go/internal/client"
	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/norikmb/nifcloud-sdk-go/internal/paginate"
	"github.com/norikmb/nifcloud-sdk-go/internal/waiter"
	"github.com/ubuntu/decorate"
)

var (
	// ErrUnknownOperation is returned for an operation missing from the model.
	ErrUnknownOperation = client.ErrUnknownOperation
	// ErrCannotPaginate is returned when the operation has no paginator.
	ErrCannotPaginate = errors.New("operation cannot be paginated")
	// ErrUnknownWaiter is returned when the service has no such waiter.
	ErrUnknownWaiter = errors.New("unknown waiter")
	// ErrNoMorePages is returned by NextPage once the last page was read.
	ErrNoMorePages = paginate.ErrNoMorePages
	// ErrWaiterFailure is returned when a waiter reached a failure state.
	ErrWaiterFailure = waiter.ErrFailureState
	// ErrWaiterMaxAttempts is returned when a waiter gave up.
	ErrWaiterMaxAttempts = waiter.ErrMaxAttempts
)

// WaiterError is the error of a waiter that did not succeed. It keeps the last response.
type WaiterError = waiter.Error

// Client calls the operations of one service.
type Client struct {
	inner *client.Client
	svc   *model.Service
	log   *slog.Logger
}

// Meta describes a client.
type Meta struct {
	ServiceName      string
	ServiceFullName  string
	APIVersion       string
	Protocol         string
	SignatureVersion string
	Region           string
	EndpointURL      string
	MaxAttempts      int
}

// Method runs one operation.
type Method func(ctx context.Context, input any) (*Output, error)

// Meta returns the metadata of the client.
func (c *Client) Meta() Meta {
	md := c.svc.API.Metadata
	return Meta{
		ServiceName:      c.svc.Name,
		ServiceFullName:  md.ServiceFullName,
		APIVersion:       c.svc.APIVersion,
		Protocol:         md.Protocol,
		SignatureVersion: md.SignatureVersion,
		Region:           c.inner.Region(),
		EndpointURL:      c.inner.Endpoint(),
		MaxAttempts:      c.inner.MaxAttempts(),
	}
}

// Operations returns the sorted API names of the operations.
func (c *Client) Operations() []string {
	return c.svc.API.OperationNames()
}

// Methods returns the sorted method names of the operations, like describe_instances.
func (c *Client) Methods() []string {
	return c.svc.API.MethodNames()
}

// Method returns the callable of an operation, looked up by API or method name.
func (c *Client) Method(name string) (Method, bool) {
	op, ok := c.svc.API.Operation(name)
	if !ok {
		return nil, false
	}
	return func(ctx context.Context, input any) (*Output, error) {
		return c.Call(ctx, op.Name, input)
	}, true
}

// Call runs operation with input. input is nil, a map[string]any or a struct.
func (c *Client) Call(ctx context.Context, operation string, input any) (out *Output, err error) {
	params, err := normalizeInput(input)
	if err != nil {
		return nil, fmt.Errorf("invalid input of %s: %w", operation, err)
	}
	if op, ok := c.svc.API.Operation(operation); ok {
		operation = op.Name
	}
	res, err := c.inner.Call(ctx, operation, params)
	if err != nil {
		return nil, err
	}
	return &Output{Result: res}, nil
}

// CanPaginate reports whether operation has a paginator.
func (c *Client) CanPaginate(operation string) bool {
	_, ok := c.paginatorModel(operation)
	return ok
}

func (c *Client) paginatorModel(operation string) (*model.Paginator, bool) {
	if op, ok := c.svc.API.Operation(operation); ok {
		operation = op.Name
	}
	p, ok := c.svc.Paginators[operation]
	return p, ok
}

// PaginateConfig bounds a pagination.
type PaginateConfig struct {
	// MaxItems caps the total number of items. Zero means no limit.
	MaxItems int
	// PageSize is sent as the page size parameter of the operation.
	PageSize int
	// StartingToken is the NextToken of a previous BuildFullResult.
	StartingToken string
}

// Paginator iterates the pages of an operation.
type Paginator struct {
	p *paginate.Paginator
}

// NewPaginator returns a paginator over operation called with input.
func (c *Client) NewPaginator(operation string, input any, cfg PaginateConfig) (p *Paginator, err error) {
	defer decorate.OnError(&err, "could not paginate %s", operation)

	pm, ok := c.paginatorModel(operation)
	if !ok {
		return nil, ErrCannotPaginate
	}
	params, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}
	if op, ok := c.svc.API.Operation(operation); ok {
		operation = op.Name
	}
	inner, err := paginate.New(c.inner, operation, pm, params, paginate.Config{
		MaxItems:      cfg.MaxItems,
		PageSize:      cfg.PageSize,
		StartingToken: cfg.StartingToken,
	})
	if err != nil {
		return nil, err
	}
	return &Paginator{p: inner}, nil
}

// HasMorePages reports whether NextPage can be called.
func (p *Paginator) HasMorePages() bool {
	return p.p.HasMorePages()
}

// NextPage fetches the next page.
func (p *Paginator) NextPage(ctx context.Context) (*Output, error) {
	res, err := p.p.NextPage(ctx)
	if err != nil {
		return nil, err
	}
	return &Output{Result: res}, nil
}

// ResumeToken returns the token to resume after MaxItems was reached, or an empty string.
func (p *Paginator) ResumeToken() string {
	return p.p.ResumeToken()
}

// BuildFullResult fetches the remaining pages and merges them.
func (p *Paginator) BuildFullResult(ctx context.Context) (*Output, error) {
	res, err := p.p.BuildFullResult(ctx)
	if err != nil {
		return nil, err
	}
	return &Output{Result: res}, nil
}

// WaiterNames returns the sorted names of the waiters of the service.
func (c *Client) WaiterNames() []string {
	return c.svc.WaiterNames()
}

// WaitConfig overrides the timing of a waiter. Zero values keep the model ones.
type WaitConfig struct {
	Delay       time.Duration
	MaxAttempts int
}

// Wait polls the operation of waiter name until it reaches a final state.
// It returns the last response on success.
func (c *Client) Wait(ctx context.Context, name string, input any, cfg WaitConfig) (out *Output, err error) {
	defer decorate.OnError(&err, "waiter %s failed", name)

	wm, ok := c.svc.Waiters[name]
	if !ok {
		return nil, fmt.Errorf("%w %q, must be one of: %v", ErrUnknownWaiter, name, c.WaiterNames())
	}
	w, err := waiter.New(name, wm, c.inner, waiter.WithLogger(c.log))
	if err != nil {
		return nil, err
	}
	params, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}
	res, err := w.Wait(ctx, params, waiter.Config{Delay: cfg.Delay, MaxAttempts: cfg.MaxAttempts})
	if err != nil {
		return nil, err
	}
	return &Output{Result: res}, nil
}

// Package paginate iterates over the pages of paginated operations.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"

	"github.com/norikmb/nifcloud-sdk-go/internal/jpath"
	"github.com/norikmb/nifcloud-sdk-go/internal/model"
)

var (
	// ErrNoMorePages is returned by NextPage once the last page was read.
	ErrNoMorePages = errors.New("no more pages")
	// ErrRepeatedToken is returned when the service sends the same token twice in a row.
	ErrRepeatedToken = errors.New("the same next token was received twice")
	// ErrPageSizeUnsupported is returned when a page size is set on an operation without limit key.
	ErrPageSizeUnsupported = errors.New("page size is not supported for this operation")
	// ErrInvalidToken is returned for a starting token that cannot be decoded.
	ErrInvalidToken = errors.New("invalid starting token")
)

const truncateKey = "boto_truncate_amount"

// Caller runs an operation.
type Caller interface {
	Call(ctx context.Context, operation string, params map[string]any) (map[string]any, error)
}

// Config bounds a pagination.
type Config struct {
	// MaxItems caps the number of items of the primary result key. Zero means no limit.
	MaxItems int
	// PageSize is sent as the limit key of the operation.
	PageSize int
	// StartingToken resumes from the NextToken of a previous full result.
	StartingToken string
}

// Paginator walks the pages of one operation call.
type Paginator struct {
	caller    Caller
	operation string

	inputTokens  []string
	outputTokens []*jpath.Expr
	moreResults  *jpath.Expr
	resultKeys   []string
	nonAggregate []string

	cfg    Config
	params map[string]any

	token      map[string]any
	prevToken  map[string]any
	first      bool
	done       bool
	pendingErr error

	total              int
	startingTruncation int
	nonAggregatePart   map[string]any
	resumeToken        map[string]any
}

// New returns a paginator for operation described by pm. params is not modified.
func New(caller Caller, operation string, pm *model.Paginator, params map[string]any, cfg Config) (*Paginator, error) {
	p := &Paginator{
		caller:           caller,
		operation:        operation,
		inputTokens:      pm.InputToken,
		resultKeys:       pm.ResultKey,
		nonAggregate:     pm.NonAggregateKeys,
		cfg:              cfg,
		params:           maps.Clone(params),
		first:            true,
		nonAggregatePart: make(map[string]any),
	}
	if p.params == nil {
		p.params = make(map[string]any)
	}

	for _, o := range pm.OutputToken {
		e, err := jpath.Compile(o)
		if err != nil {
			return nil, fmt.Errorf("invalid output token of %s: %w", operation, err)
		}
		p.outputTokens = append(p.outputTokens, e)
	}
	if len(p.outputTokens) != len(p.inputTokens) {
		return nil, fmt.Errorf("%s has %d input tokens for %d output tokens", operation, len(p.inputTokens), len(p.outputTokens))
	}
	if pm.MoreResults != "" {
		e, err := jpath.Compile(pm.MoreResults)
		if err != nil {
			return nil, fmt.Errorf("invalid more results key of %s: %w", operation, err)
		}
		p.moreResults = e
	}

	p.token = make(map[string]any, len(p.inputTokens))
	for _, k := range p.inputTokens {
		p.token[k] = nil
	}
	if cfg.StartingToken != "" {
		tok, truncate, err := decodeToken(cfg.StartingToken, p.inputTokens)
		if err != nil {
			return nil, err
		}
		p.token = tok
		p.startingTruncation = truncate
		p.injectToken(tok)
	}

	if cfg.PageSize > 0 {
		if pm.LimitKey == "" {
			return nil, fmt.Errorf("%w: %s", ErrPageSizeUnsupported, operation)
		}
		p.params[pm.LimitKey] = cfg.PageSize
	}

	return p, nil
}

// HasMorePages reports whether NextPage can be called.
func (p *Paginator) HasMorePages() bool {
	return !p.done || p.pendingErr != nil
}

// NextPage fetches the next page.
func (p *Paginator) NextPage(ctx context.Context) (map[string]any, error) {
	if p.pendingErr != nil {
		err := p.pendingErr
		p.pendingErr = nil
		return nil, err
	}
	if p.done {
		return nil, ErrNoMorePages
	}

	page, err := p.caller.Call(ctx, p.operation, p.params)
	if err != nil {
		return nil, err
	}
	doc, err := jpath.Document(page)
	if err != nil {
		return nil, err
	}

	if p.first {
		p.first = false
		if p.cfg.StartingToken != "" {
			p.trimFirstPage(page)
		}
		for _, k := range p.nonAggregate {
			if v, ok := lookup(page, k); ok {
				assign(p.nonAggregatePart, k, v)
			}
		}
	}

	count := p.primaryCount(page)
	if p.cfg.MaxItems > 0 {
		if over := p.total + count - p.cfg.MaxItems; over > 0 {
			p.truncate(page, over)
			p.done = true
			return page, nil
		}
	}
	p.total += count
	// Only the first page is offset by the starting token.
	p.startingTruncation = 0

	next := p.nextToken(doc)
	if allNil(next) {
		p.done = true
		return page, nil
	}
	if p.cfg.MaxItems > 0 && p.total == p.cfg.MaxItems {
		p.resumeToken = next
		p.done = true
		return page, nil
	}
	if p.prevToken != nil && reflect.DeepEqual(p.prevToken, next) {
		p.done = true
		p.pendingErr = fmt.Errorf("%w for %s: %v", ErrRepeatedToken, p.operation, next)
		return page, nil
	}

	p.injectToken(next)
	p.token = next
	p.prevToken = next
	return page, nil
}

// ResumeToken returns the token resuming after the last item returned within MaxItems.
// It is empty when the pagination was not cut short.
func (p *Paginator) ResumeToken() string {
	if p.resumeToken == nil {
		return ""
	}
	return encodeToken(p.resumeToken)
}

// BuildFullResult reads every page and merges the result keys.
// NextToken is set when MaxItems stopped the pagination early.
func (p *Paginator) BuildFullResult(ctx context.Context) (map[string]any, error) {
	full := make(map[string]any)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, k := range p.resultKeys {
			v, ok := lookup(page, k)
			if !ok || v == nil {
				continue
			}
			existing, ok := lookup(full, k)
			if !ok || existing == nil {
				assign(full, k, clone(v))
				continue
			}
			assign(full, k, merge(existing, v))
		}
	}

	for k, v := range p.nonAggregatePart {
		if _, ok := full[k]; !ok {
			full[k] = v
		}
	}
	if tok := p.ResumeToken(); tok != "" {
		full["NextToken"] = tok
	}
	return full, nil
}

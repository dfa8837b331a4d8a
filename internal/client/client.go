// Package client runs modeled operations against a NIFCLOUD endpoint.
//
// A call fills idempotency tokens, validates and serializes the input, then
// signs and sends the request until it succeeds or the retryer gives up.
// Every attempt is built and signed again.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/norikmb/nifcloud-sdk-go/internal/parse"
	"github.com/norikmb/nifcloud-sdk-go/internal/serialize"
	"github.com/norikmb/nifcloud-sdk-go/internal/signer"
	"github.com/norikmb/nifcloud-sdk-go/internal/validate"
	"golang.org/x/time/rate"
)

var (
	// ErrUnknownOperation is returned when the model has no such operation.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrNoEndpoint is returned when a client is created without an endpoint.
	ErrNoEndpoint = errors.New("no endpoint")
)

// Config holds what a client needs once the endpoint, region and credentials are resolved.
type Config struct {
	// Endpoint is the base URL, such as https://jp-east-1.computing.api.nifcloud.com.
	Endpoint string
	Region   string

	// SigningName and SigningRegion override the credential scope.
	SigningName   string
	SigningRegion string
	// SignatureVersion overrides the version of the model.
	SignatureVersion string

	Credentials aws.CredentialsProvider
	HTTPClient  aws.HTTPClient

	// MaxAttempts bounds the attempts of one call, retry.DefaultMaxAttempts when zero.
	MaxAttempts int
	// SkipValidation sends the input without checking it against the model first.
	SkipValidation bool
	// RateLimit is a number of requests per second. Zero means unlimited.
	RateLimit float64
	RateBurst int

	UserAgent string
}

// Client calls the operations of one service.
type Client struct {
	service *model.Service
	cfg     Config

	serializer serialize.Serializer
	parser     parse.Parser
	signers    map[string]signer.Signer
	retryer    aws.RetryerV2
	limiter    *rate.Limiter

	log   *slog.Logger
	sleep func(context.Context, time.Duration) error
}

type options struct {
	log     *slog.Logger
	backoff retry.BackoffDelayer
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

// Options represents an optional function to override client default values.
type Options func(*options)

// WithLogger sets the logger of the client.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// New returns a client for svc.
func New(svc *model.Service, cfg Config, args ...Options) (c *Client, err error) {
	opts := options{
		log:   slog.Default(),
		now:   time.Now,
		sleep: sleepContext,
	}
	for _, opt := range args {
		opt(&opts)
	}

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w for %s", ErrNoEndpoint, svc.Name)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.SigningRegion == "" {
		cfg.SigningRegion = cfg.Region
	}
	if cfg.SigningName == "" {
		cfg.SigningName = svc.API.Metadata.SigningName
	}
	if cfg.SigningName == "" {
		cfg.SigningName = svc.API.Metadata.EndpointPrefix
	}

	meta := svc.API.Metadata
	ser, err := serialize.New(meta.Protocol)
	if err != nil {
		return nil, err
	}
	p, err := parse.New(meta.Protocol)
	if err != nil {
		return nil, err
	}

	c = &Client{
		service:    svc,
		cfg:        cfg,
		serializer: ser,
		parser:     p,
		signers:    make(map[string]signer.Signer),
		log:        opts.log,
		sleep:      opts.sleep,
	}

	versions := []string{c.defaultSignatureVersion()}
	for _, op := range svc.API.Operations {
		if op.AuthType != "" && cfg.SignatureVersion == "" {
			versions = append(versions, op.AuthType)
		}
	}
	for _, v := range versions {
		if _, ok := c.signers[v]; ok {
			continue
		}
		s, err := signer.New(v, signer.WithLogger(opts.log), signer.WithClock(opts.now))
		if err != nil {
			return nil, fmt.Errorf("could not create signer for %s: %w", svc.Name, err)
		}
		c.signers[v] = s
	}

	c.retryer = retry.NewStandard(func(so *retry.StandardOptions) {
		if cfg.MaxAttempts > 0 {
			so.MaxAttempts = cfg.MaxAttempts
		}
		if opts.backoff != nil {
			so.Backoff = opts.backoff
		}
	})

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return c, nil
}

// Service returns the model the client was built from.
func (c *Client) Service() *model.Service {
	return c.service
}

// Region returns the region the client targets.
func (c *Client) Region() string {
	return c.cfg.Region
}

// Endpoint returns the base URL of the client.
func (c *Client) Endpoint() string {
	return c.cfg.Endpoint
}

// MaxAttempts returns the attempts allowed for one call.
func (c *Client) MaxAttempts() int {
	return c.retryer.MaxAttempts()
}

// Call runs the operation named by its API or method name.
// params is not modified.
func (c *Client) Call(ctx context.Context, operation string, params map[string]any) (map[string]any, error) {
	op, ok := c.service.API.Operation(operation)
	if !ok {
		return nil, fmt.Errorf("%w %q for %s", ErrUnknownOperation, operation, c.service.Name)
	}

	in := make(map[string]any, len(params))
	maps.Copy(in, params)
	serialize.FillIdempotencyTokens(in, op.Input)

	if !c.cfg.SkipValidation {
		if err := validate.Params(in, op.Input); err != nil {
			return nil, err
		}
	}

	req, err := c.serializer.Serialize(op, c.service.API.Metadata, in)
	if err != nil {
		return nil, c.operationError(op, err)
	}

	return c.send(ctx, op, req)
}

func (c *Client) defaultSignatureVersion() string {
	if c.cfg.SignatureVersion != "" {
		return c.cfg.SignatureVersion
	}
	if v := c.service.API.Metadata.SignatureVersion; v != "" {
		return v
	}
	return "v4"
}

func (c *Client) signerFor(op *model.Operation) signer.Signer {
	if c.cfg.SignatureVersion == "" && op.AuthType != "" {
		return c.signers[op.AuthType]
	}
	return c.signers[c.defaultSignatureVersion()]
}

func (c *Client) serviceID() string {
	meta := c.service.API.Metadata
	switch {
	case meta.ServiceID != "":
		return meta.ServiceID
	case meta.ServiceAbbreviation != "":
		return meta.ServiceAbbreviation
	}
	return c.service.Name
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

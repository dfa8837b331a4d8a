package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/norikmb/nifcloud-sdk-go/internal/parse"
	"github.com/norikmb/nifcloud-sdk-go/internal/protocol"
	"github.com/norikmb/nifcloud-sdk-go/internal/serialize"
	"github.com/norikmb/nifcloud-sdk-go/internal/signer"
)

// send runs the attempts of one call.
func (c *Client) send(ctx context.Context, op *model.Operation, sr *serialize.Request) (map[string]any, error) {
	sgn := c.signerFor(op)
	scope := signer.Scope{Service: c.cfg.SigningName, Region: c.cfg.SigningRegion}

	var releaseRetry func(error) error
	for attempt := 1; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, c.operationError(op, &aws.RequestCanceledError{Err: err})
			}
		}

		releaseAttempt, err := c.retryer.GetAttemptToken(ctx)
		if err != nil {
			return nil, c.operationError(op, err)
		}
		out, err := c.attempt(ctx, op, sr, sgn, scope, attempt-1)
		_ = releaseAttempt(err)
		if releaseRetry != nil {
			_ = releaseRetry(err)
			releaseRetry = nil
		}
		if err == nil {
			return out, nil
		}

		if attempt >= c.retryer.MaxAttempts() || !c.retryer.IsErrorRetryable(err) {
			return nil, c.operationError(op, err)
		}
		delay, derr := c.retryer.RetryDelay(attempt, err)
		if derr != nil {
			return nil, c.operationError(op, err)
		}
		if releaseRetry, derr = c.retryer.GetRetryToken(ctx, err); derr != nil {
			c.log.Debug("Retry quota exhausted", "operation", op.Name, "error", derr)
			return nil, c.operationError(op, err)
		}

		c.log.Debug("Retrying request", "operation", op.Name, "attempt", attempt, "delay", delay, "error", err)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, c.operationError(op, &aws.RequestCanceledError{Err: err})
		}
	}
}

// attempt builds, signs and sends the request once, then parses the response.
func (c *Client) attempt(ctx context.Context, op *model.Operation, sr *serialize.Request, sgn signer.Signer, scope signer.Scope, retries int) (map[string]any, error) {
	req, err := c.buildRequest(ctx, sr)
	if err != nil {
		return nil, err
	}

	creds, err := c.retrieveCredentials(ctx)
	if err != nil {
		return nil, err
	}
	if err := sgn.Sign(ctx, req, sr.Body, creds, scope); err != nil {
		return nil, fmt.Errorf("could not sign request: %w", err)
	}

	c.log.Debug("Sending request", "operation", op.Name, "method", req.Method, "url", redactURL(req.URL), "attempt", retries+1)
	httpResp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &aws.RequestCanceledError{Err: err}
		}
		return nil, &smithyhttp.RequestSendError{Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &smithyhttp.RequestSendError{Err: fmt.Errorf("could not read response body: %w", err)}
	}
	httpResp.Body = io.NopCloser(bytes.NewReader(body))
	c.log.Debug("Received response", "operation", op.Name, "status", httpResp.StatusCode, "attempt", retries+1)

	resp := &parse.Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body}
	if resp.StatusCode > http.StatusMultipleChoices {
		return nil, responseError(httpResp, parse.Error(c.parser, resp))
	}

	out, err := c.parser.Parse(resp, op.Output)
	if err != nil {
		return nil, &smithy.DeserializationError{Err: err, Snapshot: body}
	}
	parse.AddMetadata(out, resp, retries)
	return out, nil
}

func (c *Client) retrieveCredentials(ctx context.Context) (aws.Credentials, error) {
	if c.cfg.Credentials == nil {
		return aws.Credentials{}, nil
	}
	creds, err := c.cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("could not retrieve credentials: %w", err)
	}
	return creds, nil
}

// buildRequest binds sr to the endpoint. Query parameters from the model template come first.
func (c *Client) buildRequest(ctx context.Context, sr *serialize.Request) (*http.Request, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", c.cfg.Endpoint, err)
	}

	rawPath, tmplQuery, _ := strings.Cut(sr.Path, "?")
	if !strings.HasPrefix(rawPath, "/") {
		rawPath = "/" + rawPath
	}
	rawPath = strings.TrimSuffix(u.EscapedPath(), "/") + rawPath
	path, err := url.PathUnescape(rawPath)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", rawPath, err)
	}
	u.Path, u.RawPath = path, rawPath

	var query []string
	if tmplQuery != "" {
		query = append(query, tmplQuery)
	}
	if q := protocol.EncodeQuery(sr.Query); q != "" {
		query = append(query, q)
	}
	u.RawQuery = strings.Join(query, "&")

	req, err := http.NewRequestWithContext(ctx, sr.Method, u.String(), bytes.NewReader(sr.Body))
	if err != nil {
		return nil, fmt.Errorf("could not build request: %w", err)
	}
	for k, v := range sr.Header {
		req.Header[k] = append([]string(nil), v...)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	return req, nil
}

// responseError wraps a service error the way the SDK core reports it.
func responseError(resp *http.Response, e *parse.APIError) error {
	fault := smithy.FaultClient
	if resp.StatusCode >= http.StatusInternalServerError {
		fault = smithy.FaultServer
	}
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: resp},
			Err: &smithy.GenericAPIError{
				Code:    e.Code,
				Message: e.Message,
				Fault:   fault,
			},
		},
		RequestID: e.RequestID,
	}
}

func (c *Client) operationError(op *model.Operation, err error) error {
	var opErr *smithy.OperationError
	if errors.As(err, &opErr) {
		return err
	}
	return &smithy.OperationError{
		ServiceID:     c.serviceID(),
		OperationName: op.Name,
		Err:           err,
	}
}

// redactURL drops signature material from logged URLs.
func redactURL(u *url.URL) string {
	q := u.Query()
	for _, k := range []string{"Signature", "SecurityToken", "AccessKeyId"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	r := *u
	r.RawQuery = q.Encode()
	return r.String()
}

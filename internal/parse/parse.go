// Package parse decodes HTTP responses into output values following the protocol of a service model.
package parse

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/norikmb/nifcloud-sdk-go/internal/model"
)

var (
	// ErrUnknownProtocol is returned when no parser is registered for the model protocol.
	ErrUnknownProtocol = errors.New("unknown protocol")
	// ErrMalformedResponse is returned when a response body does not match the protocol.
	ErrMalformedResponse = errors.New("malformed response")
)

// Response is a received HTTP response with its body read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// APIError is the error a service reported in a response.
type APIError struct {
	Code      string
	Message   string
	Type      string
	RequestID string
	HostID    string
}

// Parser decodes the responses of one protocol.
type Parser interface {
	// Parse decodes a successful response per the output shape.
	// A nil output shape yields an empty result.
	Parse(resp *Response, output *model.ShapeRef) (map[string]any, error)
	// ParseError extracts the service error of a failed response.
	ParseError(resp *Response) *APIError
}

// New returns the parser for protocol.
func New(protocol string) (Parser, error) {
	switch protocol {
	case "query", "rdb", "nas", "ess":
		return xmlParser{}, nil
	case "ec2":
		return xmlParser{liftRequestID: true}, nil
	case "computing":
		return xmlParser{liftRequestID: true, emptyAsNil: true}, nil
	case "rest-xml", "dns":
		return xmlParser{rest: true}, nil
	case "rest-json":
		return jsonParser{rest: true}, nil
	case "json":
		return jsonParser{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownProtocol, protocol)
}

// Error returns the service error carried by a failed response.
// Server errors with an HTML or empty body are reported from the HTTP status alone.
func Error(p Parser, resp *Response) *APIError {
	if resp.StatusCode >= 500 {
		body := bytes.TrimSpace(resp.Body)
		if len(body) == 0 || bytes.HasPrefix(body, []byte("<html>")) {
			return statusError(resp)
		}
	}
	e := p.ParseError(resp)
	if e.RequestID == "" {
		e.RequestID, e.HostID = headerRequestID(resp.Header)
	}
	return e
}

// AddMetadata sets the HTTP details of resp into the ResponseMetadata of out.
func AddMetadata(out map[string]any, resp *Response, retryAttempts int) {
	md, _ := out["ResponseMetadata"].(map[string]any)
	if md == nil {
		md = make(map[string]any)
	}
	if _, ok := md["RequestId"]; !ok {
		if id, host := headerRequestID(resp.Header); id != "" {
			md["RequestId"] = id
			if host != "" {
				md["HostId"] = host
			}
		}
	}
	md["HTTPStatusCode"] = resp.StatusCode
	md["HTTPHeaders"] = lowerHeaders(resp.Header)
	md["RetryAttempts"] = retryAttempts
	out["ResponseMetadata"] = md
}

func statusError(resp *Response) *APIError {
	id, host := headerRequestID(resp.Header)
	return &APIError{
		Code:      strconv.Itoa(resp.StatusCode),
		Message:   http.StatusText(resp.StatusCode),
		RequestID: id,
		HostID:    host,
	}
}

func headerRequestID(h http.Header) (id, host string) {
	if id := h.Get("X-Amzn-Requestid"); id != "" {
		return id, ""
	}
	if id := h.Get("X-Amz-Request-Id"); id != "" {
		return id, h.Get("X-Amz-Id-2")
	}
	return "", ""
}

func lowerHeaders(h http.Header) map[string]any {
	out := make(map[string]any, len(h))
	for _, k := range slices.Sorted(maps.Keys(h)) {
		out[strings.ToLower(k)] = strings.Join(h[k], ", ")
	}
	return out
}

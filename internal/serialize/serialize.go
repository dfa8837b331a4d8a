// Package serialize turns operation input into HTTP requests following the protocol of a service model.
package serialize

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"

	"github.com/google/uuid"
	"github.com/norikmb/nifcloud-sdk-go/internal/model"
)

var (
	// ErrUnknownProtocol is returned when no serializer is registered for the model protocol.
	ErrUnknownProtocol = errors.New("unknown protocol")
	// ErrInvalidInput is returned when input does not fit the model and validation was skipped.
	ErrInvalidInput = errors.New("invalid input")
)

// Request is a serialized request before it is bound to an endpoint and signed.
type Request struct {
	Method string
	// Path is already escaped. It may carry a literal query suffix from the model, as in "/{Bucket}?acl".
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Serializer builds the request of an operation.
type Serializer interface {
	Serialize(op *model.Operation, meta model.Metadata, params map[string]any) (*Request, error)
}

// New returns the serializer for protocol.
func New(protocol string) (Serializer, error) {
	switch protocol {
	case "query":
		return querySerializer{}, nil
	case "ec2":
		return querySerializer{ec2: true}, nil
	case "computing":
		return querySerializer{ec2: true, computing: true, requestURI: true, rewrites: computingRewrites}, nil
	case "rdb":
		return querySerializer{requestURI: true, rewrites: rdbRewrites}, nil
	case "nas":
		return querySerializer{requestURI: true, rewrites: nasRewrites}, nil
	case "ess":
		return querySerializer{requestURI: true, rewrites: essRewrites}, nil
	case "rest-xml", "dns":
		return restSerializer{body: xmlBody{}}, nil
	case "rest-json":
		return restSerializer{body: jsonBody{}}, nil
	case "json":
		return jsonSerializer{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownProtocol, protocol)
}

// FillIdempotencyTokens sets a random UUID on top level members flagged as idempotency tokens
// that the caller left unset.
func FillIdempotencyTokens(params map[string]any, input *model.ShapeRef) {
	if input == nil || input.Shape == nil {
		return
	}
	for name, ref := range input.Shape.Members.All() {
		if !ref.IdempotencyToken {
			continue
		}
		if _, ok := params[name]; ok {
			continue
		}
		params[name] = uuid.NewString()
	}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// truthy reports whether v would count as set in a loosely typed input.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case fmt.Stringer:
		s := t.String()
		return s != "" && s != "0"
	}
	return true
}

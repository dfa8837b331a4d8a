package parse

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/norikmb/nifcloud-sdk-go/internal/model"
)

type scalarFunc func(text string, ref *model.ShapeRef) (any, error)

// headerValue decodes a header member. Lists are comma separated.
func headerValue(raw string, ref *model.ShapeRef, scalar scalarFunc) (any, error) {
	if ref.Type() == model.TypeList {
		parts := strings.Split(raw, ",")
		out := make([]any, 0, len(parts))
		for _, part := range parts {
			v, err := scalar(strings.TrimSpace(part), ref.Shape.Member)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	if ref.JSONValue {
		b, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64 header", ErrMalformedResponse)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return v, nil
	}
	return scalar(raw, ref)
}

// headerMap collects the headers starting with prefix, keyed by the rest of their lower cased name.
func headerMap(h http.Header, prefix string) map[string]any {
	prefix = strings.ToLower(prefix)
	out := make(map[string]any)
	for k, v := range h {
		lk := strings.ToLower(k)
		if !strings.HasPrefix(lk, prefix) {
			continue
		}
		out[lk[len(prefix):]] = strings.Join(v, ",")
	}
	return out
}

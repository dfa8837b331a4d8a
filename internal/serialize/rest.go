package serialize

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/norikmb/nifcloud-sdk-go/internal/protocol"
)

// bodyEncoder writes the body members of a REST request.
type bodyEncoder interface {
	encode(v any, ref *model.ShapeRef) ([]byte, error)
	// empty is the body sent when the input has body members but none is set.
	empty() []byte
	contentType() string
}

// restSerializer places members in the URI, query string, headers or body according to their location.
type restSerializer struct {
	body bodyEncoder
}

var uriLabel = regexp.MustCompile(`\{(.*?)\}`)

func (s restSerializer) Serialize(op *model.Operation, _ model.Metadata, params map[string]any) (*Request, error) {
	req := &Request{
		Method: op.HTTP.Method,
		Query:  url.Values{},
		Header: http.Header{},
	}
	in := op.Input
	if in == nil || in.Shape == nil {
		req.Path = op.HTTP.RequestURI
		return req, nil
	}

	for _, k := range sortedKeys(params) {
		if _, ok := in.Shape.Members.Get(k); !ok {
			return nil, invalidf("unknown member %q in input", k)
		}
	}

	labels := make(map[string]string)
	body := make(map[string]any)
	hasBodyMembers := false
	for name, ref := range in.Shape.Members.All() {
		if ref.Location == "" && name != in.Shape.Payload {
			hasBodyMembers = true
		}
		v, ok := params[name]
		if !ok || v == nil {
			continue
		}
		key := ref.NameOr(name)
		switch ref.Location {
		case model.LocationURI:
			label, err := scalarText(v, ref, protocol.TimestampISO8601)
			if err != nil {
				return nil, invalidf("%s: %v", name, err)
			}
			labels[key] = label
		case model.LocationQueryString:
			if err := setQueryString(req.Query, key, v, ref); err != nil {
				return nil, invalidf("%s: %v", name, err)
			}
		case model.LocationHeader:
			if err := setHeader(req.Header, key, v, ref); err != nil {
				return nil, invalidf("%s: %v", name, err)
			}
		case model.LocationHeaders:
			m, ok := v.(map[string]any)
			if !ok {
				return nil, invalidf("%s: expected a map, got %T", name, v)
			}
			for hk, hv := range m {
				req.Header.Set(key+hk, protocol.FormatScalar(hv))
			}
		default:
			body[name] = v
		}
	}

	path, err := renderURI(op.HTTP.RequestURI, labels)
	if err != nil {
		return nil, err
	}
	req.Path = path

	if err := s.payload(req, in, params, body, hasBodyMembers); err != nil {
		return nil, err
	}
	return req, nil
}

func (s restSerializer) payload(req *Request, in *model.ShapeRef, params, body map[string]any, hasBodyMembers bool) error {
	if name := in.Shape.Payload; name != "" {
		ref, _ := in.Shape.Members.Get(name)
		v, ok := params[name]
		switch {
		case ref.Type() == model.TypeBlob || ref.Type() == model.TypeString:
			if !ok || v == nil {
				return nil
			}
			b, err := protocol.ToBytes(v)
			if err != nil {
				return invalidf("%s: %v", name, err)
			}
			req.Body = b
		case ok && v != nil:
			b, err := s.body.encode(v, ref)
			if err != nil {
				return err
			}
			req.Body = b
			if ct := s.body.contentType(); ct != "" {
				req.Header.Set("Content-Type", ct)
			}
		default:
			req.Body = s.body.empty()
		}
		return nil
	}

	switch {
	case len(body) > 0:
		b, err := s.body.encode(body, in)
		if err != nil {
			return err
		}
		req.Body = b
	case hasBodyMembers:
		req.Body = s.body.empty()
	default:
		return nil
	}
	if len(req.Body) > 0 && s.body.contentType() != "" {
		req.Header.Set("Content-Type", s.body.contentType())
	}
	return nil
}

// renderURI expands {Label} and greedy {Label+} in a requestUri template.
func renderURI(template string, labels map[string]string) (string, error) {
	var missing []string
	out := uriLabel.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		safe := ""
		if strings.HasSuffix(name, "+") {
			name = strings.TrimSuffix(name, "+")
			safe = "/~"
		}
		v, ok := labels[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return protocol.Escape(v, safe)
	})
	if len(missing) > 0 {
		return "", invalidf("missing URI parameters %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func setQueryString(q url.Values, key string, v any, ref *model.ShapeRef) error {
	switch t := v.(type) {
	case map[string]any:
		for k, mv := range t {
			if items, ok := mv.([]any); ok {
				for _, item := range items {
					q.Add(k, protocol.FormatScalar(item))
				}
				continue
			}
			q.Set(k, protocol.FormatScalar(mv))
		}
		return nil
	case []any:
		for _, item := range t {
			q.Add(key, protocol.FormatScalar(item))
		}
		return nil
	}
	text, err := scalarText(v, ref, protocol.TimestampISO8601)
	if err != nil {
		return err
	}
	q.Set(key, text)
	return nil
}

func setHeader(h http.Header, key string, v any, ref *model.ShapeRef) error {
	if ref.Type() == model.TypeList {
		items, ok := v.([]any)
		if !ok {
			return fmt.Errorf("expected a list, got %T", v)
		}
		if len(items) == 0 {
			return nil
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			s, err := scalarText(item, ref.Shape.Member, protocol.TimestampRFC822)
			if err != nil {
				return err
			}
			if strings.ContainsAny(s, `,"`) {
				s = strconv.Quote(s)
			}
			parts = append(parts, s)
		}
		h.Set(key, strings.Join(parts, ","))
		return nil
	}

	if ref.JSONValue {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		h.Set(key, base64.StdEncoding.EncodeToString(b))
		return nil
	}

	s, err := scalarText(v, ref, protocol.TimestampRFC822)
	if err != nil {
		return err
	}
	h.Set(key, s)
	return nil
}

// scalarText renders a scalar for the URI, query string or headers.
func scalarText(v any, ref *model.ShapeRef, defaultTimestamp string) (string, error) {
	switch ref.Type() {
	case model.TypeBoolean:
		return strconv.FormatBool(protocol.Truthy(v)), nil
	case model.TypeTimestamp:
		t, err := protocol.ToTime(v)
		if err != nil {
			return "", err
		}
		format := ref.TimestampFormat
		if format == "" {
			format = defaultTimestamp
		}
		return protocol.FormatTimestamp(t, format), nil
	case model.TypeBlob:
		return protocol.Base64(v)
	}
	return protocol.FormatScalar(v), nil
}

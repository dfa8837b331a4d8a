package parse

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"strings"

	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/norikmb/nifcloud-sdk-go/internal/protocol"
)

// jsonParser decodes the JSON protocols.
type jsonParser struct {
	// rest reads header, headers, statusCode and payload members.
	rest bool
}

func decodeJSON(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return v, nil
}

func (p jsonParser) Parse(resp *Response, output *model.ShapeRef) (map[string]any, error) {
	out := make(map[string]any)
	if output == nil || output.Shape == nil {
		return out, nil
	}
	s := output.Shape

	if p.rest {
		for name, ref := range s.Members.All() {
			switch ref.Location {
			case model.LocationStatusCode:
				out[name] = int64(resp.StatusCode)
			case model.LocationHeaders:
				out[name] = headerMap(resp.Header, ref.LocationName)
			case model.LocationHeader:
				h, ok := resp.Header[http.CanonicalHeaderKey(ref.NameOr(name))]
				if !ok {
					continue
				}
				v, err := headerValue(strings.Join(h, ","), ref, headerScalar)
				if err != nil {
					return nil, err
				}
				out[name] = v
			}
		}

		if s.Payload != "" {
			ref, _ := s.Members.Get(s.Payload)
			switch ref.Type() {
			case model.TypeBlob:
				out[s.Payload] = resp.Body
				return out, nil
			case model.TypeString:
				out[s.Payload] = string(resp.Body)
				return out, nil
			}
			raw, err := decodeJSON(resp.Body)
			if err != nil {
				return nil, err
			}
			v, err := jsonValue(raw, ref)
			if err != nil {
				return nil, err
			}
			out[s.Payload] = v
			return out, nil
		}
	}

	raw, err := decodeJSON(resp.Body)
	if err != nil {
		return nil, err
	}
	body, err := jsonValue(raw, output)
	if err != nil {
		return nil, err
	}
	if m, ok := body.(map[string]any); ok {
		maps.Copy(out, m)
	}
	return out, nil
}

func jsonValue(raw any, ref *model.ShapeRef) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch ref.Type() {
	case model.TypeStructure:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected an object, got %T", ErrMalformedResponse, raw)
		}
		out := make(map[string]any)
		for name, mref := range ref.Shape.Members.All() {
			if mref.Location != "" {
				continue
			}
			v, ok := m[mref.NameOr(name)]
			if !ok || v == nil {
				continue
			}
			conv, err := jsonValue(v, mref)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out[name] = conv
		}
		return out, nil
	case model.TypeList:
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected an array, got %T", ErrMalformedResponse, raw)
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			conv, err := jsonValue(item, ref.Shape.Member)
			if err != nil {
				return nil, err
			}
			out = append(out, conv)
		}
		return out, nil
	case model.TypeMap:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected an object, got %T", ErrMalformedResponse, raw)
		}
		out := make(map[string]any, len(m))
		for k, v := range m {
			conv, err := jsonValue(v, ref.Shape.Value)
			if err != nil {
				return nil, err
			}
			out[k] = conv
		}
		return out, nil
	case model.TypeInteger, model.TypeLong:
		if n, ok := raw.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				return i, nil
			}
		}
		return nil, fmt.Errorf("%w: invalid integer %v", ErrMalformedResponse, raw)
	case model.TypeFloat, model.TypeDouble:
		if n, ok := raw.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				return f, nil
			}
		}
		return nil, fmt.Errorf("%w: invalid number %v", ErrMalformedResponse, raw)
	case model.TypeTimestamp:
		var text string
		switch t := raw.(type) {
		case json.Number:
			text = t.String()
		case string:
			text = t
		default:
			return nil, fmt.Errorf("%w: invalid timestamp %v", ErrMalformedResponse, raw)
		}
		ts, err := protocol.ParseTimestamp(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return ts, nil
	case model.TypeBlob:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: invalid blob %v", ErrMalformedResponse, raw)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64 blob", ErrMalformedResponse)
		}
		return b, nil
	}
	return raw, nil
}

func headerScalar(text string, ref *model.ShapeRef) (any, error) {
	switch ref.Type() {
	case model.TypeBoolean:
		return text == "true", nil
	case model.TypeInteger, model.TypeLong:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid integer %q", ErrMalformedResponse, text)
		}
		return n, nil
	case model.TypeFloat, model.TypeDouble:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %q", ErrMalformedResponse, text)
		}
		return f, nil
	case model.TypeTimestamp:
		t, err := protocol.ParseTimestamp(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return t, nil
	}
	return text, nil
}

func (p jsonParser) ParseError(resp *Response) *APIError {
	e := &APIError{}
	raw, err := decodeJSON(resp.Body)
	body, _ := raw.(map[string]any)
	if err != nil || body == nil {
		body = map[string]any{}
	}

	if msg, ok := body["message"].(string); ok {
		e.Message = msg
	} else if msg, ok := body["Message"].(string); ok {
		e.Message = msg
	}

	code := strconv.Itoa(resp.StatusCode)
	if t, ok := body["__type"].(string); ok {
		code = t
	}
	if p.rest {
		if t, ok := body["code"].(string); ok {
			code = t
		}
		if t := resp.Header.Get("X-Amzn-Errortype"); t != "" {
			code, _, _ = strings.Cut(t, ":")
		}
	}
	if i := strings.LastIndex(code, "#"); i >= 0 {
		code = code[i+1:]
	}
	e.Code = code
	return e
}

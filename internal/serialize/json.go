package serialize

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/norikmb/nifcloud-sdk-go/internal/protocol"
)

type jsonBody struct{}

func (jsonBody) contentType() string { return "application/json" }

func (jsonBody) empty() []byte { return []byte("{}") }

func (jsonBody) encode(v any, ref *model.ShapeRef) ([]byte, error) {
	out, err := jsonValue(v, ref, protocol.TimestampUnix)
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// jsonSerializer is the RPC style JSON protocol addressed by the X-Amz-Target header.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(op *model.Operation, meta model.Metadata, params map[string]any) (*Request, error) {
	version := meta.JSONVersion
	if version == "" {
		version = "1.0"
	}
	req := &Request{
		Method: op.HTTP.Method,
		Path:   "/",
		Query:  url.Values{},
		Header: http.Header{
			"X-Amz-Target": {meta.TargetPrefix + "." + op.Name},
			"Content-Type": {"application/x-amz-json-" + version},
		},
		Body: []byte("{}"),
	}
	if op.Input == nil || op.Input.Shape == nil {
		return req, nil
	}
	b, err := jsonBody{}.encode(params, op.Input)
	if err != nil {
		return nil, err
	}
	req.Body = b
	return req, nil
}

// jsonValue converts v to a value encoding/json renders with the wire names of ref.
func jsonValue(v any, ref *model.ShapeRef, defaultTimestamp string) (any, error) {
	switch ref.Type() {
	case model.TypeStructure:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, invalidf("expected a structure, got %T", v)
		}
		out := make(map[string]any, len(m))
		for _, k := range sortedKeys(m) {
			mref, ok := ref.Shape.Members.Get(k)
			if !ok {
				return nil, invalidf("unknown member %q", k)
			}
			if m[k] == nil {
				continue
			}
			mv, err := jsonValue(m[k], mref, defaultTimestamp)
			if err != nil {
				return nil, err
			}
			out[mref.NameOr(k)] = mv
		}
		return out, nil
	case model.TypeList:
		items, ok := v.([]any)
		if !ok {
			return nil, invalidf("expected a list, got %T", v)
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			iv, err := jsonValue(item, ref.Shape.Member, defaultTimestamp)
			if err != nil {
				return nil, err
			}
			out = append(out, iv)
		}
		return out, nil
	case model.TypeMap:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, invalidf("expected a map, got %T", v)
		}
		out := make(map[string]any, len(m))
		for k, mv := range m {
			conv, err := jsonValue(mv, ref.Shape.Value, defaultTimestamp)
			if err != nil {
				return nil, err
			}
			out[k] = conv
		}
		return out, nil
	case model.TypeTimestamp:
		t, err := protocol.ToTime(v)
		if err != nil {
			return nil, invalidf("%v", err)
		}
		format := ref.TimestampFormat
		if format == "" {
			format = defaultTimestamp
		}
		if format == protocol.TimestampUnix {
			return t.Unix(), nil
		}
		return protocol.FormatTimestamp(t, format), nil
	case model.TypeBlob:
		b, err := protocol.Base64(v)
		if err != nil {
			return nil, invalidf("%v", err)
		}
		return b, nil
	}
	return v, nil
}

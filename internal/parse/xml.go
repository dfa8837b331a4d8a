package parse

import (
	"encoding/base64"
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"strings"

	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/norikmb/nifcloud-sdk-go/internal/protocol"
)

// xmlParser decodes the XML protocols.
type xmlParser struct {
	// rest reads header, headers, statusCode and payload members.
	rest bool
	// liftRequestID turns a top level requestId element into ResponseMetadata.
	liftRequestID bool
	// emptyAsNil parses empty integer and timestamp elements as nil.
	emptyAsNil bool
}

func (p xmlParser) Parse(resp *Response, output *model.ShapeRef) (map[string]any, error) {
	if p.rest {
		return p.parseREST(resp, output)
	}

	out := make(map[string]any)
	if len(strings.TrimSpace(string(resp.Body))) == 0 {
		return out, nil
	}
	root, err := protocol.ParseXML(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if output != nil && output.Shape != nil {
		start := root
		if output.ResultWrapper != "" {
			start = root.Child(output.ResultWrapper)
		}
		if start != nil {
			if out, err = p.structure(start, output.Shape); err != nil {
				return nil, err
			}
		}
	}

	if md := root.Child("ResponseMetadata"); md != nil {
		meta := make(map[string]any, len(md.Children))
		for _, c := range md.Children {
			meta[c.Name] = c.Text
		}
		out["ResponseMetadata"] = meta
	} else if id := root.Child("requestId"); id != nil && p.liftRequestID {
		out["ResponseMetadata"] = map[string]any{"RequestId": id.Text}
	}
	return out, nil
}

func (p xmlParser) parseREST(resp *Response, output *model.ShapeRef) (map[string]any, error) {
	out := make(map[string]any)
	if output == nil || output.Shape == nil {
		return out, nil
	}
	s := output.Shape

	if err := p.parseLocations(resp, s, out); err != nil {
		return nil, err
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
		root, err := p.bodyRoot(resp.Body)
		if err != nil {
			return nil, err
		}
		v, err := p.value([]*protocol.Node{root}, ref)
		if err != nil {
			return nil, err
		}
		out[s.Payload] = v
		return out, nil
	}

	root, err := p.bodyRoot(resp.Body)
	if err != nil {
		return nil, err
	}
	body, err := p.structure(root, s)
	if err != nil {
		return nil, err
	}
	maps.Copy(out, body)
	return out, nil
}

func (xmlParser) bodyRoot(body []byte) (*protocol.Node, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return &protocol.Node{}, nil
	}
	root, err := protocol.ParseXML(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return root, nil
}

// parseLocations reads the members bound to the status line and headers.
func (p xmlParser) parseLocations(resp *Response, s *model.Shape, out map[string]any) error {
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
			v, err := headerValue(strings.Join(h, ","), ref, p.scalar)
			if err != nil {
				return err
			}
			out[name] = v
		}
	}
	return nil
}

func (p xmlParser) value(nodes []*protocol.Node, ref *model.ShapeRef) (any, error) {
	switch ref.Type() {
	case model.TypeStructure:
		return p.structure(nodes[0], ref.Shape)
	case model.TypeList:
		return p.list(nodes, ref)
	case model.TypeMap:
		return p.mapping(nodes, ref)
	}
	return p.scalar(nodes[0].Text, ref)
}

func (p xmlParser) structure(n *protocol.Node, s *model.Shape) (map[string]any, error) {
	out := make(map[string]any)
	byName := n.ByName()
	for name, ref := range s.Members.All() {
		if ref.Location != "" {
			continue
		}
		if nodes, ok := byName[memberKeyName(ref, name)]; ok {
			v, err := p.value(nodes, ref)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out[name] = v
			continue
		}
		if ref.XMLAttribute {
			if v, ok := n.Attr(ref.NameOr(name)); ok {
				out[name] = v
			}
		}
	}
	return out, nil
}

func (p xmlParser) list(nodes []*protocol.Node, ref *model.ShapeRef) ([]any, error) {
	items := nodes
	if !ref.Flattened {
		items = nodes[0].Children
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		v, err := p.value([]*protocol.Node{item}, ref.Shape.Member)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (p xmlParser) mapping(nodes []*protocol.Node, ref *model.ShapeRef) (map[string]any, error) {
	entries := nodes
	if !ref.Flattened {
		entries = nodes[0].Children
	}
	keyName := ref.Shape.Key.NameOr("key")
	valueName := ref.Shape.Value.NameOr("value")

	out := make(map[string]any, len(entries))
	for _, e := range entries {
		var key string
		var val any
		for _, c := range e.Children {
			switch c.Name {
			case keyName:
				key = c.Text
			case valueName:
				v, err := p.value([]*protocol.Node{c}, ref.Shape.Value)
				if err != nil {
					return nil, err
				}
				val = v
			default:
				return nil, fmt.Errorf("%w: unknown map tag %q", ErrMalformedResponse, c.Name)
			}
		}
		out[key] = val
	}
	return out, nil
}

func (p xmlParser) scalar(text string, ref *model.ShapeRef) (any, error) {
	switch ref.Type() {
	case model.TypeBoolean:
		return text == "true", nil
	case model.TypeInteger, model.TypeLong:
		if text == "" && p.emptyAsNil {
			return nil, nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid integer %q", ErrMalformedResponse, text)
		}
		return n, nil
	case model.TypeFloat, model.TypeDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %q", ErrMalformedResponse, text)
		}
		return f, nil
	case model.TypeTimestamp:
		if text == "" && p.emptyAsNil {
			return nil, nil
		}
		t, err := protocol.ParseTimestamp(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return t, nil
	case model.TypeBlob:
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64 blob", ErrMalformedResponse)
		}
		return b, nil
	}
	return text, nil
}

// memberKeyName is the element name of a member. Flattened lists repeat their member name.
func memberKeyName(ref *model.ShapeRef, name string) string {
	if ref.Type() == model.TypeList && ref.Flattened && ref.Shape.Member.LocationName != "" {
		return ref.Shape.Member.LocationName
	}
	return ref.NameOr(name)
}

func (xmlParser) ParseError(resp *Response) *APIError {
	root, err := protocol.ParseXML(resp.Body)
	if err != nil {
		return statusError(resp)
	}

	e := &APIError{}
	fields := root
	if root.Name != "Error" {
		if errs := root.Child("Errors"); errs != nil {
			fields = errs.Child("Error")
		} else {
			fields = root.Child("Error")
		}
		for _, name := range []string{"RequestId", "RequestID", "requestId"} {
			if id := root.Child(name); id != nil {
				e.RequestID = id.Text
				break
			}
		}
	}
	if fields == nil {
		return statusError(resp)
	}

	if c := fields.Child("Code"); c != nil {
		e.Code = c.Text
	}
	if m := fields.Child("Message"); m != nil {
		e.Message = m.Text
	}
	if t := fields.Child("Type"); t != nil {
		e.Type = t.Text
	}
	if e.RequestID == "" {
		if id := fields.Child("RequestId"); id != nil {
			e.RequestID = id.Text
		}
	}
	if h := fields.Child("HostId"); h != nil {
		e.HostID = h.Text
	}
	return e
}

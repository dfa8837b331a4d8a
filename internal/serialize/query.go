package serialize

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/norikmb/nifcloud-sdk-go/internal/protocol"
)

const formContentType = "application/x-www-form-urlencoded; charset=utf-8"

// bodyRewrite replaces the form of an operation whose server side expects another layout
// than the model describes.
type bodyRewrite func(op, version string, params map[string]any, form url.Values) url.Values

// querySerializer handles the form encoded protocols: query, ec2, and the NIFCLOUD flavors.
type querySerializer struct {
	// ec2 names members from queryName or capitalized locationName and numbers lists as Prefix.N.
	ec2 bool
	// computing switches a list subtree to query rules when its member carries a locationName.
	computing bool
	// requestURI sends to the operation requestUri instead of "/".
	requestURI bool
	rewrites   map[string]bodyRewrite
}

func (s querySerializer) Serialize(op *model.Operation, meta model.Metadata, params map[string]any) (*Request, error) {
	form := url.Values{}
	if op.Input != nil && op.Input.Shape != nil {
		if err := s.value(form, params, op.Input, "", s.ec2); err != nil {
			return nil, err
		}
	}
	form.Set("Action", op.Name)
	form.Set("Version", meta.APIVersion)

	if rw, ok := s.rewrites[op.Name]; ok {
		form = rw(op.Name, meta.APIVersion, params, form)
	}

	req := &Request{
		Method: op.HTTP.Method,
		Path:   "/",
		Query:  url.Values{},
		Header: http.Header{},
	}
	if s.requestURI {
		req.Path = op.HTTP.RequestURI
	}
	if req.Method == http.MethodGet {
		req.Query = form
		return req, nil
	}
	req.Header.Set("Content-Type", formContentType)
	req.Body = []byte(protocol.EncodeQuery(form))
	return req, nil
}

func (s querySerializer) value(form url.Values, v any, ref *model.ShapeRef, prefix string, ec2 bool) error {
	switch ref.Type() {
	case model.TypeStructure:
		return s.structure(form, v, ref, prefix, ec2)
	case model.TypeList:
		return s.list(form, v, ref, prefix, ec2)
	case model.TypeMap:
		return s.mapping(form, v, ref, prefix, ec2)
	case model.TypeBoolean:
		form.Set(prefix, strconv.FormatBool(protocol.Truthy(v)))
	case model.TypeBlob:
		b, err := protocol.Base64(v)
		if err != nil {
			return invalidf("%s: %v", prefix, err)
		}
		form.Set(prefix, b)
	case model.TypeTimestamp:
		t, err := protocol.ToTime(v)
		if err != nil {
			return invalidf("%s: %v", prefix, err)
		}
		form.Set(prefix, protocol.FormatTimestamp(t, ref.TimestampFormat))
	default:
		form.Set(prefix, protocol.FormatScalar(v))
	}
	return nil
}

func (s querySerializer) structure(form url.Values, v any, ref *model.ShapeRef, prefix string, ec2 bool) error {
	m, ok := v.(map[string]any)
	if !ok {
		return invalidf("%s: expected a structure, got %T", displayPrefix(prefix), v)
	}
	for _, k := range sortedKeys(m) {
		mref, ok := ref.Shape.Members.Get(k)
		if !ok {
			return invalidf("unknown member %q in %s", k, displayPrefix(prefix))
		}
		p := serializedName(mref, k, ec2)
		if prefix != "" {
			p = prefix + "." + p
		}
		if err := s.value(form, m[k], mref, p, ec2); err != nil {
			return err
		}
	}
	return nil
}

func (s querySerializer) list(form url.Values, v any, ref *model.ShapeRef, prefix string, ec2 bool) error {
	items, ok := v.([]any)
	if !ok {
		return invalidf("%s: expected a list, got %T", prefix, v)
	}
	member := ref.Shape.Member
	if s.computing && member.LocationName != "" {
		ec2 = false
	}

	if ec2 {
		for i, item := range items {
			if err := s.value(form, item, member, prefix+"."+strconv.Itoa(i+1), ec2); err != nil {
				return err
			}
		}
		return nil
	}

	if len(items) == 0 {
		form.Set(prefix, "")
		return nil
	}
	listPrefix := prefix + "." + member.NameOr("member")
	if ref.Flattened {
		listPrefix = prefix
		if name := serializedName(member, "", ec2); name != "" {
			parts := strings.Split(prefix, ".")
			parts[len(parts)-1] = name
			listPrefix = strings.Join(parts, ".")
		}
	}
	for i, item := range items {
		if err := s.value(form, item, member, listPrefix+"."+strconv.Itoa(i+1), ec2); err != nil {
			return err
		}
	}
	return nil
}

func (s querySerializer) mapping(form url.Values, v any, ref *model.ShapeRef, prefix string, ec2 bool) error {
	m, ok := v.(map[string]any)
	if !ok {
		return invalidf("%s: expected a map, got %T", prefix, v)
	}
	full := prefix + ".entry"
	if ref.Flattened {
		full = prefix
	}
	keyName := serializedName(ref.Shape.Key, "key", ec2)
	valueName := serializedName(ref.Shape.Value, "value", ec2)
	for i, k := range sortedKeys(m) {
		entry := full + "." + strconv.Itoa(i+1) + "."
		if err := s.value(form, k, ref.Shape.Key, entry+keyName, ec2); err != nil {
			return err
		}
		if err := s.value(form, m[k], ref.Shape.Value, entry+valueName, ec2); err != nil {
			return err
		}
	}
	return nil
}

func serializedName(ref *model.ShapeRef, def string, ec2 bool) string {
	if !ec2 {
		return ref.NameOr(def)
	}
	if ref.QueryName != "" {
		return ref.QueryName
	}
	if ref.LocationName != "" {
		return capitalize(ref.LocationName)
	}
	return def
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func displayPrefix(prefix string) string {
	if prefix == "" {
		return "input"
	}
	return prefix
}

package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
)

// Shape types as written in service models.
const (
	TypeStructure = "structure"
	TypeList      = "list"
	TypeMap       = "map"
	TypeString    = "string"
	TypeInteger   = "integer"
	TypeLong      = "long"
	TypeFloat     = "float"
	TypeDouble    = "double"
	TypeBoolean   = "boolean"
	TypeBlob      = "blob"
	TypeTimestamp = "timestamp"
)

// Member locations used by the REST protocols.
const (
	LocationURI         = "uri"
	LocationQueryString = "querystring"
	LocationHeader      = "header"
	LocationHeaders     = "headers"
	LocationStatusCode  = "statusCode"
)

// Shape is a named type of the service model.
type Shape struct {
	Name string `json:"-"`

	Type          string       `json:"type"`
	Members       Members      `json:"members"`
	Required      []string     `json:"required"`
	Member        *ShapeRef    `json:"member"`
	Key           *ShapeRef    `json:"key"`
	Value         *ShapeRef    `json:"value"`
	Enum          []string     `json:"enum"`
	Min           *float64     `json:"min"`
	Max           *float64     `json:"max"`
	Pattern       string       `json:"pattern"`
	Payload       string       `json:"payload"`
	Documentation string       `json:"documentation"`
	Exception     bool         `json:"exception"`
	Fault         bool         `json:"fault"`
	Error         *ErrorTraits `json:"error"`
	Sensitive     bool         `json:"sensitive"`
	Deprecated    bool         `json:"deprecated"`

	// Serialization traits that a referencing member may override.
	LocationName    string        `json:"locationName"`
	QueryName       string        `json:"queryName"`
	Flattened       bool          `json:"flattened"`
	XMLNamespace    *XMLNamespace `json:"xmlNamespace"`
	TimestampFormat string        `json:"timestampFormat"`
	Streaming       bool          `json:"streaming"`
}

// ErrorTraits describes how a modeled exception is sent on the wire.
type ErrorTraits struct {
	Code           string `json:"code"`
	HTTPStatusCode int    `json:"httpStatusCode"`
	SenderFault    bool   `json:"senderFault"`
}

// IsRequired reports whether member must be set in a structure value.
func (s *Shape) IsRequired(member string) bool {
	for _, r := range s.Required {
		if r == member {
			return true
		}
	}
	return false
}

// ShapeRef is a reference to a shape, carrying the serialization traits of the reference site.
// Once the model is resolved, the traits of the target shape are merged in and Shape is set.
type ShapeRef struct {
	ShapeName string `json:"shape"`
	Shape     *Shape `json:"-"`

	Location         string        `json:"location"`
	LocationName     string        `json:"locationName"`
	QueryName        string        `json:"queryName"`
	Flattened        bool          `json:"flattened"`
	XMLNamespace     *XMLNamespace `json:"xmlNamespace"`
	XMLAttribute     bool          `json:"xmlAttribute"`
	IdempotencyToken bool          `json:"idempotencyToken"`
	TimestampFormat  string        `json:"timestampFormat"`
	ResultWrapper    string        `json:"resultWrapper"`
	Streaming        bool          `json:"streaming"`
	JSONValue        bool          `json:"jsonvalue"`
	Documentation    string        `json:"documentation"`
	Deprecated       bool          `json:"deprecated"`
}

// Type is the type of the referenced shape.
func (r *ShapeRef) Type() string {
	if r == nil || r.Shape == nil {
		return ""
	}
	return r.Shape.Type
}

// NameOr returns the serialized name of the reference, or def if none is set.
func (r *ShapeRef) NameOr(def string) string {
	if r.LocationName != "" {
		return r.LocationName
	}
	return def
}

func (r *ShapeRef) merge() {
	s := r.Shape
	if r.LocationName == "" {
		r.LocationName = s.LocationName
	}
	if r.QueryName == "" {
		r.QueryName = s.QueryName
	}
	if r.XMLNamespace == nil {
		r.XMLNamespace = s.XMLNamespace
	}
	if r.TimestampFormat == "" {
		r.TimestampFormat = s.TimestampFormat
	}
	r.Flattened = r.Flattened || s.Flattened
	r.Streaming = r.Streaming || s.Streaming
}

// XMLNamespace is the namespace declared on an XML element.
// Models write it either as a bare URI string or as an object with a prefix.
type XMLNamespace struct {
	Prefix string `json:"prefix"`
	URI    string `json:"uri"`
}

// UnmarshalJSON accepts both forms of the namespace declaration.
func (ns *XMLNamespace) UnmarshalJSON(data []byte) error {
	var uri string
	if err := json.Unmarshal(data, &uri); err == nil {
		ns.URI = uri
		return nil
	}

	type plain XMLNamespace
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("invalid xmlNamespace: %w", err)
	}
	*ns = XMLNamespace(p)
	return nil
}

// Attr returns the attribute name and value declaring the namespace.
func (ns *XMLNamespace) Attr() (name, value string) {
	if ns.Prefix != "" {
		return "xmlns:" + ns.Prefix, ns.URI
	}
	return "xmlns", ns.URI
}

// Members is the ordered set of members of a structure shape.
// Order matches the model file so that XML bodies are written in the modeled order.
type Members struct {
	names []string
	refs  map[string]*ShapeRef
}

func (m *Members) set(name string, ref *ShapeRef) {
	if _, dup := m.refs[name]; !dup {
		m.names = append(m.names, name)
	}
	m.refs[name] = ref
}

// UnmarshalJSON decodes the members object keeping the declaration order.
func (m *Members) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("members must be a JSON object")
	}

	m.refs = make(map[string]*ShapeRef)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected member key %v", tok)
		}
		var ref ShapeRef
		if err := dec.Decode(&ref); err != nil {
			return fmt.Errorf("member %q: %w", name, err)
		}
		m.set(name, &ref)
	}
	_, err = dec.Token()
	return err
}

// Len is the number of members.
func (m Members) Len() int {
	return len(m.names)
}

// Names returns the member names in declaration order.
func (m Members) Names() []string {
	return append([]string(nil), m.names...)
}

// Get returns the reference of the named member.
func (m Members) Get(name string) (*ShapeRef, bool) {
	ref, ok := m.refs[name]
	return ref, ok
}

// All iterates over members in declaration order.
func (m Members) All() iter.Seq2[string, *ShapeRef] {
	return func(yield func(string, *ShapeRef) bool) {
		for _, n := range m.names {
			if !yield(n, m.refs[n]) {
				return
			}
		}
	}
}

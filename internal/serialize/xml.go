package serialize

import (
	"bytes"
	"encoding/xml"
	"strconv"

	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/norikmb/nifcloud-sdk-go/internal/protocol"
)

type xmlBody struct{}

func (xmlBody) contentType() string { return "" }

func (xmlBody) empty() []byte { return nil }

// encode writes v as a document whose root element is named after ref.
func (xmlBody) encode(v any, ref *model.ShapeRef) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	root := ref.LocationName
	if root == "" {
		root = ref.ShapeName
	}
	if err := writeXML(enc, v, ref, root); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeXML(enc *xml.Encoder, v any, ref *model.ShapeRef, name string) error {
	switch ref.Type() {
	case model.TypeStructure:
		return writeXMLStructure(enc, v, ref, name)
	case model.TypeList:
		return writeXMLList(enc, v, ref, name)
	case model.TypeMap:
		return writeXMLMap(enc, v, ref, name)
	}

	var text string
	switch ref.Type() {
	case model.TypeBoolean:
		text = strconv.FormatBool(protocol.Truthy(v))
	case model.TypeBlob:
		b, err := protocol.Base64(v)
		if err != nil {
			return invalidf("%s: %v", name, err)
		}
		text = b
	case model.TypeTimestamp:
		t, err := protocol.ToTime(v)
		if err != nil {
			return invalidf("%s: %v", name, err)
		}
		text = protocol.FormatTimestamp(t, ref.TimestampFormat)
	default:
		text = protocol.FormatScalar(v)
	}
	return writeXMLText(enc, name, text)
}

func writeXMLText(enc *xml.Encoder, name, text string) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := enc.EncodeToken(xml.CharData(text)); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

func writeXMLStructure(enc *xml.Encoder, v any, ref *model.ShapeRef, name string) error {
	m, ok := v.(map[string]any)
	if !ok {
		return invalidf("%s: expected a structure, got %T", name, v)
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}
	if ns := ref.XMLNamespace; ns != nil {
		attr, uri := ns.Attr()
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attr}, Value: uri})
	}
	for mname, mref := range ref.Shape.Members.All() {
		mv, ok := m[mname]
		if !ok || mv == nil || !mref.XMLAttribute {
			continue
		}
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: mref.NameOr(mname)}, Value: protocol.FormatScalar(mv)})
	}

	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for mname, mref := range ref.Shape.Members.All() {
		mv, ok := m[mname]
		if !ok || mv == nil || mref.XMLAttribute {
			continue
		}
		if err := writeXML(enc, mv, mref, mref.NameOr(mname)); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func writeXMLList(enc *xml.Encoder, v any, ref *model.ShapeRef, name string) error {
	items, ok := v.([]any)
	if !ok {
		return invalidf("%s: expected a list, got %T", name, v)
	}
	member := ref.Shape.Member

	if ref.Flattened {
		for _, item := range items {
			if err := writeXML(enc, item, member, name); err != nil {
				return err
			}
		}
		return nil
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, item := range items {
		if err := writeXML(enc, item, member, member.NameOr("member")); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func writeXMLMap(enc *xml.Encoder, v any, ref *model.ShapeRef, name string) error {
	m, ok := v.(map[string]any)
	if !ok {
		return invalidf("%s: expected a map, got %T", name, v)
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	entry := xml.StartElement{Name: xml.Name{Local: "entry"}}
	for _, k := range sortedKeys(m) {
		if err := enc.EncodeToken(entry); err != nil {
			return err
		}
		if err := writeXML(enc, k, ref.Shape.Key, ref.Shape.Key.NameOr("key")); err != nil {
			return err
		}
		if err := writeXML(enc, m[k], ref.Shape.Value, ref.Shape.Value.NameOr("value")); err != nil {
			return err
		}
		if err := enc.EncodeToken(entry.End()); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

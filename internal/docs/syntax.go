package docs

import (
	"fmt"
	"strings"

	"github.com/norikmb/nifcloud-sdk-go/internal/model"
)

// syntax renders an example value of ref in Go literal form.
// Shapes already being rendered are cut to avoid endless recursion.
func syntax(ref *model.ShapeRef, indent string, seen map[string]bool) string {
	if ref == nil || ref.Shape == nil {
		return "nil"
	}
	s := ref.Shape
	if seen == nil {
		seen = make(map[string]bool)
	}

	switch s.Type {
	case model.TypeStructure:
		if seen[s.Name] {
			return "map[string]any{ /* recursive " + s.Name + " */ }"
		}
		if s.Members.Len() == 0 {
			return "map[string]any{}"
		}
		seen[s.Name] = true
		defer delete(seen, s.Name)

		var b strings.Builder
		b.WriteString("map[string]any{\n")
		for name, m := range s.Members.All() {
			fmt.Fprintf(&b, "%s\t%q: %s,\n", indent, name, syntax(m, indent+"\t", seen))
		}
		b.WriteString(indent + "}")
		return b.String()

	case model.TypeList:
		return "[]any{" + syntax(s.Member, indent, seen) + "}"

	case model.TypeMap:
		return "map[string]any{\"string\": " + syntax(s.Value, indent, seen) + "}"

	case model.TypeString:
		if len(s.Enum) > 0 {
			return fmt.Sprintf("%q", strings.Join(s.Enum, "|"))
		}
		return `"string"`
	case model.TypeInteger, model.TypeLong:
		return "123"
	case model.TypeFloat, model.TypeDouble:
		return "123.0"
	case model.TypeBoolean:
		return "true|false"
	case model.TypeTimestamp:
		return "time.Time{}"
	case model.TypeBlob:
		return `[]byte("bytes")`
	}
	return "nil"
}

func typeName(ref *model.ShapeRef) string {
	s := ref.Shape
	switch s.Type {
	case model.TypeStructure:
		return "map"
	case model.TypeList:
		return "list of " + typeName(s.Member)
	case model.TypeMap:
		return "map of " + typeName(s.Value)
	}
	return s.Type
}

func innerStructure(ref *model.ShapeRef) *model.Shape {
	s := ref.Shape
	for s != nil && s.Type == model.TypeList && s.Member != nil {
		s = s.Member.Shape
	}
	if s != nil && s.Type == model.TypeStructure && s.Members.Len() > 0 {
		return s
	}
	return nil
}

package protocol

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// Node is a parsed XML element with namespace prefixes dropped from its name.
type Node struct {
	Name     string
	Attrs    []xml.Attr
	Children []*Node
	Text     string
}

// ParseXML parses data into a Node tree and returns the root element.
func ParseXML(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var root *Node
	var stack []*Node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local, Attrs: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("no XML root element")
	}
	return root, nil
}

// ByName groups the children of n by element name. Repeated names keep their document order.
func (n *Node) ByName() map[string][]*Node {
	m := make(map[string][]*Node, len(n.Children))
	for _, c := range n.Children {
		m[c.Name] = append(m[c.Name], c)
	}
	return m
}

// Child returns the first child called name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Attr returns the attribute called name. A prefixed name such as xsi:type matches
// any namespaced attribute with the same local part.
func (n *Node) Attr(name string) (string, bool) {
	local := name
	prefixed := false
	if i := strings.IndexByte(name, ':'); i >= 0 {
		local = name[i+1:]
		prefixed = true
	}
	for _, a := range n.Attrs {
		if a.Name.Local != local {
			continue
		}
		if prefixed == (a.Name.Space != "") {
			return a.Value, true
		}
	}
	return "", false
}

// Map converts the subtree of n to nested maps of text values.
// It is meant for error bodies, which are not described by the model.
func (n *Node) Map() map[string]any {
	m := make(map[string]any, len(n.Children))
	for _, c := range n.Children {
		if len(c.Children) == 0 {
			m[c.Name] = c.Text
			continue
		}
		m[c.Name] = c.Map()
	}
	return m
}

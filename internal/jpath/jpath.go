// Package jpath evaluates the JMESPath subset found in paginator and waiter models.
//
// Supported forms are dotted fields (A.B), indexes (A[0], A[-1]), flatten
// projections (A[].B, A[].B[].C) and "or" alternatives (A || B[-1].C).
// Documents are walked with gjson.
package jpath

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrSyntax is returned for expressions outside of the supported subset.
var ErrSyntax = errors.New("invalid expression")

type stepKind int

const (
	fieldStep stepKind = iota
	indexStep
	flattenStep
)

type step struct {
	kind  stepKind
	name  string
	index int
}

// Expr is a compiled expression.
type Expr struct {
	src  string
	alts [][]step
}

// Compile parses expr.
func Compile(expr string) (*Expr, error) {
	e := &Expr{src: expr}
	for alt := range strings.SplitSeq(expr, "||") {
		steps, err := parseSteps(strings.TrimSpace(alt))
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrSyntax, expr, err)
		}
		e.alts = append(e.alts, steps)
	}
	return e, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Expr {
	e, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source of the expression.
func (e *Expr) String() string {
	return e.src
}

// Search evaluates the expression on a JSON document.
// It returns nil when nothing matches.
func (e *Expr) Search(doc gjson.Result) any {
	var v any
	for _, steps := range e.alts {
		v, _ = eval(doc, steps)
		if truthy(v) {
			return v
		}
	}
	return v
}

// Search evaluates expr on the JSON form of v.
func Search(v any, expr string) (any, error) {
	e, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	doc, err := Document(v)
	if err != nil {
		return nil, err
	}
	return e.Search(doc), nil
}

// Document returns the JSON form of v ready to be searched.
func Document(v any) (gjson.Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("could not encode document: %w", err)
	}
	return gjson.ParseBytes(data), nil
}

func parseSteps(s string) ([]step, error) {
	if s == "" {
		return nil, errors.New("empty path")
	}

	var steps []step
	for part := range strings.SplitSeq(s, ".") {
		name, rest, hasBracket := strings.Cut(part, "[")
		if name == "" && !hasBracket {
			return nil, errors.New("empty field")
		}
		if name != "" {
			steps = append(steps, step{kind: fieldStep, name: name})
		}
		if !hasBracket {
			continue
		}

		for _, br := range strings.Split("["+rest, "[")[1:] {
			inner, ok := strings.CutSuffix(br, "]")
			if !ok {
				return nil, fmt.Errorf("unclosed bracket in %q", part)
			}
			if inner == "" {
				steps = append(steps, step{kind: flattenStep})
				continue
			}
			i, err := strconv.Atoi(inner)
			if err != nil {
				return nil, fmt.Errorf("unsupported bracket [%s]", inner)
			}
			steps = append(steps, step{kind: indexStep, index: i})
		}
	}
	return steps, nil
}

// eval walks steps from v. projected reports a list produced by a flatten projection.
func eval(v gjson.Result, steps []step) (result any, projected bool) {
	for i, s := range steps {
		switch s.kind {
		case fieldStep:
			if !v.IsObject() {
				return nil, false
			}
			v = v.Get(escape(s.name))
			if !v.Exists() {
				return nil, false
			}

		case indexStep:
			if !v.IsArray() {
				return nil, false
			}
			arr := v.Array()
			idx := s.index
			if idx < 0 {
				idx += len(arr)
			}
			if idx < 0 || idx >= len(arr) {
				return nil, false
			}
			v = arr[idx]

		case flattenStep:
			if !v.IsArray() {
				return nil, false
			}
			var elems []gjson.Result
			for _, el := range v.Array() {
				if el.IsArray() {
					elems = append(elems, el.Array()...)
					continue
				}
				elems = append(elems, el)
			}

			out := []any{}
			for _, el := range elems {
				r, inner := eval(el, steps[i+1:])
				if r == nil {
					continue
				}
				if list, ok := r.([]any); ok && inner {
					out = append(out, list...)
					continue
				}
				out = append(out, r)
			}
			return out, true
		}
	}
	if v.Type == gjson.Null {
		return nil, false
	}
	return v.Value(), false
}

// escape protects gjson wildcard and path characters in a field name.
func escape(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}

// Package validate checks operation input against the model before it is serialized.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/norikmb/nifcloud-sdk-go/internal/protocol"
)

// ErrParamValidation is matched by every ValidationError.
var ErrParamValidation = errors.New("parameter validation failed")

// ValidationError lists all problems found in an input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "Parameter validation failed:\n" + strings.Join(e.Problems, "\n")
}

// Is makes errors.Is(err, ErrParamValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrParamValidation
}

// Params validates params against the input shape of an operation.
// A nil ref accepts only empty input.
func Params(params map[string]any, ref *model.ShapeRef) error {
	v := &validator{}
	if ref == nil || ref.Shape == nil {
		for _, k := range sortedKeys(params) {
			v.addf(`Unknown parameter in input: "%s", must be one of: `, k)
		}
		return v.err()
	}
	v.validate(params, ref.Shape, "")
	return v.err()
}

type validator struct {
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

func (v *validator) validate(value any, s *model.Shape, name string) {
	switch s.Type {
	case model.TypeStructure:
		v.structure(value, s, name)
	case model.TypeList:
		v.list(value, s, name)
	case model.TypeMap:
		v.mapping(value, s, name)
	case model.TypeString:
		v.str(value, s, name)
	case model.TypeInteger, model.TypeLong:
		v.integer(value, s, name)
	case model.TypeFloat, model.TypeDouble:
		v.float(value, s, name)
	case model.TypeBoolean:
		if _, ok := value.(bool); !ok {
			v.invalidType(value, name, "bool")
		}
	case model.TypeBlob:
		v.blob(value, name)
	case model.TypeTimestamp:
		v.timestamp(value, name)
	}
}

func (v *validator) structure(value any, s *model.Shape, name string) {
	params, ok := value.(map[string]any)
	if !ok {
		v.invalidType(value, name, "map[string]any")
		return
	}

	for _, r := range s.Required {
		if _, ok := params[r]; !ok {
			v.addf(`Missing required parameter in %s: "%s"`, displayName(name), r)
		}
	}

	for _, k := range sortedKeys(params) {
		ref, ok := s.Members.Get(k)
		if !ok {
			v.addf(`Unknown parameter in %s: "%s", must be one of: %s`,
				displayName(name), k, strings.Join(s.Members.Names(), ", "))
			continue
		}
		v.validate(params[k], ref.Shape, name+"."+k)
	}
}

func (v *validator) list(value any, s *model.Shape, name string) {
	items, ok := value.([]any)
	if !ok {
		v.invalidType(value, name, "[]any")
		return
	}
	if s.Min != nil && float64(len(items)) < *s.Min {
		v.addf("Invalid length for parameter %s, value: %d, valid min length: %s",
			displayName(name), len(items), formatBound(*s.Min))
	}
	for i, item := range items {
		v.validate(item, s.Member.Shape, fmt.Sprintf("%s[%d]", name, i))
	}
}

func (v *validator) mapping(value any, s *model.Shape, name string) {
	params, ok := value.(map[string]any)
	if !ok {
		v.invalidType(value, name, "map[string]any")
		return
	}
	for _, k := range sortedKeys(params) {
		v.validate(k, s.Key.Shape, fmt.Sprintf("%s (key: %s)", name, k))
		v.validate(params[k], s.Value.Shape, name+"."+k)
	}
}

func (v *validator) str(value any, s *model.Shape, name string) {
	str, ok := value.(string)
	if !ok {
		v.invalidType(value, name, "string")
		return
	}
	if s.Min != nil && float64(utf8.RuneCountInString(str)) < *s.Min {
		v.addf("Invalid length for parameter %s, value: %d, valid min length: %s",
			displayName(name), utf8.RuneCountInString(str), formatBound(*s.Min))
	}
}

func (v *validator) integer(value any, s *model.Shape, name string) {
	n, ok := asInt(value)
	if !ok {
		v.invalidType(value, name, "int, int64, json.Number")
		return
	}
	if s.Min != nil && float64(n) < *s.Min {
		v.addf("Invalid value for parameter %s, value: %d, valid min value: %s",
			displayName(name), n, formatBound(*s.Min))
	}
}

func (v *validator) float(value any, s *model.Shape, name string) {
	f, ok := asFloat(value)
	if !ok {
		v.invalidType(value, name, "float64, int, json.Number")
		return
	}
	if s.Min != nil && f < *s.Min {
		v.addf("Invalid value for parameter %s, value: %v, valid min value: %s",
			displayName(name), f, formatBound(*s.Min))
	}
}

func (v *validator) blob(value any, name string) {
	switch value.(type) {
	case []byte, string, json.RawMessage:
		return
	}
	v.invalidType(value, name, "[]byte, string")
}

func (v *validator) timestamp(value any, name string) {
	switch t := value.(type) {
	case time.Time:
		return
	case string:
		if _, err := protocol.ParseTimestamp(t); err == nil {
			return
		}
	}
	v.invalidType(value, name, "time.Time, timestamp string")
}

func (v *validator) invalidType(value any, name, valid string) {
	v.addf("Invalid type for parameter %s, value: %v, type: %T, valid types: %s",
		displayName(name), value, value, valid)
}

// displayName turns an internal member path into the name shown to users.
func displayName(name string) string {
	if name == "" {
		return "input"
	}
	return strings.TrimPrefix(name, ".")
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func asInt(value any) (int64, bool) {
	switch n := value.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func asFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	if i, ok := asInt(value); ok {
		return float64(i), true
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}

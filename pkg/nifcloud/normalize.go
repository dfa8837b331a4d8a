package nifcloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

var (
	errInputNotObject = errors.New("input must be a map or a struct")

	timeType  = reflect.TypeOf(time.Time{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// normalizeInput turns a map or struct input into the loosely typed form the pipeline consumes.
// Field names follow the json tags of structs. time.Time and []byte values are kept as is.
func normalizeInput(input any) (map[string]any, error) {
	if input == nil {
		return map[string]any{}, nil
	}
	v, err := normalizeValue(reflect.ValueOf(input))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w, got %T", errInputNotObject, input)
	}
	return m, nil
}

func normalizeValue(rv reflect.Value) (any, error) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, nil
	}

	switch rv.Type() {
	case timeType:
		return rv.Interface(), nil
	case bytesType:
		return rv.Bytes(), nil
	}
	if n, ok := rv.Interface().(json.Number); ok {
		return n, nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		fallthrough
	case reflect.Array:
		items := make([]any, 0, rv.Len())
		for i := range rv.Len() {
			item, err := normalizeValue(rv.Index(i))
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, item)
		}
		return items, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		if rv.IsNil() {
			return nil, nil
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			v, err := normalizeValue(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", iter.Key().String(), err)
			}
			m[iter.Key().String()] = v
		}
		return m, nil
	case reflect.Struct:
		m := make(map[string]any)
		if err := normalizeStruct(rv, m); err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported input type %s", rv.Type())
}

func normalizeStruct(rv reflect.Value, m map[string]any) error {
	t := rv.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		name, omitEmpty, skip := fieldName(f)
		if skip {
			continue
		}
		fv := rv.Field(i)

		if f.Anonymous && f.Tag.Get("json") == "" {
			for fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					break
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				if err := normalizeStruct(fv, m); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if omitEmpty && fv.IsZero() {
			continue
		}

		v, err := normalizeValue(fv)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		// Unset pointers, maps and slices are left out, like missing parameters.
		if v == nil {
			continue
		}
		m[name] = v
	}
	return nil
}

func fieldName(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	for _, o := range strings.Split(opts, ",") {
		if o == "omitempty" || o == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

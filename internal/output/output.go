// Package output prints operation results in the formats of the command line tool.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Format is an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
	FormatTable Format = "table"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatYAML, FormatTOML, FormatTable}

// ErrUnknownFormat is returned for a format not in Formats.
var ErrUnknownFormat = errors.New("unsupported output format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("%w %q (valid: json, yaml, toml, table)", ErrUnknownFormat, s)
	}
	return f, nil
}

// Normalize returns the JSON form of v decoded back into maps, slices and scalars.
// Times become RFC 3339 strings and blobs become base64 strings. Integers are kept as int64.
func Normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("could not encode result: %w", err)
	}
	return decode(data)
}

// Query selects part of the normalized result with a gjson path. A path matching nothing gives nil.
func Query(v any, path string) (any, error) {
	if path == "" {
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("could not encode result: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("result is not valid JSON")
	}
	r := gjson.GetBytes(data, path)
	if !r.Exists() {
		return nil, nil
	}
	return decode([]byte(r.Raw))
}

// Write prints v to w in format, after selecting query when set.
func Write(w io.Writer, v any, format Format, query string) error {
	n, err := Normalize(v)
	if err != nil {
		return err
	}
	if n, err = Query(n, query); err != nil {
		return err
	}

	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		enc.SetEscapeHTML(false)
		return enc.Encode(n)

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(n); err != nil {
			return fmt.Errorf("could not encode YAML: %w", err)
		}
		return enc.Close()

	case FormatTOML:
		m, ok := n.(map[string]any)
		if !ok {
			m = map[string]any{"result": n}
		}
		if err := toml.NewEncoder(w).Encode(m); err != nil {
			return fmt.Errorf("could not encode TOML: %w", err)
		}
		return nil

	case FormatTable:
		_, err := io.WriteString(w, renderTable(n))
		return err
	}
	return fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

func decode(data []byte) (any, error) {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	var v any
	if err := d.Decode(&v); err != nil {
		return nil, fmt.Errorf("could not decode result: %w", err)
	}
	return numbers(v), nil
}

// numbers replaces json.Number by int64 or float64.
func numbers(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = numbers(e)
		}
	case []any:
		for i, e := range x {
			x[i] = numbers(e)
		}
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	}
	return v
}

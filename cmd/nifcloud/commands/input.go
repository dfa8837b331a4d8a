package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ubuntu/decorate"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

var errInputConflict = errors.New("--input and --input-file are mutually exclusive")

// inputFlags are the operation parameters given on the command line.
type inputFlags struct {
	inline string
	file   string
}

func (f inputFlags) params() (map[string]any, error) {
	switch {
	case f.inline != "" && f.file != "":
		return nil, errInputConflict
	case f.inline != "":
		return parseJSONInput([]byte(f.inline))
	case f.file != "":
		return readInputFile(f.file)
	}
	return map[string]any{}, nil
}

// readInputFile reads JSON, or YAML for .yaml and .yml files. UTF-8 and UTF-16 byte order marks are honored.
func readInputFile(path string) (params map[string]any, err error) {
	defer decorate.OnError(&err, "could not read input file %s", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAMLInput(data)
	}
	return parseJSONInput(data)
}

func parseJSONInput(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("input is not a JSON object: %w", err)
	}
	if dec.More() {
		return nil, errors.New("input has trailing data after the JSON object")
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

func parseYAMLInput(data []byte) (map[string]any, error) {
	var params map[string]any
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("input is not a YAML mapping: %w", err)
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

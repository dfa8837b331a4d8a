package fileutils

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
)

// ParseJSON unmarshals the data in r into v.
func ParseJSON(r io.Reader, v any) error {
	// Read the entire content of the io.Reader first to check for errors even if valid json is first.
	buf, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("error reading from io.Reader: %v", err)
	}

	err = json.Unmarshal(buf, v)
	if err != nil {
		return fmt.Errorf("couldn't parse JSON: %w", err)
	}
	return nil
}

// ParseJSONFile opens name in fsys and unmarshals it into v.
func ParseJSONFile(fsys fs.FS, name string, v any) error {
	f, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := ParseJSON(f, v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

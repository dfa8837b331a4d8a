package output

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// renderTable prints scalars of a map as key/value rows and each nested
// list or map as its own titled table.
func renderTable(v any) string {
	var b strings.Builder
	section(&b, "", v)
	return b.String()
}

func section(b *strings.Builder, title string, v any) {
	switch x := v.(type) {
	case map[string]any:
		keys := slices.Sorted(maps.Keys(x))
		t := newTable(title)
		t.AppendHeader(table.Row{"Key", "Value"})
		rows := 0
		for _, k := range keys {
			if isScalar(x[k]) {
				t.AppendRow(table.Row{k, scalar(x[k])})
				rows++
			}
		}
		if rows > 0 {
			b.WriteString(t.Render() + "\n")
		}
		for _, k := range keys {
			if !isScalar(x[k]) {
				section(b, join(title, k), x[k])
			}
		}

	case []any:
		if len(x) == 0 {
			return
		}
		if cols := columns(x); len(cols) > 0 {
			t := newTable(title)
			header := table.Row{}
			for _, c := range cols {
				header = append(header, c)
			}
			t.AppendHeader(header)
			for _, e := range x {
				m, _ := e.(map[string]any)
				row := table.Row{}
				for _, c := range cols {
					row = append(row, scalar(m[c]))
				}
				t.AppendRow(row)
			}
			b.WriteString(t.Render() + "\n")
			for i, e := range x {
				if m, ok := e.(map[string]any); ok {
					for _, k := range slices.Sorted(maps.Keys(m)) {
						if !isScalar(m[k]) {
							section(b, fmt.Sprintf("%s[%d].%s", title, i, k), m[k])
						}
					}
				}
			}
			return
		}
		t := newTable(title)
		for _, e := range x {
			if isScalar(e) {
				t.AppendRow(table.Row{scalar(e)})
			}
		}
		if t.Length() > 0 {
			b.WriteString(t.Render() + "\n")
		}
		for i, e := range x {
			if !isScalar(e) {
				section(b, fmt.Sprintf("%s[%d]", title, i), e)
			}
		}

	default:
		t := newTable(title)
		t.AppendRow(table.Row{scalar(v)})
		b.WriteString(t.Render() + "\n")
	}
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// columns returns the sorted scalar keys of a list of maps, nil if any element is not a map.
func columns(list []any) []string {
	set := make(map[string]bool)
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			return nil
		}
		for k, v := range m {
			if isScalar(v) {
				set[k] = true
			}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	}
	return true
}

func scalar(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func join(title, key string) string {
	if title == "" {
		return key
	}
	return title + "." + key
}

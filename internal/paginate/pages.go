package paginate

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// nextToken reads the output tokens of a page, nil for each one absent.
// A false more results key ends the pagination.
func (p *Paginator) nextToken(doc gjson.Result) map[string]any {
	next := make(map[string]any, len(p.inputTokens))
	if p.moreResults != nil && !truthy(p.moreResults.Search(doc)) {
		return next
	}
	for i, e := range p.outputTokens {
		v := e.Search(doc)
		if !truthy(v) {
			v = nil
		}
		next[p.inputTokens[i]] = v
	}
	return next
}

func (p *Paginator) injectToken(tok map[string]any) {
	for k, v := range tok {
		if v == nil || v == "None" {
			delete(p.params, k)
			continue
		}
		p.params[k] = v
	}
}

func (p *Paginator) primaryCount(page map[string]any) int {
	if len(p.resultKeys) == 0 {
		return 0
	}
	v, _ := lookup(page, p.resultKeys[0])
	return length(v)
}

// trimFirstPage drops the items already returned before the starting token,
// and empties secondary result keys which were complete already.
func (p *Paginator) trimFirstPage(page map[string]any) {
	if len(p.resultKeys) == 0 {
		return
	}
	primary := p.resultKeys[0]
	v, _ := lookup(page, primary)
	switch x := v.(type) {
	case []any:
		assign(page, primary, x[min(p.startingTruncation, len(x)):])
	case string:
		assign(page, primary, x[min(p.startingTruncation, len(x)):])
	default:
		assign(page, primary, nil)
	}

	for _, k := range p.resultKeys[1:] {
		v, _ := lookup(page, k)
		assign(page, k, emptyLike(v))
	}
}

// truncate cuts over items off the primary result key of the last page
// and records where to resume.
func (p *Paginator) truncate(page map[string]any, over int) {
	primary := p.resultKeys[0]
	v, _ := lookup(page, primary)
	list, _ := v.([]any)
	keep := max(len(list)-over, 0)
	assign(page, primary, list[:keep])

	resume := maps.Clone(p.token)
	resume[truncateKey] = keep + p.startingTruncation
	p.resumeToken = resume
}

func encodeToken(tok map[string]any) string {
	data, err := json.Marshal(tok)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// decodeToken reads a token from encodeToken, or the legacy form joining tokens with "___".
func decodeToken(s string, inputTokens []string) (map[string]any, int, error) {
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		var tok map[string]any
		d := json.NewDecoder(strings.NewReader(string(data)))
		d.UseNumber()
		if err := d.Decode(&tok); err == nil && tok != nil {
			truncate := 0
			if n, ok := tok[truncateKey]; ok {
				i, err := strconv.Atoi(fmt.Sprint(n))
				if err != nil {
					return nil, 0, fmt.Errorf("%w: bad truncation %v", ErrInvalidToken, n)
				}
				truncate = i
				delete(tok, truncateKey)
			}
			for k, v := range tok {
				if n, ok := v.(json.Number); ok {
					tok[k] = n.String()
				}
			}
			return tok, truncate, nil
		}
	}

	parts := strings.Split(s, "___")
	truncate := 0
	if len(parts) == len(inputTokens)+1 {
		i, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %q", ErrInvalidToken, s)
		}
		truncate = i
		parts = parts[:len(parts)-1]
	}
	if len(parts) != len(inputTokens) {
		return nil, 0, fmt.Errorf("%w: %q has %d parts for %d tokens", ErrInvalidToken, s, len(parts), len(inputTokens))
	}
	tok := make(map[string]any, len(parts))
	for i, k := range inputTokens {
		tok[k] = parts[i]
		if parts[i] == "None" {
			tok[k] = nil
		}
	}
	return tok, truncate, nil
}

// lookup reads a dotted path of nested maps.
func lookup(m map[string]any, path string) (any, bool) {
	var cur any = m
	for k := range strings.SplitSeq(path, ".") {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = mm[k]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// assign sets a dotted path of nested maps, creating the intermediate ones.
func assign(m map[string]any, path string, v any) {
	keys := strings.Split(path, ".")
	for _, k := range keys[:len(keys)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[k] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = v
}

func merge(existing, v any) any {
	switch x := existing.(type) {
	case []any:
		if l, ok := v.([]any); ok {
			return append(x, l...)
		}
	case string:
		if s, ok := v.(string); ok {
			return x + s
		}
	case int64:
		if n, ok := v.(int64); ok {
			return x + n
		}
	case float64:
		if n, ok := v.(float64); ok {
			return x + n
		}
	}
	return existing
}

func clone(v any) any {
	if l, ok := v.([]any); ok {
		return append([]any(nil), l...)
	}
	return v
}

func emptyLike(v any) any {
	switch v.(type) {
	case []any:
		return []any{}
	case string:
		return ""
	case int64:
		return int64(0)
	case float64:
		return float64(0)
	}
	return nil
}

func length(v any) int {
	switch x := v.(type) {
	case []any:
		return len(x)
	case string:
		return len(x)
	}
	return 0
}

func allNil(tok map[string]any) bool {
	for _, v := range tok {
		if v != nil {
			return false
		}
	}
	return true
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

// Package protocol holds the wire helpers shared by serializers, parsers and signers.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Timestamp formats named by the timestampFormat trait.
const (
	TimestampISO8601 = "iso8601"
	TimestampRFC822  = "rfc822"
	TimestampUnix    = "unixTimestamp"
)

const (
	iso8601Layout      = "2006-01-02T15:04:05Z"
	iso8601MicroLayout = "2006-01-02T15:04:05.000000Z"
	rfc822Layout       = "Mon, 02 Jan 2006 15:04:05 GMT"
)

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
	rfc822Layout,
	time.RFC850,
	time.ANSIC,
}

// ParseTimestamp parses the timestamp forms NIFCLOUD APIs send or accept:
// ISO 8601 with or without offset, RFC 822 and epoch seconds. The result is in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		sec, frac := int64(f), f-float64(int64(f))
		return time.Unix(sec, int64(frac*1e9)).UTC(), nil
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// ToTime converts a user supplied timestamp value.
func ToTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("nil timestamp")
		}
		return *t, nil
	case string:
		return ParseTimestamp(t)
	case json.Number:
		return ParseTimestamp(t.String())
	case int:
		return time.Unix(int64(t), 0).UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case float64:
		return ParseTimestamp(strconv.FormatFloat(t, 'f', -1, 64))
	}
	return time.Time{}, fmt.Errorf("invalid timestamp value of type %T", v)
}

// FormatTimestamp renders t in format, defaulting to ISO 8601.
func FormatTimestamp(t time.Time, format string) string {
	t = t.UTC()
	switch format {
	case TimestampRFC822:
		return t.Format(rfc822Layout)
	case TimestampUnix:
		return strconv.FormatInt(t.Unix(), 10)
	}
	if t.Nanosecond()/1000 > 0 {
		return t.Format(iso8601MicroLayout)
	}
	return t.Format(iso8601Layout)
}

// FormatScalar renders a scalar input value as text.
func FormatScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case []byte:
		return string(t)
	case time.Time:
		return FormatTimestamp(t, TimestampISO8601)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// ToBytes converts a blob input value.
func ToBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	case json.RawMessage:
		return t, nil
	}
	return nil, fmt.Errorf("invalid blob value of type %T", v)
}

// Base64 encodes a blob input value.
func Base64(v any) (string, error) {
	b, err := ToBytes(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Truthy reports whether a boolean input value is true. Strings are parsed.
func Truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	}
	return false
}

// Escape percent encodes s per RFC 3986. Unreserved characters and those in safe are kept.
func Escape(s, safe string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || (c < 0x80 && strings.IndexByte(safe, c) >= 0) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

// EncodeQuery encodes values sorted by key with RFC 3986 escaping.
func EncodeQuery(values url.Values) string {
	keys := slices.Sorted(maps.Keys(values))

	var pairs []string
	for _, k := range keys {
		for _, v := range values[k] {
			pairs = append(pairs, Escape(k, "")+"="+Escape(v, ""))
		}
	}
	return strings.Join(pairs, "&")
}

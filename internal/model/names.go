package model

import (
	"regexp"
	"strings"
	"sync"
)

var (
	firstCapRe    = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	endCapRe      = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	specialCaseRe = regexp.MustCompile(`[A-Z]{2,}s$`)

	xformCache sync.Map
)

// XformName converts a CamelCase API name to its snake_case method name.
// DescribeInstances becomes describe_instances and NiftyDescribeDHCPs becomes nifty_describe_dhcps.
// Names already containing an underscore are returned unchanged.
func XformName(name string) string {
	if strings.Contains(name, "_") {
		return name
	}
	if v, ok := xformCache.Load(name); ok {
		return v.(string)
	}

	n := name
	if matched := specialCaseRe.FindString(n); matched != "" {
		n = n[:len(n)-len(matched)] + "_" + strings.ToLower(matched)
	}
	n = firstCapRe.ReplaceAllString(n, "${1}_${2}")
	n = strings.ToLower(endCapRe.ReplaceAllString(n, "${1}_${2}"))

	xformCache.Store(name, n)
	return n
}

package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Key layout delimiters. Components are escaped so none of these can appear
// inside a resource name, label, attribute key or value.
const (
	groupSeparator = "_"
	labelSeparator = "-"
	pairSeparator  = ":"
	pairDelimiter  = ","
)

// Standard group labels used by the resource handlers.
const (
	LabelQuery  = "query"
	LabelParams = "params"
)

// Attributes are the request-derived key/value pairs of one group.
type Attributes map[string]string

// AttributeGroup is a labeled set of attributes (e.g. query filters or path
// identifiers) that parameterizes a cache key.
type AttributeGroup struct {
	Label      string
	Attributes Attributes
}

// QueryGroup builds the "query" group from URL query values.
// Multi-valued parameters keep their received order. Each value is escaped
// before joining with ",", so ?a=1&a=2 and ?a=1%2C2 stay distinct.
func QueryGroup(values url.Values) AttributeGroup {
	attrs := make(Attributes, len(values))
	for k, v := range values {
		escaped := make([]string, len(v))
		for i := range v {
			escaped[i] = escape(v[i])
		}
		attrs[k] = strings.Join(escaped, pairDelimiter)
	}
	return AttributeGroup{Label: LabelQuery, Attributes: attrs}
}

// PathGroup builds the "params" group from route path parameters.
func PathGroup(params map[string]string) AttributeGroup {
	return AttributeGroup{Label: LabelParams, Attributes: Attributes(params)}
}

// DeriveKey generates a deterministic cache key string.
// Format: resource_label-k1:v1,k2:v2_label2-k:v
//
// Example:
//
//	photos_query-albumId:3
//
// Groups appear in the order given and are omitted when empty. Pairs inside a
// group are sorted by attribute key, so map iteration order never leaks into
// the key. Every component is percent-encoded outside [A-Za-z0-9.~].
//
// DeriveKey panics if resource is empty.
func DeriveKey(resource string, groups ...AttributeGroup) string {
	if resource == "" {
		panic("cache: resource name cannot be empty")
	}

	var b strings.Builder
	b.WriteString(escape(resource))

	for _, g := range groups {
		if len(g.Attributes) == 0 {
			continue
		}

		keys := make([]string, 0, len(g.Attributes))
		for k := range g.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(groupSeparator)
		b.WriteString(escape(g.Label))
		b.WriteString(labelSeparator)
		for i, k := range keys {
			if i > 0 {
				b.WriteString(pairDelimiter)
			}
			b.WriteString(escape(k))
			b.WriteString(pairSeparator)
			b.WriteString(escape(g.Attributes[k]))
		}
	}

	return b.String()
}

const upperhex = "0123456789ABCDEF"

// escape percent-encodes every byte that is not an ASCII letter, digit, '.' or '~'.
func escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	buf := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c) {
			buf = append(buf, '%', upperhex[c>>4], upperhex[c&15])
			continue
		}
		buf = append(buf, c)
	}
	return string(buf)
}

func shouldEscape(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return false
	case c == '.' || c == '~':
		return false
	}
	return true
}

package query

import (
	"fmt"
	"net/url"
	"strings"
)

// Pair is a single name/value entry of a normalized query.
type Pair struct {
	Name  string
	Value string
}

// Pairs is an ordered list of query entries. Unlike url.Values, order is
// significant and a name may appear any number of times.
type Pairs []Pair

// Get retrieves the first value associated with the given name.
// If there are no values associated with the name, Get returns
// the empty string.
func (p Pairs) Get(name string) string {
	for _, pair := range p {
		if pair.Name == name {
			return pair.Value
		}
	}
	return ""
}

// Values returns every value associated with the name, in order.
func (p Pairs) Values(name string) []string {
	var vs []string
	for _, pair := range p {
		if pair.Name == name {
			vs = append(vs, pair.Value)
		}
	}
	return vs
}

// Add appends a pair to the end of the list.
func (p *Pairs) Add(name, value string) {
	*p = append(*p, Pair{Name: name, Value: value})
}

// Encode converts the pairs into a query string of the form
// "k1=v1&k2=v2" in list order. Names are written as-is, values are
// percent-encoded with PercentEncode.
func (p Pairs) Encode() string {
	if len(p) == 0 {
		return ""
	}

	var buf strings.Builder
	for _, pair := range p {
		// Add '&' separator if it's not the first pair
		if buf.Len() > 0 {
			buf.WriteByte('&')
		}

		buf.WriteString(pair.Name)
		buf.WriteByte('=')
		buf.WriteString(PercentEncode(pair.Value))
	}
	return buf.String()
}

// String implements fmt.Stringer.
func (p Pairs) String() string {
	return p.Encode()
}

// PercentEncode escapes every byte outside the unreserved set
// (ALPHA / DIGIT / "-" / "_" / "." / "~"). Space becomes %20.
func PercentEncode(s string) string {
	// QueryEscape leaves exactly the unreserved set untouched and turns a literal
	// '+' into %2B, so every '+' left in its output stands for a space.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ParseQuery decodes a query string produced by Encode back into ordered pairs.
// A leading '?' is ignored, empty segments are skipped and a segment without
// '=' yields an empty value.
func ParseQuery(query string) (Pairs, error) {
	query = strings.TrimPrefix(query, "?")

	var pairs Pairs
	for query != "" {
		var segment string
		segment, query, _ = strings.Cut(query, "&")
		if segment == "" {
			continue
		}

		name, value, _ := strings.Cut(segment, "=")
		name, err := url.QueryUnescape(name)
		if err != nil {
			return nil, fmt.Errorf("invalid query name %q: %w", segment, err)
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("invalid query value %q: %w", segment, err)
		}
		pairs.Add(name, value)
	}
	return pairs, nil
}

package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is a tagged-variant OTLP attribute value: string, bool, int, double,
// or a list of scalars. Nested maps are not represented directly; callers
// flatten them to their JSON string form before storing.
type Value struct {
	Str     *string  `json:"str,omitempty"`
	Bool    *bool    `json:"bool,omitempty"`
	Int     *int64   `json:"int,omitempty"`
	Double  *float64 `json:"double,omitempty"`
	List    []Value  `json:"list,omitempty"`
}

func StringValue(s string) Value   { return Value{Str: &s} }
func BoolValue(b bool) Value       { return Value{Bool: &b} }
func IntValue(i int64) Value       { return Value{Int: &i} }
func DoubleValue(f float64) Value  { return Value{Double: &f} }
func ListValue(vs []Value) Value   { return Value{List: vs} }

// Text renders the value the way it appears in the flat key=value scan form
// and in JSON attribute dumps shown to a human.
func (v Value) Text() string {
	switch {
	case v.Str != nil:
		return *v.Str
	case v.Bool != nil:
		return strconv.FormatBool(*v.Bool)
	case v.Int != nil:
		return strconv.FormatInt(*v.Int, 10)
	case v.Double != nil:
		return strconv.FormatFloat(*v.Double, 'g', -1, 64)
	case v.List != nil:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.Text()
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return ""
	}
}

// Attrs is a string-keyed attribute map. Iteration order for any
// serialization (JSON or flat text) is always alphabetical by key — this is
// required for deterministic substring search over the flat form.
type Attrs map[string]Value

// Set stores an attribute under key, the common case when merging OTLP resource
// or scope attributes that have already been reduced to scalars.
func (a Attrs) Set(key string, v Value) {
	a[key] = v
}

// SortedKeys returns the attribute keys in alphabetical order.
func (a Attrs) SortedKeys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// JSON renders the attribute map as canonical (key-sorted) JSON.
func (a Attrs) JSON() string {
	if len(a) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range a.SortedKeys() {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		b.Write(kb)
		b.WriteByte(':')
		b.WriteString(a[k].text2json())
	}
	b.WriteByte('}')
	return b.String()
}

func (v Value) text2json() string {
	switch {
	case v.Str != nil:
		b, _ := json.Marshal(*v.Str)
		return string(b)
	case v.Bool != nil:
		return strconv.FormatBool(*v.Bool)
	case v.Int != nil:
		return strconv.FormatInt(*v.Int, 10)
	case v.Double != nil:
		return strconv.FormatFloat(*v.Double, 'g', -1, 64)
	case v.List != nil:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.text2json()
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return "null"
	}
}

// FlatText renders "key=value" pairs, one per attribute, sorted
// alphabetically by key and joined by a single space, for substring scans.
func (a Attrs) FlatText() string {
	keys := a.SortedKeys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, a[k].Text())
	}
	return strings.Join(parts, " ")
}

// Merge copies every entry of other into a, overwriting existing keys.
// Used to fold resource/scope attributes into a record's own attributes.
func (a Attrs) Merge(other Attrs, prefix string) {
	for k, v := range other {
		a[prefix+k] = v
	}
}

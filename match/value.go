package match

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Kind is the shape of a loosely typed stored field.
type Kind uint8

const (
	Absent Kind = iota
	Scalar
	Set
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Set:
		return "set"
	default:
		return "absent"
	}
}

// Value holds a profile or preference field that may arrive as a string, a
// number, a list, or nothing at all. It is normalised once when decoded so the
// scorers never branch on raw JSON shapes.
type Value struct {
	kind   Kind
	scalar string
	items  []string
}

// ScalarOf returns a Scalar value, or Absent when s is blank.
func ScalarOf(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}
	}
	return Value{kind: Scalar, scalar: s}
}

// SetOf returns a Set of the non-blank items, or Absent when none remain.
func SetOf(items ...string) Value {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return Value{}
	}
	return Value{kind: Set, items: out}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsAbsent() bool { return v.kind == Absent }

// Text returns the scalar text. It is empty for sets and absent values.
func (v Value) Text() string { return v.scalar }

// Items returns the members of a set, or the scalar as a one-element slice.
func (v Value) Items() []string {
	switch v.kind {
	case Set:
		return v.items
	case Scalar:
		return []string{v.scalar}
	default:
		return nil
	}
}

// Float parses a scalar as a number.
func (v Value) Float() (float64, bool) {
	if v.kind != Scalar {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.scalar, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Split turns a scalar holding a comma separated list into a Set. Both ASCII
// and full-width commas separate items. Sets and absent values are returned
// unchanged.
func (v Value) Split() Value {
	if v.kind != Scalar {
		return v
	}
	return SetOf(splitList(v.scalar)...)
}

func (v Value) contains(s string) bool {
	for _, it := range v.Items() {
		if it == s {
			return true
		}
	}
	return false
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		// Unreadable field values are treated as missing data.
		*v = Value{}
		return nil
	}
	*v = valueOf(raw)
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Scalar:
		return json.Marshal(v.scalar)
	case Set:
		return json.Marshal(v.items)
	default:
		return []byte("null"), nil
	}
}

func valueOf(raw any) Value {
	switch t := raw.(type) {
	case string:
		return ScalarOf(t)
	case float64, bool:
		return ScalarOf(textOf(t))
	case []any:
		items := make([]string, 0, len(t))
		for _, e := range t {
			if s := textOf(e); s != "" {
				items = append(items, s)
			}
		}
		return SetOf(items...)
	default:
		return Value{}
	}
}

func textOf(raw any) string {
	switch t := raw.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func splitList(s string) []string {
	s = strings.ReplaceAll(s, "，", ",")
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Range is an inclusive numeric interval.
type Range struct {
	Min, Max float64
}

// ParseRange parses "min-max". The boolean is false for anything malformed,
// which callers treat exactly like an absent field.
func ParseRange(s string) (Range, bool) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Range{}, false
	}
	minV, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return Range{}, false
	}
	maxV, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return Range{}, false
	}
	return Range{Min: minV, Max: maxV}, true
}

func (r Range) Contains(x float64) bool {
	return r.Min <= x && x <= r.Max
}

package document

import (
	"strconv"
	"strings"
)

// onWords is the vocabulary a checkbox accepts as checked, compared
// case-insensitively. Mirrors the values applicants actually type into the
// wizard, including the Spanish affirmatives.
var onWords = map[string]struct{}{
	"yes":  {},
	"si":   {},
	"sí":   {},
	"true": {},
	"1":    {},
	"x":    {},
}

// Text converts a stored value to the string a text widget receives. Missing
// values become the empty string; scalars take their natural string form.
// Containers yield "": the mapping table must never point a text field at a
// non-scalar.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

// BoolState decides whether a checkbox is checked. Native booleans pass
// through, numerics are true when nonzero, and strings are matched against
// the checked vocabulary. Everything else, including a missing value, is
// unchecked.
func BoolState(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case string:
		_, ok := onWords[strings.ToLower(strings.TrimSpace(t))]
		return ok
	default:
		return false
	}
}

// Option returns the export value to select on a radio group. A missing value
// reports ok=false so the group is left in its default state; non-scalar
// values are likewise not selectable.
func Option(v any) (string, bool) {
	switch v.(type) {
	case nil, map[string]any, []any:
		return "", false
	}
	return Text(v), true
}

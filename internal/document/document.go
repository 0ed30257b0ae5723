// Package document implements the schemaless answer document that backs a
// case: dotted-path lookup over nested JSON, the draft merge rule, and the
// value coercions the PDF widget kinds expect.
package document

import (
	"strconv"
	"strings"
)

// Document is one applicant's answers for one form, as decoded JSON.
// There is no fixed schema; any key may be absent at any time.
type Document = map[string]any

// Get resolves a dot-separated path against a nested document. Segments are
// object keys, or non-negative integer indices when the current value is a
// list ("children.2.dob"). Traversal is total: the moment a segment cannot be
// resolved, Get returns nil. It never panics.
func Get(doc Document, path string) any {
	var cur any = doc
	if path == "" {
		return nil
	}
	for _, seg := range strings.Split(path, ".") {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[seg]
			if !ok {
				return nil
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(c) {
				return nil
			}
			cur = c[i]
		default:
			// Scalar or nil mid-path.
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Merge combines a stored document with an incoming patch: shallow union of
// top-level keys where the patch wins. Nested objects supplied by the patch
// replace the stored value wholesale; Merge never recurses. Both inputs are
// left untouched.
func Merge(base, patch Document) Document {
	out := make(Document, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// IsObject reports whether v is a plain JSON object, the only shape accepted
// as a patch.
func IsObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

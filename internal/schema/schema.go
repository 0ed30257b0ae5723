// Package schema declares the logical shape of each form type's answer
// document. Documents are schemaless at write time; validation is applied
// narrowly, before machine-produced answers (intake normalization) are
// trusted enough to merge into a draft.
package schema

import (
	"fmt"
	"strings"

	"github.com/casekit/formfill/internal/mapping"
)

// Kind is the JSON type a property accepts.
type Kind string

const (
	KindString Kind = "string"
	KindBool   Kind = "boolean"
	KindNumber Kind = "number"
	KindObject Kind = "object"
	KindArray  Kind = "array"
)

// Property describes one named value: its kind, allowed values for enums,
// child properties for objects, and the element shape for arrays.
type Property struct {
	Kind       Kind
	Enum       []string
	Properties map[string]*Property
	Items      *Property
}

// Shape is the full logical shape of one form type's document.
type Shape struct {
	Form       string
	Properties map[string]*Property
}

// Issue is one validation finding, addressed by dotted path.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

// ForForm returns the shape of a form type, or false when none is declared.
func ForForm(form string) (*Shape, bool) {
	s, ok := shapes[mapping.NormalizeForm(form)]
	return s, ok
}

// Validate checks a document against the shape. Partial documents are fine;
// every value is optional. Findings are limited to present values of the
// wrong kind, enum violations, and unknown keys.
func (s *Shape) Validate(doc map[string]any) []Issue {
	return validateObject(doc, s.Properties, "")
}

func validateObject(obj map[string]any, props map[string]*Property, prefix string) []Issue {
	var issues []Issue
	for key, val := range obj {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		p, known := props[key]
		if !known {
			issues = append(issues, Issue{Path: path, Message: "unknown key"})
			continue
		}
		issues = append(issues, validateValue(val, p, path)...)
	}
	return issues
}

func validateValue(val any, p *Property, path string) []Issue {
	if val == nil {
		return nil
	}
	switch p.Kind {
	case KindString:
		str, ok := val.(string)
		if !ok {
			return []Issue{{Path: path, Message: "expected string"}}
		}
		if len(p.Enum) > 0 && !contains(p.Enum, str) {
			return []Issue{{
				Path:    path,
				Message: fmt.Sprintf("must be one of %s", strings.Join(p.Enum, ", ")),
			}}
		}
	case KindBool:
		if _, ok := val.(bool); !ok {
			return []Issue{{Path: path, Message: "expected boolean"}}
		}
	case KindNumber:
		switch val.(type) {
		case float64, int, int64:
		default:
			return []Issue{{Path: path, Message: "expected number"}}
		}
	case KindObject:
		obj, ok := val.(map[string]any)
		if !ok {
			return []Issue{{Path: path, Message: "expected object"}}
		}
		return validateObject(obj, p.Properties, path)
	case KindArray:
		arr, ok := val.([]any)
		if !ok {
			return []Issue{{Path: path, Message: "expected list"}}
		}
		var issues []Issue
		for i, item := range arr {
			issues = append(issues, validateValue(item, p.Items, fmt.Sprintf("%s.%d", path, i))...)
		}
		return issues
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

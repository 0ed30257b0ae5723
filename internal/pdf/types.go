// Package pdf implements the form-fill engine: reading the widget inventory
// of an AcroForm template and rendering an answer document onto it through a
// mapping table. It drives pdfcpu at the dictionary level so fills stay a
// pure function of template bytes, document, and table.
package pdf

import (
	"github.com/casekit/formfill/internal/mapping"
)

// FieldKind classifies an AcroForm field.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldCheckbox FieldKind = "checkbox"
	FieldRadio    FieldKind = "radio"
	FieldSelect   FieldKind = "select"
	FieldButton   FieldKind = "button"
	FieldUnknown  FieldKind = "unknown"
)

// Field describes one named field of a template, as reported by the
// inventory. Options carries the export values of a radio group's widgets
// (for a checkbox, its single on state).
type Field struct {
	Name     string   `json:"name"`
	Kind     FieldKind `json:"kind"`
	Options  []string `json:"options,omitempty"`
	ReadOnly bool     `json:"readOnly,omitempty"`
}

// Miss records one mapping entry the renderer could not apply. Misses never
// fail a render; they are reported so strict callers can audit the output.
type Miss struct {
	Widget string       `json:"widget"`
	Path   string       `json:"path"`
	Kind   mapping.Kind `json:"kind"`
	Reason string       `json:"reason"`
}

// Report summarizes one render: how many entries were applied and which were
// skipped.
type Report struct {
	Filled int    `json:"filled"`
	Misses []Miss `json:"misses,omitempty"`
}

func (r *Report) miss(e mapping.Entry, kind mapping.Kind, reason string) {
	r.Misses = append(r.Misses, Miss{Widget: e.Widget, Path: e.Path, Kind: kind, Reason: reason})
}

const (
	missNotFound     = "widget not found in template"
	missKindMismatch = "widget kind does not match mapping kind"
	missNoOption     = "no matching radio option"
)

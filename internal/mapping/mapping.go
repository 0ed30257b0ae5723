// Package mapping holds the declarative correspondence between a PDF
// template's widget names and answer-document paths. Tables are data, not
// code: one embedded YAML file per form type, so a table can be diffed
// against the template's actual widget inventory offline.
package mapping

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var tableFS embed.FS

// Kind identifies the widget kind an entry targets.
type Kind string

const (
	KindText     Kind = "text"
	KindCheckbox Kind = "checkbox"
	KindRadio    Kind = "radio"
)

// Entry binds one named widget to one answer-document path. For radio
// entries the widget names a radio group and the resolved value must equal
// one of the group's export values.
type Entry struct {
	Widget string `yaml:"widget"`
	Path   string `yaml:"path"`
}

// Table is the full mapping for one form type, partitioned by widget kind.
type Table struct {
	Form       string  `yaml:"form"`
	Text       []Entry `yaml:"text"`
	Checkboxes []Entry `yaml:"checkboxes"`
	Radios     []Entry `yaml:"radios"`
}

var tables = mustLoadTables()

func mustLoadTables() map[string]*Table {
	entries, err := tableFS.ReadDir("tables")
	if err != nil {
		panic(fmt.Sprintf("mapping: read embedded tables: %v", err))
	}
	out := make(map[string]*Table, len(entries))
	for _, e := range entries {
		raw, err := tableFS.ReadFile("tables/" + e.Name())
		if err != nil {
			panic(fmt.Sprintf("mapping: read %s: %v", e.Name(), err))
		}
		var t Table
		if err := yaml.Unmarshal(raw, &t); err != nil {
			panic(fmt.Sprintf("mapping: parse %s: %v", e.Name(), err))
		}
		if err := t.Validate(); err != nil {
			panic(fmt.Sprintf("mapping: invalid table %s: %v", e.Name(), err))
		}
		out[NormalizeForm(t.Form)] = &t
	}
	return out
}

// NormalizeForm canonicalizes a form type: trimmed, upper-cased, hyphens
// removed, so "i-589", "I589" and "i589" name the same table.
func NormalizeForm(form string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(form)), "-", "")
}

// ForForm returns the mapping table for a form type, or an error when no
// table ships for it.
func ForForm(form string) (*Table, error) {
	t, ok := tables[NormalizeForm(form)]
	if !ok {
		return nil, fmt.Errorf("no mapping table for form type %q", form)
	}
	return t, nil
}

// Forms lists the form types with an embedded table, sorted.
func Forms() []string {
	out := make([]string, 0, len(tables))
	for f := range tables {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Validate checks structural soundness: a form name, non-empty widget names
// and paths, and widget names unique per kind.
func (t *Table) Validate() error {
	if strings.TrimSpace(t.Form) == "" {
		return fmt.Errorf("table has no form name")
	}
	for _, part := range []struct {
		kind    Kind
		entries []Entry
	}{
		{KindText, t.Text},
		{KindCheckbox, t.Checkboxes},
		{KindRadio, t.Radios},
	} {
		seen := make(map[string]struct{}, len(part.entries))
		for i, e := range part.entries {
			if e.Widget == "" {
				return fmt.Errorf("%s entry %d: empty widget name", part.kind, i)
			}
			if e.Path == "" {
				return fmt.Errorf("%s entry %q: empty path", part.kind, e.Widget)
			}
			if _, dup := seen[e.Widget]; dup {
				return fmt.Errorf("%s entry %q: duplicate widget name", part.kind, e.Widget)
			}
			seen[e.Widget] = struct{}{}
		}
	}
	return nil
}

// Len returns the total number of entries across all kinds.
func (t *Table) Len() int {
	return len(t.Text) + len(t.Checkboxes) + len(t.Radios)
}

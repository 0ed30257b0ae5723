package pdf

import (
	"github.com/casekit/formfill/internal/mapping"
)

// AuditFinding flags one disagreement between a mapping table and a
// template's widget inventory.
type AuditFinding struct {
	Widget string       `json:"widget"`
	Kind   mapping.Kind `json:"kind,omitempty"`
	Detail string       `json:"detail"`
}

// AuditReport is the offline diff of table versus template, produced by the
// inspection tool before a table revision ships.
type AuditReport struct {
	Missing    []AuditFinding `json:"missing,omitempty"`    // mapped but absent from template
	Mismatched []AuditFinding `json:"mismatched,omitempty"` // present with a different kind
	Unmapped   []string       `json:"unmapped,omitempty"`   // template fields no entry covers
}

// Clean reports whether the audit found nothing to flag.
func (r *AuditReport) Clean() bool {
	return len(r.Missing) == 0 && len(r.Mismatched) == 0 && len(r.Unmapped) == 0
}

var kindForMapping = map[mapping.Kind]FieldKind{
	mapping.KindText:     FieldText,
	mapping.KindCheckbox: FieldCheckbox,
	mapping.KindRadio:    FieldRadio,
}

// Audit diffs a mapping table against a template's field inventory.
func Audit(fields []Field, tbl *mapping.Table) *AuditReport {
	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}

	report := &AuditReport{}
	covered := make(map[string]struct{}, tbl.Len())

	check := func(kind mapping.Kind, entries []mapping.Entry) {
		for _, e := range entries {
			f, ok := byName[e.Widget]
			if !ok {
				report.Missing = append(report.Missing, AuditFinding{
					Widget: e.Widget, Kind: kind, Detail: "not present in template",
				})
				continue
			}
			covered[e.Widget] = struct{}{}
			if f.Kind != kindForMapping[kind] {
				report.Mismatched = append(report.Mismatched, AuditFinding{
					Widget: e.Widget, Kind: kind,
					Detail: "template kind is " + string(f.Kind),
				})
			}
		}
	}
	check(mapping.KindText, tbl.Text)
	check(mapping.KindCheckbox, tbl.Checkboxes)
	check(mapping.KindRadio, tbl.Radios)

	for _, f := range fields {
		if _, ok := covered[f.Name]; !ok {
			report.Unmapped = append(report.Unmapped, f.Name)
		}
	}
	return report
}

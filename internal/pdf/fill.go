package pdf

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/casekit/formfill/internal/document"
	"github.com/casekit/formfill/internal/mapping"
)

// Renderer fills a template's AcroForm fields from an answer document. A
// Renderer holds no state between calls; Render is a pure function of its
// inputs so one case always produces the same bytes for the same data and
// template.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render applies the mapping table to the document and returns the finished
// PDF. Per-field failures (unknown widget, kind drift, unmatched radio
// option) are recorded in the Report and never abort the render; only an
// unreadable template or a serialization failure is fatal.
func (r *Renderer) Render(template []byte, doc document.Document, tbl *mapping.Table) ([]byte, *Report, error) {
	ctx, err := readContext(template)
	if err != nil {
		return nil, nil, fmt.Errorf("load template: %w", err)
	}
	f, err := parseForm(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("parse form: %w", err)
	}

	report := &Report{}

	var fontRef *types.IndirectRef
	for _, e := range tbl.Text {
		fld, ok := f.byName[e.Widget]
		if !ok {
			report.miss(e, mapping.KindText, missNotFound)
			continue
		}
		if fld.kind != FieldText {
			report.miss(e, mapping.KindText, missKindMismatch)
			continue
		}
		if fontRef == nil {
			if fontRef, err = ensureFont(ctx, f.acro); err != nil {
				return nil, nil, fmt.Errorf("register appearance font: %w", err)
			}
		}
		value := document.Text(document.Get(doc, e.Path))
		if err := setText(ctx, fld, value, fontRef); err != nil {
			return nil, nil, fmt.Errorf("set text field %q: %w", e.Widget, err)
		}
		report.Filled++
	}

	for _, e := range tbl.Checkboxes {
		fld, ok := f.byName[e.Widget]
		if !ok {
			report.miss(e, mapping.KindCheckbox, missNotFound)
			continue
		}
		if fld.kind != FieldCheckbox {
			report.miss(e, mapping.KindCheckbox, missKindMismatch)
			continue
		}
		setCheckbox(fld, document.BoolState(document.Get(doc, e.Path)))
		report.Filled++
	}

	for _, e := range tbl.Radios {
		fld, ok := f.byName[e.Widget]
		if !ok {
			report.miss(e, mapping.KindRadio, missNotFound)
			continue
		}
		if fld.kind != FieldRadio {
			report.miss(e, mapping.KindRadio, missKindMismatch)
			continue
		}
		opt, ok := document.Option(document.Get(doc, e.Path))
		if !ok {
			// Missing answer: the group keeps its default state, counted as
			// applied rather than missed.
			report.Filled++
			continue
		}
		if !selectRadio(fld, opt) {
			report.miss(e, mapping.KindRadio, missNoOption)
			continue
		}
		report.Filled++
	}

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, nil, fmt.Errorf("serialize filled form: %w", err)
	}
	return buf.Bytes(), report, nil
}

// setText stores the value on the field and rebuilds each widget's normal
// appearance so the text shows in viewers that do not regenerate field
// appearances themselves.
func setText(ctx *model.Context, fld *formField, value string, fontRef *types.IndirectRef) error {
	fld.dict["V"] = textString(value)
	delete(fld.dict, "I")

	for _, widget := range fld.widgets {
		if err := writeTextAppearance(ctx, widget, fontRef, value); err != nil {
			return err
		}
	}
	return nil
}

func setCheckbox(fld *formField, on bool) {
	for i, widget := range fld.widgets {
		state := "Off"
		if on {
			state = fld.onStates[i]
			if state == "" {
				state = "Yes"
			}
		}
		fld.dict["V"] = types.Name(state)
		widget["AS"] = types.Name(state)
	}
}

// selectRadio selects the widget whose export value equals opt. Reports
// false when no widget carries that value; the group is then left untouched.
func selectRadio(fld *formField, opt string) bool {
	matched := false
	for _, s := range fld.onStates {
		if s == opt {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	fld.dict["V"] = types.Name(opt)
	for i, widget := range fld.widgets {
		if fld.onStates[i] == opt {
			widget["AS"] = types.Name(opt)
		} else {
			widget["AS"] = types.Name("Off")
		}
	}
	return true
}

// textString encodes a text field value as a UTF-16BE hex string literal.
// Hex form sidesteps parenthesis escaping and keeps output bytes a stable
// function of the input.
func textString(s string) types.HexLiteral {
	u := utf16.Encode([]rune(s))
	b := make([]byte, 0, 2+len(u)*2)
	b = append(b, 0xFE, 0xFF)
	for _, c := range u {
		b = append(b, byte(c>>8), byte(c))
	}
	return types.HexLiteral(strings.ToUpper(hex.EncodeToString(b)))
}

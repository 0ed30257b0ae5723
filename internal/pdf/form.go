package pdf

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// formField is one field of the loaded template. dict is the field
// dictionary holding V; widgets are the widget annotations holding AS and
// AP. For a merged field/widget (the common case for text fields and
// checkboxes) dict and widgets[0] are the same dictionary.
type formField struct {
	name     string
	kind     FieldKind
	dict     types.Dict
	widgets  []types.Dict
	onStates []string // per widget: the non-Off appearance state, "" if none
	readOnly bool
}

// form is the editable view of a parsed template.
type form struct {
	ctx    *model.Context
	acro   types.Dict
	fields []*formField
	byName map[string]*formField
}

func readContext(template []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(template), conf)
	if err != nil {
		return nil, fmt.Errorf("read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("ensure page count: %w", err)
	}
	return ctx, nil
}

// parseForm walks the AcroForm field tree into formFields. A template
// without an AcroForm yields an empty form; every mapping entry then misses,
// which is a per-field condition, not a parse failure.
func parseForm(ctx *model.Context) (*form, error) {
	f := &form{ctx: ctx, byName: make(map[string]*formField)}

	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("get catalog: %w", err)
	}

	acroObj, found := rootDict.Find("AcroForm")
	if !found {
		return f, nil
	}
	acro, err := ctx.DereferenceDict(acroObj)
	if err != nil || acro == nil {
		return f, nil
	}
	f.acro = acro

	fieldsObj, found := acro.Find("Fields")
	if !found {
		return f, nil
	}
	fieldsArr, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return f, nil
	}

	for _, fieldRef := range fieldsArr {
		fld := resolveField(ctx, fieldRef)
		if fld == nil || fld.name == "" {
			continue
		}
		if _, dup := f.byName[fld.name]; dup {
			continue
		}
		f.fields = append(f.fields, fld)
		f.byName[fld.name] = fld
	}
	return f, nil
}

func resolveField(ctx *model.Context, fieldObj types.Object) *formField {
	dict, err := ctx.DereferenceDict(fieldObj)
	if err != nil || dict == nil {
		return nil
	}

	fld := &formField{dict: dict}

	if nameObj, found := dict.Find("T"); found {
		if name, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			fld.name = name
		}
	}

	fld.kind = fieldKind(ctx, dict)

	if flagsObj, found := dict.Find("Ff"); found {
		if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
			fld.readOnly = (*flags & 1) != 0
		}
	}

	// Widget annotations: kids when present, else the field dict itself is a
	// merged field/widget.
	if kidsObj, found := dict.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kidRef := range kids {
				if kid, err := ctx.DereferenceDict(kidRef); err == nil && kid != nil {
					fld.widgets = append(fld.widgets, kid)
					fld.onStates = append(fld.onStates, onState(ctx, kid))
				}
			}
		}
	}
	if len(fld.widgets) == 0 {
		fld.widgets = append(fld.widgets, dict)
		fld.onStates = append(fld.onStates, onState(ctx, dict))
	}

	return fld
}

// fieldKind maps the FT entry (inherited through Parent when absent) to a
// FieldKind, splitting Btn into checkbox, radio group, and pushbutton via
// the field flags.
func fieldKind(ctx *model.Context, dict types.Dict) FieldKind {
	ftObj, found := dict.Find("FT")
	if !found {
		if parentObj, ok := dict.Find("Parent"); ok {
			if parent, err := ctx.DereferenceDict(parentObj); err == nil && parent != nil {
				return fieldKind(ctx, parent)
			}
		}
		return FieldUnknown
	}

	ft, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return FieldUnknown
	}

	switch ft {
	case "Tx":
		return FieldText
	case "Ch":
		return FieldSelect
	case "Btn":
		if flagsObj, found := dict.Find("Ff"); found {
			if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
				if (*flags & (1 << 15)) != 0 { // bit 16: radio
					return FieldRadio
				}
				if (*flags & (1 << 16)) != 0 { // bit 17: pushbutton
					return FieldButton
				}
			}
		}
		return FieldCheckbox
	default:
		return FieldUnknown
	}
}

// onState returns the checked appearance state of a button widget: the first
// key of its normal appearance dictionary that is not "Off". A widget
// without appearance states yields "".
func onState(ctx *model.Context, widget types.Dict) string {
	apObj, found := widget.Find("AP")
	if !found {
		return ""
	}
	ap, err := ctx.DereferenceDict(apObj)
	if err != nil || ap == nil {
		return ""
	}
	nObj, found := ap.Find("N")
	if !found {
		return ""
	}
	n, err := ctx.DereferenceDict(nObj)
	if err != nil || n == nil {
		return ""
	}
	for key := range n {
		if key != "Off" {
			return key
		}
	}
	return ""
}

// options collects the export values of a field's widgets, in widget order.
func (fld *formField) options() []string {
	var out []string
	for _, s := range fld.onStates {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

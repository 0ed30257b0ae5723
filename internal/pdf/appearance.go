package pdf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const (
	appearanceFontID = "Helv"
	defaultFontSize  = 10.0
	textInsetX       = 2.0
)

// ensureFont registers a Helvetica font resource in the AcroForm's default
// resources and returns its reference. Helvetica is a standard-14 font, so a
// bare font dictionary is enough; no program needs embedding.
func ensureFont(ctx *model.Context, acro types.Dict) (*types.IndirectRef, error) {
	fontDict := types.Dict(map[string]types.Object{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name("Helvetica"),
		"Encoding": types.Name("WinAnsiEncoding"),
	})
	fontRef, err := ctx.IndRefForNewObject(fontDict)
	if err != nil {
		return nil, err
	}

	if acro == nil {
		return fontRef, nil
	}

	var dr types.Dict
	if drObj, found := acro.Find("DR"); found {
		if d, err := ctx.DereferenceDict(drObj); err == nil && d != nil {
			dr = d
		}
	}
	if dr == nil {
		dr = types.Dict(map[string]types.Object{})
		acro["DR"] = dr
	}

	var fonts types.Dict
	if fObj, found := dr.Find("Font"); found {
		if d, err := ctx.DereferenceDict(fObj); err == nil && d != nil {
			fonts = d
		}
	}
	if fonts == nil {
		fonts = types.Dict(map[string]types.Object{})
		dr["Font"] = fonts
	}
	fonts[appearanceFontID] = *fontRef

	return fontRef, nil
}

// writeTextAppearance replaces a text widget's normal appearance with a form
// XObject drawing the value in the appearance font. The widget's DA string
// is updated to match so later editors regenerate consistently.
func writeTextAppearance(ctx *model.Context, widget types.Dict, fontRef *types.IndirectRef, value string) error {
	w, h, ok := widgetSize(ctx, widget)
	if !ok {
		// A widget without usable geometry keeps its template appearance;
		// the value is still set on the field.
		return nil
	}

	size := daFontSize(ctx, widget)
	if size <= 0 {
		size = defaultFontSize
	}
	if h > 4 && size > h-4 {
		size = h - 4
	}
	// Baseline roughly vertically centered in the widget box.
	baseline := (h-size)/2 + size*0.2
	if baseline < 2 {
		baseline = 2
	}

	content := fmt.Sprintf("/Tx BMC q BT /%s %.2f Tf 0 g %.2f %.2f Td (%s) Tj ET Q EMC",
		appearanceFontID, size, textInsetX, baseline, escapeContentText(value))

	sd, err := ctx.NewStreamDictForBuf([]byte(content))
	if err != nil {
		return err
	}
	sd.InsertName("Type", "XObject")
	sd.InsertName("Subtype", "Form")
	sd.InsertInt("FormType", 1)
	sd.Insert("BBox", types.NewNumberArray(0, 0, w, h))
	sd.Insert("Resources", types.Dict(map[string]types.Object{
		"Font": types.Dict(map[string]types.Object{appearanceFontID: *fontRef}),
	}))
	if err := sd.Encode(); err != nil {
		return err
	}
	apRef, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return err
	}

	widget["AP"] = types.Dict(map[string]types.Object{"N": *apRef})
	widget["DA"] = types.StringLiteral(fmt.Sprintf("/%s %.2f Tf 0 g", appearanceFontID, size))
	return nil
}

// widgetSize reads the widget's Rect and reports its width and height.
func widgetSize(ctx *model.Context, widget types.Dict) (w, h float64, ok bool) {
	rectObj, found := widget.Find("Rect")
	if !found {
		return 0, 0, false
	}
	rect, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(rect) != 4 {
		return 0, 0, false
	}
	coords := make([]float64, 4)
	for i, c := range rect {
		f, err := ctx.DereferenceNumber(c)
		if err != nil {
			return 0, 0, false
		}
		coords[i] = f
	}
	w = coords[2] - coords[0]
	h = coords[3] - coords[1]
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// daFontSize extracts the font size from the widget's default appearance
// string. Zero when the widget declares no Tf operator.
func daFontSize(ctx *model.Context, widget types.Dict) float64 {
	daObj, found := widget.Find("DA")
	if !found {
		return 0
	}
	da, err := ctx.DereferenceStringOrHexLiteral(daObj, model.V10, nil)
	if err != nil {
		return 0
	}
	return parseTf(da)
}

// parseTf scans a DA string for the font-size operand of its Tf operator.
func parseTf(da string) float64 {
	parts := strings.Fields(da)
	for i, p := range parts {
		if p == "Tf" && i >= 1 {
			if size, err := strconv.ParseFloat(parts[i-1], 64); err == nil {
				return size
			}
		}
	}
	return 0
}

// escapeContentText makes a value safe inside a literal string of a content
// stream. Runes beyond WinAnsi's reach degrade to '?'; line breaks become
// spaces since the appearance is single-line.
func escapeContentText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\\' || r == '(' || r == ')':
			b.WriteByte('\\')
			b.WriteByte(byte(r))
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteByte(' ')
		case r >= 32 && r < 127:
			b.WriteByte(byte(r))
		case r >= 160 && r <= 255:
			b.WriteString(fmt.Sprintf("\\%03o", r))
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}

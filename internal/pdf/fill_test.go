package pdf

import (
	"regexp"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casekit/formfill/internal/document"
	"github.com/casekit/formfill/internal/mapping"
)

func testTable() *mapping.Table {
	return &mapping.Table{
		Form: "I589",
		Text: []mapping.Entry{
			{Widget: "FirstName", Path: "identifiers.firstName"},
			{Widget: "LastName", Path: "identifiers.lastName"},
			{Widget: "DOB", Path: "bio.dob"},
			{Widget: "Narrative", Path: "narrative"},
		},
		Checkboxes: []mapping.Entry{
			{Widget: "Defensive_Application", Path: "defensive"},
		},
		Radios: []mapping.Entry{
			{Widget: "Sex", Path: "bio.sex"},
		},
	}
}

func testDoc() document.Document {
	return document.Document{
		"identifiers": map[string]any{"firstName": "Ana", "lastName": "Reyes"},
		"bio":         map[string]any{"dob": "01/02/1990", "sex": "M"},
		"defensive":   "yes",
		"narrative":   "Fled persecution (2019).",
	}
}

// reload parses rendered output back into a form for state assertions.
func reload(t *testing.T, out []byte) *form {
	t.Helper()
	ctx, err := readContext(out)
	require.NoError(t, err)
	f, err := parseForm(ctx)
	require.NoError(t, err)
	return f
}

func fieldValue(t *testing.T, f *form, name string) types.Object {
	t.Helper()
	fld, ok := f.byName[name]
	require.True(t, ok, "field %s not in output", name)
	v, _ := fld.dict.Find("V")
	return v
}

func TestRenderFillsMappedFields(t *testing.T) {
	out, report, err := NewRenderer().Render(buildFormTemplate(), testDoc(), testTable())
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Empty(t, report.Misses)
	assert.Equal(t, 6, report.Filled)

	f := reload(t, out)
	assert.Equal(t, textString("Ana"), fieldValue(t, f, "FirstName"))
	assert.Equal(t, textString("Reyes"), fieldValue(t, f, "LastName"))
	assert.Equal(t, textString("01/02/1990"), fieldValue(t, f, "DOB"))
	assert.Equal(t, textString("Fled persecution (2019)."), fieldValue(t, f, "Narrative"))
	assert.Equal(t, types.Name("Yes"), fieldValue(t, f, "Defensive_Application"))
	assert.Equal(t, types.Name("M"), fieldValue(t, f, "Sex"))

	// Selected radio widget carries its export state, the sibling is Off.
	sex := f.byName["Sex"]
	require.Len(t, sex.widgets, 2)
	as0, _ := sex.widgets[0].Find("AS")
	as1, _ := sex.widgets[1].Find("AS")
	assert.Equal(t, types.Name("M"), as0)
	assert.Equal(t, types.Name("Off"), as1)
}

func TestRenderMissingAnswersLeaveDefaults(t *testing.T) {
	doc := document.Document{"identifiers": map[string]any{"firstName": "Ana"}}

	out, report, err := NewRenderer().Render(buildFormTemplate(), doc, testTable())
	require.NoError(t, err)
	assert.Empty(t, report.Misses)

	f := reload(t, out)
	// Absent text answers become empty strings, absent checkbox unchecked,
	// absent radio untouched.
	assert.Equal(t, textString("Ana"), fieldValue(t, f, "FirstName"))
	assert.Equal(t, textString(""), fieldValue(t, f, "LastName"))
	assert.Equal(t, types.Name("Off"), fieldValue(t, f, "Defensive_Application"))
	assert.Equal(t, types.Name("Off"), fieldValue(t, f, "Sex"))
}

// One bogus entry must not disturb the remaining entries.
func TestRenderPerFieldIsolation(t *testing.T) {
	tbl := testTable()
	tbl.Text = append(tbl.Text, mapping.Entry{Widget: "NoSuchWidget", Path: "identifiers.firstName"})

	out, report, err := NewRenderer().Render(buildFormTemplate(), testDoc(), tbl)
	require.NoError(t, err)

	require.Len(t, report.Misses, 1)
	assert.Equal(t, "NoSuchWidget", report.Misses[0].Widget)
	assert.Equal(t, missNotFound, report.Misses[0].Reason)
	assert.Equal(t, 6, report.Filled)

	f := reload(t, out)
	assert.Equal(t, textString("Ana"), fieldValue(t, f, "FirstName"))
	assert.Equal(t, types.Name("Yes"), fieldValue(t, f, "Defensive_Application"))
}

func TestRenderKindMismatchIsAMiss(t *testing.T) {
	tbl := &mapping.Table{
		Form:       "I589",
		Checkboxes: []mapping.Entry{{Widget: "FirstName", Path: "defensive"}},
	}

	_, report, err := NewRenderer().Render(buildFormTemplate(), testDoc(), tbl)
	require.NoError(t, err)
	require.Len(t, report.Misses, 1)
	assert.Equal(t, missKindMismatch, report.Misses[0].Reason)
}

func TestRenderUnmatchedRadioOption(t *testing.T) {
	doc := testDoc()
	doc["bio"].(map[string]any)["sex"] = "Z"

	out, report, err := NewRenderer().Render(buildFormTemplate(), doc, testTable())
	require.NoError(t, err)

	require.Len(t, report.Misses, 1)
	assert.Equal(t, "Sex", report.Misses[0].Widget)
	assert.Equal(t, missNoOption, report.Misses[0].Reason)

	// Group keeps its default state.
	f := reload(t, out)
	assert.Equal(t, types.Name("Off"), fieldValue(t, f, "Sex"))
}

func TestRenderNoAcroForm(t *testing.T) {
	out, report, err := NewRenderer().Render(buildPlainPDF(), testDoc(), testTable())
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Zero(t, report.Filled)
	assert.Len(t, report.Misses, 6)
}

func TestRenderBadTemplate(t *testing.T) {
	_, _, err := NewRenderer().Render([]byte("not a pdf"), testDoc(), testTable())
	assert.Error(t, err)
}

var (
	pdfDateRe = regexp.MustCompile(`D:[0-9+\-'Zz]+`)
	pdfIDRe   = regexp.MustCompile(`/ID\s*\[[^\]]*\]`)
)

// normalizePDF masks serializer-stamped dates and the document ID so byte
// comparison sees only content.
func normalizePDF(b []byte) []byte {
	b = pdfDateRe.ReplaceAll(b, []byte("D:0"))
	b = pdfIDRe.ReplaceAll(b, []byte("/ID[]"))
	return b
}

func TestRenderDeterministic(t *testing.T) {
	r := NewRenderer()
	tmpl := buildFormTemplate()

	first, _, err := r.Render(tmpl, testDoc(), testTable())
	require.NoError(t, err)
	second, _, err := r.Render(tmpl, testDoc(), testTable())
	require.NoError(t, err)

	assert.Equal(t, normalizePDF(first), normalizePDF(second))
}

func TestTextStringEncoding(t *testing.T) {
	assert.Equal(t, types.HexLiteral("FEFF"), textString(""))
	assert.Equal(t, types.HexLiteral("FEFF0041"), textString("A"))
	// Accented characters survive via UTF-16BE.
	assert.Equal(t, types.HexLiteral("FEFF00ED"), textString("í"))
}

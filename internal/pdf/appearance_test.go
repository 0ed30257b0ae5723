package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTf(t *testing.T) {
	tests := []struct {
		da   string
		want float64
	}{
		{"/Helv 10 Tf 0 g", 10},
		{"/TimesNewRoman 8.5 Tf", 8.5},
		{"0 g /Helv 12 Tf", 12},
		{"/Helv 0 Tf 0 g", 0},
		{"", 0},
		{"Tf", 0},
		{"/Helv abc Tf", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseTf(tt.da), "da %q", tt.da)
	}
}

func TestEscapeContentText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"with (parens)", `with \(parens\)`},
		{`back\slash`, `back\\slash`},
		{"line\nbreak", "line break"},
		{"josé", `jos\351`},
		{"中文", "??"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeContentText(tt.in), "input %q", tt.in)
	}
}

// Text widgets in the output must carry a regenerated normal appearance that
// references the registered font.
func TestTextAppearanceWritten(t *testing.T) {
	out, _, err := NewRenderer().Render(buildFormTemplate(), testDoc(), testTable())
	require.NoError(t, err)

	f := reload(t, out)
	fld := f.byName["FirstName"]
	require.NotNil(t, fld)

	apObj, found := fld.widgets[0].Find("AP")
	require.True(t, found, "widget has no AP after render")
	ap, err := f.ctx.DereferenceDict(apObj)
	require.NoError(t, err)
	_, found = ap.Find("N")
	assert.True(t, found)

	// AcroForm default resources now expose the appearance font.
	drObj, found := f.acro.Find("DR")
	require.True(t, found)
	dr, err := f.ctx.DereferenceDict(drObj)
	require.NoError(t, err)
	fontsObj, found := dr.Find("Font")
	require.True(t, found)
	fonts, err := f.ctx.DereferenceDict(fontsObj)
	require.NoError(t, err)
	_, found = fonts.Find(appearanceFontID)
	assert.True(t, found)
}

func TestTemplateDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "i589.pdf"), buildFormTemplate(), 0o600))

	td := NewTemplateDir(dir)

	b, err := td.Bytes("I-589")
	require.NoError(t, err)
	assert.NotEmpty(t, b)

	_, err = td.Bytes("I765")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

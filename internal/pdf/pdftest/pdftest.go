// Package pdftest builds minimal AcroForm PDFs for tests, byte by byte with
// computed xref offsets, so no binary assets need to live in the repo.
package pdftest

import (
	"bytes"
	"fmt"
)

// Builder assembles a PDF from numbered objects.
type Builder struct {
	buf     bytes.Buffer
	offsets map[int]int
	maxObj  int
}

func NewBuilder() *Builder {
	b := &Builder{offsets: map[int]int{}}
	b.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	return b
}

func (b *Builder) Obj(num int, body string) {
	b.offsets[num] = b.buf.Len()
	if num > b.maxObj {
		b.maxObj = num
	}
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
}

func (b *Builder) Stream(num int, dict, content string) {
	b.offsets[num] = b.buf.Len()
	if num > b.maxObj {
		b.maxObj = num
	}
	fmt.Fprintf(&b.buf, "%d 0 obj\n<<%s /Length %d>>\nstream\n%s\nendstream\nendobj\n",
		num, dict, len(content), content)
}

func (b *Builder) Finish(rootNum int) []byte {
	xrefOffset := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", b.maxObj+1)
	b.buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= b.maxObj; i++ {
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", b.offsets[i])
	}
	fmt.Fprintf(&b.buf, "trailer\n<</Size %d /Root %d 0 R>>\nstartxref\n%d\n%%%%EOF\n",
		b.maxObj+1, rootNum, xrefOffset)
	return b.buf.Bytes()
}

// FormTemplate returns a single-page template with fields:
//
//	FirstName, LastName, DOB, Narrative  (text)
//	Defensive_Application                (checkbox, on state "Yes")
//	Sex                                  (radio group, options "M" and "F")
func FormTemplate() []byte {
	b := NewBuilder()

	b.Obj(1, `<</Type /Catalog /Pages 2 0 R /AcroForm <</Fields [4 0 R 5 0 R 6 0 R 7 0 R 8 0 R 9 0 R] /DA (/Helv 0 Tf 0 g)>>>>`)
	b.Obj(2, `<</Type /Pages /Kids [3 0 R] /Count 1>>`)
	b.Obj(3, `<</Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Annots [4 0 R 5 0 R 6 0 R 7 0 R 8 0 R 10 0 R 11 0 R]>>`)

	textWidget := func(num int, name string, y int) {
		b.Obj(num, fmt.Sprintf(
			`<</Type /Annot /Subtype /Widget /FT /Tx /T (%s) /Rect [100 %d 300 %d] /DA (/Helv 10 Tf 0 g) /F 4>>`,
			name, y, y+20))
	}
	textWidget(4, "FirstName", 700)
	textWidget(5, "LastName", 670)
	textWidget(6, "DOB", 640)
	textWidget(7, "Narrative", 610)

	b.Obj(8, `<</Type /Annot /Subtype /Widget /FT /Btn /T (Defensive_Application) /Rect [100 580 112 592] /V /Off /AS /Off /F 4 /AP <</N <</Yes 12 0 R /Off 12 0 R>>>>>>`)

	b.Obj(9, `<</FT /Btn /Ff 32768 /T (Sex) /V /Off /Kids [10 0 R 11 0 R]>>`)
	b.Obj(10, `<</Type /Annot /Subtype /Widget /Parent 9 0 R /Rect [100 550 112 562] /AS /Off /F 4 /AP <</N <</M 12 0 R /Off 12 0 R>>>>>>`)
	b.Obj(11, `<</Type /Annot /Subtype /Widget /Parent 9 0 R /Rect [130 550 142 562] /AS /Off /F 4 /AP <</N <</F 12 0 R /Off 12 0 R>>>>>>`)

	b.Stream(12, `/Type /XObject /Subtype /Form /BBox [0 0 12 12]`, "q Q")

	return b.Finish(1)
}

// PlainPDF returns a valid single-page PDF with no AcroForm at all.
func PlainPDF() []byte {
	b := NewBuilder()
	b.Obj(1, `<</Type /Catalog /Pages 2 0 R>>`)
	b.Obj(2, `<</Type /Pages /Kids [3 0 R] /Count 1>>`)
	b.Obj(3, `<</Type /Page /Parent 2 0 R /MediaBox [0 0 612 792]>>`)
	return b.Finish(1)
}

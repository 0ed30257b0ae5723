package pdf

import "github.com/casekit/formfill/internal/pdf/pdftest"

func buildFormTemplate() []byte { return pdftest.FormTemplate() }

func buildPlainPDF() []byte { return pdftest.PlainPDF() }

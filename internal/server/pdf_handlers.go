package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/casekit/formfill/internal/caserec"
	"github.com/casekit/formfill/internal/mapping"
	"github.com/casekit/formfill/internal/pdf"
)

// handleRenderPDF fills the blank template with the caller's most recent
// case of the requested type and streams the result as a download.
func (s *Server) handleRenderPDF(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)
	formType := chi.URLParam(r, "type")

	tbl, err := mapping.ForForm(formType)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeUnknownFormType, fmt.Sprintf("no field mapping for form type %q", formType))
		return
	}

	rec, err := s.drafts.Latest(r.Context(), claims.UserID, formType)
	if err != nil {
		if errors.Is(err, caserec.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNoDraft, "no case of this form type")
			return
		}
		s.logger.Printf("load case: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not load case")
		return
	}

	template, err := s.templates.Bytes(formType)
	if err != nil {
		if errors.Is(err, pdf.ErrTemplateNotFound) {
			s.logger.Printf("missing template for %s", formType)
			writeError(w, http.StatusInternalServerError, codeTemplateNotFound, "blank form template is not installed")
			return
		}
		s.logger.Printf("read template: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not read template")
		return
	}

	out, report, err := s.renderer.Render(template, rec.Data, tbl)
	if err != nil {
		s.logger.Printf("render %s case %s: %v", formType, rec.ID, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not render form")
		return
	}
	for _, m := range report.Misses {
		s.logger.Printf("render %s case %s: skipped %s widget %q (%s)", formType, rec.ID, m.Kind, m.Widget, m.Reason)
	}

	filename := fmt.Sprintf("%s_%s.pdf", rec.Type, rec.ID)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.Header().Set("X-Fill-Count", strconv.Itoa(report.Filled))
	w.Header().Set("X-Fill-Misses", strconv.Itoa(len(report.Misses)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// handleListTemplateFields reports the template's widget inventory and how
// it lines up with the form's mapping table.
func (s *Server) handleListTemplateFields(w http.ResponseWriter, r *http.Request) {
	formType := chi.URLParam(r, "type")

	tbl, err := mapping.ForForm(formType)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeUnknownFormType, fmt.Sprintf("no field mapping for form type %q", formType))
		return
	}

	template, err := s.templates.Bytes(formType)
	if err != nil {
		if errors.Is(err, pdf.ErrTemplateNotFound) {
			writeError(w, http.StatusInternalServerError, codeTemplateNotFound, "blank form template is not installed")
			return
		}
		s.logger.Printf("read template: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not read template")
		return
	}

	fields, err := pdf.ListFields(template)
	if err != nil {
		s.logger.Printf("list fields: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not read template fields")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"form":   tbl.Form,
		"fields": fields,
		"audit":  pdf.Audit(fields, tbl),
	})
}

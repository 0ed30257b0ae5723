package server

import (
	"errors"
	"net/http"

	"github.com/casekit/formfill/internal/intake"
)

type intakeRequest struct {
	Type      string `json:"type"`
	Narrative string `json:"narrative"`
	// Apply merges the extracted answers into the caller's draft in the
	// same request. Off by default so clients can show a review step.
	Apply bool `json:"apply"`
}

// handleIntake turns a free-text narrative into structured answers. Model
// failures never touch a draft: extraction either validates fully or the
// request fails.
func (s *Server) handleIntake(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)
	var req intakeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}
	if req.Type == "" || req.Narrative == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "type and narrative are required")
		return
	}
	if s.intake == nil || !s.intake.Configured() {
		writeError(w, http.StatusServiceUnavailable, codeIntakeDisabled, "narrative intake is not configured")
		return
	}

	doc, err := s.intake.Normalize(r.Context(), req.Narrative, req.Type)
	if err != nil {
		switch {
		case errors.Is(err, intake.ErrEmptyNarrative):
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "narrative is empty")
		case errors.Is(err, intake.ErrBadOutput):
			s.logger.Printf("intake rejected output: %v", err)
			writeError(w, http.StatusBadGateway, codeIntakeFailed, "could not extract structured answers")
		default:
			s.logger.Printf("intake: %v", err)
			writeError(w, http.StatusBadGateway, codeIntakeFailed, "narrative intake failed")
		}
		return
	}

	if !req.Apply {
		writeJSON(w, http.StatusOK, map[string]any{"extracted": doc})
		return
	}

	rec, err := s.drafts.UpsertPatch(r.Context(), claims.UserID, req.Type, doc)
	if err != nil {
		s.logger.Printf("apply intake: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not apply extracted answers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"extracted": doc, "case": newCaseResponse(rec)})
}

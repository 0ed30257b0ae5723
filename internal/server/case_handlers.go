package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/casekit/formfill/internal/auth"
	"github.com/casekit/formfill/internal/caserec"
	"github.com/casekit/formfill/internal/draft"
)

type caseResponse struct {
	*caserec.CaseRecord
	DaysLeft int `json:"daysLeft"`
}

func newCaseResponse(rec *caserec.CaseRecord) caseResponse {
	return caseResponse{CaseRecord: rec, DaysLeft: rec.DaysLeft(time.Now().UTC())}
}

type startCaseRequest struct {
	Type    string         `json:"type"`
	Title   string         `json:"title"`
	Initial map[string]any `json:"initial"`
}

func (s *Server) handleStartCase(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)
	var req startCaseRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "type is required")
		return
	}

	rec, created, err := s.drafts.Start(r.Context(), claims.UserID, req.Type, req.Title, req.Initial)
	if err != nil {
		s.logger.Printf("start case: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not start case")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, newCaseResponse(rec))
}

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)
	recs, err := s.drafts.List(r.Context(), claims.UserID)
	if err != nil {
		s.logger.Printf("list cases: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not list cases")
		return
	}
	out := make([]caseResponse, len(recs))
	for i := range recs {
		out[i] = newCaseResponse(&recs[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"cases": out})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)
	formType := chi.URLParam(r, "type")

	patch, err := readPatch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidPatch, "patch must be a JSON object")
		return
	}

	rec, err := s.drafts.UpsertPatch(r.Context(), claims.UserID, formType, patch)
	if err != nil {
		if errors.Is(err, draft.ErrInvalidPatch) {
			writeError(w, http.StatusBadRequest, codeInvalidPatch, "patch must be a JSON object")
			return
		}
		s.logger.Printf("save draft: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not save draft")
		return
	}
	writeJSON(w, http.StatusOK, newCaseResponse(rec))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)
	formType := chi.URLParam(r, "type")

	var final map[string]any
	if r.ContentLength != 0 {
		var err error
		if final, err = readPatch(r); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidPatch, "final payload must be a JSON object")
			return
		}
	}

	rec, err := s.drafts.Submit(r.Context(), claims.UserID, formType, final)
	if err != nil {
		if errors.Is(err, draft.ErrNoDraft) {
			writeError(w, http.StatusNotFound, codeNoDraft, "no draft for this form type")
			return
		}
		s.logger.Printf("submit draft: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not submit draft")
		return
	}
	writeJSON(w, http.StatusOK, newCaseResponse(rec))
}

// readPatch accepts either a bare answer object or an envelope with a
// "patch" key holding one.
func readPatch(r *http.Request) (map[string]any, error) {
	var body map[string]any
	if err := readJSON(r, &body); err != nil {
		return nil, err
	}
	if inner, ok := body["patch"]; ok && len(body) == 1 {
		obj, ok := inner.(map[string]any)
		if !ok {
			return nil, errors.New("patch is not an object")
		}
		return obj, nil
	}
	return body, nil
}

// mustClaims returns the verified claims; the auth middleware guarantees
// they are present on protected routes.
func mustClaims(r *http.Request) *auth.Claims {
	c := auth.GetUser(r.Context())
	if c == nil {
		panic("handler reached without auth middleware")
	}
	return c
}

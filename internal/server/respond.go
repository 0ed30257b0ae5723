package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Error codes carried in response bodies so clients can branch without
// parsing messages.
const (
	codeInvalidRequest     = "INVALID_REQUEST"
	codeInvalidPatch       = "INVALID_PATCH"
	codeEmailTaken         = "EMAIL_TAKEN"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeNoDraft            = "NO_DRAFT"
	codeCaseNotFound       = "CASE_NOT_FOUND"
	codeUnknownFormType    = "UNKNOWN_FORM_TYPE"
	codeTemplateNotFound   = "PDF_TEMPLATE_NOT_FOUND"
	codeIntakeDisabled     = "INTAKE_NOT_CONFIGURED"
	codeIntakeFailed       = "INTAKE_FAILED"
	codeNotReady           = "NOT_READY"
	codeInternal           = "INTERNAL"
)

const maxBodyBytes = 1 << 20 // 1MB

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

// readJSON decodes the request body into v, rejecting oversized bodies and
// trailing garbage.
func readJSON(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected trailing data")
	}
	return nil
}

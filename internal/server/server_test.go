package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casekit/formfill/internal/caserec"
	"github.com/casekit/formfill/internal/draft"
	"github.com/casekit/formfill/internal/lock"
	"github.com/casekit/formfill/internal/pdf"
	"github.com/casekit/formfill/internal/pdf/pdftest"
)

const testJWTSecret = "server-test-secret"

type fakeIntake struct {
	doc        map[string]any
	err        error
	configured bool
}

func (f *fakeIntake) Configured() bool { return f.configured }

func (f *fakeIntake) Normalize(_ context.Context, _, _ string) (map[string]any, error) {
	return f.doc, f.err
}

type testEnv struct {
	srv     *httptest.Server
	store   *caserec.MemoryStore
	intake  *fakeIntake
	tmplDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "i589.pdf"), pdftest.FormTemplate(), 0o600))

	store := caserec.NewMemoryStore()
	drafts := draft.NewService(store, lock.NewKeyedMutex())
	fi := &fakeIntake{configured: true}
	s := New(store, drafts, pdf.NewTemplateDir(dir), fi, testJWTSecret, log.New(&bytes.Buffer{}, "", 0))

	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: store, intake: fi, tmplDir: dir}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := decodeBody(t, resp)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	code, _ := errObj["code"].(string)
	return code
}

func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "ana@example.com")

	t.Run("duplicate email", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"email":    "ana@example.com",
			"password": "correct horse",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "EMAIL_TAKEN", errorCode(t, resp))
	})

	t.Run("short password", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"email":    "short@example.com",
			"password": "short",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("login ok", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "Ana@Example.com",
			"password": "correct horse",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.NotEmpty(t, body["token"])
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "ana@example.com",
			"password": "wrong password",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, resp))
	})

	t.Run("unknown email", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "nobody@example.com",
			"password": "correct horse",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/v1/cases", "/api/v1/intake"} {
		resp := env.do(t, http.MethodPost, path, "", map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		resp.Body.Close()
	}
}

func TestStartAndListCases(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "ana@example.com")

	resp := env.do(t, http.MethodPost, "/api/v1/cases", token, map[string]any{
		"type":    "I-589",
		"initial": map[string]any{"narrative": "fled after threats"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "I589", body["type"])
	assert.Equal(t, "DRAFT", body["status"])
	assert.InDelta(t, 30, body["daysLeft"], 1)

	// Starting again finds the same draft
	resp = env.do(t, http.MethodPost, "/api/v1/cases", token, map[string]any{"type": "i589"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decodeBody(t, resp)
	assert.Equal(t, body["id"], again["id"])

	resp = env.do(t, http.MethodGet, "/api/v1/cases", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody(t, resp)
	cases, ok := list["cases"].([]any)
	require.True(t, ok)
	assert.Len(t, cases, 1)

	t.Run("missing type", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/cases", token, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestSavePatch(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "ana@example.com")

	// Bare object body
	resp := env.do(t, http.MethodPost, "/api/v1/cases/I-589/save", token, map[string]any{
		"identifiers": map[string]any{"firstName": "Ana"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	data, _ := body["data"].(map[string]any)
	ids, _ := data["identifiers"].(map[string]any)
	assert.Equal(t, "Ana", ids["firstName"])

	// Envelope body; top-level keys replace wholesale
	resp = env.do(t, http.MethodPost, "/api/v1/cases/I-589/save", token, map[string]any{
		"patch": map[string]any{"identifiers": map[string]any{"lastName": "Morales"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	data, _ = body["data"].(map[string]any)
	ids, _ = data["identifiers"].(map[string]any)
	assert.Equal(t, "Morales", ids["lastName"])
	assert.Nil(t, ids["firstName"])

	t.Run("patch not an object", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/v1/cases/I-589/save", strings.NewReader(`{"patch": 7}`))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_PATCH", errorCode(t, resp))
	})
}

func TestSubmit(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "ana@example.com")

	t.Run("no draft", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/cases/I-589/submit", token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NO_DRAFT", errorCode(t, resp))
	})

	resp := env.do(t, http.MethodPost, "/api/v1/cases/I-589/save", token, map[string]any{"narrative": "fled"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/v1/cases/I-589/submit", token, map[string]any{"defensive": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "READY_FOR_REVIEW", body["status"])
	data, _ := body["data"].(map[string]any)
	assert.Equal(t, true, data["defensive"])
	assert.Equal(t, "fled", data["narrative"])
}

func TestRenderPDF(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "ana@example.com")

	resp := env.do(t, http.MethodPost, "/api/v1/cases/I-589/save", token, map[string]any{
		"identifiers": map[string]any{"firstName": "Ana", "lastName": "Morales"},
		"bio":         map[string]any{"dob": "01/02/1990", "sex": "F"},
		"defensive":   true,
		"narrative":   "I had to leave.",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	saved := decodeBody(t, resp)

	resp = env.do(t, http.MethodGet, "/api/v1/cases/I-589/pdf", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	wantName := fmt.Sprintf(`attachment; filename="I589_%s.pdf"`, saved["id"])
	assert.Equal(t, wantName, resp.Header.Get("Content-Disposition"))

	filled, err := strconv.Atoi(resp.Header.Get("X-Fill-Count"))
	require.NoError(t, err)
	assert.Greater(t, filled, 0)

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF")))
	// "Ana" as a UTF-16BE hex string with BOM
	assert.Contains(t, out.String(), "FEFF0041006E0061")

	t.Run("unknown form type", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/v1/cases/W-2/pdf", token, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "UNKNOWN_FORM_TYPE", errorCode(t, resp))
	})

	t.Run("no case", func(t *testing.T) {
		other := env.register(t, "ben@example.com")
		resp := env.do(t, http.MethodGet, "/api/v1/cases/I-589/pdf", other, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NO_DRAFT", errorCode(t, resp))
	})

	t.Run("template missing", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/cases/I-765/save", token, map[string]any{"category": "c8"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.do(t, http.MethodGet, "/api/v1/cases/I-765/pdf", token, nil)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "PDF_TEMPLATE_NOT_FOUND", errorCode(t, resp))
	})
}

func TestRenderUsesLatestAfterSubmit(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "ana@example.com")

	resp := env.do(t, http.MethodPost, "/api/v1/cases/I-589/save", token, map[string]any{
		"identifiers": map[string]any{"firstName": "Ana"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/v1/cases/I-589/submit", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Download still works after the draft became READY_FOR_REVIEW
	resp = env.do(t, http.MethodGet, "/api/v1/cases/I-589/pdf", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestListTemplateFields(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "ana@example.com")

	resp := env.do(t, http.MethodGet, "/api/v1/cases/I-589/pdf/fields", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)

	assert.Equal(t, "I589", body["form"])
	fields, ok := body["fields"].([]any)
	require.True(t, ok)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		m, _ := f.(map[string]any)
		names = append(names, m["name"].(string))
	}
	assert.Contains(t, names, "FirstName")
	assert.Contains(t, names, "Sex")

	// The fixture template lacks most of the real form's widgets
	audit, ok := body["audit"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, audit["missing"])
}

func TestIntake(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "ana@example.com")

	t.Run("not configured", func(t *testing.T) {
		env.intake.configured = false
		defer func() { env.intake.configured = true }()

		resp := env.do(t, http.MethodPost, "/api/v1/intake", token, map[string]any{
			"type": "I-589", "narrative": "my story",
		})
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "INTAKE_NOT_CONFIGURED", errorCode(t, resp))
	})

	t.Run("extract only", func(t *testing.T) {
		env.intake.doc = map[string]any{"narrative": "fled after threats"}
		resp := env.do(t, http.MethodPost, "/api/v1/intake", token, map[string]any{
			"type": "I-589", "narrative": "my story",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		extracted, _ := body["extracted"].(map[string]any)
		assert.Equal(t, "fled after threats", extracted["narrative"])
		assert.Nil(t, body["case"])

		// Nothing was written to a draft
		resp = env.do(t, http.MethodGet, "/api/v1/cases", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		list := decodeBody(t, resp)
		assert.Empty(t, list["cases"])
	})

	t.Run("apply to draft", func(t *testing.T) {
		env.intake.doc = map[string]any{"narrative": "fled after threats"}
		resp := env.do(t, http.MethodPost, "/api/v1/intake", token, map[string]any{
			"type": "I-589", "narrative": "my story", "apply": true,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		rec, _ := body["case"].(map[string]any)
		require.NotNil(t, rec)
		data, _ := rec["data"].(map[string]any)
		assert.Equal(t, "fled after threats", data["narrative"])
	})

	t.Run("model failure leaves drafts alone", func(t *testing.T) {
		env.intake.err = errors.New("model unavailable")
		defer func() { env.intake.err = nil }()

		resp := env.do(t, http.MethodPost, "/api/v1/intake", token, map[string]any{
			"type": "I-765", "narrative": "my story", "apply": true,
		})
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "INTAKE_FAILED", errorCode(t, resp))
	})
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

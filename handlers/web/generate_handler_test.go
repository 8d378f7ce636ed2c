package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sitegen/gemini"
	"sitegen/generate"
	"sitegen/interfaces"
	"sitegen/logger"
)

// fakeGemini は generateContent を真似る上流サーバーです。
func fakeGemini(t *testing.T, status int, body string) *gemini.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := gemini.NewClient("test-key", logger.Discard(), gemini.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func postJSON(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return got
}

const oneCandidate = `{"candidates":[{"content":{"parts":[{"text":"<html>...</html>"}]}}]}`

func TestGenerateAPI_Success(t *testing.T) {
	app := newTestApp(t, fakeGemini(t, http.StatusOK, oneCandidate), nil, "")

	rec := app.do(postJSON(`{"prompt":"A dark-themed photographer portfolio"}`), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	if got["generatedCode"] != "<html>...</html>" {
		t.Errorf("unexpected generatedCode %v", got["generatedCode"])
	}
	if got["message"] != "Website generated successfully! (via Gemini)" {
		t.Errorf("unexpected message %v", got["message"])
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("expected json content type, got %q", ct)
	}
}

func TestGenerateAPI_ZeroCandidatesFallsBack(t *testing.T) {
	app := newTestApp(t, fakeGemini(t, http.StatusOK, `{"candidates":[]}`), nil, "")

	rec := app.do(postJSON(`{"prompt":"blog"}`), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["generatedCode"]; got != generate.FallbackMarkup {
		t.Errorf("expected fallback markup, got %v", got)
	}
}

func TestGenerateAPI_MethodNotAllowed(t *testing.T) {
	app := newTestApp(t, fakeGemini(t, http.StatusOK, oneCandidate), nil, "")

	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodHead, http.MethodOptions} {
		rec := app.do(httptest.NewRequest(m, "/api/generate", nil), nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected 405, got %d", m, rec.Code)
			continue
		}
		if m != http.MethodHead && decodeBody(t, rec)["error"] != "Method not allowed" {
			t.Errorf("%s: unexpected body %s", m, rec.Body.String())
		}
	}
}

func TestGenerateAPI_InvalidPrompt(t *testing.T) {
	app := newTestApp(t, fakeGemini(t, http.StatusOK, oneCandidate), nil, "")

	bodies := []string{
		`{"prompt":""}`,
		`{"prompt":"   "}`,
		`{}`,
		`{"prompt":null}`,
		`{"prompt":42}`,
		`{"prompt":["a"]}`,
		`{"prompt":{"text":"a"}}`,
		`not json`,
		``,
	}
	for _, body := range bodies {
		rec := app.do(postJSON(body), nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
			continue
		}
		if got := decodeBody(t, rec)["error"]; got != "Invalid prompt" {
			t.Errorf("body %q: unexpected error %v", body, got)
		}
	}
}

func TestGenerateAPI_MissingCredential(t *testing.T) {
	app := newTestApp(t, nil, nil, "")

	for _, body := range []string{`{"prompt":"valid"}`, `{"prompt":""}`} {
		rec := app.do(postJSON(body), nil)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("body %q: expected 500, got %d", body, rec.Code)
		}
		if got, _ := decodeBody(t, rec)["error"].(string); !strings.Contains(got, "API key not set") {
			t.Errorf("unexpected error %q", got)
		}
	}
}

func TestGenerateAPI_UpstreamFailure(t *testing.T) {
	app := newTestApp(t, fakeGemini(t, http.StatusInternalServerError, `{"error":{"message":"internal details"}}`), nil, "")

	rec := app.do(postJSON(`{"prompt":"restaurant"}`), nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	got := decodeBody(t, rec)
	if _, ok := got["generatedCode"]; ok {
		t.Error("no markup may be returned on upstream failure")
	}
	if got["error"] != "Failed to generate website" {
		t.Errorf("unexpected error %v", got["error"])
	}
	if strings.Contains(rec.Body.String(), "internal details") {
		t.Error("upstream body leaked to caller")
	}
}

type countingGenerator struct{ n int }

func (c *countingGenerator) Name() string { return "counting" }
func (c *countingGenerator) GenerateText(context.Context, string) (string, error) {
	c.n++
	return "<p>" + strings.Repeat("x", c.n) + "</p>", nil
}

var _ interfaces.TextGenerator = (*countingGenerator)(nil)

func TestGenerateAPI_SamePromptTwiceIsNotCached(t *testing.T) {
	gen := &countingGenerator{}
	app := newTestApp(t, gen, nil, "")

	first := decodeBody(t, app.do(postJSON(`{"prompt":"same"}`), nil))["generatedCode"]
	second := decodeBody(t, app.do(postJSON(`{"prompt":"same"}`), nil))["generatedCode"]
	if gen.n != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", gen.n)
	}
	if first == second {
		t.Errorf("second response reused the first result: %v", second)
	}
}

package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"sitegen/workspace"
)

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestGeneratePage_RedirectsAnonymous(t *testing.T) {
	app := newTestApp(t, &countingGenerator{}, nil, "")

	rec := app.do(httptest.NewRequest(http.MethodGet, "/generate", nil), nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}

	// フォーム送信はトークンが無いのでページに届かない
	for _, path := range []string{"/generate", "/generate/reset"} {
		if rec := app.do(postForm(path, url.Values{"prompt": {"x"}}), nil); rec.Code != http.StatusForbidden {
			t.Errorf("POST %s: expected 403, got %d", path, rec.Code)
		}
	}
	if app.spaces.Len() != 0 {
		t.Error("anonymous visitors must not get a workspace")
	}
}

func TestGeneratePage_EmptyState(t *testing.T) {
	app := newTestApp(t, &countingGenerator{}, nil, "")
	b := app.signIn(t, "alice")

	rec := app.do(httptest.NewRequest(http.MethodGet, "/generate", nil), b.cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Your generated website will appear here") {
		t.Error("expected empty preview placeholder")
	}
	if strings.Contains(body, "<iframe") {
		t.Error("no iframe expected before a result exists")
	}
	if m := csrfField.FindStringSubmatch(body); m == nil || m[1] == "" {
		t.Error("form must carry a csrf token")
	}
}

func TestGeneratePage_SubmitRendersSandboxedPreview(t *testing.T) {
	app := newTestApp(t, fakeGemini(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"<h1 class=\"x\">Hi & bye</h1>"}]}}]}`), nil, "")
	b := app.signIn(t, "alice")

	rec := app.do(postForm("/generate", url.Values{"prompt": {"A portfolio"}, "csrf_token": {b.token}}), b.cookies)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d (%s)", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/generate" {
		t.Errorf("expected redirect to /generate, got %q", loc)
	}

	snap := app.spaces.Get("alice").Snapshot()
	if snap.Phase != workspace.PhaseSucceeded {
		t.Fatalf("expected succeeded, got %v (%s)", snap.Phase, snap.ErrorDetail)
	}

	page := app.do(httptest.NewRequest(http.MethodGet, "/generate", nil), b.cookies).Body.String()
	if !strings.Contains(page, `srcdoc="&lt;h1 class=&#34;x&#34;&gt;Hi &amp; bye&lt;/h1&gt;"`) {
		t.Errorf("expected escaped srcdoc in page:\n%s", page)
	}
	if !strings.Contains(page, `sandbox="allow-scripts`) {
		t.Error("expected sandboxed iframe")
	}
	if strings.Contains(page, "allow-same-origin") {
		t.Error("iframe must not be same-origin")
	}
	if !strings.Contains(page, "Download HTML") || !strings.Contains(page, "generated-website.html") {
		t.Error("expected client-side download action")
	}
}

type fixedGenerator string

func (f fixedGenerator) Name() string                                        { return "fixed" }
func (f fixedGenerator) GenerateText(context.Context, string) (string, error) { return string(f), nil }

func TestGeneratePage_DownloadKeepsMarkupExact(t *testing.T) {
	app := newTestApp(t, fixedGenerator("\r\n<p>a</p>\r\n"), nil, "")
	b := app.signIn(t, "alice")

	app.do(postForm("/generate", url.Values{"prompt": {"x"}, "csrf_token": {b.token}}), b.cookies)
	page := app.do(httptest.NewRequest(http.MethodGet, "/generate", nil), b.cookies).Body.String()

	// 改行コードも含めてJS文字列としてそのまま埋め込まれる
	if !strings.Contains(page, `var code = "\r\n\u003cp\u003ea`) {
		t.Errorf("expected markup as a JS string literal:\n%s", page)
	}
	if strings.Contains(page, `id="generated-code"`) {
		t.Error("markup must not round-trip through a textarea")
	}
}

func TestGeneratePage_SubmitFailureShowsInlineError(t *testing.T) {
	app := newTestApp(t, fakeGemini(t, http.StatusBadGateway, `{}`), nil, "")
	b := app.signIn(t, "alice")

	app.do(postForm("/generate", url.Values{"prompt": {"shop"}, "csrf_token": {b.token}}), b.cookies)

	page := app.do(httptest.NewRequest(http.MethodGet, "/generate", nil), b.cookies).Body.String()
	if !strings.Contains(page, `role="alert"`) || !strings.Contains(page, "Failed to generate website") {
		t.Errorf("expected inline error:\n%s", page)
	}
	if strings.Contains(page, "<iframe") {
		t.Error("failed generation must not show a preview")
	}
}

func TestGeneratePage_RequiresCSRF(t *testing.T) {
	gen := &countingGenerator{}
	app := newTestApp(t, gen, nil, "")
	b := app.signIn(t, "alice")

	cases := map[string]url.Values{
		"wrong token":   {"prompt": {"x"}, "csrf_token": {"wrong"}},
		"missing token": {"prompt": {"x"}},
	}
	for name, form := range cases {
		if rec := app.do(postForm("/generate", form), b.cookies); rec.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", name, rec.Code)
		}
	}

	// 別のブラウザで発行されたトークンも使えない
	other := app.signIn(t, "alice")
	if rec := app.do(postForm("/generate", url.Values{"prompt": {"x"}, "csrf_token": {other.token}}), b.cookies); rec.Code != http.StatusForbidden {
		t.Errorf("foreign token: expected 403, got %d", rec.Code)
	}
	if gen.n != 0 {
		t.Error("generator must not run without a valid form token")
	}
}

func TestGeneratePage_BlankPromptLeavesStateAlone(t *testing.T) {
	gen := &countingGenerator{}
	app := newTestApp(t, gen, nil, "")
	b := app.signIn(t, "alice")

	rec := app.do(postForm("/generate", url.Values{"prompt": {"   "}, "csrf_token": {b.token}}), b.cookies)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if gen.n != 0 {
		t.Error("blank prompt must not reach the generator")
	}
	if got := app.spaces.Get("alice").Snapshot().Phase; got != workspace.PhaseIdle {
		t.Errorf("expected idle, got %v", got)
	}
}

func TestGeneratePage_Reset(t *testing.T) {
	app := newTestApp(t, &countingGenerator{}, nil, "")
	b := app.signIn(t, "alice")

	app.do(postForm("/generate", url.Values{"prompt": {"blog"}, "csrf_token": {b.token}}), b.cookies)
	if app.spaces.Get("alice").Snapshot().Result == nil {
		t.Fatal("expected a result before reset")
	}

	rec := app.do(postForm("/generate/reset", url.Values{"csrf_token": {b.token}}), b.cookies)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	snap := app.spaces.Get("alice").Snapshot()
	if snap.Phase != workspace.PhaseIdle || snap.Result != nil {
		t.Errorf("expected idle without result, got %+v", snap)
	}
}

func TestIndexPage(t *testing.T) {
	app := newTestApp(t, &countingGenerator{}, nil, "")

	rec := app.do(httptest.NewRequest(http.MethodGet, "/", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Sign-in is not configured") {
		t.Error("expected notice when oauth is not configured")
	}

	rec = app.do(httptest.NewRequest(http.MethodGet, "/", nil), app.signIn(t, "alice").cookies)
	if !strings.Contains(rec.Body.String(), `href="/generate"`) {
		t.Error("signed-in users should get a link to the generator")
	}
}

func TestUsageAPI(t *testing.T) {
	app := newTestApp(t, &countingGenerator{}, nil, "")

	if rec := app.do(httptest.NewRequest(http.MethodGet, "/api/usage", nil), nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous usage, got %d", rec.Code)
	}

	rec := app.do(httptest.NewRequest(http.MethodGet, "/api/usage", nil), app.signIn(t, "alice").cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decodeBody(t, rec)
	if got["userId"] != "alice" || got["last24h"] != float64(0) {
		t.Errorf("unexpected usage body %v", got)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, &countingGenerator{}, nil, "")

	if rec := app.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), nil); rec.Code != http.StatusOK {
		t.Errorf("expected healthy, got %d", rec.Code)
	}
	rec := app.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `sitegen_http_requests_total{method="GET",route="/healthz",status="200"} 1`) {
		t.Errorf("expected request metric for /healthz:\n%s", rec.Body.String())
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("expected request id header")
	}
}

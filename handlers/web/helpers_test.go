package web

import (
	"html"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"sitegen/generate"
	"sitegen/interfaces"
	"sitegen/logger"
	"sitegen/metrics"
	"sitegen/preview"
	"sitegen/workspace"

	"golang.org/x/oauth2"
)

type testApp struct {
	router  http.Handler
	auth    *AuthHandler
	spaces  *workspace.Registry
	metrics *metrics.Collector
}

func newTestApp(t *testing.T, gen interfaces.TextGenerator, oauth *oauth2.Config, userInfoURL string, svcOpts ...generate.Option) *testApp {
	t.Helper()
	log := logger.Discard()
	m := metrics.New()
	spaces := workspace.NewRegistry(m)
	auth := NewAuthHandler(log, NewCookieStore("0123456789abcdef0123456789abcdef", false), AuthOptions{
		OAuth:       oauth,
		UserInfoURL: userInfoURL,
		OnLogout:    spaces.Forget,
	})

	var svc *generate.Service
	if gen == nil {
		svc = generate.NewService(nil, log, svcOpts...)
	} else {
		svc = generate.NewService(gen, log, append([]generate.Option{generate.WithMetrics(m)}, svcOpts...)...)
	}

	router := NewRouter(RouterDeps{
		Log:        log,
		Auth:       auth,
		Service:    svc,
		Workspaces: spaces,
		Renderer:   preview.InlineRenderer{},
		Metrics:    m,
	})
	return &testApp{router: router, auth: auth, spaces: spaces, metrics: m}
}

// browser はクッキーとフォーム用CSRFトークンを持つログイン済みクライアントです。
type browser struct {
	cookies []*http.Cookie
	token   string
}

var csrfField = regexp.MustCompile(`name="csrf_token" value="([^"]*)"`)

// signIn はログイン済みセッションを作り、トップページからCSRFクッキーとトークンを受け取ります。
func (a *testApp) signIn(t *testing.T, userID string) *browser {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s, _ := a.auth.store.Get(req, sessionName)
	s.Values[keyUserID] = userID
	s.Values[keyUserName] = "Test User"
	if err := s.Save(req, rec); err != nil {
		t.Fatalf("saving session: %v", err)
	}
	cookies := rec.Result().Cookies()

	page := a.do(httptest.NewRequest(http.MethodGet, "/", nil), cookies)
	m := csrfField.FindStringSubmatch(page.Body.String())
	if m == nil {
		t.Fatalf("no csrf token on page:\n%s", page.Body.String())
	}
	return &browser{
		cookies: mergeCookies(cookies, page.Result().Cookies()),
		token:   html.UnescapeString(m[1]),
	}
}

func mergeCookies(have, set []*http.Cookie) []*http.Cookie {
	byName := make(map[string]*http.Cookie)
	var order []string
	for _, c := range append(append([]*http.Cookie{}, have...), set...) {
		if _, ok := byName[c.Name]; !ok {
			order = append(order, c.Name)
		}
		byName[c.Name] = c
	}
	out := make([]*http.Cookie, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

func (a *testApp) do(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

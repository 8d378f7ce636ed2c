package web

import (
	"net/http"

	"sitegen/generate"
	"sitegen/interfaces"
	"sitegen/metrics"
	"sitegen/preview"
	"sitegen/workspace"

	"github.com/gorilla/mux"
	"github.com/justinas/nosurf"
)

// RouterDeps はルーターが必要とする依存関係です。
type RouterDeps struct {
	Log         interfaces.Logger
	Auth        *AuthHandler
	Service     *generate.Service
	Workspaces  *workspace.Registry
	Renderer    preview.Renderer
	PreviewOpts []preview.Option
	Metrics     *metrics.Collector
	Health      func() error

	// SecureCookies は CSRF クッキーに Secure 属性を付けるかどうかです。
	SecureCookies bool
}

// NewRouter はすべてのルーティングを設定し、CSRF保護をかけたハンドラを返します。
func NewRouter(d RouterDeps) http.Handler {
	r := mux.NewRouter()
	r.Use(RequestLogger(d.Log, d.Metrics))

	pages := NewPageHandler(d.Log, d.Auth, d.Service, d.Workspaces, d.Renderer, d.PreviewOpts...)

	r.HandleFunc("/", pages.Index).Methods(http.MethodGet)
	r.Handle("/generate", d.Auth.RequireUser(http.HandlerFunc(pages.Generate))).Methods(http.MethodGet)
	r.Handle("/generate", d.Auth.RequireUser(http.HandlerFunc(pages.Submit))).Methods(http.MethodPost)
	r.Handle("/generate/reset", d.Auth.RequireUser(http.HandlerFunc(pages.Reset))).Methods(http.MethodPost)

	// 405もJSONで返したいのでメソッド制限はハンドラ側で行う
	r.Handle("/api/generate", d.Auth.WithOptionalUser(NewGenerateHandler(d.Service, d.Auth, d.Log)))
	r.Handle("/api/usage", NewUsageHandler(d.Service, d.Auth, d.Log)).Methods(http.MethodGet)

	r.HandleFunc("/auth/login", d.Auth.Login).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", d.Auth.Callback).Methods(http.MethodGet)
	r.HandleFunc("/auth/logout", d.Auth.Logout).Methods(http.MethodPost)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if d.Health != nil {
			if err := d.Health(); err != nil {
				d.Log.Error("health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}
	return csrfProtect(r, d.Log, d.SecureCookies)
}

// csrfProtect はフォーム送信を nosurf で保護します。JSON API はクッキーを使わないクライアント向けなので除外します。
func csrfProtect(next http.Handler, log interfaces.Logger, secure bool) http.Handler {
	h := nosurf.New(next)
	h.SetBaseCookie(http.Cookie{
		Path:     "/",
		MaxAge:   nosurf.MaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	h.ExemptPath("/api/generate")
	h.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Warn("csrf check failed", "method", r.Method, "path", r.URL.Path, "reason", nosurf.Reason(r))
		http.Error(w, "invalid form token", http.StatusForbidden)
	}))
	return h
}

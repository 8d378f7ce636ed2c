// handlers/web/auth_handler.go
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"sitegen/interfaces"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const (
	sessionName   = "sitegen_session"
	keyUserID     = "user_id"
	keyUserName   = "user_name"
	keyOAuthState = "oauth_state"
)

type ctxKey int

const userIDKey ctxKey = iota

// AuthHandler は外部IDプロバイダとのOAuth2ログインとセッションを扱います。
type AuthHandler struct {
	log         interfaces.Logger
	store       sessions.Store
	oauth       *oauth2.Config // nil の場合はログイン無効
	userInfoURL string
	onLogout    func(userID string)
}

// AuthOptions は AuthHandler の設定です。
type AuthOptions struct {
	OAuth       *oauth2.Config
	UserInfoURL string
	OnLogout    func(userID string)
}

func NewAuthHandler(log interfaces.Logger, store sessions.Store, opts AuthOptions) *AuthHandler {
	return &AuthHandler{
		log:         log,
		store:       store,
		oauth:       opts.OAuth,
		userInfoURL: opts.UserInfoURL,
		onLogout:    opts.OnLogout,
	}
}

// NewCookieStore はセッション用のクッキーストアを作成します。
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (h *AuthHandler) session(r *http.Request) *sessions.Session {
	// デコードに失敗しても新しいセッションが返るのでエラーは無視する
	s, _ := h.store.Get(r, sessionName)
	return s
}

// CurrentUser はセッションのユーザーIDを返します。未ログインなら空文字。
func (h *AuthHandler) CurrentUser(r *http.Request) string {
	if id, ok := r.Context().Value(userIDKey).(string); ok {
		return id
	}
	id, _ := h.session(r).Values[keyUserID].(string)
	return id
}

func (h *AuthHandler) userName(r *http.Request) string {
	name, _ := h.session(r).Values[keyUserName].(string)
	return name
}

// RequireUser は未ログインのアクセスをページ処理の前にトップへリダイレクトします。
func (h *AuthHandler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := h.CurrentUser(r)
		if id == "" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}

// WithOptionalUser はログインしていればユーザーIDをコンテキストに載せます。APIはログイン無しでも呼べます。
func (h *AuthHandler) WithOptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, _ := h.session(r).Values[keyUserID].(string); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// Login はOAuth2のログインフローを開始します。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		http.Error(w, "login is not configured", http.StatusServiceUnavailable)
		return
	}
	state := uuid.NewString()
	s := h.session(r)
	s.Values[keyOAuthState] = state
	if err := s.Save(r, w); err != nil {
		h.log.Error("failed to save session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback はIDプロバイダからの認証コールバックを処理します。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		http.Error(w, "login is not configured", http.StatusServiceUnavailable)
		return
	}
	s := h.session(r)
	want, _ := s.Values[keyOAuthState].(string)
	if want == "" || r.URL.Query().Get("state") != want {
		h.log.Warn("oauth state mismatch")
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}
	delete(s.Values, keyOAuthState)

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.log.Error("oauth code exchange failed", "error", err)
		http.Error(w, "login failed", http.StatusBadGateway)
		return
	}

	id, name, err := h.fetchUser(r.Context(), token)
	if err != nil {
		h.log.Error("failed to fetch user info", "error", err)
		http.Error(w, "login failed", http.StatusBadGateway)
		return
	}

	s.Values[keyUserID] = id
	s.Values[keyUserName] = name
	if err := s.Save(r, w); err != nil {
		h.log.Error("failed to save session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.log.Info("user signed in", "user_id", id)
	http.Redirect(w, r, "/generate", http.StatusFound)
}

// fetchUser はユーザー情報エンドポイントからIDと表示名を取り出します。
// OIDCの "sub" を優先し、無ければ "id" を使います。
func (h *AuthHandler) fetchUser(ctx context.Context, token *oauth2.Token) (string, string, error) {
	client := h.oauth.Client(ctx, token)
	resp, err := client.Get(h.userInfoURL)
	if err != nil {
		return "", "", fmt.Errorf("userinfoへのリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", fmt.Errorf("userinfoの読み込みに失敗: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	id := gjson.GetBytes(body, "sub").String()
	if id == "" {
		id = gjson.GetBytes(body, "id").String()
	}
	if id == "" {
		return "", "", fmt.Errorf("userinfo has no user id")
	}
	name := gjson.GetBytes(body, "name").String()
	if name == "" {
		name = gjson.GetBytes(body, "username").String()
	}
	return id, name, nil
}

// Logout はセッションを破棄してトップに戻します。POSTのみで、CSRFトークンは nosurf が検証します。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	id, _ := s.Values[keyUserID].(string)
	s.Options.MaxAge = -1
	if err := s.Save(r, w); err != nil {
		h.log.Error("failed to clear session", "error", err)
	}
	if id != "" {
		if h.onLogout != nil {
			h.onLogout(id)
		}
		h.log.Info("user signed out", "user_id", id)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

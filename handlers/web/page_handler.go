package web

import (
	"bytes"
	"html/template"
	"net/http"

	"sitegen/generate"
	"sitegen/interfaces"
	"sitegen/preview"
	"sitegen/workspace"

	"github.com/justinas/nosurf"
)

// PageHandler はトップページと生成ページを表示します。
type PageHandler struct {
	log     interfaces.Logger
	auth    *AuthHandler
	svc     *generate.Service
	spaces  *workspace.Registry
	preview *preview.Preview
	loginOK bool
}

func NewPageHandler(log interfaces.Logger, auth *AuthHandler, svc *generate.Service, spaces *workspace.Registry, renderer preview.Renderer, previewOpts ...preview.Option) *PageHandler {
	return &PageHandler{
		log:     log,
		auth:    auth,
		svc:     svc,
		spaces:  spaces,
		preview: preview.New(renderer, log, previewOpts...),
		loginOK: auth.oauth != nil,
	}
}

func (h *PageHandler) layout(r *http.Request) layoutData {
	id := h.auth.CurrentUser(r)
	d := layoutData{SignedIn: id != "", LoginOK: h.loginOK, CSRFToken: nosurf.Token(r)}
	if d.SignedIn {
		d.UserName = h.auth.userName(r)
		if d.UserName == "" {
			d.UserName = id
		}
	}
	return d
}

// Index はトップページを表示します。
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, indexPage, indexPageData{layoutData: h.layout(r)})
}

// Generate は生成ページを表示します。RequireUser の内側で呼ばれる前提です。
func (h *PageHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := h.auth.CurrentUser(r)
	snap := h.spaces.Get(userID).Snapshot()

	data := generatePageData{
		layoutData:  h.layout(r),
		Phase:       snap.Phase.String(),
		Prompt:      snap.Prompt,
		ErrorDetail: snap.ErrorDetail,
		Quota:       h.svc.Quota(),
	}
	if snap.Result != nil {
		data.HasResult = true
		data.Result = snap.Result.GeneratedCode
		data.Message = snap.Result.Message
		data.Preview = toPreviewData(snap.Preview)
	}
	if data.Quota > 0 {
		used, err := h.svc.Used(r.Context(), userID)
		if err != nil {
			h.log.Error("failed to read usage", "error", err)
		}
		data.Used = used
	}
	h.render(w, generatePage, data)
}

func toPreviewData(st *preview.State) *previewData {
	if st == nil {
		return &previewData{Failed: true, Detail: "preview unavailable", Policy: preview.SandboxPolicy}
	}
	pd := &previewData{Policy: preview.SandboxPolicy, Detail: st.ErrorDetail}
	switch st.Phase {
	case preview.PhaseReady:
		pd.Ready = true
		pd.SrcDoc = st.Frame.SrcDoc
		pd.Policy = st.Frame.Sandbox
		pd.Title = st.Frame.Title
	case preview.PhaseFailed:
		pd.Failed = true
	}
	return pd
}

// Submit はフォームからの生成リクエストを処理し、結果をワークスペースに反映してから生成ページへ戻します。
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := h.auth.CurrentUser(r)
	ws := h.spaces.Get(userID)

	// 古い送信の結果はワークスペースのトークンで捨てられる
	token, applied, err := workspace.Submit(r.Context(), ws, h.svc, h.preview.Load, userID, r.PostFormValue("prompt"))
	switch {
	case generate.KindOf(err) == generate.KindInvalidPrompt && token == 0:
		// 空のプロンプトは状態を変えずにページへ戻す
	case err != nil:
		h.log.Warn("page generation failed", "user_id", userID, "token", token, "error", err)
	case !applied:
		h.log.Info("discarded stale generation result", "user_id", userID, "token", token)
	}
	http.Redirect(w, r, "/generate", http.StatusSeeOther)
}

// Reset は「Generate New」で結果を破棄します。
func (h *PageHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.spaces.Get(h.auth.CurrentUser(r)).Reset()
	http.Redirect(w, r, "/generate", http.StatusSeeOther)
}

func (h *PageHandler) render(w http.ResponseWriter, t *template.Template, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.log.Error("failed to execute template", "template", t.Name(), "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

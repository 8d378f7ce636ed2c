package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"sitegen/generate"
	"sitegen/interfaces"
)

// プロンプトには十分すぎる上限
const maxRequestBody = 1 << 20

// GenerateHandler は POST /api/generate を処理します。
type GenerateHandler struct {
	svc  *generate.Service
	auth *AuthHandler
	log  interfaces.Logger
}

func NewGenerateHandler(svc *generate.Service, auth *AuthHandler, log interfaces.Logger) *GenerateHandler {
	return &GenerateHandler{svc: svc, auth: auth, log: log}
}

func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("generate api called", "method", r.Method, "content_type", r.Header.Get("Content-Type"))

	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, generate.MsgMethodNotAllowed)
		return
	}
	if !h.svc.Available() {
		writeAPIError(w, http.StatusInternalServerError, generate.MsgMissingCredential)
		return
	}

	prompt, ok := decodePrompt(r.Body)
	if !ok {
		h.log.Info("rejected invalid prompt")
		writeAPIError(w, http.StatusBadRequest, generate.MsgInvalidPrompt)
		return
	}

	var userID string
	if h.auth != nil {
		userID = h.auth.CurrentUser(r)
	}

	res, err := h.svc.Generate(r.Context(), generate.Request{Prompt: prompt, UserID: userID})
	if err != nil {
		var ge *generate.Error
		if errors.As(err, &ge) {
			writeAPIError(w, ge.Status(), ge.Detail)
			return
		}
		h.log.Error("unexpected generation error", "error", err)
		writeAPIError(w, http.StatusInternalServerError, generate.MsgUpstreamFailure)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decodePrompt は {"prompt": string} を取り出します。
// JSONでない、prompt が無い、文字列でない、空白だけ、のいずれも false です。
func decodePrompt(body io.Reader) (string, bool) {
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(body, maxRequestBody)).Decode(&payload); err != nil {
		return "", false
	}
	raw, ok := payload["prompt"]
	if !ok {
		return "", false
	}
	var prompt string
	if err := json.Unmarshal(raw, &prompt); err != nil {
		return "", false
	}
	if generate.ValidatePrompt(prompt) != nil {
		return "", false
	}
	return prompt, true
}

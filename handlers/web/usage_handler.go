package web

import (
	"net/http"

	"sitegen/generate"
	"sitegen/interfaces"
)

type usageResponse struct {
	UserID  string `json:"userId"`
	Last24h int    `json:"last24h"`
	Quota   int    `json:"quota"`
}

// UsageHandler は GET /api/usage でログインユーザーの直近24時間の生成回数を返します。
type UsageHandler struct {
	svc  *generate.Service
	auth *AuthHandler
	log  interfaces.Logger
}

func NewUsageHandler(svc *generate.Service, auth *AuthHandler, log interfaces.Logger) *UsageHandler {
	return &UsageHandler{svc: svc, auth: auth, log: log}
}

func (h *UsageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := h.auth.CurrentUser(r)
	if userID == "" {
		writeAPIError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	used, err := h.svc.Used(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to read usage", "user_id", userID, "error", err)
		writeAPIError(w, http.StatusInternalServerError, "Failed to read usage")
		return
	}
	writeJSON(w, http.StatusOK, usageResponse{UserID: userID, Last24h: used, Quota: h.svc.Quota()})
}

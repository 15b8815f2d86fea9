package handler

import (
	"net/http"
)

// Version アプリケーションのバージョン
const Version = "1.0.0"

// HealthHandler ヘルスチェックのハンドラー
type HealthHandler struct {
	storage StorageInfo
	drafts  DraftStoreInterface
}

// StorageInfo 使用中のストレージドライバー
type StorageInfo struct {
	Summaries string `json:"summaries"`
	Drafts    string `json:"drafts"`
}

// NewHealthHandler 新しいHealthHandlerを作成
func NewHealthHandler(storage StorageInfo) *HealthHandler {
	return &HealthHandler{storage: storage}
}

// WithDrafts 下書きキャッシュの確認先を設定
func (h *HealthHandler) WithDrafts(drafts DraftStoreInterface) *HealthHandler {
	h.drafts = drafts
	return h
}

// HealthResponse ヘルスチェックのレスポンス
type HealthResponse struct {
	Status     string      `json:"status"`
	Version    string      `json:"version"`
	Storage    StorageInfo `json:"storage"`
	DraftSaved *bool       `json:"draft_saved,omitempty"`
}

// ServeHTTP GET以外は405。下書きキャッシュに届かなければ degraded
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := HealthResponse{
		Status:  "ok",
		Version: Version,
		Storage: h.storage,
	}
	if h.drafts != nil {
		saved, err := h.drafts.HasDraft(r.Context())
		if err != nil {
			resp.Status = "degraded"
		} else {
			resp.DraftSaved = &saved
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

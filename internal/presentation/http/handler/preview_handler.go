package handler

import (
	"net/http"

	"go.uber.org/zap"
)

// PreviewHandler 印刷用プレビューのハンドラー
type PreviewHandler struct {
	session  EditSessionInterface
	renderer RendererInterface
	logger   *zap.Logger
}

// NewPreviewHandler 新しいPreviewHandlerを作成
func NewPreviewHandler(session EditSessionInterface, renderer RendererInterface, logger *zap.Logger) *PreviewHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreviewHandler{session: session, renderer: renderer, logger: logger}
}

// ServeHTTP 現在のドキュメントをHTMLで返す
func (h *PreviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	html, err := h.renderer.RenderHTML(h.session.Snapshot())
	if err != nil {
		h.logger.Error("failed to render preview", zap.Error(err))
		sendError(w, "Failed to render preview", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

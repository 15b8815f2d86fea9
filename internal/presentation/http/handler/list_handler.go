package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shockerli/cvt"
	"go.uber.org/zap"

	"proinvoice/internal/domain/entity"
	"proinvoice/internal/domain/repository"
	"proinvoice/internal/usecase"
)

const defaultListLimit = 50

// ListHandler 請求書一覧のハンドラー
type ListHandler struct {
	listUseCase InvoiceListUseCaseInterface
	logger      *zap.Logger
}

// NewListHandler 新しいListHandlerを作成
func NewListHandler(listUseCase InvoiceListUseCaseInterface, logger *zap.Logger) *ListHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListHandler{listUseCase: listUseCase, logger: logger}
}

// ListResponse 一覧のレスポンス
type ListResponse struct {
	Success  bool                     `json:"success"`
	Invoices []*entity.InvoiceSummary `json:"invoices"`
	Limit    int                      `json:"limit"`
	Offset   int                      `json:"offset"`
}

// SummaryResponse ステータス別集計のレスポンス
type SummaryResponse struct {
	Success  bool                    `json:"success"`
	Statuses []usecase.StatusSummary `json:"statuses"`
}

// InvoiceResponse 1件のレスポンス
type InvoiceResponse struct {
	Success bool                   `json:"success"`
	Invoice *entity.InvoiceSummary `json:"invoice"`
}

// HandleList ?limit=&offset= でページング
func (h *ListHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := cvt.IntE(q.Get("limit"))
	if q.Get("limit") == "" {
		limit, err = defaultListLimit, nil
	}
	if err != nil || limit < 0 {
		sendError(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	offset, err := cvt.IntE(q.Get("offset"))
	if q.Get("offset") == "" {
		offset, err = 0, nil
	}
	if err != nil || offset < 0 {
		sendError(w, "Invalid offset", http.StatusBadRequest)
		return
	}

	invoices, err := h.listUseCase.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list invoices", zap.Error(err))
		sendError(w, "Failed to list invoices", http.StatusInternalServerError)
		return
	}
	if invoices == nil {
		invoices = []*entity.InvoiceSummary{}
	}

	writeJSON(w, http.StatusOK, ListResponse{
		Success:  true,
		Invoices: invoices,
		Limit:    limit,
		Offset:   offset,
	})
}

// HandleSummary ステータス別の件数と合計
func (h *ListHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.listUseCase.StatusCounts(r.Context())
	if err != nil {
		h.logger.Error("failed to summarize invoices", zap.Error(err))
		sendError(w, "Failed to summarize invoices", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, SummaryResponse{Success: true, Statuses: statuses})
}

// HandleGet IDで1件取得
func (h *ListHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	invoice, err := h.listUseCase.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSummaryNotFound) {
			sendError(w, "Invoice not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to find invoice", zap.String("id", id), zap.Error(err))
		sendError(w, "Failed to find invoice", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, InvoiceResponse{Success: true, Invoice: invoice})
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"proinvoice/internal/domain/entity"
	"proinvoice/internal/domain/service"
	"proinvoice/internal/usecase"
)

// multipartOverhead ロゴ本体以外のマルチパート部分に許す大きさ
const multipartOverhead = 64 << 10

// SessionHandler 編集セッションAPIのハンドラー
type SessionHandler struct {
	session      EditSessionInterface
	drafts       DraftStoreInterface
	maxLogoBytes int64
	logger       *zap.Logger
}

// NewSessionHandler 新しいSessionHandlerを作成
func NewSessionHandler(session EditSessionInterface, maxLogoBytes int64, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		session:      session,
		maxLogoBytes: maxLogoBytes,
		logger:       logger,
	}
}

// WithDrafts リセット時に保存済み下書きを消すストアを設定
func (h *SessionHandler) WithDrafts(drafts DraftStoreInterface) *SessionHandler {
	h.drafts = drafts
	return h
}

// SessionResponse セッション状態のレスポンス
type SessionResponse struct {
	Success   bool              `json:"success"`
	SessionID string            `json:"session_id"`
	State     string            `json:"state"`
	Invoice   *entity.Invoice   `json:"invoice"`
	Errors    entity.FormErrors `json:"errors"`
	Totals    TotalsResponse    `json:"totals"`
	LastSaved *time.Time        `json:"last_saved,omitempty"`
}

// FieldRequest 項目更新のリクエスト
type FieldRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// ItemResponse 明細追加・削除のレスポンス
type ItemResponse struct {
	SessionResponse
	Item    *entity.LineItem `json:"item,omitempty"`
	Changed bool             `json:"changed"`
}

// ValidateResponse 検証結果のレスポンス
type ValidateResponse struct {
	Success bool              `json:"success"`
	Valid   bool              `json:"valid"`
	Errors  entity.FormErrors `json:"errors"`
}

// SubmitResponse 送信結果のレスポンス
type SubmitResponse struct {
	Success    bool              `json:"success"`
	Errors     entity.FormErrors `json:"errors,omitempty"`
	Invoice    *entity.Invoice   `json:"invoice,omitempty"`
	Totals     *TotalsResponse   `json:"totals,omitempty"`
	NextNumber string            `json:"next_number,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// HandleGet 現在のセッション状態を返す
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessionResponse())
}

// HandleUpdateField 項目を更新
func (h *SessionHandler) HandleUpdateField(w http.ResponseWriter, r *http.Request) {
	var req FieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.session.UpdateField(entity.Field(req.Field), req.Value); err != nil {
		h.sendUpdateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.sessionResponse())
}

// HandleAddItem 明細を追加
func (h *SessionHandler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	item := h.session.AddItem()
	writeJSON(w, http.StatusCreated, ItemResponse{
		SessionResponse: h.sessionResponse(),
		Item:            &item,
		Changed:         true,
	})
}

// HandleUpdateItem 明細の項目を更新
func (h *SessionHandler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req FieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	ok, err := h.session.UpdateItem(id, entity.ItemField(req.Field), req.Value)
	if err != nil {
		h.sendUpdateError(w, err)
		return
	}
	if !ok {
		sendError(w, "Item not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, h.sessionResponse())
}

// HandleRemoveItem 明細を削除。最後の1件は残る（changed=false）
func (h *SessionHandler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	removed := h.session.RemoveItem(id)

	writeJSON(w, http.StatusOK, ItemResponse{
		SessionResponse: h.sessionResponse(),
		Changed:         removed,
	})
}

// HandleUploadLogo マルチパートの logo を受け取る
func (h *SessionHandler) HandleUploadLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxLogoBytes+multipartOverhead)

	if err := r.ParseMultipartForm(h.maxLogoBytes + multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			sendError(w, "Logo file is too large", http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("logo")
	if err != nil {
		sendError(w, "Logo file is required", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	// 上限+1バイトまで読めば超過を判定できる
	data, err := io.ReadAll(io.LimitReader(file, h.maxLogoBytes+1))
	if err != nil {
		sendError(w, "Failed to read logo", http.StatusInternalServerError)
		return
	}

	if err := h.session.UploadLogo(data); err != nil {
		switch {
		case errors.Is(err, service.ErrLogoTooLarge):
			sendError(w, "Logo file is too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, service.ErrLogoEmpty):
			sendError(w, "Logo file is empty", http.StatusBadRequest)
		default:
			sendError(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	writeJSON(w, http.StatusOK, h.sessionResponse())
}

// HandleValidate 検証を実行してエラーマップを返す
func (h *SessionHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	errs, ok := h.session.Validate()
	writeJSON(w, http.StatusOK, ValidateResponse{
		Success: true,
		Valid:   ok,
		Errors:  errs,
	})
}

// HandleSubmit 送信。検証エラーは422、送信中は409
func (h *SessionHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	result, err := h.session.Submit(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrSubmitInProgress) {
			sendError(w, "Submission already in progress", http.StatusConflict)
			return
		}
		h.logger.Error("submit failed", zap.Error(err))
		sendError(w, "Failed to generate invoice", http.StatusInternalServerError)
		return
	}

	if !result.Succeeded() {
		writeJSON(w, http.StatusUnprocessableEntity, SubmitResponse{
			Success: false,
			Errors:  result.Errors,
			Error:   "Please fix the highlighted errors",
		})
		return
	}

	totals := newTotalsResponse(result.Totals)
	writeJSON(w, http.StatusOK, SubmitResponse{
		Success:    true,
		Invoice:    result.Invoice,
		Totals:     &totals,
		NextNumber: result.NextNumber,
	})
}

// HandleReset 新しい下書きに戻す
func (h *SessionHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Reset(); err != nil {
		if errors.Is(err, usecase.ErrSubmitInProgress) {
			sendError(w, "Submission in progress", http.StatusConflict)
			return
		}
		sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// 古い下書きが残っていても次の自動保存で上書きされる
	if h.drafts != nil {
		if err := h.drafts.Discard(r.Context()); err != nil {
			h.logger.Warn("draft discard failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, h.sessionResponse())
}

func (h *SessionHandler) sendUpdateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrUnknownField), errors.Is(err, usecase.ErrInvalidValue):
		sendError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("update failed", zap.Error(err))
		sendError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *SessionHandler) sessionResponse() SessionResponse {
	resp := SessionResponse{
		Success:   true,
		SessionID: h.session.ID(),
		State:     string(h.session.State()),
		Invoice:   h.session.Snapshot(),
		Errors:    h.session.Errors(),
		Totals:    newTotalsResponse(h.session.Totals()),
	}
	if saved := h.session.LastSaved(); !saved.IsZero() {
		resp.LastSaved = &saved
	}
	return resp
}

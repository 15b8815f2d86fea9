package handler

import (
	"context"
	"time"

	"proinvoice/internal/domain/entity"
	"proinvoice/internal/domain/service"
	"proinvoice/internal/usecase"
)

// EditSessionInterface は編集セッションのインターフェース
type EditSessionInterface interface {
	ID() string
	Snapshot() *entity.Invoice
	Errors() entity.FormErrors
	State() usecase.SessionState
	LastSaved() time.Time
	Totals() service.Totals
	UpdateField(field entity.Field, value any) error
	AddItem() entity.LineItem
	RemoveItem(id string) bool
	UpdateItem(id string, field entity.ItemField, value any) (bool, error)
	UploadLogo(data []byte) error
	Validate() (entity.FormErrors, bool)
	Submit(ctx context.Context) (*usecase.SubmitResult, error)
	Reset() error
}

// DraftStoreInterface は保存済み下書きのインターフェース
type DraftStoreInterface interface {
	Discard(ctx context.Context) error
	HasDraft(ctx context.Context) (bool, error)
}

// InvoiceListUseCaseInterface は請求書一覧ユースケースのインターフェース
type InvoiceListUseCaseInterface interface {
	List(ctx context.Context, limit, offset int) ([]*entity.InvoiceSummary, error)
	FindByID(ctx context.Context, id string) (*entity.InvoiceSummary, error)
	StatusCounts(ctx context.Context) ([]usecase.StatusSummary, error)
}

// RendererInterface はプレビューレンダラーのインターフェース
type RendererInterface interface {
	RenderHTML(inv *entity.Invoice) (string, error)
}

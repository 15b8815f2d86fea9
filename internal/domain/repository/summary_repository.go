package repository

import (
	"context"
	"errors"

	"proinvoice/internal/domain/entity"
)

// ErrSummaryNotFound サマリーが存在しない
var ErrSummaryNotFound = errors.New("invoice summary not found")

// SummaryRepository 請求書一覧（サマリー）リポジトリのインターフェース
type SummaryRepository interface {
	Create(ctx context.Context, summary *entity.InvoiceSummary) error
	FindByID(ctx context.Context, id string) (*entity.InvoiceSummary, error)
	// FindAll 発行日の新しい順。limit<=0 は全件
	FindAll(ctx context.Context, limit, offset int) ([]*entity.InvoiceSummary, error)
	Count(ctx context.Context) (int, error)
}

package repository

import (
	"context"

	"proinvoice/internal/domain/entity"
)

// InvoiceGenerator 確定した請求書を外部に生成するインターフェース（現状はモック）
type InvoiceGenerator interface {
	Generate(ctx context.Context, inv *entity.Invoice) error
}

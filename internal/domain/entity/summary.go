package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceSummary 一覧画面用の請求書サマリー（編集セッションとは独立した読み取りモデル）
type InvoiceSummary struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	ClientName    string          `json:"clientName"`
	Amount        decimal.Decimal `json:"amount"`
	Status        Status          `json:"status"`
	IssueDate     time.Time       `json:"issueDate"`
	DueDate       time.Time       `json:"dueDate"`
}

// IsValid サマリーが有効かチェック
func (s *InvoiceSummary) IsValid() bool {
	return s.ID != "" && s.InvoiceNumber != "" && !s.Amount.IsNegative()
}

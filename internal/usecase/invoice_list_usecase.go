package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"proinvoice/internal/domain/entity"
	"proinvoice/internal/domain/repository"
)

// StatusSummary ステータス別集計結果
type StatusSummary struct {
	Status entity.Status   `json:"status"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// InvoiceListUseCase 請求書一覧のユースケース（編集セッションとは独立）
type InvoiceListUseCase struct {
	summaryRepo repository.SummaryRepository
}

// NewInvoiceListUseCase 新しいInvoiceListUseCaseを作成
func NewInvoiceListUseCase(summaryRepo repository.SummaryRepository) *InvoiceListUseCase {
	return &InvoiceListUseCase{summaryRepo: summaryRepo}
}

// List 発行日の新しい順に取得
func (uc *InvoiceListUseCase) List(ctx context.Context, limit, offset int) ([]*entity.InvoiceSummary, error) {
	summaries, err := uc.summaryRepo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return summaries, nil
}

// FindByID IDで取得
func (uc *InvoiceListUseCase) FindByID(ctx context.Context, id string) (*entity.InvoiceSummary, error) {
	return uc.summaryRepo.FindByID(ctx, id)
}

// SeedDefaults ストアが空ならデモ用のサマリーを登録。登録件数を返す
func (uc *InvoiceListUseCase) SeedDefaults(ctx context.Context) (int, error) {
	count, err := uc.summaryRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	defaults := DefaultSummaries()
	for _, s := range defaults {
		if err := uc.summaryRepo.Create(ctx, s); err != nil {
			return 0, fmt.Errorf("failed to seed invoice %s: %w", s.InvoiceNumber, err)
		}
	}
	return len(defaults), nil
}

// StatusCounts ステータス別の件数と金額合計。全ステータスを固定順で返す
func (uc *InvoiceListUseCase) StatusCounts(ctx context.Context) ([]StatusSummary, error) {
	summaries, err := uc.summaryRepo.FindAll(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	grouped := lo.GroupBy(summaries, func(s *entity.InvoiceSummary) entity.Status {
		return s.Status
	})

	statuses := entity.Statuses()
	// 未知のステータスも落とさず末尾に並べる
	extra := lo.Without(lo.Keys(grouped), statuses...)
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	statuses = append(statuses, extra...)

	return lo.Map(statuses, func(status entity.Status, _ int) StatusSummary {
		items := grouped[status]
		total := lo.Reduce(items, func(acc decimal.Decimal, s *entity.InvoiceSummary, _ int) decimal.Decimal {
			return acc.Add(s.Amount)
		}, decimal.Zero)
		return StatusSummary{Status: status, Count: len(items), Total: total}
	}), nil
}

// DefaultSummaries デモ用の一覧データ
func DefaultSummaries() []*entity.InvoiceSummary {
	day := func(s string) time.Time {
		t, _ := entity.ParseDate(s)
		return t
	}
	return []*entity.InvoiceSummary{
		{ID: "1", InvoiceNumber: "0001", ClientName: "Acme Corp", Amount: decimal.RequireFromString("1200.50"), Status: entity.StatusPaid, IssueDate: day("2023-10-01"), DueDate: day("2023-10-31")},
		{ID: "2", InvoiceNumber: "0002", ClientName: "Globex Inc", Amount: decimal.RequireFromString("3450.00"), Status: entity.StatusPending, IssueDate: day("2023-10-15"), DueDate: day("2023-11-14")},
		{ID: "3", InvoiceNumber: "0003", ClientName: "Soylent Corp", Amount: decimal.RequireFromString("850.00"), Status: entity.StatusOverdue, IssueDate: day("2023-09-01"), DueDate: day("2023-09-30")},
		{ID: "4", InvoiceNumber: "0004", ClientName: "Umbrella Corp", Amount: decimal.RequireFromString("12000.00"), Status: entity.StatusDraft, IssueDate: day("2023-11-01"), DueDate: day("2023-11-30")},
		{ID: "5", InvoiceNumber: "0005", ClientName: "Stark Ind", Amount: decimal.RequireFromString("5600.25"), Status: entity.StatusPending, IssueDate: day("2023-11-05"), DueDate: day("2023-12-05")},
	}
}

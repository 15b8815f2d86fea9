package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"

	"proinvoice/internal/domain/entity"
	"proinvoice/internal/domain/repository"
)

// MemorySummaryRepository プロセス内のサマリーストア（既定の構成）
type MemorySummaryRepository struct {
	mu        sync.RWMutex
	summaries map[string]entity.InvoiceSummary
}

// NewMemorySummaryRepository 新しいMemorySummaryRepositoryを作成
func NewMemorySummaryRepository() *MemorySummaryRepository {
	return &MemorySummaryRepository{summaries: make(map[string]entity.InvoiceSummary)}
}

// Create サマリーを作成。IDの重複はエラー
func (r *MemorySummaryRepository) Create(_ context.Context, summary *entity.InvoiceSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.summaries[summary.ID]; ok {
		return fmt.Errorf("failed to create invoice summary: duplicate id %s", summary.ID)
	}
	r.summaries[summary.ID] = *summary
	return nil
}

// FindByID IDでサマリーを検索
func (r *MemorySummaryRepository) FindByID(_ context.Context, id string) (*entity.InvoiceSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.summaries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrSummaryNotFound, id)
	}
	return &s, nil
}

// FindAll 発行日の新しい順に取得
func (r *MemorySummaryRepository) FindAll(_ context.Context, limit, offset int) ([]*entity.InvoiceSummary, error) {
	r.mu.RLock()
	all := lo.Values(r.summaries)
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].IssueDate.Equal(all[j].IssueDate) {
			return all[i].IssueDate.After(all[j].IssueDate)
		}
		return all[i].InvoiceNumber > all[j].InvoiceNumber
	})

	if offset > 0 {
		all = lo.Drop(all, offset)
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	return lo.Map(all, func(s entity.InvoiceSummary, _ int) *entity.InvoiceSummary {
		return &s
	}), nil
}

// Count 件数を取得
func (r *MemorySummaryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.summaries), nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"

	_ "github.com/go-sql-driver/mysql"

	"proinvoice/internal/config"
	"proinvoice/internal/domain/entity"
	"proinvoice/internal/domain/repository"
)

// InvoiceSummary BUNモデル
type InvoiceSummary struct {
	bun.BaseModel `bun:"table:invoice_summaries"`

	ID            string          `bun:"id,pk,type:varchar(36)"`
	InvoiceNumber string          `bun:"invoice_number,notnull,type:varchar(64)"`
	ClientName    string          `bun:"client_name,notnull,type:varchar(255)"`
	Amount        decimal.Decimal `bun:"amount,notnull,type:decimal(14,2)"`
	Status        string          `bun:"status,notnull,type:varchar(16)"`
	IssueDate     time.Time       `bun:"issue_date,notnull,type:date"`
	DueDate       time.Time       `bun:"due_date,notnull,type:date"`
	CreatedAt     time.Time       `bun:"created_at,notnull,default:current_timestamp"`
}

// BunSummaryRepository 請求書サマリーのBUN実装
type BunSummaryRepository struct {
	db *bun.DB
}

// DSN MySQL接続文字列。日付はUTCで扱う
func DSN(cfg *config.MySQLConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

// NewBunSummaryRepository 新しいBunSummaryRepositoryを作成
func NewBunSummaryRepository(cfg *config.MySQLConfig) (*BunSummaryRepository, error) {
	sqldb, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := bun.NewDB(sqldb, mysqldialect.New())

	// 接続確認
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &BunSummaryRepository{db: db}
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewBunSummaryRepositoryWithDB DBインスタンスから作成（テスト用）
func NewBunSummaryRepositoryWithDB(db *bun.DB) *BunSummaryRepository {
	return &BunSummaryRepository{db: db}
}

// EnsureSchema テーブルがなければ作成
func (r *BunSummaryRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().Model((*InvoiceSummary)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create invoice_summaries table: %w", err)
	}
	return nil
}

// Create サマリーを作成
func (r *BunSummaryRepository) Create(ctx context.Context, summary *entity.InvoiceSummary) error {
	if _, err := r.db.NewInsert().Model(r.toModel(summary)).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create invoice summary: %w", err)
	}
	return nil
}

// FindByID IDでサマリーを検索
func (r *BunSummaryRepository) FindByID(ctx context.Context, id string) (*entity.InvoiceSummary, error) {
	model := &InvoiceSummary{}
	err := r.db.NewSelect().
		Model(model).
		Where("id = ?", id).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", repository.ErrSummaryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice summary: %w", err)
	}

	return r.toEntity(model), nil
}

// FindAll 発行日の新しい順に取得
func (r *BunSummaryRepository) FindAll(ctx context.Context, limit, offset int) ([]*entity.InvoiceSummary, error) {
	var models []InvoiceSummary
	query := r.selectPage(&models, limit, offset)

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to find invoice summaries: %w", err)
	}

	summaries := make([]*entity.InvoiceSummary, len(models))
	for i := range models {
		summaries[i] = r.toEntity(&models[i])
	}
	return summaries, nil
}

// selectPage 発行日の降順でページングするSELECT。
// MySQLは LIMIT なしの OFFSET を受け付けないため、上限なしでも最大値を付ける
func (r *BunSummaryRepository) selectPage(models *[]InvoiceSummary, limit, offset int) *bun.SelectQuery {
	query := r.db.NewSelect().
		Model(models).
		Order("issue_date DESC", "invoice_number DESC")

	switch {
	case limit > 0:
		query = query.Limit(limit)
	case offset > 0:
		query = query.Limit(math.MaxInt32)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// Count 件数を取得
func (r *BunSummaryRepository) Count(ctx context.Context) (int, error) {
	count, err := r.db.NewSelect().Model((*InvoiceSummary)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count invoice summaries: %w", err)
	}
	return count, nil
}

// Close DB接続を閉じる
func (r *BunSummaryRepository) Close() error {
	return r.db.Close()
}

// toModel エンティティからモデルへ変換
func (r *BunSummaryRepository) toModel(s *entity.InvoiceSummary) *InvoiceSummary {
	return &InvoiceSummary{
		ID:            s.ID,
		InvoiceNumber: s.InvoiceNumber,
		ClientName:    s.ClientName,
		Amount:        s.Amount,
		Status:        string(s.Status),
		IssueDate:     entity.TruncateDate(s.IssueDate),
		DueDate:       entity.TruncateDate(s.DueDate),
	}
}

// toEntity モデルからエンティティへ変換
func (r *BunSummaryRepository) toEntity(m *InvoiceSummary) *entity.InvoiceSummary {
	return &entity.InvoiceSummary{
		ID:            m.ID,
		InvoiceNumber: m.InvoiceNumber,
		ClientName:    m.ClientName,
		Amount:        m.Amount,
		Status:        entity.Status(m.Status),
		IssueDate:     entity.TruncateDate(m.IssueDate),
		DueDate:       entity.TruncateDate(m.DueDate),
	}
}

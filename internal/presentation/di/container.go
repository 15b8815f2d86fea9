package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"proinvoice/internal/config"
	"proinvoice/internal/domain/repository"
	"proinvoice/internal/infrastructure/cache"
	"proinvoice/internal/infrastructure/database"
	"proinvoice/internal/infrastructure/generator"
	"proinvoice/internal/observability/metrics"
	"proinvoice/internal/presentation/http/handler"
	"proinvoice/internal/presentation/render"
	"proinvoice/internal/usecase"
)

// seedTimeout デモデータ投入の待ち時間
const seedTimeout = 10 * time.Second

// Container DIコンテナ
type Container struct {
	logger  *zap.Logger
	metrics *metrics.Metrics

	// Infrastructure
	summaryRepo repository.SummaryRepository
	draftCache  repository.CacheRepository
	closers     []io.Closer

	// UseCase
	session     *usecase.EditSession
	autoSaver   *usecase.AutoSaver
	listUseCase *usecase.InvoiceListUseCase

	// Presentation
	healthHandler  *handler.HealthHandler
	sessionHandler *handler.SessionHandler
	previewHandler *handler.PreviewHandler
	listHandler    *handler.ListHandler
}

// NewContainer 新しいContainerを作成
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	container := &Container{
		logger:  logger,
		metrics: metrics.New(),
	}

	// Infrastructure: Summary Repository
	if err := container.initSummaryRepository(cfg); err != nil {
		_ = container.Close()
		return nil, err
	}

	// Infrastructure: Draft Cache
	if err := container.initDraftCache(cfg); err != nil {
		_ = container.Close()
		return nil, err
	}

	// UseCase: Edit Session
	opts, err := usecase.SessionOptionsFromConfig(&cfg.Invoice)
	if err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("failed to initialize edit session: %w", err)
	}
	gen := generator.NewMockGenerator(cfg.Invoice.SubmitDelay, logger)
	container.session = usecase.NewEditSession(gen, opts, logger, container.metrics)

	// UseCase: AutoSaver
	container.autoSaver = usecase.NewAutoSaver(
		container.session,
		container.draftCache,
		cfg.Invoice.AutoSaveInterval,
		cfg.Storage.DraftTTL,
		logger,
		container.metrics,
	)

	// UseCase: Invoice List
	container.listUseCase = usecase.NewInvoiceListUseCase(container.summaryRepo)
	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()
	seeded, err := container.listUseCase.SeedDefaults(ctx)
	if err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("failed to seed invoice summaries: %w", err)
	}
	if seeded > 0 {
		logger.Info("seeded invoice summaries", zap.Int("count", seeded))
	}

	// Presentation
	container.healthHandler = handler.NewHealthHandler(handler.StorageInfo{
		Summaries: cfg.Storage.Summaries,
		Drafts:    cfg.Storage.Drafts,
	}).WithDrafts(container.autoSaver)
	container.sessionHandler = handler.NewSessionHandler(container.session, opts.MaxLogoBytes, logger).
		WithDrafts(container.autoSaver)
	container.previewHandler = handler.NewPreviewHandler(container.session, render.NewHTMLRenderer(), logger)
	container.listHandler = handler.NewListHandler(container.listUseCase, logger)

	return container, nil
}

func (c *Container) initSummaryRepository(cfg *config.Config) error {
	switch cfg.Storage.Summaries {
	case config.DriverMySQL:
		repo, err := database.NewBunSummaryRepository(&cfg.MySQL)
		if err != nil {
			return fmt.Errorf("failed to initialize summary repository: %w", err)
		}
		c.summaryRepo = repo
		c.closers = append(c.closers, repo)
	default:
		c.summaryRepo = database.NewMemorySummaryRepository()
	}
	return nil
}

func (c *Container) initDraftCache(cfg *config.Config) error {
	switch cfg.Storage.Drafts {
	case config.DriverRedis:
		repo, err := cache.NewRedisRepository(&cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize cache repository: %w", err)
		}
		c.draftCache = repo
		c.closers = append(c.closers, repo)
	default:
		repo := cache.NewMemoryRepository()
		c.draftCache = repo
		c.closers = append(c.closers, repo)
	}
	return nil
}

// Logger ロガーを取得
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Metrics メトリクスを取得
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// EditSession 編集セッションを取得
func (c *Container) EditSession() *usecase.EditSession {
	return c.session
}

// AutoSaver 自動保存を取得
func (c *Container) AutoSaver() *usecase.AutoSaver {
	return c.autoSaver
}

// InvoiceListUseCase 請求書一覧ユースケースを取得
func (c *Container) InvoiceListUseCase() *usecase.InvoiceListUseCase {
	return c.listUseCase
}

// HealthHandler ヘルスチェックハンドラーを取得
func (c *Container) HealthHandler() *handler.HealthHandler {
	return c.healthHandler
}

// SessionHandler 編集セッションハンドラーを取得
func (c *Container) SessionHandler() *handler.SessionHandler {
	return c.sessionHandler
}

// PreviewHandler プレビューハンドラーを取得
func (c *Container) PreviewHandler() *handler.PreviewHandler {
	return c.previewHandler
}

// ListHandler 一覧ハンドラーを取得
func (c *Container) ListHandler() *handler.ListHandler {
	return c.listHandler
}

// Close 全リソースをクローズしエラーはまとめて返す。2回目以降は何もしない
func (c *Container) Close() error {
	closers := c.closers
	c.closers = nil

	var errs []error
	for _, closer := range closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close resources: %w", err)
	}
	return nil
}

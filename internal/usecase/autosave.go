package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"proinvoice/internal/domain/entity"
	"proinvoice/internal/domain/repository"
	"proinvoice/internal/observability/metrics"
)

// LatestDraftKey 最後に保存したセッションIDを指すキー。再起動後の復元に使う
const LatestDraftKey = "draft:latest"

// DraftKey 下書きキャッシュのキー
func DraftKey(sessionID string) string {
	return "draft:" + sessionID
}

// AutoSaver 一定間隔で下書きのスナップショットをキャッシュへ書き出す。
// ドキュメントは変更せず、保存時刻だけをセッションに記録する
type AutoSaver struct {
	session  *EditSession
	cache    repository.CacheRepository
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewAutoSaver 新しいAutoSaverを作成
func NewAutoSaver(session *EditSession, cache repository.CacheRepository, interval, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *AutoSaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoSaver{
		session:  session,
		cache:    cache,
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.With(zap.String("session_id", session.ID())),
		metrics:  m,
	}
}

// Run ctxが終わるまで定期保存を続ける
func (a *AutoSaver) Run(ctx context.Context) {
	if a.interval <= 0 {
		a.logger.Info("auto-save disabled")
		return
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// 失敗はログとメトリクスに残して次の周期で再試行
			_ = a.SaveNow(ctx)
		}
	}
}

// SaveNow スナップショットを1回保存
func (a *AutoSaver) SaveNow(ctx context.Context) error {
	snapshot := a.session.Snapshot()

	data, err := json.Marshal(snapshot)
	if err != nil {
		a.metrics.IncAutosave("failed")
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, DraftKey(a.session.ID()), data, a.ttl); err != nil {
			a.metrics.IncAutosave("failed")
			a.logger.Warn("auto-save failed", zap.Error(err))
			return fmt.Errorf("failed to save draft: %w", err)
		}
		if err := a.cache.Set(ctx, LatestDraftKey, []byte(a.session.ID()), a.ttl); err != nil {
			a.metrics.IncAutosave("failed")
			a.logger.Warn("auto-save pointer update failed", zap.Error(err))
			return fmt.Errorf("failed to save draft: %w", err)
		}
	}

	at := a.now()
	a.session.MarkSaved(at)
	a.metrics.IncAutosave("success")
	a.logger.Debug("draft auto-saved",
		zap.String("invoice_number", snapshot.DisplayNumber()),
		zap.Time("saved_at", at),
	)
	return nil
}

// Restore 前回プロセスが保存した下書きをセッションへ戻す。
// 下書きがなければ false を返す
func (a *AutoSaver) Restore(ctx context.Context) (bool, error) {
	if a.cache == nil {
		return false, nil
	}

	id, err := a.cache.Get(ctx, LatestDraftKey)
	if errors.Is(err, repository.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load latest draft key: %w", err)
	}

	data, err := a.cache.Get(ctx, DraftKey(string(id)))
	if errors.Is(err, repository.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load draft: %w", err)
	}

	var doc entity.Invoice
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("failed to decode draft: %w", err)
	}
	if err := a.session.Restore(&doc); err != nil {
		return false, fmt.Errorf("failed to restore draft: %w", err)
	}

	a.logger.Info("draft restored from cache", zap.String("restored_from", string(id)))
	return true, nil
}

// Discard このセッションの保存済み下書きを消す
func (a *AutoSaver) Discard(ctx context.Context) error {
	if a.cache == nil {
		return nil
	}
	if err := a.cache.Delete(ctx, DraftKey(a.session.ID())); err != nil {
		return fmt.Errorf("failed to discard draft: %w", err)
	}
	if err := a.cache.Delete(ctx, LatestDraftKey); err != nil {
		return fmt.Errorf("failed to discard draft: %w", err)
	}
	a.logger.Debug("draft discarded")
	return nil
}

// HasDraft このセッションの下書きがキャッシュにあるか
func (a *AutoSaver) HasDraft(ctx context.Context) (bool, error) {
	if a.cache == nil {
		return false, nil
	}
	ok, err := a.cache.Exists(ctx, DraftKey(a.session.ID()))
	if err != nil {
		return false, fmt.Errorf("failed to check draft: %w", err)
	}
	return ok, nil
}

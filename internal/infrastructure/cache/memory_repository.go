package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"proinvoice/internal/domain/repository"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryRepository プロセス内のTTL付きキャッシュ（Redisを使わない構成用）
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryRepository 新しいMemoryRepositoryを作成
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

// Set 値をコピーして保存。expiration<=0 は無期限
func (r *MemoryRepository) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = r.now().Add(expiration)
	}

	buf := make([]byte, len(value))
	copy(buf, value)

	r.mu.Lock()
	r.items[key] = memoryEntry{value: buf, expiresAt: expiresAt}
	r.mu.Unlock()
	return nil
}

// Get キーから値を取得
func (r *MemoryRepository) Get(_ context.Context, key string) ([]byte, error) {
	entry, ok := r.lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrCacheMiss, key)
	}

	buf := make([]byte, len(entry.value))
	copy(buf, entry.value)
	return buf, nil
}

// Delete キーを削除
func (r *MemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.items, key)
	r.mu.Unlock()
	return nil
}

// Exists キーが存在するか確認
func (r *MemoryRepository) Exists(_ context.Context, key string) (bool, error) {
	_, ok := r.lookup(key)
	return ok, nil
}

// Close 何もしない（Redis実装と揃えるため）
func (r *MemoryRepository) Close() error {
	return nil
}

func (r *MemoryRepository) lookup(key string) (memoryEntry, bool) {
	r.mu.RLock()
	entry, ok := r.items[key]
	r.mu.RUnlock()
	if !ok {
		return memoryEntry{}, false
	}

	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		_ = r.Delete(context.Background(), key)
		return memoryEntry{}, false
	}
	return entry, true
}

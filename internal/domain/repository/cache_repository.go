package repository

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss キーが存在しない、または期限切れ
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository 自動保存した下書きJSONの置き場所。
// 実装はRedisとプロセス内メモリの2つ
type CacheRepository interface {
	// Set 値を保存。expiration<=0 は無期限
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	// Get 見つからなければ ErrCacheMiss をラップして返す
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/shockerli/cvt"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"

	"proinvoice/internal/config"
)

const testRedisImage = "redis:7-alpine"

// redisTestEnv パッケージ内で共有するRedisコンテナ
type redisTestEnv struct {
	once      sync.Once
	container testcontainers.Container
	cfg       *config.RedisConfig
	err       error
	mu        sync.Mutex
}

var sharedRedis redisTestEnv

// TestRedisConfig コンテナを起動し（初回のみ）、接続設定を返す
func TestRedisConfig(ctx context.Context) (*config.RedisConfig, error) {
	sharedRedis.once.Do(func() {
		container, err := redis.Run(ctx, testRedisImage)
		if err != nil {
			sharedRedis.err = fmt.Errorf("failed to start redis container: %w", err)
			return
		}
		sharedRedis.container = container

		host, err := container.Host(ctx)
		if err != nil {
			sharedRedis.err = fmt.Errorf("failed to get container host: %w", err)
			return
		}
		port, err := container.MappedPort(ctx, "6379")
		if err != nil {
			sharedRedis.err = fmt.Errorf("failed to get container port: %w", err)
			return
		}

		sharedRedis.cfg = &config.RedisConfig{Host: host, Port: cvt.Int(port.Port())}
	})

	if sharedRedis.err != nil {
		return nil, sharedRedis.err
	}
	cfg := *sharedRedis.cfg
	return &cfg, nil
}

// NewTestRedisRepository テスト用のRedisRepositoryを作成
func NewTestRedisRepository(ctx context.Context) (*RedisRepository, error) {
	cfg, err := TestRedisConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewRedisRepository(cfg)
}

// CleanupRedis テスト用DBを空にする
func CleanupRedis(ctx context.Context, repo *RedisRepository) error {
	sharedRedis.mu.Lock()
	defer sharedRedis.mu.Unlock()

	return repo.client.FlushDB(ctx).Err()
}

// CloseRedisTestContainer Redisテストコンテナを終了
func CloseRedisTestContainer(ctx context.Context) error {
	if sharedRedis.container == nil {
		return nil
	}
	return sharedRedis.container.Terminate(ctx)
}

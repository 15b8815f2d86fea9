package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/shockerli/cvt"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"

	_ "github.com/go-sql-driver/mysql"

	"proinvoice/internal/config"
)

const (
	testMySQLImage    = "mysql:8.0"
	testMySQLDatabase = "proinvoice"
	testMySQLPassword = "testpass"
)

// mysqlTestEnv パッケージ内で共有するMySQLコンテナ
type mysqlTestEnv struct {
	once      sync.Once
	container testcontainers.Container
	cfg       *config.MySQLConfig
	err       error
	mu        sync.Mutex
}

var sharedMySQL mysqlTestEnv

// TestMySQLConfig コンテナを起動し（初回のみ）、接続設定を返す
func TestMySQLConfig(ctx context.Context) (*config.MySQLConfig, error) {
	sharedMySQL.once.Do(func() {
		container, err := mysql.Run(ctx,
			testMySQLImage,
			mysql.WithDatabase(testMySQLDatabase),
			mysql.WithUsername("root"),
			mysql.WithPassword(testMySQLPassword),
		)
		if err != nil {
			sharedMySQL.err = fmt.Errorf("failed to start mysql container: %w", err)
			return
		}
		sharedMySQL.container = container

		host, err := container.Host(ctx)
		if err != nil {
			sharedMySQL.err = fmt.Errorf("failed to get container host: %w", err)
			return
		}
		port, err := container.MappedPort(ctx, "3306")
		if err != nil {
			sharedMySQL.err = fmt.Errorf("failed to get container port: %w", err)
			return
		}

		sharedMySQL.cfg = &config.MySQLConfig{
			Host:     host,
			Port:     cvt.Int(port.Port()),
			User:     "root",
			Password: testMySQLPassword,
			Database: testMySQLDatabase,
		}
	})

	if sharedMySQL.err != nil {
		return nil, sharedMySQL.err
	}
	cfg := *sharedMySQL.cfg
	return &cfg, nil
}

// NewTestDB テスト用のDBを開き invoice_summaries を用意する
func NewTestDB(ctx context.Context) (*bun.DB, error) {
	cfg, err := TestMySQLConfig(ctx)
	if err != nil {
		return nil, err
	}

	sqldb, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := bun.NewDB(sqldb, mysqldialect.New())
	if err := NewBunSummaryRepositoryWithDB(db).EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// CleanupTestTables 一覧テーブルを空にする
func CleanupTestTables(ctx context.Context, db *bun.DB) error {
	sharedMySQL.mu.Lock()
	defer sharedMySQL.mu.Unlock()

	if _, err := db.NewTruncateTable().Model((*InvoiceSummary)(nil)).Exec(ctx); err != nil {
		return fmt.Errorf("failed to truncate invoice_summaries: %w", err)
	}
	return nil
}

// CloseTestContainer テストコンテナを終了
func CloseTestContainer(ctx context.Context) error {
	if sharedMySQL.container == nil {
		return nil
	}
	return sharedMySQL.container.Terminate(ctx)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"proinvoice/internal/config"
	"proinvoice/internal/domain/entity"
	"proinvoice/internal/domain/service"
	"proinvoice/internal/observability/logger"
	"proinvoice/internal/presentation/di"
	"proinvoice/internal/presentation/http/handler"
	"proinvoice/internal/presentation/http/router"
	"proinvoice/internal/presentation/render"
)

// shutdownTimeout グレースフルシャットダウンの待ち時間
const shutdownTimeout = 30 * time.Second

// restoreTimeout 起動時の下書き復元の待ち時間
const restoreTimeout = 5 * time.Second

// AppConfig アプリケーション設定
type AppConfig struct {
	ConfigPath string
	Port       string
}

// ServerInterface サーバーインターフェース（Seam化）
type ServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App アプリケーション構造体（Seamパターン）
type App struct {
	config     *AppConfig
	cfg        *config.Config
	logger     *zap.Logger
	container  *di.Container
	server     *http.Server
	serverSeam ServerInterface // テスト用のSeam

	stopAutoSave context.CancelFunc
	autoSaveDone chan struct{}
}

// NewApp 新しいAppを作成
func NewApp(appCfg *AppConfig) (*App, error) {
	// 設定の読み込み
	cfg, err := config.Load(appCfg.ConfigPath)
	if err != nil {
		log.Printf("Failed to load config: %v. Using defaults.", err)
		cfg = config.DefaultConfig()
	}

	// 引数のポートは設定ファイルより優先
	if appCfg.Port != "" {
		cfg.Server.Port = appCfg.Port
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	appCfg.Port = cfg.Server.Port

	zl, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// DIコンテナの初期化
	container, err := di.NewContainer(cfg, zl)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DI container: %w", err)
	}

	// サーバーの設定
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.NewRouter(container),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	app := &App{
		config:    appCfg,
		cfg:       cfg,
		logger:    zl,
		container: container,
		server:    server,
	}
	// デフォルトでは実際のサーバーを使用
	app.serverSeam = server

	return app, nil
}

// Start サーバーを起動。自動保存は Run が先に起動する
func (a *App) Start() error {
	a.printStartupMessage()

	return a.serverSeam.ListenAndServe()
}

// restoreDraft 前回の下書きがあればセッションへ戻す
func (a *App) restoreDraft() {
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()

	restored, err := a.container.AutoSaver().Restore(ctx)
	if err != nil {
		a.logger.Warn("draft restore failed", zap.Error(err))
		return
	}
	if restored {
		a.logger.Info("previous draft restored")
	}
}

// startAutoSave 自動保存のgoroutineを起動
func (a *App) startAutoSave() {
	if a.stopAutoSave != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.stopAutoSave = cancel
	a.autoSaveDone = done

	go func() {
		defer close(done)
		a.container.AutoSaver().Run(ctx)
	}()
}

// printStartupMessage 起動メッセージを出力
func (a *App) printStartupMessage() {
	fmt.Println("=== ProInvoice Server ===")
	fmt.Printf("Version: %s\n", handler.Version)
	fmt.Printf("Server listening on http://0.0.0.0:%s\n", a.config.Port)
	fmt.Printf("Storage: summaries=%s drafts=%s\n", a.cfg.Storage.Summaries, a.cfg.Storage.Drafts)
	fmt.Println()
	fmt.Println("Endpoints:")
	fmt.Println("  GET    /health                       - Health check")
	fmt.Println("  GET    /metrics                      - Prometheus metrics")
	fmt.Println("  GET    /api/v1/session               - 編集中の請求書")
	fmt.Println("  PATCH  /api/v1/session/fields        - 項目の更新")
	fmt.Println("  POST   /api/v1/session/items         - 明細の追加")
	fmt.Println("  PATCH  /api/v1/session/items/{id}    - 明細の更新")
	fmt.Println("  DELETE /api/v1/session/items/{id}    - 明細の削除")
	fmt.Println("  POST   /api/v1/session/logo          - ロゴのアップロード")
	fmt.Println("  POST   /api/v1/session/validate      - 検証")
	fmt.Println("  POST   /api/v1/session/submit        - 送信")
	fmt.Println("  POST   /api/v1/session/reset         - 新規作成")
	fmt.Println("  GET    /preview                      - HTMLプレビュー")
	fmt.Println("  GET    /api/v1/invoices              - 請求書一覧")
	fmt.Println("  GET    /api/v1/invoices/summary      - ステータス別集計")
	fmt.Println()
}

// Shutdown サーバーをシャットダウン
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	// サーバーのシャットダウン（Seamを使用）
	if err := a.serverSeam.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// 自動保存を止めて最後の下書きを保存
	if a.stopAutoSave != nil {
		a.stopAutoSave()
		<-a.autoSaveDone
		a.stopAutoSave = nil
	}
	if err := a.container.AutoSaver().SaveNow(ctx); err != nil {
		a.logger.Warn("final draft save failed", zap.Error(err))
	}

	// コンテナのクローズ
	if err := a.container.Close(); err != nil {
		return fmt.Errorf("container close failed: %w", err)
	}

	a.logger.Info("server stopped")
	_ = a.logger.Sync()
	return nil
}

// Run アプリケーションを実行（グレースフルシャットダウン付き）
func (a *App) Run() error {
	a.restoreDraft()
	// Shutdown と競合しないようにサーバーより先に起動
	a.startAutoSave()

	// サーバー起動（goroutine）
	serverErr := make(chan error, 1)
	go func() {
		if err := a.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// シグナルの待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return a.Shutdown(ctx)
	}
}

// defaultConfigPath ~/.proinvoice/config.yaml
func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Failed to get home directory: %v. Using current directory.", err)
		homeDir = "."
	}
	return filepath.Join(homeDir, ".proinvoice", "config.yaml")
}

// newCLI コマンドライン定義
func newCLI() *cli.App {
	return &cli.App{
		Name:    "proinvoice",
		Usage:   "invoice authoring server",
		Version: handler.Version,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the HTTP server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Value:   defaultConfigPath(),
						Usage:   "path to config.yaml",
						EnvVars: []string{"PROINVOICE_CONFIG"},
					},
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "listen port (overrides config)",
						EnvVars: []string{"PORT"},
					},
				},
				Action: serveAction,
			},
			{
				Name:  "render",
				Usage: "render an invoice JSON document to HTML",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "invoice JSON file",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "output HTML file (default: stdout)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "render even if validation fails",
					},
				},
				Action: renderAction,
			},
		},
	}
}

func serveAction(c *cli.Context) error {
	app, err := NewApp(&AppConfig{
		ConfigPath: c.String("config"),
		Port:       c.String("port"),
	})
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	return app.Run()
}

func renderAction(c *cli.Context) error {
	data, err := os.ReadFile(c.String("input"))
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	var out io.Writer = c.App.Writer
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		out = f
	}

	return renderInvoice(data, out, c.App.ErrWriter, c.Bool("force"))
}

// renderInvoice JSONの請求書を検証してHTMLを書き出す
func renderInvoice(data []byte, out, errOut io.Writer, force bool) error {
	var inv entity.Invoice
	if err := json.Unmarshal(data, &inv); err != nil {
		return fmt.Errorf("failed to parse invoice: %w", err)
	}

	if errs, ok := service.ValidateInvoice(&inv); !ok {
		for _, k := range errs.Keys() {
			_, _ = fmt.Fprintf(errOut, "%s: %s\n", k, errs[k])
		}
		if !force {
			return cli.Exit(fmt.Sprintf("invoice has %d validation error(s)", len(errs)), 2)
		}
	}

	html, err := render.NewHTMLRenderer().RenderHTML(&inv)
	if err != nil {
		return fmt.Errorf("failed to render invoice: %w", err)
	}
	if _, err := io.WriteString(out, html); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// realMain 実際のmain処理（テスト可能にするため分離）
func realMain(args []string) error {
	return newCLI().Run(args)
}

func main() {
	if err := realMain(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

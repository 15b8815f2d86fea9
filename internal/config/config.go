package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ストレージドライバー
const (
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
	DriverRedis  = "redis"
)

// Config アプリケーション全体の設定
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Invoice InvoiceConfig `yaml:"invoice"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	MySQL   MySQLConfig   `yaml:"mysql"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig HTTPサーバーの設定
type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// InvoiceConfig 請求書編集セッションの設定
type InvoiceConfig struct {
	Prefix           string        `yaml:"prefix"`
	StartNumber      int           `yaml:"start_number"`
	PaymentTerms     string        `yaml:"payment_terms"`
	AutoSaveInterval time.Duration `yaml:"autosave_interval"`
	SubmitDelay      time.Duration `yaml:"submit_delay"`   // モック生成処理の待ち時間
	SubmitTimeout    time.Duration `yaml:"submit_timeout"` // 0の場合はタイムアウトなし
	MaxLogoBytes     int64         `yaml:"max_logo_bytes"`
	StrictContacts   bool          `yaml:"strict_contacts"`
}

// StorageConfig 一覧・下書きの保存先
type StorageConfig struct {
	Summaries string        `yaml:"summaries"`
	Drafts    string        `yaml:"drafts"`
	DraftTTL  time.Duration `yaml:"draft_ttl"`
}

// RedisConfig Redisの設定
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MySQLConfig MySQLの設定
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// LogConfig ログ出力の設定
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load 設定ファイルを読み込む
func Load(configPath string) (*Config, error) {
	// 設定ファイルが存在しない場合はデフォルト設定を返す
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 環境変数の展開
	dataStr := os.ExpandEnv(string(data))

	// 未指定の項目はデフォルト値のまま残す
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(dataStr), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig デフォルト設定を返す
func DefaultConfig() *Config {
	// Redis/MySQLのホストはテスト環境では localhost を使用
	redisHost := "redis"
	mysqlHost := "mysql"
	if os.Getenv("GO_ENV") == "test" {
		redisHost = "localhost"
		mysqlHost = "localhost"
	}

	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Invoice: InvoiceConfig{
			Prefix:           "INV",
			StartNumber:      1,
			PaymentTerms:     "Net 30",
			AutoSaveInterval: 30 * time.Second,
			SubmitDelay:      1500 * time.Millisecond,
			SubmitTimeout:    10 * time.Second,
			MaxLogoBytes:     2 * 1024 * 1024,
			StrictContacts:   false,
		},
		Storage: StorageConfig{
			Summaries: DriverMemory,
			Drafts:    DriverMemory,
			DraftTTL:  24 * time.Hour,
		},
		Redis: RedisConfig{
			Host:     redisHost,
			Port:     6379,
			Password: "",
			DB:       0,
		},
		MySQL: MySQLConfig{
			Host:     mysqlHost,
			Port:     3306,
			User:     "root",
			Password: os.Getenv("MYSQL_ROOT_PASSWORD"),
			Database: "proinvoice",
		},
		Log: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Validate 設定値を検証する
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Summaries {
	case DriverMemory, DriverMySQL:
	default:
		errs = append(errs, fmt.Errorf("unsupported summaries driver: %q", c.Storage.Summaries))
	}

	switch c.Storage.Drafts {
	case DriverMemory, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("unsupported drafts driver: %q", c.Storage.Drafts))
	}

	switch c.Invoice.PaymentTerms {
	case "Net 15", "Net 30", "Net 60", "Due on Receipt", "Custom":
	default:
		errs = append(errs, fmt.Errorf("unsupported payment terms: %q", c.Invoice.PaymentTerms))
	}

	if c.Invoice.StartNumber < 0 {
		errs = append(errs, errors.New("invoice start_number must not be negative"))
	}
	if c.Invoice.MaxLogoBytes <= 0 {
		errs = append(errs, errors.New("invoice max_logo_bytes must be positive"))
	}
	if c.Invoice.AutoSaveInterval <= 0 {
		errs = append(errs, errors.New("invoice autosave_interval must be positive"))
	}
	if c.Invoice.SubmitDelay < 0 || c.Invoice.SubmitTimeout < 0 {
		errs = append(errs, errors.New("invoice submit_delay and submit_timeout must not be negative"))
	}

	return errors.Join(errs...)
}

// Save 設定をファイルに保存する
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

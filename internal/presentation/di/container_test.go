package di

import (
	"context"
	"errors"
	"testing"

	"proinvoice/internal/config"
)

func TestNewContainer(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr bool
	}{
		{
			name:   "正常系: デフォルト設定（メモリ）",
			mutate: func(cfg *config.Config) {},
		},
		{
			name: "正常系: 未知のドライバーはメモリ扱い",
			mutate: func(cfg *config.Config) {
				cfg.Storage.Summaries = ""
				cfg.Storage.Drafts = ""
			},
		},
		{
			name: "異常系: 不正な支払条件",
			mutate: func(cfg *config.Config) {
				cfg.Invoice.PaymentTerms = "Net 45"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)

			container, err := NewContainer(cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewContainer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			defer func() { _ = container.Close() }()

			components := map[string]any{
				"Logger":             container.Logger(),
				"Metrics":            container.Metrics(),
				"EditSession":        container.EditSession(),
				"AutoSaver":          container.AutoSaver(),
				"InvoiceListUseCase": container.InvoiceListUseCase(),
				"HealthHandler":      container.HealthHandler(),
				"SessionHandler":     container.SessionHandler(),
				"PreviewHandler":     container.PreviewHandler(),
				"ListHandler":        container.ListHandler(),
			}
			for name, c := range components {
				if c == nil {
					t.Errorf("%s() = nil", name)
				}
			}
		})
	}
}

func TestNewContainer_SeedsSummaries(t *testing.T) {
	container, err := NewContainer(config.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}
	defer func() { _ = container.Close() }()

	list, err := container.InvoiceListUseCase().List(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 5 {
		t.Errorf("len(List()) = %d, want 5", len(list))
	}
}

func TestNewContainer_SessionUsesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Invoice.Prefix = "ACME"
	cfg.Invoice.StartNumber = 42

	container, err := NewContainer(cfg, nil)
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}
	defer func() { _ = container.Close() }()

	doc := container.EditSession().Snapshot()
	if doc.Prefix != "ACME" || doc.Number != "0042" {
		t.Errorf("number = %s-%s, want ACME-0042", doc.Prefix, doc.Number)
	}
}

type stubCloser struct {
	err    error
	closed int
}

func (s *stubCloser) Close() error {
	s.closed++
	return s.err
}

func TestContainer_Close(t *testing.T) {
	errClose := errors.New("connection reset")

	tests := []struct {
		name    string
		closers []*stubCloser
		wantErr bool
	}{
		{
			name:    "正常系: 全リソースをクローズ",
			closers: []*stubCloser{{}, {}},
		},
		{
			name:    "異常系: 途中で失敗しても残りをクローズ",
			closers: []*stubCloser{{err: errClose}, {}},
			wantErr: true,
		},
		{
			name:    "異常系: 複数の失敗をまとめて返す",
			closers: []*stubCloser{{err: errClose}, {err: errClose}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container, err := NewContainer(config.DefaultConfig(), nil)
			if err != nil {
				t.Fatalf("NewContainer() error = %v", err)
			}
			for _, c := range tt.closers {
				container.closers = append(container.closers, c)
			}

			err = container.Close()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Close() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errClose) {
				t.Errorf("Close() error = %v, want wrapping %v", err, errClose)
			}
			for i, c := range tt.closers {
				if c.closed != 1 {
					t.Errorf("closer[%d] closed %d times, want 1", i, c.closed)
				}
			}

			// 2回目のCloseは何もしない
			if err := container.Close(); err != nil {
				t.Errorf("second Close() error = %v", err)
			}
			for i, c := range tt.closers {
				if c.closed != 1 {
					t.Errorf("closer[%d] closed %d times after second Close, want 1", i, c.closed)
				}
			}
		})
	}
}

package generator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"proinvoice/internal/domain/entity"
)

// MockGenerator 請求書生成のモック。一定時間待つだけで何も出力しない
type MockGenerator struct {
	delay  time.Duration
	logger *zap.Logger
}

// NewMockGenerator 新しいMockGeneratorを作成
func NewMockGenerator(delay time.Duration, logger *zap.Logger) *MockGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockGenerator{delay: delay, logger: logger}
}

// Generate 待機後に成功を返す。ctxが先に終わればそのエラー
func (g *MockGenerator) Generate(ctx context.Context, inv *entity.Invoice) error {
	if inv == nil {
		return fmt.Errorf("failed to generate invoice: nil document")
	}

	timer := time.NewTimer(g.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("failed to generate invoice %s: %w", inv.DisplayNumber(), ctx.Err())
	case <-timer.C:
	}

	g.logger.Info("invoice generated",
		zap.String("invoice_number", inv.DisplayNumber()),
		zap.Int("items", len(inv.Items)),
	)
	return nil
}

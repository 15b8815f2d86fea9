package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shockerli/cvt"
	"go.uber.org/zap"

	"proinvoice/internal/config"
	"proinvoice/internal/domain/entity"
	"proinvoice/internal/domain/repository"
	"proinvoice/internal/domain/service"
	"proinvoice/internal/observability/metrics"
)

var (
	// ErrSubmitInProgress 送信中に再度送信（またはリセット）しようとした
	ErrSubmitInProgress = errors.New("invoice submission already in progress")
	// ErrUnknownField 存在しない項目キー
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidValue 項目に設定できない値
	ErrInvalidValue = errors.New("invalid field value")
)

// SessionState 編集セッションの状態
type SessionState string

const (
	StateEditing    SessionState = "editing"
	StateSubmitting SessionState = "submitting"
)

// SessionOptions 編集セッションの設定
type SessionOptions struct {
	Prefix         string
	StartNumber    int
	PaymentTerms   entity.PaymentTerms
	SubmitTimeout  time.Duration
	MaxLogoBytes   int64
	StrictContacts bool

	// Now 現在時刻（テストで差し替える）
	Now func() time.Time
	// NewID 明細IDの生成（テストで差し替える）
	NewID func() string
}

// SessionOptionsFromConfig 設定ファイルの値からSessionOptionsを作成
func SessionOptionsFromConfig(cfg *config.InvoiceConfig) (SessionOptions, error) {
	terms, err := entity.ParsePaymentTerms(cfg.PaymentTerms)
	if err != nil {
		return SessionOptions{}, fmt.Errorf("failed to build session options: %w", err)
	}

	return SessionOptions{
		Prefix:         cfg.Prefix,
		StartNumber:    cfg.StartNumber,
		PaymentTerms:   terms,
		SubmitTimeout:  cfg.SubmitTimeout,
		MaxLogoBytes:   cfg.MaxLogoBytes,
		StrictContacts: cfg.StrictContacts,
	}, nil
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.PaymentTerms == "" {
		o.PaymentTerms = entity.Net30
	}
	if o.StartNumber < 0 {
		o.StartNumber = 0
	}
	if o.MaxLogoBytes <= 0 {
		o.MaxLogoBytes = 2 * 1024 * 1024
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = service.GenerateID
	}
	return o
}

// SubmitResult 送信結果。Errorsが空でなければ検証エラーで未送信
type SubmitResult struct {
	Errors     entity.FormErrors
	Invoice    *entity.Invoice
	Totals     service.Totals
	NextNumber string
}

// Succeeded 送信が完了したか
func (r *SubmitResult) Succeeded() bool {
	return r != nil && len(r.Errors) == 0 && r.Invoice != nil
}

// EditSession 1件の請求書ドキュメントを所有する編集セッション
type EditSession struct {
	mu sync.Mutex

	id        string
	doc       *entity.Invoice
	errors    entity.FormErrors
	state     SessionState
	lastSaved time.Time

	opts      SessionOptions
	generator repository.InvoiceGenerator
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewEditSession 新しい下書きでセッションを開始
func NewEditSession(generator repository.InvoiceGenerator, opts SessionOptions, logger *zap.Logger, m *metrics.Metrics) *EditSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()

	s := &EditSession{
		id:        service.GenerateID(),
		errors:    entity.FormErrors{},
		state:     StateEditing,
		opts:      opts,
		generator: generator,
		metrics:   m,
	}
	s.logger = logger.With(zap.String("session_id", s.id))
	s.doc = s.newDraft(service.PadInvoiceNumber(opts.StartNumber))
	return s
}

// newDraft 今日の日付と既定の支払条件で下書きを作る
func (s *EditSession) newDraft(number string) *entity.Invoice {
	inv := entity.NewInvoice(s.opts.Prefix, number, s.opts.Now(), s.opts.PaymentTerms, s.opts.NewID())
	if due, ok := service.CalculateDueDate(inv.IssueDate, inv.PaymentTerms); ok {
		inv.DueDate = due
	}
	return inv
}

// ID セッションID
func (s *EditSession) ID() string {
	return s.id
}

// Snapshot ドキュメントのディープコピー
func (s *EditSession) Snapshot() *entity.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Errors 現在のエラーマップのコピー
func (s *EditSession) Errors() entity.FormErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors.Clone()
}

// State 現在の状態
func (s *EditSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastSaved 最後に自動保存した時刻。未保存ならゼロ値
func (s *EditSession) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// MarkSaved 自動保存時刻を記録。ドキュメントには触れない
func (s *EditSession) MarkSaved(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSaved = at
}

// Totals 現在のドキュメントの集計
func (s *EditSession) Totals() service.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return service.InvoiceTotals(s.doc)
}

// UpdateField 項目を置き換えてその項目のエラーを消す。
// 発行日・支払条件の変更では（Custom以外なら）支払期日を再計算して上書きする
func (s *EditSession) UpdateField(field entity.Field, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.applyField(field, value); err != nil {
		s.logger.Debug("field update rejected", zap.String("field", string(field)), zap.Error(err))
		return err
	}

	if key := string(field); s.errors.Has(key) {
		delete(s.errors, key)
		s.logger.Debug("field error cleared", zap.String("field", key))
	}

	if field == entity.FieldIssueDate || field == entity.FieldPaymentTerms {
		// 計算できない場合（Custom・発行日なし）は現在の期日を残す
		if due, ok := service.CalculateDueDate(s.doc.IssueDate, s.doc.PaymentTerms); ok {
			s.doc.DueDate = due
		}
	}
	return nil
}

func (s *EditSession) applyField(field entity.Field, value any) error {
	doc := s.doc

	switch field {
	case entity.FieldIssuerName:
		return setString(&doc.Issuer.Name, field, value)
	case entity.FieldIssuerAddress:
		return setString(&doc.Issuer.Address, field, value)
	case entity.FieldIssuerPhone:
		return setString(&doc.Issuer.Phone, field, value)
	case entity.FieldIssuerEmail:
		return setString(&doc.Issuer.Email, field, value)
	case entity.FieldIssuerLogo:
		return setString(&doc.IssuerLogo, field, value)
	case entity.FieldRecipientName:
		return setString(&doc.Recipient.Name, field, value)
	case entity.FieldRecipientAddress:
		return setString(&doc.Recipient.Address, field, value)
	case entity.FieldRecipientPhone:
		return setString(&doc.Recipient.Phone, field, value)
	case entity.FieldRecipientEmail:
		return setString(&doc.Recipient.Email, field, value)
	case entity.FieldInvoicePrefix:
		return setString(&doc.Prefix, field, value)
	case entity.FieldCustomPaymentTerms:
		return setString(&doc.CustomPaymentTerms, field, value)
	case entity.FieldNotes:
		return setString(&doc.Notes, field, value)
	case entity.FieldTerms:
		return setString(&doc.Terms, field, value)

	case entity.FieldInvoiceNumber:
		str, err := toString(field, value)
		if err != nil {
			return err
		}
		n, err := service.ParseInvoiceNumber(str)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidValue, field, err)
		}
		doc.Number = service.PadInvoiceNumber(n)
		return nil

	case entity.FieldIssueDate:
		return setDate(&doc.IssueDate, field, value)
	case entity.FieldDueDate:
		return setDate(&doc.DueDate, field, value)

	case entity.FieldPaymentTerms:
		str, err := toString(field, value)
		if err != nil {
			return err
		}
		terms, err := entity.ParsePaymentTerms(str)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		doc.PaymentTerms = terms
		return nil

	case entity.FieldStatus:
		str, err := toString(field, value)
		if err != nil {
			return err
		}
		status, err := entity.ParseStatus(str)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		doc.Status = status
		return nil

	case entity.FieldTaxRate:
		return setRate(&doc.TaxRate, field, value)
	case entity.FieldDiscountRate:
		return setRate(&doc.DiscountRate, field, value)
	}

	return fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// AddItem 空の明細を末尾に追加
func (s *EditSession) AddItem() entity.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := entity.NewLineItem(s.opts.NewID())
	s.doc.Items = append(s.doc.Items, item)
	return item
}

// RemoveItem 明細を削除。最後の1件や不明なIDでは何もしない
func (s *EditSession) RemoveItem(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.doc.Items) <= 1 {
		return false
	}
	if s.doc.ItemIndex(id) < 0 {
		return false
	}

	s.doc.Items = lo.Reject(s.doc.Items, func(item entity.LineItem, _ int) bool {
		return item.ID == id
	})

	// 明細エラーは位置で紐づくので、ずれた行を指さないよう破棄する
	for key := range s.errors {
		if strings.HasPrefix(key, "item_") {
			delete(s.errors, key)
		}
	}
	return true
}

// UpdateItem 明細の項目を更新。不明なIDでは何もしない（false）
func (s *EditSession) UpdateItem(id string, field entity.ItemField, value any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, index, found := lo.FindIndexOf(s.doc.Items, func(item entity.LineItem) bool {
		return item.ID == id
	})
	if !found {
		return false, nil
	}

	item := &s.doc.Items[index]
	switch field {
	case entity.ItemDescription:
		str, err := toString(entity.Field(field), value)
		if err != nil {
			return false, err
		}
		item.Description = str
	case entity.ItemQuantity:
		f, err := toFloat(entity.Field(field), value)
		if err != nil {
			return false, err
		}
		item.Quantity = f
	case entity.ItemUnitPrice:
		f, err := toFloat(entity.Field(field), value)
		if err != nil {
			return false, err
		}
		item.UnitPrice = f
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	delete(s.errors, entity.ItemErrorKey(index, field))
	return true, nil
}

// UploadLogo ロゴを data URL として保存。不正なサイズでは変更しない
func (s *EditSession) UploadLogo(data []byte) error {
	if err := service.ValidateLogoData(data, s.opts.MaxLogoBytes); err != nil {
		return err
	}
	url := service.EncodeLogoDataURL(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.IssuerLogo = url
	delete(s.errors, string(entity.FieldIssuerLogo))
	return nil
}

// Validate 検証を実行してエラーマップを保存
func (s *EditSession) Validate() (entity.FormErrors, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs, ok := s.validateLocked()
	return errs.Clone(), ok
}

func (s *EditSession) validateLocked() (entity.FormErrors, bool) {
	var opts []service.ValidateOption
	if s.opts.StrictContacts {
		opts = append(opts, service.WithStrictContacts())
	}

	errs, ok := service.ValidateInvoice(s.doc, opts...)
	s.errors = errs
	if !ok {
		s.metrics.ObserveValidationErrors(errs)
	}
	return errs, ok
}

// Submit 検証して確定（生成はモック）。成功すると番号を1つ進めて編集に戻る。
// 検証エラーはerrorではなく SubmitResult.Errors で返す
func (s *EditSession) Submit(ctx context.Context) (*SubmitResult, error) {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		s.metrics.IncSubmission("rejected")
		return nil, ErrSubmitInProgress
	}

	errs, ok := s.validateLocked()
	if !ok {
		s.mu.Unlock()
		s.metrics.IncSubmission("invalid")
		s.logger.Info("invoice submission has validation errors", zap.Strings("fields", errs.Keys()))
		return &SubmitResult{Errors: errs.Clone()}, nil
	}

	// 採番できない番号は生成前に弾く
	next, err := service.NextInvoiceNumber(s.doc.Number)
	if err != nil {
		s.errors[string(entity.FieldInvoiceNumber)] = "Invoice number cannot be incremented"
		numberErrs := s.errors.Clone()
		number := s.doc.Number
		s.mu.Unlock()
		s.metrics.IncSubmission("invalid")
		s.logger.Info("invoice number has no successor", zap.String("invoice_number", number), zap.Error(err))
		return &SubmitResult{Errors: numberErrs}, nil
	}

	snapshot := s.doc.Clone()
	s.state = StateSubmitting
	s.mu.Unlock()

	totals := service.InvoiceTotals(snapshot)

	genCtx := ctx
	if s.opts.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.opts.SubmitTimeout)
		defer cancel()
	}

	start := s.opts.Now()
	genErr := s.generate(genCtx, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateEditing

	if genErr != nil {
		s.metrics.IncSubmission("failed")
		s.logger.Error("failed to submit invoice",
			zap.String("invoice_number", snapshot.DisplayNumber()),
			zap.Error(genErr),
		)
		return nil, fmt.Errorf("failed to submit invoice: %w", genErr)
	}

	s.doc.Number = next
	s.errors = entity.FormErrors{}

	s.metrics.IncSubmission("success")
	s.logger.Info("invoice submitted",
		zap.String("invoice_number", snapshot.DisplayNumber()),
		zap.String("total", totals.Total.StringFixed(2)),
		zap.String("next_number", next),
		zap.Duration("elapsed", s.opts.Now().Sub(start)),
	)

	return &SubmitResult{
		Errors:     entity.FormErrors{},
		Invoice:    snapshot,
		Totals:     totals,
		NextNumber: next,
	}, nil
}

func (s *EditSession) generate(ctx context.Context, inv *entity.Invoice) error {
	if s.generator == nil {
		return nil
	}
	return s.generator.Generate(ctx, inv)
}

// Reset 新しい下書きに戻す。請求書番号は引き継ぐ
func (s *EditSession) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return ErrSubmitInProgress
	}

	s.doc = s.newDraft(s.doc.Number)
	s.errors = entity.FormErrors{}
	s.logger.Info("invoice draft reset", zap.String("invoice_number", s.doc.DisplayNumber()))
	return nil
}

// Restore 保存済みの下書きでドキュメントを置き換える。エラーは消す
func (s *EditSession) Restore(doc *entity.Invoice) error {
	if doc == nil {
		return fmt.Errorf("%w: nil draft", ErrInvalidValue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return ErrSubmitInProgress
	}

	s.doc = doc.Clone()
	s.errors = entity.FormErrors{}
	s.logger.Info("invoice draft restored", zap.String("invoice_number", s.doc.DisplayNumber()))
	return nil
}

func toString(field entity.Field, value any) (string, error) {
	if value == nil {
		return "", nil
	}
	str, err := cvt.StringE(value)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidValue, field, err)
	}
	return str, nil
}

func setString(dst *string, field entity.Field, value any) error {
	str, err := toString(field, value)
	if err != nil {
		return err
	}
	*dst = str
	return nil
}

func setDate(dst *time.Time, field entity.Field, value any) error {
	if t, ok := value.(time.Time); ok {
		*dst = entity.TruncateDate(t)
		return nil
	}

	str, err := toString(field, value)
	if err != nil {
		return err
	}
	t, err := entity.ParseDate(str)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidValue, field, err)
	}
	*dst = t
	return nil
}

// toFloat 空文字・nilは0として扱う
func toFloat(field entity.Field, value any) (float64, error) {
	if value == nil {
		return 0, nil
	}
	if str, ok := value.(string); ok {
		value = strings.TrimSpace(str)
		if value == "" {
			return 0, nil
		}
	}

	f, err := cvt.Float64E(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidValue, field, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s: not a finite number", ErrInvalidValue, field)
	}
	return f, nil
}

func setRate(dst *float64, field entity.Field, value any) error {
	f, err := toFloat(field, value)
	if err != nil {
		return err
	}
	if f < 0 || f > 100 {
		return fmt.Errorf("%w: %s must be between 0 and 100", ErrInvalidValue, field)
	}
	*dst = f
	return nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"proinvoice/internal/config"
	"proinvoice/internal/domain/entity"
	"proinvoice/internal/domain/service"
	"proinvoice/internal/observability/metrics"
)

// MockInvoiceGenerator モック生成器
type MockInvoiceGenerator struct {
	mu           sync.Mutex
	GenerateFunc func(ctx context.Context, inv *entity.Invoice) error
	calls        []*entity.Invoice
}

func (m *MockInvoiceGenerator) Generate(ctx context.Context, inv *entity.Invoice) error {
	m.mu.Lock()
	m.calls = append(m.calls, inv)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, inv)
	}
	return nil
}

func (m *MockInvoiceGenerator) Calls() []*entity.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.Invoice(nil), m.calls...)
}

// submissionCount proinvoice_submissions_total{result} の値
func submissionCount(t *testing.T, m *metrics.Metrics, result string) float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "proinvoice_submissions_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

var testToday = time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)

// newTestSession 固定日付・連番IDのセッション
func newTestSession(t *testing.T, gen *MockInvoiceGenerator, mutate ...func(*SessionOptions)) *EditSession {
	t.Helper()

	seq := 0
	opts := SessionOptions{
		Prefix:       "INV",
		StartNumber:  1,
		PaymentTerms: entity.Net30,
		Now:          func() time.Time { return testToday },
		NewID: func() string {
			seq++
			return fmt.Sprintf("item-%d", seq)
		},
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	if gen == nil {
		gen = &MockInvoiceGenerator{}
	}
	return NewEditSession(gen, opts, zap.NewNop(), nil)
}

// fillValid 検証を通る内容を入力
func fillValid(t *testing.T, s *EditSession) {
	t.Helper()

	fields := map[entity.Field]any{
		entity.FieldIssuerName:     "Acme LLC",
		entity.FieldIssuerAddress:  "1 Main St",
		entity.FieldIssuerEmail:    "billing@acme.com",
		entity.FieldRecipientName:  "Globex Inc",
		entity.FieldRecipientEmail: "ap@globex.com",
	}
	for f, v := range fields {
		mustUpdate(t, s, f, v)
	}

	id := s.Snapshot().Items[0].ID
	items := []struct {
		field entity.ItemField
		value any
	}{
		{field: entity.ItemDescription, value: "Consulting"},
		{field: entity.ItemQuantity, value: 2},
		{field: entity.ItemUnitPrice, value: "50"},
	}
	for _, it := range items {
		if _, err := s.UpdateItem(id, it.field, it.value); err != nil {
			t.Fatalf("UpdateItem(%s) error = %v", it.field, err)
		}
	}
}

// mustUpdate 項目更新が成功することを前提にする
func mustUpdate(t *testing.T, s *EditSession, field entity.Field, value any) {
	t.Helper()
	if err := s.UpdateField(field, value); err != nil {
		t.Fatalf("UpdateField(%s, %v) error = %v", field, value, err)
	}
}

// wantSnapshot ドキュメントが変わっていないこと
func wantSnapshot(t *testing.T, s *EditSession, want *entity.Invoice) {
	t.Helper()
	if got := s.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
}


func TestNewEditSession_FreshDraft(t *testing.T) {
	s := newTestSession(t, nil)
	doc := s.Snapshot()

	if doc.DisplayNumber() != "INV-0001" {
		t.Errorf("DisplayNumber() = %q, want INV-0001", doc.DisplayNumber())
	}
	if got := entity.FormatDate(doc.IssueDate); got != "2023-01-15" {
		t.Errorf("IssueDate = %s, want 2023-01-15", got)
	}
	if got := entity.FormatDate(doc.DueDate); got != "2023-02-14" {
		t.Errorf("DueDate = %s, want 2023-02-14", got)
	}
	if doc.Status != entity.StatusDraft {
		t.Errorf("Status = %q, want draft", doc.Status)
	}
	if len(doc.Items) != 1 || doc.Items[0] != (entity.LineItem{ID: "item-1", Quantity: 1}) {
		t.Errorf("Items = %+v, want one empty item-1", doc.Items)
	}
	if s.State() != StateEditing {
		t.Errorf("State() = %v, want editing", s.State())
	}
	if !s.LastSaved().IsZero() {
		t.Errorf("LastSaved() = %v, want zero", s.LastSaved())
	}
	if len(s.Errors()) != 0 {
		t.Errorf("Errors() = %v, want empty", s.Errors())
	}
	if s.ID() == "" {
		t.Error("ID() is empty")
	}
}

func TestSessionOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Invoice
	opts, err := SessionOptionsFromConfig(&cfg)
	if err != nil {
		t.Fatalf("SessionOptionsFromConfig() error = %v", err)
	}
	if opts.PaymentTerms != entity.Net30 {
		t.Errorf("PaymentTerms = %q, want Net 30", opts.PaymentTerms)
	}
	if opts.Prefix != cfg.Prefix {
		t.Errorf("Prefix = %q, want %q", opts.Prefix, cfg.Prefix)
	}
	if opts.SubmitTimeout != cfg.SubmitTimeout {
		t.Errorf("SubmitTimeout = %v, want %v", opts.SubmitTimeout, cfg.SubmitTimeout)
	}

	cfg.PaymentTerms = "Net 90"
	if _, err := SessionOptionsFromConfig(&cfg); err == nil {
		t.Error("SessionOptionsFromConfig() with unknown terms should fail")
	}
}

func TestEditSession_UpdateField(t *testing.T) {
	tests := []struct {
		name    string
		field   entity.Field
		value   any
		wantErr error
		check   func(doc *entity.Invoice) bool
	}{
		{
			name:  "正常系: 文字列項目",
			field: entity.FieldIssuerName,
			value: "Acme LLC",
			check: func(doc *entity.Invoice) bool { return doc.Issuer.Name == "Acme LLC" },
		},
		{
			name:  "正常系: 請求書番号はゼロ埋め",
			field: entity.FieldInvoiceNumber,
			value: "42",
			check: func(doc *entity.Invoice) bool { return doc.Number == "0042" },
		},
		{
			name:    "異常系: 数字以外の請求書番号",
			field:   entity.FieldInvoiceNumber,
			value:   "A-1",
			wantErr: ErrInvalidValue,
			check:   func(doc *entity.Invoice) bool { return doc.Number == "0001" },
		},
		{
			name:  "正常系: 税率",
			field: entity.FieldTaxRate,
			value: "8.25",
			check: func(doc *entity.Invoice) bool { return doc.TaxRate == 8.25 },
		},
		{
			name:  "境界値: 値引率100",
			field: entity.FieldDiscountRate,
			value: 100,
			check: func(doc *entity.Invoice) bool { return doc.DiscountRate == 100 },
		},
		{
			name:    "異常系: 税率が範囲外",
			field:   entity.FieldTaxRate,
			value:   100.5,
			wantErr: ErrInvalidValue,
			check:   func(doc *entity.Invoice) bool { return doc.TaxRate == 0 },
		},
		{
			name:    "異常系: 負の値引率",
			field:   entity.FieldDiscountRate,
			value:   -1,
			wantErr: ErrInvalidValue,
		},
		{
			name:    "異常系: 数値でない税率",
			field:   entity.FieldTaxRate,
			value:   "ten",
			wantErr: ErrInvalidValue,
		},
		{
			name:  "正常系: ステータス",
			field: entity.FieldStatus,
			value: "paid",
			check: func(doc *entity.Invoice) bool { return doc.Status == entity.StatusPaid },
		},
		{
			name:    "異常系: 不明なステータス",
			field:   entity.FieldStatus,
			value:   "archived",
			wantErr: ErrInvalidValue,
		},
		{
			name:    "異常系: 不明な支払条件",
			field:   entity.FieldPaymentTerms,
			value:   "Net 90",
			wantErr: ErrInvalidValue,
		},
		{
			name:    "異常系: 不正な日付",
			field:   entity.FieldDueDate,
			value:   "2023-02-30",
			wantErr: ErrInvalidValue,
		},
		{
			name:  "正常系: 支払期日は手入力できる",
			field: entity.FieldDueDate,
			value: "2023-03-01",
			check: func(doc *entity.Invoice) bool { return entity.FormatDate(doc.DueDate) == "2023-03-01" },
		},
		{
			name:  "正常系: ロゴはnilで消去",
			field: entity.FieldIssuerLogo,
			value: nil,
			check: func(doc *entity.Invoice) bool { return doc.IssuerLogo == "" },
		},
		{
			name:    "異常系: 不明な項目",
			field:   entity.Field("color"),
			value:   "red",
			wantErr: ErrUnknownField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, nil)

			err := s.UpdateField(tt.field, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("UpdateField() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Errorf("UpdateField() error = %v", err)
			}

			if tt.check != nil {
				if doc := s.Snapshot(); !tt.check(doc) {
					t.Errorf("unexpected document after UpdateField(%s, %v): %+v", tt.field, tt.value, doc)
				}
			}
		})
	}
}

func TestEditSession_UpdateFieldClearsOnlyThatError(t *testing.T) {
	s := newTestSession(t, nil)

	errs, ok := s.Validate()
	if ok || !errs.Has("issuerName") || !errs.Has("recipientName") {
		t.Fatalf("Validate() = %v, %v, want issuerName and recipientName errors", errs, ok)
	}

	mustUpdate(t, s, entity.FieldIssuerName, "Acme")

	after := s.Errors()
	if after.Has("issuerName") {
		t.Error("issuerName error should be cleared")
	}
	if !after.Has("recipientName") {
		t.Error("recipientName error should remain")
	}

	// 不正な値では消えない
	if err := s.UpdateField(entity.FieldTaxRate, 150); err == nil {
		t.Fatal("UpdateField(taxRate, 150) should fail")
	}
	if !s.Errors().Has("recipientName") {
		t.Error("recipientName error should remain after rejected update")
	}
}

func TestEditSession_DueDateRecalculation(t *testing.T) {
	tests := []struct {
		name      string
		updates   []fieldUpdate
		wantIssue string
		wantDue   string
	}{
		{
			name: "正常系: 発行日の変更で手入力の期日を上書き",
			updates: []fieldUpdate{
				{entity.FieldDueDate, "2023-12-31"},
				{entity.FieldIssueDate, "2023-01-20"},
			},
			wantIssue: "2023-01-20",
			wantDue:   "2023-02-19",
		},
		{
			name: "正常系: 支払条件の変更で再計算",
			updates: []fieldUpdate{
				{entity.FieldIssueDate, "2023-01-20"},
				{entity.FieldPaymentTerms, "Net 15"},
			},
			wantIssue: "2023-01-20",
			wantDue:   "2023-02-04",
		},
		{
			name: "正常系: 即時払いは発行日",
			updates: []fieldUpdate{
				{entity.FieldIssueDate, "2023-01-20"},
				{entity.FieldPaymentTerms, "Net 15"},
				{entity.FieldPaymentTerms, "Due on Receipt"},
			},
			wantIssue: "2023-01-20",
			wantDue:   "2023-01-20",
		},
		{
			name: "正常系: Customでは自動計算しない",
			updates: []fieldUpdate{
				{entity.FieldPaymentTerms, "Custom"},
				{entity.FieldDueDate, "2023-05-05"},
				{entity.FieldIssueDate, "2023-04-01"},
			},
			wantIssue: "2023-04-01",
			wantDue:   "2023-05-05",
		},
		{
			name: "境界値: 発行日を空にすると期日は残る",
			updates: []fieldUpdate{
				{entity.FieldIssueDate, ""},
			},
			wantIssue: "",
			wantDue:   "2023-02-14",
		},
		{
			name: "正常系: time.Timeも受け付ける",
			updates: []fieldUpdate{
				{entity.FieldIssueDate, time.Date(2023, 12, 15, 18, 0, 0, 0, time.UTC)},
			},
			wantIssue: "2023-12-15",
			wantDue:   "2024-01-14",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, nil)
			for _, u := range tt.updates {
				mustUpdate(t, s, u.Field, u.Value)
			}

			doc := s.Snapshot()
			if got := entity.FormatDate(doc.IssueDate); got != tt.wantIssue {
				t.Errorf("IssueDate = %q, want %q", got, tt.wantIssue)
			}
			if got := entity.FormatDate(doc.DueDate); got != tt.wantDue {
				t.Errorf("DueDate = %q, want %q", got, tt.wantDue)
			}
		})
	}
}

// fieldUpdate 項目と値の組
type fieldUpdate struct {
	Field entity.Field
	Value any
}

func TestEditSession_UpdateIssueDateIdempotent(t *testing.T) {
	s := newTestSession(t, nil)

	mustUpdate(t, s, entity.FieldIssueDate, "2023-03-10")
	first := s.Snapshot()
	mustUpdate(t, s, entity.FieldIssueDate, "2023-03-10")

	wantSnapshot(t, s, first)
}

func TestEditSession_Items(t *testing.T) {
	t.Run("正常系: 追加", func(t *testing.T) {
		s := newTestSession(t, nil)
		item := s.AddItem()

		if item != (entity.LineItem{ID: "item-2", Quantity: 1}) {
			t.Errorf("AddItem() = %+v, want item-2 with quantity 1", item)
		}
		if n := len(s.Snapshot().Items); n != 2 {
			t.Errorf("len(Items) = %d, want 2", n)
		}
	})

	t.Run("境界値: 最後の1件は削除できない", func(t *testing.T) {
		s := newTestSession(t, nil)
		before := s.Snapshot()

		if s.RemoveItem(before.Items[0].ID) {
			t.Error("RemoveItem(last) = true, want false")
		}
		wantSnapshot(t, s, before)
	})

	t.Run("正常系: 削除で順序は保たれる", func(t *testing.T) {
		s := newTestSession(t, nil)
		s.AddItem()
		s.AddItem()

		if !s.RemoveItem("item-2") {
			t.Fatal("RemoveItem(item-2) = false, want true")
		}

		doc := s.Snapshot()
		if len(doc.Items) != 2 || doc.Items[0].ID != "item-1" || doc.Items[1].ID != "item-3" {
			t.Errorf("Items = %+v, want [item-1 item-3]", doc.Items)
		}
	})

	t.Run("異常系: 不明なIDの削除", func(t *testing.T) {
		s := newTestSession(t, nil)
		s.AddItem()
		if s.RemoveItem("missing") {
			t.Error("RemoveItem(missing) = true, want false")
		}
		if n := len(s.Snapshot().Items); n != 2 {
			t.Errorf("len(Items) = %d, want 2", n)
		}
	})

	t.Run("正常系: 削除で明細エラーは破棄", func(t *testing.T) {
		s := newTestSession(t, nil)
		s.AddItem()
		s.Validate()
		if !s.Errors().Has("item_1_desc") {
			t.Fatal("item_1_desc error missing before removal")
		}

		if !s.RemoveItem("item-1") {
			t.Fatal("RemoveItem(item-1) = false, want true")
		}
		errs := s.Errors()
		if errs.Has("item_0_desc") || errs.Has("item_1_desc") {
			t.Errorf("item errors should be discarded, got %v", errs)
		}
		if !errs.Has("issuerName") {
			t.Error("issuerName error should remain")
		}
	})

	t.Run("正常系: 明細の更新とエラーの消去", func(t *testing.T) {
		s := newTestSession(t, nil)
		s.AddItem()
		s.Validate()
		if !s.Errors().Has("item_1_desc") {
			t.Fatal("item_1_desc error missing before update")
		}

		ok, err := s.UpdateItem("item-2", entity.ItemDescription, "Design")
		if err != nil || !ok {
			t.Fatalf("UpdateItem() = %v, %v", ok, err)
		}
		if s.Errors().Has("item_1_desc") {
			t.Error("item_1_desc error should be cleared")
		}
		if !s.Errors().Has("item_0_desc") {
			t.Error("item_0_desc error should remain")
		}

		ok, err = s.UpdateItem("item-2", entity.ItemQuantity, "")
		if err != nil || !ok {
			t.Fatalf("UpdateItem(quantity, \"\") = %v, %v", ok, err)
		}
		if q := s.Snapshot().Items[1].Quantity; q != 0 {
			t.Errorf("Quantity = %v, want 0", q)
		}
	})

	t.Run("異常系: 明細の不正値", func(t *testing.T) {
		s := newTestSession(t, nil)

		tests := []struct {
			field   entity.ItemField
			value   any
			wantErr error
		}{
			{field: entity.ItemUnitPrice, value: "abc", wantErr: ErrInvalidValue},
			{field: entity.ItemField("color"), value: "red", wantErr: ErrUnknownField},
		}
		for _, tt := range tests {
			ok, err := s.UpdateItem("item-1", tt.field, tt.value)
			if ok || !errors.Is(err, tt.wantErr) {
				t.Errorf("UpdateItem(%s) = %v, %v, want false, %v", tt.field, ok, err, tt.wantErr)
			}
		}

		if p := s.Snapshot().Items[0].UnitPrice; p != 0 {
			t.Errorf("UnitPrice = %v, want 0", p)
		}
	})

	t.Run("境界値: 不明なIDの更新は何もしない", func(t *testing.T) {
		s := newTestSession(t, nil)
		before := s.Snapshot()

		ok, err := s.UpdateItem("missing", entity.ItemQuantity, 5)
		if err != nil || ok {
			t.Errorf("UpdateItem(missing) = %v, %v, want false, nil", ok, err)
		}
		wantSnapshot(t, s, before)
	})
}

func TestEditSession_Totals(t *testing.T) {
	s := newTestSession(t, nil)
	fillValid(t, s)
	mustUpdate(t, s, entity.FieldTaxRate, 10)
	mustUpdate(t, s, entity.FieldDiscountRate, 5)

	totals := s.Totals()
	if totals.Subtotal.String() != "100" || totals.Total.String() != "105" {
		t.Errorf("Totals() = %s / %s, want 100 / 105", totals.Subtotal, totals.Total)
	}
}

func TestEditSession_UploadLogo(t *testing.T) {
	s := newTestSession(t, nil, func(o *SessionOptions) { o.MaxLogoBytes = 8 })

	t.Run("異常系: 空データ", func(t *testing.T) {
		if err := s.UploadLogo(nil); !errors.Is(err, service.ErrLogoEmpty) {
			t.Errorf("UploadLogo(nil) error = %v, want ErrLogoEmpty", err)
		}
		if logo := s.Snapshot().IssuerLogo; logo != "" {
			t.Errorf("IssuerLogo = %q, want empty", logo)
		}
	})

	t.Run("異常系: 上限超過では変更しない", func(t *testing.T) {
		if err := s.UploadLogo([]byte("123456789")); !errors.Is(err, service.ErrLogoTooLarge) {
			t.Errorf("UploadLogo() error = %v, want ErrLogoTooLarge", err)
		}
		if logo := s.Snapshot().IssuerLogo; logo != "" {
			t.Errorf("IssuerLogo = %q, want empty", logo)
		}
	})

	t.Run("正常系: data URLとして保存", func(t *testing.T) {
		if err := s.UploadLogo([]byte("12345678")); err != nil {
			t.Fatalf("UploadLogo() error = %v", err)
		}
		logo := s.Snapshot().IssuerLogo
		if !strings.HasPrefix(logo, "data:") || !strings.HasSuffix(logo, ";base64,MTIzNDU2Nzg=") {
			t.Errorf("IssuerLogo = %q, want base64 data URL", logo)
		}

		mustUpdate(t, s, entity.FieldIssuerLogo, "")
		if logo := s.Snapshot().IssuerLogo; logo != "" {
			t.Errorf("IssuerLogo = %q, want empty", logo)
		}
	})
}

func TestEditSession_Submit(t *testing.T) {
	t.Run("正常系: 0009から0010に進んで編集に戻る", func(t *testing.T) {
		gen := &MockInvoiceGenerator{}
		s := newTestSession(t, gen)
		fillValid(t, s)
		mustUpdate(t, s, entity.FieldInvoiceNumber, "0009")

		result, err := s.Submit(context.Background())
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if !result.Succeeded() {
			t.Fatalf("Submit() errors = %v", result.Errors)
		}

		if result.NextNumber != "0010" || result.Invoice.Number != "0009" {
			t.Errorf("Submit() numbers = %s -> %s, want 0009 -> 0010", result.Invoice.Number, result.NextNumber)
		}
		if got := result.Totals.Total.String(); got != "100" {
			t.Errorf("Total = %s, want 100", got)
		}

		if got := s.Snapshot().Number; got != "0010" {
			t.Errorf("Number = %s, want 0010", got)
		}
		if s.State() != StateEditing {
			t.Errorf("State() = %v, want editing", s.State())
		}
		if len(s.Errors()) != 0 {
			t.Errorf("Errors() = %v, want empty", s.Errors())
		}

		calls := gen.Calls()
		if len(calls) != 1 || calls[0].Number != "0009" {
			t.Errorf("generator calls = %d, want one call with 0009", len(calls))
		}
	})

	t.Run("異常系: 検証エラーではドキュメントを変えない", func(t *testing.T) {
		gen := &MockInvoiceGenerator{}
		s := newTestSession(t, gen)
		mustUpdate(t, s, entity.FieldIssuerName, "Acme")
		mustUpdate(t, s, entity.FieldRecipientEmail, "bad")
		before := s.Snapshot()

		result, err := s.Submit(context.Background())
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if result.Succeeded() {
			t.Fatal("Submit() succeeded, want validation errors")
		}
		if !result.Errors.Has("recipientEmail") || !result.Errors.Has("item_0_desc") {
			t.Errorf("Submit() errors = %v", result.Errors)
		}

		wantSnapshot(t, s, before)
		if !reflect.DeepEqual(result.Errors, s.Errors()) {
			t.Errorf("Errors() = %v, want %v", s.Errors(), result.Errors)
		}
		if n := len(gen.Calls()); n != 0 {
			t.Errorf("generator called %d times, want 0", n)
		}
		if s.State() != StateEditing {
			t.Errorf("State() = %v, want editing", s.State())
		}
	})

	t.Run("異常系: 生成失敗では番号を進めない", func(t *testing.T) {
		gen := &MockInvoiceGenerator{GenerateFunc: func(ctx context.Context, inv *entity.Invoice) error {
			return errors.New("printer on fire")
		}}
		s := newTestSession(t, gen)
		fillValid(t, s)

		result, err := s.Submit(context.Background())
		if result != nil {
			t.Errorf("Submit() result = %+v, want nil", result)
		}
		if err == nil || !strings.Contains(err.Error(), "printer on fire") {
			t.Errorf("Submit() error = %v, want printer on fire", err)
		}
		if got := s.Snapshot().Number; got != "0001" {
			t.Errorf("Number = %s, want 0001", got)
		}
		if s.State() != StateEditing {
			t.Errorf("State() = %v, want editing", s.State())
		}
	})

	t.Run("異常系: タイムアウト", func(t *testing.T) {
		gen := &MockInvoiceGenerator{GenerateFunc: func(ctx context.Context, inv *entity.Invoice) error {
			<-ctx.Done()
			return ctx.Err()
		}}
		s := newTestSession(t, gen, func(o *SessionOptions) { o.SubmitTimeout = 20 * time.Millisecond })
		fillValid(t, s)

		if _, err := s.Submit(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Submit() error = %v, want DeadlineExceeded", err)
		}
		if s.State() != StateEditing {
			t.Errorf("State() = %v, want editing", s.State())
		}
		if got := s.Snapshot().Number; got != "0001" {
			t.Errorf("Number = %s, want 0001", got)
		}
	})

	t.Run("境界値: 次の番号がない請求書は生成前に拒否", func(t *testing.T) {
		gen := &MockInvoiceGenerator{}
		m := metrics.New()
		s := newTestSession(t, gen)
		s.metrics = m
		fillValid(t, s)
		maxNumber := strconv.Itoa(math.MaxInt)
		mustUpdate(t, s, entity.FieldInvoiceNumber, maxNumber)

		result, err := s.Submit(context.Background())
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if result.Succeeded() {
			t.Fatal("Submit() succeeded, want invoice number error")
		}
		if !result.Errors.Has(string(entity.FieldInvoiceNumber)) {
			t.Errorf("Submit() errors = %v, want invoiceNumber", result.Errors)
		}
		if n := len(gen.Calls()); n != 0 {
			t.Errorf("generator called %d times, want 0", n)
		}
		if got := s.Snapshot().Number; got != maxNumber {
			t.Errorf("Number = %s, want %s", got, maxNumber)
		}
		if s.State() != StateEditing {
			t.Errorf("State() = %v, want editing", s.State())
		}
		if got := submissionCount(t, m, "invalid"); got != 1 {
			t.Errorf("invalid submissions = %v, want 1", got)
		}

		// 番号を直せば送信できる
		mustUpdate(t, s, entity.FieldInvoiceNumber, "0005")
		if s.Errors().Has(string(entity.FieldInvoiceNumber)) {
			t.Error("invoiceNumber error should be cleared by update")
		}
		result, err = s.Submit(context.Background())
		if err != nil || !result.Succeeded() {
			t.Fatalf("Submit() after fix = %+v, %v", result, err)
		}
	})
}

func TestEditSession_SubmitRejectsDoubleSubmit(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gen := &MockInvoiceGenerator{GenerateFunc: func(ctx context.Context, inv *entity.Invoice) error {
		close(started)
		<-release
		return nil
	}}

	m := metrics.New()
	s := newTestSession(t, gen)
	s.metrics = m
	fillValid(t, s)

	type outcome struct {
		result *SubmitResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := s.Submit(context.Background())
		done <- outcome{r, err}
	}()

	<-started
	if s.State() != StateSubmitting {
		t.Errorf("State() = %v, want submitting", s.State())
	}

	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrSubmitInProgress) {
		t.Errorf("second Submit() error = %v, want ErrSubmitInProgress", err)
	}
	if err := s.Reset(); !errors.Is(err, ErrSubmitInProgress) {
		t.Errorf("Reset() error = %v, want ErrSubmitInProgress", err)
	}
	if err := s.Restore(s.Snapshot()); !errors.Is(err, ErrSubmitInProgress) {
		t.Errorf("Restore() error = %v, want ErrSubmitInProgress", err)
	}

	// 送信中でも編集はでき、生成器には検証時のスナップショットが渡る
	mustUpdate(t, s, entity.FieldNotes, "edited while submitting")

	close(release)
	out := <-done
	if out.err != nil {
		t.Fatalf("Submit() error = %v", out.err)
	}
	if out.result.Invoice.Notes != "" {
		t.Errorf("submitted Notes = %q, want empty", out.result.Invoice.Notes)
	}

	doc := s.Snapshot()
	if doc.Number != "0002" || doc.Notes != "edited while submitting" {
		t.Errorf("document = %s / %q, want 0002 with edited notes", doc.Number, doc.Notes)
	}
	if s.State() != StateEditing {
		t.Errorf("State() = %v, want editing", s.State())
	}

	if got := submissionCount(t, m, "rejected"); got != 1 {
		t.Errorf("rejected submissions = %v, want 1", got)
	}
	if got := submissionCount(t, m, "success"); got != 1 {
		t.Errorf("successful submissions = %v, want 1", got)
	}
}

func TestEditSession_StrictContacts(t *testing.T) {
	s := newTestSession(t, nil, func(o *SessionOptions) { o.StrictContacts = true })
	fillValid(t, s)
	mustUpdate(t, s, entity.FieldRecipientPhone, "12-34")

	errs, ok := s.Validate()
	if ok {
		t.Error("Validate() ok = true, want false")
	}
	if got := errs.Keys(); !reflect.DeepEqual(got, []string{"recipientPhone"}) {
		t.Errorf("Validate() keys = %v, want [recipientPhone]", got)
	}
}

func TestEditSession_ResetKeepsNumber(t *testing.T) {
	s := newTestSession(t, nil)
	fillValid(t, s)
	s.AddItem()
	mustUpdate(t, s, entity.FieldInvoiceNumber, "0042")
	s.Validate()

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	doc := s.Snapshot()
	if doc.Number != "0042" {
		t.Errorf("Number = %s, want 0042", doc.Number)
	}
	if doc.Issuer.Name != "" {
		t.Errorf("Issuer.Name = %q, want empty", doc.Issuer.Name)
	}
	if len(doc.Items) != 1 {
		t.Errorf("len(Items) = %d, want 1", len(doc.Items))
	}
	if got := entity.FormatDate(doc.DueDate); got != "2023-02-14" {
		t.Errorf("DueDate = %s, want 2023-02-14", got)
	}
	if len(s.Errors()) != 0 {
		t.Errorf("Errors() = %v, want empty", s.Errors())
	}
}

func TestEditSession_Restore(t *testing.T) {
	tests := []struct {
		name    string
		draft   func() *entity.Invoice
		wantErr error
	}{
		{
			name: "正常系: 保存済みの下書きに置き換え",
			draft: func() *entity.Invoice {
				inv := entity.NewInvoice("ACME", "0077", testToday, entity.Net15, "saved-1")
				inv.Issuer.Name = "Saved LLC"
				return inv
			},
		},
		{
			name:    "異常系: nilの下書き",
			draft:   func() *entity.Invoice { return nil },
			wantErr: ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, nil)
			s.Validate()
			before := s.Snapshot()
			draft := tt.draft()

			err := s.Restore(draft)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Restore() error = %v, want %v", err, tt.wantErr)
				}
				wantSnapshot(t, s, before)
				return
			}
			if err != nil {
				t.Fatalf("Restore() error = %v", err)
			}

			wantSnapshot(t, s, draft)
			if len(s.Errors()) != 0 {
				t.Errorf("Errors() = %v, want empty", s.Errors())
			}
			// 呼び出し側のドキュメントとは共有しない
			draft.Issuer.Name = "changed"
			if got := s.Snapshot().Issuer.Name; got != "Saved LLC" {
				t.Errorf("Issuer.Name = %q, want Saved LLC", got)
			}
		})
	}
}

func TestEditSession_MarkSavedDoesNotTouchDocument(t *testing.T) {
	s := newTestSession(t, nil)
	before := s.Snapshot()

	at := time.Date(2023, 1, 15, 11, 0, 0, 0, time.UTC)
	s.MarkSaved(at)

	if !s.LastSaved().Equal(at) {
		t.Errorf("LastSaved() = %v, want %v", s.LastSaved(), at)
	}
	wantSnapshot(t, s, before)
}

func TestEditSession_SubmitLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewEditSession(&MockInvoiceGenerator{}, SessionOptions{Prefix: "INV", StartNumber: 7}, zap.New(core), nil)
	fillValid(t, s)

	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	entries := logs.FilterMessage("invoice submitted").All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	want := map[string]any{
		"invoice_number": "INV-0007",
		"next_number":    "0008",
		"total":          "100.00",
		"session_id":     s.ID(),
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("log field %s = %v, want %v", k, fields[k], v)
		}
	}
}

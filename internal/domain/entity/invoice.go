package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentTerms 支払条件
type PaymentTerms string

const (
	Net15        PaymentTerms = "Net 15"
	Net30        PaymentTerms = "Net 30"
	Net60        PaymentTerms = "Net 60"
	DueOnReceipt PaymentTerms = "Due on Receipt"
	Custom       PaymentTerms = "Custom"
)

// ParsePaymentTerms 文字列から支払条件を取得
func ParsePaymentTerms(s string) (PaymentTerms, error) {
	switch p := PaymentTerms(s); p {
	case Net15, Net30, Net60, DueOnReceipt, Custom:
		return p, nil
	}
	return "", fmt.Errorf("unknown payment terms: %q", s)
}

// OffsetDays 発行日から支払期日までの日数。Customは自動計算しないためfalse
func (p PaymentTerms) OffsetDays() (int, bool) {
	switch p {
	case Net15:
		return 15, true
	case Net30:
		return 30, true
	case Net60:
		return 60, true
	case DueOnReceipt:
		return 0, true
	}
	return 0, false
}

// Status 請求書のステータス
type Status string

const (
	StatusDraft   Status = "draft"
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// ParseStatus 文字列からステータスを取得
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusDraft, StatusPending, StatusPaid, StatusOverdue:
		return st, nil
	}
	return "", fmt.Errorf("unknown invoice status: %q", s)
}

// Statuses 全ステータス（表示順）
func Statuses() []Status {
	return []Status{StatusDraft, StatusPending, StatusPaid, StatusOverdue}
}

// LineItem 請求明細
type LineItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// NewLineItem 空の明細を作成（数量1、単価0）
func NewLineItem(id string) LineItem {
	return LineItem{
		ID:          id,
		Description: "",
		Quantity:    1,
		UnitPrice:   0,
	}
}

// Amount 数量×単価（保存せず常に導出）
func (li LineItem) Amount() decimal.Decimal {
	return decimal.NewFromFloat(li.Quantity).Mul(decimal.NewFromFloat(li.UnitPrice))
}

// Party 請求元・請求先の連絡先
type Party struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// Invoice 編集中の請求書ドキュメント
type Invoice struct {
	Issuer     Party  `json:"issuer"`
	IssuerLogo string `json:"issuerLogo,omitempty"` // data URL、空ならロゴなし
	Recipient  Party  `json:"recipient"`

	Prefix string `json:"invoicePrefix"`
	Number string `json:"invoiceNumber"`

	IssueDate time.Time `json:"issueDate"`
	DueDate   time.Time `json:"dueDate"`

	PaymentTerms       PaymentTerms `json:"paymentTerms"`
	CustomPaymentTerms string       `json:"customPaymentTerms"`
	Status             Status       `json:"status"`

	Items []LineItem `json:"items"`

	TaxRate      float64 `json:"taxRate"`
	DiscountRate float64 `json:"discountRate"`

	Notes string `json:"notes"`
	Terms string `json:"terms"`
}

// NewInvoice 新しい下書きを作成。明細は必ず1件以上
func NewInvoice(prefix, number string, issueDate time.Time, terms PaymentTerms, firstItemID string) *Invoice {
	return &Invoice{
		Prefix:       prefix,
		Number:       number,
		IssueDate:    TruncateDate(issueDate),
		PaymentTerms: terms,
		Status:       StatusDraft,
		Items:        []LineItem{NewLineItem(firstItemID)},
		TaxRate:      0,
		DiscountRate: 0,
	}
}

// DisplayNumber "INV-0001" 形式の請求書番号
func (inv *Invoice) DisplayNumber() string {
	if inv.Prefix == "" {
		return inv.Number
	}
	return inv.Prefix + "-" + inv.Number
}

// ItemIndex IDに一致する明細の位置。見つからない場合は-1
func (inv *Invoice) ItemIndex(id string) int {
	for i := range inv.Items {
		if inv.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone 明細を含めたディープコピー
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	c.Items = make([]LineItem, len(inv.Items))
	copy(c.Items, inv.Items)
	return &c
}

// TermsLabel 表示用の支払条件。Customの場合は自由記述を優先
func (inv *Invoice) TermsLabel() string {
	if inv.PaymentTerms == Custom && inv.CustomPaymentTerms != "" {
		return inv.CustomPaymentTerms
	}
	return string(inv.PaymentTerms)
}

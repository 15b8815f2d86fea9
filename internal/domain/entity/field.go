package entity

import (
	"fmt"
	"sort"
)

// Field 請求書フォームの項目キー。エラーマップのキーとしても使う
type Field string

const (
	FieldIssuerName         Field = "issuerName"
	FieldIssuerAddress      Field = "issuerAddress"
	FieldIssuerPhone        Field = "issuerPhone"
	FieldIssuerEmail        Field = "issuerEmail"
	FieldIssuerLogo         Field = "issuerLogo"
	FieldRecipientName      Field = "recipientName"
	FieldRecipientAddress   Field = "recipientAddress"
	FieldRecipientPhone     Field = "recipientPhone"
	FieldRecipientEmail     Field = "recipientEmail"
	FieldInvoicePrefix      Field = "invoicePrefix"
	FieldInvoiceNumber      Field = "invoiceNumber"
	FieldIssueDate          Field = "issueDate"
	FieldDueDate            Field = "dueDate"
	FieldPaymentTerms       Field = "paymentTerms"
	FieldCustomPaymentTerms Field = "customPaymentTerms"
	FieldStatus             Field = "status"
	FieldTaxRate            Field = "taxRate"
	FieldDiscountRate       Field = "discountRate"
	FieldNotes              Field = "notes"
	FieldTerms              Field = "terms"
)

// ItemField 明細の項目キー
type ItemField string

const (
	ItemDescription ItemField = "description"
	ItemQuantity    ItemField = "quantity"
	ItemUnitPrice   ItemField = "unitPrice"
)

// errorSuffix エラーキーに使う短縮名
func (f ItemField) errorSuffix() string {
	switch f {
	case ItemDescription:
		return "desc"
	case ItemQuantity:
		return "qty"
	case ItemUnitPrice:
		return "price"
	}
	return string(f)
}

// ItemErrorKey 明細エラーのキー（例: item_0_desc）
func ItemErrorKey(index int, field ItemField) string {
	return fmt.Sprintf("item_%d_%s", index, field.errorSuffix())
}

// FormErrors 項目キー→メッセージのマップ。空なら有効
type FormErrors map[string]string

// Has キーにエラーがあるか
func (e FormErrors) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// Keys ソート済みのキー一覧
func (e FormErrors) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone マップのコピー
func (e FormErrors) Clone() FormErrors {
	c := make(FormErrors, len(e))
	for k, v := range e {
		c[k] = v
	}
	return c
}

package service

import (
	"strings"

	"proinvoice/internal/domain/entity"
)

// ValidateOption 検証ルールの追加オプション
type ValidateOption func(*validateOptions)

type validateOptions struct {
	strictContacts bool
}

// WithStrictContacts 入力済みの電話番号にも形式チェックを行う
func WithStrictContacts() ValidateOption {
	return func(o *validateOptions) {
		o.strictContacts = true
	}
}

// ValidateInvoice 請求書を検証してエラーマップを返す。
// ルールは短絡せず全て評価し、マップが空なら有効
func ValidateInvoice(inv *entity.Invoice, opts ...ValidateOption) (entity.FormErrors, bool) {
	var o validateOptions
	for _, opt := range opts {
		opt(&o)
	}

	errs := entity.FormErrors{}

	// 請求元
	if isBlank(inv.Issuer.Name) {
		errs[string(entity.FieldIssuerName)] = "Company Name is required"
	}
	validateEmailField(errs, entity.FieldIssuerEmail, inv.Issuer.Email)
	if isBlank(inv.Issuer.Address) {
		errs[string(entity.FieldIssuerAddress)] = "Address is required"
	}

	// 請求先
	if isBlank(inv.Recipient.Name) {
		errs[string(entity.FieldRecipientName)] = "Client Name is required"
	}
	validateEmailField(errs, entity.FieldRecipientEmail, inv.Recipient.Email)

	if o.strictContacts {
		validatePhoneField(errs, entity.FieldIssuerPhone, inv.Issuer.Phone)
		validatePhoneField(errs, entity.FieldRecipientPhone, inv.Recipient.Phone)
	}

	// 日付
	if inv.IssueDate.IsZero() {
		errs[string(entity.FieldIssueDate)] = "Issue date is required"
	}
	if inv.DueDate.IsZero() {
		errs[string(entity.FieldDueDate)] = "Due date is required"
	} else if !inv.IssueDate.IsZero() && inv.DueDate.Before(inv.IssueDate) {
		errs[string(entity.FieldDueDate)] = "Due date cannot be before issue date"
	}

	// 明細（インデックス単位のキー）
	for i, item := range inv.Items {
		if isBlank(item.Description) {
			errs[entity.ItemErrorKey(i, entity.ItemDescription)] = "Description required"
		}
		if item.Quantity <= 0 {
			errs[entity.ItemErrorKey(i, entity.ItemQuantity)] = "Invalid quantity"
		}
		if item.UnitPrice < 0 {
			errs[entity.ItemErrorKey(i, entity.ItemUnitPrice)] = "Invalid price"
		}
	}

	return errs, len(errs) == 0
}

func validateEmailField(errs entity.FormErrors, field entity.Field, value string) {
	if isBlank(value) {
		errs[string(field)] = "Email is required"
	} else if !ValidateEmail(value) {
		errs[string(field)] = "Invalid email format"
	}
}

func validatePhoneField(errs entity.FormErrors, field entity.Field, value string) {
	if !isBlank(value) && !ValidatePhone(value) {
		errs[string(field)] = "Invalid phone number"
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

package service

import (
	"github.com/shopspring/decimal"

	"proinvoice/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// Totals 小計・税額・値引額・合計
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Subtotal 明細の数量×単価の合計
func Subtotal(items []entity.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount())
	}
	return sum
}

// Total 小計 + 小計×税率 - 小計×値引率。税と値引はどちらも小計に対して独立に適用する
func Total(items []entity.LineItem, taxRate, discountRate float64) decimal.Decimal {
	return ComputeTotals(items, taxRate, discountRate).Total
}

// ComputeTotals 編集画面とプレビューで共通の集計
func ComputeTotals(items []entity.LineItem, taxRate, discountRate float64) Totals {
	subtotal := Subtotal(items)
	tax := percentOf(subtotal, taxRate)
	discount := percentOf(subtotal, discountRate)

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal.Add(tax).Sub(discount),
	}
}

// InvoiceTotals 請求書ドキュメントの集計
func InvoiceTotals(inv *entity.Invoice) Totals {
	return ComputeTotals(inv.Items, inv.TaxRate, inv.DiscountRate)
}

func percentOf(amount decimal.Decimal, rate float64) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(rate)).Div(hundred)
}

package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FormatCurrency 金額を米ドル表記（$1,234.50 / -$42.00）で返す
func FormatCurrency(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	return FormatMoney(decimal.NewFromFloat(amount))
}

// FormatMoney decimal版。小数2桁に四捨五入してから整形する。
// float64 を経由しないので大きな金額でも桁が落ちない
func FormatMoney(amount decimal.Decimal) string {
	rounded := amount.Round(2)

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}

	whole, cents, _ := strings.Cut(rounded.StringFixed(2), ".")
	return sign + "$" + groupThousands(whole) + "." + cents
}

// groupThousands 整数部の3桁区切り。uint64 に収まらない桁数は自前で区切る
func groupThousands(whole string) string {
	if n, err := strconv.ParseUint(whole, 10, 64); err == nil {
		p := message.NewPrinter(language.AmericanEnglish)
		return p.Sprintf("%v", number.Decimal(n))
	}

	head := len(whole) % 3
	if head == 0 {
		head = 3
	}
	var b strings.Builder
	b.WriteString(whole[:head])
	for i := head; i < len(whole); i += 3 {
		b.WriteByte(',')
		b.WriteString(whole[i : i+3])
	}
	return b.String()
}

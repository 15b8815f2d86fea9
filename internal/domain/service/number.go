package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidInvoiceNumber 請求書番号が数字ではない
var ErrInvalidInvoiceNumber = errors.New("invoice number must be a non-negative integer")

// PadInvoiceNumber 4桁にゼロ埋め。5桁以上は切り詰めない
func PadInvoiceNumber(n int) string {
	return fmt.Sprintf("%04d", n)
}

// ParseInvoiceNumber "0009" のような番号を整数に変換
func ParseInvoiceNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInvoiceNumber, s)
	}
	return n, nil
}

// NextInvoiceNumber 次の請求書番号（"0009" → "0010"）
func NextInvoiceNumber(current string) (string, error) {
	n, err := ParseInvoiceNumber(current)
	if err != nil {
		return "", err
	}
	if n == math.MaxInt {
		return "", fmt.Errorf("%w: %q has no successor", ErrInvalidInvoiceNumber, current)
	}
	return PadInvoiceNumber(n + 1), nil
}

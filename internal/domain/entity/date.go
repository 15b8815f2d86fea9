package entity

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout 日付の入出力フォーマット（YYYY-MM-DD）
const DateLayout = "2006-01-02"

// TruncateDate 時刻成分を落としてUTCの0時に揃える。ゼロ値はそのまま
func TruncateDate(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate "YYYY-MM-DD" をパース。空文字は未設定（ゼロ値）
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate 日付を "YYYY-MM-DD" で返す。未設定は空文字
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

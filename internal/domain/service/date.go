package service

import (
	"time"

	"proinvoice/internal/domain/entity"
)

// CalculateDueDate 発行日と支払条件から支払期日を求める。
// 発行日が未設定、またはCustomの場合は自動計算しない（false）
func CalculateDueDate(issueDate time.Time, terms entity.PaymentTerms) (time.Time, bool) {
	if issueDate.IsZero() {
		return time.Time{}, false
	}

	days, ok := terms.OffsetDays()
	if !ok {
		return time.Time{}, false
	}

	// 暦日での加算なので月末・年末の繰り上がりも正しく扱われる
	return entity.TruncateDate(issueDate).AddDate(0, 0, days), true
}

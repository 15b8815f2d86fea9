package entity

import (
	"encoding/json"
	"fmt"
)

// invoiceAlias MarshalJSONの再帰を避けるための別名
type invoiceAlias Invoice

type invoiceJSON struct {
	*invoiceAlias
	IssueDate string `json:"issueDate"`
	DueDate   string `json:"dueDate"`
}

// MarshalJSON 日付を "YYYY-MM-DD"（未設定は空文字）で出力
func (inv Invoice) MarshalJSON() ([]byte, error) {
	alias := invoiceAlias(inv)
	return json.Marshal(invoiceJSON{
		invoiceAlias: &alias,
		IssueDate:    FormatDate(inv.IssueDate),
		DueDate:      FormatDate(inv.DueDate),
	})
}

// UnmarshalJSON "YYYY-MM-DD" 形式の日付を読み込む
func (inv *Invoice) UnmarshalJSON(data []byte) error {
	aux := invoiceJSON{invoiceAlias: (*invoiceAlias)(inv)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	issue, err := ParseDate(aux.IssueDate)
	if err != nil {
		return fmt.Errorf("issueDate: %w", err)
	}
	due, err := ParseDate(aux.DueDate)
	if err != nil {
		return fmt.Errorf("dueDate: %w", err)
	}
	inv.IssueDate = issue
	inv.DueDate = due
	return nil
}

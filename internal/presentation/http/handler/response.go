package handler

import (
	"encoding/json"
	"net/http"

	"proinvoice/internal/domain/service"
	"proinvoice/internal/presentation/http/middleware"
)

// TotalsResponse 表示用に整形した集計
type TotalsResponse struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
}

func newTotalsResponse(t service.Totals) TotalsResponse {
	return TotalsResponse{
		Subtotal: service.FormatMoney(t.Subtotal),
		Tax:      service.FormatMoney(t.Tax),
		Discount: service.FormatMoney(t.Discount),
		Total:    service.FormatMoney(t.Total),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func sendError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, middleware.ErrorResponse{
		Success: false,
		Error:   message,
	})
}

package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"proinvoice/internal/presentation/di"
	"proinvoice/internal/presentation/http/middleware"
)

// NewRouter 新しいルーターを作成
func NewRouter(container *di.Container) http.Handler {
	r := mux.NewRouter()

	r.Handle("/health", container.HealthHandler()).Methods(http.MethodGet)
	r.Handle("/metrics", container.Metrics().Handler()).Methods(http.MethodGet)

	// 編集セッション
	session := container.SessionHandler()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/session", session.HandleGet).Methods(http.MethodGet)
	api.HandleFunc("/session/fields", session.HandleUpdateField).Methods(http.MethodPatch)
	api.HandleFunc("/session/items", session.HandleAddItem).Methods(http.MethodPost)
	api.HandleFunc("/session/items/{id}", session.HandleUpdateItem).Methods(http.MethodPatch)
	api.HandleFunc("/session/items/{id}", session.HandleRemoveItem).Methods(http.MethodDelete)
	api.HandleFunc("/session/logo", session.HandleUploadLogo).Methods(http.MethodPost)
	api.HandleFunc("/session/validate", session.HandleValidate).Methods(http.MethodPost)
	api.HandleFunc("/session/submit", session.HandleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/session/reset", session.HandleReset).Methods(http.MethodPost)

	// 請求書一覧（summary は {id} より先に登録する）
	list := container.ListHandler()
	api.HandleFunc("/invoices", list.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/invoices/summary", list.HandleSummary).Methods(http.MethodGet)
	api.HandleFunc("/invoices/{id}", list.HandleGet).Methods(http.MethodGet)

	r.Handle("/preview", container.PreviewHandler()).Methods(http.MethodGet)

	// ミドルウェアの適用
	logger := container.Logger()
	var h http.Handler = r
	h = middleware.Recovery(logger)(h)
	h = middleware.Logger(logger)(h)
	h = middleware.CORS(h)

	return h
}

package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 請求書編集のメトリクス。nilでも安全に呼べる
type Metrics struct {
	registry         *prometheus.Registry
	submissions      *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
	autosaves        *prometheus.CounterVec
}

// New 専用レジストリにメトリクスを登録して返す
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	submissions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proinvoice_submissions_total",
			Help: "Invoice submissions by result.",
		},
		[]string{"result"}, // success | invalid | failed | rejected
	)

	validationErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proinvoice_validation_errors_total",
			Help: "Validation errors by form field.",
		},
		[]string{"field"},
	)

	autosaves := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proinvoice_autosaves_total",
			Help: "Draft auto-saves by result.",
		},
		[]string{"result"}, // success | failed
	)

	registry.MustRegister(submissions, validationErrors, autosaves)

	return &Metrics{
		registry:         registry,
		submissions:      submissions,
		validationErrors: validationErrors,
		autosaves:        autosaves,
	}
}

// IncSubmission 送信結果をカウント
func (m *Metrics) IncSubmission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

// ObserveValidationErrors エラーマップのキーごとにカウント
func (m *Metrics) ObserveValidationErrors(errs map[string]string) {
	if m == nil {
		return
	}
	for key := range errs {
		m.validationErrors.WithLabelValues(FieldLabel(key)).Inc()
	}
}

// IncAutosave 自動保存の結果をカウント
func (m *Metrics) IncAutosave(result string) {
	if m == nil {
		return
	}
	m.autosaves.WithLabelValues(result).Inc()
}

// Handler /metrics 用のハンドラ
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry テスト用
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// FieldLabel 明細のキーはインデックスを畳んでラベル数を抑える（item_3_qty → item_qty）
func FieldLabel(key string) string {
	if !strings.HasPrefix(key, "item_") {
		return key
	}
	if i := strings.LastIndex(key, "_"); i > len("item_")-1 {
		return "item" + key[i:]
	}
	return key
}

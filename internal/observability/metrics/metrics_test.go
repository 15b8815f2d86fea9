package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFieldLabel(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{key: "issuerEmail", want: "issuerEmail"},
		{key: "item_0_desc", want: "item_desc"},
		{key: "item_12_qty", want: "item_qty"},
		{key: "item_3_price", want: "item_price"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := FieldLabel(tt.key); got != tt.want {
				t.Errorf("FieldLabel(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.IncSubmission("success")
	m.IncSubmission("success")
	m.IncSubmission("invalid")
	m.ObserveValidationErrors(map[string]string{"item_0_qty": "x", "item_1_qty": "y", "issuerName": "z"})
	m.IncAutosave("failed")

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{name: "submissions success", got: testutil.ToFloat64(m.submissions.WithLabelValues("success")), want: 2},
		{name: "submissions invalid", got: testutil.ToFloat64(m.submissions.WithLabelValues("invalid")), want: 1},
		{name: "validation item_qty", got: testutil.ToFloat64(m.validationErrors.WithLabelValues("item_qty")), want: 2},
		{name: "validation issuerName", got: testutil.ToFloat64(m.validationErrors.WithLabelValues("issuerName")), want: 1},
		{name: "autosaves failed", got: testutil.ToFloat64(m.autosaves.WithLabelValues("failed")), want: 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("nil Metrics panicked: %v", r)
		}
	}()
	m.IncSubmission("success")
	m.ObserveValidationErrors(map[string]string{"a": "b"})
	m.IncAutosave("success")

	if m.Registry() != nil {
		t.Error("Registry() on nil Metrics should be nil")
	}
	if m.Handler() == nil {
		t.Error("Handler() on nil Metrics should not be nil")
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncSubmission("success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !strings.Contains(string(body), `proinvoice_submissions_total{result="success"} 1`) {
		t.Errorf("metrics output missing submissions counter:\n%s", body)
	}
}

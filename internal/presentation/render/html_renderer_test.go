package render

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"proinvoice/internal/domain/entity"
)

func sampleInvoice() *entity.Invoice {
	inv := entity.NewInvoice("INV", "0042", time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), entity.Net30, "a")
	inv.DueDate = time.Date(2023, 2, 14, 0, 0, 0, 0, time.UTC)
	inv.Issuer = entity.Party{Name: "Acme LLC", Address: "1 Main St", Email: "billing@acme.com"}
	inv.Recipient = entity.Party{Name: "Globex Inc", Address: "2 Side St", Phone: "555-123-4567"}
	inv.Items[0] = entity.LineItem{ID: "a", Description: "Consulting", Quantity: 2, UnitPrice: 50}
	inv.Items = append(inv.Items, entity.LineItem{ID: "b", Quantity: 1.5, UnitPrice: 1000})
	return inv
}

func TestHTMLRenderer_RenderHTML(t *testing.T) {
	r := NewHTMLRenderer()

	tests := []struct {
		name    string
		mutate  func(inv *entity.Invoice)
		want    []string
		notWant []string
	}{
		{
			name: "正常系: 基本項目と合計",
			mutate: func(inv *entity.Invoice) {
				inv.TaxRate = 10
				inv.DiscountRate = 5
				inv.Notes = "Thanks!"
			},
			want: []string{
				"INV-0042",
				"2023-01-15",
				"2023-02-14",
				"Net 30",
				"Acme LLC",
				"Globex Inc",
				"555-123-4567",
				"Consulting",
				"Item description",
				"$1,500.00",
				"Subtotal</span><span>$1,600.00",
				"Tax (10%)</span><span>$160.00",
				"Discount (5%)</span><span>-$80.00",
				"Total</span><span>$1,680.00",
				"Thanks!",
				"No specific terms.",
				"Thank you for your business!",
				"No Logo",
			},
			notWant: []string{"No notes or terms included."},
		},
		{
			name:    "正常系: 税・値引が0なら行を出さない",
			mutate:  func(inv *entity.Invoice) {},
			want:    []string{"No notes or terms included."},
			notWant: []string{"Tax (", "Discount ("},
		},
		{
			name: "正常系: 未入力はプレースホルダー",
			mutate: func(inv *entity.Invoice) {
				*inv = *entity.NewInvoice("INV", "0001", time.Time{}, entity.Custom, "a")
				inv.CustomPaymentTerms = "50% upfront"
			},
			want: []string{"Your Company Name", "Client Name", "50% upfront"},
		},
		{
			name:   "境界値: 接頭辞なしの番号にハイフンを付けない",
			mutate: func(inv *entity.Invoice) { inv.Prefix = "" },
			want: []string{
				"<title>Invoice 0042</title>",
				"Invoice #:</span><span>0042</span>",
			},
			notWant: []string{"-0042"},
		},
		{
			name:    "正常系: ロゴのdata URL",
			mutate:  func(inv *entity.Invoice) { inv.IssuerLogo = "data:image/png;base64,iVBORw0KGgo=" },
			want:    []string{`src="data:image/png;base64,iVBORw0KGgo="`},
			notWant: []string{"No Logo"},
		},
		{
			name:    "異常系: 画像以外のURLは表示しない",
			mutate:  func(inv *entity.Invoice) { inv.IssuerLogo = "javascript:alert(1)" },
			want:    []string{"No Logo"},
			notWant: []string{"javascript:"},
		},
		{
			name:    "正常系: HTMLはエスケープされる",
			mutate:  func(inv *entity.Invoice) { inv.Issuer.Name = "<script>x</script>" },
			notWant: []string{"<script>x</script>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := sampleInvoice()
			tt.mutate(inv)

			html, err := r.RenderHTML(inv)
			if err != nil {
				t.Fatalf("RenderHTML() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(html, want) {
					t.Errorf("RenderHTML() missing %q", want)
				}
			}
			for _, bad := range tt.notWant {
				if strings.Contains(html, bad) {
					t.Errorf("RenderHTML() should not contain %q", bad)
				}
			}
		})
	}

	t.Run("正常系: ドキュメントを変更しない", func(t *testing.T) {
		inv := sampleInvoice()
		before := inv.Clone()

		if _, err := r.RenderHTML(inv); err != nil {
			t.Fatalf("RenderHTML() error = %v", err)
		}
		if !reflect.DeepEqual(before, inv) {
			t.Errorf("RenderHTML() mutated invoice: %+v", inv)
		}
	})

	t.Run("異常系: nil", func(t *testing.T) {
		if _, err := r.RenderHTML(nil); err == nil {
			t.Error("RenderHTML(nil) should fail")
		}
	})
}

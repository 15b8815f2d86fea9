package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"proinvoice/internal/domain/entity"
	"proinvoice/internal/domain/service"
)

const invoiceHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Invoice {{.Number}}</title>
  <style>
    * { box-sizing: border-box; }
    body { margin: 0; padding: 32px; font-family: "Helvetica Neue", Arial, sans-serif; color: #1f2937; background: #ffffff; }
    .invoice { max-width: 820px; margin: 0 auto; }
    .header { display: flex; justify-content: space-between; align-items: flex-start; margin-bottom: 24px; }
    .logo img { max-height: 64px; }
    .logo .placeholder { width: 64px; height: 64px; display: flex; align-items: center; justify-content: center; background: #f3f4f6; color: #9ca3af; font-size: 11px; }
    .address { white-space: pre-line; color: #4b5563; font-size: 14px; }
    .meta { text-align: right; font-size: 14px; }
    .meta h2 { margin: 0 0 8px; letter-spacing: 0.1em; color: #d1d5db; }
    .label { color: #6b7280; margin-right: 8px; }
    table { width: 100%; border-collapse: collapse; font-size: 14px; margin-top: 24px; }
    th, td { padding: 10px; border-bottom: 1px solid #e5e7eb; text-align: left; }
    th { text-transform: uppercase; font-size: 11px; letter-spacing: 0.04em; color: #6b7280; }
    .num { text-align: right; }
    .totals { margin: 16px 0 0 auto; width: 280px; font-size: 14px; }
    .totals div { display: flex; justify-content: space-between; padding: 4px 0; }
    .totals .discount { color: #16a34a; }
    .totals .grand { border-top: 2px solid #111827; font-weight: bold; font-size: 18px; margin-top: 8px; padding-top: 8px; }
    .footer { border-top: 1px solid #e5e7eb; margin-top: 32px; padding-top: 16px; font-size: 13px; color: #4b5563; }
    .thanks { text-align: center; margin-top: 32px; color: #9ca3af; }
  </style>
</head>
<body>
  <div class="invoice">
    <div class="header">
      <div>
        <div class="logo">
          {{if .Logo}}<img src="{{.Logo}}" alt="Company Logo" />{{else}}<div class="placeholder">No Logo</div>{{end}}
        </div>
        <h1>{{.CompanyName}}</h1>
        <div class="address">{{.CompanyAddress}}</div>
        {{if .Issuer.Phone}}<div>{{.Issuer.Phone}}</div>{{end}}
        {{if .Issuer.Email}}<div>{{.Issuer.Email}}</div>{{end}}
      </div>
      <div class="meta">
        <h2>INVOICE</h2>
        <div><span class="label">Invoice #:</span><span>{{.Number}}</span></div>
        <div><span class="label">Date:</span><span>{{.IssueDate}}</span></div>
        <div><span class="label">Due Date:</span><span>{{.DueDate}}</span></div>
        {{if .Terms}}<div><span class="label">Terms:</span><span>{{.Terms}}</span></div>{{end}}
      </div>
    </div>

    <hr />

    <div class="section">
      <h3>Bill To</h3>
      <div><strong>{{.ClientName}}</strong></div>
      <div class="address">{{.ClientAddress}}</div>
      {{if .Recipient.Phone}}<div>{{.Recipient.Phone}}</div>{{end}}
      {{if .Recipient.Email}}<div>{{.Recipient.Email}}</div>{{end}}
    </div>

    <table>
      <thead>
        <tr>
          <th>Description</th>
          <th class="num">Qty</th>
          <th class="num">Unit Price</th>
          <th class="num">Amount</th>
        </tr>
      </thead>
      <tbody>
        {{range .Items}}
        <tr>
          <td>{{.Description}}</td>
          <td class="num">{{.Quantity}}</td>
          <td class="num">{{.UnitPrice}}</td>
          <td class="num">{{.Amount}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <div class="totals">
      <div><span>Subtotal</span><span>{{.Subtotal}}</span></div>
      {{if .TaxRate}}<div><span>Tax ({{.TaxRate}}%)</span><span>{{.Tax}}</span></div>{{end}}
      {{if .DiscountRate}}<div class="discount"><span>Discount ({{.DiscountRate}}%)</span><span>-{{.Discount}}</span></div>{{end}}
      <div class="grand"><span>Total</span><span>{{.Total}}</span></div>
    </div>

    <div class="footer">
      {{if .HasFooter}}
      <div><h4>Notes</h4><p>{{.Notes}}</p></div>
      <div><h4>Terms &amp; Conditions</h4><p>{{.TermsText}}</p></div>
      {{else}}
      <div>No notes or terms included.</div>
      {{end}}
    </div>

    <p class="thanks">Thank you for your business!</p>
  </div>
</body>
</html>
`

// HTMLRenderer 請求書プレビュー（印刷用HTML）のレンダラー
type HTMLRenderer struct {
	tpl *template.Template
}

// NewHTMLRenderer 新しいHTMLRendererを作成
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		tpl: template.Must(template.New("invoice").Parse(invoiceHTMLTemplate)),
	}
}

type itemView struct {
	Description string
	Quantity    string
	UnitPrice   string
	Amount      string
}

type invoiceView struct {
	Logo           template.URL
	CompanyName    string
	CompanyAddress string
	Issuer         entity.Party
	Number         string
	IssueDate      string
	DueDate        string
	Terms          string
	ClientName     string
	ClientAddress  string
	Recipient      entity.Party
	Items          []itemView
	Subtotal       string
	TaxRate        string
	Tax            string
	DiscountRate   string
	Discount       string
	Total          string
	HasFooter      bool
	Notes          string
	TermsText      string
}

// RenderHTML ドキュメントと集計からHTMLを生成。ドキュメントは変更しない
func (r *HTMLRenderer) RenderHTML(inv *entity.Invoice) (string, error) {
	if inv == nil {
		return "", fmt.Errorf("failed to render invoice: nil document")
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, newInvoiceView(inv)); err != nil {
		return "", fmt.Errorf("failed to render invoice: %w", err)
	}
	return buf.String(), nil
}

func newInvoiceView(inv *entity.Invoice) invoiceView {
	totals := service.InvoiceTotals(inv)

	v := invoiceView{
		Logo:           logoURL(inv.IssuerLogo),
		CompanyName:    orDefault(inv.Issuer.Name, "Your Company Name"),
		CompanyAddress: orDefault(inv.Issuer.Address, "Address Line 1\nCity, State, Zip"),
		Issuer:         inv.Issuer,
		Number:         inv.DisplayNumber(),
		IssueDate:      entity.FormatDate(inv.IssueDate),
		DueDate:        entity.FormatDate(inv.DueDate),
		Terms:          inv.TermsLabel(),
		ClientName:     orDefault(inv.Recipient.Name, "Client Name"),
		ClientAddress:  orDefault(inv.Recipient.Address, "Client Address\nCity, State, Zip"),
		Recipient:      inv.Recipient,
		Subtotal:       service.FormatMoney(totals.Subtotal),
		Total:          service.FormatMoney(totals.Total),
		HasFooter:      inv.Notes != "" || inv.Terms != "",
		Notes:          orDefault(inv.Notes, "No additional notes."),
		TermsText:      orDefault(inv.Terms, "No specific terms."),
	}

	if inv.TaxRate > 0 {
		v.TaxRate = formatNumber(inv.TaxRate)
		v.Tax = service.FormatMoney(totals.Tax)
	}
	if inv.DiscountRate > 0 {
		v.DiscountRate = formatNumber(inv.DiscountRate)
		v.Discount = service.FormatMoney(totals.Discount)
	}

	v.Items = make([]itemView, len(inv.Items))
	for i, item := range inv.Items {
		v.Items[i] = itemView{
			Description: orDefault(item.Description, "Item description"),
			Quantity:    formatNumber(item.Quantity),
			UnitPrice:   service.FormatCurrency(item.UnitPrice),
			Amount:      service.FormatMoney(item.Amount()),
		}
	}
	return v
}

// logoURL 画像の data URL だけを信頼済みURLとして通す
func logoURL(s string) template.URL {
	if strings.HasPrefix(s, "data:image/") {
		return template.URL(s)
	}
	return ""
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

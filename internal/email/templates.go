package email

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateOrderShipped      = "order_shipped"
	TemplateOrderDelivered    = "order_delivered"
	TemplateReturnUpdate      = "return_update"
)

// OrderInfo feeds the order templates. Amounts are preformatted.
type OrderInfo struct {
	OrderNumber     string
	CustomerName    string
	CustomerEmail   string
	ShopName        string
	ShopURL         string
	ShippingAddress string
	TrackingNumber  string
	TrackingURL     string
	TrackingCarrier string
	OrderDate       string
	Items           []OrderItem
	Subtotal        string
	Shipping        string
	Total           string
}

type OrderItem struct {
	Name       string
	SKU        string
	Quantity   int
	UnitPrice  string
	TotalPrice string
}

// ReturnInfo feeds the return status update template.
type ReturnInfo struct {
	ReturnID      string
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	ShopName      string
	ShopURL       string
	Status        string
	StatusLabel   string
	AdminNotes    string
	RefundAmount  string
}

type emailTemplate struct {
	subject string
	html    string
	text    string
}

var templates = map[string]emailTemplate{
	TemplateOrderConfirmation: {
		subject: "Order Confirmed - {{.OrderNumber}} - {{.ShopName}}",
		html:    orderConfirmationHTML,
		text:    orderConfirmationText,
	},
	TemplateOrderShipped: {
		subject: "Shipped - {{.OrderNumber}} - {{.ShopName}}",
		html:    orderShippedHTML,
		text:    orderShippedText,
	},
	TemplateOrderDelivered: {
		subject: "Delivered - {{.OrderNumber}} - {{.ShopName}}",
		html:    orderDeliveredHTML,
		text:    orderDeliveredText,
	},
	TemplateReturnUpdate: {
		subject: "Return Update - {{.OrderNumber}} - {{.StatusLabel}}",
		html:    returnUpdateHTML,
		text:    returnUpdateText,
	},
}

// Renderer renders the built-in templates. HTML bodies are escaped with
// html/template; subjects and text bodies use text/template.
type Renderer struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

func NewRenderer() (*Renderer, error) {
	text := texttemplate.New("email")
	html := htmltemplate.New("email")
	if _, err := html.New("layout").Parse(htmlLayout); err != nil {
		return nil, fmt.Errorf("failed to parse HTML layout: %w", err)
	}

	for name, t := range templates {
		if _, err := text.New(name + "_subject").Parse(t.subject); err != nil {
			return nil, fmt.Errorf("failed to parse subject template %s: %w", name, err)
		}
		if _, err := text.New(name + "_text").Parse(t.text); err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", name, err)
		}
		if _, err := html.New(name + "_html").Parse(t.html); err != nil {
			return nil, fmt.Errorf("failed to parse HTML template %s: %w", name, err)
		}
	}

	return &Renderer{text: text, html: html}, nil
}

// Render renders the named template for recipient to.
func (r *Renderer) Render(_ context.Context, name, to string, data any) (*Email, error) {
	if _, ok := templates[name]; !ok {
		return nil, fmt.Errorf("unknown email template %q", name)
	}

	var subject, text, html bytes.Buffer
	if err := r.text.ExecuteTemplate(&subject, name+"_subject", data); err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := r.text.ExecuteTemplate(&text, name+"_text", data); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}
	if err := r.html.ExecuteTemplate(&html, name+"_html", data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	return &Email{
		To:      to,
		Subject: subject.String(),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

func (r *Renderer) send(ctx context.Context, p Provider, name, to string, data any) error {
	if p == nil {
		return nil
	}
	email, err := r.Render(ctx, name, to, data)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	return p.SendEmail(ctx, email)
}

func (r *Renderer) SendOrderConfirmation(ctx context.Context, p Provider, info *OrderInfo) error {
	return r.send(ctx, p, TemplateOrderConfirmation, info.CustomerEmail, info)
}

func (r *Renderer) SendOrderShipped(ctx context.Context, p Provider, info *OrderInfo) error {
	return r.send(ctx, p, TemplateOrderShipped, info.CustomerEmail, info)
}

func (r *Renderer) SendOrderDelivered(ctx context.Context, p Provider, info *OrderInfo) error {
	return r.send(ctx, p, TemplateOrderDelivered, info.CustomerEmail, info)
}

func (r *Renderer) SendReturnUpdate(ctx context.Context, p Provider, info *ReturnInfo) error {
	return r.send(ctx, p, TemplateReturnUpdate, info.CustomerEmail, info)
}

// htmlLayout holds the frame shared by every HTML body. Both OrderInfo and
// ReturnInfo carry ShopName and ShopURL.
const htmlLayout = `{{define "layout_open"}}<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.ShopName}}</title>
  <style>
    body { margin: 0; padding: 24px 12px; background: #f4f1ec; font-family: Helvetica, Arial, sans-serif; color: #2b2b2b; line-height: 1.5; }
    .card { max-width: 560px; margin: 0 auto; background: #ffffff; border-radius: 10px; overflow: hidden; }
    .banner { padding: 24px; color: #ffffff; background: #3f6e5a; }
    .banner h1 { margin: 0 0 4px; font-size: 22px; }
    .banner p { margin: 0; }
    .body { padding: 24px; }
    .meta { margin: 0 0 16px; padding: 12px 16px; background: #f4f1ec; border-radius: 6px; }
    table.lines { width: 100%; border-collapse: collapse; }
    table.lines td { padding: 8px 0; border-bottom: 1px solid #ece7df; }
    table.lines td.amount { text-align: right; white-space: nowrap; }
    .sums td { padding: 4px 0; }
    .sums .grand td { font-weight: bold; font-size: 17px; }
    .highlight { padding: 12px 16px; border-left: 4px solid #3f6e5a; background: #f7faf8; margin: 16px 0; }
    .cta { display: inline-block; margin-top: 8px; padding: 10px 20px; background: #3f6e5a; color: #ffffff; text-decoration: none; border-radius: 6px; }
    .address { white-space: pre-line; }
    .footer { padding: 16px 24px; font-size: 13px; color: #7a756d; text-align: center; }
  </style>
</head>
<body>
<div class="card">{{end}}
{{define "layout_close"}}  <div class="footer"><a href="{{.ShopURL}}">{{.ShopName}}</a></div>
</div>
</body>
</html>{{end}}`

const orderConfirmationText = `Hi {{.CustomerName}},

We received your payment for order {{.OrderNumber}} ({{.OrderDate}}).

{{range .Items}}- {{.Name}} x{{.Quantity}} - {{.TotalPrice}}
{{end}}
Subtotal: {{.Subtotal}}
Shipping: {{.Shipping}}
Total:    {{.Total}}

Delivery address:
{{.ShippingAddress}}

You will get a tracking code as soon as the parcel leaves our warehouse.

{{.ShopName}}
{{.ShopURL}}
`

const orderConfirmationHTML = `{{template "layout_open" .}}
  <div class="banner">
    <h1>Payment received</h1>
    <p>Thanks {{.CustomerName}}, your order is being prepared.</p>
  </div>
  <div class="body">
    <p class="meta">Order <strong>{{.OrderNumber}}</strong> &middot; {{.OrderDate}}</p>
    <table class="lines">
      {{range .Items}}<tr>
        <td>{{.Quantity}} &times; {{.Name}}{{if .SKU}}<br><small>{{.SKU}}</small>{{end}}</td>
        <td class="amount">{{.TotalPrice}}</td>
      </tr>{{end}}
    </table>
    <table class="lines sums">
      <tr><td>Subtotal</td><td class="amount">{{.Subtotal}}</td></tr>
      <tr><td>Shipping</td><td class="amount">{{.Shipping}}</td></tr>
      <tr class="grand"><td>Total</td><td class="amount">{{.Total}}</td></tr>
    </table>
    <p><strong>Delivery address</strong></p>
    <p class="address">{{.ShippingAddress}}</p>
    <p>You will get a tracking code as soon as the parcel leaves our warehouse.</p>
  </div>
{{template "layout_close" .}}`

const orderShippedText = `Hi {{.CustomerName}},

Order {{.OrderNumber}} is on its way.
{{if .TrackingNumber}}
Carrier: {{.TrackingCarrier}}
Tracking Number: {{.TrackingNumber}}
{{if .TrackingURL}}Follow your parcel: {{.TrackingURL}}
{{end}}{{end}}
Delivery address:
{{.ShippingAddress}}

{{.ShopName}}
{{.ShopURL}}
`

const orderShippedHTML = `{{template "layout_open" .}}
  <div class="banner">
    <h1>Your parcel is on its way</h1>
    <p>Order {{.OrderNumber}}</p>
  </div>
  <div class="body">
    <p>Hi {{.CustomerName}}, we handed your order to the carrier.</p>
    {{if .TrackingNumber}}<div class="highlight">
      <p>{{.TrackingCarrier}}: <strong>{{.TrackingNumber}}</strong></p>
      {{if .TrackingURL}}<a class="cta" href="{{.TrackingURL}}">Follow your parcel</a>{{end}}
    </div>{{end}}
    <p><strong>Delivery address</strong></p>
    <p class="address">{{.ShippingAddress}}</p>
  </div>
{{template "layout_close" .}}`

const orderDeliveredText = `Hi {{.CustomerName}},

Order {{.OrderNumber}} has been delivered to:
{{.ShippingAddress}}

Something not right? You can request a return from your order page.

{{.ShopName}}
{{.ShopURL}}
`

const orderDeliveredHTML = `{{template "layout_open" .}}
  <div class="banner">
    <h1>Delivered</h1>
    <p>Order {{.OrderNumber}}</p>
  </div>
  <div class="body">
    <p>Hi {{.CustomerName}}, your parcel has arrived at:</p>
    <p class="address">{{.ShippingAddress}}</p>
    <p>Something not right? You can request a return from your order page.</p>
  </div>
{{template "layout_close" .}}`

const returnUpdateText = `Hi {{.CustomerName}},

Your return for order {{.OrderNumber}} is now: {{.StatusLabel}}
{{if .AdminNotes}}
Message from customer service:
{{.AdminNotes}}
{{end}}{{if .RefundAmount}}
Refund amount: {{.RefundAmount}}
{{end}}
Reference: {{.ReturnID}}

{{.ShopName}}
{{.ShopURL}}
`

const returnUpdateHTML = `{{template "layout_open" .}}
  <div class="banner">
    <h1>{{.StatusLabel}}</h1>
    <p>Return for order {{.OrderNumber}}</p>
  </div>
  <div class="body">
    <p>Hi {{.CustomerName}},</p>
    {{if .AdminNotes}}<div class="highlight">{{.AdminNotes}}</div>{{end}}
    {{if .RefundAmount}}<p>Refund amount: <strong>{{.RefundAmount}}</strong></p>{{end}}
    <p><small>Reference {{.ReturnID}}</small></p>
  </div>
{{template "layout_close" .}}`

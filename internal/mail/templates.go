package mail

import (
	"bytes"
	"fmt"
	"text/template"
)

type OrderLine struct {
	Title    string
	Quantity int
	Cents    int
}

type OrderConfirmationData struct {
	OrderID    string
	Lines      []OrderLine
	TotalCents int
}

type PaymentReceiptData struct {
	OrderID        string
	AmountCents    int
	TransactionRef string
}

var tmplFuncs = template.FuncMap{"cents": formatCents}

var orderConfirmationTmpl = template.Must(template.New("order_confirmation").Funcs(tmplFuncs).Parse(
	`Thanks for your order {{.OrderID}}.

{{range .Lines}}  {{.Quantity}} x {{.Title}} ({{cents .Cents}})
{{end}}
Total: {{cents .TotalCents}}

We'll email you again once payment is confirmed.
`))

var paymentReceiptTmpl = template.Must(template.New("payment_receipt").Funcs(tmplFuncs).Parse(
	`Payment received for order {{.OrderID}}.

Amount: {{cents .AmountCents}}
Reference: {{.TransactionRef}}

Your order is now being processed.
`))

func formatCents(c int) string {
	return fmt.Sprintf("$%d.%02d", c/100, c%100)
}

func OrderConfirmation(to string, data OrderConfirmationData) (Message, error) {
	body, err := render(orderConfirmationTmpl, data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Order %s confirmed", data.OrderID),
		Body:    body,
	}, nil
}

func PaymentReceipt(to string, data PaymentReceiptData) (Message, error) {
	body, err := render(paymentReceiptTmpl, data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Payment received for order %s", data.OrderID),
		Body:    body,
	}, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

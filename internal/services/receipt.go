package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/aaravmahajanofficial/itemstore/internal/models"
	"github.com/aaravmahajanofficial/itemstore/pkg/sendgrid"
)

type ReceiptLine struct {
	OrderID     string
	ProductName string
	Quantity    int
	Amount      int64
}

// ReceiptSender notifies the buyer once a checkout has committed.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, email string, lines []ReceiptLine) error
}

type emailReceiptSender struct {
	emails sendgrid.EmailService
}

func NewEmailReceiptSender(emails sendgrid.EmailService) ReceiptSender {
	return &emailReceiptSender{emails: emails}
}

func (r *emailReceiptSender) SendReceipt(ctx context.Context, email string, lines []ReceiptLine) error {
	var text, markup strings.Builder
	var total int64

	markup.WriteString("<h1>Thank you for your order</h1><ul>")

	for _, line := range lines {
		total += line.Amount
		fmt.Fprintf(&text, "%d x %s  %s  (order %s)\n",
			line.Quantity, line.ProductName, models.FormatPrice(line.Amount), line.OrderID)
		fmt.Fprintf(&markup, "<li>%d &times; %s &mdash; %s</li>",
			line.Quantity, html.EscapeString(line.ProductName), models.FormatPrice(line.Amount))
	}

	fmt.Fprintf(&text, "Total: %s\n", models.FormatPrice(total))
	fmt.Fprintf(&markup, "</ul><p>Total: <strong>%s</strong></p>", models.FormatPrice(total))

	return r.emails.Send(ctx, &sendgrid.Message{
		To:          email,
		Subject:     "Your order receipt",
		Content:     text.String(),
		HTMLContent: markup.String(),
	})
}

package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// Message is a rendered customer email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Brand struct {
	Name    string
	Website string
}

// Notifier turns status changes into customer emails.
type Notifier struct {
	sender    Sender
	brand     Brand
	templates map[domain.Status]*template.Template
}

var templateFiles = map[domain.Status]string{
	domain.StatusShipped:   "templates/order_shipped.html",
	domain.StatusDelivered: "templates/order_delivered.html",
	domain.StatusCancelled: "templates/order_cancelled.html",
}

func NewNotifier(sender Sender, brand Brand) (*Notifier, error) {
	n := &Notifier{
		sender:    sender,
		brand:     brand,
		templates: make(map[domain.Status]*template.Template, len(templateFiles)),
	}
	for st, file := range templateFiles {
		t, err := template.ParseFS(templateFS, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", file, err)
		}
		n.templates[st] = t
	}
	return n, nil
}

type view struct {
	Subject        string
	BrandName      string
	BrandWebsite   string
	CustomerName   string
	OrderID        string
	OrderDate      string
	TotalAmount    int64
	CurrencySymbol string
	CourierName    string
	TrackingID     string
	TrackingURL    string
}

// Handle sends the email for ev, if its status has one. Orders without a
// customer email are skipped.
func (n *Notifier) Handle(ctx context.Context, ev domain.StatusChanged) error {
	if !ev.Status.Notifies() {
		return nil
	}
	t, ok := n.templates[ev.Status]
	if !ok {
		return fmt.Errorf("no email template for status %s", ev.Status)
	}
	if ev.Email == "" {
		logger.Warn("status email skipped, order has no email", "order_id", ev.OrderID)
		return nil
	}

	msg, err := n.render(t, ev)
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email for order %s: %w", ev.Status, ev.OrderID, err)
	}
	logger.Info("status email sent", "order_id", ev.OrderID, "status", ev.Status)
	return nil
}

func (n *Notifier) render(t *template.Template, ev domain.StatusChanged) (Message, error) {
	subject := fmt.Sprintf("Your order #%s has been %s", ev.OrderID, subjectVerb(ev.Status))
	v := view{
		Subject:        subject,
		BrandName:      n.brand.Name,
		BrandWebsite:   n.brand.Website,
		CustomerName:   ev.CustomerName,
		OrderID:        ev.OrderID,
		OrderDate:      ev.OrderDate.Format("02-01-2006"),
		TotalAmount:    ev.Amount,
		CurrencySymbol: currencySymbol(ev.Currency),
		CourierName:    ev.CourierName,
		TrackingID:     ev.TrackingID,
		TrackingURL:    ev.TrackingURL,
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return Message{}, fmt.Errorf("render %s email: %w", ev.Status, err)
	}
	return Message{To: ev.Email, Subject: subject, HTML: buf.String()}, nil
}

func subjectVerb(st domain.Status) string {
	switch st {
	case domain.StatusShipped:
		return "shipped"
	case domain.StatusDelivered:
		return "delivered"
	case domain.StatusCancelled:
		return "cancelled"
	}
	return "updated"
}

func currencySymbol(code string) string {
	if code == "INR" || code == "" {
		return "₹"
	}
	return code + " "
}

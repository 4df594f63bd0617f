package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shoplinehq/shopline-backend/internal/orders"
	"github.com/shoplinehq/shopline-backend/internal/payments"
	"github.com/shoplinehq/shopline-backend/pkg/db/models"
	pkgerrors "github.com/shoplinehq/shopline-backend/pkg/errors"
	"github.com/shoplinehq/shopline-backend/pkg/mail"
	"github.com/shoplinehq/shopline-backend/pkg/outbox"
)

// Service renders and sends the customer-facing emails scheduled through the
// outbox: the order confirmation and the post-payment invoice.
type Service struct {
	orders orders.Service
	mailer mail.Mailer
	from   string
}

// NewService wires the notification handlers to their collaborators.
func NewService(orderSvc orders.Service, mailer mail.Mailer, from string) (*Service, error) {
	if orderSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if from == "" {
		return nil, fmt.Errorf("sender address required")
	}
	return &Service{orders: orderSvc, mailer: mailer, from: from}, nil
}

// Register attaches the handlers to the worker's dispatcher.
func (s *Service) Register(d *outbox.Dispatcher) {
	d.Register(orders.TopicOrderCreated, s.HandleOrderCreated)
	d.Register(payments.TopicPaymentCompleted, s.HandlePaymentCompleted)
}

// HandleOrderCreated sends the order confirmation email.
func (s *Service) HandleOrderCreated(ctx context.Context, payload json.RawMessage) error {
	var p orders.OrderCreatedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode order created payload")
	}
	order, err := s.orders.Get(ctx, p.OrderID)
	if err != nil {
		return err
	}
	msg := mail.Message{
		From:    s.from,
		To:      []string{order.Email},
		Subject: fmt.Sprintf("Order nr. %d", order.ID),
		Body: fmt.Sprintf(
			"Dear %s,\n\nYou have successfully placed an order. Your order ID is %d.\n",
			order.FirstName, order.ID,
		),
	}
	return s.mailer.Send(ctx, msg)
}

// HandlePaymentCompleted sends the invoice email with the invoice attached.
func (s *Service) HandlePaymentCompleted(ctx context.Context, payload json.RawMessage) error {
	var p payments.PaymentCompletedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment completed payload")
	}
	order, err := s.orders.Get(ctx, p.OrderID)
	if err != nil {
		return err
	}
	msg := mail.Message{
		From:    s.from,
		To:      []string{order.Email},
		Subject: fmt.Sprintf("Shopline - Invoice no. %d", order.ID),
		Body:    "Please find attached the invoice for your recent purchase.\n",
		Attachments: []mail.Attachment{
			{
				Filename:    fmt.Sprintf("invoice_order_%d.txt", order.ID),
				ContentType: "text/plain",
				Data:        renderInvoice(order),
			},
		},
	}
	return s.mailer.Send(ctx, msg)
}

// renderInvoice produces a plain-text invoice for the paid order.
func renderInvoice(order *models.Order) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Shopline\nInvoice no. %d\n", order.ID)
	fmt.Fprintf(&b, "Invoice date: %s\n\n", order.CreatedAt.Format("Jan 2, 2006"))
	fmt.Fprintf(&b, "Bill to: %s %s\n%s\n%s, %s\n\n", order.FirstName, order.LastName, order.Address, order.PostalCode, order.City)

	fmt.Fprintf(&b, "%-30s %8s %10s %12s\n", "Product", "Qty", "Price", "Cost")
	for _, item := range order.Items {
		name := fmt.Sprintf("product %d", item.ProductID)
		if item.Product != nil {
			name = item.Product.Name
		}
		fmt.Fprintf(&b, "%-30s %8d %10s %12s\n", name, item.Quantity, item.Price.StringFixed(2), item.Cost().StringFixed(2))
	}

	fmt.Fprintf(&b, "\nSubtotal: %s\n", order.TotalBeforeDiscount().StringFixed(2))
	if order.Discount > 0 {
		fmt.Fprintf(&b, "Discount (%d%%): -%s\n", order.Discount, order.DiscountAmount().StringFixed(2))
	}
	fmt.Fprintf(&b, "Total due: %s\n", order.Total().StringFixed(2))
	return []byte(b.String())
}

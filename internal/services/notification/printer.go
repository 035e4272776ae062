package notification

import (
	"context"
	"fmt"
	"io"
	"strings"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/messaging"
	"bakery-pos/internal/metrics"
	"bakery-pos/internal/models"
)

// TicketSource delivers raw order events
type TicketSource interface {
	Consume(ctx context.Context, handler messaging.MessageHandler) error
}

// Printer prints a kitchen ticket for every paid order on its channels
type Printer struct {
	source     TicketSource
	out        io.Writer
	orderTypes []models.OrderType
	logger     *logger.Logger
}

// NewPrinter creates a printer writing to out. An empty orderTypes prints
// tickets for every channel.
func NewPrinter(source TicketSource, out io.Writer, orderTypes []models.OrderType, log *logger.Logger) *Printer {
	return &Printer{
		source:     source,
		out:        out,
		orderTypes: orderTypes,
		logger:     log,
	}
}

// Serve consumes until ctx is done. It implements suture.Service.
func (p *Printer) Serve(ctx context.Context) error {
	p.logger.Info("printer_started", "Kitchen ticket printer started", "", map[string]interface{}{
		"order_types": p.orderTypes,
	})
	return p.source.Consume(ctx, p.handle)
}

func (p *Printer) String() string {
	return "kitchen-ticket-printer"
}

func (p *Printer) handle(ctx context.Context, body []byte) error {
	requestID := logger.RequestIDFromContext(ctx)

	var msg models.OrderPaidMessage
	if err := messaging.ParseMessage(body, &msg); err != nil {
		return err
	}
	if !msg.OrderType.Valid() {
		return fmt.Errorf("%w: order %d has unknown order type %q", messaging.ErrPoison, msg.OrderID, msg.OrderType)
	}

	if !models.Includes(p.orderTypes, msg.OrderType) {
		p.logger.Debug("ticket_skipped", fmt.Sprintf("Order %d is not for this station", msg.OrderID), requestID, nil)
		return nil
	}

	if _, err := fmt.Fprintln(p.out, FormatTicket(&msg)); err != nil {
		return fmt.Errorf("print ticket: %w", err)
	}
	metrics.TicketsPrinted.Inc()

	p.logger.Info("ticket_printed", fmt.Sprintf("Printed ticket for order %d", msg.OrderID), requestID, map[string]interface{}{
		"order_id":   msg.OrderID,
		"order_type": msg.OrderType,
		"lines":      len(msg.Items),
	})
	return nil
}

// FormatTicket renders msg as a plain text kitchen ticket
func FormatTicket(msg *models.OrderPaidMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== ORDER %d · %s ===\n", msg.OrderID, strings.ToUpper(msg.OrderType.Label()))
	fmt.Fprintf(&b, "[%s] %s\n", msg.PaidAt.Format("2006-01-02 15:04:05"), msg.CustomerName)
	for _, line := range msg.Items {
		fmt.Fprintf(&b, "  %2d × %s\n", line.Quantity, line.Name)
	}
	fmt.Fprintf(&b, "Paid %s by %s", models.PenceFromDecimal(msg.Total), msg.PaymentMethod)
	if msg.StaffName != "" {
		fmt.Fprintf(&b, " · served by %s", msg.StaffName)
	}
	return b.String()
}

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	jobmetrics "github.com/procureflow/procureflow/internal/jobs"
	"github.com/procureflow/procureflow/internal/platform/money"
)

// Message is a plain text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail through an unauthenticated SMTP relay such as Mailpit.
type SMTPMailer struct {
	Addr string
	From string
}

// NewSMTPMailer constructs an SMTPMailer for host:port.
func NewSMTPMailer(host string, port int, from string) *SMTPMailer {
	return &SMTPMailer{Addr: net.JoinHostPort(host, strconv.Itoa(port)), From: from}
}

// Send implements Mailer.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return smtp.SendMail(m.Addr, nil, m.From, []string{msg.To}, []byte(b.String()))
}

// PurchaseOrderNotifier emails requestors about their committed orders.
type PurchaseOrderNotifier struct {
	mailer   Mailer
	currency string
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewPurchaseOrderNotifier constructs the job handler.
func NewPurchaseOrderNotifier(mailer Mailer, currency string, logger *slog.Logger, metrics *jobmetrics.Metrics) *PurchaseOrderNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &PurchaseOrderNotifier{mailer: mailer, currency: currency, logger: logger, metrics: metrics}
}

// Handle processes TaskPurchaseOrderCreated tasks.
func (n *PurchaseOrderNotifier) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := n.metrics.Track(TaskPurchaseOrderCreated)
	var payload PurchaseOrderCreatedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry))
	}
	if payload.RequestorEmail == "" {
		n.logger.Warn("purchase order notification skipped, no recipient", slog.String("number", payload.Number))
		return tracker.End(nil)
	}
	msg, err := n.compose(payload)
	if err != nil {
		return tracker.End(fmt.Errorf("compose: %v: %w", err, asynq.SkipRetry))
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		return tracker.End(fmt.Errorf("send purchase order mail: %w", err))
	}
	n.logger.Info("purchase order notification sent", slog.String("number", payload.Number), slog.String("to", payload.RequestorEmail))
	return tracker.End(nil)
}

func (n *PurchaseOrderNotifier) compose(p PurchaseOrderCreatedPayload) (Message, error) {
	amounts := make(map[string]string, 3)
	for label, raw := range map[string]string{"subtotal": p.Subtotal, "vat": p.VAT, "total": p.Total} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return Message{}, fmt.Errorf("%s %q: %w", label, raw, err)
		}
		amounts[label] = money.FormatWithCurrency(n.currency, d)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your purchase order %s was created on %s.\n\n", p.Number, p.CreatedAt.Format("02 Jan 2006 15:04"))
	if p.Purpose != "" {
		fmt.Fprintf(&b, "Purpose: %s\n", p.Purpose)
	}
	fmt.Fprintf(&b, "Items: %d\n", p.ItemCount)
	fmt.Fprintf(&b, "Subtotal: %s\n", amounts["subtotal"])
	fmt.Fprintf(&b, "VAT: %s\n", amounts["vat"])
	fmt.Fprintf(&b, "Total: %s\n\n", amounts["total"])
	b.WriteString("Status: Draft\n")
	return Message{
		To:      p.RequestorEmail,
		Subject: "Purchase order " + p.Number + " created",
		Body:    b.String(),
	}, nil
}

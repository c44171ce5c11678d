// AngelaMos | 2026
// confirmer.go

package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gifty-app/gifty-api/internal/core"
	"github.com/gifty-app/gifty-api/internal/gateway"
	"github.com/gifty-app/gifty-api/internal/metrics"
	"github.com/gifty-app/gifty-api/internal/plan"
)

type Status string

const (
	StatusApplied   Status = "applied"
	StatusDuplicate Status = "duplicate"
	StatusIgnored   Status = "ignored"
	StatusFailed    Status = "failed"
)

// Outcome describes what handling one notification did.
type Outcome struct {
	Status    Status
	Event     string
	PaymentID string
	UserID    string
	ExpiresAt *time.Time
	Reason    string
}

type PaymentFetcher interface {
	GetPayment(ctx context.Context, id string) (*gateway.Payment, error)
}

type ConfirmerConfig struct {
	Catalog *plan.Catalog
	Gateway PaymentFetcher
	Ledger  Ledger
	Pending PendingCheckouts
	Clock   plan.Clock
	// VerifyWithGateway re-reads every success notification from the
	// gateway before applying it.
	VerifyWithGateway bool
	Logger            *slog.Logger
}

type Confirmer struct {
	catalog *plan.Catalog
	gateway PaymentFetcher
	ledger  Ledger
	pending PendingCheckouts
	now     plan.Clock
	verify  bool
	logger  *slog.Logger
}

func NewConfirmer(cfg ConfirmerConfig) *Confirmer {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Confirmer{
		catalog: cfg.Catalog,
		gateway: cfg.Gateway,
		ledger:  cfg.Ledger,
		pending: cfg.Pending,
		now:     cfg.Clock,
		verify:  cfg.VerifyWithGateway,
		logger:  cfg.Logger,
	}
}

// Handle processes one raw notification body. Notifications that do not
// confirm a settled payment are acknowledged and ignored. A payment id that
// was already applied is reported as a duplicate with no change.
func (c *Confirmer) Handle(ctx context.Context, body []byte) (Outcome, error) {
	start := time.Now()

	n, err := ParseNotification(body)
	if err != nil {
		c.record("malformed", StatusFailed, start)
		return Outcome{Status: StatusFailed, Reason: "malformed"}, err
	}

	ctx, span := core.StartSpan(ctx, "payment.confirm",
		attribute.String("payment.event", n.Event()),
	)
	defer span.End()

	out, err := c.dispatch(ctx, n)
	out.Event = n.Event()
	if err != nil {
		core.SetSpanError(ctx, err)
	}

	c.record(n.Event(), out.Status, start)
	return out, err
}

func (c *Confirmer) dispatch(ctx context.Context, n Notification) (Outcome, error) {
	switch ev := n.(type) {
	case PaymentSucceeded:
		return c.handleSucceeded(ctx, ev.Payment)
	case PaymentCanceled:
		c.clearPending(ctx, ev.Payment.Metadata)
		return c.ignore(ev.Payment.ID, "payment canceled"), nil
	case PaymentWaitingForCapture:
		return c.ignore(ev.Payment.ID, "payment awaiting capture"), nil
	default:
		return c.ignore("", "unhandled event "+n.Event()), nil
	}
}

func (c *Confirmer) handleSucceeded(
	ctx context.Context,
	p gateway.Payment,
) (Outcome, error) {
	if !p.Settled() {
		return c.ignore(p.ID, fmt.Sprintf("status %q paid=%t", p.Status, p.Paid)), nil
	}

	if c.verify {
		fetched, err := c.gateway.GetPayment(ctx, p.ID)
		if err != nil {
			return Outcome{Status: StatusFailed, PaymentID: p.ID, Reason: "verify"},
				fmt.Errorf("verify payment %s: %w", p.ID, err)
		}
		if fetched.ID != p.ID || !fetched.Settled() {
			return c.ignore(p.ID, "gateway does not report the payment as settled"), nil
		}
		p = *fetched
	}

	grant, err := c.correlate(p)
	if err != nil {
		c.logger.Error("payment notification rejected",
			"payment_id", p.ID,
			"error", err,
		)
		return Outcome{Status: StatusFailed, PaymentID: p.ID, Reason: err.Error()}, err
	}

	core.AddSpanEvent(ctx, "payment.correlated",
		attribute.String("payment.id", grant.PaymentID),
		attribute.String("payment.period", string(grant.Period)),
	)

	res, err := c.ledger.Apply(ctx, grant)
	if err != nil {
		c.logger.Error("payment not applied",
			"payment_id", p.ID,
			"user_id", grant.UserID,
			"error", err,
		)
		return Outcome{Status: StatusFailed, PaymentID: p.ID, Reason: "apply"}, err
	}

	if res.Duplicate {
		c.logger.Info("payment already applied", "payment_id", p.ID)
		return Outcome{Status: StatusDuplicate, PaymentID: p.ID}, nil
	}

	core.AddSpanEvent(ctx, "payment.applied",
		attribute.String("user.id", res.UserID),
		attribute.Bool("user.created", res.CreatedUser),
	)
	metrics.EntitlementGrantsTotal.WithLabelValues(string(grant.Period)).Inc()
	c.clearPending(ctx, p.Metadata)

	c.logger.Info("plan extended",
		"payment_id", p.ID,
		"user_id", res.UserID,
		"period", grant.Period,
		"expires_at", res.ExpiresAt,
		"created_user", res.CreatedUser,
	)

	expiresAt := res.ExpiresAt
	return Outcome{
		Status:    StatusApplied,
		PaymentID: p.ID,
		UserID:    res.UserID,
		ExpiresAt: &expiresAt,
	}, nil
}

// correlate turns payment metadata into a grant and checks the charged
// amount against the catalog.
func (c *Confirmer) correlate(p gateway.Payment) (Grant, error) {
	md := p.Metadata

	if plan.Tier(md[MetaPlan]) != plan.TierPro {
		return Grant{}, fmt.Errorf("%w: plan %q", ErrInvalidCorrelation, md[MetaPlan])
	}

	period, err := plan.ParsePeriod(md[MetaPeriod])
	if err != nil {
		return Grant{}, fmt.Errorf("%w: period %q", ErrInvalidCorrelation, md[MetaPeriod])
	}

	userID := strings.TrimSpace(md[MetaUserID])
	userEmail := strings.TrimSpace(md[MetaUserEmail])
	if userID == "" && userEmail == "" {
		return Grant{}, fmt.Errorf("%w: no user id or email", ErrInvalidCorrelation)
	}

	price, err := c.catalog.Price(plan.TierPro, period)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %w", ErrInvalidCorrelation, err)
	}

	charged, err := p.Amount.Minor()
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %w", ErrAmountMismatch, err)
	}
	if charged != price || !strings.EqualFold(p.Amount.Currency, c.catalog.Currency()) {
		return Grant{}, fmt.Errorf(
			"%w: charged %s %s, price %s %s",
			ErrAmountMismatch,
			p.Amount.Value, p.Amount.Currency,
			gateway.FormatMinor(price), c.catalog.Currency(),
		)
	}

	return Grant{
		PaymentID: p.ID,
		UserID:    userID,
		UserEmail: userEmail,
		Tier:      plan.TierPro,
		Period:    period,
		Amount:    charged,
		At:        c.now(),
	}, nil
}

func (c *Confirmer) ignore(paymentID, reason string) Outcome {
	c.logger.Warn("payment notification ignored",
		"payment_id", paymentID,
		"reason", reason,
	)
	return Outcome{Status: StatusIgnored, PaymentID: paymentID, Reason: reason}
}

func (c *Confirmer) clearPending(ctx context.Context, md map[string]string) {
	if c.pending == nil {
		return
	}

	period, err := plan.ParsePeriod(md[MetaPeriod])
	if err != nil {
		return
	}

	subject := pendingSubject(
		strings.TrimSpace(md[MetaUserID]),
		strings.ToLower(strings.TrimSpace(md[MetaUserEmail])),
	)
	if subject == "" {
		return
	}

	if err := c.pending.Clear(ctx, subject, period); err != nil {
		c.logger.Warn("failed to clear pending checkout", "error", err)
	}
}

func (c *Confirmer) record(event string, status Status, start time.Time) {
	switch event {
	case EventPaymentSucceeded, EventPaymentCanceled, EventPaymentWaitingForCapture, "malformed":
	default:
		event = "other"
	}
	metrics.WebhookNotificationsTotal.WithLabelValues(event, string(status)).Inc()
	metrics.WebhookDuration.WithLabelValues(event).Observe(time.Since(start).Seconds())
}

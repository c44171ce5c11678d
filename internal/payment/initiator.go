// AngelaMos | 2026
// initiator.go

package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/gifty-app/gifty-api/internal/core"
	"github.com/gifty-app/gifty-api/internal/gateway"
	"github.com/gifty-app/gifty-api/internal/metrics"
	"github.com/gifty-app/gifty-api/internal/plan"
)

type Gateway interface {
	CreatePayment(
		ctx context.Context,
		req gateway.CreatePaymentRequest,
		idempotenceKey string,
	) (*gateway.Payment, error)
	GetPayment(ctx context.Context, id string) (*gateway.Payment, error)
}

// Checkout is what the client needs to send the user to the gateway.
type Checkout struct {
	PaymentID       string      `json:"payment_id"`
	ConfirmationURL string      `json:"confirmation_url"`
	Amount          int64       `json:"amount"`
	Currency        string      `json:"currency"`
	Period          plan.Period `json:"period"`
	Description     string      `json:"description"`
}

type PendingCheckouts interface {
	Get(ctx context.Context, subject string, period plan.Period) (*Checkout, error)
	Put(ctx context.Context, subject string, checkout *Checkout) error
	Clear(ctx context.Context, subject string, period plan.Period) error
}

type Initiator struct {
	catalog   *plan.Catalog
	gateway   Gateway
	pending   PendingCheckouts
	returnURL string
	logger    *slog.Logger
}

// NewInitiator wires checkout creation. pending may be nil, in which case
// every call opens a new payment intent.
func NewInitiator(
	catalog *plan.Catalog,
	gw Gateway,
	pending PendingCheckouts,
	returnURL string,
	logger *slog.Logger,
) *Initiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Initiator{
		catalog:   catalog,
		gateway:   gw,
		pending:   pending,
		returnURL: returnURL,
		logger:    logger,
	}
}

// Initiate opens a PRO payment intent for period and returns where to send
// the user. Nothing about the user changes here; the plan is granted only
// when the gateway confirms the payment.
func (i *Initiator) Initiate(
	ctx context.Context,
	rawPeriod string,
	userID, userEmail string,
) (*Checkout, error) {
	period, err := plan.ParsePeriod(rawPeriod)
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues("invalid", "rejected").Inc()
		return nil, err
	}

	userEmail = strings.ToLower(strings.TrimSpace(userEmail))
	if userID == "" && userEmail == "" {
		metrics.CheckoutsTotal.WithLabelValues(string(period), "rejected").Inc()
		return nil, fmt.Errorf("user id or email required: %w", core.ErrInvalidInput)
	}

	amount, err := i.catalog.Price(plan.TierPro, period)
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues(string(period), "rejected").Inc()
		return nil, err
	}

	subject := pendingSubject(userID, userEmail)
	if cached := i.cachedCheckout(ctx, subject, period); cached != nil {
		metrics.CheckoutsTotal.WithLabelValues(string(period), "reused").Inc()
		return cached, nil
	}

	description := fmt.Sprintf(
		"GIFTY %s subscription (%s)",
		plan.TierPro,
		period.Adjective(),
	)

	req := gateway.CreatePaymentRequest{
		Amount:  gateway.NewAmount(amount, i.catalog.Currency()),
		Capture: true,
		Confirmation: gateway.Confirmation{
			Type:      gateway.ConfirmationRedirect,
			ReturnURL: i.returnURL,
		},
		Description: description,
		Metadata: map[string]string{
			MetaUserID:    userID,
			MetaPlan:      string(plan.TierPro),
			MetaPeriod:    string(period),
			MetaUserEmail: userEmail,
		},
	}

	created, err := i.gateway.CreatePayment(ctx, req, uuid.New().String())
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues(string(period), "failed").Inc()
		return nil, fmt.Errorf("%w: %w", core.ErrPaymentCreation, err)
	}

	if created.ID == "" || created.ConfirmationURL() == "" {
		metrics.CheckoutsTotal.WithLabelValues(string(period), "failed").Inc()
		return nil, fmt.Errorf(
			"%w: gateway returned no confirmation url",
			core.ErrPaymentCreation,
		)
	}

	checkout := &Checkout{
		PaymentID:       created.ID,
		ConfirmationURL: created.ConfirmationURL(),
		Amount:          amount,
		Currency:        i.catalog.Currency(),
		Period:          period,
		Description:     description,
	}

	if i.pending != nil {
		if err := i.pending.Put(ctx, subject, checkout); err != nil {
			i.logger.Warn("failed to remember pending checkout",
				"error", err,
				"payment_id", checkout.PaymentID,
			)
		}
	}

	i.logger.Info("checkout created",
		"payment_id", checkout.PaymentID,
		"user_id", userID,
		"period", period,
		"amount", amount,
	)
	metrics.CheckoutsTotal.WithLabelValues(string(period), "created").Inc()

	return checkout, nil
}

func (i *Initiator) cachedCheckout(
	ctx context.Context,
	subject string,
	period plan.Period,
) *Checkout {
	if i.pending == nil {
		return nil
	}

	cached, err := i.pending.Get(ctx, subject, period)
	if err != nil {
		i.logger.Warn("pending checkout lookup failed", "error", err)
		return nil
	}
	return cached
}

func pendingSubject(userID, userEmail string) string {
	if userID != "" {
		return userID
	}
	return userEmail
}

// AngelaMos | 2026
// ledger.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gifty-app/gifty-api/internal/core"
	"github.com/gifty-app/gifty-api/internal/plan"
	"github.com/gifty-app/gifty-api/internal/user"
)

// Grant is a confirmed purchase ready to be applied to an account.
type Grant struct {
	PaymentID string
	UserID    string
	UserEmail string
	Tier      plan.Tier
	Period    plan.Period
	Amount    int64
	At        time.Time
}

// Until is the expiration this grant alone would produce.
func (g Grant) Until() time.Time {
	return g.Period.Extend(g.At)
}

type ApplyResult struct {
	UserID      string
	ExpiresAt   time.Time
	Duplicate   bool
	CreatedUser bool
}

type ProcessedPayment struct {
	PaymentID string    `db:"payment_id" json:"payment_id"`
	UserID    string    `db:"user_id"    json:"user_id"`
	Plan      string    `db:"plan"       json:"plan"`
	Period    string    `db:"period"     json:"period"`
	Amount    int64     `db:"amount"     json:"amount"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	AppliedAt time.Time `db:"applied_at" json:"applied_at"`
}

type Ledger interface {
	Apply(ctx context.Context, g Grant) (*ApplyResult, error)
	Recent(ctx context.Context, limit int) ([]ProcessedPayment, error)
}

// PostgresLedger applies a grant in one transaction: resolve and lock the
// account, record the payment id, extend the plan. A payment id already on
// record rolls the whole transaction back.
type PostgresLedger struct {
	db *sqlx.DB
}

func NewPostgresLedger(db *sqlx.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Apply(ctx context.Context, g Grant) (*ApplyResult, error) {
	var result ApplyResult

	err := core.InTx(ctx, l.db, func(tx *sqlx.Tx) error {
		users := user.NewRepository(tx)

		u, created, err := resolveSubject(ctx, users, g)
		if err != nil {
			return err
		}

		inserted, err := recordPayment(ctx, tx, g, u.ID)
		if err != nil {
			return err
		}
		if !inserted {
			return errAlreadyProcessed
		}

		expiresAt, err := users.ExtendPlan(ctx, u.ID, g.Tier, g.Until())
		if err != nil {
			return err
		}

		result = ApplyResult{
			UserID:      u.ID,
			ExpiresAt:   expiresAt,
			CreatedUser: created,
		}
		return nil
	})
	if errors.Is(err, errAlreadyProcessed) {
		return &ApplyResult{Duplicate: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("apply payment %s: %w", g.PaymentID, err)
	}

	return &result, nil
}

// resolveSubject finds the paying account by id, then by email, and creates
// a passwordless account from the email when neither matches.
func resolveSubject(
	ctx context.Context,
	users user.Repository,
	g Grant,
) (*user.User, bool, error) {
	if g.UserID != "" {
		if _, parseErr := uuid.Parse(g.UserID); parseErr == nil {
			u, err := users.LockByID(ctx, g.UserID)
			if err == nil {
				return u, false, nil
			}
			if !errors.Is(err, core.ErrNotFound) {
				return nil, false, err
			}
		}
	}

	email := strings.ToLower(strings.TrimSpace(g.UserEmail))
	if email == "" {
		return nil, false, ErrUnresolvableSubject
	}

	found, err := users.GetByEmail(ctx, email)
	if err == nil {
		u, lockErr := users.LockByID(ctx, found.ID)
		if lockErr != nil {
			return nil, false, lockErr
		}
		return u, false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, false, err
	}

	guest := &user.User{
		ID:    uuid.New().String(),
		Email: email,
		Name:  guestName(email),
		Role:  user.RoleUser,
		Plan:  string(plan.TierFree),
	}
	if err := users.Create(ctx, guest); err != nil {
		return nil, false, err
	}

	return guest, true, nil
}

func guestName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	return local
}

func recordPayment(
	ctx context.Context,
	db core.DBTX,
	g Grant,
	userID string,
) (bool, error) {
	query := `
		INSERT INTO processed_payments
			(payment_id, user_id, plan, period, amount, expires_at, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (payment_id) DO NOTHING`

	res, err := db.ExecContext(ctx, query,
		g.PaymentID,
		userID,
		string(g.Tier),
		string(g.Period),
		g.Amount,
		g.Until(),
		g.At,
	)
	if err != nil {
		return false, fmt.Errorf("record payment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record payment: %w", err)
	}

	return n == 1, nil
}

func (l *PostgresLedger) Recent(
	ctx context.Context,
	limit int,
) ([]ProcessedPayment, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT payment_id, user_id, plan, period, amount, expires_at, applied_at
		FROM processed_payments
		ORDER BY applied_at DESC
		LIMIT $1`

	var out []ProcessedPayment
	if err := l.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("list processed payments: %w", err)
	}

	return out, nil
}

var _ Ledger = (*PostgresLedger)(nil)

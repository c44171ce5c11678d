// AngelaMos | 2026
// ledger_test.go

package payment

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gifty-app/gifty-api/internal/plan"
)

const ledgerUserID = "6f1c2a9e-4b7d-4c1e-9a55-0d2f3b8e7a10"

var userRowColumns = []string{
	"id", "email", "password_hash", "name", "role", "plan", "plan_expires_at",
	"created_at", "updated_at",
}

func newMockLedger(t *testing.T) (*PostgresLedger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresLedger(sqlx.NewDb(db, "pgx")), mock
}

func userRow(id, email string) *sqlmock.Rows {
	hash := "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"
	return sqlmock.NewRows(userRowColumns).AddRow(
		id, email, hash, "Buyer", "user", "FREE", nil, testNow, testNow,
	)
}

func monthlyGrant(userID, email string) Grant {
	return Grant{
		PaymentID: "pay-1",
		UserID:    userID,
		UserEmail: email,
		Tier:      plan.TierPro,
		Period:    plan.PeriodMonthly,
		Amount:    40000,
		At:        testNow,
	}
}

func TestLedgerApplyKnownUser(t *testing.T) {
	ledger, mock := newMockLedger(t)
	until := testNow.AddDate(0, 1, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs(ledgerUserID).
		WillReturnRows(userRow(ledgerUserID, "buyer@example.com"))
	mock.ExpectExec(`INSERT INTO processed_payments`).
		WithArgs("pay-1", ledgerUserID, "PRO", "MONTHLY", int64(40000), until, testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`GREATEST\(plan_expires_at, \$3\)`).
		WithArgs(ledgerUserID, "PRO", until).
		WillReturnRows(sqlmock.NewRows([]string{"plan_expires_at"}).AddRow(until))
	mock.ExpectCommit()

	res, err := ledger.Apply(context.Background(), monthlyGrant(ledgerUserID, ""))
	require.NoError(t, err)

	assert.False(t, res.Duplicate)
	assert.False(t, res.CreatedUser)
	assert.Equal(t, ledgerUserID, res.UserID)
	assert.Equal(t, until, res.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerApplyDuplicateRollsBack(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(userRow(ledgerUserID, "buyer@example.com"))
	mock.ExpectExec(`INSERT INTO processed_payments`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	res, err := ledger.Apply(context.Background(), monthlyGrant(ledgerUserID, ""))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerApplyFallsBackToEmail(t *testing.T) {
	ledger, mock := newMockLedger(t)
	until := testNow.AddDate(0, 1, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(ledgerUserID).
		WillReturnRows(sqlmock.NewRows(userRowColumns))
	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("buyer@example.com").
		WillReturnRows(userRow("0b7c1f7e-2c55-4d0a-8f3e-5b4a9c2d1e00", "buyer@example.com"))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("0b7c1f7e-2c55-4d0a-8f3e-5b4a9c2d1e00").
		WillReturnRows(userRow("0b7c1f7e-2c55-4d0a-8f3e-5b4a9c2d1e00", "buyer@example.com"))
	mock.ExpectExec(`INSERT INTO processed_payments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE users`).
		WillReturnRows(sqlmock.NewRows([]string{"plan_expires_at"}).AddRow(until))
	mock.ExpectCommit()

	res, err := ledger.Apply(context.Background(), monthlyGrant(ledgerUserID, "Buyer@Example.com"))
	require.NoError(t, err)
	assert.Equal(t, "0b7c1f7e-2c55-4d0a-8f3e-5b4a9c2d1e00", res.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerApplyCreatesGuest(t *testing.T) {
	ledger, mock := newMockLedger(t)
	until := testNow.AddDate(0, 1, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("new@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns))
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(testNow, testNow))
	mock.ExpectExec(`INSERT INTO processed_payments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE users`).
		WillReturnRows(sqlmock.NewRows([]string{"plan_expires_at"}).AddRow(until))
	mock.ExpectCommit()

	res, err := ledger.Apply(context.Background(), monthlyGrant("", "new@example.com"))
	require.NoError(t, err)
	assert.True(t, res.CreatedUser)
	assert.NotEmpty(t, res.UserID)
	assert.Equal(t, until, res.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerApplyUnresolvable(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(ledgerUserID).
		WillReturnRows(sqlmock.NewRows(userRowColumns))
	mock.ExpectRollback()

	_, err := ledger.Apply(context.Background(), monthlyGrant(ledgerUserID, ""))
	require.ErrorIs(t, err, ErrUnresolvableSubject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerApplyInvalidIDWithoutEmail(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := ledger.Apply(context.Background(), monthlyGrant("not-a-uuid", ""))
	require.ErrorIs(t, err, ErrUnresolvableSubject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRecent(t *testing.T) {
	ledger, mock := newMockLedger(t)
	applied := testNow.Add(-time.Hour)

	mock.ExpectQuery(`FROM processed_payments`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{
			"payment_id", "user_id", "plan", "period", "amount", "expires_at", "applied_at",
		}).AddRow("pay-1", ledgerUserID, "PRO", "MONTHLY", int64(40000), testNow, applied))

	out, err := ledger.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "pay-1", out[0].PaymentID)
	assert.Equal(t, int64(40000), out[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantUntil(t *testing.T) {
	g := Grant{Period: plan.PeriodYearly, At: testNow}
	assert.Equal(t, testNow.AddDate(1, 0, 0), g.Until())
}

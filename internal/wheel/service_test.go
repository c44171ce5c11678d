// AngelaMos | 2026
// service_test.go

package wheel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gifty-app/gifty-api/internal/core"
	"github.com/gifty-app/gifty-api/internal/plan"
	"github.com/gifty-app/gifty-api/internal/quota"
)

const ownerID = "9d0e5b1c-7a2f-4e3b-8c6d-1f0a2b3c4d5e"

var now = time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)

var userColumns = []string{
	"id", "email", "password_hash", "name", "role", "plan", "plan_expires_at",
	"created_at", "updated_at",
}

func freeOwner() *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).
		AddRow(ownerID, "a@example.com", "hash", "A", "user", "FREE", nil, now, now)
}

func proOwner(expires time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).
		AddRow(ownerID, "a@example.com", "hash", "A", "user", "PRO", expires, now, now)
}

func newTestService(t *testing.T, strict bool) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sdb := sqlx.NewDb(db, "pgx")
	guard := quota.NewGuard(
		plan.NewCatalog("RUB"),
		plan.NewEvaluator(func() time.Time { return now }),
		NewRepository(sdb),
	)
	return NewService(sdb, guard, strict), mock
}

func segments(n int) []Segment {
	out := make([]Segment, n)
	for i := range out {
		out[i] = Segment{Label: fmt.Sprintf("prize %d", i+1)}
	}
	return out
}

func expectInsert(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`INSERT INTO wheels`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
}

func expectCount(mock sqlmock.Sqlmock, n int) {
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM wheels WHERE owner_id = \$1`).
		WithArgs(ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(n))
}

func TestCreateWithinFreeLimit(t *testing.T) {
	svc, mock := newTestService(t, false)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs(ownerID).WillReturnRows(freeOwner())
	expectCount(mock, 2)
	expectInsert(mock)

	w, err := svc.Create(context.Background(), ownerID, WheelRequest{
		Title:    "Birthday",
		Segments: segments(6),
	})
	require.NoError(t, err)
	assert.Equal(t, ownerID, w.OwnerID)
	assert.NotEmpty(t, w.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDeniedAtFreeLimit(t *testing.T) {
	svc, mock := newTestService(t, false)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).WillReturnRows(freeOwner())
	expectCount(mock, 3)

	_, err := svc.Create(context.Background(), ownerID, WheelRequest{
		Title:    "Fourth",
		Segments: segments(2),
	})
	require.ErrorIs(t, err, core.ErrQuotaExceeded)
	assert.Equal(t, http.StatusForbidden, core.ErrorFrom(err).StatusCode)
	assert.Equal(t, "QUOTA_EXCEEDED", core.ErrorFrom(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStrictLocksOwner(t *testing.T) {
	svc, mock := newTestService(t, true)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM users WHERE id = \$1 FOR UPDATE`).WithArgs(ownerID).WillReturnRows(freeOwner())
	expectCount(mock, 0)
	expectInsert(mock)
	mock.ExpectCommit()

	_, err := svc.Create(context.Background(), ownerID, WheelRequest{
		Title:    "First",
		Segments: segments(3),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStrictRollsBackOnDenial(t *testing.T) {
	svc, mock := newTestService(t, true)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(freeOwner())
	expectCount(mock, 3)
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), ownerID, WheelRequest{
		Title:    "Fourth",
		Segments: segments(2),
	})
	require.ErrorIs(t, err, core.ErrQuotaExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProSkipsCount(t *testing.T) {
	svc, mock := newTestService(t, false)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).WillReturnRows(proOwner(now.AddDate(0, 1, 0)))
	expectInsert(mock)

	segs := segments(20)
	segs[0].ImageURL = "https://cdn.example/prize.png"
	segs[1].Weight = 3

	_, err := svc.Create(context.Background(), ownerID, WheelRequest{
		Title:    "Big",
		Segments: segs,
		Design:   &Design{Background: "#ffffff"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateContentRules(t *testing.T) {
	withImage := segments(3)
	withImage[2].ImageURL = "https://cdn.example/p.png"

	withWeight := segments(3)
	withWeight[0].Weight = 2.5

	defaultWeight := segments(3)
	defaultWeight[0].Weight = DefaultWeight

	tests := []struct {
		name    string
		owner   *sqlmock.Rows
		req     WheelRequest
		wantErr error
	}{
		{"too few segments", freeOwner(), WheelRequest{Title: "x", Segments: segments(1)}, core.ErrInvalidInput},
		{"free over segment limit", freeOwner(), WheelRequest{Title: "x", Segments: segments(7)}, core.ErrQuotaExceeded},
		{"pro over segment limit", proOwner(now.Add(time.Hour)), WheelRequest{Title: "x", Segments: segments(21)}, core.ErrQuotaExceeded},
		{"free image", freeOwner(), WheelRequest{Title: "x", Segments: withImage}, core.ErrFeatureLocked},
		{"free weight", freeOwner(), WheelRequest{Title: "x", Segments: withWeight}, core.ErrFeatureLocked},
		{"free design", freeOwner(), WheelRequest{Title: "x", Segments: segments(2), Design: &Design{Theme: "gold"}}, core.ErrFeatureLocked},
		{"lapsed pro image", proOwner(now.Add(-time.Second)), WheelRequest{Title: "x", Segments: withImage}, core.ErrFeatureLocked},
		{"free default weight", freeOwner(), WheelRequest{Title: "x", Segments: defaultWeight}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := newTestService(t, false)

			mock.ExpectQuery(`FROM users WHERE id = \$1`).WillReturnRows(tt.owner)
			mock.ExpectQuery(`SELECT COUNT\(\*\) FROM wheels`).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
			if tt.wantErr == nil {
				expectInsert(mock)
			}

			_, err := svc.Create(context.Background(), ownerID, tt.req)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateCountFailure(t *testing.T) {
	svc, mock := newTestService(t, false)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).WillReturnRows(freeOwner())
	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("connection reset"))

	_, err := svc.Create(context.Background(), ownerID, WheelRequest{Title: "x", Segments: segments(2)})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, core.ErrorFrom(err).StatusCode)
}

func TestGetOtherOwnersWheel(t *testing.T) {
	svc, mock := newTestService(t, false)
	id := "1a2b3c4d-0000-4000-8000-000000000001"

	mock.ExpectQuery(`FROM wheels WHERE id = \$1`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_id", "title", "segments", "design", "created_at", "updated_at",
		}).AddRow(id, "someone-else", "t", []byte(`[{"label":"a"},{"label":"b"}]`), nil, now, now))

	_, err := svc.Get(context.Background(), ownerID, id)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestGetMalformedID(t *testing.T) {
	svc, mock := newTestService(t, false)

	_, err := svc.Get(context.Background(), ownerID, "nope")
	require.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissing(t *testing.T) {
	svc, mock := newTestService(t, false)
	id := "1a2b3c4d-0000-4000-8000-000000000002"

	mock.ExpectExec(`DELETE FROM wheels`).WithArgs(id, ownerID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.Delete(context.Background(), ownerID, id)
	require.ErrorIs(t, err, core.ErrNotFound)
}

// AngelaMos | 2026
// repository.go

package wheel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gifty-app/gifty-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, w *Wheel) error
	GetByID(ctx context.Context, id string) (*Wheel, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Wheel, int, error)
	Update(ctx context.Context, w *Wheel) error
	Delete(ctx context.Context, id, ownerID string) error
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const wheelColumns = `id, owner_id, title, segments, design, created_at, updated_at`

func (r *repository) Create(ctx context.Context, w *Wheel) error {
	query := `
		INSERT INTO wheels (id, owner_id, title, segments, design)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		w.ID,
		w.OwnerID,
		w.Title,
		w.Segments,
		w.Design,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create wheel: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Wheel, error) {
	query := `SELECT ` + wheelColumns + ` FROM wheels WHERE id = $1`

	var w Wheel
	err := r.db.GetContext(ctx, &w, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get wheel: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get wheel: %w", err)
	}

	return &w, nil
}

func (r *repository) ListByOwner(
	ctx context.Context,
	ownerID string,
	limit, offset int,
) ([]Wheel, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM wheels WHERE owner_id = $1`, ownerID); err != nil {
		return nil, 0, fmt.Errorf("count wheels: %w", err)
	}

	query := `
		SELECT ` + wheelColumns + `
		FROM wheels
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var wheels []Wheel
	if err := r.db.SelectContext(ctx, &wheels, query, ownerID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list wheels: %w", err)
	}

	return wheels, total, nil
}

func (r *repository) Update(ctx context.Context, w *Wheel) error {
	query := `
		UPDATE wheels
		SET title = $3, segments = $4, design = $5, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &w.UpdatedAt, query,
		w.ID,
		w.OwnerID,
		w.Title,
		w.Segments,
		w.Design,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update wheel: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update wheel: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM wheels WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete wheel: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete wheel: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete wheel: %w", core.ErrNotFound)
	}

	return nil
}

// CountByOwner satisfies quota.WheelCounter.
func (r *repository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM wheels WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("count wheels: %w", err)
	}
	return n, nil
}

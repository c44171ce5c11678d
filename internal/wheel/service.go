// AngelaMos | 2026
// service.go

package wheel

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gifty-app/gifty-api/internal/core"
	"github.com/gifty-app/gifty-api/internal/metrics"
	"github.com/gifty-app/gifty-api/internal/plan"
	"github.com/gifty-app/gifty-api/internal/quota"
	"github.com/gifty-app/gifty-api/internal/user"
)

type Service struct {
	db     *sqlx.DB
	repo   Repository
	users  user.Repository
	guard  *quota.Guard
	strict bool
}

// NewService builds the wheel service. With strict set, creation locks the
// owner's user row before counting so concurrent requests cannot overshoot
// the wheel limit.
func NewService(db *sqlx.DB, guard *quota.Guard, strict bool) *Service {
	return &Service{
		db:     db,
		repo:   NewRepository(db),
		users:  user.NewRepository(db),
		guard:  guard,
		strict: strict,
	}
}

func (s *Service) Create(
	ctx context.Context,
	ownerID string,
	req WheelRequest,
) (*Wheel, error) {
	w := &Wheel{
		ID:       uuid.New().String(),
		OwnerID:  ownerID,
		Title:    req.Title,
		Segments: Segments(req.Segments),
		Design:   req.Design,
	}

	if !s.strict {
		if err := s.create(ctx, s.users, s.repo, s.guard, w); err != nil {
			return nil, err
		}
		return w, nil
	}

	err := core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		return s.create(ctx, user.NewRepository(tx), repo, s.guard.WithCounter(repo), w)
	})
	if err != nil {
		return nil, err
	}

	return w, nil
}

func (s *Service) create(
	ctx context.Context,
	users user.Repository,
	repo Repository,
	guard *quota.Guard,
	w *Wheel,
) error {
	owner, err := s.loadOwner(ctx, users, w.OwnerID)
	if err != nil {
		return err
	}

	sub := owner.Subscription()
	allowed, err := guard.CanCreateWheel(ctx, owner.ID, sub)
	if err != nil {
		return err
	}
	if !allowed {
		metrics.QuotaDenialsTotal.WithLabelValues("wheels").Inc()
		return core.QuotaExceededError(fmt.Sprintf(
			"your plan allows %d wheels",
			guard.LimitsFor(sub).MaxWheels,
		))
	}

	if err := s.checkContent(sub, w); err != nil {
		return err
	}

	return repo.Create(ctx, w)
}

func (s *Service) loadOwner(
	ctx context.Context,
	users user.Repository,
	ownerID string,
) (*user.User, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("wheel owner: %w", core.ErrUnauthorized)
	}
	if s.strict {
		return users.LockByID(ctx, ownerID)
	}
	return users.GetByID(ctx, ownerID)
}

// checkContent applies the segment ceiling and the feature flags of the
// effective plan.
func (s *Service) checkContent(sub plan.Subscription, w *Wheel) error {
	if len(w.Segments) < MinSegments {
		return fmt.Errorf(
			"a wheel needs at least %d segments: %w",
			MinSegments,
			core.ErrInvalidInput,
		)
	}

	ent := s.guard.EffectivePlan(sub)

	if !s.guard.CheckSegmentLimits(len(w.Segments), ent.EffectiveTier) {
		metrics.QuotaDenialsTotal.WithLabelValues("segments").Inc()
		return core.QuotaExceededError(fmt.Sprintf(
			"your plan allows %d segments per wheel",
			ent.Limits.MaxSegments,
		))
	}

	for _, seg := range w.Segments {
		if seg.ImageURL != "" && !ent.Limits.Images {
			metrics.QuotaDenialsTotal.WithLabelValues("images").Inc()
			return core.FeatureLockedError("segment images require the PRO plan")
		}
		if seg.HasCustomWeight() && !ent.Limits.Weights {
			metrics.QuotaDenialsTotal.WithLabelValues("weights").Inc()
			return core.FeatureLockedError("segment weights require the PRO plan")
		}
	}

	if w.Design != nil && !ent.Limits.CustomDesign {
		metrics.QuotaDenialsTotal.WithLabelValues("design").Inc()
		return core.FeatureLockedError("custom design requires the PRO plan")
	}

	return nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (*Wheel, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get wheel: %w", core.ErrNotFound)
	}

	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.OwnerID != ownerID {
		return nil, fmt.Errorf("get wheel: %w", core.ErrNotFound)
	}

	return w, nil
}

func (s *Service) List(
	ctx context.Context,
	ownerID string,
	params ListParams,
) ([]Wheel, int, error) {
	params.Normalize()
	return s.repo.ListByOwner(ctx, ownerID, params.PageSize, params.Offset())
}

// Update replaces title, segments and design. Limits are checked against
// the plan in effect now, so a lapsed PRO user can still read but not grow
// a wheel past FREE limits.
func (s *Service) Update(
	ctx context.Context,
	ownerID, id string,
	req WheelRequest,
) (*Wheel, error) {
	w, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	w.Title = req.Title
	w.Segments = Segments(req.Segments)
	w.Design = req.Design

	if err := s.checkContent(owner.Subscription(), w); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}

	return w, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("delete wheel: %w", core.ErrNotFound)
	}
	return s.repo.Delete(ctx, id, ownerID)
}

// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gifty-app/gifty-api/internal/auth"
	"github.com/gifty-app/gifty-api/internal/core"
	"github.com/gifty-app/gifty-api/internal/plan"
	"github.com/gifty-app/gifty-api/internal/quota"
)

type Service struct {
	repo  Repository
	guard *quota.Guard
}

func NewService(repo Repository, guard *quota.Guard) *Service {
	return &Service{repo: repo, guard: guard}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

// Create registers an account. An email that only exists as a guest
// account (created by a paid checkout) is claimed instead, keeping its plan.
func (s *Service) Create(
	ctx context.Context,
	email, passwordHash, name string,
) (*auth.UserInfo, error) {
	email = strings.ToLower(email)

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.IsGuest():
		existing.PasswordHash = &passwordHash
		existing.Name = name
		if err := s.repo.ClaimGuest(ctx, existing); err != nil {
			return nil, err
		}
		return toUserInfo(existing), nil
	case err == nil:
		return nil, fmt.Errorf("create user: %w", core.ErrDuplicateKey)
	case !errors.Is(err, core.ErrNotFound):
		return nil, err
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: &passwordHash,
		Name:         name,
		Role:         RoleUser,
		Plan:         string(plan.TierFree),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateUserRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Entitlement evaluates the user's plan at call time.
func (s *Service) Entitlement(u *User) quota.Entitlement {
	return s.guard.EffectivePlan(u.Subscription())
}

// EffectivePlan loads the user and evaluates their plan now.
func (s *Service) EffectivePlan(
	ctx context.Context,
	userID string,
) (quota.Entitlement, error) {
	user, err := s.GetMe(ctx, userID)
	if err != nil {
		return quota.Entitlement{}, err
	}

	return s.Entitlement(user), nil
}

// EffectiveTier satisfies middleware.PlanResolver.
func (s *Service) EffectiveTier(
	ctx context.Context,
	userID string,
) (plan.Tier, error) {
	ent, err := s.EffectivePlan(ctx, userID)
	if err != nil {
		return plan.TierFree, err
	}
	return ent.EffectiveTier, nil
}

func toUserInfo(u *User) *auth.UserInfo {
	info := &auth.UserInfo{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
	if u.PasswordHash != nil {
		info.PasswordHash = *u.PasswordHash
	}
	return info
}

var _ auth.UserProvider = (*Service)(nil)

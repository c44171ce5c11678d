// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/gifty-app/gifty-api/internal/quota"
)

type UpdateUserRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
}

type UserResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	Plan          string     `json:"plan"`
	PlanExpiresAt *time.Time `json:"plan_expires_at,omitempty"`
	Guest         bool       `json:"guest"`
	CreatedAt     time.Time  `json:"created_at"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Plan     string `json:"plan"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// AdminUserResponse shows the stored plan next to the one being honored.
type AdminUserResponse struct {
	UserResponse
	Entitlement quota.Entitlement `json:"entitlement"`
}

// ToUserResponse reports the effective plan, not the stored column.
func ToUserResponse(u *User, ent quota.Entitlement) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		Plan:          string(ent.EffectiveTier),
		PlanExpiresAt: ent.ExpiresAt,
		Guest:         u.IsGuest(),
		CreatedAt:     u.CreatedAt,
	}
}

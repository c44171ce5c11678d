// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/gifty-app/gifty-api/internal/plan"
)

type User struct {
	ID            string     `db:"id"`
	Email         string     `db:"email"`
	PasswordHash  *string    `db:"password_hash"`
	Name          string     `db:"name"`
	Role          string     `db:"role"`
	Plan          string     `db:"plan"`
	PlanExpiresAt *time.Time `db:"plan_expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsGuest reports an account created by a checkout that has never set a
// password.
func (u *User) IsGuest() bool {
	return u.PasswordHash == nil || *u.PasswordHash == ""
}

// Subscription is the stored entitlement, before expiration is applied.
func (u *User) Subscription() plan.Subscription {
	return plan.Subscription{
		Tier:      plan.Tier(u.Plan),
		ExpiresAt: u.PlanExpiresAt,
	}
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AngelaMos | 2026
// errors.go

package payment

import (
	"errors"
)

var (
	ErrMalformedNotification = errors.New("malformed notification")
	ErrInvalidCorrelation    = errors.New("notification does not identify a plan purchase")
	ErrAmountMismatch        = errors.New("charged amount does not match the plan price")
	ErrUnresolvableSubject   = errors.New("notification does not identify a user")

	errAlreadyProcessed = errors.New("payment already processed")
)

// Metadata keys attached to every payment intent and read back from
// notifications.
const (
	MetaUserID    = "userId"
	MetaUserEmail = "userEmail"
	MetaPlan      = "plan"
	MetaPeriod    = "period"
)

// AngelaMos | 2026
// notification.go

package payment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gifty-app/gifty-api/internal/gateway"
)

const (
	EventPaymentSucceeded         = "payment.succeeded"
	EventPaymentCanceled          = "payment.canceled"
	EventPaymentWaitingForCapture = "payment.waiting_for_capture"
)

// Notification is one parsed gateway webhook. The concrete type tells the
// caller what happened; nothing outside this file reads the raw JSON.
type Notification interface {
	Event() string
	notification()
}

type PaymentSucceeded struct {
	Payment gateway.Payment
}

type PaymentCanceled struct {
	Payment gateway.Payment
}

type PaymentWaitingForCapture struct {
	Payment gateway.Payment
}

// UnknownEvent is any well-formed notification this service does not act on.
type UnknownEvent struct {
	Name string
}

func (PaymentSucceeded) Event() string         { return EventPaymentSucceeded }
func (PaymentCanceled) Event() string          { return EventPaymentCanceled }
func (PaymentWaitingForCapture) Event() string { return EventPaymentWaitingForCapture }
func (u UnknownEvent) Event() string           { return u.Name }

func (PaymentSucceeded) notification()         {}
func (PaymentCanceled) notification()          {}
func (PaymentWaitingForCapture) notification() {}
func (UnknownEvent) notification()             {}

type envelope struct {
	Type   string          `json:"type"`
	Event  string          `json:"event"`
	Object json.RawMessage `json:"object"`
}

func ParseNotification(body []byte) (Notification, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedNotification, err)
	}

	if env.Type != "notification" {
		return nil, fmt.Errorf("%w: type %q", ErrMalformedNotification, env.Type)
	}

	event := strings.TrimSpace(env.Event)
	if event == "" {
		return nil, fmt.Errorf("%w: missing event", ErrMalformedNotification)
	}

	switch event {
	case EventPaymentSucceeded, EventPaymentCanceled, EventPaymentWaitingForCapture:
	default:
		return UnknownEvent{Name: event}, nil
	}

	if len(env.Object) == 0 {
		return nil, fmt.Errorf("%w: missing object", ErrMalformedNotification)
	}

	var p gateway.Payment
	if err := json.Unmarshal(env.Object, &p); err != nil {
		return nil, fmt.Errorf("%w: object: %w", ErrMalformedNotification, err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: object without id", ErrMalformedNotification)
	}

	switch event {
	case EventPaymentSucceeded:
		return PaymentSucceeded{Payment: p}, nil
	case EventPaymentCanceled:
		return PaymentCanceled{Payment: p}, nil
	default:
		return PaymentWaitingForCapture{Payment: p}, nil
	}
}

// AngelaMos | 2026
// fakes_test.go

package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gifty-app/gifty-api/internal/gateway"
	"github.com/gifty-app/gifty-api/internal/plan"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type fakeGateway struct {
	mu        sync.Mutex
	seq       int
	requests  []gateway.CreatePaymentRequest
	keys      []string
	payments  map[string]*gateway.Payment
	createErr error
	getErr    error
	gets      int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: make(map[string]*gateway.Payment)}
}

func (f *fakeGateway) CreatePayment(
	_ context.Context,
	req gateway.CreatePaymentRequest,
	key string,
) (*gateway.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	f.keys = append(f.keys, key)
	if f.createErr != nil {
		return nil, f.createErr
	}

	f.seq++
	id := fmt.Sprintf("pay-%d", f.seq)
	p := &gateway.Payment{
		ID:          id,
		Status:      gateway.StatusPending,
		Amount:      req.Amount,
		Description: req.Description,
		Metadata:    req.Metadata,
		Confirmation: &gateway.Confirmation{
			Type:            gateway.ConfirmationRedirect,
			ConfirmationURL: "https://pay.example/checkout/" + id,
		},
	}
	f.payments[id] = p

	out := *p
	return &out, nil
}

func (f *fakeGateway) GetPayment(_ context.Context, id string) (*gateway.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.payments[id]
	if !ok {
		return nil, &gateway.APIError{StatusCode: 404, Description: "not found"}
	}
	out := *p
	return &out, nil
}

func (f *fakeGateway) settle(t *testing.T, id string) gateway.Payment {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.payments[id]
	require.True(t, ok, "unknown payment %s", id)
	p.Status = gateway.StatusSucceeded
	p.Paid = true
	return *p
}

func (f *fakeGateway) put(p gateway.Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[p.ID] = &p
}

type memAccount struct {
	id    string
	email string
	sub   plan.Subscription
}

type memLedger struct {
	mu        sync.Mutex
	accounts  map[string]*memAccount
	processed map[string]bool
	applyErr  error
	seq       int
}

func newMemLedger() *memLedger {
	return &memLedger{
		accounts:  make(map[string]*memAccount),
		processed: make(map[string]bool),
	}
}

func (l *memLedger) addUser(id, email string, sub plan.Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[id] = &memAccount{id: id, email: email, sub: sub}
}

func (l *memLedger) subscription(id string) plan.Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[id].sub
}

func (l *memLedger) Apply(_ context.Context, g Grant) (*ApplyResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.applyErr != nil {
		return nil, l.applyErr
	}

	acct, created := l.resolve(g)
	if acct == nil {
		return nil, ErrUnresolvableSubject
	}

	if l.processed[g.PaymentID] {
		if created {
			delete(l.accounts, acct.id)
		}
		return &ApplyResult{Duplicate: true}, nil
	}
	l.processed[g.PaymentID] = true

	until := g.Until()
	if acct.sub.ExpiresAt != nil && acct.sub.ExpiresAt.After(until) {
		until = *acct.sub.ExpiresAt
	}
	acct.sub = plan.Subscription{Tier: g.Tier, ExpiresAt: &until}

	return &ApplyResult{UserID: acct.id, ExpiresAt: until, CreatedUser: created}, nil
}

func (l *memLedger) resolve(g Grant) (*memAccount, bool) {
	if a, ok := l.accounts[g.UserID]; ok && g.UserID != "" {
		return a, false
	}
	if g.UserEmail == "" {
		return nil, false
	}
	for _, a := range l.accounts {
		if a.email == g.UserEmail {
			return a, false
		}
	}
	l.seq++
	a := &memAccount{
		id:    fmt.Sprintf("guest-%d", l.seq),
		email: g.UserEmail,
		sub:   plan.Subscription{Tier: plan.TierFree},
	}
	l.accounts[a.id] = a
	return a, true
}

func (l *memLedger) Recent(context.Context, int) ([]ProcessedPayment, error) {
	return nil, nil
}

func notificationBody(t *testing.T, event string, p gateway.Payment) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"type":   "notification",
		"event":  event,
		"object": p,
	})
	require.NoError(t, err)
	return body
}

func settledPayment(id, userID, period, value string) gateway.Payment {
	return gateway.Payment{
		ID:     id,
		Status: gateway.StatusSucceeded,
		Paid:   true,
		Amount: gateway.Amount{Value: value, Currency: "RUB"},
		Metadata: map[string]string{
			MetaUserID:    userID,
			MetaPlan:      "PRO",
			MetaPeriod:    period,
			MetaUserEmail: "buyer@example.com",
		},
	}
}

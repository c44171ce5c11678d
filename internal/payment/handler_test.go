// AngelaMos | 2026
// handler_test.go

package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gifty-app/gifty-api/internal/middleware"
	"github.com/gifty-app/gifty-api/internal/plan"
)

func fakeAuth(userID, email string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			ctx = context.WithValue(ctx, middleware.UserEmailKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(t *testing.T, gw *fakeGateway, ledger Ledger) http.Handler {
	t.Helper()
	catalog := plan.NewCatalog("RUB")
	h := NewHandler(
		NewInitiator(catalog, gw, nil, returnURL, nil),
		NewConfirmer(ConfirmerConfig{Catalog: catalog, Ledger: ledger, Clock: fixedClock}),
	)

	r := chi.NewRouter()
	h.RegisterRoutes(r, fakeAuth("u-1", "buyer@example.com"))
	return r
}

func TestCreateCheckoutHandler(t *testing.T) {
	gw := newFakeGateway()
	router := newTestRouter(t, gw, newMemLedger())

	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{"period":"YEARLY"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool     `json:"success"`
		Data    Checkout `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(400000), resp.Data.Amount)
	assert.Equal(t, "u-1", gw.requests[0].Metadata[MetaUserID])
	assert.Equal(t, "buyer@example.com", gw.requests[0].Metadata[MetaUserEmail])
}

func TestCreateCheckoutHandlerErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		createErr error
		want      int
	}{
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"missing period", `{}`, nil, http.StatusBadRequest},
		{"unknown period", `{"period":"WEEKLY"}`, nil, http.StatusBadRequest},
		{"gateway down", `{"period":"MONTHLY"}`, assert.AnError, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			gw.createErr = tt.createErr
			router := newTestRouter(t, gw, newMemLedger())

			req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestWebhookHandler(t *testing.T) {
	ledger := newMemLedger()
	ledger.addUser("u-1", "", plan.Subscription{Tier: plan.TierFree})

	unresolvable := settledPayment("pay-3", "u-missing", "MONTHLY", "400.00")
	unresolvable.Metadata[MetaUserEmail] = ""

	canceled := settledPayment("pay-4", "u-1", "MONTHLY", "400.00")
	canceled.Status = "canceled"
	canceled.Paid = false

	tests := []struct {
		name string
		body []byte
		want int
	}{
		{"applied", notificationBody(t, EventPaymentSucceeded,
			settledPayment("pay-1", "u-1", "MONTHLY", "400.00")), http.StatusOK},
		{"duplicate", notificationBody(t, EventPaymentSucceeded,
			settledPayment("pay-1", "u-1", "MONTHLY", "400.00")), http.StatusOK},
		{"canceled", notificationBody(t, EventPaymentCanceled, canceled), http.StatusOK},
		{"malformed", []byte(`not json`), http.StatusBadRequest},
		{"wrong amount", notificationBody(t, EventPaymentSucceeded,
			settledPayment("pay-2", "u-1", "MONTHLY", "1.00")), http.StatusUnprocessableEntity},
		{"unresolvable", notificationBody(t, EventPaymentSucceeded, unresolvable),
			http.StatusUnprocessableEntity},
	}

	router := newTestRouter(t, newFakeGateway(), ledger)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(string(tt.body)))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"received":true}`, rec.Body.String())
			}
		})
	}
}

func TestWebhookStorageFailure(t *testing.T) {
	ledger := newMemLedger()
	ledger.applyErr = assert.AnError
	router := newTestRouter(t, newFakeGateway(), ledger)

	body := notificationBody(t, EventPaymentSucceeded, settledPayment("pay-1", "u-1", "MONTHLY", "400.00"))
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookBodyTooLarge(t *testing.T) {
	router := newTestRouter(t, newFakeGateway(), newMemLedger())

	big := strings.Repeat("x", maxWebhookBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(big))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// AngelaMos | 2026
// handler.go

package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gifty-app/gifty-api/internal/core"
	"github.com/gifty-app/gifty-api/internal/middleware"
)

const maxWebhookBodyBytes = 64 << 10

type CheckoutRequest struct {
	Period string `json:"period" validate:"required"`
}

type Handler struct {
	initiator *Initiator
	confirmer *Confirmer
	validator *validator.Validate
}

func NewHandler(initiator *Initiator, confirmer *Confirmer) *Handler {
	return &Handler{
		initiator: initiator,
		confirmer: confirmer,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/webhook", h.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Post("/", h.CreateCheckout)
		})
	})
}

func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	checkout, err := h.initiator.Initiate(
		r.Context(),
		req.Period,
		middleware.GetUserID(r.Context()),
		middleware.GetUserEmail(r.Context()),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, checkout)
}

// Webhook is the gateway's notification ingress. Anything that is not a
// confirmed, correlatable payment is acknowledged with 200 so the gateway
// stops retrying; storage failures return 500 so it retries later.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		core.BadRequest(w, "unreadable notification body")
		return
	}

	_, err = h.confirmer.Handle(r.Context(), body)
	switch {
	case err == nil:
		core.JSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, ErrMalformedNotification):
		core.BadRequest(w, "malformed notification")
	case errors.Is(err, ErrInvalidCorrelation),
		errors.Is(err, ErrAmountMismatch),
		errors.Is(err, ErrUnresolvableSubject):
		core.JSONError(w, core.NewAppError(
			err,
			err.Error(),
			http.StatusUnprocessableEntity,
			"UNPROCESSABLE_NOTIFICATION",
		))
	default:
		core.InternalServerError(w, err)
	}
}

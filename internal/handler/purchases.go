package handler

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/support-me/internal/apperr"
)

// Предел тела вебхука, который рекомендует Stripe.
const maxWebhookSize = 65536

// CreateCheckoutSession обрабатывает POST /api/v1/purchases/{id}/create-checkout-session.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	link, err := h.service.CreateCheckoutSession(r.Context(), claims.UserID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, map[string]string{"checkout_link": link})
}

// ManageSubscriptions обрабатывает PATCH /api/v1/purchases/manage и возвращает ссылку на портал клиента.
func (h *Handler) ManageSubscriptions(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	link, err := h.service.ManageSubscriptions(r.Context(), claims.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"customer_portal_session_url": link})
}

// StripeWebhook обрабатывает POST /api/v1/purchases/webhooks.
// Ошибка обработки возвращает 500, чтобы Stripe повторил доставку.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, apperr.ErrInvalidInput)
			return
		}
		h.writeError(w, r, err)
		return
	}

	outcome, err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Debug("webhook handled",
		zap.Stringer("action", outcome.Action),
		zap.String("reason", outcome.Reason),
	)
	writeJSON(w, r, http.StatusOK, message{Msg: "Stripe Webhooks"})
}

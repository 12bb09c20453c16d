package handler

import (
	"net/http"

	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/validation"
)

// ListSubscriptions обрабатывает GET /api/v1/subscriptions. Доступен без авторизации.
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := validation.Page(q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.ListSubscriptions(r.Context(), model.SubscriptionFilter{Username: q.Get("username"), Page: page})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newSubscriptionsResponse(res))
}

// CreateSubscription обрабатывает POST /api/v1/subscriptions (только CREATOR).
func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	form, err := parseForm(w, r, "title", "description", "price", "image")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	price, err := validation.Int(formValue(form, "price"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req := validation.SubscriptionForm{
		Title:       formValue(form, "title"),
		Description: formValue(form, "description"),
		Price:       price,
	}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	sub, err := h.service.CreateSubscription(r.Context(), claims.UserID, claims.Username, req, formFile(form, "image"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, map[string]subscriptionResponse{"subscription": newSubscriptionResponse(sub, true)})
}

// UpdateSubscription обрабатывает PATCH /api/v1/subscriptions/{id}. Цена плана не меняется.
func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	form, err := parseForm(w, r, "title", "description", "image")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	req := validation.SubscriptionForm{
		Title:       formValue(form, "title"),
		Description: formValue(form, "description"),
	}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	sub, err := h.service.UpdateSubscription(r.Context(), id, claims.UserID, claims.Username, req, formFile(form, "image"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]subscriptionResponse{"subscription": newSubscriptionResponse(sub, true)})
}

// DeleteSubscription обрабатывает DELETE /api/v1/subscriptions/{id}.
func (h *Handler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.DeleteSubscription(r.Context(), id, claims.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, message{Msg: "Deleted Subscription!"})
}

package handler

import (
	"net/http"

	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/validation"
)

// ListCashouts обрабатывает GET /api/v1/cashout (только ADMIN).
func (h *Handler) ListCashouts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := validation.Page(q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.ListCashouts(r.Context(), model.CashoutFilter{Username: q.Get("username"), Page: page})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newCashoutsResponse(res))
}

// ListPersonalCashouts обрабатывает GET /api/v1/cashout/personal: заявки текущего создателя.
func (h *Handler) ListPersonalCashouts(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	page, err := validation.Page(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.ListCashouts(r.Context(), model.CashoutFilter{UserID: claims.UserID, Page: page})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newCashoutsResponse(res))
}

// CreateCashout обрабатывает POST /api/v1/cashout. Сумма задаётся в единицах валюты.
func (h *Handler) CreateCashout(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	form, err := parseForm(w, r, "amount")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	amount, err := validation.Int(formValue(form, "amount"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req := validation.CashoutForm{Amount: amount}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, err := h.service.CreateCashout(r.Context(), claims.UserID, req.Amount); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, message{Msg: "Created Cashout"})
}

// UpdateCashout обрабатывает PATCH /api/v1/cashout/{id} (только ADMIN).
func (h *Handler) UpdateCashout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	form, err := parseForm(w, r, "status")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	req := validation.UpdateCashoutForm{Status: formValue(form, "status")}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	c, err := h.service.UpdateCashout(r.Context(), id, model.CashoutStatus(req.Status))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]cashoutResponse{"cashout": newCashoutResponse(c)})
}

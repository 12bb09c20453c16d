package handler

import (
	"net/http"

	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/validation"
)

// ListCreatorRequests обрабатывает GET /api/v1/creator-request (только ADMIN).
func (h *Handler) ListCreatorRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := validation.Page(q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status, err := validation.CreatorRequestStatus(q.Get("status"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.ListCreatorRequests(r.Context(), model.CreatorRequestFilter{
		Username: q.Get("username"),
		Status:   status,
		Page:     page,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newCreatorRequestsResponse(res))
}

// CreateCreatorRequest обрабатывает POST /api/v1/creator-request (только USER).
func (h *Handler) CreateCreatorRequest(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	form, err := parseForm(w, r, "explanation")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	req := validation.CreatorRequestForm{Explanation: formValue(form, "explanation")}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	created, err := h.service.CreateCreatorRequest(r.Context(), claims.UserID, req.Explanation)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, map[string]creatorRequestResponse{"creatorRequest": newCreatorRequestResponse(created)})
}

// DecideCreatorRequest обрабатывает PATCH /api/v1/creator-request/{id} (только ADMIN).
func (h *Handler) DecideCreatorRequest(w http.ResponseWriter, r *http.Request) {
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

	req := validation.DecideCreatorRequestForm{Status: formValue(form, "status")}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	decided, err := h.service.DecideCreatorRequest(r.Context(), id, model.CreatorRequestStatus(req.Status))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]creatorRequestResponse{"creatorRequest": newCreatorRequestResponse(decided)})
}

// DeleteCreatorRequest обрабатывает DELETE /api/v1/creator-request/{id}: автор отзывает свою заявку.
func (h *Handler) DeleteCreatorRequest(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.WithdrawCreatorRequest(r.Context(), id, claims.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, message{Msg: "Deleted Creator Request"})
}

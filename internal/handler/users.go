package handler

import (
	"net/http"

	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/validation"
)

// ListUsers обрабатывает GET /api/v1/users. Фильтр ?username= ищет по подстроке.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := validation.Page(q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.ListUsers(r.Context(), model.UserFilter{Username: q.Get("username"), Page: page})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newUsersResponse(res))
}

// ShowCurrentUser обрабатывает GET /api/v1/users/showCurrentUser.
func (h *Handler) ShowCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	user, err := h.service.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]*userResponse{"user": newUserResponse(user)})
}

// UpdateUser обрабатывает PATCH /api/v1/users/updateUser.
// После смены имени или email токен перевыпускается.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	form, err := parseForm(w, r, "fullName", "username", "email", "bio", "profilePicture", "coverPicture")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	req := validation.UpdateUserForm{
		FullName: formValue(form, "fullName"),
		Username: formValue(form, "username"),
		Email:    formValue(form, "email"),
		Bio:      formValue(form, "bio"),
	}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), claims.UserID, req,
		formFile(form, "profilePicture"), formFile(form, "coverPicture"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if !h.issueCookie(w, r, user) {
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]*userResponse{"user": newUserResponse(user)})
}

package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/validation"
)

// Register обрабатывает POST /api/v1/auth/register.
// Первый зарегистрированный пользователь становится администратором.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r, "fullName", "username", "email", "password", "bio", "profilePicture")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	req := validation.RegisterForm{
		FullName: formValue(form, "fullName"),
		Username: formValue(form, "username"),
		Email:    formValue(form, "email"),
		Password: formValue(form, "password"),
		Bio:      formValue(form, "bio"),
	}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.service.Register(r.Context(), req, formFile(form, "profilePicture"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	if user.Role == model.RoleAdmin {
		writeJSON(w, r, http.StatusCreated, message{Msg: "Successfully Created Admin Account!"})
		return
	}
	writeJSON(w, r, http.StatusCreated, message{Msg: "Success! Please check your email to verify account"})
}

// VerifyEmail обрабатывает POST /api/v1/auth/verify-email.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r, "email", "verificationToken")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	req := validation.VerifyEmailForm{
		Email:             formValue(form, "email"),
		VerificationToken: formValue(form, "verificationToken"),
	}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, message{Msg: "Verified Email Address!"})
}

// Login обрабатывает POST /api/v1/auth/login и устанавливает cookie с токеном.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r, "email", "password")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	req := validation.LoginForm{
		Email:    formValue(form, "email"),
		Password: formValue(form, "password"),
	}
	if err := validation.Struct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if !h.issueCookie(w, r, user) {
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]sessionUser{
		"user": {ID: user.ID, Username: user.Username, Email: user.Email, Role: user.Role},
	})
}

// Logout обрабатывает GET /api/v1/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	writeJSON(w, r, http.StatusOK, message{Msg: "Successfully Logged Out!"})
}

func (h *Handler) issueCookie(w http.ResponseWriter, r *http.Request, user *model.User) bool {
	token, err := h.authMiddleware.IssueToken(user)
	if err != nil {
		h.writeError(w, r, err)
		return false
	}
	h.authMiddleware.SetAuthCookie(w, token)
	return true
}

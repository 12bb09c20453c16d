package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/support-me/internal/apperr"
	"github.com/mmeshcher/support-me/internal/repository"
)

const internalErrorMessage = "Something went wrong, try again later!"

// writeError переводит ошибку в ответ {"msg": ...}. Нарушения бизнес-правил отдаются клиенту как есть,
// нарушения ограничений БД считаются ошибкой ввода, остальное логируется и отдаётся как 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := apperr.As(err); ok {
		writeJSON(w, r, appErr.Status, message{Msg: appErr.Message})
		return
	}

	if repository.IsIntegrityViolation(err) {
		writeJSON(w, r, apperr.ErrInvalidInput.Status, message{Msg: apperr.ErrInvalidInput.Message})
		return
	}

	h.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("uri", r.RequestURI),
		zap.Error(err),
	)
	writeJSON(w, r, http.StatusInternalServerError, message{Msg: internalErrorMessage})
}

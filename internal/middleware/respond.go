package middleware

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/mmeshcher/support-me/internal/apperr"
)

func writeError(w http.ResponseWriter, r *http.Request, err *apperr.Error) {
	render.Status(r, err.Status)
	render.JSON(w, r, map[string]string{"msg": err.Message})
}

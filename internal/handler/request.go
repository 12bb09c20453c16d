package handler

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/support-me/internal/apperr"
	"github.com/mmeshcher/support-me/internal/validation"
)

// maxFormSize ограничивает тело формы: до двух изображений по 2 МБ и текстовые поля.
const maxFormSize = 5 << 20

// parseForm разбирает multipart или urlencoded форму и отклоняет поля кроме allowed.
func parseForm(w http.ResponseWriter, r *http.Request, allowed ...string) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)

	var form *multipart.Form
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxFormSize); err != nil {
			return nil, apperr.ErrInvalidInput
		}
		form = r.MultipartForm
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, apperr.ErrInvalidInput
		}
		form = &multipart.Form{Value: r.PostForm}
	}

	if err := validation.OnlyFields(form, allowed...); err != nil {
		return nil, err
	}
	return form, nil
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func formFile(form *multipart.Form, key string) *multipart.FileHeader {
	if files := form.File[key]; len(files) > 0 {
		return files[0]
	}
	return nil
}

func pathID(r *http.Request) (string, error) {
	return validation.ID(chi.URLParam(r, "id"))
}

// Package validation проверяет входные данные HTTP-запросов.
package validation

import (
	"mime/multipart"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mmeshcher/support-me/internal/apperr"
	"github.com/mmeshcher/support-me/internal/model"
)

var validate = validator.New()

// RegisterForm содержит поля формы регистрации.
type RegisterForm struct {
	FullName string `validate:"required,max=256"`
	Username string `validate:"required,max=12"`
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,max=60"`
	Bio      string `validate:"required,max=1000"`
}

// LoginForm содержит поля формы входа.
type LoginForm struct {
	Email    string `validate:"required,email,max=256"`
	Password string `validate:"required,max=60"`
}

// VerifyEmailForm содержит поля формы подтверждения email.
type VerifyEmailForm struct {
	Email             string `validate:"required,email,max=256"`
	VerificationToken string `validate:"required"`
}

// UpdateUserForm содержит поля формы изменения профиля.
type UpdateUserForm struct {
	FullName string `validate:"required,max=256"`
	Username string `validate:"required,max=12"`
	Email    string `validate:"required,email,max=255"`
	Bio      string `validate:"required,max=1000"`
}

// CreatorRequestForm содержит поля заявки на роль создателя.
type CreatorRequestForm struct {
	Explanation string `validate:"required,max=1000"`
}

// DecideCreatorRequestForm содержит решение администратора по заявке.
type DecideCreatorRequestForm struct {
	Status string `validate:"required,oneof=ACCEPTED REJECTED"`
}

// SubscriptionForm содержит поля плана. Price проверяется только при создании.
type SubscriptionForm struct {
	Title       string `validate:"required,max=256"`
	Description string `validate:"required,max=1000"`
	Price       int64  `validate:"omitempty,gt=0"`
}

// CashoutForm содержит сумму вывода в отображаемых единицах.
type CashoutForm struct {
	Amount int64 `validate:"gt=0,lte=92233720368547758"`
}

// UpdateCashoutForm содержит новый статус заявки на вывод.
type UpdateCashoutForm struct {
	Status string `validate:"required,oneof=PENDING PAID"`
}

type pageQuery struct {
	Page  int `validate:"min=1"`
	Limit int `validate:"min=1,max=100"`
}

// Struct проверяет форму по тегам validate.
func Struct(form any) error {
	if err := validate.Struct(form); err != nil {
		return apperr.ErrInvalidInput
	}
	return nil
}

// OnlyFields проверяет, что в форме нет полей кроме allowed.
func OnlyFields(form *multipart.Form, allowed ...string) error {
	if form == nil {
		return nil
	}
	known := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		known[name] = struct{}{}
	}
	for name := range form.Value {
		if _, ok := known[name]; !ok {
			return apperr.ErrInvalidInput
		}
	}
	for name := range form.File {
		if _, ok := known[name]; !ok {
			return apperr.ErrInvalidInput
		}
	}
	return nil
}

// Int разбирает целое число из поля формы. Пустое значение даёт 0.
func Int(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.ErrInvalidInput
	}
	return v, nil
}

// ID проверяет идентификатор из пути запроса.
func ID(raw string) (string, error) {
	if err := uuid.Validate(raw); err != nil {
		return "", apperr.ErrInvalidPath
	}
	return raw, nil
}

// Page разбирает параметры page и limit из строки запроса.
func Page(q url.Values) (model.Page, error) {
	p := pageQuery{Page: model.DefaultPage, Limit: model.DefaultLimit}

	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return model.Page{}, apperr.ErrInvalidQuery
		}
		p.Page = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return model.Page{}, apperr.ErrInvalidQuery
		}
		p.Limit = v
	}

	if err := validate.Struct(p); err != nil {
		return model.Page{}, apperr.ErrInvalidQuery
	}
	return model.Page{Page: p.Page, Limit: p.Limit}, nil
}

// CreatorRequestStatus разбирает необязательный фильтр по статусу заявки.
func CreatorRequestStatus(raw string) (model.CreatorRequestStatus, error) {
	if raw == "" {
		return "", nil
	}
	s := model.CreatorRequestStatus(raw)
	if !s.Valid() {
		return "", apperr.ErrInvalidQuery
	}
	return s, nil
}

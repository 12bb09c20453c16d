package repository

import "errors"

var (
	// ErrNotFound возвращается, если запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate возвращается при нарушении уникальности (логин, email, заявка).
	ErrDuplicate = errors.New("record already exists")
	// ErrInsufficientBalance возвращается при попытке списания суммы, превышающей баланс.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidTransition возвращается при недопустимой смене статуса.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrLimitReached возвращается, если у создателя уже максимум планов.
	ErrLimitReached = errors.New("subscription limit reached")
)

// Package model содержит доменные сущности сервиса Support Me.
package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Role описывает роль пользователя платформы.
type Role string

const (
	RoleUser    Role = "USER"
	RoleCreator Role = "CREATOR"
	RoleAdmin   Role = "ADMIN"
)

// Valid сообщает, является ли значение известной ролью.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleCreator, RoleAdmin:
		return true
	}
	return false
}

// User представляет зарегистрированного пользователя платформы.
type User struct {
	ID                string
	FullName          string
	Username          string
	Email             string
	PasswordHash      string
	Bio               string
	ProfilePicture    string
	CoverPicture      string
	VerificationToken string
	IsVerified        bool
	VerifiedAt        *time.Time
	Role              Role
	CustomerID        *string
	// Баланс создателя в центах.
	Amount    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Public возвращает копию пользователя без пароля и токена подтверждения.
func (u User) Public() User {
	u.PasswordHash = ""
	u.VerificationToken = ""
	return u
}

// NewUser содержит данные для регистрации пользователя.
type NewUser struct {
	FullName          string
	Username          string
	Email             string
	PasswordHash      string
	Bio               string
	ProfilePicture    string
	VerificationToken string
}

// ProfileUpdate содержит изменяемые поля профиля. Пустые пути картинок не меняют текущие.
type ProfileUpdate struct {
	FullName       string
	Username       string
	Email          string
	Bio            string
	ProfilePicture string
	CoverPicture   string
}

// Subscription описывает тарифный план, который создатель предлагает подписчикам.
type Subscription struct {
	ID          string
	Title       string
	Description string
	// Ежемесячная цена в центах.
	Price     int64
	Image     string
	ProductID string
	UserID    string
	User      *User
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MaxSubscriptionsPerCreator ограничивает число планов у одного создателя.
const MaxSubscriptionsPerCreator = 3

// Purchase связывает покупателя с планом и подпиской в платёжном шлюзе.
type Purchase struct {
	ID                   string
	StripeSubscriptionID string
	Status               PurchaseStatus
	UserID               string
	SubscriptionID       *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Cashout описывает заявку создателя на вывод средств.
type Cashout struct {
	ID string
	// Amount хранится в центах.
	Amount    int64
	Status    CashoutStatus
	UserID    string
	User      *User
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreatorRequest описывает заявку пользователя на роль создателя.
type CreatorRequest struct {
	ID          string
	Explanation string
	Status      CreatorRequestStatus
	UserID      string
	User        *User
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CentsToUnits переводит сумму в центах в отображаемые единицы валюты.
func CentsToUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// MaxUnits ограничивает сумму в отображаемых единицах так, чтобы её значение в центах помещалось в int64.
const MaxUnits = math.MaxInt64 / 100

// UnitsToCents переводит целое число отображаемых единиц в центы.
// Значение units не должно превышать MaxUnits.
func UnitsToCents(units int64) int64 {
	return decimal.NewFromInt(units).Shift(2).IntPart()
}

// Package apperr описывает ошибки бизнес-правил, которые передаются клиенту как есть.
package apperr

import (
	"errors"
	"net/http"
)

// Error описывает нарушение бизнес-правила с сообщением и HTTP-статусом для клиента.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New создаёт ошибку с указанным статусом и сообщением.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// BadRequest создаёт ошибку со статусом 400.
func BadRequest(message string) *Error { return New(http.StatusBadRequest, message) }

// NotFound создаёт ошибку со статусом 404.
func NotFound(message string) *Error { return New(http.StatusNotFound, message) }

// Unauthorized создаёт ошибку со статусом 401.
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }

// Forbidden создаёт ошибку со статусом 403.
func Forbidden(message string) *Error { return New(http.StatusForbidden, message) }

// As извлекает *Error из цепочки ошибок.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Ошибки, общие для нескольких слоёв.
var (
	ErrInvalidInput  = BadRequest("Please check all inputs!")
	ErrInvalidPath   = BadRequest("Invalid Value Provided for Route Parameters")
	ErrInvalidQuery  = BadRequest("Invalid Key Provided for Query Parameters")
	ErrInvalidHeader = BadRequest("Please check your headers!")

	ErrMissingToken  = Unauthorized("Missing Token")
	ErrInvalidToken  = Unauthorized("Invalid Token")
	ErrForbiddenRole = Forbidden("You are not authorized to access this route!")

	ErrUserExists        = BadRequest("A user with this username/email already exists!")
	ErrUserTaken         = BadRequest("Someone is already using the provided username/email!")
	ErrUserNotFound      = NotFound("No User Found with the Email Provided!")
	ErrUserUnknownEmail  = Unauthorized("No User Found with the Email Provided!")
	ErrAlreadyVerified   = BadRequest("This user has already been verified!")
	ErrWrongVerification = Unauthorized("Incorrect Verification Token Value")
	ErrWrongPassword     = BadRequest("Incorrect Password!")
	ErrNotVerified       = BadRequest("Please verify your email!")

	ErrCreatorRequestExists   = BadRequest("You already created a creator request!")
	ErrCreatorRequestNotFound = NotFound("No Creator Request Found with the ID Provided!")
	ErrCreatorRequestDecided  = BadRequest("You already accepted/rejected this creator request!")

	ErrSubscriptionLimit    = BadRequest("A creator is limited to creating a maximum of 3 subscription types!")
	ErrSubscriptionNotFound = NotFound("No Subscription Found with the ID Provided!")
	ErrAlreadySubscribed    = BadRequest("You cannot create a checkout session for something you are already subscribed to!")
	ErrResubscribeRequired  = BadRequest("You cannot create a new Stripe checkout session for a subscription you've already canceled! Instead now you need to ping the resubscribe route!")

	ErrInsufficientFunds = BadRequest("You don't have enough money to process this cashout!")
	ErrCashoutNotFound   = NotFound("No Cashout Found with the ID Provided!")
	ErrCashoutPaid       = BadRequest("You cannot change the status of a cashout post payment!")
	ErrCashoutTransition = BadRequest("A cashout can only move from PENDING to PAID!")

	ErrWebhookSignature = BadRequest("Web Hook something went wrong")
	ErrGateway          = BadRequest("Payment provider request failed, try again later!")
)

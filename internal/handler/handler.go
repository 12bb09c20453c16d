// Package handler содержит HTTP-обработчики API сервиса Support Me.
package handler

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/mmeshcher/support-me/internal/apperr"
	"github.com/mmeshcher/support-me/internal/middleware"
	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/reconciler"
	"github.com/mmeshcher/support-me/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Register(ctx context.Context, form validation.RegisterForm, picture *multipart.FileHeader) (*model.User, error)
	VerifyEmail(ctx context.Context, form validation.VerifyEmailForm) error
	Login(ctx context.Context, form validation.LoginForm) (*model.User, error)

	CurrentUser(ctx context.Context, userID string) (*model.User, error)
	ListUsers(ctx context.Context, f model.UserFilter) (model.Result[model.User], error)
	UpdateProfile(ctx context.Context, userID string, form validation.UpdateUserForm, profile, cover *multipart.FileHeader) (*model.User, error)

	CreateCreatorRequest(ctx context.Context, userID, explanation string) (*model.CreatorRequest, error)
	ListCreatorRequests(ctx context.Context, f model.CreatorRequestFilter) (model.Result[model.CreatorRequest], error)
	DecideCreatorRequest(ctx context.Context, id string, status model.CreatorRequestStatus) (*model.CreatorRequest, error)
	WithdrawCreatorRequest(ctx context.Context, id, userID string) error

	ListSubscriptions(ctx context.Context, f model.SubscriptionFilter) (model.Result[model.Subscription], error)
	CreateSubscription(ctx context.Context, ownerID, ownerUsername string, form validation.SubscriptionForm, image *multipart.FileHeader) (*model.Subscription, error)
	UpdateSubscription(ctx context.Context, id, ownerID, ownerUsername string, form validation.SubscriptionForm, image *multipart.FileHeader) (*model.Subscription, error)
	DeleteSubscription(ctx context.Context, id, ownerID string) error

	CreateCheckoutSession(ctx context.Context, buyerID, subscriptionID string) (string, error)
	ManageSubscriptions(ctx context.Context, userID string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (reconciler.Outcome, error)

	CreateCashout(ctx context.Context, userID string, amount int64) (*model.Cashout, error)
	UpdateCashout(ctx context.Context, id string, status model.CashoutStatus) (*model.Cashout, error)
	ListCashouts(ctx context.Context, f model.CashoutFilter) (model.Result[model.Cashout], error)
}

// Handler реализует HTTP-обработчики API сервиса Support Me.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type message struct {
	Msg string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// claims возвращает данные пользователя из токена. Маршруты с ролями всегда проходят через проверку токена.
func (h *Handler) claims(w http.ResponseWriter, r *http.Request) (*middleware.Claims, bool) {
	c, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperr.ErrMissingToken)
		return nil, false
	}
	return c, true
}

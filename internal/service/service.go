// Package service реализует бизнес-логику сервиса Support Me.
package service

import (
	"context"
	"mime/multipart"

	"go.uber.org/zap"

	"github.com/mmeshcher/support-me/internal/apperr"
	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/reconciler"
	"github.com/mmeshcher/support-me/internal/storage"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	CreateUser(ctx context.Context, nu model.NewUser) (*model.User, error)
	SetCustomerID(ctx context.Context, userID, customerID string) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	MarkVerified(ctx context.Context, userID string) error
	UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) (*model.User, error)
	UsernameOrEmailTaken(ctx context.Context, exceptUserID, username, email string) (bool, error)
	ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, int, error)

	CreateCreatorRequest(ctx context.Context, userID, explanation string) (*model.CreatorRequest, error)
	ListCreatorRequests(ctx context.Context, f model.CreatorRequestFilter) ([]model.CreatorRequest, int, error)
	DecideCreatorRequest(ctx context.Context, id string, next model.CreatorRequestStatus) (*model.CreatorRequest, error)
	DeleteCreatorRequest(ctx context.Context, id, userID string) error

	CountSubscriptions(ctx context.Context, userID string) (int, error)
	CreateSubscription(ctx context.Context, s model.Subscription) (*model.Subscription, error)
	GetSubscription(ctx context.Context, id string) (*model.Subscription, error)
	GetOwnedSubscription(ctx context.Context, id, ownerID string) (*model.Subscription, error)
	UpdateSubscription(ctx context.Context, id, ownerID, title, description, image string) (*model.Subscription, error)
	ListSubscriptions(ctx context.Context, f model.SubscriptionFilter) ([]model.Subscription, int, error)
	DeleteSubscription(ctx context.Context, id, ownerID string) (*model.Subscription, []string, error)

	GetPurchase(ctx context.Context, buyerID, subscriptionID string) (*model.Purchase, error)

	CreateCashout(ctx context.Context, userID string, debit int64) (*model.Cashout, error)
	GetCashoutStatus(ctx context.Context, id string) (model.CashoutStatus, error)
	UpdateCashoutStatus(ctx context.Context, id string, next model.CashoutStatus) (*model.Cashout, error)
	ListCashouts(ctx context.Context, f model.CashoutFilter) ([]model.Cashout, int, error)
}

// Gateway описывает операции платёжного шлюза.
type Gateway interface {
	CreateCustomer(ctx context.Context, userID, name, email string) (string, error)
	CreateProduct(ctx context.Context, title, description string, price int64) (string, error)
	TagProduct(ctx context.Context, productID, subscriptionID string) error
	UpdateProduct(ctx context.Context, productID, title, description string) error
	DeactivateProduct(ctx context.Context, productID string) error
	SubscriptionStatus(ctx context.Context, stripeSubscriptionID string) (string, error)
	CancelSubscription(ctx context.Context, stripeSubscriptionID string) error
	CreateCheckoutSession(ctx context.Context, customerID, productID, subscriptionID string) (string, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
	ParseEvent(payload []byte, signature string) (*model.SubscriptionEvent, error)
}

// Files сохраняет и удаляет загруженные изображения.
type Files interface {
	Save(kind storage.Kind, prefix string, fh *multipart.FileHeader) (string, error)
	Delete(stored string) error
}

// Mailer отправляет письма пользователям.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
}

// Cache кэширует ответы каталога.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// Reconciler применяет события подписок из платёжного шлюза.
type Reconciler interface {
	Handle(ctx context.Context, ev *model.SubscriptionEvent) (reconciler.Outcome, error)
}

// Service содержит бизнес-логику сервиса Support Me.
type Service struct {
	repo       Repository
	gateway    Gateway
	files      Files
	mailer     Mailer
	reconciler Reconciler
	cache      Cache
	logger     *zap.Logger
}

// NewService создаёт сервис. Кэш каталога подключается отдельно через WithCache.
func NewService(repo Repository, gateway Gateway, files Files, mailer Mailer, rec Reconciler, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		gateway:    gateway,
		files:      files,
		mailer:     mailer,
		reconciler: rec,
		logger:     logger,
	}
}

// WithCache включает кэширование каталога планов.
func (s *Service) WithCache(c Cache) *Service {
	s.cache = c
	return s
}

// gatewayError логирует сбой платёжного шлюза и возвращает клиентскую ошибку.
func (s *Service) gatewayError(msg string, err error, fields ...zap.Field) error {
	s.logger.Error(msg, append(fields, zap.Error(err))...)
	return apperr.ErrGateway
}

// deleteFile удаляет файл, ошибку только логирует.
func (s *Service) deleteFile(stored string) {
	if stored == "" {
		return
	}
	if err := s.files.Delete(stored); err != nil {
		s.logger.Warn("failed to delete file", zap.String("path", stored), zap.Error(err))
	}
}

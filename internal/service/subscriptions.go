package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/support-me/internal/apperr"
	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/repository"
	"github.com/mmeshcher/support-me/internal/storage"
	"github.com/mmeshcher/support-me/internal/validation"
)

const catalogCachePrefix = "subscriptions:"

func catalogCacheKey(f model.SubscriptionFilter) string {
	return fmt.Sprintf("%s%s:%d:%d", catalogCachePrefix, f.Username, f.Page.Page, f.Limit)
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePrefix(ctx, catalogCachePrefix); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}

// ListSubscriptions возвращает страницу каталога планов. Ответ кэшируется, если кэш подключён.
func (s *Service) ListSubscriptions(ctx context.Context, f model.SubscriptionFilter) (model.Result[model.Subscription], error) {
	key := catalogCacheKey(f)

	if s.cache != nil {
		var cached model.Result[model.Subscription]
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		if found {
			return cached, nil
		}
	}

	subs, total, err := s.repo.ListSubscriptions(ctx, f)
	if err != nil {
		return model.Result[model.Subscription]{}, err
	}
	for i := range subs {
		if subs[i].User != nil {
			owner := subs[i].User.Public()
			subs[i].User = &owner
		}
	}
	res := model.NewResult(subs, total, f.Page)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, res); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return res, nil
}

// CreateSubscription создаёт план создателя вместе с продуктом и ежемесячной ценой в платёжном шлюзе.
func (s *Service) CreateSubscription(ctx context.Context, ownerID, ownerUsername string, form validation.SubscriptionForm, image *multipart.FileHeader) (*model.Subscription, error) {
	if form.Price <= 0 {
		return nil, apperr.ErrInvalidInput
	}

	count, err := s.repo.CountSubscriptions(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if count >= model.MaxSubscriptionsPerCreator {
		return nil, apperr.ErrSubscriptionLimit
	}

	if err := storage.Validate(storage.SubscriptionImage, image); err != nil {
		return nil, err
	}
	stored, err := s.files.Save(storage.SubscriptionImage, ownerUsername, image)
	if err != nil {
		return nil, err
	}

	productID, err := s.gateway.CreateProduct(ctx, form.Title, form.Description, form.Price)
	if err != nil {
		s.deleteFile(stored)
		return nil, s.gatewayError("create product failed", err, zap.String("user_id", ownerID))
	}

	sub, err := s.repo.CreateSubscription(ctx, model.Subscription{
		ID:          uuid.NewString(),
		Title:       form.Title,
		Description: form.Description,
		Price:       form.Price,
		Image:       stored,
		ProductID:   productID,
		UserID:      ownerID,
	})
	if err != nil {
		s.deleteFile(stored)
		s.deactivateProduct(ctx, productID)
		if errors.Is(err, repository.ErrLimitReached) {
			return nil, apperr.ErrSubscriptionLimit
		}
		return nil, err
	}

	if err := s.gateway.TagProduct(ctx, productID, sub.ID); err != nil {
		// Без метаданных события оплаты нельзя сопоставить с планом.
		if _, _, derr := s.repo.DeleteSubscription(ctx, sub.ID, ownerID); derr != nil {
			s.logger.Error("failed to roll back subscription", zap.String("subscription_id", sub.ID), zap.Error(derr))
		}
		s.deleteFile(stored)
		s.deactivateProduct(ctx, productID)
		return nil, s.gatewayError("tag product failed", err, zap.String("subscription_id", sub.ID))
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("subscription created",
		zap.String("subscription_id", sub.ID),
		zap.String("user_id", ownerID),
		zap.Int64("price", sub.Price),
	)
	return sub, nil
}

func (s *Service) deactivateProduct(ctx context.Context, productID string) {
	if err := s.gateway.DeactivateProduct(ctx, productID); err != nil {
		s.logger.Warn("failed to deactivate product", zap.String("product_id", productID), zap.Error(err))
	}
}

// UpdateSubscription меняет название и описание плана и, если передана, его картинку.
func (s *Service) UpdateSubscription(ctx context.Context, id, ownerID, ownerUsername string, form validation.SubscriptionForm, image *multipart.FileHeader) (*model.Subscription, error) {
	current, err := s.repo.GetOwnedSubscription(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrSubscriptionNotFound
		}
		return nil, err
	}

	if image != nil {
		if err := storage.Validate(storage.SubscriptionImage, image); err != nil {
			return nil, err
		}
	}

	if err := s.gateway.UpdateProduct(ctx, current.ProductID, form.Title, form.Description); err != nil {
		return nil, s.gatewayError("update product failed", err, zap.String("subscription_id", id))
	}

	var stored string
	if image != nil {
		if stored, err = s.files.Save(storage.SubscriptionImage, ownerUsername, image); err != nil {
			return nil, err
		}
	}

	if _, err := s.repo.UpdateSubscription(ctx, id, ownerID, form.Title, form.Description, stored); err != nil {
		s.deleteFile(stored)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrSubscriptionNotFound
		}
		return nil, err
	}
	if stored != "" {
		s.deleteFile(current.Image)
	}

	s.invalidateCatalog(ctx)

	updated, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return updated, nil
}

// DeleteSubscription удаляет план: все его покупки становятся EXPIRED, подписки в шлюзе отменяются.
func (s *Service) DeleteSubscription(ctx context.Context, id, ownerID string) error {
	deleted, stripeIDs, err := s.repo.DeleteSubscription(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrSubscriptionNotFound
		}
		return err
	}

	log := s.logger.With(zap.String("subscription_id", id), zap.String("product_id", deleted.ProductID))
	for _, stripeID := range stripeIDs {
		if err := s.gateway.CancelSubscription(ctx, stripeID); err != nil {
			log.Error("failed to cancel stripe subscription", zap.String("stripe_subscription_id", stripeID), zap.Error(err))
		}
	}
	s.deactivateProduct(ctx, deleted.ProductID)
	s.deleteFile(deleted.Image)
	s.invalidateCatalog(ctx)

	log.Info("subscription deleted", zap.Int("expired_purchases", len(stripeIDs)))
	return nil
}

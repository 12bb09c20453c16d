package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/support-me/internal/apperr"
	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/reconciler"
	"github.com/mmeshcher/support-me/internal/repository"
)

// CreateCheckoutSession открывает оплату подписки на план subscriptionID и возвращает ссылку на неё.
func (s *Service) CreateCheckoutSession(ctx context.Context, buyerID, subscriptionID string) (string, error) {
	purchase, err := s.repo.GetPurchase(ctx, buyerID, subscriptionID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}

	if purchase != nil {
		status, err := s.gateway.SubscriptionStatus(ctx, purchase.StripeSubscriptionID)
		if err != nil {
			return "", s.gatewayError("get subscription status failed", err,
				zap.String("stripe_subscription_id", purchase.StripeSubscriptionID))
		}
		if status == "active" && purchase.Status != model.PurchaseStatusExpired {
			return "", apperr.ErrAlreadySubscribed
		}
	}

	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.ErrSubscriptionNotFound
		}
		return "", err
	}
	// Свой план купить нельзя.
	if sub.UserID == buyerID {
		return "", apperr.ErrSubscriptionNotFound
	}

	if purchase != nil && purchase.Status == model.PurchaseStatusCanceled {
		return "", apperr.ErrResubscribeRequired
	}

	buyer, err := s.CurrentUser(ctx, buyerID)
	if err != nil {
		return "", err
	}
	customerID, err := s.ensureCustomer(ctx, buyer)
	if err != nil {
		return "", err
	}

	link, err := s.gateway.CreateCheckoutSession(ctx, customerID, sub.ProductID, sub.ID)
	if err != nil {
		return "", s.gatewayError("create checkout session failed", err, zap.String("subscription_id", sub.ID))
	}
	return link, nil
}

// ManageSubscriptions возвращает ссылку на портал, где покупатель управляет своими подписками.
func (s *Service) ManageSubscriptions(ctx context.Context, userID string) (string, error) {
	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return "", err
	}
	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	link, err := s.gateway.CreatePortalSession(ctx, customerID)
	if err != nil {
		return "", s.gatewayError("create portal session failed", err, zap.String("user_id", userID))
	}
	return link, nil
}

// HandleWebhook проверяет подпись события платёжного шлюза и применяет его.
// Повторная доставка уже обработанного события не является ошибкой.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (reconciler.Outcome, error) {
	ev, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		s.logger.Warn("webhook rejected", zap.Error(err))
		return reconciler.Outcome{}, apperr.ErrWebhookSignature
	}

	out, err := s.reconciler.Handle(ctx, ev)
	if errors.Is(err, repository.ErrEventProcessed) {
		return reconciler.Outcome{Action: reconciler.ActionNone, Reason: "already processed"}, nil
	}
	return out, err
}

package reconciler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/support-me/internal/metrics"
	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/repository"
)

// Store описывает операции хранилища, которые нужны для применения событий.
type Store interface {
	GetPurchase(ctx context.Context, buyerID, subscriptionID string) (*model.Purchase, error)
	RecordPurchase(ctx context.Context, eventID, eventType string, p model.Purchase) (int64, error)
	CreditRenewal(ctx context.Context, eventID, eventType, buyerID, subscriptionID string) (int64, error)
	SetPurchaseStatus(ctx context.Context, eventID, eventType, stripeSubscriptionID string, from, to model.PurchaseStatus) error
}

// Lookup разрешает идентификаторы шлюза в идентификаторы сервиса через метаданные.
type Lookup interface {
	CustomerUserID(ctx context.Context, customerID string) (string, error)
	ProductSubscriptionID(ctx context.Context, productID string) (string, error)
}

// Reconciler применяет события подписок к покупкам и балансам создателей.
type Reconciler struct {
	store  Store
	lookup Lookup
	logger *zap.Logger
}

// New создаёт Reconciler.
func New(store Store, lookup Lookup, logger *zap.Logger) *Reconciler {
	return &Reconciler{store: store, lookup: lookup, logger: logger}
}

// Handle применяет событие. Повторно присланное событие возвращает repository.ErrEventProcessed.
func (r *Reconciler) Handle(ctx context.Context, ev *model.SubscriptionEvent) (Outcome, error) {
	if ev.Kind == model.EventOther {
		metrics.WebhookEventsTotal.WithLabelValues(ev.Type, ActionNone.String()).Inc()
		return Outcome{Action: ActionNone, Reason: "unhandled event type"}, nil
	}

	buyerID, err := r.lookup.CustomerUserID(ctx, ev.CustomerID)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve buyer: %w", err)
	}
	subscriptionID, err := r.lookup.ProductSubscriptionID(ctx, ev.ProductID)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve subscription: %w", err)
	}

	var current *model.PurchaseStatus
	purchase, err := r.store.GetPurchase(ctx, buyerID, subscriptionID)
	switch {
	case err == nil:
		st := purchase.Status
		current = &st
	case errors.Is(err, repository.ErrNotFound):
	default:
		return Outcome{}, fmt.Errorf("get purchase: %w", err)
	}

	out := Transition(current, ev.Kind, ChangeSet(ev.Previous))

	log := r.logger.With(
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type),
		zap.String("stripe_subscription_id", ev.StripeSubscriptionID),
		zap.String("buyer_id", buyerID),
		zap.String("subscription_id", subscriptionID),
		zap.String("action", out.Action.String()),
	)

	switch out.Action {
	case ActionCreate:
		credited, err := r.store.RecordPurchase(ctx, ev.ID, ev.Type, model.Purchase{
			StripeSubscriptionID: ev.StripeSubscriptionID,
			UserID:               buyerID,
			SubscriptionID:       &subscriptionID,
		})
		if err != nil {
			return out, r.fail(log, err)
		}
		metrics.LedgerCreditedCents.Add(float64(credited))
		log.Info("purchase recorded", zap.Int64("credited", credited))

	case ActionRenew:
		credited, err := r.store.CreditRenewal(ctx, ev.ID, ev.Type, buyerID, subscriptionID)
		if err != nil {
			return out, r.fail(log, err)
		}
		metrics.LedgerCreditedCents.Add(float64(credited))
		log.Info("subscription renewed", zap.Int64("credited", credited))

	case ActionSetStatus:
		if err := r.store.SetPurchaseStatus(ctx, ev.ID, ev.Type, purchase.StripeSubscriptionID, *current, out.Status); err != nil {
			return out, r.fail(log, err)
		}
		log.Info("purchase status changed",
			zap.String("from", string(*current)),
			zap.String("to", string(out.Status)),
		)

	default:
		log.Debug("webhook event skipped", zap.String("reason", out.Reason))
	}

	metrics.WebhookEventsTotal.WithLabelValues(ev.Type, out.Action.String()).Inc()
	return out, nil
}

func (r *Reconciler) fail(log *zap.Logger, err error) error {
	if errors.Is(err, repository.ErrEventProcessed) {
		log.Info("webhook event already processed")
		return err
	}
	log.Error("failed to apply webhook event", zap.Error(err))
	return fmt.Errorf("apply event: %w", err)
}

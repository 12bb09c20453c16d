package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/mmeshcher/support-me/internal/model"
)

// ErrSignature возвращается, если подпись вебхука не прошла проверку.
var ErrSignature = errors.New("invalid webhook signature")

// ParseEvent проверяет подпись тела вебхука и приводит событие подписки к доменному виду.
// События других типов возвращаются с Kind = EventOther.
func (s *Stripe) ParseEvent(payload []byte, signature string) (*model.SubscriptionEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	ev := &model.SubscriptionEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Kind: model.EventOther,
	}

	switch model.EventKind(event.Type) {
	case model.EventSubscriptionCreated, model.EventSubscriptionUpdated:
		ev.Kind = model.EventKind(event.Type)
	default:
		return ev, nil
	}

	if event.Data == nil {
		return nil, fmt.Errorf("event %s has no data", event.ID)
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}

	ev.StripeSubscriptionID = sub.ID
	if sub.Customer != nil {
		ev.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil && item.Price.Product != nil {
			ev.ProductID = item.Price.Product.ID
		}
	}
	if ev.CustomerID == "" || ev.ProductID == "" {
		return nil, fmt.Errorf("event %s: subscription %s lacks customer or product", event.ID, sub.ID)
	}

	ev.Previous = event.Data.PreviousAttributes
	if ev.Previous == nil {
		ev.Previous = map[string]any{}
	}

	return ev, nil
}

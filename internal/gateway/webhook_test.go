package gateway

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/mmeshcher/support-me/internal/model"
)

const testWebhookSecret = "whsec_test_secret"

func sign(t *testing.T, payload string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

const subscriptionUpdatedPayload = `{
  "id": "evt_1",
  "object": "event",
  "type": "customer.subscription.updated",
  "data": {
    "object": {
      "id": "sub_1",
      "object": "subscription",
      "customer": "cus_1",
      "status": "active",
      "items": {
        "object": "list",
        "data": [
          {"id": "si_1", "object": "subscription_item", "price": {"id": "price_1", "object": "price", "product": "prod_1"}}
        ]
      }
    },
    "previous_attributes": {"cancel_at_period_end": false, "canceled_at": null}
  }
}`

func TestParseEvent_SubscriptionUpdated(t *testing.T) {
	s := New("sk_test", testWebhookSecret, "http://localhost:3000/")

	ev, err := s.ParseEvent([]byte(subscriptionUpdatedPayload), sign(t, subscriptionUpdatedPayload))
	require.NoError(t, err)

	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, model.EventSubscriptionUpdated, ev.Kind)
	assert.Equal(t, "sub_1", ev.StripeSubscriptionID)
	assert.Equal(t, "cus_1", ev.CustomerID)
	assert.Equal(t, "prod_1", ev.ProductID)
	assert.Contains(t, ev.Previous, "cancel_at_period_end")
	assert.Contains(t, ev.Previous, "canceled_at")
}

func TestParseEvent_OtherType(t *testing.T) {
	s := New("sk_test", testWebhookSecret, "")
	payload := `{"id": "evt_2", "object": "event", "type": "invoice.paid", "data": {"object": {"id": "in_1", "object": "invoice"}}}`

	ev, err := s.ParseEvent([]byte(payload), sign(t, payload))
	require.NoError(t, err)
	assert.Equal(t, model.EventOther, ev.Kind)
	assert.Equal(t, "invoice.paid", ev.Type)
}

func TestParseEvent_BadSignature(t *testing.T) {
	s := New("sk_test", testWebhookSecret, "")

	_, err := s.ParseEvent([]byte(subscriptionUpdatedPayload), "t=1,v1=deadbeef")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSignature))
}

func TestParseEvent_TamperedBody(t *testing.T) {
	s := New("sk_test", testWebhookSecret, "")
	header := sign(t, subscriptionUpdatedPayload)

	_, err := s.ParseEvent([]byte(subscriptionUpdatedPayload+" "), header)
	assert.ErrorIs(t, err, ErrSignature)
}

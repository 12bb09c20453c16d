package reconciler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/repository"
)

type stubStore struct {
	purchase    *model.Purchase
	purchaseErr error

	recorded  []model.Purchase
	renewals  int
	statuses  []model.PurchaseStatus
	processed map[string]bool
	credit    int64
	balance   int64
	storeErr  error
}

func (s *stubStore) seen(eventID string) error {
	if s.processed == nil {
		s.processed = map[string]bool{}
	}
	if s.processed[eventID] {
		return repository.ErrEventProcessed
	}
	s.processed[eventID] = true
	return nil
}

func (s *stubStore) GetPurchase(ctx context.Context, buyerID, subscriptionID string) (*model.Purchase, error) {
	if s.purchase == nil && s.purchaseErr == nil {
		return nil, repository.ErrNotFound
	}
	return s.purchase, s.purchaseErr
}

func (s *stubStore) RecordPurchase(ctx context.Context, eventID, eventType string, p model.Purchase) (int64, error) {
	if s.storeErr != nil {
		return 0, s.storeErr
	}
	if err := s.seen(eventID); err != nil {
		return 0, err
	}
	p.Status = model.PurchaseStatusActive
	s.recorded = append(s.recorded, p)
	s.purchase = &p
	s.balance += s.credit
	return s.credit, nil
}

func (s *stubStore) CreditRenewal(ctx context.Context, eventID, eventType, buyerID, subscriptionID string) (int64, error) {
	if err := s.seen(eventID); err != nil {
		return 0, err
	}
	s.renewals++
	s.balance += s.credit
	return s.credit, nil
}

func (s *stubStore) SetPurchaseStatus(ctx context.Context, eventID, eventType, stripeSubscriptionID string, from, to model.PurchaseStatus) error {
	if err := s.seen(eventID); err != nil {
		return err
	}
	s.statuses = append(s.statuses, to)
	s.purchase.Status = to
	return nil
}

type stubLookup struct {
	err error
}

func (l stubLookup) CustomerUserID(ctx context.Context, customerID string) (string, error) {
	return "buyer-" + customerID, l.err
}

func (l stubLookup) ProductSubscriptionID(ctx context.Context, productID string) (string, error) {
	return "sub-" + productID, l.err
}

func newEvent(id string, kind model.EventKind, previous map[string]any) *model.SubscriptionEvent {
	return &model.SubscriptionEvent{
		ID:                   id,
		Type:                 string(kind),
		Kind:                 kind,
		StripeSubscriptionID: "sub_stripe_1",
		CustomerID:           "cus_1",
		ProductID:            "prod_1",
		Previous:             previous,
	}
}

func TestHandle_CreatedRecordsPurchaseAndCredits(t *testing.T) {
	store := &stubStore{credit: 500}
	r := New(store, stubLookup{}, zap.NewNop())

	out, err := r.Handle(context.Background(), newEvent("evt_1", model.EventSubscriptionCreated, nil))
	require.NoError(t, err)
	assert.Equal(t, ActionCreate, out.Action)

	require.Len(t, store.recorded, 1)
	assert.Equal(t, "buyer-cus_1", store.recorded[0].UserID)
	require.NotNil(t, store.recorded[0].SubscriptionID)
	assert.Equal(t, "sub-prod_1", *store.recorded[0].SubscriptionID)
	assert.Equal(t, "sub_stripe_1", store.recorded[0].StripeSubscriptionID)
	assert.Equal(t, int64(500), store.balance)
}

func TestHandle_ReplayHasNoSideEffects(t *testing.T) {
	store := &stubStore{credit: 500}
	r := New(store, stubLookup{}, zap.NewNop())

	ev := newEvent("evt_1", model.EventSubscriptionUpdated, map[string]any{"latest_invoice": "in_1"})
	store.purchase = &model.Purchase{StripeSubscriptionID: "sub_stripe_1", Status: model.PurchaseStatusActive}

	_, err := r.Handle(context.Background(), ev)
	require.NoError(t, err)

	_, err = r.Handle(context.Background(), ev)
	assert.ErrorIs(t, err, repository.ErrEventProcessed)
	assert.Equal(t, 1, store.renewals)
	assert.Equal(t, int64(500), store.balance)
}

func TestHandle_CancelThenReactivate(t *testing.T) {
	store := &stubStore{
		purchase: &model.Purchase{StripeSubscriptionID: "sub_stripe_1", Status: model.PurchaseStatusActive},
	}
	r := New(store, stubLookup{}, zap.NewNop())

	_, err := r.Handle(context.Background(), newEvent("evt_1", model.EventSubscriptionUpdated, map[string]any{
		"cancel_at":            nil,
		"cancel_at_period_end": false,
		"canceled_at":          nil,
		"cancellation_details": map[string]any{"reason": nil},
	}))
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusCanceled, store.purchase.Status)

	_, err = r.Handle(context.Background(), newEvent("evt_2", model.EventSubscriptionUpdated, map[string]any{
		"cancel_at":            float64(1700000000),
		"cancel_at_period_end": true,
		"canceled_at":          float64(1690000000),
		"cancellation_details": map[string]any{"reason": "cancellation_requested"},
	}))
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusActive, store.purchase.Status)
	assert.Equal(t, []model.PurchaseStatus{model.PurchaseStatusCanceled, model.PurchaseStatusActive}, store.statuses)
}

func TestHandle_OtherEventIgnored(t *testing.T) {
	store := &stubStore{}
	r := New(store, stubLookup{err: errors.New("must not be called")}, zap.NewNop())

	out, err := r.Handle(context.Background(), &model.SubscriptionEvent{ID: "evt_1", Type: "invoice.paid", Kind: model.EventOther})
	require.NoError(t, err)
	assert.Equal(t, ActionNone, out.Action)
}

func TestHandle_LookupFailure(t *testing.T) {
	store := &stubStore{}
	r := New(store, stubLookup{err: errors.New("stripe down")}, zap.NewNop())

	_, err := r.Handle(context.Background(), newEvent("evt_1", model.EventSubscriptionCreated, nil))
	require.Error(t, err)
	assert.Empty(t, store.recorded)
}

func TestHandle_StoreFailureWrapped(t *testing.T) {
	store := &stubStore{storeErr: repository.ErrNotFound}
	r := New(store, stubLookup{}, zap.NewNop())

	_, err := r.Handle(context.Background(), newEvent("evt_1", model.EventSubscriptionCreated, nil))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

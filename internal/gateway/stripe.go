// Package gateway предоставляет адаптер платёжного шлюза Stripe.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// ErrNoPrice возвращается, если у продукта нет активной цены.
var ErrNoPrice = errors.New("product has no active price")

// Ключи метаданных, по которым события шлюза сопоставляются с записями сервиса.
const (
	MetadataUserID         = "user_id"
	MetadataSubscriptionID = "subscription_id"
)

// Stripe инкапсулирует обращения к API Stripe.
type Stripe struct {
	api           *client.API
	webhookSecret string
	baseURL       string
}

// New создаёт адаптер с секретным ключом API, ключом подписи вебхуков и адресом фронтенда для редиректов.
func New(secretKey, webhookSecret, baseURL string) *Stripe {
	return NewWithBackends(secretKey, webhookSecret, baseURL, nil)
}

// NewWithBackends позволяет подменить транспорт Stripe, например в тестах.
func NewWithBackends(secretKey, webhookSecret, baseURL string, backends *stripe.Backends) *Stripe {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Stripe{
		api:           api,
		webhookSecret: webhookSecret,
		baseURL:       strings.TrimRight(baseURL, "/"),
	}
}

// CreateCustomer создаёт покупателя, привязанного к пользователю через метаданные.
func (s *Stripe) CreateCustomer(ctx context.Context, userID, name, email string) (string, error) {
	params := &stripe.CustomerParams{
		Name:  stripe.String(name),
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserID, userID)

	c, err := s.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return c.ID, nil
}

// CustomerUserID возвращает идентификатор пользователя из метаданных покупателя.
func (s *Stripe) CustomerUserID(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := s.api.Customers.Get(customerID, params)
	if err != nil {
		return "", fmt.Errorf("get customer: %w", err)
	}
	userID := c.Metadata[MetadataUserID]
	if userID == "" {
		return "", fmt.Errorf("customer %s has no %s metadata", customerID, MetadataUserID)
	}
	return userID, nil
}

// CreateProduct создаёт продукт и ежемесячную цену в долларах. price задаётся в центах.
func (s *Stripe) CreateProduct(ctx context.Context, title, description string, price int64) (string, error) {
	pp := &stripe.ProductParams{
		Name:        stripe.String(title),
		Description: stripe.String(description),
	}
	pp.Context = ctx

	product, err := s.api.Products.New(pp)
	if err != nil {
		return "", fmt.Errorf("create product: %w", err)
	}

	priceParams := &stripe.PriceParams{
		Currency:   stripe.String(string(stripe.CurrencyUSD)),
		Product:    stripe.String(product.ID),
		UnitAmount: stripe.Int64(price),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		},
	}
	priceParams.Context = ctx

	if _, err := s.api.Prices.New(priceParams); err != nil {
		return "", fmt.Errorf("create price: %w", err)
	}
	return product.ID, nil
}

// TagProduct записывает в метаданные продукта идентификатор плана.
func (s *Stripe) TagProduct(ctx context.Context, productID, subscriptionID string) error {
	params := &stripe.ProductParams{}
	params.Context = ctx
	params.AddMetadata(MetadataSubscriptionID, subscriptionID)

	if _, err := s.api.Products.Update(productID, params); err != nil {
		return fmt.Errorf("tag product: %w", err)
	}
	return nil
}

// UpdateProduct меняет название и описание продукта.
func (s *Stripe) UpdateProduct(ctx context.Context, productID, title, description string) error {
	params := &stripe.ProductParams{
		Name:        stripe.String(title),
		Description: stripe.String(description),
	}
	params.Context = ctx

	if _, err := s.api.Products.Update(productID, params); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// DeactivateProduct отключает продукт. Удалить продукт с ценами Stripe не позволяет.
func (s *Stripe) DeactivateProduct(ctx context.Context, productID string) error {
	params := &stripe.ProductParams{Active: stripe.Bool(false)}
	params.Context = ctx

	if _, err := s.api.Products.Update(productID, params); err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	return nil
}

// ProductSubscriptionID возвращает идентификатор плана из метаданных продукта.
func (s *Stripe) ProductSubscriptionID(ctx context.Context, productID string) (string, error) {
	params := &stripe.ProductParams{}
	params.Context = ctx

	p, err := s.api.Products.Get(productID, params)
	if err != nil {
		return "", fmt.Errorf("get product: %w", err)
	}
	id := p.Metadata[MetadataSubscriptionID]
	if id == "" {
		return "", fmt.Errorf("product %s has no %s metadata", productID, MetadataSubscriptionID)
	}
	return id, nil
}

// SubscriptionStatus возвращает статус подписки в Stripe, например "active".
func (s *Stripe) SubscriptionStatus(ctx context.Context, stripeSubscriptionID string) (string, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := s.api.Subscriptions.Get(stripeSubscriptionID, params)
	if err != nil {
		return "", fmt.Errorf("get subscription: %w", err)
	}
	return string(sub.Status), nil
}

// CancelSubscription немедленно отменяет подписку в Stripe.
func (s *Stripe) CancelSubscription(ctx context.Context, stripeSubscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := s.api.Subscriptions.Cancel(stripeSubscriptionID, params); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	return nil
}

// priceID возвращает цену продукта. При создании продукта заводится ровно одна цена.
func (s *Stripe) priceID(ctx context.Context, productID string) (string, error) {
	params := &stripe.PriceListParams{
		Product: stripe.String(productID),
		Active:  stripe.Bool(true),
	}
	params.Context = ctx

	it := s.api.Prices.List(params)
	if it.Next() {
		return it.Price().ID, nil
	}
	if err := it.Err(); err != nil {
		return "", fmt.Errorf("list prices: %w", err)
	}
	return "", ErrNoPrice
}

// CreateCheckoutSession открывает страницу оплаты подписки на продукт и возвращает её адрес.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, customerID, productID, subscriptionID string) (string, error) {
	priceID, err := s.priceID(ctx, productID)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.baseURL + "/success"),
		CancelURL:  stripe.String(s.baseURL + "/subscriptions/" + subscriptionID),
	}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortalSession открывает портал управления подписками покупателя.
func (s *Stripe) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	sess, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}

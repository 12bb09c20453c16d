package model

// EventKind классифицирует события платёжного шлюза, которые интересуют сервис.
type EventKind string

const (
	EventSubscriptionCreated EventKind = "customer.subscription.created"
	EventSubscriptionUpdated EventKind = "customer.subscription.updated"
	EventOther               EventKind = "other"
)

// SubscriptionEvent описывает проверенное событие жизненного цикла подписки из платёжного шлюза.
type SubscriptionEvent struct {
	ID                   string
	Type                 string
	Kind                 EventKind
	StripeSubscriptionID string
	CustomerID           string
	ProductID            string
	// Previous хранит previous_attributes, то есть прежние значения изменившихся полей.
	Previous map[string]any
}

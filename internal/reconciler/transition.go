// Package reconciler применяет события жизненного цикла подписок Stripe к покупкам и балансам.
package reconciler

import (
	"github.com/mmeshcher/support-me/internal/model"
)

// Action описывает решение по событию подписки.
type Action int

const (
	// ActionNone: событие не требует изменений.
	ActionNone Action = iota
	// ActionIgnore: промежуточное обновление при первичной настройке оплаты.
	ActionIgnore
	// ActionCreate: новая покупка с начислением владельцу плана.
	ActionCreate
	// ActionRenew: продление с повторным начислением без смены статуса.
	ActionRenew
	// ActionSetStatus: смена статуса покупки на Outcome.Status.
	ActionSetStatus
)

func (a Action) String() string {
	switch a {
	case ActionIgnore:
		return "ignore"
	case ActionCreate:
		return "create"
	case ActionRenew:
		return "renew"
	case ActionSetStatus:
		return "set_status"
	}
	return "none"
}

// Outcome содержит результат Transition.
type Outcome struct {
	Action Action
	Status model.PurchaseStatus
	Reason string
}

// Поля подписки, которые Stripe заполняет при отмене.
var cancellationMarkers = []string{"cancel_at", "cancel_at_period_end", "canceled_at", "cancellation_details.reason"}

// ChangeSet хранит прежние значения изменившихся полей подписки (previous_attributes).
type ChangeSet map[string]any

func (c ChangeSet) lookup(key string) (any, bool) {
	if key == "cancellation_details.reason" {
		details, ok := c["cancellation_details"].(map[string]any)
		if !ok {
			_, present := c["cancellation_details"]
			return nil, present
		}
		v, ok := details["reason"]
		return v, ok
	}
	v, ok := c[key]
	return v, ok
}

// Has сообщает, что поле менялось.
func (c ChangeSet) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// IsSet сообщает, что прежнее значение поля было заполнено.
func (c ChangeSet) IsSet(key string) bool {
	v, _ := c.lookup(key)
	return truthy(v)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	}
	return true
}

// cancellation возвращает, затронуты ли поля отмены и сколько из них были заполнены прежде.
func (c ChangeSet) cancellation() (touched bool, set int) {
	for _, key := range cancellationMarkers {
		if c.Has(key) {
			touched = true
		}
		if c.IsSet(key) {
			set++
		}
	}
	return touched, set
}

// Transition решает, что сделать с покупкой current (nil, если её нет) по событию kind.
//
// Для обновления подписки правила проверяются по порядку:
//  1. менялся latest_invoice и покупка есть: продление;
//  2. прежний статус incomplete без способа оплаты: первичная настройка, игнорируем;
//  3. поля отмены затронуты и прежде были пусты: отмена появилась, CANCELED;
//  4. все поля отмены прежде были заполнены: отмену сняли, ACTIVE;
//  5. иначе ничего не делаем.
//
// Смена статуса допускается только из совместимого состояния. EXPIRED не меняется.
func Transition(current *model.PurchaseStatus, kind model.EventKind, changes ChangeSet) Outcome {
	switch kind {
	case model.EventSubscriptionCreated:
		if current != nil {
			return Outcome{Action: ActionNone, Reason: "purchase already exists"}
		}
		return Outcome{Action: ActionCreate, Status: model.PurchaseStatusActive}
	case model.EventSubscriptionUpdated:
	default:
		return Outcome{Action: ActionNone, Reason: "unhandled event kind"}
	}

	if changes.IsSet("latest_invoice") && current != nil {
		return Outcome{Action: ActionRenew, Reason: "new invoice"}
	}

	if status, _ := changes["status"].(string); status == "incomplete" && !changes.IsSet("default_payment_method") {
		return Outcome{Action: ActionIgnore, Reason: "initial payment setup"}
	}

	var target model.PurchaseStatus
	touched, set := changes.cancellation()
	switch {
	case touched && set == 0:
		target = model.PurchaseStatusCanceled
	case set == len(cancellationMarkers):
		target = model.PurchaseStatusActive
	default:
		return Outcome{Action: ActionNone, Reason: "no relevant changes"}
	}

	if current == nil {
		return Outcome{Action: ActionNone, Reason: "no purchase to update"}
	}
	if *current == target {
		return Outcome{Action: ActionNone, Status: target, Reason: "status unchanged"}
	}
	if !current.CanTransitionTo(target) {
		return Outcome{Action: ActionNone, Reason: "transition not allowed from " + string(*current)}
	}
	return Outcome{Action: ActionSetStatus, Status: target}
}

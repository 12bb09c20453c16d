package model

// PurchaseStatus описывает состояние покупки подписки.
type PurchaseStatus string

const (
	PurchaseStatusActive   PurchaseStatus = "ACTIVE"
	PurchaseStatusCanceled PurchaseStatus = "CANCELED"
	PurchaseStatusExpired  PurchaseStatus = "EXPIRED"
)

// CanTransitionTo сообщает, допустим ли переход покупки в состояние next по событию шлюза.
// EXPIRED выставляется только удалением плана и больше не меняется.
func (s PurchaseStatus) CanTransitionTo(next PurchaseStatus) bool {
	switch s {
	case PurchaseStatusActive:
		return next == PurchaseStatusCanceled || next == PurchaseStatusExpired
	case PurchaseStatusCanceled:
		return next == PurchaseStatusActive || next == PurchaseStatusExpired
	}
	return false
}

// CashoutStatus описывает состояние заявки на вывод средств.
type CashoutStatus string

const (
	CashoutStatusPending CashoutStatus = "PENDING"
	CashoutStatusPaid    CashoutStatus = "PAID"
)

// Valid сообщает, является ли значение известным статусом.
func (s CashoutStatus) Valid() bool {
	return s == CashoutStatusPending || s == CashoutStatusPaid
}

// CanTransitionTo сообщает, допустим ли переход заявки в состояние next.
// Разрешён только переход PENDING -> PAID.
func (s CashoutStatus) CanTransitionTo(next CashoutStatus) bool {
	return s == CashoutStatusPending && next == CashoutStatusPaid
}

// CreatorRequestStatus описывает состояние заявки на роль создателя.
type CreatorRequestStatus string

const (
	CreatorRequestStatusPending  CreatorRequestStatus = "PENDING"
	CreatorRequestStatusAccepted CreatorRequestStatus = "ACCEPTED"
	CreatorRequestStatusRejected CreatorRequestStatus = "REJECTED"
)

// Valid сообщает, является ли значение известным статусом.
func (s CreatorRequestStatus) Valid() bool {
	switch s {
	case CreatorRequestStatusPending, CreatorRequestStatusAccepted, CreatorRequestStatusRejected:
		return true
	}
	return false
}

// Terminal сообщает, что заявка уже рассмотрена.
func (s CreatorRequestStatus) Terminal() bool {
	return s == CreatorRequestStatusAccepted || s == CreatorRequestStatusRejected
}

// CanTransitionTo сообщает, допустим ли переход заявки в состояние next.
func (s CreatorRequestStatus) CanTransitionTo(next CreatorRequestStatus) bool {
	return s == CreatorRequestStatusPending && next.Terminal()
}

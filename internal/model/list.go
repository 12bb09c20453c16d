package model

// Page задаёт параметры постраничной выборки. Page начинается с 1.
type Page struct {
	Page  int
	Limit int
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Offset возвращает количество пропускаемых записей.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// NumberOfPages возвращает ceil(total/limit).
func (p Page) NumberOfPages(total int) int {
	if p.Limit <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// UserFilter задаёт фильтр списка пользователей.
type UserFilter struct {
	Username string
	Page
}

// SubscriptionFilter задаёт фильтр каталога планов.
type SubscriptionFilter struct {
	Username string
	Page
}

// CreatorRequestFilter задаёт фильтр списка заявок на роль создателя.
type CreatorRequestFilter struct {
	Username string
	Status   CreatorRequestStatus
	Page
}

// CashoutFilter задаёт фильтр списка заявок на вывод. UserID ограничивает выборку одним владельцем.
type CashoutFilter struct {
	Username string
	UserID   string
	Page
}

// Result содержит страницу выборки и общее количество записей.
type Result[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewResult собирает страницу выборки и считает число страниц.
func NewResult[T any](items []T, total int, p Page) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{Items: items, Total: total, Pages: p.NumberOfPages(total)}
}

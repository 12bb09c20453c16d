package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/support-me/internal/model"
)

type userResponse struct {
	ID             string          `json:"id"`
	FullName       string          `json:"fullName"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	Bio            string          `json:"bio"`
	ProfilePicture string          `json:"profilePicture"`
	CoverPicture   string          `json:"coverPicture"`
	Role           model.Role      `json:"role"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func newUserResponse(u *model.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:             u.ID,
		FullName:       u.FullName,
		Username:       u.Username,
		Email:          u.Email,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		CoverPicture:   u.CoverPicture,
		Role:           u.Role,
		Balance:        model.CentsToUnits(u.Amount),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// ownerResponse содержит краткие данные владельца для списков.
type ownerResponse struct {
	ID             string `json:"id"`
	FullName       string `json:"fullName"`
	Username       string `json:"username"`
	Email          string `json:"email,omitempty"`
	ProfilePicture string `json:"profilePicture"`
}

func newOwnerResponse(u *model.User, withEmail bool) *ownerResponse {
	if u == nil {
		return nil
	}
	o := &ownerResponse{
		ID:             u.ID,
		FullName:       u.FullName,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
	}
	if withEmail {
		o.Email = u.Email
	}
	return o
}

type sessionUser struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
}

type usersResponse struct {
	Users         []userResponse `json:"users"`
	TotalUsers    int            `json:"totalUsers"`
	NumberOfPages int            `json:"numberOfPages"`
}

func newUsersResponse(res model.Result[model.User]) usersResponse {
	out := usersResponse{
		Users:         make([]userResponse, 0, len(res.Items)),
		TotalUsers:    res.Total,
		NumberOfPages: res.Pages,
	}
	for i := range res.Items {
		out.Users = append(out.Users, *newUserResponse(&res.Items[i]))
	}
	return out
}

type subscriptionResponse struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Price       int64          `json:"price"`
	Image       string         `json:"image"`
	ProductID   string         `json:"product_id,omitempty"`
	UserID      string         `json:"user_id"`
	User        *ownerResponse `json:"user,omitempty"`
}

func newSubscriptionResponse(s *model.Subscription, withProduct bool) subscriptionResponse {
	out := subscriptionResponse{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Price:       s.Price,
		Image:       s.Image,
		UserID:      s.UserID,
		User:        newOwnerResponse(s.User, false),
	}
	if withProduct {
		out.ProductID = s.ProductID
	}
	return out
}

type subscriptionsResponse struct {
	Subscriptions      []subscriptionResponse `json:"subscriptions"`
	TotalSubscriptions int                    `json:"totalSubscriptions"`
	NumberOfPages      int                    `json:"numberOfPages"`
}

func newSubscriptionsResponse(res model.Result[model.Subscription]) subscriptionsResponse {
	out := subscriptionsResponse{
		Subscriptions:      make([]subscriptionResponse, 0, len(res.Items)),
		TotalSubscriptions: res.Total,
		NumberOfPages:      res.Pages,
	}
	for i := range res.Items {
		out.Subscriptions = append(out.Subscriptions, newSubscriptionResponse(&res.Items[i], false))
	}
	return out
}

type creatorRequestResponse struct {
	ID          string                     `json:"id"`
	Explanation string                     `json:"explanation"`
	Status      model.CreatorRequestStatus `json:"status"`
	UserID      string                     `json:"user_id"`
	User        *ownerResponse             `json:"user,omitempty"`
	CreatedAt   time.Time                  `json:"createdAt"`
}

func newCreatorRequestResponse(c *model.CreatorRequest) creatorRequestResponse {
	return creatorRequestResponse{
		ID:          c.ID,
		Explanation: c.Explanation,
		Status:      c.Status,
		UserID:      c.UserID,
		User:        newOwnerResponse(c.User, true),
		CreatedAt:   c.CreatedAt,
	}
}

type creatorRequestsResponse struct {
	CreatorRequests      []creatorRequestResponse `json:"creatorRequests"`
	TotalCreatorRequests int                      `json:"totalCreatorRequests"`
	NumberOfPages        int                      `json:"numberOfPages"`
}

func newCreatorRequestsResponse(res model.Result[model.CreatorRequest]) creatorRequestsResponse {
	out := creatorRequestsResponse{
		CreatorRequests:      make([]creatorRequestResponse, 0, len(res.Items)),
		TotalCreatorRequests: res.Total,
		NumberOfPages:        res.Pages,
	}
	for i := range res.Items {
		out.CreatorRequests = append(out.CreatorRequests, newCreatorRequestResponse(&res.Items[i]))
	}
	return out
}

// cashoutResponse отдаёт сумму в центах, как она хранится, и в единицах валюты.
type cashoutResponse struct {
	ID        string              `json:"id"`
	Amount    int64               `json:"amount"`
	Units     decimal.Decimal     `json:"units"`
	Status    model.CashoutStatus `json:"status"`
	UserID    string              `json:"user_id"`
	User      *ownerResponse      `json:"user,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

func newCashoutResponse(c *model.Cashout) cashoutResponse {
	return cashoutResponse{
		ID:        c.ID,
		Amount:    c.Amount,
		Units:     model.CentsToUnits(c.Amount),
		Status:    c.Status,
		UserID:    c.UserID,
		User:      newOwnerResponse(c.User, true),
		CreatedAt: c.CreatedAt,
	}
}

type cashoutsResponse struct {
	Cashouts      []cashoutResponse `json:"cashouts"`
	TotalCashouts int               `json:"totalCashouts"`
	NumberOfPages int               `json:"numberOfPages"`
}

func newCashoutsResponse(res model.Result[model.Cashout]) cashoutsResponse {
	out := cashoutsResponse{
		Cashouts:      make([]cashoutResponse, 0, len(res.Items)),
		TotalCashouts: res.Total,
		NumberOfPages: res.Pages,
	}
	for i := range res.Items {
		out.Cashouts = append(out.Cashouts, newCashoutResponse(&res.Items[i]))
	}
	return out
}

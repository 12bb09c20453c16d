package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/reconciler"
	"github.com/mmeshcher/support-me/internal/repository"
	"github.com/mmeshcher/support-me/internal/storage"
)

var errStub = errors.New("stub failure")

type stubRepo struct {
	taken       bool
	createdUser *model.User
	createErr   error
	newUser     model.NewUser
	customerIDs map[string]string
	users       map[string]*model.User
	verified    []string

	createRequestErr error
	decided          *model.CreatorRequest
	decideErr        error
	withdrawErr      error

	subscriptionCount int
	createdSub        *model.Subscription
	createSubErr      error
	subscriptions     map[string]*model.Subscription
	deletedSubs       []string
	expiredStripeIDs  []string
	listSubsCalls     int

	purchase    *model.Purchase
	purchaseErr error

	cashoutStatus model.CashoutStatus
	cashoutErr    error
	updateErr     error
	debit         int64
	balance       int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		customerIDs:   map[string]string{},
		users:         map[string]*model.User{},
		subscriptions: map[string]*model.Subscription{},
		purchaseErr:   repository.ErrNotFound,
	}
}

func (r *stubRepo) CreateUser(ctx context.Context, nu model.NewUser) (*model.User, error) {
	r.newUser = nu
	if r.createErr != nil {
		return nil, r.createErr
	}
	u := *r.createdUser
	u.VerificationToken = nu.VerificationToken
	u.Email = nu.Email
	r.users[u.ID] = &u
	return &u, nil
}

func (r *stubRepo) SetCustomerID(ctx context.Context, userID, customerID string) error {
	r.customerIDs[userID] = customerID
	return nil
}

func (r *stubRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *stubRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubRepo) MarkVerified(ctx context.Context, userID string) error {
	r.verified = append(r.verified, userID)
	return nil
}

func (r *stubRepo) UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) (*model.User, error) {
	u := r.users[userID]
	u.FullName, u.Username, u.Email, u.Bio = upd.FullName, upd.Username, upd.Email, upd.Bio
	if upd.ProfilePicture != "" {
		u.ProfilePicture = upd.ProfilePicture
	}
	if upd.CoverPicture != "" {
		u.CoverPicture = upd.CoverPicture
	}
	cp := *u
	return &cp, nil
}

func (r *stubRepo) UsernameOrEmailTaken(ctx context.Context, exceptUserID, username, email string) (bool, error) {
	return r.taken, nil
}

func (r *stubRepo) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, int, error) {
	return []model.User{{ID: "u1"}}, 11, nil
}

func (r *stubRepo) CreateCreatorRequest(ctx context.Context, userID, explanation string) (*model.CreatorRequest, error) {
	if r.createRequestErr != nil {
		return nil, r.createRequestErr
	}
	return &model.CreatorRequest{ID: "cr1", UserID: userID, Explanation: explanation, Status: model.CreatorRequestStatusPending}, nil
}

func (r *stubRepo) ListCreatorRequests(ctx context.Context, f model.CreatorRequestFilter) ([]model.CreatorRequest, int, error) {
	return nil, 0, nil
}

func (r *stubRepo) DecideCreatorRequest(ctx context.Context, id string, next model.CreatorRequestStatus) (*model.CreatorRequest, error) {
	return r.decided, r.decideErr
}

func (r *stubRepo) DeleteCreatorRequest(ctx context.Context, id, userID string) error {
	return r.withdrawErr
}

func (r *stubRepo) CountSubscriptions(ctx context.Context, userID string) (int, error) {
	return r.subscriptionCount, nil
}

func (r *stubRepo) CreateSubscription(ctx context.Context, s model.Subscription) (*model.Subscription, error) {
	if r.createSubErr != nil {
		return nil, r.createSubErr
	}
	r.createdSub = &s
	r.subscriptions[s.ID] = &s
	return &s, nil
}

func (r *stubRepo) GetSubscription(ctx context.Context, id string) (*model.Subscription, error) {
	s, ok := r.subscriptions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubRepo) GetOwnedSubscription(ctx context.Context, id, ownerID string) (*model.Subscription, error) {
	s, ok := r.subscriptions[id]
	if !ok || s.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubRepo) UpdateSubscription(ctx context.Context, id, ownerID, title, description, image string) (*model.Subscription, error) {
	s := r.subscriptions[id]
	s.Title, s.Description = title, description
	if image != "" {
		s.Image = image
	}
	cp := *s
	return &cp, nil
}

func (r *stubRepo) ListSubscriptions(ctx context.Context, f model.SubscriptionFilter) ([]model.Subscription, int, error) {
	r.listSubsCalls++
	owner := &model.User{ID: "owner", Username: "creator", PasswordHash: "secret-hash"}
	return []model.Subscription{{ID: "s1", Title: "Gold", Price: 500, UserID: "owner", User: owner}}, 1, nil
}

func (r *stubRepo) DeleteSubscription(ctx context.Context, id, ownerID string) (*model.Subscription, []string, error) {
	s, ok := r.subscriptions[id]
	if !ok || s.UserID != ownerID {
		return nil, nil, repository.ErrNotFound
	}
	delete(r.subscriptions, id)
	r.deletedSubs = append(r.deletedSubs, id)
	return s, r.expiredStripeIDs, nil
}

func (r *stubRepo) GetPurchase(ctx context.Context, buyerID, subscriptionID string) (*model.Purchase, error) {
	return r.purchase, r.purchaseErr
}

func (r *stubRepo) CreateCashout(ctx context.Context, userID string, debit int64) (*model.Cashout, error) {
	r.debit = debit
	if r.balance < debit {
		return nil, repository.ErrInsufficientBalance
	}
	r.balance -= debit
	return &model.Cashout{ID: "c1", Amount: debit, Status: model.CashoutStatusPending, UserID: userID}, nil
}

func (r *stubRepo) GetCashoutStatus(ctx context.Context, id string) (model.CashoutStatus, error) {
	return r.cashoutStatus, r.cashoutErr
}

func (r *stubRepo) UpdateCashoutStatus(ctx context.Context, id string, next model.CashoutStatus) (*model.Cashout, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	return &model.Cashout{ID: id, Status: next}, nil
}

func (r *stubRepo) ListCashouts(ctx context.Context, f model.CashoutFilter) ([]model.Cashout, int, error) {
	return nil, 0, nil
}

type stubGateway struct {
	customers    int
	customerErr  error
	productErr   error
	tagErr       error
	tagged       map[string]string
	updated      []string
	deactivated  []string
	canceled     []string
	stripeStatus string
	checkoutFor  string
	event        *model.SubscriptionEvent
	parseErr     error
}

func (g *stubGateway) CreateCustomer(ctx context.Context, userID, name, email string) (string, error) {
	if g.customerErr != nil {
		return "", g.customerErr
	}
	g.customers++
	return "cus_" + userID, nil
}

func (g *stubGateway) CreateProduct(ctx context.Context, title, description string, price int64) (string, error) {
	if g.productErr != nil {
		return "", g.productErr
	}
	return "prod_" + title, nil
}

func (g *stubGateway) TagProduct(ctx context.Context, productID, subscriptionID string) error {
	if g.tagErr != nil {
		return g.tagErr
	}
	if g.tagged == nil {
		g.tagged = map[string]string{}
	}
	g.tagged[productID] = subscriptionID
	return nil
}

func (g *stubGateway) UpdateProduct(ctx context.Context, productID, title, description string) error {
	g.updated = append(g.updated, productID)
	return nil
}

func (g *stubGateway) DeactivateProduct(ctx context.Context, productID string) error {
	g.deactivated = append(g.deactivated, productID)
	return nil
}

func (g *stubGateway) SubscriptionStatus(ctx context.Context, stripeSubscriptionID string) (string, error) {
	return g.stripeStatus, nil
}

func (g *stubGateway) CancelSubscription(ctx context.Context, stripeSubscriptionID string) error {
	g.canceled = append(g.canceled, stripeSubscriptionID)
	return nil
}

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, customerID, productID, subscriptionID string) (string, error) {
	g.checkoutFor = customerID
	return "https://checkout.stripe.test/" + subscriptionID, nil
}

func (g *stubGateway) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	return "https://billing.stripe.test/" + customerID, nil
}

func (g *stubGateway) ParseEvent(payload []byte, signature string) (*model.SubscriptionEvent, error) {
	return g.event, g.parseErr
}

type stubFiles struct {
	saved   []string
	deleted []string
}

func (f *stubFiles) Save(kind storage.Kind, prefix string, fh *multipart.FileHeader) (string, error) {
	if err := storage.Validate(kind, fh); err != nil {
		return "", err
	}
	stored := fmt.Sprintf("/static/uploads/%s_%d_%s", prefix, len(f.saved), fh.Filename)
	f.saved = append(f.saved, stored)
	return stored, nil
}

func (f *stubFiles) Delete(stored string) error {
	f.deleted = append(f.deleted, stored)
	return nil
}

type stubMailer struct {
	sent map[string]string
}

func (m *stubMailer) SendVerification(ctx context.Context, email, token string) error {
	if m.sent == nil {
		m.sent = map[string]string{}
	}
	m.sent[email] = token
	return nil
}

type stubReconciler struct {
	err    error
	events []*model.SubscriptionEvent
}

func (r *stubReconciler) Handle(ctx context.Context, ev *model.SubscriptionEvent) (reconciler.Outcome, error) {
	r.events = append(r.events, ev)
	return reconciler.Outcome{Action: reconciler.ActionCreate}, r.err
}

type mapCache struct {
	data        map[string]string
	invalidated int
}

func (c *mapCache) Get(ctx context.Context, key string, result any) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal([]byte(raw), result)
}

func (c *mapCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.data == nil {
		c.data = map[string]string{}
	}
	c.data[key] = string(raw)
	return nil
}

func (c *mapCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	c.invalidated++
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

type fixture struct {
	svc        *Service
	repo       *stubRepo
	gateway    *stubGateway
	files      *stubFiles
	mailer     *stubMailer
	reconciler *stubReconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:       newStubRepo(),
		gateway:    &stubGateway{},
		files:      &stubFiles{},
		mailer:     &stubMailer{},
		reconciler: &stubReconciler{},
	}
	f.svc = NewService(f.repo, f.gateway, f.files, f.mailer, f.reconciler, zap.NewNop())
	return f
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func imageHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(storage.MaxImageSize * 2); err != nil {
		t.Fatalf("parse form: %v", err)
	}
	return req.MultipartForm.File["image"][0]
}

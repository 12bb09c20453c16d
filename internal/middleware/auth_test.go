package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/support-me/internal/model"
)

func testUser(role model.Role) *model.User {
	return &model.User{
		ID:       "4f8a1c52-8a43-4a57-9d2f-0c0e3b1f7e11",
		FullName: "Test User",
		Username: "tester",
		Email:    "tester@example.com",
		Role:     role,
	}
}

func authCookie(t *testing.T, m *AuthMiddleware, u *model.User) *http.Cookie {
	t.Helper()

	token, err := m.IssueToken(u)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	w := httptest.NewRecorder()
	m.SetAuthCookie(w, token)
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}
	return cookies[0]
}

func decodeMsg(t *testing.T, res *http.Response) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body["msg"]
}

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour, false)
	u := testUser(model.RoleCreator)

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		claims, ok := GetClaimsFromContext(r.Context())
		if !ok {
			t.Fatalf("claims not in context")
		}
		if claims.UserID != u.ID || claims.Role != model.RoleCreator || claims.Username != "tester" {
			t.Fatalf("unexpected claims: %+v", claims)
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(authCookie(t, m, u))

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_CookieAttributes(t *testing.T) {
	m := NewAuthMiddleware("test-secret", 30*24*time.Hour, true)
	c := authCookie(t, m, testUser(model.RoleUser))

	if c.Name != "token" {
		t.Fatalf("cookie name = %q, want token", c.Name)
	}
	if !c.HttpOnly || !c.Secure {
		t.Fatalf("cookie must be HttpOnly and Secure, got %+v", c)
	}
	if c.MaxAge != 30*24*60*60 {
		t.Fatalf("cookie MaxAge = %d", c.MaxAge)
	}
}

func TestAuthMiddleware_WithoutCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour, false)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	m.Middleware(next).ServeHTTP(w, r)

	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
	if msg := decodeMsg(t, res); msg != "Missing Token" {
		t.Fatalf("msg = %q", msg)
	}
}

func TestAuthMiddleware_RejectsBadTokens(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour, false)
	other := NewAuthMiddleware("other-secret", time.Hour, false)
	expired := NewAuthMiddleware("test-secret", -time.Hour, false)

	foreign, _ := other.IssueToken(testUser(model.RoleAdmin))
	stale, _ := expired.IssueToken(testUser(model.RoleAdmin))
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: model.RoleAdmin}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "invalid.token.here"},
		{name: "wrong secret", token: foreign},
		{name: "expired", token: stale},
		{name: "unsigned", token: none},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			r.AddCookie(&http.Cookie{Name: AuthCookieName, Value: tt.token})

			m.Middleware(next).ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour, false)

	tests := []struct {
		name    string
		role    model.Role
		allowed []model.Role
		want    int
	}{
		{name: "creator on admin route", role: model.RoleCreator, allowed: []model.Role{model.RoleAdmin}, want: http.StatusForbidden},
		{name: "admin on admin route", role: model.RoleAdmin, allowed: []model.Role{model.RoleAdmin}, want: http.StatusOK},
		{name: "user on user or creator route", role: model.RoleUser, allowed: []model.Role{model.RoleUser, model.RoleCreator}, want: http.StatusOK},
		{name: "admin on user or creator route", role: model.RoleAdmin, allowed: []model.Role{model.RoleUser, model.RoleCreator}, want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := m.Middleware(RequireRoles(tt.allowed...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			r.AddCookie(authCookie(t, m, testUser(tt.role)))

			h.ServeHTTP(w, r)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusForbidden {
				if msg := decodeMsg(t, w.Result()); msg != "You are not authorized to access this route!" {
					t.Fatalf("msg = %q", msg)
				}
			}
		})
	}
}

func TestRequireRoles_WithoutAuthentication(t *testing.T) {
	h := RequireRoles(model.RoleUser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestClearAuthCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour, false)

	w := httptest.NewRecorder()
	m.ClearAuthCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != AuthCookieName || cookies[0].MaxAge >= 0 {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
}

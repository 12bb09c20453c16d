// Package middleware содержит HTTP middleware сервиса Support Me.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/support-me/internal/apperr"
	"github.com/mmeshcher/support-me/internal/model"
)

type contextKey string

const claimsKey contextKey = "claims"

// AuthCookieName задаёт имя cookie с токеном доступа.
const AuthCookieName = "token"

// Claims содержит данные пользователя, которые хранятся в токене доступа.
type Claims struct {
	UserID   string     `json:"userId"`
	FullName string     `json:"fullName"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware выдаёт и проверяет токены доступа в cookie.
type AuthMiddleware struct {
	secretKey []byte
	lifetime  time.Duration
	secure    bool
}

// NewAuthMiddleware создаёт AuthMiddleware. secure включает флаг Secure у cookie.
func NewAuthMiddleware(secret string, lifetime time.Duration, secure bool) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		lifetime:  lifetime,
		secure:    secure,
	}
}

// IssueToken подписывает токен доступа для пользователя.
func (a *AuthMiddleware) IssueToken(u *model.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   u.ID,
		FullName: u.FullName,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.lifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена.
func (a *AuthMiddleware) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return a.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("parse token: invalid token")
	}
	return claims, nil
}

// SetAuthCookie устанавливает cookie с токеном доступа.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.lifetime.Seconds()),
		Expires:  time.Now().Add(a.lifetime),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookie удаляет cookie с токеном. Сам токен остаётся действительным до истечения срока.
func (a *AuthMiddleware) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware проверяет токен из cookie и добавляет данные пользователя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AuthCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, r, apperr.ErrMissingToken)
			return
		}

		claims, err := a.ParseToken(cookie.Value)
		if err != nil {
			writeError(w, r, apperr.ErrInvalidToken)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

// RequireRoles пропускает запрос, только если роль пользователя входит в roles.
// Должен стоять после Middleware.
func RequireRoles(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaimsFromContext(r.Context())
			if !ok {
				writeError(w, r, apperr.ErrMissingToken)
				return
			}
			if !slices.Contains(roles, claims.Role) {
				writeError(w, r, apperr.ErrForbiddenRole)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContextWithClaims кладёт данные пользователя в контекст.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaimsFromContext извлекает данные пользователя из контекста запроса.
func GetClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mmeshcher/support-me/internal/apperr"
)

var errTooManyRequests = apperr.New(http.StatusTooManyRequests, "Too many requests, try again later!")

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает частоту запросов с одного IP-адреса.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	logger   *zap.Logger
}

// NewRateLimiter создаёт ограничитель на perMinute запросов в минуту с одного адреса.
func NewRateLimiter(perMinute int, logger *zap.Logger) *RateLimiter {
	burst := perMinute
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(burst)),
		burst:    burst,
		ttl:      3 * time.Minute,
		logger:   logger,
	}
}

func (l *RateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, key)
		}
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Middleware отвечает 429, если адрес превысил лимит.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !l.get(ip).Allow() {
			l.logger.Warn("too many requests", zap.String("ip", ip), zap.String("path", r.URL.Path))
			writeError(w, r, errTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package api

import (
	"net"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// IPLimiter hands out one token bucket per client address.
type IPLimiter struct {
	bucket    map[string]*rate.Limiter
	rate      rate.Limit
	burstSize int
	mu        sync.Mutex
}

// NewIPLimiter creates a limiter allowing reqRate requests per second with
// the given burst for each address.
func NewIPLimiter(reqRate rate.Limit, burstSize int) *IPLimiter {
	return &IPLimiter{
		bucket:    make(map[string]*rate.Limiter),
		rate:      reqRate,
		burstSize: burstSize,
	}
}

// For returns the bucket for ip, creating it on first use.
func (l *IPLimiter) For(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exist := l.bucket[ip]; !exist {
		l.bucket[ip] = rate.NewLimiter(l.rate, l.burstSize)
	}
	return l.bucket[ip]
}

// Middleware rejects requests over the client's budget with 429.
// RemoteAddr is expected to have been rewritten by chi's RealIP.
func (l *IPLimiter) Middleware(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !l.For(ip).Allow() {
				log.WithField("ip", ip).Warn("too many requests")
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

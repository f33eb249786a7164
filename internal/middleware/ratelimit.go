package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/studyspark-go/internal/config"
	"github.com/studyspark-go/internal/models"
)

// MaxQuestionLength bounds a single question, in characters
const MaxQuestionLength = 4096

// RateLimiter interface for rate limiting
type RateLimiter interface {
	Allow(clientID string) bool
	Reset(clientID string)
}

// ClientRateLimiter implements per-client rate limiting. Limiters of idle
// clients expire on their own.
type ClientRateLimiter struct {
	enabled  bool
	limiters *cache.Cache
	rpm      int
	burst    int
	logger   *logrus.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.Config, logger *logrus.Logger) RateLimiter {
	if !cfg.RateLimit.Enabled {
		return &ClientRateLimiter{enabled: false}
	}

	return &ClientRateLimiter{
		enabled:  true,
		limiters: cache.New(time.Hour, 10*time.Minute),
		rpm:      cfg.RateLimit.RequestsPerMinute,
		burst:    cfg.RateLimit.Burst,
		logger:   logger,
	}
}

// Allow checks if a client is allowed to make a request
func (r *ClientRateLimiter) Allow(clientID string) bool {
	if !r.enabled {
		return true
	}

	allowed := r.getLimiter(clientID).Allow()
	if !allowed {
		r.logger.WithField("client_id", clientID).Warn("Rate limit exceeded")
	}
	return allowed
}

// Reset resets the rate limiter for a client
func (r *ClientRateLimiter) Reset(clientID string) {
	if !r.enabled {
		return
	}
	r.limiters.Delete(clientID)
}

func (r *ClientRateLimiter) getLimiter(clientID string) *rate.Limiter {
	if v, found := r.limiters.Get(clientID); found {
		r.limiters.SetDefault(clientID, v)
		return v.(*rate.Limiter)
	}

	// Rate per second = RPM / 60
	limiter := rate.NewLimiter(rate.Limit(float64(r.rpm)/60.0), r.burst)
	if err := r.limiters.Add(clientID, limiter, cache.DefaultExpiration); err != nil {
		// lost a race; use the winner
		if v, found := r.limiters.Get(clientID); found {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Limit is a mux middleware rejecting clients over their rate with 429
func Limit(rl RateLimiter, metrics *Metrics, proxies TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(proxies.ClientIP(r)) {
				if metrics != nil {
					metrics.RecordRateLimitExceeded("api")
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(models.ErrorResponse{Error: "Too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TrustedProxies are the networks whose X-Forwarded-For header is honored
type TrustedProxies []*net.IPNet

// ParseTrustedProxies accepts bare addresses and CIDR ranges
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	out := make(TrustedProxies, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 8 * net.IPv6len
			if v4 := ip.To4(); v4 != nil {
				ip, bits = v4, 8*net.IPv4len
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		out = append(out, network)
	}
	return out, nil
}

func (t TrustedProxies) trusts(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, network := range t {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP identifies the caller by its connection address. Behind a
// trusted proxy it walks X-Forwarded-For from the right and returns the
// first hop that is not itself a trusted proxy.
func (t TrustedProxies) ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !t.trusts(host) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !t.trusts(hop) {
			return hop
		}
		host = hop
	}
	return host
}

// ValidateQuestion performs input validation on a question's text
func ValidateQuestion(text string) error {
	if n := utf8.RuneCountInString(text); n > MaxQuestionLength {
		return fmt.Errorf("question too long: %d characters", n)
	}
	return nil
}

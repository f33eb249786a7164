package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyspark-go/internal/config"
	"github.com/studyspark-go/pkg/logger"
)

func limiterConfig(enabled bool) *config.Config {
	cfg := &config.Config{}
	cfg.RateLimit.Enabled = enabled
	cfg.RateLimit.RequestsPerMinute = 1
	cfg.RateLimit.Burst = 2
	return cfg
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(true), logger.Discard())

	assert.True(t, rl.Allow("chat:1"))
	assert.True(t, rl.Allow("chat:1"))
	assert.False(t, rl.Allow("chat:1"))
	assert.True(t, rl.Allow("chat:2"))

	rl.Reset("chat:1")
	assert.True(t, rl.Allow("chat:1"))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(false), logger.Discard())
	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow("x"))
	}
}

func TestLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(true), logger.Discard())
	m := NewMetrics()
	r := mux.NewRouter()
	r.Use(m.Instrument, Limit(rl, m, nil))
	r.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestClientIPIgnoresForwardedHeaderFromUntrustedPeer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:1234"
	assert.Equal(t, "192.168.1.9", TrustedProxies(nil).ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	assert.Equal(t, "192.168.1.9", TrustedProxies(nil).ClientIP(req))

	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.9", proxies.ClientIP(req))
}

func TestClientIPBehindTrustedProxy(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "172.16.0.4"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	// the leftmost hop is client supplied; the rightmost untrusted hop is the caller
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 203.0.113.5, 172.16.0.4")
	assert.Equal(t, "203.0.113.5", proxies.ClientIP(req))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "10.0.0.1", proxies.ClientIP(req))
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}

func TestLimitIgnoresSpoofedForwardedHeader(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(true), logger.Discard())
	r := mux.NewRouter()
	r.Use(Limit(rl, nil, nil))
	r.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestValidateQuestion(t *testing.T) {
	assert.NoError(t, ValidateQuestion(strings.Repeat("é", MaxQuestionLength)))
	assert.Error(t, ValidateQuestion(strings.Repeat("a", MaxQuestionLength+1)))
}

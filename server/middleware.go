package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/giygas/vaccination-book-api/config"
	"github.com/giygas/vaccination-book-api/logging"
	"github.com/giygas/vaccination-book-api/metrics"
	"github.com/juju/ratelimit"
)

// RealIPMiddleware sets RemoteAddr to the client IP: the first X-Forwarded-For
// entry when present, otherwise the connection address without its port
func RealIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// Take the first IP from the comma-separated list
			if idx := strings.Index(xff, ","); idx != -1 {
				xff = xff[:idx]
			}
			r.RemoteAddr = strings.TrimSpace(xff)
		} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			r.RemoteAddr = host
		}
		next.ServeHTTP(w, r)
	})
}

// BlockDirectAccessMiddleware rejects requests that did not come through the reverse proxy
func BlockDirectAccessMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Real-IP") == "" && r.Header.Get("X-Forwarded-For") == "" {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			// Allow localhost access for local tooling
			if host == "127.0.0.1" || host == "::1" || host == "localhost" {
				next.ServeHTTP(w, r)
				return
			}

			logging.Warn("Direct access blocked", "remote_addr", r.RemoteAddr, "user_agent", r.Header.Get("User-Agent"))
			http.Error(w, "Direct access not allowed", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestSizeMiddleware limits the size of request headers and body
func RequestSizeMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > cfg.MaxRequestBody {
				logging.Warn("Request body too large",
					"content_length", r.ContentLength,
					"max_allowed", cfg.MaxRequestBody,
					"remote_addr", r.RemoteAddr,
					"user_agent", r.UserAgent())

				respondWithJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
					"error": fmt.Sprintf("Request body too large. Maximum allowed size is %d bytes", cfg.MaxRequestBody),
				})
				return
			}

			// Check header size (rough estimate)
			headerSize := int64(0)
			for key, values := range r.Header {
				headerSize += int64(len(key))
				for _, value := range values {
					headerSize += int64(len(value))
				}
			}

			if headerSize > cfg.MaxHeaderSize {
				logging.Warn("Request headers too large",
					"header_size", headerSize,
					"max_allowed", cfg.MaxHeaderSize,
					"remote_addr", r.RemoteAddr,
					"user_agent", r.UserAgent())

				respondWithJSON(w, http.StatusRequestHeaderFieldsTooLarge, map[string]string{
					"error": fmt.Sprintf("Request headers too large. Maximum allowed size is %d bytes", cfg.MaxHeaderSize),
				})
				return
			}

			// Chunked bodies have no Content-Length
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxRequestBody)
			}

			next.ServeHTTP(w, r)
		})
	}
}

const (
	rateLimitRate     = 3
	rateLimitCapacity = 1000
)

// RateLimiter manages per-client token buckets
type RateLimiter struct {
	clients map[string]*ratelimit.Bucket
	mu      sync.RWMutex
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop
func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*ratelimit.Bucket),
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop(30 * time.Minute)
	return rl
}

func (rl *RateLimiter) getBucket(clientIP string) *ratelimit.Bucket {
	rl.mu.RLock()
	bucket, exists := rl.clients[clientIP]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		if bucket, exists = rl.clients[clientIP]; !exists {
			bucket = ratelimit.NewBucketWithRate(rateLimitRate, rateLimitCapacity)
			rl.clients[clientIP] = bucket
			metrics.RateLimiterBucketsTotal.Set(float64(len(rl.clients)))
		}
		rl.mu.Unlock()
	}

	return bucket
}

// cleanup removes clients whose bucket has refilled completely
func (rl *RateLimiter) cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for ip, bucket := range rl.clients {
		if bucket.Available() == bucket.Capacity() {
			delete(rl.clients, ip)
			removed++
		}
	}
	metrics.RateLimiterBucketsTotal.Set(float64(len(rl.clients)))
	return removed
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// Stop ends the cleanup loop
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// getTokenCost prices a request; upstream-backed operations cost the most
func getTokenCost(r *http.Request) int64 {
	path := r.URL.Path

	switch path {
	case "/metrics":
		return 0
	case "/health":
		return 5
	case "/v1/views":
		return 20 // Create, may fetch upstream
	}

	switch {
	case strings.HasPrefix(path, "/v1/children/") && strings.HasSuffix(path, "/vaccination-book"):
		return 20
	case strings.HasPrefix(path, "/v1/views/") && strings.HasSuffix(path, "/refetch"):
		return 20
	case strings.HasPrefix(path, "/v1/views/"):
		switch r.Method {
		case http.MethodPatch:
			return 10 // May rebind and fetch
		default:
			return 5
		}
	}

	return 5
}

// Handler applies the per-client rate limit
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket := rl.getBucket(r.RemoteAddr)
		tokenCost := getTokenCost(r)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rateLimitCapacity))
		w.Header().Set("X-RateLimit-Rate", strconv.Itoa(rateLimitRate))

		if bucket.TakeAvailable(tokenCost) < tokenCost {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "60")
			respondWithJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":   http.StatusText(http.StatusTooManyRequests),
				"message": "Rate limit exceeded. Please try again later.",
				"code":    http.StatusTooManyRequests,
			})
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(bucket.Available(), 10))
		next.ServeHTTP(w, r)
	})
}

// respondWithJSON writes a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logging.Error("Failed to encode JSON response", "error", err)
		}
	}
}

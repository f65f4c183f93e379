package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
)

type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so the first one listed is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}
}

// Stack is the server's middleware order. RequestID must precede Recovery,
// TrustedProxy must precede Logger and RateLimit, and Recovery must be inside
// Logger.
func Stack(cfg config.SecurityConfig, logger *slog.Logger, limiter *RateLimiter) Middleware {
	return Chain(
		RequestID(),
		TrustedProxy(cfg),
		Logger(logger),
		Recovery(logger),
		Tracing(logger),
		SecurityHeaders(),
		CORS(cfg),
		RateLimit(limiter, logger),
	)
}

func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.NewString()
			}

			w.Header().Set("X-Request-ID", requestID)
			ctx := observability.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Logger writes one record per request. Server errors log at error level and
// client errors at warn.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= 500:
				level = slog.LevelError
			case wrapped.statusCode >= 400:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status", wrapped.statusCode,
				"bytes", wrapped.written,
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"client_ip", clientIP(r),
				"request_id", observability.GetRequestID(r.Context()),
			)
		})
	}
}

func Tracing(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := observability.StartSpan(r.Context(), r.Method+" "+r.URL.Path)
			span.SetTag("request_id", observability.GetRequestID(ctx))

			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			span.SetTag("http.status_code", strconv.Itoa(wrapped.statusCode))
			if wrapped.statusCode >= 500 {
				span.SetError(fmt.Errorf("HTTP %d", wrapped.statusCode))
			}
			span.Finish(ctx, logger)
		})
	}
}

// CORS allows read-only cross-origin access for the configured origins.
func CORS(cfg config.SecurityConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (slices.Contains(cfg.AllowedOrigins, "*") || slices.Contains(cfg.AllowedOrigins, origin)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, Datastar-Request")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-eval' https://cdn.jsdelivr.net; style-src 'self' 'unsafe-inline'; connect-src 'self'")

			next.ServeHTTP(w, r)
		})
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Idle buckets are dropped
// by Sweep.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	cfg      config.SecurityConfig
	now      func() time.Time
}

func NewRateLimiter(cfg config.SecurityConfig) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		cfg:      cfg,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	if !rl.cfg.EnableRateLimit {
		return true
	}

	rl.mu.Lock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RateLimitRPS), rl.cfg.RateLimitBurst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = rl.now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

// Sweep forgets clients not seen for longer than idle and returns how many
// were removed.
func (rl *RateLimiter) Sweep(idle time.Duration) int {
	cutoff := rl.now().Add(-idle)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
			removed++
		}
	}
	return removed
}

// Run sweeps idle clients every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep(interval)
		}
	}
}

func RateLimit(limiter *RateLimiter, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiter.Allow(ip) {
				requestID := observability.GetRequestID(r.Context())
				logger.Warn("rate limit exceeded", "ip", ip, "request_id", requestID)
				errors.WriteError(w, logger, errors.RateLimit("Too many requests"), requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// TrustedProxy strips forwarding headers from peers that are not trusted
// proxies, so clientIP cannot be spoofed.
func TrustedProxy(cfg config.SecurityConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, _ := net.SplitHostPort(r.RemoteAddr)
			if !slices.Contains(cfg.TrustedProxies, host) {
				r.Header.Del("X-Forwarded-For")
				r.Header.Del("X-Real-IP")
				r.Header.Del("X-Forwarded-Proto")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func Recovery(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					requestID := observability.GetRequestID(r.Context())
					logger.Error("panic recovered",
						"panic", rec,
						"request_id", requestID,
						"method", r.Method,
						"path", r.URL.Path,
					)
					errors.WriteError(w, logger, errors.Internal("An unexpected error occurred"), requestID)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int
}

func wrap(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}

// Flush keeps SSE streaming working through the wrapper.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

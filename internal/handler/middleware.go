package handler

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type contextKey string

// tenantContextKey carries the authenticated tenant ID through the request.
const tenantContextKey contextKey = "tenant_id"

// LoggingMiddleware logs HTTP requests for API endpoints
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		logger.Base().Info("api request",
			zap.String("method", r.Method),
			zap.String("path", r.RequestURI),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

// ValidationMiddleware validates common request parameters
func ValidationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" || r.Method == "PUT" {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// CORSMiddleware adds CORS headers to all requests
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GlobalLoggingMiddleware logs all HTTP requests (not just API)
func GlobalLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		logger.Base().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.RequestURI),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

// BearerAuthMiddleware validates console bearer tokens on API endpoints.
// WebSocket clients cannot set headers, so a `token` query parameter is
// accepted as a fallback.
func BearerAuthMiddleware(secretKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip validation if no secret key is configured (for development)
			if secretKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			rawToken := bearerToken(r)
			if rawToken == "" {
				logger.Base().Warn("missing bearer token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr))
				sendUnauthorized(w, "missing token")
				return
			}

			claims, err := parseConsoleToken(rawToken, secretKey)
			if err != nil {
				logger.Base().Warn("invalid bearer token",
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				sendUnauthorized(w, "invalid token")
				return
			}

			tenantID, _ := claims["tenant_id"].(string)
			if tenantID == "" {
				logger.Base().Warn("bearer token without tenant claim",
					zap.String("remote_addr", r.RemoteAddr),
				)
				sendUnauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), tenantContextKey, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromContext returns the authenticated tenant ID, empty when auth is
// disabled.
func TenantFromContext(ctx context.Context) string {
	tenantID, _ := ctx.Value(tenantContextKey).(string)
	return tenantID
}

const (
	maxTrackedClients = 1024
	limiterIdleTTL    = 3 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type clientLimiters struct {
	mutex   sync.Mutex
	clients map[string]*clientLimiter
	rate    rate.Limit
	burst   int
}

func (cl *clientLimiters) get(key string) *rate.Limiter {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	entry, ok := cl.clients[key]
	if !ok {
		if len(cl.clients) >= maxTrackedClients {
			cl.evictStale()
		}
		entry = &clientLimiter{limiter: rate.NewLimiter(cl.rate, cl.burst)}
		cl.clients[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// evictStale drops limiters idle longer than limiterIdleTTL. Caller holds the
// mutex.
func (cl *clientLimiters) evictStale() {
	cutoff := time.Now().Add(-limiterIdleTTL)
	for key, entry := range cl.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(cl.clients, key)
		}
	}
}

// RateLimitMiddleware throttles API requests per client. Authenticated
// requests are keyed by tenant, anonymous ones by remote address. Each client
// gets rps tokens per second with a burst of twice that.
func RateLimitMiddleware(rps int) func(http.Handler) http.Handler {
	limiters := &clientLimiters{
		clients: make(map[string]*clientLimiter),
		rate:    rate.Limit(rps),
		burst:   rps * 2,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := TenantFromContext(r.Context())
			if key == "" {
				key = clientAddr(r)
			}

			if !limiters.get(key).Allow() {
				logger.Base().Warn("rate limit exceeded",
					zap.String("client", key),
					zap.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func sendUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(fmt.Sprintf(`{"error": %q}`, message)))
}

// parseConsoleToken parses and validates a console bearer token
func parseConsoleToken(rawToken, secretKey string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		if alg, ok := token.Header["alg"].(string); !ok || alg != "HS256" {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims format")
	}

	return claims, nil
}

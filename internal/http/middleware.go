package http

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tazhibayda/places-service/internal/apperr"
	"github.com/tazhibayda/places-service/internal/log"
	"github.com/tazhibayda/places-service/internal/metrics"
	"github.com/tazhibayda/places-service/internal/queue"
	"github.com/tazhibayda/places-service/internal/ratelimit"
	"github.com/tazhibayda/places-service/internal/security"
	"go.uber.org/zap"
)

const headerRequestID = "X-Request-ID"

// RequestID reuses an incoming X-Request-ID or mints one, and threads it
// through the request context so published events carry it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(headerRequestID, id)
		c.Header(headerRequestID, id)
		c.Request = c.Request.WithContext(queue.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.InFlight.Inc()
		defer metrics.InFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.ReqDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// AccessLog writes one line per request, correlated with the active span.
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithDD(c.Request.Context(), logger).Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", c.GetString(headerRequestID)),
		)
	}
}

// TokenParser verifies a bearer token and returns its claims.
type TokenParser interface {
	Parse(token string) (*security.Claims, error)
}

// AuthJWT is the auth gate: it rejects the request with 401 unless it carries
// a valid bearer token, and otherwise sets "uid" and "email" for handlers.
func AuthJWT(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			render(c, apperr.Unauthorized(msgAuthFailed))
			return
		}
		claims, err := tokens.Parse(strings.TrimSpace(h[len("Bearer "):]))
		if err != nil || claims.UID == "" {
			render(c, apperr.Unauthorized(msgAuthFailed))
			return
		}
		c.Set("uid", claims.UID)
		c.Set("email", claims.Email)
		c.Next()
	}
}

func ClientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(ip); err == nil && host != "" {
		return host
	}
	return ip
}

// RateLimitLogin throttles login attempts per client IP. A limiter error lets
// the request through.
func RateLimitLogin(rl ratelimit.Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := rl.Allow(c.Request.Context(), ClientIP(c))
		if err != nil {
			log.WithDD(c.Request.Context(), logger).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests."})
			return
		}
		c.Next()
	}
}

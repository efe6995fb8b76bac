package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Almishev/pos-shop/pkg/logging"
)

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
)

// Setup attaches the standard middleware chain to the engine
func Setup(router *gin.Engine, logger *logging.Logger) {
	router.Use(Recovery(logger))
	router.Use(RequestID())
	router.Use(CorrelationID())
	router.Use(Logger(logger))
	router.Use(CORS())
}

// RequestID ensures every request carries a request ID, generating one
// when the client did not supply it
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("requestId", requestID)
		c.Header(HeaderRequestID, requestID)

		ctx := logging.ContextWithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// CorrelationID propagates the caller's correlation ID, falling back to
// the request ID
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = c.GetString("requestId")
		}

		c.Set("correlationId", correlationID)
		c.Header(HeaderCorrelationID, correlationID)

		ctx := logging.ContextWithCorrelationID(c.Request.Context(), correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// Logger logs each request with latency and status
func Logger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		logger.HTTPRequest(
			c.Request.Context(),
			c.Request.Method,
			path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
			c.Request.UserAgent(),
		)
	}
}

// Recovery recovers from panics and responds with a 500
func Recovery(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Panic(c.Request.Context(), recovered)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// CORS applies a permissive CORS policy
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Correlation-ID, X-Idempotency-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// HealthChecker reports readiness of a dependency
type HealthChecker func(ctx context.Context) error

// HealthCheck returns a liveness handler
func HealthCheck(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// ReadinessCheck returns a readiness handler probing dependencies
func ReadinessCheck(serviceName string, checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		results := make(map[string]string, len(checks))
		healthy := true

		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				results[name] = "unhealthy: " + err.Error()
				healthy = false
			} else {
				results[name] = "healthy"
			}
		}

		status := http.StatusOK
		overall := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "not ready"
		}

		c.JSON(status, gin.H{
			"status":  overall,
			"service": serviceName,
			"checks":  results,
		})
	}
}

// NoRoute handles unknown paths
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "route not found",
			"path":    c.Request.URL.Path,
		})
	}
}

// NoMethod handles unsupported methods on known paths
func NoMethod() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"code":    "METHOD_NOT_ALLOWED",
			"message": "method not allowed",
		})
	}
}

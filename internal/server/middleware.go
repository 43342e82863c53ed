package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tokomart/tokomart/internal/auditcontext"
	"github.com/tokomart/tokomart/internal/shopcontext"
)

const (
	HeaderShop = "X-Shop-ID"
	HeaderUser = "X-User-ID"
)

// RequestLogger stamps every request with a correlation id and logs one line
// per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := ensureRequestID(c)

		ctx := c.Request.Context()
		ctx = auditcontext.WithRequestID(ctx, requestID)
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			fields = append(fields, zap.String("error", lastErr.Err.Error()))
		}

		switch {
		case route == "/metrics" || route == "/health":
			log.Debug("http_request", fields...)
		case status >= http.StatusInternalServerError:
			log.Error("http_request", fields...)
		default:
			log.Info("http_request", fields...)
		}
	}
}

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader("X-Request-Id"))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header("X-Request-Id", requestID)
	return requestID
}

// ShopContext resolves the calling shop from the gateway-injected header and
// stores it in the request context.
func ShopContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderShop))
		if raw == "" {
			c.Next()
			return
		}
		shopID, err := snowflake.ParseString(raw)
		if err != nil || shopID == 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		ctx := shopcontext.WithShopID(c.Request.Context(), int64(shopID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// UserContext resolves the acting user from the gateway-injected header.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUser))
		if raw == "" {
			c.Next()
			return
		}
		userID, err := snowflake.ParseString(raw)
		if err != nil || userID == 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		ctx := shopcontext.WithUserID(c.Request.Context(), userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ShopRequired rejects requests that carry no shop context.
func ShopRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := shopcontext.ShopIDFromContext(c.Request.Context()); !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// authorizeAction gates a route on the acting user's capabilities.
func (s *Server) authorizeAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := shopcontext.UserIDFromContext(c.Request.Context())
		if !ok || userID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), userID, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

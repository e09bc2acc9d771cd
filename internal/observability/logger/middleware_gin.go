package logger

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/fieldbook/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	headerRequestID = "X-Request-Id"
	headerActorID   = "X-Actor-Id"
)

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps a handler error to the envelope type and code.
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware stores correlation values on the request context and writes
// one "http_request" entry per request.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(requestContext(c))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		fields = append(fields, documentFields(c)...)

		var errorType string
		if lastErr := c.Errors.Last(); lastErr != nil {
			var errorCode string
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields, zap.String("error_type", errorType), zap.String("error_code", errorCode))
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		if ce := FromContext(c.Request.Context()).Check(requestLevel(route, status, errorType), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	ctx = obscontext.WithRequestID(ctx, ensureRequestID(c))
	ctx = obscontext.WithClient(ctx, obscontext.Client{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if actorID := strings.TrimSpace(c.GetHeader(headerActorID)); actorID != "" {
		ctx = obscontext.WithActor(ctx, "user", actorID)
	}
	return ctx
}

// documentFields names the document a document route acted on.
func documentFields(c *gin.Context) []zap.Field {
	docType := c.GetString("document_type")
	if docType == "" {
		return nil
	}
	fields := []zap.Field{zap.String("document_type", docType)}
	if id := c.Param("id"); id != "" {
		fields = append(fields, zap.String("document_id", id))
	}
	return fields
}

// ensureRequestID reuses the caller's X-Request-Id or mints one, and echoes it back.
func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(headerRequestID))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header(headerRequestID, requestID)
	return requestID
}

// requestLevel keeps health checks and rejected input at debug, state conflicts
// (409, 422, 429) at warn and server faults at error.
func requestLevel(route string, status int, errorType string) zapcore.Level {
	switch {
	case route == "/health" || route == "/metrics":
		return zapcore.DebugLevel
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case errorType == "validation_error":
		return zapcore.DebugLevel
	case status == http.StatusConflict,
		status == http.StatusUnprocessableEntity,
		status == http.StatusTooManyRequests:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/fieldbook/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextOmitsMissingValues(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	WithContext(context.Background(), base).Info("bare")
	ctx := obscontext.WithRequestID(context.Background(), "req-9")
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	WithContext(ctx, base).Info("scoped")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].ContextMap())
	assert.Equal(t, map[string]any{
		"request_id": "req-9",
		"actor_type": "system",
		"actor_id":   "scheduler",
	}, entries[1].ContextMap())
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/health", http.StatusOK, ""))
	assert.Equal(t, zapcore.ErrorLevel, requestLevel("/api/invoices", http.StatusBadGateway, "delivery_failed"))
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/api/invoices", http.StatusBadRequest, "validation_error"))
	assert.Equal(t, zapcore.WarnLevel, requestLevel("/api/invoices/:id/status", http.StatusConflict, "invalid_transition"))
	assert.Equal(t, zapcore.WarnLevel, requestLevel("/api/invoices/:id/send-email", http.StatusTooManyRequests, "rate_limited"))
	assert.Equal(t, zapcore.InfoLevel, requestLevel("/api/estimates", http.StatusCreated, ""))
}

func TestGinMiddlewareLogsDocumentRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{
		ErrorClassifier: func(error) (string, string) { return "invalid_transition", "invalid_transition" },
	}))
	r.POST("/api/invoices/:id/status", func(c *gin.Context) {
		c.Set("document_type", "invoice")
		_ = c.Error(errors.New("draft -> paid"))
		c.Status(http.StatusConflict)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/invoices/77/status", nil)
	req.Header.Set("X-Actor-Id", "dispatcher@fieldbook.test")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	requestID := rec.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, requestID, fields["request_id"])
	assert.Equal(t, "dispatcher@fieldbook.test", fields["actor_id"])
	assert.Equal(t, "invoice", fields["document_type"])
	assert.Equal(t, "77", fields["document_id"])
	assert.Equal(t, "/api/invoices/:id/status", fields["route"])
	assert.Equal(t, "invalid_transition", fields["error_type"])
	assert.EqualValues(t, http.StatusConflict, fields["status"])
}

func TestGinMiddlewareKeepsCallerRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	var seen string
	r.GET("/health", func(c *gin.Context) {
		seen = obscontext.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

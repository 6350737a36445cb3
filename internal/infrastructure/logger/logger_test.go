package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for input, expected := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, expected, ParseLevel(input))
		})
	}
}

func TestNew_WritesToFileAndExtraCore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "costing.log")
	extra, recorded := observer.New(zapcore.InfoLevel)

	log, err := New(&Config{Level: "info", Format: "json", Output: path}, extra)
	require.NoError(t, err)

	log.Info("batch received", zap.String("batch_number", "B20261018-0001"))
	require.NoError(t, log.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"batch_number":"B20261018-0001"`)
	assert.Equal(t, 1, recorded.Len())
}

func TestContextHelpers(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	assert.NotNil(t, FromContext(context.Background()))

	ctx, _ := WithRequestID(context.Background(), base, "req-1")
	ctx, log := WithTenantID(ctx, FromContext(ctx), "tenant-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "tenant-1", GetTenantID(ctx))
	assert.Equal(t, "", GetTenantID(context.Background()))

	log.Info("hello")
	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "tenant-1", fields["tenant_id"])

	assert.Same(t, base, WithTraceContext(context.Background(), base))
}

func TestFields(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	tenant, product, warehouse := uuid.New(), uuid.New(), uuid.New()

	zap.New(core).Info("valuated",
		append(Stock(tenant, product, warehouse), Decimal("unit_cost", decimal.RequireFromString("12.857143")))...)

	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, product.String(), fields["product_id"])
	assert.Equal(t, "12.857143", fields["unit_cost"])
}

func TestGormLogger_Trace(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, WithSlowThreshold(10*time.Millisecond))
	ctx, _ := WithTenantID(context.Background(), zap.NewNop(), "t-1")

	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	gl.Trace(ctx, time.Now().Add(-time.Second), func() (string, int64) { return "SELECT * FROM stock_batches FOR UPDATE", 1 }, nil)
	gl.Trace(ctx, time.Now(), func() (string, int64) { return "UPDATE stock_batches", 0 }, errors.New("lock timeout"))
	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT", 0 }, gormlogger.ErrRecordNotFound)

	entries := recorded.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "SQL Query", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "SQL Error", entries[2].Message)
	assert.Equal(t, "t-1", entries[2].ContextMap()["tenant_id"])

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	assert.Len(t, recorded.All(), 3)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(GinMiddleware(zap.New(core)), Recovery(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) {
		assert.Equal(t, "req-42", GetRequestID(c.Request.Context()))
		assert.NotNil(t, GetGinLogger(c))
		c.Status(http.StatusOK)
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	messages := make([]string, 0)
	for _, e := range recorded.All() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "HTTP Request")
	assert.Contains(t, messages, "Panic recovered")
}

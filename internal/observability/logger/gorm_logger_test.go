package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestSQLClassification(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL(`WITH x AS (SELECT 1) SELECT * FROM invoices`))
	assert.Equal(t, "UPDATE", operationFromSQL(`UPDATE "estimates" SET status = 'sent'`))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))

	assert.Equal(t, "invoices", tableFromSQL(`SELECT * FROM "invoices" WHERE id = 1`))
	assert.Equal(t, "service_calls", tableFromSQL(`INSERT INTO service_calls (id) VALUES (1)`))
	assert.Equal(t, "estimates", tableFromSQL(`UPDATE "estimates" SET status = 'sent'`))
}

func TestTraceLogsErrorsAndSkipsNotFound(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewGormLogger(zap.New(core), DefaultGormLoggerConfig())

	sql := func() (string, int64) { return `SELECT * FROM invoices`, 0 }
	l.Trace(context.Background(), time.Now(), sql, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now(), sql, errors.New("connection reset"))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "gorm.query", entry.Message)
	assert.Equal(t, "invoices", entry.ContextMap()["table"])
}

func TestTraceSlowQueryWarns(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewGormLogger(zap.New(core), GormLoggerConfig{Level: gormlogger.Warn, SlowThreshold: time.Millisecond})

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return `UPDATE invoices SET status = 'overdue'`, 3
	}, nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zap.WarnLevel, logs.All()[0].Level)
	assert.EqualValues(t, 3, logs.All()[0].ContextMap()["rows_affected"])
}

package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, SchedulerJobReasonDeadlineExceeded},
		{"wrapped cancel", fmt.Errorf("sweep: %w", context.Canceled), SchedulerJobReasonDeadlineExceeded},
		{"db_lock_timeout", &pgconn.PgError{Code: "55P03"}, SchedulerJobReasonDBLockTimeout},
		{"serialization_failure", &pgconn.PgError{Code: "40001"}, SchedulerJobReasonSerializationFailure},
		{"unique_violation", gorm.ErrDuplicatedKey, SchedulerJobReasonUniqueViolation},
		{"unknown", errors.New("boom"), SchedulerJobReasonUnknown},
		{"nil", nil, SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySchedulerJobReason(tc.err))
		})
	}
}

func TestSchedulerMetricsCounters(t *testing.T) {
	m := newSchedulerMetrics(prometheus.NewRegistry(), Config{Environment: "test"})

	m.IncJobRun("mark_overdue")
	m.IncJobError("mark_overdue", &pgconn.PgError{Code: "55P03"})
	m.IncJobSkipped("mark_overdue")
	m.AddProcessed("mark_overdue", 4)
	m.AddProcessed("mark_overdue", 0)
	m.ObserveJobDuration("mark_overdue", 120*time.Millisecond)
	m.ObserveRunLoopLag(-time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("mark_overdue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobErrors.WithLabelValues("mark_overdue", SchedulerJobReasonDBLockTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobSkipped.WithLabelValues("mark_overdue")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.processed.WithLabelValues("mark_overdue")))
}

func TestNilSchedulerMetricsIsSafe(t *testing.T) {
	var m *SchedulerMetrics
	assert.NotPanics(t, func() {
		m.IncJobRun("x")
		m.IncJobError("x", errors.New("boom"))
		m.AddProcessed("x", 1)
		m.ObserveRunLoopLag(time.Second)
	})
}

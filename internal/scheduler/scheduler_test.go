package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/document/compose/composetest"
	invoicedomain "github.com/smallbiznis/fieldbook/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/fieldbook/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/fieldbook/internal/invoice/service"
	"github.com/smallbiznis/fieldbook/internal/lock"
	"github.com/smallbiznis/fieldbook/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var start = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type heldLocker struct{ calls int }

func (l *heldLocker) Obtain(context.Context, string) (lock.Lock, error) {
	l.calls++
	return nil, lock.ErrNotObtained
}

type failingInvoices struct {
	invoicedomain.Service
	err error
}

func (f failingInvoices) MarkOverdue(context.Context, invoicedomain.MarkOverdueRequest) (invoicedomain.MarkOverdueResponse, error) {
	return invoicedomain.MarkOverdueResponse{}, f.err
}

func newInvoiceService(t *testing.T, clk clock.Clock) invoicedomain.Service {
	t.Helper()
	return invoiceservice.NewService(invoiceservice.ServiceParam{
		DB:       dbtest.Open(t, &invoicedomain.Invoice{}),
		Log:      zap.NewNop(),
		GenID:    dbtest.Node(t),
		Clock:    clk,
		Repo:     invoicerepo.Provide(),
		Composer: composetest.New(),
	})
}

func newScheduler(t *testing.T, clk clock.Clock, invoices invoicedomain.Service, locker lock.Locker) *Scheduler {
	t.Helper()
	sched, err := New(Params{
		Log:        zap.NewNop(),
		GenID:      dbtest.Node(t),
		Clock:      clk,
		InvoiceSvc: invoices,
		Locker:     locker,
	})
	require.NoError(t, err)
	return sched
}

func TestRunOnceMarksPastDueInvoices(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(start)
	invoices := newInvoiceService(t, clk)

	inv, err := invoices.Create(ctx, invoicedomain.CreateInvoiceRequest{Content: invoicedomain.Content{
		Title:       "Panel swap",
		Items:       composetest.ScenarioItems(),
		CustomerRef: composetest.Ref(composetest.CustomerRef),
	}})
	require.NoError(t, err)
	_, err = invoices.Transition(ctx, invoicedomain.TransitionInvoiceRequest{ID: inv.ID.String(), Status: "sent"})
	require.NoError(t, err)

	sched := newScheduler(t, clk, invoices, lock.Noop{})
	require.NoError(t, sched.RunOnce(ctx))

	stored, err := invoices.GetByID(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusSent, stored.Status)

	clk.Advance(45 * 24 * time.Hour)
	require.NoError(t, sched.RunOnce(ctx))

	stored, err = invoices.GetByID(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusOverdue, stored.Status)
}

func TestRunOnceSkipsWhenLockIsHeld(t *testing.T) {
	clk := clock.NewFakeClock(start)
	locker := &heldLocker{}
	sched := newScheduler(t, clk, failingInvoices{err: errors.New("must not run")}, locker)

	assert.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, locker.calls)
}

func TestRunOnceReportsJobErrors(t *testing.T) {
	clk := clock.NewFakeClock(start)
	sched := newScheduler(t, clk, failingInvoices{err: errors.New("db down")}, nil)

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobMarkOverdue)
}

func TestRunOnceSwallowsTimeouts(t *testing.T) {
	clk := clock.NewFakeClock(start)
	sched := newScheduler(t, clk, failingInvoices{err: context.DeadlineExceeded}, nil)

	assert.NoError(t, sched.RunOnce(context.Background()))
}

func TestDisabledJobDoesNotRun(t *testing.T) {
	clk := clock.NewFakeClock(start)
	sched := newScheduler(t, clk, failingInvoices{err: errors.New("must not run")}, nil)
	sched.cfg.EnabledJobs = []string{"something_else"}

	assert.NoError(t, sched.RunOnce(context.Background()))
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, 2*time.Minute, cfg.JobTimeout)
}

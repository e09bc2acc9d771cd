package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/compose/composetest"
	invoicedomain "github.com/smallbiznis/fieldbook/internal/invoice/domain"
	"github.com/smallbiznis/fieldbook/internal/invoice/repository"
	"github.com/smallbiznis/fieldbook/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var start = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type mockReleaser struct {
	mock.Mock
}

func (m *mockReleaser) Release(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	return m.Called(invoice.ID).Error(0)
}

type fixture struct {
	svc      invoicedomain.Service
	db       *gorm.DB
	clock    *clock.FakeClock
	releaser *mockReleaser
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t, &invoicedomain.Invoice{})
	clk := clock.NewFakeClock(start)
	releaser := new(mockReleaser)

	svc := NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    dbtest.Node(t),
		Clock:    clk,
		Repo:     repository.Provide(),
		Composer: composetest.New(),
		Releaser: releaser,
	})
	return fixture{svc: svc, db: db, clock: clk, releaser: releaser}
}

func (f fixture) create(t *testing.T, title string) invoicedomain.Invoice {
	t.Helper()
	inv, err := f.svc.Create(context.Background(), invoicedomain.CreateInvoiceRequest{Content: invoicedomain.Content{
		Title:       title,
		Items:       composetest.ScenarioItems(),
		CustomerRef: composetest.Ref(composetest.CustomerRef),
	}})
	require.NoError(t, err)
	return inv
}

func (f fixture) move(t *testing.T, inv invoicedomain.Invoice, status string) invoicedomain.Invoice {
	t.Helper()
	out, err := f.svc.Transition(context.Background(), invoicedomain.TransitionInvoiceRequest{ID: inv.ID.String(), Status: status})
	require.NoError(t, err)
	return out
}

func TestCreateAppliesSettings(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, "Bakery panel upgrade")

	assert.Equal(t, "INV-00001", inv.Number)
	assert.Equal(t, "USD", inv.Currency)
	assert.True(t, inv.TotalAmount.Equal(composetest.Dec("137.7")))
	require.NotNil(t, inv.DueDate)
	assert.True(t, inv.DueDate.Equal(start.AddDate(0, 0, 30)))
	assert.False(t, inv.Provenance.IsSet())
}

func TestCreateManualTotalFallback(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Create(context.Background(), invoicedomain.CreateInvoiceRequest{Content: invoicedomain.Content{
		Title:       "Deposit",
		TotalAmount: composetest.DecPtr("500"),
	}})
	require.NoError(t, err)
	assert.True(t, inv.ManualTotal)
	assert.True(t, inv.TotalAmount.Equal(composetest.Dec("500")))
	assert.True(t, inv.Subtotal.IsZero())

	_, err = f.svc.Create(context.Background(), invoicedomain.CreateInvoiceRequest{Content: invoicedomain.Content{
		Title:       "Both",
		Items:       composetest.ScenarioItems(),
		TotalAmount: composetest.DecPtr("500"),
	}})
	vErr := document.AsValidation(err)
	require.NotNil(t, vErr)
	assert.Equal(t, "manual_total_with_items", vErr.Fields[0].Code)
}

func TestLifecycleTable(t *testing.T) {
	allowed := map[[2]invoicedomain.InvoiceStatus]bool{
		{invoicedomain.InvoiceStatusDraft, invoicedomain.InvoiceStatusSent}:     true,
		{invoicedomain.InvoiceStatusSent, invoicedomain.InvoiceStatusPaid}:      true,
		{invoicedomain.InvoiceStatusSent, invoicedomain.InvoiceStatusOverdue}:   true,
		{invoicedomain.InvoiceStatusSent, invoicedomain.InvoiceStatusCancelled}: true,
	}
	statuses := invoicedomain.Lifecycle.Statuses()
	require.Len(t, statuses, 5)
	for _, from := range statuses {
		for _, to := range statuses {
			err := invoicedomain.Lifecycle.Transition(from, to)
			if allowed[[2]invoicedomain.InvoiceStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, document.ErrInvalidTransition, "%s -> %s", from, to)
			}
		}
	}
}

func TestPaidInvoiceIsLocked(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, "Service panel")
	f.move(t, inv, "sent")
	paid := f.move(t, inv, "paid")
	require.NotNil(t, paid.PaidAt)

	_, err := f.svc.Update(context.Background(), invoicedomain.UpdateInvoiceRequest{
		ID:      inv.ID.String(),
		Content: invoicedomain.Content{Title: "edited"},
	})
	assert.ErrorIs(t, err, document.ErrDocumentLocked)
}

func TestCancelReleasesConvertedInvoice(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, "Converted")

	sourceID := snowflake.ID(900)
	sourceType := document.TypeChangeOrder
	percentage := composetest.Dec("50")
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Where("id = ?", int64(inv.ID)).Updates(map[string]any{
		"source_id":         int64(sourceID),
		"source_type":       string(sourceType),
		"source_percentage": percentage,
	}).Error)

	f.move(t, inv, "sent")
	f.releaser.On("Release", inv.ID).Return(nil).Once()
	cancelled := f.move(t, inv, "cancelled")

	assert.Equal(t, invoicedomain.InvoiceStatusCancelled, cancelled.Status)
	f.releaser.AssertExpectations(t)
}

func TestCancelDirectInvoiceSkipsReleaser(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, "Direct")
	f.move(t, inv, "sent")
	f.move(t, inv, "cancelled")
	f.releaser.AssertNotCalled(t, "Release", mock.Anything)
}

func TestMarkOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	due := f.create(t, "Due")
	f.move(t, due, "sent")
	draft := f.create(t, "Still draft")
	paid := f.create(t, "Paid")
	f.move(t, paid, "sent")
	f.move(t, paid, "paid")

	resp, err := f.svc.MarkOverdue(ctx, invoicedomain.MarkOverdueRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Invoices)

	f.clock.Advance(31 * 24 * time.Hour)
	resp, err = f.svc.MarkOverdue(ctx, invoicedomain.MarkOverdueRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Invoices, 1)
	assert.Equal(t, due.ID, resp.Invoices[0].ID)
	assert.Equal(t, invoicedomain.InvoiceStatusOverdue, resp.Invoices[0].Status)
	require.NotNil(t, resp.Invoices[0].OverdueAt)

	stored, err := f.svc.GetByID(ctx, draft.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusDraft, stored.Status)

	again, err := f.svc.MarkOverdue(ctx, invoicedomain.MarkOverdueRequest{})
	require.NoError(t, err)
	assert.Empty(t, again.Invoices)
}

func TestExportWritesWorkbook(t *testing.T) {
	f := newFixture(t)
	f.create(t, "First")
	f.clock.Advance(time.Minute)
	second := f.create(t, "Second")
	f.move(t, second, "sent")

	data, err := f.svc.Export(context.Background(), invoicedomain.ListInvoiceRequest{Status: "sent"})
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Number", rows[0][0])
	assert.Equal(t, "INV-00002", rows[1][0])
	assert.Equal(t, "Harbor Bakery", rows[1][3])
}

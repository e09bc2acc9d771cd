package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/compose/composetest"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	"github.com/smallbiznis/fieldbook/internal/servicecall/domain"
	"github.com/smallbiznis/fieldbook/internal/servicecall/repository"
	"github.com/smallbiznis/fieldbook/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) domain.Service {
	t.Helper()
	db := dbtest.Open(t, &domain.ServiceCall{})
	return New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    dbtest.Node(t),
		Clock:    clock.NewFakeClock(time.Date(2026, 6, 1, 7, 30, 0, 0, time.UTC)),
		Repo:     repository.Provide(),
		Composer: composetest.New(),
	})
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc := newService(t)

	call, err := svc.Create(context.Background(), domain.CreateRequest{Content: domain.Content{
		Title:          "Tripping breaker in walk-in cooler",
		CustomerRef:    composetest.Ref(composetest.CustomerRef),
		EstimatedHours: composetest.Dec("2"),
		MaterialsCost:  composetest.Dec("40"),
	}})
	require.NoError(t, err)

	assert.Equal(t, "SC-00001", call.Number)
	assert.Equal(t, domain.StatusOpen, call.Status)
	assert.True(t, call.HourlyRate.Equal(composetest.Dec("75")))
	assert.True(t, call.TaxRate.IsZero())
	assert.Equal(t, "Harbor Bakery", call.Customer.Name)
	assert.Empty(t, call.Items)
	assert.True(t, call.Subtotal.Equal(composetest.Dec("190")))
	assert.True(t, call.TotalAmount.Equal(composetest.Dec("190")))
	assert.True(t, call.Consistent())
}

func TestCreateTaxesOnlyWhenRateIsGiven(t *testing.T) {
	svc := newService(t)

	call, err := svc.Create(context.Background(), domain.CreateRequest{Content: domain.Content{
		Title:          "Dead circuit in garage",
		EstimatedHours: composetest.Dec("2"),
		MaterialsCost:  composetest.Dec("40"),
		TaxRate:        composetest.DecPtr("8"),
	}})
	require.NoError(t, err)

	assert.True(t, call.Subtotal.Equal(composetest.Dec("190")))
	assert.True(t, call.TaxAmount.Equal(composetest.Dec("15.2")))
	assert.True(t, call.TotalAmount.Equal(composetest.Dec("205.2")))
}

func TestCreateRejectsNegativeCosts(t *testing.T) {
	svc := newService(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{Content: domain.Content{
		Title:         "Bad",
		MaterialsCost: composetest.Dec("-1"),
		HourlyRate:    composetest.DecPtr("-75"),
	}})
	vErr := document.AsValidation(err)
	require.NotNil(t, vErr)
	assert.Len(t, vErr.Fields, 2)
}

func TestBillableItems(t *testing.T) {
	actual := composetest.Dec("3")
	call := domain.ServiceCall{
		Number:         "SC-00007",
		Technician:     "R. Ortiz",
		EstimatedHours: composetest.Dec("2"),
		ActualHours:    &actual,
		HourlyRate:     composetest.Dec("75"),
		MaterialsCost:  composetest.Dec("40"),
	}

	items := call.BillableItems()
	require.Len(t, items, 2)
	assert.Equal(t, "SC-00007 - labour", items[0].Description)
	assert.Equal(t, "hour", items[0].Unit)
	assert.True(t, items[0].Quantity.Equal(actual))
	assert.Equal(t, "R. Ortiz", items[0].Notes)
	assert.True(t, items[0].LineTotal().Add(items[1].LineTotal()).Equal(composetest.Dec("265")))

	override := composetest.Dec("250")
	call.TotalCost = &override
	items = call.BillableItems()
	require.Len(t, items, 1)
	assert.True(t, items[0].LineTotal().Equal(override))

	call.Items = []lineitem.LineItem{
		lineitem.NewCustom("Replace GFCI", "each", composetest.Dec("2"), composetest.Dec("35")),
	}
	items = call.BillableItems()
	require.Len(t, items, 1)
	assert.Equal(t, "Replace GFCI", items[0].Description)
}

func TestItemsReplaceCostFields(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	call, err := svc.Create(ctx, domain.CreateRequest{Content: domain.Content{
		Title:          "Kitchen remodel rough-in",
		EstimatedHours: composetest.Dec("2"),
		MaterialsCost:  composetest.Dec("40"),
	}})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, domain.UpdateRequest{ID: call.ID.String(), Content: domain.Content{
		Title:          "Kitchen remodel rough-in",
		EstimatedHours: composetest.Dec("2"),
		MaterialsCost:  composetest.Dec("40"),
		TaxRate:        composetest.DecPtr("8"),
		Items:          composetest.ScenarioItems(),
	}})
	require.NoError(t, err)

	require.Len(t, updated.Items, 2)
	assert.True(t, updated.Subtotal.Equal(composetest.Dec("127.5")))
	assert.True(t, updated.TaxAmount.Equal(composetest.Dec("10.2")))
	assert.True(t, updated.TotalAmount.Equal(composetest.Dec("137.7")))

	stored, err := svc.Get(ctx, call.ID.String())
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.True(t, stored.TotalAmount.Equal(composetest.Dec("137.7")))

	_, err = svc.Update(ctx, domain.UpdateRequest{ID: call.ID.String(), Content: domain.Content{
		Title: "Kitchen remodel rough-in",
		Items: []lineitem.Draft{{ItemType: "custom", Description: "Bad", Quantity: composetest.Dec("-1"), UnitPrice: composetest.DecPtr("10")}},
	}})
	require.NotNil(t, document.AsValidation(err))

	stored, err = svc.Get(ctx, call.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(composetest.Dec("137.7")))
}

func TestEditableUntilCompleted(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	call, err := svc.Create(ctx, domain.CreateRequest{Content: domain.Content{Title: "Panel inspection", EstimatedHours: composetest.Dec("1")}})
	require.NoError(t, err)

	started, err := svc.Transition(ctx, domain.TransitionRequest{ID: call.ID.String(), Status: "in_progress"})
	require.NoError(t, err)
	require.NotNil(t, started.StartedAt)

	actual := composetest.Dec("3")
	updated, err := svc.Update(ctx, domain.UpdateRequest{ID: call.ID.String(), Content: domain.Content{
		Title:          "Panel inspection",
		EstimatedHours: composetest.Dec("1"),
		ActualHours:    &actual,
		MaterialsCost:  composetest.Dec("40"),
	}})
	require.NoError(t, err)
	assert.True(t, updated.HourlyRate.Equal(composetest.Dec("75")))
	assert.True(t, updated.TotalAmount.Equal(composetest.Dec("265")))

	_, err = svc.Transition(ctx, domain.TransitionRequest{ID: call.ID.String(), Status: "completed"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, domain.UpdateRequest{ID: call.ID.String(), Content: domain.Content{
		Title: "late",
		Items: composetest.ScenarioItems(),
	}})
	var locked *document.DocumentLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, document.TypeServiceCall, locked.DocumentType)
}

func TestServiceCallTransitions(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	call, err := svc.Create(ctx, domain.CreateRequest{Content: domain.Content{Title: "Outlet replacement"}})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, domain.TransitionRequest{ID: call.ID.String(), Status: "completed"})
	assert.ErrorIs(t, err, document.ErrInvalidTransition)

	cancelled, err := svc.Transition(ctx, domain.TransitionRequest{ID: call.ID.String(), Status: "cancelled"})
	require.NoError(t, err)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = svc.Transition(ctx, domain.TransitionRequest{ID: call.ID.String(), Status: "in_progress"})
	assert.ErrorIs(t, err, document.ErrInvalidTransition)

	list, err := svc.List(ctx, domain.ListRequest{Status: "cancelled"})
	require.NoError(t, err)
	assert.Len(t, list.ServiceCalls, 1)
}

func TestLifecycleTable(t *testing.T) {
	allowed := map[[2]domain.Status]bool{
		{domain.StatusOpen, domain.StatusInProgress}:      true,
		{domain.StatusOpen, domain.StatusCancelled}:       true,
		{domain.StatusInProgress, domain.StatusCompleted}: true,
		{domain.StatusInProgress, domain.StatusCancelled}: true,
	}
	statuses := domain.Lifecycle.Statuses()
	require.Len(t, statuses, 4)
	for _, from := range statuses {
		for _, to := range statuses {
			err := domain.Lifecycle.Transition(from, to)
			if allowed[[2]domain.Status{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, document.ErrInvalidTransition, "%s -> %s", from, to)
			}
		}
	}
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/customer/domain"
	"github.com/smallbiznis/fieldbook/internal/customer/repository"
	"github.com/smallbiznis/fieldbook/pkg/db/dbtest"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *clock.FakeClock) {
	db := dbtest.Open(t, &domain.Customer{})
	clk := clock.NewFakeClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: dbtest.Node(t),
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc.(*Service), clk
}

func TestCreateAndSnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:    "Harbor Bakery",
		Email:   "owner@harborbakery.test",
		Phone:   "555-0100",
		Address: "12 Pier Rd",
	})
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Harbor Bakery", snap.Name)
	assert.Equal(t, "12 Pier Rd", snap.Address)
}

func TestCreateRejectsInvalidEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateCustomerRequest{Name: "A", Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Create(context.Background(), domain.CreateCustomerRequest{Name: "", Email: "a@b.test"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestListPaginates(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: name, Email: name + "@example.test"})
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}

	first, err := svc.List(ctx, domain.ListCustomerRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.Customers, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "C", first.Customers[0].Name)

	second, err := svc.List(ctx, domain.ListCustomerRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.Customers, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "A", second.Customers[0].Name)
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetByID(context.Background(), domain.GetCustomerRequest{ID: "999"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetByID(context.Background(), domain.GetCustomerRequest{ID: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestCreateNormalizesEmail(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), domain.CreateCustomerRequest{
		Name:  "Dockside Deli",
		Email: "Maria Lopez <Maria@Dockside.TEST>",
	})
	require.NoError(t, err)
	assert.Equal(t, "maria@dockside.test", created.Email)
}

func TestUpdateChangesOnlySetFields(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:    "Harbor Bakery",
		Email:   "owner@harborbakery.test",
		Phone:   "555-0100",
		Address: "12 Pier Rd",
	})
	require.NoError(t, err)

	clk.Advance(time.Hour)
	address := "40 Wharf St"
	updated, err := svc.Update(ctx, domain.UpdateCustomerRequest{ID: created.ID.String(), Address: &address})
	require.NoError(t, err)
	assert.Equal(t, "40 Wharf St", updated.Address)
	assert.Equal(t, "555-0100", updated.Phone)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	stored, err := svc.GetByID(ctx, domain.GetCustomerRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "40 Wharf St", stored.Address)
	assert.Equal(t, "Harbor Bakery", stored.Name)

	blank := " "
	_, err = svc.Update(ctx, domain.UpdateCustomerRequest{ID: created.ID.String(), Name: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestListMatchesQuery(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, c := range []domain.CreateCustomerRequest{
		{Name: "Harbor Bakery", Email: "owner@harborbakery.test"},
		{Name: "Dockside Deli", Email: "maria@dockside.test"},
		{Name: "Pier Hardware", Email: "sales@harbor-hw.test"},
	} {
		_, err := svc.Create(ctx, c)
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, domain.ListCustomerRequest{Query: "HARBOR"})
	require.NoError(t, err)
	assert.Len(t, resp.Customers, 2)

	resp, err = svc.List(ctx, domain.ListCustomerRequest{Query: "deli"})
	require.NoError(t, err)
	require.Len(t, resp.Customers, 1)
	assert.Equal(t, "Dockside Deli", resp.Customers[0].Name)
}

func TestListRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	from := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	_, err := svc.List(ctx, domain.ListCustomerRequest{CreatedFrom: &from, CreatedTo: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)

	_, err = svc.List(ctx, domain.ListCustomerRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/catalog/domain"
	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	"github.com/smallbiznis/fieldbook/pkg/db/dbtest"
	"github.com/smallbiznis/fieldbook/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) *Service {
	db := dbtest.Open(t, &domain.CatalogItem{})
	svc := New(Params{
		Log:   zap.NewNop(),
		GenID: dbtest.Node(t),
		Clock: clock.NewFakeClock(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.ProvideStore[domain.CatalogItem](db),
	})
	return svc.(*Service)
}

func TestCreateSlugsCode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Kind:      "material",
		Name:      "EMT Conduit 3/4 in",
		Unit:      "ft",
		UnitPrice: decimal.RequireFromString("2.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "emt-conduit-3-4-in", resp.Code)
	assert.True(t, resp.Active)

	_, err = svc.Create(ctx, domain.CreateRequest{
		Kind:      "material",
		Code:      "EMT conduit 3/4 in",
		Name:      "Duplicate",
		Unit:      "ft",
		UnitPrice: decimal.RequireFromString("3"),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Kind: "custom", Name: "x", Unit: "each"})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)

	_, err = svc.Create(ctx, domain.CreateRequest{Kind: "service", Name: "Labour", Unit: "hour", UnitPrice: decimal.RequireFromString("-1")})
	assert.ErrorIs(t, err, domain.ErrInvalidUnitPrice)

	_, err = svc.Create(ctx, domain.CreateRequest{Kind: "service", Name: " ", Unit: "hour"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestLookupCopiesCurrentValues(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		Kind:      "service",
		Name:      "Journeyman",
		Unit:      "hour",
		UnitPrice: decimal.RequireFromString("95"),
	})
	require.NoError(t, err)
	ref, err := snowflake.ParseString(created.ID)
	require.NoError(t, err)

	entry, err := svc.Lookup(ctx, lineitem.TypeService, ref)
	require.NoError(t, err)
	assert.Equal(t, "Journeyman", entry.Name)
	assert.True(t, entry.Price.Equal(decimal.RequireFromString("95")))

	_, err = svc.Lookup(ctx, lineitem.TypeMaterial, ref)
	assert.ErrorIs(t, err, lineitem.ErrCatalogEntryNotFound)

	inactive := false
	_, err = svc.Update(ctx, domain.UpdateRequest{ID: created.ID, Active: &inactive})
	require.NoError(t, err)
	_, err = svc.Lookup(ctx, lineitem.TypeService, ref)
	assert.ErrorIs(t, err, lineitem.ErrCatalogEntryNotFound)
}

func TestListFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, req := range []domain.CreateRequest{
		{Kind: "material", Name: "Breaker 20A", Unit: "each", UnitPrice: decimal.RequireFromString("18.75")},
		{Kind: "material", Name: "Wire nut", Unit: "each", UnitPrice: decimal.RequireFromString("0.15")},
		{Kind: "service", Name: "Apprentice", Unit: "hour", UnitPrice: decimal.RequireFromString("45")},
	} {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	materials, err := svc.List(ctx, domain.ListRequest{Kind: "material"})
	require.NoError(t, err)
	assert.Len(t, materials, 2)

	_, err = svc.List(ctx, domain.ListRequest{Kind: "equipment"})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
}

func TestGetInvalidAndMissing(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.Get(context.Background(), "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

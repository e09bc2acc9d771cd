package seed

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/fieldbook/internal/catalog/domain"
	"github.com/smallbiznis/fieldbook/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureStarterCatalogIsIdempotent(t *testing.T) {
	db := dbtest.Open(t, &catalogdomain.CatalogItem{})
	node := dbtest.Node(t)
	now := time.Date(2026, 7, 6, 8, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&catalogdomain.CatalogItem{
		ID: node.Generate(), Kind: "material", Code: "romex-12-2", Name: "House Romex",
		Unit: "ft", UnitPrice: decimal.RequireFromString("0.99"), Active: true, CreatedAt: now, UpdatedAt: now,
	}).Error)

	created, err := EnsureStarterCatalog(context.Background(), db, node, now)
	require.NoError(t, err)
	assert.Equal(t, len(starterCatalog)-1, created)

	created, err = EnsureStarterCatalog(context.Background(), db, node, now)
	require.NoError(t, err)
	assert.Zero(t, created)

	var romex catalogdomain.CatalogItem
	require.NoError(t, db.Where("code = ?", "romex-12-2").First(&romex).Error)
	assert.Equal(t, "House Romex", romex.Name)
	assert.True(t, romex.UnitPrice.Equal(decimal.RequireFromString("0.99")))

	var count int64
	require.NoError(t, db.Model(&catalogdomain.CatalogItem{}).Count(&count).Error)
	assert.Equal(t, int64(len(starterCatalog)), count)
}

func TestEnsureStarterCatalogRequiresHandles(t *testing.T) {
	_, err := EnsureStarterCatalog(context.Background(), nil, nil, time.Now())
	assert.Error(t, err)
}

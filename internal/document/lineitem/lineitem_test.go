package lineitem

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ref(id int64) *snowflake.ID {
	v := snowflake.ID(id)
	return &v
}

func TestLineTotal(t *testing.T) {
	cases := []struct {
		name     string
		qty      string
		price    string
		markup   string
		expected string
	}{
		{name: "material with markup", qty: "10", price: "2.5", markup: "10", expected: "27.5"},
		{name: "custom without markup", qty: "1", price: "100", markup: "0", expected: "100"},
		{name: "zero quantity", qty: "0", price: "45", markup: "20", expected: "0"},
		{name: "fractional", qty: "2.5", price: "3.333", markup: "15", expected: "9.582375"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Pricing{Quantity: dec(tc.qty), UnitPrice: dec(tc.price), MarkupPercentage: dec(tc.markup)}
			assert.True(t, p.LineTotal().Equal(dec(tc.expected)), "got %s", p.LineTotal())
			assert.False(t, p.LineTotal().IsNegative())
		})
	}
}

func TestBillableVariants(t *testing.T) {
	material := LineItem{ItemType: TypeMaterial, CatalogRef: ref(7), Description: "12/2 Romex", Quantity: dec("10"), Unit: "ft", UnitPrice: dec("2.5"), MarkupPercentage: dec("10")}
	b, err := material.Billable()
	require.NoError(t, err)
	m, ok := b.(Material)
	require.True(t, ok)
	assert.Equal(t, snowflake.ID(7), m.CatalogRef)
	assert.Equal(t, TypeMaterial, b.Kind())
	assert.Equal(t, "ft", b.UnitOf())
	assert.True(t, b.LineTotal().Equal(dec("27.5")))

	custom := NewCustom("Permit fee", "each", dec("1"), dec("100"))
	b, err = custom.Billable()
	require.NoError(t, err)
	_, ok = b.(Custom)
	assert.True(t, ok)

	service := LineItem{ItemType: TypeService, CatalogRef: ref(9), Description: "Journeyman labour", Quantity: dec("3"), Unit: "hour", UnitPrice: dec("75")}
	b, err = service.Billable()
	require.NoError(t, err)
	_, ok = b.(Service)
	assert.True(t, ok)
}

func TestValidateRejectsNegativeValues(t *testing.T) {
	item := LineItem{
		ItemType:         TypeCustom,
		Description:      "Bad",
		Quantity:         dec("-1"),
		UnitPrice:        dec("-5"),
		MarkupPercentage: dec("-10"),
	}

	err := item.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrValidation)

	vErr := document.AsValidation(err)
	require.NotNil(t, vErr)
	codes := map[string]string{}
	for _, f := range vErr.Fields {
		codes[f.Field] = f.Code
	}
	assert.Equal(t, "invalid_quantity", codes["quantity"])
	assert.Equal(t, "invalid_unit_price", codes["unit_price"])
	assert.Equal(t, "invalid_markup_percentage", codes["markup_percentage"])
}

func TestValidateCatalogReference(t *testing.T) {
	t.Run("material without ref", func(t *testing.T) {
		err := LineItem{ItemType: TypeMaterial, Description: "Box", Quantity: dec("1"), UnitPrice: dec("1")}.Validate()
		assert.ErrorIs(t, err, document.ErrValidation)
	})
	t.Run("custom with ref", func(t *testing.T) {
		err := LineItem{ItemType: TypeCustom, CatalogRef: ref(1), Description: "Box", Quantity: dec("1"), UnitPrice: dec("1")}.Validate()
		assert.ErrorIs(t, err, document.ErrValidation)
	})
	t.Run("unknown type", func(t *testing.T) {
		err := LineItem{ItemType: "equipment", Description: "Lift", Quantity: dec("1"), UnitPrice: dec("1")}.Validate()
		assert.ErrorIs(t, err, document.ErrValidation)
	})
}

func TestValidateAllPrefixesIndex(t *testing.T) {
	items := []LineItem{
		NewCustom("ok", "each", dec("1"), dec("1")),
		NewCustom("", "each", dec("1"), dec("1")),
	}
	vErr := document.AsValidation(ValidateAll(items))
	require.NotNil(t, vErr)
	assert.Equal(t, "items[1].description", vErr.Fields[0].Field)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Lookup(ctx context.Context, kind ItemType, id snowflake.ID) (CatalogEntry, error) {
	args := m.Called(ctx, kind, id)
	return args.Get(0).(CatalogEntry), args.Error(1)
}

func TestResolveCopiesCatalogValues(t *testing.T) {
	ctx := context.Background()
	catalog := new(mockCatalog)
	catalog.On("Lookup", ctx, TypeMaterial, snowflake.ID(42)).Return(CatalogEntry{
		Ref:   42,
		Kind:  TypeMaterial,
		Name:  "EMT conduit 3/4\"",
		Unit:  "ft",
		Price: dec("2.5"),
	}, nil).Once()

	items, err := Resolve(ctx, catalog, []Draft{
		{ItemType: "material", CatalogRef: ref(42), Quantity: dec("10"), MarkupPercentage: dec("10")},
		{ItemType: "custom", Description: "Trenching", Quantity: dec("1"), Unit: "each", UnitPrice: decPtr("100")},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "EMT conduit 3/4\"", items[0].Description)
	assert.Equal(t, "ft", items[0].Unit)
	assert.True(t, items[0].UnitPrice.Equal(dec("2.5")))
	assert.Equal(t, "Trenching", items[1].Description)
	catalog.AssertExpectations(t)
}

func TestResolveKeepsPreviouslyCopiedPrice(t *testing.T) {
	catalog := new(mockCatalog)

	items, err := Resolve(context.Background(), catalog, []Draft{
		{ItemType: "service", CatalogRef: ref(5), Description: "Apprentice", Unit: "hour", UnitPrice: decPtr("40"), Quantity: dec("2")},
	})
	require.NoError(t, err)
	assert.True(t, items[0].UnitPrice.Equal(dec("40")))
	catalog.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveUnknownCatalogRef(t *testing.T) {
	ctx := context.Background()
	catalog := new(mockCatalog)
	catalog.On("Lookup", ctx, TypeMaterial, snowflake.ID(1)).Return(CatalogEntry{}, ErrCatalogEntryNotFound)

	_, err := Resolve(ctx, catalog, []Draft{{ItemType: "material", CatalogRef: ref(1), Quantity: dec("1")}})
	vErr := document.AsValidation(err)
	require.NotNil(t, vErr)
	assert.Equal(t, "items[0].catalog_ref", vErr.Fields[0].Field)
	assert.Equal(t, "unknown_catalog_ref", vErr.Fields[0].Code)
}

func TestDraftsRoundTripKeepsCopiedFields(t *testing.T) {
	items := []LineItem{{ItemType: TypeMaterial, CatalogRef: ref(3), Description: "Breaker", Quantity: dec("2"), Unit: "each", UnitPrice: dec("18.75")}}

	resolved, err := Resolve(context.Background(), nil, Drafts(items))
	require.NoError(t, err)
	assert.Equal(t, items, resolved)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

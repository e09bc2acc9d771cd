package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesPDF(t *testing.T) {
	out, err := New().Render(context.Background(), DocumentData{
		Heading:  "Invoice",
		Number:   "INV-00001",
		Title:    "Panel upgrade",
		Status:   "draft",
		Currency: "USD",
		Company:  Party{Name: "Fieldbook Electric"},
		BillTo:   Party{Name: "Harbor Bakery", Email: "owner@harbor.test"},
		Items: []Row{
			{Description: "12/2 Romex", Quantity: "10", Unit: "ft", UnitPrice: "2.50", Markup: "10%", Amount: "27.50"},
		},
		Subtotal:  "127.50",
		TaxRate:   "8",
		TaxAmount: "10.20",
		Total:     "137.70",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRequiresNumber(t *testing.T) {
	_, err := New().Render(context.Background(), DocumentData{Heading: "Invoice"})
	assert.Error(t, err)
}

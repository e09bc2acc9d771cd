// Package calculator derives document totals from line items.
//
// Line totals are summed at full precision. Rounding to cents happens exactly
// twice: once on the subtotal and once on the tax amount, half away from zero.
// The stored totals are those rounded values, so total == subtotal + tax holds
// to the cent.
package calculator

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
)

const places = 2

var hundred = decimal.NewFromInt(100)

// Round2 rounds an amount to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(places)
}

// Calculate derives subtotal, tax and total. Any invalid item rejects the whole calculation.
func Calculate(items []lineitem.LineItem, taxRate decimal.Decimal) (document.Totals, error) {
	if err := validateTaxRate(taxRate); err != nil {
		return document.Totals{}, err
	}
	if err := lineitem.ValidateAll(items); err != nil {
		return document.Totals{}, err
	}

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}

	subtotal := Round2(sum)
	tax := Round2(subtotal.Mul(taxRate).Div(hundred))
	return document.Totals{
		TaxRate:     taxRate,
		Subtotal:    subtotal,
		TaxAmount:   tax,
		TotalAmount: subtotal.Add(tax),
	}, nil
}

// Manual is the degraded mode for documents without items: the supplied
// total is stored unchanged and no subtotal/tax decomposition exists.
func Manual(total, taxRate decimal.Decimal) (document.Totals, error) {
	if err := validateTaxRate(taxRate); err != nil {
		return document.Totals{}, err
	}
	if total.IsNegative() {
		return document.Totals{}, document.NewValidationError("total_amount", "invalid_total_amount", "total_amount must not be negative")
	}
	return document.Totals{
		TaxRate:     taxRate,
		Subtotal:    decimal.Zero,
		TaxAmount:   decimal.Zero,
		TotalAmount: total,
		ManualTotal: true,
	}, nil
}

// Compute picks the calculation path. A manual total is only accepted when
// there are no items.
func Compute(items []lineitem.LineItem, taxRate decimal.Decimal, manualTotal *decimal.Decimal) (document.Totals, error) {
	if len(items) > 0 {
		if manualTotal != nil {
			return document.Totals{}, document.NewValidationError("total_amount", "manual_total_with_items", "total_amount can only be set when there are no items")
		}
		return Calculate(items, taxRate)
	}
	if manualTotal != nil {
		return Manual(*manualTotal, taxRate)
	}
	return Calculate(nil, taxRate)
}

// Portion returns percentage% of amount rounded to cents.
func Portion(amount, percentage decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(percentage).Div(hundred))
}

func validateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() {
		return document.NewValidationError("tax_rate", "invalid_tax_rate", "tax_rate must not be negative")
	}
	return nil
}

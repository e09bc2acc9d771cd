package domain

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/document"
)

// ValidateCosts rejects negative hours, rates and costs.
func ValidateCosts(c Content) error {
	var fields []document.FieldError
	check := func(field string, v *decimal.Decimal) {
		if v != nil && v.IsNegative() {
			fields = append(fields, document.FieldError{Field: field, Code: "invalid_" + field, Message: field + " must not be negative"})
		}
	}
	check("estimated_hours", &c.EstimatedHours)
	check("actual_hours", c.ActualHours)
	check("hourly_rate", c.HourlyRate)
	check("materials_cost", &c.MaterialsCost)
	check("total_cost", c.TotalCost)
	check("tax_rate", c.TaxRate)

	if err := document.RequireText("title", c.Title); err != nil {
		fields = append(fields, document.AsValidation(err).Fields...)
	}
	if len(fields) > 0 {
		return &document.ValidationError{Fields: fields}
	}
	return nil
}

// Package pdf renders financial documents.
package pdf

import "context"

type Provider interface {
	Render(ctx context.Context, data DocumentData) ([]byte, error)
}

// DocumentData is the print view of one document. Amounts are preformatted.
type DocumentData struct {
	Heading   string
	Number    string
	Title     string
	Status    string
	IssueDate string
	DueDate   string
	Currency  string

	Company Party
	BillTo  Party

	Items []Row

	ManualTotal bool
	Subtotal    string
	TaxRate     string
	TaxAmount   string
	Total       string

	Notes string
}

type Party struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

type Row struct {
	Description string
	Quantity    string
	Unit        string
	UnitPrice   string
	Markup      string
	Amount      string
}

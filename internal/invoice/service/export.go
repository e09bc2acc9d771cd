package service

import (
	"context"
	"fmt"

	invoicedomain "github.com/smallbiznis/fieldbook/internal/invoice/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const exportSheet = "Invoices"

var exportHeader = []any{
	"Number", "Title", "Status", "Customer", "Customer email",
	"Subtotal", "Tax rate", "Tax", "Total", "Manual total",
	"Due date", "Source", "Source percentage", "Created at",
}

func (s *Service) Export(ctx context.Context, req invoicedomain.ListInvoiceRequest) ([]byte, error) {
	filter, err := s.listFilter(req)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListForExport(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warn("failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(exportHeader))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, err
	}

	for i, invoice := range rows {
		if invoice == nil {
			continue
		}
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		values := exportRow(invoice)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(exportSheet, fmt.Sprintf("F%d", row), fmt.Sprintf("I%d", row), moneyStyle); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(exportSheet, "A", lastCol, 16); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportRow(invoice *invoicedomain.Invoice) []any {
	dueDate := ""
	if invoice.DueDate != nil {
		dueDate = invoice.DueDate.Format("2006-01-02")
	}
	source, percentage := "", ""
	if invoice.Provenance.IsSet() {
		source = fmt.Sprintf("%s %s", *invoice.Provenance.SourceType, invoice.Provenance.SourceID.String())
		if invoice.Provenance.Percentage != nil {
			percentage = invoice.Provenance.Percentage.String()
		}
	}

	return []any{
		invoice.Number,
		invoice.Title,
		string(invoice.Status),
		invoice.Customer.Name,
		invoice.Customer.Email,
		invoice.Subtotal.InexactFloat64(),
		invoice.TaxRate.String(),
		invoice.TaxAmount.InexactFloat64(),
		invoice.TotalAmount.InexactFloat64(),
		invoice.ManualTotal,
		dueDate,
		source,
		percentage,
		invoice.CreatedAt.Format("2006-01-02 15:04"),
	}
}

package pdf

import (
	"context"
	"errors"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

func (p *MarotoProvider) Render(ctx context.Context, data DocumentData) ([]byte, error) {
	if data.Number == "" {
		return nil, errors.New("document number is required")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, data.Heading, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.Status, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Number: "+data.Number, props.Text{Top: 0}),
			text.New("Date of issue: "+data.IssueDate, props.Text{Top: 4}),
			text.New("Date due: "+data.DueDate, props.Text{Top: 8}),
			text.New(data.Title, props.Text{Top: 12, Style: fontstyle.Bold}),
		),
		col.New(6),
	)

	m.AddRow(32,
		partyCol(6, "", data.Company),
		partyCol(6, "Bill to", data.BillTo),
	)

	if !data.ManualTotal {
		m.AddRow(10,
			text.NewCol(5, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(1, "Markup", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		)
		m.AddRow(2, line.NewCol(12))

		for _, item := range data.Items {
			m.AddRow(8,
				text.NewCol(5, item.Description, props.Text{Size: 9}),
				text.NewCol(2, item.Quantity+" "+item.Unit, props.Text{Size: 9, Align: align.Right}),
				text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
				text.NewCol(1, item.Markup, props.Text{Size: 9, Align: align.Right}),
				text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
			)
		}

		m.AddRow(8,
			col.New(8),
			text.NewCol(2, "Subtotal", props.Text{Size: 9}),
			text.NewCol(2, data.Subtotal, props.Text{Size: 9, Align: align.Right}),
		)
		m.AddRow(8,
			col.New(8),
			text.NewCol(2, "Tax ("+data.TaxRate+"%)", props.Text{Size: 9}),
			text.NewCol(2, data.TaxAmount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total "+data.Currency, props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, data.Total, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	if data.Notes != "" {
		m.AddRow(20,
			text.NewCol(12, data.Notes, props.Text{Size: 9, Top: 4}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func partyCol(size int, label string, party Party) core.Col {
	c := col.New(size)
	top := 0.0
	if label != "" {
		c.Add(text.New(label, props.Text{Style: fontstyle.Bold, Top: top}))
		top += 5
	}
	for _, value := range []string{party.Name, party.Address, party.Phone, party.Email} {
		if value == "" {
			continue
		}
		c.Add(text.New(value, props.Text{Top: top}))
		top += 5
	}
	return c
}

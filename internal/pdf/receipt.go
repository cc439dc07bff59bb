// Package pdf renders downloadable sale receipts with maroto.
package pdf

import (
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ReceiptLine is one sold product on the printed receipt. Money values
// arrive preformatted so the layout stays decoupled from the money type.
type ReceiptLine struct {
	Description string
	Quantity    string
	UnitPrice   string
	Subtotal    string
}

type ReceiptData struct {
	Code     string
	Date     string
	Customer string
	Email    string
	Lines    []ReceiptLine
	Total    string
}

// SaleReceipt renders the sale as a one-page PDF receipt: header with the
// sale code, customer and date, one row per line with the snapshot price,
// and the grand total.
func SaleReceipt(data ReceiptData) ([]byte, error) {
	m := maroto.New(config.NewBuilder().Build())

	m.AddRows(text.NewRow(12, "Comprobante de venta "+data.Code,
		props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Center}))
	m.AddRow(6,
		text.NewCol(6, "Cliente: "+data.Customer, props.Text{Size: 9}),
		text.NewCol(6, "Fecha: "+data.Date, props.Text{Size: 9, Align: align.Right}),
	)
	if data.Email != "" {
		m.AddRows(text.NewRow(5, data.Email, props.Text{Size: 9}))
	}
	m.AddRows(line.NewRow(4))

	m.AddRow(7,
		text.NewCol(6, "Producto", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(2, "Cantidad", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Precio", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Subtotal", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)
	for _, ln := range data.Lines {
		m.AddRow(6,
			text.NewCol(6, ln.Description, props.Text{Size: 9}),
			text.NewCol(2, ln.Quantity, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, ln.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, ln.Subtotal, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRows(line.NewRow(4))
	m.AddRow(8,
		text.NewCol(10, "Total", props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, data.Total, props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

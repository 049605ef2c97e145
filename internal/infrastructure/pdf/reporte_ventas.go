// Package pdf genera la representación en PDF del reporte de ventas
// conciliadas, con una fila por factura y los totales netos por moneda.
package pdf

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/operaciones-peru/crm-sunat/internal/application/dto"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ReporteVentasPDF implementa usecase.ReporteVentasGenerator con Maroto v2.
type ReporteVentasPDF struct{}

// NewReporteVentasPDF construye el generador.
func NewReporteVentasPDF() *ReporteVentasPDF { return &ReporteVentasPDF{} }

// Generar arma el reporte: título, tabla de facturas conciliadas y totales
// netos por moneda.
func (g *ReporteVentasPDF) Generar(titulo string, items []dto.VentaResponse) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(orientation.Horizontal).
		WithLeftMargin(8).WithRightMargin(8).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle(titulo, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(row.New(10).Add(
		col.New(12).Add(
			text.New(titulo, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary}),
		),
	))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(encabezadoTabla())
	for i := range items {
		m.AddRows(filaVenta(&items[i]))
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range filasTotales(items) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

func encabezadoTabla() core.Row {
	titulos := []struct {
		texto string
		ancho int
	}{
		{"RUC", 2}, {"Comprobante", 1}, {"Fecha", 1}, {"Cliente", 3},
		{"Mon.", 1}, {"Total", 1}, {"NC", 1}, {"Neto", 1}, {"Estado", 1},
	}
	r := row.New(7)
	for _, t := range titulos {
		r.Add(col.New(t.ancho).Add(
			text.New(t.texto, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary}),
		))
	}
	return r
}

func filaVenta(v *dto.VentaResponse) core.Row {
	fecha := ""
	if v.FechaEmision != nil {
		fecha = *v.FechaEmision
	}
	cliente := ""
	if v.Cliente != nil {
		cliente = *v.Cliente
	}
	nc := ""
	if v.TieneNotaCredito {
		nc = v.MontoNotaCredito.StringFixed(2)
	}
	return row.New(5).Add(
		col.New(2).Add(text.New(v.RUC, props.Text{Size: 7})),
		col.New(1).Add(text.New(v.SerieNumero, props.Text{Size: 7})),
		col.New(1).Add(text.New(fecha, props.Text{Size: 7})),
		col.New(3).Add(text.New(cliente, props.Text{Size: 7})),
		col.New(1).Add(text.New(v.Moneda, props.Text{Size: 7})),
		col.New(1).Add(text.New(v.TotalCP.StringFixed(2), props.Text{Size: 7, Align: align.Right})),
		col.New(1).Add(text.New(nc, props.Text{Size: 7, Align: align.Right})),
		col.New(1).Add(text.New(v.MontoNeto.StringFixed(2), props.Text{Size: 7, Align: align.Right})),
		col.New(1).Add(text.New(v.EstadoGestion, props.Text{Size: 7})),
	)
}

// filasTotales neto acumulado por moneda más el conteo de facturas.
func filasTotales(items []dto.VentaResponse) []core.Row {
	porMoneda := map[string]decimal.Decimal{}
	var monedas []string
	for i := range items {
		m := items[i].Moneda
		if _, ok := porMoneda[m]; !ok {
			monedas = append(monedas, m)
		}
		porMoneda[m] = porMoneda[m].Add(items[i].MontoNeto)
	}

	out := []core.Row{
		row.New(6).Add(
			col.New(12).Add(text.New(
				fmt.Sprintf("Facturas: %d", len(items)),
				props.Text{Style: fontstyle.Bold, Size: 9},
			)),
		),
	}
	for _, m := range monedas {
		out = append(out, row.New(5).Add(
			col.New(12).Add(text.New(
				fmt.Sprintf("Total neto %s: %s", m, porMoneda[m].StringFixed(2)),
				props.Text{Size: 9, Color: colorGray},
			)),
		))
	}
	return out
}

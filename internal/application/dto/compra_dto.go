package dto

import (
	"github.com/shopspring/decimal"

	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
)

// ListComprasRequest parámetros de GET /api/compras.
type ListComprasRequest struct {
	Page       int      `query:"page"`
	PageSize   int      `query:"page_size"`
	RUC        string   `query:"ruc"`
	RUCs       []string `query:"rucs"`
	Periodo    string   `query:"periodo"`
	FechaDesde string   `query:"fecha_desde"`
	FechaHasta string   `query:"fecha_hasta"`
}

// CompraResponse compra en respuestas.
type CompraResponse struct {
	ID              int64           `json:"id"`
	RUC             string          `json:"ruc"`
	RazonSocial     *string         `json:"razon_social,omitempty"`
	Periodo         string          `json:"periodo"`
	FechaEmision    *string         `json:"fecha_emision,omitempty"`
	TipoCPDoc       string          `json:"tipo_cp_doc"`
	SerieNumero     string          `json:"serie_numero"`
	NroDocIdentidad string          `json:"nro_doc_identidad"`
	Proveedor       *string         `json:"proveedor,omitempty"`
	TotalCP         decimal.Decimal `json:"total_cp"`
	Moneda          string          `json:"moneda"`
}

// ListComprasResponse página de compras.
type ListComprasResponse struct {
	Items      []CompraResponse `json:"items"`
	Paginacion Paginacion       `json:"paginacion"`
}

// CompraFromEntity mapea una fila del ledger de compras.
func CompraFromEntity(c *entity.Compra) CompraResponse {
	var fechaEmision *string
	if c.FechaEmision != nil {
		s := c.FechaEmision.Format("2006-01-02")
		fechaEmision = &s
	}
	serie := ""
	if c.SerieCDP != "" && c.NroCPInicial != "" {
		serie = c.SerieCDP + "-" + c.NroCPInicial
	}
	return CompraResponse{
		ID:              c.ID,
		RUC:             c.RUC,
		RazonSocial:     c.RazonSocial,
		Periodo:         c.Periodo,
		FechaEmision:    fechaEmision,
		TipoCPDoc:       c.TipoCPDoc,
		SerieNumero:     serie,
		NroDocIdentidad: c.NroDocIdentidad,
		Proveedor:       c.RazonSocialProveedor,
		TotalCP:         c.TotalCP,
		Moneda:          c.Moneda,
	}
}
